package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/geocoder89/dibs/internal/domain/category"
	"github.com/geocoder89/dibs/internal/domain/comment"
	"github.com/geocoder89/dibs/internal/domain/item"
	"github.com/geocoder89/dibs/internal/domain/list"
	"github.com/geocoder89/dibs/internal/domain/role"
	"github.com/geocoder89/dibs/internal/domain/user"
	"github.com/geocoder89/dibs/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type ListStore interface {
	Create(ctx context.Context, req list.CreateListRequest) (list.List, error)
	GetByID(ctx context.Context, id int64) (list.List, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]list.List, error)
	ListOthers(ctx context.Context, viewerID int64) ([]list.List, error)
	Delete(ctx context.Context, id int64) error
}

type ItemStore interface {
	Create(ctx context.Context, it item.Item) (item.Item, error)
	GetByID(ctx context.Context, id int64) (item.Item, error)
	ListByList(ctx context.Context, listID int64) ([]item.Item, error)
	Delete(ctx context.Context, id int64) error
}

type CommentStore interface {
	Create(ctx context.Context, req comment.CreateCommentRequest) (comment.Comment, error)
	GetByID(ctx context.Context, id int64) (comment.Comment, error)
	ListByList(ctx context.Context, listID int64) ([]comment.Comment, error)
	Delete(ctx context.Context, id int64) error
}

type CategoryStore interface {
	List(ctx context.Context) ([]category.Category, error)
	GetByID(ctx context.Context, id int64) (category.Category, error)
}

type ListsHandler struct {
	lists      ListStore
	items      ItemStore
	comments   CommentStore
	categories CategoryStore
}

func NewListsHandler(lists ListStore, items ItemStore, comments CommentStore, categories CategoryStore) *ListsHandler {
	return &ListsHandler{lists: lists, items: items, comments: comments, categories: categories}
}

const (
	msgCantDelete      = "Sorry, you can't delete anything. People might have called dibs on it"
	msgEmptyComment    = "Comment can't be empty."
	msgCommentTooLong  = "Comment is too long."
	msgCommentDeleted  = "Comment deleted."
	msgCommentAdded    = "Your comment has been published."
	msgItemAdded       = "Item added."
	msgItemDeleted     = "Item deleted."
	msgListCreated     = "Your list has been created."
	msgListDeleted     = "List deleted."
	msgListNotFound    = "That list does not exist."
	msgItemNotFound    = "That item does not exist."
	msgCommentNotFound = "That comment does not exist."
	uncategorizedLabel = "Other"
)

func parseID(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func listURL(id int64) string {
	return "/lists/" + strconv.FormatInt(id, 10)
}

// loadList answers 404 itself and reports false when the list is missing.
func (h *ListsHandler) loadList(ctx *gin.Context) (list.List, bool) {
	id, ok := parseID(ctx, "id")
	if !ok {
		RespondNotFound(ctx, msgListNotFound)
		return list.List{}, false
	}

	l, err := h.lists.GetByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, list.ErrNotFound) {
			RespondNotFound(ctx, msgListNotFound)
			return list.List{}, false
		}
		RespondInternal(ctx, "lists.get_failed", err)
		return list.List{}, false
	}
	return l, true
}

// loadItem requires the item to belong to l.
func (h *ListsHandler) loadItem(ctx *gin.Context, l list.List) (item.Item, bool) {
	id, ok := parseID(ctx, "item_id")
	if !ok {
		RespondNotFound(ctx, msgItemNotFound)
		return item.Item{}, false
	}

	it, err := h.items.GetByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			RespondNotFound(ctx, msgItemNotFound)
			return item.Item{}, false
		}
		RespondInternal(ctx, "items.get_failed", err)
		return item.Item{}, false
	}
	if it.ListID != l.ID {
		RespondNotFound(ctx, msgItemNotFound)
		return item.Item{}, false
	}
	return it, true
}

func (h *ListsHandler) Index(ctx *gin.Context) {
	u := middlewares.CurrentUser(ctx)
	if u == nil {
		render(ctx, http.StatusOK, "index", "", nil)
		return
	}

	lists, err := h.lists.ListOthers(ctx.Request.Context(), u.ID)
	if err != nil {
		RespondInternal(ctx, "lists.list_others_failed", err)
		return
	}

	render(ctx, http.StatusOK, "index", "", gin.H{"Lists": lists})
}

func (h *ListsHandler) CreatePage(ctx *gin.Context) {
	render(ctx, http.StatusOK, "lists/create", "New list", gin.H{"Form": list.CreateListRequest{}})
}

func (h *ListsHandler) Create(ctx *gin.Context) {
	u := middlewares.CurrentUser(ctx)

	var req list.CreateListRequest
	errs, ok := BindForm(ctx, &req)
	if !ok {
		render(ctx, http.StatusOK, "lists/create", "New list", gin.H{"Form": req, "Errors": errs})
		return
	}
	req.AuthorID = u.ID

	l, err := h.lists.Create(ctx.Request.Context(), req)
	if err != nil {
		RespondInternal(ctx, "lists.create_failed", err)
		return
	}

	flashRedirect(ctx, msgListCreated, listURL(l.ID))
}

type commentView struct {
	Comment   comment.Comment
	Deletable bool
}

type itemView struct {
	Item     item.Item
	Comments []commentView
}

type categoryGroup struct {
	Name  string
	Items []itemView
}

// groupItems buckets items by category in category order. Items without a
// known category land in a trailing group.
func groupItems(cats []category.Category, items []item.Item, comments []comment.Comment, viewer *user.User) []categoryGroup {
	byItem := make(map[int64][]commentView)
	for _, c := range comments {
		byItem[c.ItemID] = append(byItem[c.ItemID], commentView{
			Comment:   c,
			Deletable: viewer != nil && c.DeletableBy(viewer.ID, viewer.IsAdministrator()),
		})
	}

	index := make(map[int64]int, len(cats))
	groups := make([]categoryGroup, len(cats))
	for i, c := range cats {
		index[c.ID] = i
		groups[i].Name = c.Name
	}

	var other categoryGroup
	other.Name = uncategorizedLabel

	for _, it := range items {
		v := itemView{Item: it, Comments: byItem[it.ID]}
		if it.CategoryID != nil {
			if i, ok := index[*it.CategoryID]; ok {
				groups[i].Items = append(groups[i].Items, v)
				continue
			}
		}
		other.Items = append(other.Items, v)
	}

	out := make([]categoryGroup, 0, len(groups)+1)
	for _, g := range groups {
		if len(g.Items) > 0 {
			out = append(out, g)
		}
	}
	if len(other.Items) > 0 {
		out = append(out, other)
	}
	return out
}

func canAddItem(u *user.User, l list.List) bool {
	return u.Can(role.PermCreate) && (l.OwnedBy(u.ID) || u.IsAdministrator())
}

func (h *ListsHandler) renderShow(ctx *gin.Context, l list.List, form item.CreateItemRequest, errs map[string]string) {
	u := middlewares.CurrentUser(ctx)
	rctx := ctx.Request.Context()

	cats, err := h.categories.List(rctx)
	if err != nil {
		RespondInternal(ctx, "categories.list_failed", err)
		return
	}
	items, err := h.items.ListByList(rctx, l.ID)
	if err != nil {
		RespondInternal(ctx, "items.list_failed", err)
		return
	}
	comments, err := h.comments.ListByList(rctx, l.ID)
	if err != nil {
		RespondInternal(ctx, "comments.list_failed", err)
		return
	}

	if errs == nil {
		errs = map[string]string{}
	}

	render(ctx, http.StatusOK, "lists/show", l.Title, gin.H{
		"List":           l,
		"Groups":         groupItems(cats, items, comments, u),
		"Categories":     cats,
		"Form":           form,
		"Errors":         errs,
		"IsOwner":        l.OwnedBy(u.ID),
		"CanAddItem":     canAddItem(u, l),
		"CanDeleteList":  u.Can(role.PermDelete),
		"CanDeleteItems": u.Can(role.PermDelete),
	})
}

func (h *ListsHandler) Show(ctx *gin.Context) {
	l, ok := h.loadList(ctx)
	if !ok {
		return
	}
	h.renderShow(ctx, l, item.CreateItemRequest{}, nil)
}

// AddItem handles the item form on the list page.
func (h *ListsHandler) AddItem(ctx *gin.Context) {
	l, ok := h.loadList(ctx)
	if !ok {
		return
	}

	u := middlewares.CurrentUser(ctx)
	if !canAddItem(u, l) {
		flashRedirect(ctx, middlewares.MsgNotAllowed, listURL(l.ID))
		return
	}

	var req item.CreateItemRequest
	errs, ok := BindForm(ctx, &req)
	if !ok {
		h.renderShow(ctx, l, req, errs)
		return
	}
	req.ListID = l.ID

	if req.CategoryID > 0 {
		if _, err := h.categories.GetByID(ctx.Request.Context(), req.CategoryID); err != nil {
			if errors.Is(err, category.ErrNotFound) {
				h.renderShow(ctx, l, req, map[string]string{"category_id": "unknown category"})
				return
			}
			RespondInternal(ctx, "categories.get_failed", err)
			return
		}
	}

	if _, err := h.items.Create(ctx.Request.Context(), item.NewFromCreateRequest(req)); err != nil {
		RespondInternal(ctx, "items.create_failed", err)
		return
	}

	flashRedirect(ctx, msgItemAdded, listURL(l.ID))
}

func (h *ListsHandler) Delete(ctx *gin.Context) {
	l, ok := h.loadList(ctx)
	if !ok {
		return
	}

	if !middlewares.CurrentUser(ctx).Can(role.PermDelete) {
		flashRedirect(ctx, msgCantDelete, listURL(l.ID))
		return
	}

	if err := h.lists.Delete(ctx.Request.Context(), l.ID); err != nil {
		if errors.Is(err, list.ErrNotFound) {
			RespondNotFound(ctx, msgListNotFound)
			return
		}
		RespondInternal(ctx, "lists.delete_failed", err)
		return
	}

	flashRedirect(ctx, msgListDeleted, "/user/"+l.AuthorUsername)
}

func (h *ListsHandler) DeleteItem(ctx *gin.Context) {
	l, ok := h.loadList(ctx)
	if !ok {
		return
	}
	it, ok := h.loadItem(ctx, l)
	if !ok {
		return
	}

	if !middlewares.CurrentUser(ctx).Can(role.PermDelete) {
		flashRedirect(ctx, msgCantDelete, listURL(l.ID))
		return
	}

	if err := h.items.Delete(ctx.Request.Context(), it.ID); err != nil && !errors.Is(err, item.ErrNotFound) {
		RespondInternal(ctx, "items.delete_failed", err)
		return
	}

	flashRedirect(ctx, msgItemDeleted, listURL(l.ID))
}

func (h *ListsHandler) CreateComment(ctx *gin.Context) {
	l, ok := h.loadList(ctx)
	if !ok {
		return
	}
	it, ok := h.loadItem(ctx, l)
	if !ok {
		return
	}

	var req comment.CreateCommentRequest
	if errs, ok := BindForm(ctx, &req); !ok {
		msg := msgEmptyComment
		if errs["body"] != "" && errs["body"] != validationMessage("required", "") {
			msg = msgCommentTooLong
		}
		flashRedirect(ctx, msg, listURL(l.ID))
		return
	}

	req.ItemID = it.ID
	req.AuthorID = middlewares.CurrentUser(ctx).ID

	if _, err := h.comments.Create(ctx.Request.Context(), req); err != nil {
		RespondInternal(ctx, "comments.create_failed", err)
		return
	}

	flashRedirect(ctx, msgCommentAdded, listURL(l.ID))
}

func (h *ListsHandler) DeleteComment(ctx *gin.Context) {
	l, ok := h.loadList(ctx)
	if !ok {
		return
	}

	id, ok := parseID(ctx, "comment_id")
	if !ok {
		RespondNotFound(ctx, msgCommentNotFound)
		return
	}

	rctx := ctx.Request.Context()

	c, err := h.comments.GetByID(rctx, id)
	if err != nil {
		if errors.Is(err, comment.ErrNotFound) {
			RespondNotFound(ctx, msgCommentNotFound)
			return
		}
		RespondInternal(ctx, "comments.get_failed", err)
		return
	}

	it, err := h.items.GetByID(rctx, c.ItemID)
	if err != nil || it.ListID != l.ID {
		if err == nil || errors.Is(err, item.ErrNotFound) {
			RespondNotFound(ctx, msgCommentNotFound)
			return
		}
		RespondInternal(ctx, "items.get_failed", err)
		return
	}

	u := middlewares.CurrentUser(ctx)
	if !c.DeletableBy(u.ID, u.IsAdministrator()) {
		flashRedirect(ctx, middlewares.MsgNotAllowed, listURL(l.ID))
		return
	}

	if err := h.comments.Delete(rctx, c.ID); err != nil && !errors.Is(err, comment.ErrNotFound) {
		RespondInternal(ctx, "comments.delete_failed", err)
		return
	}

	flashRedirect(ctx, msgCommentDeleted, listURL(l.ID))
}
