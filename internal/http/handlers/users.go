package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/dibs/internal/account"
	"github.com/geocoder89/dibs/internal/domain/list"
	"github.com/geocoder89/dibs/internal/domain/role"
	"github.com/geocoder89/dibs/internal/domain/user"
	"github.com/geocoder89/dibs/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type AuthorLists interface {
	ListByAuthor(ctx context.Context, authorID int64) ([]list.List, error)
}

type RoleLister interface {
	List(ctx context.Context) ([]role.Role, error)
}

type AdminEditor interface {
	AdminUpdate(ctx context.Context, target user.User, edit account.AdminEdit) (user.User, error)
}

type UsersHandler struct {
	users  UserFinder
	lists  AuthorLists
	roles  RoleLister
	editor AdminEditor
}

func NewUsersHandler(users UserFinder, lists AuthorLists, roles RoleLister, editor AdminEditor) *UsersHandler {
	return &UsersHandler{users: users, lists: lists, roles: roles, editor: editor}
}

const msgUserNotFound = "No such user."

func (h *UsersHandler) loadUser(ctx *gin.Context) (user.User, bool) {
	u, err := h.users.GetByUsername(ctx.Request.Context(), ctx.Param("username"))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, msgUserNotFound)
			return user.User{}, false
		}
		RespondInternal(ctx, "users.get_failed", err)
		return user.User{}, false
	}
	return u, true
}

func (h *UsersHandler) Profile(ctx *gin.Context) {
	profile, ok := h.loadUser(ctx)
	if !ok {
		return
	}

	lists, err := h.lists.ListByAuthor(ctx.Request.Context(), profile.ID)
	if err != nil {
		RespondInternal(ctx, "lists.list_by_author_failed", err)
		return
	}

	render(ctx, http.StatusOK, "users/profile", profile.Username, gin.H{
		"Profile": profile,
		"Lists":   lists,
	})
}

// Settings is visible to the account owner and to administrators.
func (h *UsersHandler) Settings(ctx *gin.Context) {
	profile, ok := h.loadUser(ctx)
	if !ok {
		return
	}

	viewer := middlewares.CurrentUser(ctx)
	if viewer.ID != profile.ID && !viewer.IsAdministrator() {
		flashRedirect(ctx, middlewares.MsgNotAllowed, "/")
		return
	}

	render(ctx, http.StatusOK, "users/settings", "Settings", gin.H{"Profile": profile})
}

func (h *UsersHandler) renderEdit(ctx *gin.Context, profile user.User, form UserEditForm, errs map[string]string) {
	roles, err := h.roles.List(ctx.Request.Context())
	if err != nil {
		RespondInternal(ctx, "roles.list_failed", err)
		return
	}
	if errs == nil {
		errs = map[string]string{}
	}

	render(ctx, http.StatusOK, "users/edit", "Edit Profile", gin.H{
		"Profile": profile,
		"Form":    form,
		"Errors":  errs,
		"Roles":   roles,
	})
}

func (h *UsersHandler) EditPage(ctx *gin.Context) {
	profile, ok := h.loadUser(ctx)
	if !ok {
		return
	}

	form := UserEditForm{
		Email:     profile.Email,
		Username:  profile.Username,
		Confirmed: profile.Confirmed,
	}
	if profile.RoleID != nil {
		form.RoleID = *profile.RoleID
	}

	h.renderEdit(ctx, profile, form, nil)
}

func (h *UsersHandler) Edit(ctx *gin.Context) {
	profile, ok := h.loadUser(ctx)
	if !ok {
		return
	}

	var form UserEditForm
	if errs, ok := BindForm(ctx, &form); !ok {
		h.renderEdit(ctx, profile, form, errs)
		return
	}

	updated, err := h.editor.AdminUpdate(ctx.Request.Context(), profile, account.AdminEdit{
		Email:     form.Email,
		Username:  form.Username,
		Confirmed: form.Confirmed,
		RoleID:    form.RoleID,
	})

	switch {
	case err == nil:
		if viewer := middlewares.CurrentUser(ctx); viewer.ID == updated.ID {
			middlewares.SetCurrentUser(ctx, updated)
		}
		flashRedirect(ctx, "The profile has been updated.", "/user/"+updated.Username)
	case errors.Is(err, user.ErrEmailTaken):
		h.renderEdit(ctx, profile, form, map[string]string{"email": msgEmailTaken})
	case errors.Is(err, user.ErrUsernameTaken):
		h.renderEdit(ctx, profile, form, map[string]string{"username": msgUsernameTaken})
	case errors.Is(err, role.ErrNotFound):
		h.renderEdit(ctx, profile, form, map[string]string{"role_id": "unknown role"})
	default:
		RespondInternal(ctx, "users.admin_update_failed", err)
	}
}
