package item

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("item not found")

type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Link        string    `json:"link,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ListID      int64     `json:"listId"`
	CategoryID  *int64    `json:"categoryId,omitempty"`
}

type CreateItemRequest struct {
	Name        string `form:"name" binding:"required,max=128"`
	Link        string `form:"link" binding:"omitempty,url,max=512"`
	Description string `form:"description" binding:"omitempty,max=2000"`
	CategoryID  int64  `form:"category_id" binding:"omitempty,min=1"`
	ListID      int64  `form:"-"`
}

func NewFromCreateRequest(req CreateItemRequest) Item {
	it := Item{
		Name:        req.Name,
		Link:        req.Link,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
		ListID:      req.ListID,
	}

	if req.CategoryID > 0 {
		id := req.CategoryID
		it.CategoryID = &id
	}

	return it
}
