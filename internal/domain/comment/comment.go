package comment

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("comment not found")

type Comment struct {
	ID             int64     `json:"id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"createdAt"`
	ItemID         int64     `json:"itemId"`
	AuthorID       int64     `json:"authorId"`
	AuthorUsername string    `json:"authorUsername,omitempty"`
}

type CreateCommentRequest struct {
	Body     string `form:"body" binding:"required,max=1000"`
	ItemID   int64  `form:"-"`
	AuthorID int64  `form:"-"`
}

// DeletableBy holds for the comment author and for administrators.
func (c Comment) DeletableBy(userID int64, isAdmin bool) bool {
	return isAdmin || (userID != 0 && c.AuthorID == userID)
}
