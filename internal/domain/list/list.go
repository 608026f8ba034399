package list

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("list not found")

type List struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"createdAt"`
	AuthorID       int64     `json:"authorId"`
	AuthorUsername string    `json:"authorUsername,omitempty"` // filled by joins
}

type CreateListRequest struct {
	Title    string `form:"title" binding:"required,max=128"`
	AuthorID int64  `form:"-"`
}

func (l List) OwnedBy(userID int64) bool {
	return l.AuthorID == userID
}
