package category

import "errors"

var ErrNotFound = errors.New("category not found")

type Category struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

// Seed lists the categories written by the setup command. The first one is
// the default for items submitted without a category.
func Seed() []Category {
	return []Category{
		{Name: "General", Default: true},
		{Name: "Books"},
		{Name: "Clothing"},
		{Name: "Electronics"},
		{Name: "Games"},
		{Name: "Home"},
		{Name: "Experiences"},
	}
}
