package comment

import "testing"

func TestDeletableBy(t *testing.T) {
	c := Comment{ID: 1, AuthorID: 7}

	tests := []struct {
		name    string
		userID  int64
		isAdmin bool
		want    bool
	}{
		{"author", 7, false, true},
		{"other user", 8, false, false},
		{"admin", 8, true, true},
		{"anonymous", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.DeletableBy(tt.userID, tt.isAdmin); got != tt.want {
				t.Fatalf("DeletableBy(%d, %v) = %v, want %v", tt.userID, tt.isAdmin, got, tt.want)
			}
		})
	}
}
