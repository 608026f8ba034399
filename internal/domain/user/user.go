package user

import (
	"errors"
	"time"

	"github.com/geocoder89/dibs/internal/domain/role"
	"github.com/geocoder89/dibs/internal/security"
)

var (
	ErrNotFound            = errors.New("user not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrUsernameTaken       = errors.New("username already in use")
	ErrEmptyPassword       = errors.New("password must not be empty")
	ErrPasswordNotReadable = errors.New("password is not a readable attribute")
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	Confirmed    bool       `json:"confirmed"`
	RoleID       *int64     `json:"roleId,omitempty"`
	Role         *role.Role `json:"role,omitempty"`
	MemberSince  time.Time  `json:"memberSince"`
	LastSeen     time.Time  `json:"lastSeen"`
}

// Password always fails: only the hash is kept.
func (u *User) Password() (string, error) {
	return "", ErrPasswordNotReadable
}

func (u *User) SetPassword(plain string) error {
	if plain == "" {
		return ErrEmptyPassword
	}

	hash, err := security.HashPassword(plain)
	if err != nil {
		return err
	}

	u.PasswordHash = hash
	return nil
}

func (u *User) VerifyPassword(plain string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return security.CheckPassword(u.PasswordHash, plain) == nil
}

// Can is false for a nil (anonymous) user and for users without a role.
func (u *User) Can(p role.Permission) bool {
	if u == nil || u.Role == nil {
		return false
	}
	return u.Role.HasPermission(p)
}

func (u *User) IsAdministrator() bool {
	return u.Can(role.PermAdmin)
}

func (u *User) IsAuthenticated() bool {
	return u != nil && u.ID != 0
}

// SetRole keeps RoleID and Role in step.
func (u *User) SetRole(r role.Role) {
	id := r.ID
	u.RoleID = &id
	u.Role = &r
}
