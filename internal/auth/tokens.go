package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose tags a token with the flow it was issued for.
type Purpose string

const (
	PurposeConfirm     Purpose = "confirm"
	PurposeReset       Purpose = "reset"
	PurposeChangeEmail Purpose = "change_email"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrPurposeInvalid = errors.New("invalid token purpose")
)

type TokenClaims struct {
	UserID   int64   `json:"uid"`
	Purpose  Purpose `json:"typ"`
	NewEmail string  `json:"new_email,omitempty"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (m *TokenManager) GenerateConfirmationToken(userID int64) (string, error) {
	return m.generate(TokenClaims{UserID: userID, Purpose: PurposeConfirm})
}

func (m *TokenManager) GenerateResetToken(userID int64) (string, error) {
	return m.generate(TokenClaims{UserID: userID, Purpose: PurposeReset})
}

func (m *TokenManager) GenerateEmailChangeToken(userID int64, newEmail string) (string, error) {
	return m.generate(TokenClaims{UserID: userID, Purpose: PurposeChangeEmail, NewEmail: newEmail})
}

func (m *TokenManager) generate(claims TokenClaims) (string, error) {
	now := time.Now().UTC()

	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks the signature, the payload shape and the purpose tag. The exp
// claim is written but not enforced here; see DESIGN.md.
func (m *TokenManager) Verify(tokenStr string, expected Purpose) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithoutClaimsValidation(), jwt.WithStrictDecoding())

	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	if claims.Purpose != expected {
		return nil, ErrPurposeInvalid
	}

	if expected == PurposeChangeEmail && claims.NewEmail == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
