package app

import (
	"context"
	"fmt"
	"time"

	"classquiz-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Authenticator checks flat credentials against the user table and issues
// short-lived JWTs for the teacher endpoints. No hardening beyond exact
// string match.
type Authenticator struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

func NewAuthenticator(users UserStore, secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		clock:  time.Now,
	}
}

// Login verifies the credentials and returns a signed token plus the user.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := a.users.AuthenticateUser(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	now := a.clock()
	claims := jwt.MapClaims{
		"sub":  user.Username,
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(a.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, user, nil
}

// Verify parses a token and returns the username and role claims.
func (a *Authenticator) Verify(token string) (username, role string, err error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", "", fmt.Errorf("invalid token claims")
	}
	username, _ = claims["sub"].(string)
	role, _ = claims["role"].(string)
	return username, role, nil
}
