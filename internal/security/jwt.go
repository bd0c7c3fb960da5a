package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload carried by the bearer token issued at
// login and OAuth sign-in.
type SessionClaims struct {
	UID    string `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	jwt.RegisteredClaims
}

func MakeSession(secret, uid, email, name, avatar string, ttl time.Duration) (string, error) {
	c := SessionClaims{
		UID: uid, Email: email, Name: name, Avatar: avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			Subject:   uid,
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString([]byte(secret))
}

func ParseSession(secret, token string) (*SessionClaims, error) {
	t, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*SessionClaims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// ResetClaims backs the emailed password-reset link. Signed with a
// secret separate from sessions so one cannot stand in for the other.
type ResetClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func MakeResetToken(secret, email string, ttl time.Duration) (string, error) {
	c := ResetClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString([]byte(secret))
}

func ParseResetToken(secret, token string) (*ResetClaims, error) {
	t, err := jwt.ParseWithClaims(token, &ResetClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*ResetClaims)
	if !ok || !t.Valid || c.Email == "" {
		return nil, errors.New("invalid token")
	}
	return c, nil
}
