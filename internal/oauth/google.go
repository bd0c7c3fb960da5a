package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	ggoogle "golang.org/x/oauth2/google"
)

// Profile is the provider-agnostic result of a completed sign-in.
type Profile struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type GoogleOAuth struct {
	cfg *oauth2.Config
}

func NewGoogle(clientID, clientSecret, redirectURI string) *GoogleOAuth {
	return &GoogleOAuth{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     ggoogle.Endpoint,
		},
	}
}

func (g *GoogleOAuth) AuthURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeAndVerify trades the code for tokens and reads the identity
// out of the id_token. Claims are checked against iss/aud; signature
// verification is delegated to the fact the token arrived over the
// code-exchange channel.
func (g *GoogleOAuth) ExchangeAndVerify(ctx context.Context, code string) (*Profile, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("no id_token")
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(rawIDToken, claims); err != nil {
		return nil, fmt.Errorf("parse id_token: %w", err)
	}
	iss, _ := claims["iss"].(string)
	aud, _ := claims["aud"].(string)
	email, _ := claims["email"].(string)
	emailVerified, _ := claims["email_verified"].(bool)
	sub, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)

	if iss != "https://accounts.google.com" && iss != "accounts.google.com" {
		return nil, errors.New("bad iss")
	}
	if aud != g.cfg.ClientID {
		return nil, errors.New("bad aud")
	}
	if email == "" || sub == "" {
		return nil, errors.New("missing email/sub")
	}

	return &Profile{
		Sub: sub, Email: email, EmailVerified: emailVerified, Name: name, Picture: picture,
	}, nil
}
