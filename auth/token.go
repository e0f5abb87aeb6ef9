package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/types"
	"github.com/hako/branca"
)

const DefaultTokenTTL = time.Hour * 24 * 14

var (
	ErrInvalidToken = errs.NewUnauthenticatedError("invalid token")
	ErrExpiredToken = errs.NewUnauthenticatedError("expired token")
)

// Tokens issues and verifies the bearer tokens of both account kinds.
// The token payload is the principal, "<kind>:<userID>".
type Tokens struct {
	Key string
	TTL time.Duration
}

func (t Tokens) codec() *branca.Branca {
	cdc := branca.NewBranca(t.Key)
	ttl := t.TTL
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	cdc.SetTTL(uint32(ttl.Seconds()))
	return cdc
}

func (t Tokens) Issue(p types.Principal) (string, error) {
	token, err := t.codec().EncodeToString(p.String())
	if err != nil {
		return "", fmt.Errorf("could not create token: %w", err)
	}

	return token, nil
}

// Verify decodes token into the principal it was issued for.
func (t Tokens) Verify(token string) (types.Principal, error) {
	payload, err := t.codec().DecodeToString(token)
	if err != nil {
		if errors.Is(err, branca.ErrInvalidToken) || errors.Is(err, branca.ErrInvalidTokenVersion) {
			return types.Principal{}, ErrInvalidToken
		}

		if _, ok := err.(*branca.ErrExpiredToken); ok {
			return types.Principal{}, ErrExpiredToken
		}

		// branca does not export the chacha20poly1305 error for a foreign key.
		if strings.HasSuffix(err.Error(), "authentication failed") {
			return types.Principal{}, ErrInvalidToken
		}

		return types.Principal{}, fmt.Errorf("could not decode token: %w", err)
	}

	p, err := types.ParsePrincipal(payload)
	if err != nil {
		return types.Principal{}, ErrInvalidToken
	}

	return p, nil
}
