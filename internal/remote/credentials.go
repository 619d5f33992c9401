package remote

import (
	"context"
	"os"
	"strings"

	"github.com/yndnr/sessbox-go/internal/core/domain"
)

// CredentialSource supplies the bearer token for remote calls.
// An empty token without error means "not signed in".
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token.
type StaticToken string

// Token implements CredentialSource.
func (t StaticToken) Token(context.Context) (string, error) {
	return strings.TrimSpace(string(t)), nil
}

// TokenFile reads the token from a file on every call, so a token
// rotated on disk is picked up without restarting.
type TokenFile string

// Token implements CredentialSource. A missing file means no token.
func (f TokenFile) Token(context.Context) (string, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", domain.ErrInternal.WithDetailsf("read token file %s", string(f)).WithCause(err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Chain returns the first non-empty token from sources.
type Chain []CredentialSource

// Token implements CredentialSource.
func (c Chain) Token(ctx context.Context) (string, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		tok, err := src.Token(ctx)
		if err != nil {
			return "", err
		}
		if tok != "" {
			return tok, nil
		}
	}
	return "", nil
}
