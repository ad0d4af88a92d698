package auth

import (
	"context"
	"errors"
	"time"

	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
)

const defaultLookupTimeout = 3 * time.Second

// TokenVerifier maps a bearer token to an identity id.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// IdentityLookup loads the narrow identity row for an id.
type IdentityLookup interface {
	LookupIdentity(ctx context.Context, id int64) (types.IdentityRecord, error)
}

// Resolver turns a bearer token into a live Identity.
type Resolver struct {
	tokens  TokenVerifier
	lookup  IdentityLookup
	timeout time.Duration
}

func NewResolver(tokens TokenVerifier, lookup IdentityLookup, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &Resolver{tokens: tokens, lookup: lookup, timeout: timeout}
}

// Resolve verifies token and loads the identity it names. The account must
// still exist and be active at the time of the call. Every failure unwraps
// to ErrUnauthenticated.
func (r *Resolver) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, fail(ErrUnauthenticated, "token_missing", nil)
	}
	id, err := r.tokens.Verify(token)
	if err != nil {
		return Identity{}, fail(ErrUnauthenticated, "token_invalid", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec, err := r.lookup.LookupIdentity(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Identity{}, fail(ErrUnauthenticated, "identity_not_found", nil)
		}
		return Identity{}, fail(ErrUnauthenticated, "lookup_failed", err)
	}
	if !rec.IsActive {
		return Identity{}, fail(ErrUnauthenticated, "identity_inactive", nil)
	}
	return identityFromRecord(rec), nil
}
