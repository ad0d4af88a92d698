package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alumni-connect/apiserver/types"
	"github.com/sirupsen/logrus"
)

const (
	StageResolve   = "resolve"
	StageAuthorize = "authorize"

	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
)

// Observer records auth outcomes, typically as metrics.
type Observer interface {
	ObserveAuth(stage, outcome, reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveAuth(string, string, string) {}

// Guard builds the HTTP middleware that protects routes.
type Guard struct {
	resolver *Resolver
	log      logrus.FieldLogger
	observer Observer
}

// NewGuard returns a Guard. A nil observer discards outcomes.
func NewGuard(resolver *Resolver, log logrus.FieldLogger, observer Observer) *Guard {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Guard{resolver: resolver, log: log, observer: observer}
}

// RequireIdentity rejects requests without a valid bearer token for an
// active account, and attaches the Identity to the request context otherwise.
func (g *Guard) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.resolver.Resolve(r.Context(), bearerToken(r))
		if err != nil {
			g.deny(w, r, StageResolve, err)
			return
		}
		g.observer.ObserveAuth(StageResolve, OutcomeAllowed, "")
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireRoles only lets through identities whose role is in roles. It must
// run after RequireIdentity. Passing no roles is a programming error.
func (g *Guard) RequireRoles(roles ...types.Role) func(http.Handler) http.Handler {
	if len(roles) == 0 {
		panic("auth: RequireRoles needs at least one role")
	}
	allowed := Roles(roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := Authorize(r.Context(), allowed); err != nil {
				g.deny(w, r, StageAuthorize, err)
				return
			}
			g.observer.ObserveAuth(StageAuthorize, OutcomeAllowed, "")
			next.ServeHTTP(w, r)
		})
	}
}

// Roles composes RequireIdentity and RequireRoles for use with chi's With.
func (g *Guard) Roles(roles ...types.Role) func(http.Handler) http.Handler {
	gate := g.RequireRoles(roles...)
	return func(next http.Handler) http.Handler {
		return g.RequireIdentity(gate(next))
	}
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request, stage string, err error) {
	reason := ReasonOf(err)
	g.observer.ObserveAuth(stage, OutcomeDenied, reason)

	entry := g.log.WithFields(logrus.Fields{
		"stage":  stage,
		"reason": reason,
		"method": r.Method,
		"path":   r.URL.Path,
	})
	var f *Failure
	if errors.As(err, &f) && f.Cause() != nil && reason == "lookup_failed" {
		entry = entry.WithError(f.Cause())
	}
	entry.Warn("request denied")

	if errors.Is(err, ErrForbidden) {
		writeDenied(w, http.StatusForbidden, ErrForbidden.Error())
		return
	}
	writeDenied(w, http.StatusUnauthorized, ErrUnauthenticated.Error())
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeDenied(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
