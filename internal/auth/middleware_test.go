package auth

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alumni-connect/apiserver/types"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) ObserveAuth(stage, outcome, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, stage+":"+outcome+":"+reason)
}

type guardFixture struct {
	guard    *Guard
	tokens   *TokenService
	lookup   *fakeLookup
	observer *recordingObserver
	logs     *test.Hook
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	student := alumnusRecord(10)
	student.Role = types.RoleStudent
	mentor := alumnusRecord(11)
	mentor.Role = types.RoleMentor
	lookup := newFakeLookup(alumnusRecord(1), student, mentor)

	resolver, tokens := newTestResolver(t, lookup)
	logger, hook := test.NewNullLogger()
	observer := &recordingObserver{}
	return &guardFixture{
		guard:    NewGuard(resolver, logger, observer),
		tokens:   tokens,
		lookup:   lookup,
		observer: observer,
		logs:     hook,
	}
}

func (f *guardFixture) do(t *testing.T, h http.Handler, id int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if id > 0 {
		token, err := f.tokens.Issue(id)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func echoIdentity(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-Identity-Role", string(id.Role))
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireIdentity(t *testing.T) {
	f := newGuardFixture(t)
	h := f.guard.RequireIdentity(echoIdentity(t))

	rec := f.do(t, h, 1)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alumni", rec.Header().Get("X-Identity-Role"))

	rec = f.do(t, h, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestRequireIdentityMalformedHeader(t *testing.T) {
	f := newGuardFixture(t)
	h := f.guard.RequireIdentity(echoIdentity(t))

	for _, header := range []string{"Bearer", "Basic abc", "Token x.y.z", "Bearer    "} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestGuardRoles(t *testing.T) {
	f := newGuardFixture(t)
	h := f.guard.Roles(types.RoleAlumni, types.RoleMentor)(echoIdentity(t))

	assert.Equal(t, http.StatusOK, f.do(t, h, 1).Code)
	assert.Equal(t, http.StatusOK, f.do(t, h, 11).Code)

	rec := f.do(t, h, 10)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, f.do(t, h, 0).Code)
}

func TestRequireRolesWithoutIdentity(t *testing.T) {
	f := newGuardFixture(t)
	h := f.guard.RequireRoles(types.RoleStudent)(echoIdentity(t))

	rec := f.do(t, h, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRolesPanicsWithoutRoles(t *testing.T) {
	f := newGuardFixture(t)
	assert.Panics(t, func() { f.guard.RequireRoles() })
}

func TestGuardDeniesDeactivatedAccount(t *testing.T) {
	f := newGuardFixture(t)
	h := f.guard.RequireIdentity(echoIdentity(t))

	token, err := f.tokens.Issue(1)
	require.NoError(t, err)
	f.lookup.deactivate(1)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardLogsAndObservesReason(t *testing.T) {
	f := newGuardFixture(t)
	h := f.guard.Roles(types.RoleAlumni)(echoIdentity(t))

	f.do(t, h, 10)

	entry := f.logs.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "role_not_allowed", entry.Data["reason"])
	assert.Equal(t, []string{
		"resolve:allowed:",
		"authorize:denied:role_not_allowed",
	}, f.observer.events)
}

func TestAuthorize(t *testing.T) {
	ctx := WithIdentity(httptest.NewRequest(http.MethodGet, "/", nil).Context(), Identity{ID: 1, Role: types.RoleStudent})

	assert.NoError(t, Authorize(ctx, Roles(types.RoleStudent)))
	assert.ErrorIs(t, Authorize(ctx, Roles(types.RoleAlumni, types.RoleMentor)), ErrForbidden)
	assert.ErrorIs(t, Authorize(ctx, Roles()), ErrForbidden)

	empty := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	assert.ErrorIs(t, Authorize(empty, Roles(types.RoleStudent)), ErrUnauthenticated)
}
