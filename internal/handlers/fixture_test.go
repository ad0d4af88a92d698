package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alumni-connect/apiserver/internal/auth"
	"github.com/alumni-connect/apiserver/internal/services"
	"github.com/alumni-connect/apiserver/internal/storage"
	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]types.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]types.User{}}
}

func (f *fakeUsers) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, store.ErrConflict
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.IsActive = true
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUsers) GetCredentialsByEmail(_ context.Context, email string) (types.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return types.Credentials{ID: u.ID, PasswordHash: u.PasswordHash, IsActive: u.IsActive}, nil
		}
	}
	return types.Credentials{}, store.ErrNotFound
}

func (f *fakeUsers) GetPasswordHash(_ context.Context, id int64) (string, error) {
	u, err := f.get(id, false)
	return u.PasswordHash, err
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (types.User, error) {
	return f.get(id, false)
}

func (f *fakeUsers) GetActiveByID(_ context.Context, id int64) (types.User, error) {
	return f.get(id, true)
}

func (f *fakeUsers) LookupIdentity(_ context.Context, id int64) (types.IdentityRecord, error) {
	u, err := f.get(id, false)
	if err != nil {
		return types.IdentityRecord{}, err
	}
	return types.IdentityRecord{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		IsActive:  u.IsActive,
	}, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, digest string) error {
	return f.mutate(id, func(u *types.User) { u.PasswordHash = digest })
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id int64, update types.ProfileUpdate) (types.User, error) {
	err := f.mutate(id, func(u *types.User) {
		if update.Bio != nil {
			u.Bio = *update.Bio
		}
		if update.FirstName != nil {
			u.FirstName = *update.FirstName
		}
	})
	if err != nil {
		return types.User{}, err
	}
	return f.get(id, false)
}

func (f *fakeUsers) SetProfileImage(_ context.Context, id int64, key string) error {
	return f.mutate(id, func(u *types.User) { u.ProfileImage = key })
}

func (f *fakeUsers) SetActive(_ context.Context, id int64, active bool) error {
	return f.mutate(id, func(u *types.User) { u.IsActive = active })
}

func (f *fakeUsers) ListDirectory(_ context.Context, roles []types.Role, _ string, _, _ int) ([]types.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.User
	for _, u := range f.byID {
		for _, role := range roles {
			if u.IsActive && u.Role == role {
				out = append(out, u)
			}
		}
	}
	return out, len(out), nil
}

func (f *fakeUsers) Stats(context.Context, int64, types.Role) (types.ProfileStats, error) {
	return types.ProfileStats{}, nil
}

func (f *fakeUsers) get(id int64, activeOnly bool) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || (activeOnly && !u.IsActive) {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) mutate(id int64, fn func(*types.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&u)
	f.byID[id] = u
	return nil
}

// fakeImages keeps uploaded avatars in memory under the same key layout as
// storage.Images.
type fakeImages struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeImages() *fakeImages {
	return &fakeImages{objects: map[string][]byte{}}
}

func (f *fakeImages) PutProfileImage(_ context.Context, userID int64, r io.Reader, _ int64, contentType string) (string, error) {
	var ext string
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	default:
		return "", storage.ErrUnsupportedImage
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("profile-images/%d%s", userID, ext)
	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()
	return key, nil
}

func (f *fakeImages) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeImages) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	delete(f.objects, key)
	f.mu.Unlock()
	return nil
}

type fakeOpportunities struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]types.Opportunity
}

func newFakeOpportunities() *fakeOpportunities {
	return &fakeOpportunities{byID: map[int64]types.Opportunity{}}
}

func (f *fakeOpportunities) List(_ context.Context, filter types.PostingFilter) ([]types.Opportunity, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Opportunity
	for id := int64(1); id <= f.nextID; id++ {
		if opp, ok := f.byID[id]; ok && opp.IsActive {
			out = append(out, opp)
		}
	}
	total := len(out)
	if filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else {
		out = nil
	}
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (f *fakeOpportunities) ListByPoster(_ context.Context, userID int64) ([]types.Opportunity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Opportunity
	for _, opp := range f.byID {
		if opp.PostedBy == userID {
			out = append(out, opp)
		}
	}
	return out, nil
}

func (f *fakeOpportunities) Get(_ context.Context, id int64) (types.Opportunity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opp, ok := f.byID[id]
	if !ok {
		return types.Opportunity{}, store.ErrNotFound
	}
	return opp, nil
}

func (f *fakeOpportunities) Create(_ context.Context, opp types.Opportunity) (types.Opportunity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	opp.ID = f.nextID
	f.byID[opp.ID] = opp
	return opp, nil
}

func (f *fakeOpportunities) Update(_ context.Context, id int64, update types.OpportunityUpdate) (types.Opportunity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opp, ok := f.byID[id]
	if !ok {
		return types.Opportunity{}, store.ErrNotFound
	}
	if update.Title != nil {
		opp.Title = *update.Title
	}
	f.byID[id] = opp
	return opp, nil
}

func (f *fakeOpportunities) Deactivate(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	opp, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	opp.IsActive = false
	f.byID[id] = opp
	return nil
}

type apiFixture struct {
	users         *fakeUsers
	images        *fakeImages
	opportunities *fakeOpportunities
	logs          *test.Hook
	router        *chi.Mux
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	log, hook := test.NewNullLogger()
	tokens, err := auth.NewTokenService("handler-test-secret", time.Hour)
	require.NoError(t, err)
	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	f := &apiFixture{
		users:         newFakeUsers(),
		images:        newFakeImages(),
		opportunities: newFakeOpportunities(),
		logs:          hook,
		router:        chi.NewRouter(),
	}
	guard := auth.NewGuard(auth.NewResolver(tokens, f.users, time.Second), log, nil)

	authService := services.NewAuthService(f.users, hasher, tokens, nil, nil, log)
	profileService := services.NewProfileService(f.users, f.images, log)
	opportunityService := services.NewOpportunityService(f.opportunities)

	f.router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, authService, guard, log)
	})
	f.router.Route("/users", func(r chi.Router) {
		UserRouter(r, profileService, guard, log)
	})
	f.router.Route("/opportunities", func(r chi.Router) {
		OpportunityRouter(r, opportunityService, guard, log)
	})
	return f
}

type authBody struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// register creates an account through the API and returns its token.
func (f *apiFixture) register(t *testing.T, email string, role types.Role) authBody {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email":      email,
		"password":   "correct horse",
		"first_name": "Grace",
		"last_name":  "Hopper",
		"role":       string(role),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body authBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (f *apiFixture) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
