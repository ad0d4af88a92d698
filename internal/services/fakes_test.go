package services

import (
	"context"
	"strings"
	"sync"

	"github.com/alumni-connect/apiserver/internal/mq"
	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
)

// memUsers is an in-memory user table with a case-insensitive email index.
type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]types.User
	images map[int64]string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]types.User{}, images: map[int64]string{}}
}

func (m *memUsers) add(user types.User) types.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	user.ID = m.nextID
	if !user.IsActive {
		user.IsActive = true
	}
	m.byID[user.ID] = user
	return user
}

func (m *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	for _, existing := range m.byID {
		if strings.EqualFold(existing.Email, user.Email) {
			m.mu.Unlock()
			return types.User{}, store.ErrConflict
		}
	}
	m.mu.Unlock()
	return m.add(user), nil
}

func (m *memUsers) GetCredentialsByEmail(_ context.Context, email string) (types.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return types.Credentials{ID: u.ID, PasswordHash: u.PasswordHash, IsActive: u.IsActive}, nil
		}
	}
	return types.Credentials{}, store.ErrNotFound
}

func (m *memUsers) GetPasswordHash(_ context.Context, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return "", store.ErrNotFound
	}
	return u.PasswordHash, nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetActiveByID(ctx context.Context, id int64) (types.User, error) {
	u, err := m.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if !u.IsActive {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) LookupIdentity(ctx context.Context, id int64) (types.IdentityRecord, error) {
	u, err := m.GetByID(ctx, id)
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

func (m *memUsers) UpdatePassword(_ context.Context, id int64, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = digest
	m.byID[id] = u
	return nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id int64, update types.ProfileUpdate) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if update.FirstName != nil {
		u.FirstName = *update.FirstName
	}
	if update.Bio != nil {
		u.Bio = *update.Bio
	}
	if update.Skills != nil {
		u.Skills = *update.Skills
	}
	m.byID[id] = u
	return u, nil
}

func (m *memUsers) SetProfileImage(_ context.Context, id int64, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.ProfileImage = key
	m.byID[id] = u
	return nil
}

func (m *memUsers) SetActive(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IsActive = active
	m.byID[id] = u
	return nil
}

func (m *memUsers) ListDirectory(_ context.Context, roles []types.Role, _ string, _, _ int) ([]types.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.User
	for _, u := range m.byID {
		for _, role := range roles {
			if u.Role == role && u.IsActive {
				out = append(out, u)
			}
		}
	}
	return out, len(out), nil
}

func (m *memUsers) Stats(_ context.Context, _ int64, role types.Role) (types.ProfileStats, error) {
	n := 2
	if role == types.RoleStudent {
		return types.ProfileStats{ApplicationsSubmitted: &n}, nil
	}
	return types.ProfileStats{OpportunitiesPosted: &n}, nil
}

func (m *memUsers) deactivate(id int64) {
	_ = m.SetActive(context.Background(), id, false)
}

// recordingEvents captures published events.
type recordingEvents struct {
	mu     sync.Mutex
	events []mq.Event
}

func (r *recordingEvents) Publish(_ context.Context, event mq.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEvents) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recordingEvents) last() mq.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return mq.Event{}
	}
	return r.events[len(r.events)-1]
}
