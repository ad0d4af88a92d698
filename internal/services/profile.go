package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alumni-connect/apiserver/internal/storage"
	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
	"github.com/sirupsen/logrus"
)

// ProfileStore defines persistence for profiles and the member directory.
type ProfileStore interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetActiveByID(ctx context.Context, id int64) (types.User, error)
	UpdateProfile(ctx context.Context, id int64, update types.ProfileUpdate) (types.User, error)
	SetProfileImage(ctx context.Context, id int64, key string) error
	SetActive(ctx context.Context, id int64, active bool) error
	ListDirectory(ctx context.Context, roles []types.Role, search string, offset, limit int) ([]types.User, int, error)
	Stats(ctx context.Context, id int64, role types.Role) (types.ProfileStats, error)
}

// ImageStore persists uploaded profile images.
type ImageStore interface {
	PutProfileImage(ctx context.Context, userID int64, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// Directory selects which part of the member directory to list.
type Directory string

const (
	DirectoryAlumni   Directory = "alumni"
	DirectoryStudents Directory = "students"
)

type ProfileService struct {
	users  ProfileStore
	images ImageStore
	log    logrus.FieldLogger
}

func NewProfileService(users ProfileStore, images ImageStore, log logrus.FieldLogger) *ProfileService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ProfileService{users: users, images: images, log: log}
}

// Profile returns the caller's own profile with role-specific stats.
func (s *ProfileService) Profile(ctx context.Context, id int64) (types.Profile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return types.Profile{}, err
	}
	stats, err := s.users.Stats(ctx, id, user.Role)
	if err != nil {
		return types.Profile{}, fmt.Errorf("load profile stats: %w", err)
	}
	return types.Profile{User: user, Stats: stats}, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, id int64, update types.ProfileUpdate) (types.User, error) {
	if update.Empty() {
		return types.User{}, invalid("no fields to update")
	}
	for name, value := range map[string]*string{"first_name": update.FirstName, "last_name": update.LastName} {
		if value == nil {
			continue
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			return types.User{}, invalid("%s cannot be empty", name)
		}
		*value = trimmed
	}
	if update.GraduationYear != nil && (*update.GraduationYear < 1900 || *update.GraduationYear > 2100) {
		return types.User{}, invalid("graduation_year is out of range")
	}
	return s.users.UpdateProfile(ctx, id, update)
}

// UploadImage stores a new avatar and points the profile at it. The previous
// object is removed on a best-effort basis.
func (s *ProfileService) UploadImage(ctx context.Context, id int64, r io.Reader, size int64, contentType string) (types.User, error) {
	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	key, err := s.images.PutProfileImage(ctx, id, r, size, contentType)
	if err != nil {
		return types.User{}, err
	}
	if err := s.users.SetProfileImage(ctx, id, key); err != nil {
		_ = s.images.Remove(ctx, key)
		return types.User{}, err
	}

	if current.ProfileImage != "" && current.ProfileImage != key {
		if err := s.images.Remove(ctx, current.ProfileImage); err != nil {
			s.log.WithError(err).WithField("key", current.ProfileImage).Warn("failed to remove previous profile image")
		}
	}
	current.ProfileImage = key
	return current, nil
}

// ProfileImage opens the avatar of an active user.
func (s *ProfileService) ProfileImage(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	user, err := s.users.GetActiveByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if user.ProfileImage == "" {
		return nil, "", store.ErrNotFound
	}
	rc, err := s.images.Open(ctx, user.ProfileImage)
	if err != nil {
		return nil, "", err
	}
	return rc, storage.ContentTypeFor(user.ProfileImage), nil
}

// Deactivate soft-deletes the caller's account. Outstanding tokens stop
// resolving on their next use.
func (s *ProfileService) Deactivate(ctx context.Context, id int64) error {
	return s.users.SetActive(ctx, id, false)
}

// PublicProfile returns an active member's profile.
func (s *ProfileService) PublicProfile(ctx context.Context, id int64) (types.User, error) {
	return s.users.GetActiveByID(ctx, id)
}

func (s *ProfileService) Directory(ctx context.Context, dir Directory, search string, offset, limit int) ([]types.User, int, error) {
	var roles []types.Role
	switch dir {
	case DirectoryAlumni:
		roles = []types.Role{types.RoleAlumni, types.RoleMentor}
	case DirectoryStudents:
		roles = []types.Role{types.RoleStudent}
	default:
		return nil, 0, invalid("unknown directory %q", dir)
	}
	return s.users.ListDirectory(ctx, roles, search, offset, clampLimit(limit))
}
