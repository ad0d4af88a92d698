package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/alumni-connect/apiserver/internal/auth"
	"github.com/alumni-connect/apiserver/internal/mq"
	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
	"github.com/sirupsen/logrus"
)

const minPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// AccountStore defines the user persistence the auth flows need.
type AccountStore interface {
	GetCredentialsByEmail(ctx context.Context, email string) (types.Credentials, error)
	GetPasswordHash(ctx context.Context, id int64) (string, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	GetByID(ctx context.Context, id int64) (types.User, error)
	UpdatePassword(ctx context.Context, id int64, digest string) error
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type TokenIssuer interface {
	Issue(identityID int64) (string, error)
}

// AttemptLimiter throttles login attempts per key.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
	RetryAfter(ctx context.Context, key string) time.Duration
}

// AuthService implements registration, login and password changes.
type AuthService struct {
	users   AccountStore
	hasher  PasswordHasher
	tokens  TokenIssuer
	limiter AttemptLimiter
	events  EventPublisher
	log     logrus.FieldLogger

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(users AccountStore, hasher PasswordHasher, tokens TokenIssuer, limiter AttemptLimiter, events EventPublisher, log logrus.FieldLogger) *AuthService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		limiter: limiter,
		events:  events,
		log:     log,
	}
}

// RegisterInput is the sign-up payload. Profile fields are optional.
type RegisterInput struct {
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Role            string   `json:"role"`
	GraduationYear  *int     `json:"graduation_year"`
	Degree          string   `json:"degree"`
	Major           string   `json:"major"`
	CurrentCompany  string   `json:"current_company"`
	CurrentPosition string   `json:"current_position"`
	Location        string   `json:"location"`
	Bio             string   `json:"bio"`
	Skills          []string `json:"skills"`
	LinkedInURL     string   `json:"linkedin_url"`
	GithubURL       string   `json:"github_url"`
	PortfolioURL    string   `json:"portfolio_url"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)

	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"email", email},
		{"password", in.Password},
		{"first_name", firstName},
		{"last_name", lastName},
		{"role", strings.TrimSpace(in.Role)},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return AuthResult{}, invalid("missing required fields: %s", strings.Join(missing, ", "))
	}
	if !emailPattern.MatchString(email) {
		return AuthResult{}, invalid("invalid email format")
	}
	if err := validatePassword(in.Password); err != nil {
		return AuthResult{}, err
	}
	role, ok := types.ParseRole(in.Role)
	if !ok {
		return AuthResult{}, invalid("invalid role")
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return AuthResult{}, invalid("password is too long")
		}
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, types.User{
		Email:           email,
		PasswordHash:    digest,
		FirstName:       firstName,
		LastName:        lastName,
		Role:            role,
		GraduationYear:  in.GraduationYear,
		Degree:          strings.TrimSpace(in.Degree),
		Major:           strings.TrimSpace(in.Major),
		CurrentCompany:  strings.TrimSpace(in.CurrentCompany),
		CurrentPosition: strings.TrimSpace(in.CurrentPosition),
		Location:        strings.TrimSpace(in.Location),
		Bio:             in.Bio,
		Skills:          in.Skills,
		LinkedInURL:     strings.TrimSpace(in.LinkedInURL),
		GithubURL:       strings.TrimSpace(in.GithubURL),
		PortfolioURL:    strings.TrimSpace(in.PortfolioURL),
	})
	if err != nil {
		return AuthResult{}, err
	}
	if user.Skills == nil {
		user.Skills = []string{}
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	publish(s.events, ctx, mq.Event{
		Type:      mq.EventUserRegistered,
		ActorID:   user.ID,
		SubjectID: user.ID,
		Data:      map[string]string{"role": string(user.Role)},
	})
	return AuthResult{Token: token, User: user}, nil
}

// Login checks credentials. Unknown email, wrong password and deactivated
// account return the same ErrInvalidCredentials, and the unknown-email path
// still pays for a bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return AuthResult{}, invalid("email and password are required")
	}

	throttleKey := email + "|" + clientIP
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, throttleKey)
		if err != nil {
			s.log.WithError(err).Warn("login throttle unavailable")
		}
		if !allowed {
			return AuthResult{}, &ThrottleError{RetryAfter: s.limiter.RetryAfter(ctx, throttleKey)}
		}
	}

	creds, err := s.users.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.Verify(password, s.dummy())
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("load credentials: %w", err)
	}
	if !s.hasher.Verify(password, creds.PasswordHash) || !creds.IsActive {
		return AuthResult{}, ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, throttleKey); err != nil {
			s.log.WithError(err).Warn("login throttle reset failed")
		}
	}

	user, err := s.users.GetByID(ctx, creds.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{Token: token, User: user}, nil
}

// Me returns the full profile row of the authenticated identity.
func (s *AuthService) Me(ctx context.Context, id int64) (types.User, error) {
	return s.users.GetByID(ctx, id)
}

// ChangePassword replaces the digest after checking the current password.
func (s *AuthService) ChangePassword(ctx context.Context, id int64, current, next string) error {
	if current == "" || next == "" {
		return invalid("current_password and new_password are required")
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	digest, err := s.users.GetPasswordHash(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, digest) {
		return invalid("current password is incorrect")
	}

	replacement, err := s.hasher.Hash(next)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return invalid("password is too long")
		}
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, id, replacement)
}

// dummy returns a real digest of a throwaway value so unknown-email logins
// cost the same as wrong-password ones.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("alumni-connect-timing-placeholder")
		if err != nil {
			s.log.WithError(err).Error("failed to prepare placeholder digest")
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return invalid("password must be at least %d characters long", minPasswordLength)
	}
	return nil
}
