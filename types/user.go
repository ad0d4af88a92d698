package types

import (
	"strings"
	"time"
)

// Role is the closed set of account roles in the alumni network.
type Role string

const (
	RoleStudent Role = "student"
	RoleAlumni  Role = "alumni"
	RoleMentor  Role = "mentor"
)

// ParseRole converts user input into a Role. Only the three known roles are accepted.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAlumni, RoleMentor:
		return true
	default:
		return false
	}
}

// User represents an account in the system.
// It contains identity, role, profile and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// Email is the user's login key, stored lower-cased.
	Email string `json:"email" db:"email"`

	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`

	// Role fixes what the user may post or request. It does not change
	// after registration.
	Role Role `json:"role" db:"role"`

	// PasswordHash stores the bcrypt digest of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	GraduationYear  *int     `json:"graduation_year,omitempty" db:"graduation_year"`
	Degree          string   `json:"degree" db:"degree"`
	Major           string   `json:"major" db:"major"`
	CurrentCompany  string   `json:"current_company" db:"current_company"`
	CurrentPosition string   `json:"current_position" db:"current_position"`
	Location        string   `json:"location" db:"location"`
	Bio             string   `json:"bio" db:"bio"`
	Skills          []string `json:"skills" db:"skills"`
	LinkedInURL     string   `json:"linkedin_url" db:"linkedin_url"`
	GithubURL       string   `json:"github_url" db:"github_url"`
	PortfolioURL    string   `json:"portfolio_url" db:"portfolio_url"`

	// ProfileImage is the object storage key of the uploaded avatar.
	ProfileImage string `json:"profile_image" db:"profile_image"`

	IsVerified bool `json:"is_verified" db:"is_verified"`

	// IsActive is false for deactivated accounts. Deactivated accounts
	// cannot log in and their tokens stop resolving.
	IsActive bool `json:"-" db:"is_active"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IdentityRecord is the narrow, digest-free row read on every
// authenticated request.
type IdentityRecord struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	Role      Role
	IsActive  bool
}

// Credentials is the row read at login time only.
type Credentials struct {
	ID           int64
	PasswordHash string
	IsActive     bool
}

// ProfileUpdate carries a partial profile change. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName       *string   `json:"first_name"`
	LastName        *string   `json:"last_name"`
	GraduationYear  *int      `json:"graduation_year"`
	Degree          *string   `json:"degree"`
	Major           *string   `json:"major"`
	CurrentCompany  *string   `json:"current_company"`
	CurrentPosition *string   `json:"current_position"`
	Location        *string   `json:"location"`
	Bio             *string   `json:"bio"`
	Skills          *[]string `json:"skills"`
	LinkedInURL     *string   `json:"linkedin_url"`
	GithubURL       *string   `json:"github_url"`
	PortfolioURL    *string   `json:"portfolio_url"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.GraduationYear == nil &&
		u.Degree == nil && u.Major == nil && u.CurrentCompany == nil &&
		u.CurrentPosition == nil && u.Location == nil && u.Bio == nil &&
		u.Skills == nil && u.LinkedInURL == nil && u.GithubURL == nil &&
		u.PortfolioURL == nil
}

// ProfileStats are the role-specific counters shown on a user's own profile.
type ProfileStats struct {
	OpportunitiesPosted   *int `json:"opportunities_posted,omitempty"`
	ScholarshipsPosted    *int `json:"scholarships_posted,omitempty"`
	MentorshipPrograms    *int `json:"mentorship_programs,omitempty"`
	ApplicationsSubmitted *int `json:"applications_submitted,omitempty"`
	MentorshipSessions    *int `json:"mentorship_sessions,omitempty"`
}

// Profile is a user plus their stats.
type Profile struct {
	User
	Stats ProfileStats `json:"stats"`
}
