package types

import "time"

// MentorshipProgram is a structured mentorship offer run by an alumnus or mentor.
type MentorshipProgram struct {
	ID             int64     `json:"id" db:"id"`
	MentorID       int64     `json:"mentor_id" db:"mentor_id"`
	Mentor         Poster    `json:"mentor"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description" db:"description"`
	ExpertiseAreas []string  `json:"expertise_areas" db:"expertise_areas"`
	MaxMentees     int       `json:"max_mentees" db:"max_mentees"`
	DurationWeeks  int       `json:"duration_weeks" db:"duration_weeks"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CurrentMentees int       `json:"current_mentees"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// MentorSummary is a directory entry for someone who can be asked for mentorship.
type MentorSummary struct {
	ID              int64    `json:"id"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	CurrentPosition string   `json:"current_position"`
	CurrentCompany  string   `json:"current_company"`
	Location        string   `json:"location"`
	Bio             string   `json:"bio"`
	Skills          []string `json:"skills"`
	ProgramCount    int      `json:"program_count"`
	SessionCount    int      `json:"session_count"`
}

// SessionType is the kind of help a mentee asks for.
type SessionType string

const (
	SessionResumeReview     SessionType = "resume_review"
	SessionInterviewPrep    SessionType = "interview_prep"
	SessionCareerGuidance   SessionType = "career_guidance"
	SessionSkillDevelopment SessionType = "skill_development"
	SessionNetworking       SessionType = "networking"
)

func (t SessionType) Valid() bool {
	switch t {
	case SessionResumeReview, SessionInterviewPrep, SessionCareerGuidance,
		SessionSkillDevelopment, SessionNetworking:
		return true
	default:
		return false
	}
}

// SessionStatus is the lifecycle state of a mentorship session.
type SessionStatus string

const (
	SessionRequested SessionStatus = "requested"
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionRequested, SessionScheduled, SessionCompleted, SessionCancelled:
		return true
	default:
		return false
	}
}

// MentorOnly reports whether only the mentor may move a session into s.
func (s SessionStatus) MentorOnly() bool {
	return s == SessionScheduled || s == SessionCancelled
}

// MentorshipSession is a single mentoring request between a mentee and a mentor.
type MentorshipSession struct {
	ID              int64         `json:"id" db:"id"`
	ProgramID       *int64        `json:"program_id,omitempty" db:"program_id"`
	MentorID        int64         `json:"mentor_id" db:"mentor_id"`
	MenteeID        int64         `json:"mentee_id" db:"mentee_id"`
	Title           string        `json:"title" db:"title"`
	Description     string        `json:"description" db:"description"`
	SessionType     SessionType   `json:"session_type" db:"session_type"`
	ScheduledDate   *time.Time    `json:"scheduled_date,omitempty" db:"scheduled_date"`
	DurationMinutes int           `json:"duration_minutes" db:"duration_minutes"`
	MeetingLink     string        `json:"meeting_link" db:"meeting_link"`
	Notes           string        `json:"notes" db:"notes"`
	Status          SessionStatus `json:"status" db:"status"`
	FeedbackRating  *int          `json:"feedback_rating,omitempty" db:"feedback_rating"`
	FeedbackComment string        `json:"feedback_comment,omitempty" db:"feedback_comment"`
	Mentor          Poster        `json:"mentor"`
	Mentee          Poster        `json:"mentee"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// IsParticipant reports whether userID is the mentor or the mentee.
func (s MentorshipSession) IsParticipant(userID int64) bool {
	return s.MentorID == userID || s.MenteeID == userID
}

type SessionUpdate struct {
	Status          *SessionStatus `json:"status"`
	ScheduledDate   *time.Time     `json:"scheduled_date"`
	DurationMinutes *int           `json:"duration_minutes"`
	MeetingLink     *string        `json:"meeting_link"`
	Notes           *string        `json:"notes"`
}

func (u SessionUpdate) Empty() bool {
	return u.Status == nil && u.ScheduledDate == nil && u.DurationMinutes == nil &&
		u.MeetingLink == nil && u.Notes == nil
}
