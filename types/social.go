package types

import "time"

// Message is a direct message between two users.
type Message struct {
	ID          int64     `json:"id" db:"id"`
	SenderID    int64     `json:"sender_id" db:"sender_id"`
	RecipientID int64     `json:"recipient_id" db:"recipient_id"`
	Subject     string    `json:"subject" db:"subject"`
	Content     string    `json:"content" db:"content"`
	IsRead      bool      `json:"is_read" db:"is_read"`
	SentAt      time.Time `json:"sent_at" db:"sent_at"`
	Sender      Poster    `json:"sender"`
	Recipient   Poster    `json:"recipient"`
}

// Conversation summarises the thread between the viewer and one other user.
type Conversation struct {
	User          Poster    `json:"user"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_time"`
	UnreadCount   int       `json:"unread_count"`
}

// ConnectionStatus is the state of a peer connection request.
type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionDeclined ConnectionStatus = "declined"
)

// Connection links two users once the recipient accepts the request.
type Connection struct {
	ID          int64            `json:"id" db:"id"`
	RequesterID int64            `json:"requester_id" db:"requester_id"`
	RecipientID int64            `json:"recipient_id" db:"recipient_id"`
	Message     string           `json:"message" db:"message"`
	Status      ConnectionStatus `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`

	// User and Direction describe the other side as seen by the viewer.
	User      *Poster `json:"user,omitempty"`
	Direction string  `json:"direction,omitempty"`
}

// ConnectionFilter selects which side of a connection the viewer is on.
// Direction is one of "sent", "received" or "" for both.
type ConnectionFilter struct {
	Status    ConnectionStatus
	Direction string
}

// ConnectionStats counts the viewer's connections and open requests.
type ConnectionStats struct {
	TotalConnections int `json:"total_connections"`
	PendingRequests  int `json:"pending_requests"`
	SentRequests     int `json:"sent_requests"`
}

// Suggestion is a user the viewer is neither connected to nor waiting on.
type Suggestion struct {
	Poster
	CurrentCompany string `json:"current_company"`
	Major          string `json:"major"`
	GraduationYear *int   `json:"graduation_year,omitempty"`
	Role           Role   `json:"role"`
}

// Peer returns the other side of the connection from userID's point of view.
func (c Connection) Peer(userID int64) int64 {
	if c.RequesterID == userID {
		return c.RecipientID
	}
	return c.RequesterID
}

// Involves reports whether userID is one side of the connection.
func (c Connection) Involves(userID int64) bool {
	return c.RequesterID == userID || c.RecipientID == userID
}

// StoryCategory classifies success stories.
type StoryCategory string

const (
	StoryJobPlacement     StoryCategory = "job_placement"
	StoryScholarship      StoryCategory = "scholarship"
	StoryCareerChange     StoryCategory = "career_change"
	StorySkillDevelopment StoryCategory = "skill_development"
	StoryNetworking       StoryCategory = "networking"
)

func (c StoryCategory) Valid() bool {
	switch c {
	case StoryJobPlacement, StoryScholarship, StoryCareerChange,
		StorySkillDevelopment, StoryNetworking:
		return true
	default:
		return false
	}
}

// StoryCategories lists every category in display order.
func StoryCategories() []StoryCategory {
	return []StoryCategory{
		StoryJobPlacement,
		StoryScholarship,
		StoryCareerChange,
		StorySkillDevelopment,
		StoryNetworking,
	}
}

// Story is a published success story.
type Story struct {
	ID          int64         `json:"id" db:"id"`
	AuthorID    int64         `json:"author_id" db:"author_id"`
	Author      Poster        `json:"author"`
	Title       string        `json:"title" db:"title"`
	Content     string        `json:"content" db:"content"`
	Category    StoryCategory `json:"category" db:"category"`
	Tags        []string      `json:"tags" db:"tags"`
	IsPublished bool          `json:"is_published" db:"is_published"`
	IsFeatured  bool          `json:"is_featured" db:"is_featured"`
	LikesCount  int           `json:"likes_count" db:"likes_count"`
	ViewsCount  int           `json:"views_count" db:"views_count"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

type StoryUpdate struct {
	Title       *string        `json:"title"`
	Content     *string        `json:"content"`
	Category    *StoryCategory `json:"category"`
	Tags        *[]string      `json:"tags"`
	IsPublished *bool          `json:"is_published"`
}

// Webinar is a scheduled online session hosted by an alumnus or mentor.
type Webinar struct {
	ID                   int64     `json:"id" db:"id"`
	HostID               int64     `json:"host_id" db:"host_id"`
	Host                 Poster    `json:"host"`
	Title                string    `json:"title" db:"title"`
	Description          string    `json:"description" db:"description"`
	ScheduledDate        time.Time `json:"scheduled_date" db:"scheduled_date"`
	DurationMinutes      int       `json:"duration_minutes" db:"duration_minutes"`
	MaxParticipants      int       `json:"max_participants" db:"max_participants"`
	MeetingLink          string    `json:"meeting_link,omitempty" db:"meeting_link"`
	RegistrationRequired bool      `json:"registration_required" db:"registration_required"`
	RegisteredCount      int       `json:"registered_count"`
	IsActive             bool      `json:"is_active" db:"is_active"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}
