package types

import "time"

// ApplicationType says whether an application targets an opportunity or a scholarship.
type ApplicationType string

const (
	ApplicationOpportunity ApplicationType = "opportunity"
	ApplicationScholarship ApplicationType = "scholarship"
)

func (t ApplicationType) Valid() bool {
	return t == ApplicationOpportunity || t == ApplicationScholarship
}

// ApplicationStatus tracks the review progress of an application.
type ApplicationStatus string

const (
	ApplicationSubmitted   ApplicationStatus = "submitted"
	ApplicationUnderReview ApplicationStatus = "under_review"
	ApplicationShortlisted ApplicationStatus = "shortlisted"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationRejected    ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationSubmitted, ApplicationUnderReview, ApplicationShortlisted,
		ApplicationAccepted, ApplicationRejected:
		return true
	default:
		return false
	}
}

// Application is a student's application to a posting.
// Exactly one of OpportunityID and ScholarshipID is set, matching Type.
type Application struct {
	ID            int64             `json:"id" db:"id"`
	UserID        int64             `json:"user_id" db:"user_id"`
	Type          ApplicationType   `json:"application_type" db:"application_type"`
	OpportunityID *int64            `json:"opportunity_id,omitempty" db:"opportunity_id"`
	ScholarshipID *int64            `json:"scholarship_id,omitempty" db:"scholarship_id"`
	CoverLetter   string            `json:"cover_letter" db:"cover_letter"`
	ResumeURL     string            `json:"resume_url" db:"resume_url"`
	Status        ApplicationStatus `json:"status" db:"status"`

	// Posting fields are joined in on reads.
	PostingTitle string `json:"posting_title,omitempty"`
	Organization string `json:"organization,omitempty"`
	PostedBy     int64  `json:"-"`

	// Applicant is filled in for views by the posting owner.
	Applicant *Poster `json:"applicant,omitempty"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ApplicationFilter narrows application listings. Zero values match everything.
type ApplicationFilter struct {
	Type   ApplicationType
	Status ApplicationStatus
}

// ApplicationStats counts applications by status and by type. For students
// they cover their own applications, for posters the ones they received.
type ApplicationStats struct {
	TotalApplications       int `json:"total_applications"`
	Submitted               int `json:"submitted"`
	UnderReview             int `json:"under_review"`
	Shortlisted             int `json:"shortlisted"`
	Accepted                int `json:"accepted"`
	Rejected                int `json:"rejected"`
	OpportunityApplications int `json:"opportunity_applications"`
	ScholarshipApplications int `json:"scholarship_applications"`
}
