package types

import "time"

// OpportunityType distinguishes full-time jobs from internships.
type OpportunityType string

const (
	OpportunityJob        OpportunityType = "job"
	OpportunityInternship OpportunityType = "internship"
)

func (t OpportunityType) Valid() bool {
	return t == OpportunityJob || t == OpportunityInternship
}

// Poster is the public summary of the user who created a posting.
type Poster struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	CurrentPosition string `json:"current_position"`
}

// Opportunity is a job or internship posted by an alumnus or mentor.
type Opportunity struct {
	ID                  int64           `json:"id" db:"id"`
	Title               string          `json:"title" db:"title"`
	Company             string          `json:"company" db:"company"`
	Type                OpportunityType `json:"type" db:"type"`
	Description         string          `json:"description" db:"description"`
	Requirements        string          `json:"requirements" db:"requirements"`
	Location            string          `json:"location" db:"location"`
	SalaryRange         string          `json:"salary_range" db:"salary_range"`
	ApplicationDeadline *time.Time      `json:"application_deadline,omitempty" db:"application_deadline"`
	PostedBy            int64           `json:"posted_by" db:"posted_by"`
	Poster              Poster          `json:"poster"`
	IsActive            bool            `json:"is_active" db:"is_active"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// OpportunityUpdate is a partial change to an opportunity owned by the caller.
type OpportunityUpdate struct {
	Title               *string
	Company             *string
	Type                *OpportunityType
	Description         *string
	Requirements        *string
	Location            *string
	SalaryRange         *string
	ApplicationDeadline *time.Time
}

// Scholarship is a funding offer posted by an alumnus or mentor.
type Scholarship struct {
	ID                  int64     `json:"id" db:"id"`
	Title               string    `json:"title" db:"title"`
	Organization        string    `json:"organization" db:"organization"`
	Amount              *float64  `json:"amount,omitempty" db:"amount"`
	Description         string    `json:"description" db:"description"`
	EligibilityCriteria string    `json:"eligibility_criteria" db:"eligibility_criteria"`
	ApplicationDeadline time.Time `json:"application_deadline" db:"application_deadline"`
	ApplicationURL      string    `json:"application_url" db:"application_url"`
	PostedBy            int64     `json:"posted_by" db:"posted_by"`
	Poster              Poster    `json:"poster"`
	IsActive            bool      `json:"is_active" db:"is_active"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`

	// AlreadyApplied is only filled in on a student's eligible listing.
	AlreadyApplied *bool `json:"already_applied,omitempty"`
}

type ScholarshipUpdate struct {
	Title               *string
	Organization        *string
	Amount              *float64
	Description         *string
	EligibilityCriteria *string
	ApplicationDeadline *time.Time
	ApplicationURL      *string
}

// PostingFilter narrows public listings of opportunities and scholarships.
type PostingFilter struct {
	Search string
	Type   OpportunityType
	Offset int
	Limit  int
}
