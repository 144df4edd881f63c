package models

import (
	"time"

	"gorm.io/datatypes"
)

// Contribution statuses.
const (
	StatusDraft           = "draft"
	StatusSubmitted       = "submitted"
	StatusUnderReview     = "under_review"
	StatusChangesRequired = "changes_required"
	StatusResubmitted     = "resubmitted"
	StatusApproved        = "approved"
	StatusRejected        = "rejected"
	StatusCompleted       = "completed"
)

// Publication types.
const (
	TypeResearchPaper   = "research_paper"
	TypeBook            = "book"
	TypeBookChapter     = "book_chapter"
	TypeConferencePaper = "conference_paper"
)

// Contribution is one research output moving through the incentive workflow.
// Incentive and points stay nil until the contribution reaches approved.
type Contribution struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PublicationType string `json:"publication_type" gorm:"index;not null"`
	Title           string `json:"title" gorm:"not null"`
	Status          string `json:"status" gorm:"index;not null;default:'draft'"`
	ApplicantUID    string `json:"applicant_uid" gorm:"index;not null"`

	// Bibliographic metadata; which fields apply depends on the type.
	JournalName     string     `json:"journal_name,omitempty"`
	Publisher       string     `json:"publisher,omitempty"`
	ISBN            string     `json:"isbn,omitempty"`
	DOI             string     `json:"doi,omitempty" gorm:"index"`
	ConferenceName  string     `json:"conference_name,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`

	// Scoring inputs for the incentive scheme lookup.
	IndexingCategories datatypes.JSON `json:"indexing_categories,omitempty" gorm:"type:jsonb"`
	Quartile           string         `json:"quartile,omitempty"` // Q1..Q4
	ImpactFactor       *float64       `json:"impact_factor,omitempty"`
	NAASRating         *float64       `json:"naas_rating,omitempty"`

	// Populated by the allocation engine when the contribution is approved.
	IncentiveAmount *float64 `json:"incentive_amount,omitempty"`
	Points          *int     `json:"points,omitempty"`

	Authors       []Author             `json:"authors,omitempty" gorm:"foreignKey:ContributionID"`
	StatusHistory []StatusHistoryEntry `json:"status_history,omitempty" gorm:"foreignKey:ContributionID"`
	Suggestions   []EditSuggestion     `json:"suggestions,omitempty" gorm:"foreignKey:ContributionID"`
}

// TableName gives the explicit table name for GORM.
func (Contribution) TableName() string {
	return "contributions"
}
