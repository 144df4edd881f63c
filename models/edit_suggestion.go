package models

import "time"

// Suggestion statuses.
const (
	SuggestionPending  = "pending"
	SuggestionAccepted = "accepted"
	SuggestionRejected = "rejected"
)

// EditSuggestion is a reviewer-proposed correction to one contribution field.
// Accepting it copies SuggestedValue into the named field in the same
// transaction that marks it accepted.
type EditSuggestion struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ContributionID uint   `json:"contribution_id" gorm:"index;not null"`
	FieldPath      string `json:"field_path" gorm:"not null"`
	OriginalValue  string `json:"original_value,omitempty"`
	SuggestedValue string `json:"suggested_value" gorm:"not null"`
	Note           string `json:"note,omitempty"`
	Status         string `json:"status" gorm:"index;not null;default:'pending'"`
	ReviewerUID    string `json:"reviewer_uid" gorm:"not null"`
}

// TableName gives the explicit table name for GORM.
func (EditSuggestion) TableName() string {
	return "edit_suggestions"
}
