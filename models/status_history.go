package models

import "time"

// StatusHistoryEntry records one contribution transition. Rows are append-only;
// nothing in the service layer updates or deletes them.
type StatusHistoryEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ContributionID uint   `json:"contribution_id" gorm:"index;not null"`
	FromStatus     string `json:"from_status" gorm:"not null"`
	ToStatus       string `json:"to_status" gorm:"not null"`
	ActorUID       string `json:"actor_uid" gorm:"not null"`
	Notes          string `json:"notes,omitempty"`
}

// TableName gives the explicit table name for GORM.
func (StatusHistoryEntry) TableName() string {
	return "status_history"
}
