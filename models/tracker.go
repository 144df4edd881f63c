package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProgressTracker journals the real-world progress of one publication. Data is
// the accumulated type-specific blob: fields set at an earlier stage persist
// and pre-fill later stages until overwritten.
type ProgressTracker struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ContributionID  *uint  `json:"contribution_id,omitempty" gorm:"index"`
	PublicationType string `json:"publication_type" gorm:"index;not null"`
	OwnerUID        string `json:"owner_uid" gorm:"index;not null"`
	Title           string `json:"title" gorm:"not null"`
	Status          string `json:"status" gorm:"index;not null"`

	Data datatypes.JSONMap `json:"data" gorm:"type:jsonb"`

	Updates []TrackerUpdate `json:"updates,omitempty" gorm:"foreignKey:TrackerID"`
}

// TableName gives the explicit table name for GORM.
func (ProgressTracker) TableName() string {
	return "progress_trackers"
}

// TrackerUpdate is one logged progress event. A same-status update is a
// monthly report and must carry at least one attachment.
type TrackerUpdate struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	TrackerID    uint       `json:"tracker_id" gorm:"index;not null"`
	FromStatus   string     `json:"from_status" gorm:"not null"`
	ToStatus     string     `json:"to_status" gorm:"not null"`
	ActorUID     string     `json:"actor_uid" gorm:"not null"`
	ReportedDate time.Time  `json:"reported_date"`
	ActualDate   *time.Time `json:"actual_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`

	// Snapshot of the status data supplied with this update.
	StatusData datatypes.JSON `json:"status_data,omitempty" gorm:"type:jsonb"`

	Attachments []TrackerAttachment `json:"attachments,omitempty" gorm:"foreignKey:UpdateID"`
}

// TableName gives the explicit table name for GORM.
func (TrackerUpdate) TableName() string {
	return "tracker_updates"
}

// TrackerAttachment stores only the storage reference, never the bytes.
type TrackerAttachment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	UpdateID uint   `json:"update_id" gorm:"index;not null"`
	FileName string `json:"file_name" gorm:"not null"`
	Ref      string `json:"ref" gorm:"not null"`
	SizeByte int64  `json:"size_bytes,omitempty"`
}

// TableName gives the explicit table name for GORM.
func (TrackerAttachment) TableName() string {
	return "tracker_attachments"
}
