package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"campus-erp/models"
)

// statusSequences holds the ordered status list per publication type.
// "rejected" sits last so it stays reachable from any stage.
var statusSequences = map[string][]string{
	models.TypeResearchPaper:   {"writing", "communicated", "submitted", "accepted", "published", "rejected"},
	models.TypeConferencePaper: {"writing", "communicated", "submitted", "accepted", "presented", "published", "rejected"},
	models.TypeBook:            {"writing", "proposal_submitted", "submitted", "accepted", "in_press", "published", "rejected"},
	models.TypeBookChapter:     {"writing", "proposal_submitted", "submitted", "accepted", "in_press", "published", "rejected"},
}

func statusIndex(pubType, status string) int {
	for i, s := range statusSequences[pubType] {
		if s == status {
			return i
		}
	}
	return -1
}

// TrackerService journals publication progress. Data supplied with an update
// is shallow-merged into the tracker blob: new keys override, everything else
// persists from earlier stages.
type TrackerService struct {
	DB     *gorm.DB
	Audit  AuditSink
	Logger *zap.Logger
}

// NewTrackerService creates the tracker service.
func NewTrackerService(db *gorm.DB, audit AuditSink, logger *zap.Logger) *TrackerService {
	return &TrackerService{DB: db, Audit: audit, Logger: logger}
}

// Create opens a tracker at the first stage of its type's sequence.
func (s *TrackerService) Create(ownerUID, pubType, title string, contributionID *uint, data map[string]any) (*models.ProgressTracker, error) {
	seq, ok := statusSequences[pubType]
	if !ok {
		return nil, EFields("invalid tracker", FieldError{Field: "publication_type", Message: "unknown publication type"})
	}
	if title == "" {
		return nil, EFields("invalid tracker", FieldError{Field: "title", Message: "title is required"})
	}
	tracker := models.ProgressTracker{
		ContributionID:  contributionID,
		PublicationType: pubType,
		OwnerUID:        ownerUID,
		Title:           title,
		Status:          seq[0],
		Data:            datatypes.JSONMap{},
	}
	for k, v := range data {
		tracker.Data[k] = v
	}
	if err := s.DB.Create(&tracker).Error; err != nil {
		return nil, err
	}
	return &tracker, nil
}

// Get loads one tracker with its update history and attachments.
func (s *TrackerService) Get(id uint) (*models.ProgressTracker, error) {
	var tracker models.ProgressTracker
	err := s.DB.Preload("Updates").Preload("Updates.Attachments").First(&tracker, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, E(CodeNotFound, "tracker not found")
	}
	if err != nil {
		return nil, err
	}
	return &tracker, nil
}

// AttachmentInput references one already-uploaded evidence file.
type AttachmentInput struct {
	FileName string
	Ref      string
	Size     int64
}

// UpdateInput is the payload for one progress event.
type UpdateInput struct {
	NewStatus    string
	ReportedDate time.Time
	ActualDate   *time.Time
	Notes        string
	StatusData   map[string]any
	Attachments  []AttachmentInput
}

// UpdateStatus logs a progress event. A same-status update is a monthly
// report and must carry at least one attachment; moving backwards through the
// sequence is not allowed.
func (s *TrackerService) UpdateStatus(trackerID uint, actorUID string, in UpdateInput) (*models.ProgressTracker, error) {
	var tracker models.ProgressTracker
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.First(&tracker, trackerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return E(CodeNotFound, "tracker not found")
		}
		if err != nil {
			return err
		}

		newIdx := statusIndex(tracker.PublicationType, in.NewStatus)
		if newIdx < 0 {
			return E(CodeInvalidStatusForType,
				fmt.Sprintf("%s is not a %s status", in.NewStatus, tracker.PublicationType))
		}
		curIdx := statusIndex(tracker.PublicationType, tracker.Status)
		if newIdx < curIdx {
			return E(CodeInvalidTransition, "tracker status cannot move backwards")
		}
		if newIdx == curIdx && len(in.Attachments) == 0 {
			return EFields("invalid monthly report",
				FieldError{Field: "attachments", Message: "a monthly report needs at least one attachment"})
		}

		// Sticky merge: keys from this update override, earlier keys persist.
		if tracker.Data == nil {
			tracker.Data = datatypes.JSONMap{}
		}
		for k, v := range in.StatusData {
			tracker.Data[k] = v
		}

		fromStatus := tracker.Status
		tracker.Status = in.NewStatus
		if err := tx.Model(&models.ProgressTracker{}).Where("id = ?", tracker.ID).Updates(map[string]any{
			"status": tracker.Status,
			"data":   tracker.Data,
		}).Error; err != nil {
			return err
		}

		var snapshot datatypes.JSON
		if len(in.StatusData) > 0 {
			b, err := json.Marshal(in.StatusData)
			if err != nil {
				return err
			}
			snapshot = b
		}
		update := models.TrackerUpdate{
			TrackerID:    tracker.ID,
			FromStatus:   fromStatus,
			ToStatus:     in.NewStatus,
			ActorUID:     actorUID,
			ReportedDate: in.ReportedDate,
			ActualDate:   in.ActualDate,
			Notes:        in.Notes,
			StatusData:   snapshot,
		}
		if err := tx.Create(&update).Error; err != nil {
			return err
		}
		for _, a := range in.Attachments {
			att := models.TrackerAttachment{
				UpdateID: update.ID,
				FileName: a.FileName,
				Ref:      a.Ref,
				SizeByte: a.Size,
			}
			if err := tx.Create(&att).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(AuditRecord{
		Actor:  actorUID,
		Entity: fmt.Sprintf("tracker/%d", tracker.ID),
		Action: "update_status",
		Detail: map[string]any{"to": in.NewStatus},
	})
	return &tracker, nil
}

// ListByOwner returns all trackers owned by one user, newest first.
func (s *TrackerService) ListByOwner(ownerUID string) ([]models.ProgressTracker, error) {
	var trackers []models.ProgressTracker
	err := s.DB.
		Where("owner_uid = ?", ownerUID).
		Order("created_at desc").
		Find(&trackers).Error
	if err != nil {
		return nil, err
	}
	return trackers, nil
}

// Stale returns trackers in a non-terminal stage without an update for the
// given number of days. The reminder sweep logs them.
func (s *TrackerService) Stale(days int) ([]models.ProgressTracker, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	var trackers []models.ProgressTracker
	err := s.DB.
		Where("status NOT IN ?", []string{"published", "rejected"}).
		Where("updated_at < ?", cutoff).
		Find(&trackers).Error
	if err != nil {
		return nil, err
	}
	return trackers, nil
}
