package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-erp/models"
)

// transitions is the contribution status graph. draft->submitted and
// changes_required->resubmitted are reachable only through Submit and Resubmit
// because they carry ownership gates of their own.
var transitions = map[string][]string{
	models.StatusDraft:           {models.StatusSubmitted},
	models.StatusSubmitted:       {models.StatusUnderReview},
	models.StatusUnderReview:     {models.StatusChangesRequired, models.StatusApproved, models.StatusRejected},
	models.StatusChangesRequired: {models.StatusResubmitted},
	models.StatusResubmitted:     {models.StatusUnderReview},
	models.StatusApproved:        {models.StatusCompleted},
}

// permissionForTarget names the permission key a reviewer needs to move a
// contribution into the given status.
var permissionForTarget = map[string]string{
	models.StatusUnderReview:     PermIPRReview,
	models.StatusChangesRequired: PermIPRReview,
	models.StatusApproved:        PermIPRApprove,
	models.StatusRejected:        PermIPRApprove,
	models.StatusCompleted:       PermIPRDisburse,
}

// suggestionColumns whitelists the contribution fields an edit suggestion may
// target, mapping field paths to database columns.
var suggestionColumns = map[string]string{
	"title":           "title",
	"journal_name":    "journal_name",
	"publisher":       "publisher",
	"isbn":            "isbn",
	"doi":             "doi",
	"conference_name": "conference_name",
	"quartile":        "quartile",
}

func canTransition(from, to string) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// LifecycleService drives a contribution from draft to completion. Every
// operation runs in one transaction and guards its final status write with the
// status it read, so two reviewers acting on the same row cannot both win.
type LifecycleService struct {
	DB     *gorm.DB
	Perms  *PermissionService
	Audit  AuditSink
	Logger *zap.Logger
	Alloc  AllocationConfig
}

// NewLifecycleService creates the lifecycle manager.
func NewLifecycleService(db *gorm.DB, perms *PermissionService, audit AuditSink, logger *zap.Logger, alloc AllocationConfig) *LifecycleService {
	return &LifecycleService{DB: db, Perms: perms, Audit: audit, Logger: logger, Alloc: alloc}
}

// Get loads one contribution with its authors, suggestions and history.
func (s *LifecycleService) Get(id uint) (*models.Contribution, error) {
	var c models.Contribution
	err := s.DB.
		Preload("Authors").
		Preload("Suggestions").
		Preload("StatusHistory").
		First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, E(CodeNotFound, "contribution not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func loadForWrite(tx *gorm.DB, id uint) (*models.Contribution, error) {
	var c models.Contribution
	err := tx.Preload("Authors").Preload("Suggestions").First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, E(CodeNotFound, "contribution not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// setStatus writes the new status guarded by the status that was read, then
// appends the history entry. A guard miss means a concurrent writer won.
func setStatus(tx *gorm.DB, c *models.Contribution, toStatus, actorUID, notes string, extra map[string]any) error {
	updates := map[string]any{"status": toStatus}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&models.Contribution{}).
		Where("id = ? AND status = ?", c.ID, c.Status).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return E(CodeConflict, "contribution was modified concurrently")
	}
	entry := models.StatusHistoryEntry{
		ContributionID: c.ID,
		FromStatus:     c.Status,
		ToStatus:       toStatus,
		ActorUID:       actorUID,
		Notes:          notes,
	}
	return tx.Create(&entry).Error
}

func (s *LifecycleService) audit(actorUID, action string, c *models.Contribution, toStatus string) {
	s.Audit.Record(AuditRecord{
		Actor:  actorUID,
		Entity: fmt.Sprintf("contribution/%d", c.ID),
		Action: action,
		Detail: map[string]any{"from": c.Status, "to": toStatus},
	})
}

// Submit moves the applicant's draft into the reviewer queue.
func (s *LifecycleService) Submit(id uint, actorUID string) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		c, err := loadForWrite(tx, id)
		if err != nil {
			return err
		}
		if c.Status != models.StatusDraft {
			return E(CodeInvalidTransition, "only draft contributions can be submitted")
		}
		if c.ApplicantUID != actorUID {
			return E(CodeForbidden, "only the applicant can submit")
		}
		if err := setStatus(tx, c, models.StatusSubmitted, actorUID, "", nil); err != nil {
			return err
		}
		s.audit(actorUID, "submit", c, models.StatusSubmitted)
		return nil
	})
	return err
}

// Resubmit returns a changes_required contribution to the reviewer queue. It
// is blocked while any edit suggestion is still pending.
func (s *LifecycleService) Resubmit(id uint, actorUID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		c, err := loadForWrite(tx, id)
		if err != nil {
			return err
		}
		if c.Status != models.StatusChangesRequired {
			return E(CodeInvalidTransition, "only contributions with changes required can be resubmitted")
		}
		if c.ApplicantUID != actorUID {
			return E(CodeForbidden, "only the applicant can resubmit")
		}
		for i := range c.Suggestions {
			if c.Suggestions[i].Status == models.SuggestionPending {
				return E(CodePendingSuggestions, "resolve all edit suggestions before resubmitting")
			}
		}
		if err := setStatus(tx, c, models.StatusResubmitted, actorUID, "", nil); err != nil {
			return err
		}
		s.audit(actorUID, "resubmit", c, models.StatusResubmitted)
		return nil
	})
}

// Advance is the reviewer-side transition. Moving into approved freezes the
// author list, looks up the incentive scheme and runs the allocation engine in
// the same transaction.
func (s *LifecycleService) Advance(id uint, actorUID, toStatus, notes string) error {
	permKey, ok := permissionForTarget[toStatus]
	if !ok {
		return E(CodeInvalidTransition, fmt.Sprintf("%s is not a reviewer transition target", toStatus))
	}
	allowed, err := s.Perms.HasPermission(actorUID, permKey)
	if err != nil {
		return err
	}
	if !allowed {
		return E(CodeForbidden, fmt.Sprintf("requires %s permission", permKey))
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		c, err := loadForWrite(tx, id)
		if err != nil {
			return err
		}
		if !canTransition(c.Status, toStatus) {
			return E(CodeInvalidTransition, fmt.Sprintf("cannot move from %s to %s", c.Status, toStatus))
		}

		var extra map[string]any
		if toStatus == models.StatusApproved {
			extra, err = s.settleIncentive(tx, c)
			if err != nil {
				return err
			}
		}
		if err := setStatus(tx, c, toStatus, actorUID, notes, extra); err != nil {
			return err
		}
		s.audit(actorUID, "advance", c, toStatus)
		return nil
	})
}

// settleIncentive runs the allocation over the author list frozen at approval
// and persists per-author shares. It returns the contribution totals for the
// status update.
func (s *LifecycleService) settleIncentive(tx *gorm.DB, c *models.Contribution) (map[string]any, error) {
	pool, points, err := s.lookupScheme(tx, c)
	if err != nil {
		return nil, err
	}
	res, err := Allocate(pool, points, c.Authors, s.Alloc)
	if err != nil {
		return nil, err
	}
	for i := range c.Authors {
		share := res.Shares[i]
		if err := tx.Model(&models.Author{}).Where("id = ?", c.Authors[i].ID).Updates(map[string]any{
			"incentive_share": share.Incentive,
			"points_share":    share.Points,
		}).Error; err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"incentive_amount": res.TotalIncentive,
		"points":           res.TotalPoints,
	}, nil
}

// lookupScheme resolves the incentive and point pools from the scheme table,
// trying the quartile-specific row first and falling back to the generic one.
func (s *LifecycleService) lookupScheme(tx *gorm.DB, c *models.Contribution) (float64, int, error) {
	var categories []string
	if len(c.IndexingCategories) > 0 {
		if err := json.Unmarshal(c.IndexingCategories, &categories); err != nil {
			return 0, 0, EFields("invalid contribution", FieldError{Field: "indexing_categories", Message: "malformed category list"})
		}
	}
	if len(categories) == 0 {
		return 0, 0, EFields("invalid contribution", FieldError{Field: "indexing_categories", Message: "at least one indexing category is required for approval"})
	}

	var best *models.IncentiveScheme
	for _, cat := range categories {
		var scheme models.IncentiveScheme
		err := tx.Where("publication_type = ? AND indexing_category = ? AND quartile = ?",
			c.PublicationType, cat, c.Quartile).First(&scheme).Error
		if errors.Is(err, gorm.ErrRecordNotFound) && c.Quartile != "" {
			err = tx.Where("publication_type = ? AND indexing_category = ? AND quartile = ''",
				c.PublicationType, cat).First(&scheme).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return 0, 0, err
		}
		// Highest pool wins when several categories match.
		if best == nil || scheme.IncentivePool > best.IncentivePool {
			best = &scheme
		}
	}
	if best == nil {
		return 0, 0, E(CodeNotFound, "no incentive scheme matches this contribution")
	}
	return best.IncentivePool, best.PointsPool, nil
}

// CreateSuggestion records a reviewer correction against one whitelisted
// contribution field.
func (s *LifecycleService) CreateSuggestion(contributionID uint, reviewerUID, fieldPath, suggestedValue, note string) (*models.EditSuggestion, error) {
	column, ok := suggestionColumns[fieldPath]
	if !ok {
		return nil, EFields("invalid suggestion", FieldError{Field: "field_path", Message: "unknown field path"})
	}
	allowed, err := s.Perms.HasPermission(reviewerUID, PermIPRReview)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, E(CodeForbidden, "requires ipr_review permission")
	}

	var suggestion models.EditSuggestion
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		c, err := loadForWrite(tx, contributionID)
		if err != nil {
			return err
		}
		if c.Status != models.StatusUnderReview && c.Status != models.StatusChangesRequired {
			return E(CodeInvalidTransition, "suggestions can only be raised during review")
		}
		var original string
		if err := tx.Model(&models.Contribution{}).Select(column).Where("id = ?", c.ID).Scan(&original).Error; err != nil {
			return err
		}
		suggestion = models.EditSuggestion{
			ContributionID: c.ID,
			FieldPath:      fieldPath,
			OriginalValue:  original,
			SuggestedValue: suggestedValue,
			Note:           note,
			Status:         models.SuggestionPending,
			ReviewerUID:    reviewerUID,
		}
		return tx.Create(&suggestion).Error
	})
	if err != nil {
		return nil, err
	}
	return &suggestion, nil
}

// resolveSuggestion holds the shared gates for accepting and rejecting.
func (s *LifecycleService) resolveSuggestion(contributionID, suggestionID uint, actorUID string, accept bool) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		c, err := loadForWrite(tx, contributionID)
		if err != nil {
			return err
		}
		if c.ApplicantUID != actorUID {
			return E(CodeForbidden, "only the applicant can resolve suggestions")
		}
		if c.Status != models.StatusChangesRequired {
			return E(CodeInvalidTransition, "suggestions can only be resolved while changes are required")
		}

		var suggestion models.EditSuggestion
		err = tx.Where("id = ? AND contribution_id = ?", suggestionID, contributionID).First(&suggestion).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return E(CodeNotFound, "suggestion not found")
		}
		if err != nil {
			return err
		}
		if suggestion.Status != models.SuggestionPending {
			return E(CodeAlreadyResolved, "suggestion is already "+suggestion.Status)
		}

		newStatus := models.SuggestionRejected
		if accept {
			newStatus = models.SuggestionAccepted
			column := suggestionColumns[suggestion.FieldPath]
			if column == "" {
				return EFields("invalid suggestion", FieldError{Field: "field_path", Message: "unknown field path"})
			}
			if err := tx.Model(&models.Contribution{}).Where("id = ?", c.ID).
				Update(column, suggestion.SuggestedValue).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.EditSuggestion{}).Where("id = ?", suggestion.ID).
			Update("status", newStatus).Error; err != nil {
			return err
		}
		s.Audit.Record(AuditRecord{
			Actor:  actorUID,
			Entity: fmt.Sprintf("contribution/%d/suggestion/%d", c.ID, suggestion.ID),
			Action: newStatus,
			Detail: map[string]any{"field": suggestion.FieldPath},
		})
		return nil
	})
}

// AcceptSuggestion copies the suggested value into the contribution field and
// marks the suggestion accepted, atomically.
func (s *LifecycleService) AcceptSuggestion(contributionID, suggestionID uint, actorUID string) error {
	return s.resolveSuggestion(contributionID, suggestionID, actorUID, true)
}

// RejectSuggestion marks the suggestion rejected without touching the field.
func (s *LifecycleService) RejectSuggestion(contributionID, suggestionID uint, actorUID string) error {
	return s.resolveSuggestion(contributionID, suggestionID, actorUID, false)
}

// Delete removes a contribution. Only the applicant's own drafts qualify.
func (s *LifecycleService) Delete(id uint, actorUID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		c, err := loadForWrite(tx, id)
		if err != nil {
			return err
		}
		if c.Status != models.StatusDraft {
			return E(CodeInvalidTransition, "only drafts can be deleted")
		}
		if c.ApplicantUID != actorUID {
			return E(CodeForbidden, "only the applicant can delete their draft")
		}
		if err := tx.Where("contribution_id = ?", c.ID).Delete(&models.Author{}).Error; err != nil {
			return err
		}
		if err := tx.Where("contribution_id = ?", c.ID).Delete(&models.EditSuggestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Contribution{}, c.ID).Error
	})
}
