package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-erp/models"
)

const (
	applicantUID = "EMP100"
	reviewerUID  = "EMP200"
)

type lifecycleFixture struct {
	db        *gorm.DB
	perms     *PermissionService
	lifecycle *LifecycleService
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	db := newTestDB(t)
	perms := newTestPerms(t, db)

	seedEmployee(t, db, applicantUID, "A. Applicant")
	seedEmployee(t, db, reviewerUID, "R. Reviewer")
	grantAll(t, perms, db, reviewerUID, PermIPRReview, PermIPRApprove, PermIPRDisburse)

	require.NoError(t, db.Create(&models.IncentiveScheme{
		PublicationType:  models.TypeResearchPaper,
		IndexingCategory: "sci",
		Quartile:         "Q1",
		IncentivePool:    10000,
		PointsPool:       100,
	}).Error)

	return &lifecycleFixture{
		db:    db,
		perms: perms,
		lifecycle: NewLifecycleService(db, perms, newTestAudit(), zap.NewNop(), AllocationConfig{
			FirstPercent: 35, CorrespondingPercent: 35, CoAuthorPoolPercent: 30,
		}),
	}
}

func (f *lifecycleFixture) newContribution(t *testing.T, status string, authors ...models.Author) *models.Contribution {
	t.Helper()
	categories, _ := json.Marshal([]string{"sci"})
	c := models.Contribution{
		PublicationType:    models.TypeResearchPaper,
		Title:              "Deep Learning for Crop Yield Prediction",
		Status:             status,
		ApplicantUID:       applicantUID,
		JournalName:        "Journal of Agricultural Informatics",
		IndexingCategories: categories,
		Quartile:           "Q1",
	}
	require.NoError(t, f.db.Create(&c).Error)
	for i := range authors {
		authors[i].ContributionID = c.ID
		require.NoError(t, f.db.Create(&authors[i]).Error)
	}
	return &c
}

func soleAuthor() models.Author {
	return models.Author{
		Name: "A. Applicant", Category: models.CategoryInternal,
		Type: models.AuthorFaculty, Role: models.RoleFirstCorresponding,
		UID: applicantUID,
	}
}

func TestSubmitMovesDraftToSubmitted(t *testing.T) {
	f := newLifecycleFixture(t)
	c := f.newContribution(t, models.StatusDraft, soleAuthor())

	require.NoError(t, f.lifecycle.Submit(c.ID, applicantUID))

	got, err := f.lifecycle.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, got.Status)
	require.Len(t, got.StatusHistory, 1)
	assert.Equal(t, models.StatusDraft, got.StatusHistory[0].FromStatus)
	assert.Equal(t, models.StatusSubmitted, got.StatusHistory[0].ToStatus)
	assert.Equal(t, applicantUID, got.StatusHistory[0].ActorUID)
}

func TestSubmitRejectsNonOwner(t *testing.T) {
	f := newLifecycleFixture(t)
	c := f.newContribution(t, models.StatusDraft, soleAuthor())

	err := f.lifecycle.Submit(c.ID, reviewerUID)
	assert.True(t, IsCode(err, CodeForbidden))
}

func TestSubmitRejectsNonDraft(t *testing.T) {
	f := newLifecycleFixture(t)
	c := f.newContribution(t, models.StatusUnderReview, soleAuthor())

	err := f.lifecycle.Submit(c.ID, applicantUID)
	assert.True(t, IsCode(err, CodeInvalidTransition))
}

func TestAdvanceRejectsSkippedStage(t *testing.T) {
	f := newLifecycleFixture(t)
	c := f.newContribution(t, models.StatusSubmitted, soleAuthor())

	err := f.lifecycle.Advance(c.ID, reviewerUID, models.StatusApproved, "")
	assert.True(t, IsCode(err, CodeInvalidTransition))
}

func TestAdvanceRejectsMissingPermission(t *testing.T) {
	f := newLifecycleFixture(t)
	c := f.newContribution(t, models.StatusSubmitted, soleAuthor())

	err := f.lifecycle.Advance(c.ID, applicantUID, models.StatusUnderReview, "")
	assert.True(t, IsCode(err, CodeForbidden))
}

func TestApprovalSettlesIncentive(t *testing.T) {
	f := newLifecycleFixture(t)
	c := f.newContribution(t, models.StatusSubmitted, soleAuthor())

	require.NoError(t, f.lifecycle.Advance(c.ID, reviewerUID, models.StatusUnderReview, ""))
	require.NoError(t, f.lifecycle.Advance(c.ID, reviewerUID, models.StatusApproved, "looks good"))

	got, err := f.lifecycle.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	require.NotNil(t, got.IncentiveAmount)
	assert.Equal(t, 10000.0, *got.IncentiveAmount)
	require.NotNil(t, got.Points)
	assert.Equal(t, 100, *got.Points)

	require.Len(t, got.Authors, 1)
	require.NotNil(t, got.Authors[0].IncentiveShare)
	assert.Equal(t, 10000.0, *got.Authors[0].IncentiveShare)
	require.NotNil(t, got.Authors[0].PointsShare)
	assert.Equal(t, 100, *got.Authors[0].PointsShare)
}

func TestApprovalFailsWithoutMatchingScheme(t *testing.T) {
	f := newLifecycleFixture(t)
	categories, _ := json.Marshal([]string{"naas"})
	c := f.newContribution(t, models.StatusUnderReview, soleAuthor())
	require.NoError(t, f.db.Model(&models.Contribution{}).Where("id = ?", c.ID).
		Update("indexing_categories", categories).Error)

	err := f.lifecycle.Advance(c.ID, reviewerUID, models.StatusApproved, "")
	assert.True(t, IsCode(err, CodeNotFound))

	got, _ := f.lifecycle.Get(c.ID)
	assert.Equal(t, models.StatusUnderReview, got.Status)
	assert.Nil(t, got.IncentiveAmount)
}

func TestSuggestionRoundTrip(t *testing.T) {
	f := newLifecycleFixture(t)
	c := f.newContribution(t, models.StatusUnderReview, soleAuthor())

	suggestion, err := f.lifecycle.CreateSuggestion(c.ID, reviewerUID, "journal_name", "J. Agric. Inform.", "use the abbreviated title")
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionPending, suggestion.Status)
	assert.Equal(t, "Journal of Agricultural Informatics", suggestion.OriginalValue)

	require.NoError(t, f.lifecycle.Advance(c.ID, reviewerUID, models.StatusChangesRequired, "fix the journal name"))

	// Pending suggestion blocks resubmission.
	err = f.lifecycle.Resubmit(c.ID, applicantUID)
	assert.True(t, IsCode(err, CodePendingSuggestions))

	require.NoError(t, f.lifecycle.AcceptSuggestion(c.ID, suggestion.ID, applicantUID))

	got, err := f.lifecycle.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "J. Agric. Inform.", got.JournalName)

	require.NoError(t, f.lifecycle.Resubmit(c.ID, applicantUID))
	got, _ = f.lifecycle.Get(c.ID)
	assert.Equal(t, models.StatusResubmitted, got.Status)
}

func TestAcceptSuggestionTwiceIsRejected(t *testing.T) {
	f := newLifecycleFixture(t)
	c := f.newContribution(t, models.StatusUnderReview, soleAuthor())

	suggestion, err := f.lifecycle.CreateSuggestion(c.ID, reviewerUID, "title", "Corrected Title", "")
	require.NoError(t, err)
	require.NoError(t, f.lifecycle.Advance(c.ID, reviewerUID, models.StatusChangesRequired, ""))
	require.NoError(t, f.lifecycle.AcceptSuggestion(c.ID, suggestion.ID, applicantUID))

	err = f.lifecycle.AcceptSuggestion(c.ID, suggestion.ID, applicantUID)
	assert.True(t, IsCode(err, CodeAlreadyResolved))
}

func TestRejectSuggestionKeepsField(t *testing.T) {
	f := newLifecycleFixture(t)
	c := f.newContribution(t, models.StatusUnderReview, soleAuthor())

	suggestion, err := f.lifecycle.CreateSuggestion(c.ID, reviewerUID, "title", "Some Other Title", "")
	require.NoError(t, err)
	require.NoError(t, f.lifecycle.Advance(c.ID, reviewerUID, models.StatusChangesRequired, ""))
	require.NoError(t, f.lifecycle.RejectSuggestion(c.ID, suggestion.ID, applicantUID))

	got, err := f.lifecycle.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Deep Learning for Crop Yield Prediction", got.Title)
}

func TestSuggestionRejectsUnknownField(t *testing.T) {
	f := newLifecycleFixture(t)
	c := f.newContribution(t, models.StatusUnderReview, soleAuthor())

	_, err := f.lifecycle.CreateSuggestion(c.ID, reviewerUID, "applicant_uid", "EMP999", "")
	assert.True(t, IsCode(err, CodeValidation))
}

func TestSuggestionResolutionIsApplicantOnly(t *testing.T) {
	f := newLifecycleFixture(t)
	c := f.newContribution(t, models.StatusUnderReview, soleAuthor())

	suggestion, err := f.lifecycle.CreateSuggestion(c.ID, reviewerUID, "title", "X", "")
	require.NoError(t, err)
	require.NoError(t, f.lifecycle.Advance(c.ID, reviewerUID, models.StatusChangesRequired, ""))

	err = f.lifecycle.AcceptSuggestion(c.ID, suggestion.ID, reviewerUID)
	assert.True(t, IsCode(err, CodeForbidden))
}

func TestDeleteOnlyDrafts(t *testing.T) {
	f := newLifecycleFixture(t)

	draft := f.newContribution(t, models.StatusDraft, soleAuthor())
	require.NoError(t, f.lifecycle.Delete(draft.ID, applicantUID))
	_, err := f.lifecycle.Get(draft.ID)
	assert.True(t, IsCode(err, CodeNotFound))

	submitted := f.newContribution(t, models.StatusSubmitted, soleAuthor())
	err = f.lifecycle.Delete(submitted.ID, applicantUID)
	assert.True(t, IsCode(err, CodeInvalidTransition))
}

func TestCompleteRequiresDisbursePermission(t *testing.T) {
	f := newLifecycleFixture(t)
	c := f.newContribution(t, models.StatusApproved, soleAuthor())

	err := f.lifecycle.Advance(c.ID, applicantUID, models.StatusCompleted, "")
	assert.True(t, IsCode(err, CodeForbidden))

	require.NoError(t, f.lifecycle.Advance(c.ID, reviewerUID, models.StatusCompleted, "paid out"))
	got, _ := f.lifecycle.Get(c.ID)
	assert.Equal(t, models.StatusCompleted, got.Status)
}
