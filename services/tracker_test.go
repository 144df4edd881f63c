package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campus-erp/models"
)

func newTrackerService(t *testing.T) *TrackerService {
	t.Helper()
	return NewTrackerService(newTestDB(t), newTestAudit(), zap.NewNop())
}

func TestTrackerCreateStartsAtFirstStage(t *testing.T) {
	svc := newTrackerService(t)

	tracker, err := svc.Create("EMP100", models.TypeResearchPaper, "Crop Yield Paper", nil, map[string]any{
		"targetJournal": "Journal of Agricultural Informatics",
	})
	require.NoError(t, err)
	assert.Equal(t, "writing", tracker.Status)
	assert.Equal(t, "Journal of Agricultural Informatics", tracker.Data["targetJournal"])

	book, err := svc.Create("EMP100", models.TypeBook, "Textbook Draft", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "writing", book.Status)
}

func TestTrackerCreateRejectsUnknownType(t *testing.T) {
	svc := newTrackerService(t)

	_, err := svc.Create("EMP100", "thesis", "Some Title", nil, nil)
	assert.True(t, IsCode(err, CodeValidation))
}

// Data supplied at one stage survives later stages; keys supplied again
// override.
func TestTrackerStickyDataMerge(t *testing.T) {
	svc := newTrackerService(t)
	tracker, err := svc.Create("EMP100", models.TypeResearchPaper, "Crop Yield Paper", nil, nil)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(tracker.ID, "EMP100", UpdateInput{
		NewStatus:    "communicated",
		ReportedDate: time.Now(),
		StatusData:   map[string]any{"manuscriptId": "MS-2041", "journal": "JAI"},
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(tracker.ID, "EMP100", UpdateInput{
		NewStatus:    "submitted",
		ReportedDate: time.Now(),
		StatusData:   map[string]any{"journal": "Computers and Electronics in Agriculture"},
	})
	require.NoError(t, err)

	got, err := svc.Get(tracker.ID)
	require.NoError(t, err)
	assert.Equal(t, "submitted", got.Status)
	assert.Equal(t, "MS-2041", got.Data["manuscriptId"])
	assert.Equal(t, "Computers and Electronics in Agriculture", got.Data["journal"])
	assert.Len(t, got.Updates, 2)
}

func TestTrackerRejectsStatusOfOtherType(t *testing.T) {
	svc := newTrackerService(t)
	tracker, err := svc.Create("EMP100", models.TypeResearchPaper, "Crop Yield Paper", nil, nil)
	require.NoError(t, err)

	// presented only exists for conference papers
	_, err = svc.UpdateStatus(tracker.ID, "EMP100", UpdateInput{
		NewStatus:    "presented",
		ReportedDate: time.Now(),
	})
	assert.True(t, IsCode(err, CodeInvalidStatusForType))
}

func TestTrackerRejectsBackwardMove(t *testing.T) {
	svc := newTrackerService(t)
	tracker, err := svc.Create("EMP100", models.TypeResearchPaper, "Crop Yield Paper", nil, nil)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(tracker.ID, "EMP100", UpdateInput{
		NewStatus:    "submitted",
		ReportedDate: time.Now(),
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(tracker.ID, "EMP100", UpdateInput{
		NewStatus:    "writing",
		ReportedDate: time.Now(),
	})
	assert.True(t, IsCode(err, CodeInvalidTransition))
}

func TestTrackerMonthlyReportNeedsAttachment(t *testing.T) {
	svc := newTrackerService(t)
	tracker, err := svc.Create("EMP100", models.TypeResearchPaper, "Crop Yield Paper", nil, nil)
	require.NoError(t, err)

	// Same-status update without evidence is refused.
	_, err = svc.UpdateStatus(tracker.ID, "EMP100", UpdateInput{
		NewStatus:    "writing",
		ReportedDate: time.Now(),
		Notes:        "still drafting section 3",
	})
	assert.True(t, IsCode(err, CodeValidation))

	_, err = svc.UpdateStatus(tracker.ID, "EMP100", UpdateInput{
		NewStatus:    "writing",
		ReportedDate: time.Now(),
		Notes:        "still drafting section 3",
		Attachments: []AttachmentInput{
			{FileName: "draft-v3.pdf", Ref: "s3://evidence/draft-v3.pdf", Size: 128000},
		},
	})
	require.NoError(t, err)

	got, err := svc.Get(tracker.ID)
	require.NoError(t, err)
	require.Len(t, got.Updates, 1)
	require.Len(t, got.Updates[0].Attachments, 1)
	assert.Equal(t, "draft-v3.pdf", got.Updates[0].Attachments[0].FileName)
}

func TestTrackerStaleSweep(t *testing.T) {
	svc := newTrackerService(t)

	fresh, err := svc.Create("EMP100", models.TypeResearchPaper, "Fresh Paper", nil, nil)
	require.NoError(t, err)
	stale, err := svc.Create("EMP100", models.TypeResearchPaper, "Stale Paper", nil, nil)
	require.NoError(t, err)
	done, err := svc.Create("EMP100", models.TypeResearchPaper, "Published Paper", nil, nil)
	require.NoError(t, err)

	old := time.Now().AddDate(0, -2, 0)
	require.NoError(t, svc.DB.Model(&models.ProgressTracker{}).Where("id = ?", stale.ID).
		Update("updated_at", old).Error)
	require.NoError(t, svc.DB.Model(&models.ProgressTracker{}).Where("id = ?", done.ID).
		Updates(map[string]any{"status": "published", "updated_at": old}).Error)

	result, err := svc.Stale(30)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, stale.ID, result[0].ID)
	_ = fresh
}

func TestTrackerListByOwner(t *testing.T) {
	svc := newTrackerService(t)

	_, err := svc.Create("EMP100", models.TypeResearchPaper, "Mine", nil, nil)
	require.NoError(t, err)
	_, err = svc.Create("EMP200", models.TypeResearchPaper, "Theirs", nil, nil)
	require.NoError(t, err)

	mine, err := svc.ListByOwner("EMP100")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Mine", mine[0].Title)
}
