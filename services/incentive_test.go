package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-erp/models"
)

var testAllocConfig = AllocationConfig{
	FirstPercent:         35,
	CorrespondingPercent: 35,
	CoAuthorPoolPercent:  30,
}

func internalFaculty(role string) models.Author {
	return models.Author{Category: models.CategoryInternal, Type: models.AuthorFaculty, Role: role}
}

func TestAllocateSingleAuthor(t *testing.T) {
	authors := []models.Author{internalFaculty(models.RoleFirst)}

	res, err := Allocate(10000, 100, authors, testAllocConfig)
	require.NoError(t, err)

	assert.Equal(t, "single_author", res.Rule)
	assert.Equal(t, 100.0, res.Shares[0].Percent)
	assert.Equal(t, 10000.0, res.Shares[0].Incentive)
	assert.Equal(t, 100, res.Shares[0].Points)
	assert.Equal(t, 10000.0, res.TotalIncentive)
	assert.Equal(t, 100, res.TotalPoints)
}

func TestAllocateSingleExternalAuthorGetsNothing(t *testing.T) {
	authors := []models.Author{
		{Category: models.CategoryExternal, Type: models.AuthorAcademic, Role: models.RoleFirst},
	}

	res, err := Allocate(10000, 100, authors, testAllocConfig)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Shares[0].Incentive)
	assert.Equal(t, 0, res.Shares[0].Points)
	assert.Equal(t, 0.0, res.TotalIncentive)
}

func TestAllocateTwoAuthorEvenSplit(t *testing.T) {
	authors := []models.Author{
		internalFaculty(models.RoleFirst),
		internalFaculty(models.RoleCorresponding),
	}

	res, err := Allocate(10000, 100, authors, testAllocConfig)
	require.NoError(t, err)

	assert.Equal(t, "two_author_even", res.Rule)
	assert.Equal(t, 5000.0, res.Shares[0].Incentive)
	assert.Equal(t, 5000.0, res.Shares[1].Incentive)
	assert.Equal(t, 50, res.Shares[0].Points)
	assert.Equal(t, 50, res.Shares[1].Points)
}

// The combined first+corresponding holder stacks both percentages; an
// external co-author's slice moves to the internal co-author; the student
// co-author receives currency but no points.
func TestAllocateCombinedRoleWithExternalCoAuthor(t *testing.T) {
	authors := []models.Author{
		internalFaculty(models.RoleFirstCorresponding),
		{Category: models.CategoryInternal, Type: models.AuthorStudent, Role: models.RoleCoAuthor},
		{Category: models.CategoryExternal, Type: models.AuthorIndustry, Role: models.RoleCoAuthor},
	}

	res, err := Allocate(10000, 100, authors, testAllocConfig)
	require.NoError(t, err)

	assert.Equal(t, "role_table", res.Rule)

	assert.Equal(t, 70.0, res.Shares[0].Percent)
	assert.Equal(t, 7000.0, res.Shares[0].Incentive)
	assert.Equal(t, 70, res.Shares[0].Points)

	assert.Equal(t, 30.0, res.Shares[1].Percent)
	assert.Equal(t, 3000.0, res.Shares[1].Incentive)
	assert.Equal(t, 0, res.Shares[1].Points) // students earn currency only

	assert.Equal(t, 0.0, res.Shares[2].Incentive)
	assert.Equal(t, 0, res.Shares[2].Points)

	assert.Equal(t, 10000.0, res.TotalIncentive)
	assert.Equal(t, 70, res.TotalPoints)
}

// An external first author forfeits the slot share outright; it is not
// redistributed.
func TestAllocateExternalFirstForfeits(t *testing.T) {
	authors := []models.Author{
		{Category: models.CategoryExternal, Type: models.AuthorInternational, Role: models.RoleFirst},
		internalFaculty(models.RoleCorresponding),
		internalFaculty(models.RoleCoAuthor),
	}

	res, err := Allocate(10000, 100, authors, testAllocConfig)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Shares[0].Incentive)
	assert.Equal(t, 3500.0, res.Shares[1].Incentive)
	assert.Equal(t, 3000.0, res.Shares[2].Incentive)
	assert.Equal(t, 6500.0, res.TotalIncentive)
}

func TestAllocateCoAuthorPoolSplitsEvenly(t *testing.T) {
	authors := []models.Author{
		internalFaculty(models.RoleFirst),
		internalFaculty(models.RoleCorresponding),
		internalFaculty(models.RoleCoAuthor),
		internalFaculty(models.RoleCoAuthor),
		internalFaculty(models.RoleCoAuthor),
	}

	res, err := Allocate(10000, 100, authors, testAllocConfig)
	require.NoError(t, err)

	assert.Equal(t, 3500.0, res.Shares[0].Incentive)
	assert.Equal(t, 3500.0, res.Shares[1].Incentive)
	for i := 2; i < 5; i++ {
		assert.Equal(t, 1000.0, res.Shares[i].Incentive)
		assert.Equal(t, 10, res.Shares[i].Points)
	}
	assert.Equal(t, 10000.0, res.TotalIncentive)
	assert.Equal(t, 100, res.TotalPoints)
}

func TestAllocateRejectsDuplicateRoleHolders(t *testing.T) {
	t.Run("two first authors", func(t *testing.T) {
		authors := []models.Author{
			internalFaculty(models.RoleFirst),
			internalFaculty(models.RoleFirst),
			internalFaculty(models.RoleCoAuthor),
		}
		_, err := Allocate(10000, 100, authors, testAllocConfig)
		assert.True(t, IsCode(err, CodeInvalidAuthorConfig))
	})

	t.Run("combined role plus corresponding", func(t *testing.T) {
		authors := []models.Author{
			internalFaculty(models.RoleFirstCorresponding),
			internalFaculty(models.RoleCorresponding),
		}
		_, err := Allocate(10000, 100, authors, testAllocConfig)
		assert.True(t, IsCode(err, CodeInvalidAuthorConfig))
	})
}

func TestAllocateRejectsEmptyAuthorList(t *testing.T) {
	_, err := Allocate(10000, 100, nil, testAllocConfig)
	assert.True(t, IsCode(err, CodeInvalidAuthorConfig))
}

func TestAllocateRoundsCurrencyToTwoDecimals(t *testing.T) {
	authors := []models.Author{
		internalFaculty(models.RoleFirst),
		internalFaculty(models.RoleCorresponding),
		internalFaculty(models.RoleCoAuthor),
		internalFaculty(models.RoleCoAuthor),
		internalFaculty(models.RoleCoAuthor),
	}

	res, err := Allocate(1000, 10, authors, testAllocConfig)
	require.NoError(t, err)

	// 10% of 1000 each for the co-authors, 1 point each after rounding.
	assert.Equal(t, 100.0, res.Shares[2].Incentive)
	assert.Equal(t, 1, res.Shares[2].Points)
}
