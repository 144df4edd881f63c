package services

import (
	"math"

	"campus-erp/models"
)

// AllocationConfig carries the role percentages for the incentive split.
type AllocationConfig struct {
	FirstPercent         float64
	CorrespondingPercent float64
	CoAuthorPoolPercent  float64
}

// Share is the computed outcome for one author, aligned by index with the
// author list passed to Allocate.
type Share struct {
	Percent   float64 `json:"percent"`
	Incentive float64 `json:"incentive"`
	Points    int     `json:"points"`
}

// AllocationResult is the full outcome of one allocation run. Distributed
// totals are at most the pools; they fall short exactly when a share was
// forfeited to an external first/corresponding author.
type AllocationResult struct {
	Shares         []Share `json:"shares"`
	TotalIncentive float64 `json:"total_incentive"`
	TotalPoints    int     `json:"total_points"`
	Rule           string  `json:"rule"`
}

// allocationRule assigns raw pool percentages per author. Rules are evaluated
// in precedence order; the first match wins.
type allocationRule struct {
	name  string
	match func(authors []models.Author) bool
	apply func(authors []models.Author, cfg AllocationConfig) []float64
}

var allocationRules = []allocationRule{
	{
		// A sole author takes everything, whatever role is stored.
		name: "single_author",
		match: func(authors []models.Author) bool {
			return len(authors) == 1
		},
		apply: func(authors []models.Author, cfg AllocationConfig) []float64 {
			return []float64{100}
		},
	},
	{
		// A pure two-author paper with no explicit co-author splits evenly.
		name: "two_author_even",
		match: func(authors []models.Author) bool {
			return len(authors) == 2 &&
				authors[0].Role != models.RoleCoAuthor &&
				authors[1].Role != models.RoleCoAuthor
		},
		apply: func(authors []models.Author, cfg AllocationConfig) []float64 {
			return []float64{50, 50}
		},
	},
	{
		// General case: first and corresponding carry their configured
		// percentages (stacking for a combined holder), the co-author pool is
		// divided evenly.
		name: "role_table",
		match: func(authors []models.Author) bool {
			return true
		},
		apply: func(authors []models.Author, cfg AllocationConfig) []float64 {
			pcts := make([]float64, len(authors))
			var coAuthors int
			for i := range authors {
				if authors[i].Role == models.RoleCoAuthor {
					coAuthors++
				}
			}
			for i := range authors {
				switch authors[i].Role {
				case models.RoleFirst:
					pcts[i] = cfg.FirstPercent
				case models.RoleCorresponding:
					pcts[i] = cfg.CorrespondingPercent
				case models.RoleFirstCorresponding:
					pcts[i] = cfg.FirstPercent + cfg.CorrespondingPercent
				case models.RoleCoAuthor:
					pcts[i] = cfg.CoAuthorPoolPercent / float64(coAuthors)
				}
			}
			return pcts
		},
	},
}

// Allocate computes per-author incentive and point shares from the total
// pools. External authors never receive anything: a forfeited first or
// corresponding share leaves the distribution, while an external co-author's
// share is redistributed evenly to the internal co-authors. Students receive
// the currency component only.
func Allocate(pool float64, points int, authors []models.Author, cfg AllocationConfig) (*AllocationResult, error) {
	if len(authors) == 0 {
		return nil, E(CodeInvalidAuthorConfig, "contribution has no authors")
	}
	if err := validateRoles(authors); err != nil {
		return nil, err
	}

	var pcts []float64
	var ruleName string
	for _, rule := range allocationRules {
		if rule.match(authors) {
			pcts = rule.apply(authors, cfg)
			ruleName = rule.name
			break
		}
	}

	applyExternalFilter(authors, pcts)

	res := &AllocationResult{
		Shares: make([]Share, len(authors)),
		Rule:   ruleName,
	}
	for i := range authors {
		share := Share{Percent: pcts[i]}
		if authors[i].IsInternal() && pcts[i] > 0 {
			share.Incentive = round2(pool * pcts[i] / 100)
			if authors[i].Type != models.AuthorStudent {
				share.Points = int(math.Round(float64(points) * pcts[i] / 100))
			}
		}
		res.Shares[i] = share
		res.TotalIncentive = round2(res.TotalIncentive + share.Incentive)
		res.TotalPoints += share.Points
	}
	return res, nil
}

// validateRoles rejects duplicate first or corresponding holders. One person
// holding both via the combined role is fine.
func validateRoles(authors []models.Author) error {
	var firsts, correspondings int
	for i := range authors {
		if authors[i].HoldsFirst() {
			firsts++
		}
		if authors[i].HoldsCorresponding() {
			correspondings++
		}
	}
	if firsts > 1 {
		return E(CodeInvalidAuthorConfig, "more than one first author")
	}
	if correspondings > 1 {
		return E(CodeInvalidAuthorConfig, "more than one corresponding author")
	}
	return nil
}

// applyExternalFilter zeroes external percentages in place. First and
// corresponding shares held externally are forfeited outright; an external
// co-author's slice moves evenly to the internal co-authors still in the
// distribution, and is forfeited only when none remain.
func applyExternalFilter(authors []models.Author, pcts []float64) {
	var internalCoAuthors []int
	for i := range authors {
		if authors[i].Role == models.RoleCoAuthor && authors[i].IsInternal() {
			internalCoAuthors = append(internalCoAuthors, i)
		}
	}
	for i := range authors {
		if authors[i].IsInternal() || pcts[i] == 0 {
			continue
		}
		forfeited := pcts[i]
		pcts[i] = 0
		if authors[i].Role == models.RoleCoAuthor && len(internalCoAuthors) > 0 {
			each := forfeited / float64(len(internalCoAuthors))
			for _, j := range internalCoAuthors {
				pcts[j] += each
			}
		}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
