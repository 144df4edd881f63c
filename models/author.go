package models

import "time"

// Author categories.
const (
	CategoryInternal = "internal"
	CategoryExternal = "external"
)

// Author types.
const (
	AuthorFaculty       = "faculty"
	AuthorStudent       = "student"
	AuthorAcademic      = "academic"
	AuthorIndustry      = "industry"
	AuthorInternational = "international"
)

// Author roles.
const (
	RoleFirst              = "first"
	RoleCorresponding      = "corresponding"
	RoleFirstCorresponding = "first_corresponding"
	RoleCoAuthor           = "co_author"
)

// Author is one contributor on a Contribution. Internal authors carry a
// directory UID; external authors are free text. Shares stay nil until the
// allocation engine runs.
type Author struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ContributionID uint   `json:"contribution_id" gorm:"index;not null"`
	Name           string `json:"name" gorm:"not null"`
	Category       string `json:"category" gorm:"not null"`
	Type           string `json:"type,omitempty"`
	Role           string `json:"role" gorm:"not null"`
	UID            string `json:"uid,omitempty" gorm:"index"`
	Email          string `json:"email,omitempty"`
	Designation    string `json:"designation,omitempty"`
	Affiliation    string `json:"affiliation,omitempty"`

	IncentiveShare *float64 `json:"incentive_share,omitempty"`
	PointsShare    *int     `json:"points_share,omitempty"`
}

// IsInternal reports whether the author has a directory identity.
func (a *Author) IsInternal() bool {
	return a.Category == CategoryInternal
}

// HoldsFirst reports whether the author occupies the first-author slot.
func (a *Author) HoldsFirst() bool {
	return a.Role == RoleFirst || a.Role == RoleFirstCorresponding
}

// HoldsCorresponding reports whether the author occupies the corresponding slot.
func (a *Author) HoldsCorresponding() bool {
	return a.Role == RoleCorresponding || a.Role == RoleFirstCorresponding
}

// TableName gives the explicit table name for GORM.
func (Author) TableName() string {
	return "authors"
}
