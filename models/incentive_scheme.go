package models

import "time"

// IncentiveScheme maps publication metadata to the incentive and point pools.
// The table is seeded at startup and maintained by the IPR cell; the lifecycle
// manager only reads it.
type IncentiveScheme struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PublicationType  string  `json:"publication_type" gorm:"index:idx_scheme_key,unique;not null"`
	IndexingCategory string  `json:"indexing_category" gorm:"index:idx_scheme_key,unique;not null"`
	Quartile         string  `json:"quartile" gorm:"index:idx_scheme_key,unique;default:''"`
	IncentivePool    float64 `json:"incentive_pool" gorm:"not null"`
	PointsPool       int     `json:"points_pool" gorm:"not null"`
}

// TableName gives the explicit table name for GORM.
func (IncentiveScheme) TableName() string {
	return "incentive_schemes"
}
