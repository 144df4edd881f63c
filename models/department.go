package models

import "time"

// Department belongs to a School, or is a central department (SchoolID nil)
// such as the IPR cell or the accounts office.
type Department struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SchoolID *uint  `json:"school_id,omitempty" gorm:"index"`
	Code     string `json:"code" gorm:"uniqueIndex;not null"`
	Name     string `json:"name" gorm:"not null"`
	HeadUID  string `json:"head_uid,omitempty" gorm:"index"`
	IsActive bool   `json:"is_active" gorm:"default:true"`

	School *School `json:"school,omitempty" gorm:"foreignKey:SchoolID"`
}

// IsCentral reports whether the department sits outside the school hierarchy.
func (d *Department) IsCentral() bool {
	return d.SchoolID == nil
}

// TableName gives the explicit table name for GORM.
func (Department) TableName() string {
	return "departments"
}
