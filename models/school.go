package models

import "time"

// School is a top-level academic unit (e.g. School of Engineering).
type School struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Code     string `json:"code" gorm:"uniqueIndex;not null"`
	Name     string `json:"name" gorm:"not null"`
	DeanUID  string `json:"dean_uid,omitempty" gorm:"index"`
	IsActive bool   `json:"is_active" gorm:"default:true"`
}

// TableName gives the explicit table name for GORM.
func (School) TableName() string {
	return "schools"
}
