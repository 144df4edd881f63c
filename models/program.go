package models

import "time"

// Program is a degree program offered by a Department.
type Program struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DepartmentID uint   `json:"department_id" gorm:"index;not null"`
	Code         string `json:"code" gorm:"uniqueIndex;not null"`
	Name         string `json:"name" gorm:"not null"`
	Level        string `json:"level,omitempty"` // UG, PG, PhD
	DurationYrs  int    `json:"duration_years,omitempty"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`

	Department *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
}

// TableName gives the explicit table name for GORM.
func (Program) TableName() string {
	return "programs"
}
