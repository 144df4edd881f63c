package models

import "time"

// Employee is a faculty or staff member with a stable directory identity.
type Employee struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UID          string `json:"uid" gorm:"uniqueIndex;not null"`
	Name         string `json:"name" gorm:"not null"`
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	Designation  string `json:"designation,omitempty"`
	DepartmentID *uint  `json:"department_id,omitempty" gorm:"index"`
	IsAdmin      bool   `json:"is_admin" gorm:"default:false"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`

	Department *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
}

// TableName gives the explicit table name for GORM.
func (Employee) TableName() string {
	return "employees"
}
