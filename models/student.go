package models

import "time"

// Student is an enrolled student with a stable directory identity.
type Student struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UID        string `json:"uid" gorm:"uniqueIndex;not null"`
	StudentID  string `json:"student_id" gorm:"uniqueIndex;not null"`
	Name       string `json:"name" gorm:"not null"`
	Email      string `json:"email" gorm:"uniqueIndex;not null"`
	ProgramID  *uint  `json:"program_id,omitempty" gorm:"index"`
	BatchYear  int    `json:"batch_year,omitempty"`
	IsActive   bool   `json:"is_active" gorm:"default:true"`

	Program *Program `json:"program,omitempty" gorm:"foreignKey:ProgramID"`
}

// TableName gives the explicit table name for GORM.
func (Student) TableName() string {
	return "students"
}
