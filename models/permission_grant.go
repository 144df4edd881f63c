package models

import (
	"time"

	"gorm.io/datatypes"
)

// Grant scopes.
const (
	ScopeSchool  = "school"
	ScopeCentral = "central"
)

// PermissionGrant maps a user to a set of boolean capability flags within one
// department scope. Revocation flips IsActive instead of deleting the row so
// the grant trail stays intact.
type PermissionGrant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserUID      string `json:"user_uid" gorm:"index:idx_grant_key,unique;not null"`
	Scope        string `json:"scope" gorm:"index:idx_grant_key,unique;not null"`
	DepartmentID uint   `json:"department_id" gorm:"index:idx_grant_key,unique;not null"`

	// Keys are validated against the closed permission-key enum at write time.
	Permissions datatypes.JSONMap `json:"permissions" gorm:"type:jsonb"`

	// At most one primary grant per user across both scopes.
	IsPrimary bool   `json:"is_primary" gorm:"default:false"`
	IsActive  bool   `json:"is_active" gorm:"default:true"`
	GrantedBy string `json:"granted_by,omitempty"`
}

// Has reports whether the grant carries the given permission key.
func (g *PermissionGrant) Has(key string) bool {
	if !g.IsActive {
		return false
	}
	v, ok := g.Permissions[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// TableName gives the explicit table name for GORM.
func (PermissionGrant) TableName() string {
	return "permission_grants"
}
