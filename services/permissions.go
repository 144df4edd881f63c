package services

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus-erp/models"
	"campus-erp/storage"
)

// Closed enum of permission keys. Grant writes carrying any other key are
// rejected with a validation error.
//
// manage_programs, manage_employees and manage_students act within a school
// department and may be granted under either scope; every other key is a
// university-wide capability and carries weight only in a central-scope grant.
const (
	PermManageSchools     = "manage_schools"
	PermManageDepartments = "manage_departments"
	PermManagePrograms    = "manage_programs"
	PermManageEmployees   = "manage_employees"
	PermManageStudents    = "manage_students"
	PermManagePermissions = "manage_permissions"
	PermManageSchemes     = "manage_schemes"
	PermIPRReview         = "ipr_review"
	PermIPRApprove        = "ipr_approve"
	PermIPRDisburse       = "ipr_disburse"
)

var knownPermissionKeys = map[string]bool{
	PermManageSchools:     true,
	PermManageDepartments: true,
	PermManagePrograms:    true,
	PermManageEmployees:   true,
	PermManageStudents:    true,
	PermManagePermissions: true,
	PermManageSchemes:     true,
	PermIPRReview:         true,
	PermIPRApprove:        true,
	PermIPRDisburse:       true,
}

// PermissionService owns grant writes and the permission checks consulted by
// every privileged operation. Per-user grant lists go through a short-TTL
// cache that is invalidated on every grant or revoke.
type PermissionService struct {
	DB     *gorm.DB
	Logger *zap.Logger
	Cache  *storage.TTLCache
}

// NewPermissionService creates the permission store.
func NewPermissionService(db *gorm.DB, logger *zap.Logger, cache *storage.TTLCache) *PermissionService {
	return &PermissionService{DB: db, Logger: logger, Cache: cache}
}

// GrantInput is the upsert payload for one grant.
type GrantInput struct {
	UserUID      string          `json:"user_uid" binding:"required"`
	Scope        string          `json:"scope" binding:"required"`
	DepartmentID uint            `json:"department_id" binding:"required"`
	Permissions  map[string]bool `json:"permissions" binding:"required"`
	IsPrimary    bool            `json:"is_primary"`
}

func cacheKeyGrants(uid string) string {
	return "grants:" + uid
}

// Upsert creates or replaces the grant keyed by (user, scope, department).
// Setting is_primary demotes any other primary grant of the user in the same
// transaction so the at-most-one invariant holds across both scopes.
func (s *PermissionService) Upsert(in GrantInput, grantedBy string) (*models.PermissionGrant, error) {
	if in.Scope != models.ScopeSchool && in.Scope != models.ScopeCentral {
		return nil, EFields("invalid grant", FieldError{Field: "scope", Message: "must be school or central"})
	}
	for key := range in.Permissions {
		if !knownPermissionKeys[key] {
			return nil, EFields("invalid grant", FieldError{Field: "permissions", Message: fmt.Sprintf("unknown permission key %q", key)})
		}
	}

	var dept models.Department
	if err := s.DB.First(&dept, in.DepartmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, E(CodeNotFound, "department not found")
		}
		return nil, err
	}
	if in.Scope == models.ScopeCentral && !dept.IsCentral() {
		return nil, EFields("invalid grant", FieldError{Field: "department_id", Message: "central grants require a central department"})
	}

	perms := datatypes.JSONMap{}
	for k, v := range in.Permissions {
		perms[k] = v
	}
	grant := models.PermissionGrant{
		UserUID:      in.UserUID,
		Scope:        in.Scope,
		DepartmentID: in.DepartmentID,
		Permissions:  perms,
		IsPrimary:    in.IsPrimary,
		IsActive:     true,
		GrantedBy:    grantedBy,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if in.IsPrimary {
			if err := tx.Model(&models.PermissionGrant{}).
				Where("user_uid = ? AND is_primary = ?", in.UserUID, true).
				Update("is_primary", false).Error; err != nil {
				return err
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_uid"}, {Name: "scope"}, {Name: "department_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"permissions", "is_primary", "is_active", "granted_by", "updated_at",
			}),
		}).Create(&grant).Error
	})
	if err != nil {
		return nil, err
	}

	s.Cache.Invalidate(cacheKeyGrants(in.UserUID))
	return &grant, nil
}

// Revoke soft-deletes the grant by flipping is_active, preserving the trail.
func (s *PermissionService) Revoke(userUID, scope string, departmentID uint) error {
	res := s.DB.Model(&models.PermissionGrant{}).
		Where("user_uid = ? AND scope = ? AND department_id = ?", userUID, scope, departmentID).
		Updates(map[string]any{"is_active": false, "is_primary": false})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return E(CodeNotFound, "permission grant not found")
	}
	s.Cache.Invalidate(cacheKeyGrants(userUID))
	return nil
}

// GrantsFor returns the user's grants through the read-through cache.
func (s *PermissionService) GrantsFor(userUID string) ([]models.PermissionGrant, error) {
	if v, ok := s.Cache.Get(cacheKeyGrants(userUID)); ok {
		return v.([]models.PermissionGrant), nil
	}
	var grants []models.PermissionGrant
	if err := s.DB.Where("user_uid = ?", userUID).Find(&grants).Error; err != nil {
		return nil, err
	}
	s.Cache.Set(cacheKeyGrants(userUID), grants)
	return grants, nil
}

// HasPermission reports whether a central-scope grant of the user carries key.
// A school-scoped grant never satisfies a university-wide check; callers with
// a department context use HasPermissionInDept instead. Permission checks read
// the grant rows directly so they see a consistent snapshot at authorization
// time.
func (s *PermissionService) HasPermission(userUID, key string) (bool, error) {
	var grants []models.PermissionGrant
	if err := s.DB.Where("user_uid = ? AND is_active = ? AND scope = ?",
		userUID, true, models.ScopeCentral).Find(&grants).Error; err != nil {
		return false, err
	}
	for i := range grants {
		if grants[i].Has(key) {
			return true, nil
		}
	}
	return false, nil
}

// HasPermissionInDept restricts the check to one school department plus any
// central grant.
func (s *PermissionService) HasPermissionInDept(userUID, key string, departmentID uint) (bool, error) {
	var grants []models.PermissionGrant
	if err := s.DB.Where("user_uid = ? AND is_active = ?", userUID, true).Find(&grants).Error; err != nil {
		return false, err
	}
	for i := range grants {
		g := &grants[i]
		if g.Scope == models.ScopeCentral || g.DepartmentID == departmentID {
			if g.Has(key) {
				return true, nil
			}
		}
	}
	return false, nil
}
