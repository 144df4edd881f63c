package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"campus-erp/models"
	"campus-erp/storage"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.School{}, &models.Department{}, &models.Program{},
		&models.Employee{}, &models.Student{},
		&models.PermissionGrant{}, &models.IncentiveScheme{},
		&models.Contribution{}, &models.Author{}, &models.EditSuggestion{}, &models.StatusHistoryEntry{},
		&models.ProgressTracker{}, &models.TrackerUpdate{}, &models.TrackerAttachment{},
	))
	return db
}

func newTestPerms(t *testing.T, db *gorm.DB) *PermissionService {
	t.Helper()
	return NewPermissionService(db, zap.NewNop(), storage.NewTTLCache(time.Minute))
}

func newTestAudit() AuditSink {
	return NewLogAuditSink(zap.NewNop())
}

// seedCentralDept creates a department without a school, i.e. a central one.
func seedCentralDept(t *testing.T, db *gorm.DB) models.Department {
	t.Helper()
	dept := models.Department{Code: "IPRC", Name: "IPR Cell", IsActive: true}
	require.NoError(t, db.Create(&dept).Error)
	return dept
}

func seedSchoolDept(t *testing.T, db *gorm.DB) models.Department {
	t.Helper()
	school := models.School{Code: "SOE", Name: "School of Engineering", IsActive: true}
	require.NoError(t, db.Create(&school).Error)
	dept := models.Department{Code: "CSE", Name: "Computer Science", SchoolID: &school.ID, IsActive: true}
	require.NoError(t, db.Create(&dept).Error)
	return dept
}

func seedEmployee(t *testing.T, db *gorm.DB, uid, name string) models.Employee {
	t.Helper()
	emp := models.Employee{UID: uid, Name: name, Email: uid + "@example.edu", IsActive: true}
	require.NoError(t, db.Create(&emp).Error)
	return emp
}

func seedStudent(t *testing.T, db *gorm.DB, uid, name string) models.Student {
	t.Helper()
	stu := models.Student{UID: uid, StudentID: "SID-" + uid, Name: name, Email: uid + "@example.edu", IsActive: true}
	require.NoError(t, db.Create(&stu).Error)
	return stu
}

// grantAll gives uid the listed permission keys in one central-department grant.
func grantAll(t *testing.T, perms *PermissionService, db *gorm.DB, uid string, keys ...string) {
	t.Helper()
	var dept models.Department
	err := db.Where("school_id IS NULL").First(&dept).Error
	if err != nil {
		dept = seedCentralDept(t, db)
	}
	flags := map[string]bool{}
	for _, k := range keys {
		flags[k] = true
	}
	_, err = perms.Upsert(GrantInput{
		UserUID:      uid,
		Scope:        models.ScopeCentral,
		DepartmentID: dept.ID,
		Permissions:  flags,
	}, "test-admin")
	require.NoError(t, err)
}
