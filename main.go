package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"campus-erp/config"
	"campus-erp/models"
	"campus-erp/providers/crossref"
	"campus-erp/services"
	"campus-erp/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	contributionsSubmittedTotal prometheus.Counter
	contributionsApprovedTotal  prometheus.Counter
	incentiveDisbursedTotal     prometheus.Counter
	trackerUpdatesTotal         prometheus.Counter
)

func init() {
	contributionsSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contributions_submitted_total",
		Help: "Total number of research contributions submitted for review.",
	})
	contributionsApprovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contributions_approved_total",
		Help: "Total number of research contributions approved.",
	})
	incentiveDisbursedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "incentive_disbursed_total",
		Help: "Total incentive currency allocated across approved contributions.",
	})
	trackerUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_updates_total",
		Help: "Total number of progress tracker updates logged.",
	})
	prometheus.MustRegister(
		contributionsSubmittedTotal,
		contributionsApprovedTotal,
		incentiveDisbursedTotal,
		trackerUpdatesTotal,
	)
}

// Actor is the authenticated identity attached to every request by the
// identity layer. The service trusts it as already authenticated.
type Actor struct {
	UID     string
	Name    string
	IsAdmin bool
}

const actorKey = "actor"

func currentActor(c *gin.Context) Actor {
	v, _ := c.Get(actorKey)
	actor, _ := v.(Actor)
	return actor
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid API key"})
			return
		}
		c.Next()
	}
}

// actorMiddleware resolves X-Actor-UID against the directory. Session
// mechanics live upstream; an unknown or missing UID is rejected here.
func actorMiddleware(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader("X-Actor-UID")
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "X-Actor-UID header required"})
			return
		}
		var emp models.Employee
		if err := db.Where("uid = ? AND is_active = ?", uid, true).First(&emp).Error; err == nil {
			c.Set(actorKey, Actor{UID: emp.UID, Name: emp.Name, IsAdmin: emp.IsAdmin})
			c.Next()
			return
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("Actor lookup failed", zap.String("uid", uid), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
			return
		}
		var stu models.Student
		if err := db.Where("uid = ? AND is_active = ?", uid, true).First(&stu).Error; err == nil {
			c.Set(actorKey, Actor{UID: stu.UID, Name: stu.Name})
			c.Next()
			return
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("Actor lookup failed", zap.String("uid", uid), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unknown actor"})
	}
}

// requirePerm gates a route on one university-wide capability, satisfied only
// by a central-scope grant. Admins bypass.
func requirePerm(perms *services.PermissionService, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentActor(c)
		if actor.IsAdmin {
			c.Next()
			return
		}
		allowed, err := perms.HasPermission(actor.UID, key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false, "code": services.CodeForbidden,
				"message": fmt.Sprintf("requires %s permission", key),
			})
			return
		}
		c.Next()
	}
}

// scopedAllowed checks a department-scoped capability. A zero department falls
// back to the central-only check; admins bypass.
func scopedAllowed(c *gin.Context, perms *services.PermissionService, key string, deptID uint) (bool, error) {
	actor := currentActor(c)
	if actor.IsAdmin {
		return true, nil
	}
	if deptID == 0 {
		return perms.HasPermission(actor.UID, key)
	}
	return perms.HasPermissionInDept(actor.UID, key, deptID)
}

// requireScoped aborts with 403 unless the actor holds key for the department.
func requireScoped(c *gin.Context, perms *services.PermissionService, key string, deptID uint) bool {
	allowed, err := scopedAllowed(c, perms, key, deptID)
	if err != nil {
		respondMsg(c, http.StatusInternalServerError, "internal error")
		return false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false, "code": services.CodeForbidden,
			"message": fmt.Sprintf("requires %s permission", key),
		})
		return false
	}
	return true
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondMsg(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "message": msg})
}

// respondErr maps service errors to the response envelope with their stable
// code; anything else is logged and hidden behind a generic 500.
func respondErr(c *gin.Context, log *zap.Logger, err error) {
	if se, ok := services.AsError(err); ok {
		resp := gin.H{"success": false, "code": se.Code, "message": se.Message}
		if len(se.Fields) > 0 {
			resp["fields"] = se.Fields
		}
		c.JSON(services.HTTPStatus(se.Code), resp)
		return
	}
	log.Error("Unhandled error", zap.Error(err))
	respondMsg(c, http.StatusInternalServerError, "internal error")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		respondMsg(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	db.AutoMigrate(
		&models.School{}, &models.Department{}, &models.Program{},
		&models.Employee{}, &models.Student{},
		&models.PermissionGrant{}, &models.IncentiveScheme{},
		&models.Contribution{}, &models.Author{}, &models.EditSuggestion{}, &models.StatusHistoryEntry{},
		&models.ProgressTracker{}, &models.TrackerUpdate{}, &models.TrackerAttachment{},
	)

	seedCentralDepartments(db, logging)
	seedIncentiveSchemes(db, logging)

	// Services
	cache := storage.NewTTLCache(time.Duration(cfg.ListCacheTTLSeconds) * time.Second)
	audit := services.NewLogAuditSink(logging.Named("audit"))
	perms := services.NewPermissionService(db, logging, cache)
	registry := services.NewAuthorRegistry(db, logging)
	firstPct, correspondingPct, coPoolPct := cfg.AllocationPercents()
	alloc := services.AllocationConfig{
		FirstPercent:         firstPct,
		CorrespondingPercent: correspondingPct,
		CoAuthorPoolPercent:  coPoolPct,
	}
	lifecycle := services.NewLifecycleService(db, perms, audit, logging, alloc)
	trackerSvc := services.NewTrackerService(db, audit, logging)
	crossrefFetcher := crossref.NewFetcher(cfg, logging)

	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	// Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": "ok"})
	})
	router.Use(actorMiddleware(db, logging))

	setupSchoolRoutes(router, db, cache, perms, logging)
	setupDepartmentRoutes(router, db, cache, perms, logging)
	setupProgramRoutes(router, db, cache, perms, logging)
	setupEmployeeRoutes(router, db, perms, logging)
	setupStudentRoutes(router, db, perms, logging)
	setupPermissionRoutes(router, perms, logging)
	setupSchemeRoutes(router, db, perms, logging)
	setupContributionRoutes(router, db, lifecycle, registry, crossrefFetcher, logging)
	setupTrackerRoutes(router, trackerSvc, s3Client, cfg, logging)
	setupDashboardRoutes(router, db, cache, logging)
	setupTemplateRoutes(router)

	// Reminder sweep for trackers without a recent monthly report.
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.ReminderCronSchedule, func() {
		stale, err := trackerSvc.Stale(cfg.ReminderStaleDays)
		if err != nil {
			logging.Error("Stale tracker sweep failed", zap.Error(err))
			return
		}
		for _, t := range stale {
			logging.Warn("Tracker has no recent progress report",
				zap.Uint("tracker_id", t.ID),
				zap.String("owner_uid", t.OwnerUID),
				zap.String("status", t.Status))
			audit.Record(services.AuditRecord{
				Actor:  "system",
				Entity: fmt.Sprintf("tracker/%d", t.ID),
				Action: "stale_reminder",
				Detail: map[string]any{"status": t.Status, "owner": t.OwnerUID},
			})
		}
		logging.Info("Stale tracker sweep completed", zap.Int("stale", len(stale)))
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// seedCentralDepartments makes sure the IPR cell and accounts office exist.
func seedCentralDepartments(db *gorm.DB, log *zap.Logger) {
	defaults := []models.Department{
		{Code: "IPRC", Name: "IPR Cell", IsActive: true},
		{Code: "ACCT", Name: "Accounts Office", IsActive: true},
	}
	for _, dept := range defaults {
		if err := db.Where(models.Department{Code: dept.Code}).FirstOrCreate(&dept).Error; err != nil {
			log.Error("Failed to seed central department", zap.String("code", dept.Code), zap.Error(err))
		}
	}
	log.Info("Central departments seeded.")
}

// seedIncentiveSchemes loads the default scoring table. The IPR cell can edit
// it afterwards through the schemes endpoints.
func seedIncentiveSchemes(db *gorm.DB, log *zap.Logger) {
	defaults := []models.IncentiveScheme{
		{PublicationType: models.TypeResearchPaper, IndexingCategory: "sci", Quartile: "Q1", IncentivePool: 50000, PointsPool: 100},
		{PublicationType: models.TypeResearchPaper, IndexingCategory: "sci", Quartile: "Q2", IncentivePool: 30000, PointsPool: 60},
		{PublicationType: models.TypeResearchPaper, IndexingCategory: "sci", IncentivePool: 20000, PointsPool: 40},
		{PublicationType: models.TypeResearchPaper, IndexingCategory: "scopus", IncentivePool: 15000, PointsPool: 30},
		{PublicationType: models.TypeResearchPaper, IndexingCategory: "wos", IncentivePool: 20000, PointsPool: 40},
		{PublicationType: models.TypeResearchPaper, IndexingCategory: "ugc_care", IncentivePool: 5000, PointsPool: 10},
		{PublicationType: models.TypeConferencePaper, IndexingCategory: "scopus", IncentivePool: 10000, PointsPool: 20},
		{PublicationType: models.TypeConferencePaper, IndexingCategory: "international", IncentivePool: 7500, PointsPool: 15},
		{PublicationType: models.TypeBook, IndexingCategory: "international", IncentivePool: 15000, PointsPool: 30},
		{PublicationType: models.TypeBook, IndexingCategory: "national", IncentivePool: 10000, PointsPool: 20},
		{PublicationType: models.TypeBookChapter, IndexingCategory: "international", IncentivePool: 7500, PointsPool: 15},
		{PublicationType: models.TypeBookChapter, IndexingCategory: "national", IncentivePool: 5000, PointsPool: 10},
	}
	for _, scheme := range defaults {
		err := db.Where(models.IncentiveScheme{
			PublicationType:  scheme.PublicationType,
			IndexingCategory: scheme.IndexingCategory,
			Quartile:         scheme.Quartile,
		}).FirstOrCreate(&scheme).Error
		if err != nil {
			log.Error("Failed to seed incentive scheme", zap.String("type", scheme.PublicationType), zap.Error(err))
		}
	}
	log.Info("Incentive schemes seeded.")
}

func setupSchoolRoutes(router *gin.Engine, db *gorm.DB, cache *storage.TTLCache, perms *services.PermissionService, log *zap.Logger) {
	rg := router.Group("/schools")

	rg.GET("/", func(c *gin.Context) {
		if v, ok := cache.Get("schools:list"); ok {
			respondOK(c, http.StatusOK, v)
			return
		}
		var schools []models.School
		if err := db.Order("code").Find(&schools).Error; err != nil {
			log.Error("Database query for schools failed", zap.Error(err))
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		cache.Set("schools:list", schools)
		respondOK(c, http.StatusOK, schools)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var school models.School
		if err := db.First(&school, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "school not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		respondOK(c, http.StatusOK, school)
	})

	rg.POST("/", requirePerm(perms, services.PermManageSchools), func(c *gin.Context) {
		var school models.School
		if err := c.ShouldBindJSON(&school); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if school.Code == "" || school.Name == "" {
			respondErr(c, log, services.EFields("invalid school",
				services.FieldError{Field: "code", Message: "code and name are required"}))
			return
		}
		school.IsActive = true
		if err := db.Create(&school).Error; err != nil {
			if isUniqueViolation(err) {
				respondErr(c, log, services.E(services.CodeConflict, "school code already exists"))
				return
			}
			respondMsg(c, http.StatusInternalServerError, "failed to create school")
			return
		}
		cache.Invalidate("schools:list")
		respondOK(c, http.StatusCreated, school)
	})

	rg.PUT("/:id", requirePerm(perms, services.PermManageSchools), func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var school models.School
		if err := db.First(&school, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "school not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		var updates map[string]any
		if err := c.ShouldBindJSON(&updates); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := db.Model(&school).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				respondErr(c, log, services.E(services.CodeConflict, "school code already exists"))
				return
			}
			respondMsg(c, http.StatusInternalServerError, "failed to update school")
			return
		}
		cache.Invalidate("schools:list")
		respondOK(c, http.StatusOK, school)
	})

	rg.DELETE("/:id", requirePerm(perms, services.PermManageSchools), func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		res := db.Model(&models.School{}).Where("id = ?", id).Update("is_active", false)
		if res.Error != nil {
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		if res.RowsAffected == 0 {
			respondMsg(c, http.StatusNotFound, "school not found")
			return
		}
		cache.Invalidate("schools:list")
		respondOK(c, http.StatusOK, gin.H{"deactivated": id})
	})
}

func setupDepartmentRoutes(router *gin.Engine, db *gorm.DB, cache *storage.TTLCache, perms *services.PermissionService, log *zap.Logger) {
	rg := router.Group("/departments")

	rg.GET("/", func(c *gin.Context) {
		if v, ok := cache.Get("departments:list"); ok {
			respondOK(c, http.StatusOK, v)
			return
		}
		var depts []models.Department
		if err := db.Preload("School").Order("code").Find(&depts).Error; err != nil {
			log.Error("Database query for departments failed", zap.Error(err))
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		cache.Set("departments:list", depts)
		respondOK(c, http.StatusOK, depts)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var dept models.Department
		if err := db.Preload("School").First(&dept, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "department not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		respondOK(c, http.StatusOK, dept)
	})

	rg.POST("/", requirePerm(perms, services.PermManageDepartments), func(c *gin.Context) {
		var dept models.Department
		if err := c.ShouldBindJSON(&dept); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if dept.Code == "" || dept.Name == "" {
			respondErr(c, log, services.EFields("invalid department",
				services.FieldError{Field: "code", Message: "code and name are required"}))
			return
		}
		if dept.SchoolID != nil {
			var school models.School
			if err := db.First(&school, *dept.SchoolID).Error; err != nil {
				respondErr(c, log, services.E(services.CodeNotFound, "school not found"))
				return
			}
		}
		dept.IsActive = true
		if err := db.Create(&dept).Error; err != nil {
			if isUniqueViolation(err) {
				respondErr(c, log, services.E(services.CodeConflict, "department code already exists"))
				return
			}
			respondMsg(c, http.StatusInternalServerError, "failed to create department")
			return
		}
		cache.Invalidate("departments:list")
		respondOK(c, http.StatusCreated, dept)
	})

	rg.PUT("/:id", requirePerm(perms, services.PermManageDepartments), func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var dept models.Department
		if err := db.First(&dept, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "department not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		var updates map[string]any
		if err := c.ShouldBindJSON(&updates); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := db.Model(&dept).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				respondErr(c, log, services.E(services.CodeConflict, "department code already exists"))
				return
			}
			respondMsg(c, http.StatusInternalServerError, "failed to update department")
			return
		}
		cache.Invalidate("departments:list")
		respondOK(c, http.StatusOK, dept)
	})

	rg.DELETE("/:id", requirePerm(perms, services.PermManageDepartments), func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		res := db.Model(&models.Department{}).Where("id = ?", id).Update("is_active", false)
		if res.Error != nil {
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		if res.RowsAffected == 0 {
			respondMsg(c, http.StatusNotFound, "department not found")
			return
		}
		cache.Invalidate("departments:list")
		respondOK(c, http.StatusOK, gin.H{"deactivated": id})
	})
}

func setupProgramRoutes(router *gin.Engine, db *gorm.DB, cache *storage.TTLCache, perms *services.PermissionService, log *zap.Logger) {
	rg := router.Group("/programs")

	rg.GET("/", func(c *gin.Context) {
		if v, ok := cache.Get("programs:list"); ok {
			respondOK(c, http.StatusOK, v)
			return
		}
		var programs []models.Program
		if err := db.Preload("Department").Order("code").Find(&programs).Error; err != nil {
			log.Error("Database query for programs failed", zap.Error(err))
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		cache.Set("programs:list", programs)
		respondOK(c, http.StatusOK, programs)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var program models.Program
		if err := db.Preload("Department").First(&program, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "program not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		respondOK(c, http.StatusOK, program)
	})

	rg.POST("/", func(c *gin.Context) {
		var program models.Program
		if err := c.ShouldBindJSON(&program); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if program.Code == "" || program.Name == "" || program.DepartmentID == 0 {
			respondErr(c, log, services.EFields("invalid program",
				services.FieldError{Field: "code", Message: "code, name and department_id are required"}))
			return
		}
		if !requireScoped(c, perms, services.PermManagePrograms, program.DepartmentID) {
			return
		}
		var dept models.Department
		if err := db.First(&dept, program.DepartmentID).Error; err != nil {
			respondErr(c, log, services.E(services.CodeNotFound, "department not found"))
			return
		}
		program.IsActive = true
		if err := db.Create(&program).Error; err != nil {
			if isUniqueViolation(err) {
				respondErr(c, log, services.E(services.CodeConflict, "program code already exists"))
				return
			}
			respondMsg(c, http.StatusInternalServerError, "failed to create program")
			return
		}
		cache.Invalidate("programs:list")
		respondOK(c, http.StatusCreated, program)
	})

	rg.PUT("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var program models.Program
		if err := db.First(&program, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "program not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		if !requireScoped(c, perms, services.PermManagePrograms, program.DepartmentID) {
			return
		}
		var updates map[string]any
		if err := c.ShouldBindJSON(&updates); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := db.Model(&program).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				respondErr(c, log, services.E(services.CodeConflict, "program code already exists"))
				return
			}
			respondMsg(c, http.StatusInternalServerError, "failed to update program")
			return
		}
		cache.Invalidate("programs:list")
		respondOK(c, http.StatusOK, program)
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var program models.Program
		if err := db.First(&program, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "program not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		if !requireScoped(c, perms, services.PermManagePrograms, program.DepartmentID) {
			return
		}
		if err := db.Model(&program).Update("is_active", false).Error; err != nil {
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		cache.Invalidate("programs:list")
		respondOK(c, http.StatusOK, gin.H{"deactivated": id})
	})
}

func setupEmployeeRoutes(router *gin.Engine, db *gorm.DB, perms *services.PermissionService, log *zap.Logger) {
	rg := router.Group("/employees")

	rg.GET("/", func(c *gin.Context) {
		query := db.Preload("Department")
		var deptID uint
		if dept := c.Query("department_id"); dept != "" {
			id, err := strconv.ParseUint(dept, 10, 32)
			if err != nil {
				respondMsg(c, http.StatusBadRequest, "invalid department_id")
				return
			}
			deptID = uint(id)
			query = query.Where("department_id = ?", deptID)
		}
		// A department-filtered listing is readable with a school-scoped
		// grant; the full directory needs the central capability.
		if !requireScoped(c, perms, services.PermManageEmployees, deptID) {
			return
		}
		var employees []models.Employee
		if err := query.Order("uid").Find(&employees).Error; err != nil {
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		respondOK(c, http.StatusOK, employees)
	})

	rg.GET("/:uid", func(c *gin.Context) {
		var emp models.Employee
		if err := db.Preload("Department").Where("uid = ?", c.Param("uid")).First(&emp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "employee not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		respondOK(c, http.StatusOK, emp)
	})

	// Employee creation seeds the default permission grant in the same
	// transaction; a failure on either side rolls back both.
	rg.POST("/", func(c *gin.Context) {
		var req struct {
			models.Employee
			DefaultPermissions map[string]bool `json:"default_permissions"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		emp := req.Employee
		if emp.UID == "" || emp.Name == "" || emp.Email == "" {
			respondErr(c, log, services.EFields("invalid employee",
				services.FieldError{Field: "uid", Message: "uid, name and email are required"}))
			return
		}
		var deptID uint
		if emp.DepartmentID != nil {
			deptID = *emp.DepartmentID
		}
		if !requireScoped(c, perms, services.PermManageEmployees, deptID) {
			return
		}
		emp.IsActive = true

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&emp).Error; err != nil {
				return err
			}
			if emp.DepartmentID == nil {
				return nil
			}
			var dept models.Department
			if err := tx.First(&dept, *emp.DepartmentID).Error; err != nil {
				return err
			}
			scope := models.ScopeSchool
			if dept.IsCentral() {
				scope = models.ScopeCentral
			}
			permsMap := datatypes.JSONMap{}
			for k, v := range req.DefaultPermissions {
				permsMap[k] = v
			}
			grant := models.PermissionGrant{
				UserUID:      emp.UID,
				Scope:        scope,
				DepartmentID: dept.ID,
				Permissions:  permsMap,
				IsPrimary:    true,
				IsActive:     true,
				GrantedBy:    currentActor(c).UID,
			}
			return tx.Create(&grant).Error
		})
		if err != nil {
			if isUniqueViolation(err) {
				respondErr(c, log, services.E(services.CodeConflict, "employee uid or email already exists"))
				return
			}
			log.Error("Employee creation failed", zap.Error(err))
			respondMsg(c, http.StatusInternalServerError, "failed to create employee")
			return
		}
		respondOK(c, http.StatusCreated, emp)
	})

	rg.PUT("/:uid", func(c *gin.Context) {
		var emp models.Employee
		if err := db.Where("uid = ?", c.Param("uid")).First(&emp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "employee not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		var deptID uint
		if emp.DepartmentID != nil {
			deptID = *emp.DepartmentID
		}
		if !requireScoped(c, perms, services.PermManageEmployees, deptID) {
			return
		}
		var updates map[string]any
		if err := c.ShouldBindJSON(&updates); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		delete(updates, "uid") // identity is immutable
		if err := db.Model(&emp).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				respondErr(c, log, services.E(services.CodeConflict, "employee email already exists"))
				return
			}
			respondMsg(c, http.StatusInternalServerError, "failed to update employee")
			return
		}
		respondOK(c, http.StatusOK, emp)
	})

	rg.DELETE("/:uid", func(c *gin.Context) {
		var emp models.Employee
		if err := db.Where("uid = ?", c.Param("uid")).First(&emp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "employee not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		var deptID uint
		if emp.DepartmentID != nil {
			deptID = *emp.DepartmentID
		}
		if !requireScoped(c, perms, services.PermManageEmployees, deptID) {
			return
		}
		if err := db.Model(&emp).Update("is_active", false).Error; err != nil {
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		respondOK(c, http.StatusOK, gin.H{"deactivated": emp.UID})
	})
}

func setupStudentRoutes(router *gin.Engine, db *gorm.DB, perms *services.PermissionService, log *zap.Logger) {
	rg := router.Group("/students")

	// A student's department context comes through their program.
	deptForProgram := func(programID *uint) (uint, error) {
		if programID == nil {
			return 0, nil
		}
		var program models.Program
		if err := db.First(&program, *programID).Error; err != nil {
			return 0, err
		}
		return program.DepartmentID, nil
	}

	rg.GET("/", requirePerm(perms, services.PermManageStudents), func(c *gin.Context) {
		query := db.Preload("Program")
		if program := c.Query("program_id"); program != "" {
			query = query.Where("program_id = ?", program)
		}
		var students []models.Student
		if err := query.Order("student_id").Find(&students).Error; err != nil {
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		respondOK(c, http.StatusOK, students)
	})

	rg.GET("/:uid", func(c *gin.Context) {
		var stu models.Student
		if err := db.Preload("Program").Where("uid = ?", c.Param("uid")).First(&stu).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "student not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		respondOK(c, http.StatusOK, stu)
	})

	rg.POST("/", func(c *gin.Context) {
		var stu models.Student
		if err := c.ShouldBindJSON(&stu); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if stu.UID == "" || stu.StudentID == "" || stu.Name == "" || stu.Email == "" {
			respondErr(c, log, services.EFields("invalid student",
				services.FieldError{Field: "uid", Message: "uid, student_id, name and email are required"}))
			return
		}
		deptID, err := deptForProgram(stu.ProgramID)
		if err != nil {
			respondErr(c, log, services.E(services.CodeNotFound, "program not found"))
			return
		}
		if !requireScoped(c, perms, services.PermManageStudents, deptID) {
			return
		}
		stu.IsActive = true
		if err := db.Create(&stu).Error; err != nil {
			if isUniqueViolation(err) {
				respondErr(c, log, services.E(services.CodeConflict, "student uid, id or email already exists"))
				return
			}
			respondMsg(c, http.StatusInternalServerError, "failed to create student")
			return
		}
		respondOK(c, http.StatusCreated, stu)
	})

	rg.PUT("/:uid", func(c *gin.Context) {
		var stu models.Student
		if err := db.Where("uid = ?", c.Param("uid")).First(&stu).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "student not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		deptID, err := deptForProgram(stu.ProgramID)
		if err != nil {
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		if !requireScoped(c, perms, services.PermManageStudents, deptID) {
			return
		}
		var updates map[string]any
		if err := c.ShouldBindJSON(&updates); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		delete(updates, "uid")
		if err := db.Model(&stu).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				respondErr(c, log, services.E(services.CodeConflict, "student id or email already exists"))
				return
			}
			respondMsg(c, http.StatusInternalServerError, "failed to update student")
			return
		}
		respondOK(c, http.StatusOK, stu)
	})

	rg.DELETE("/:uid", func(c *gin.Context) {
		var stu models.Student
		if err := db.Where("uid = ?", c.Param("uid")).First(&stu).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "student not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		deptID, err := deptForProgram(stu.ProgramID)
		if err != nil {
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		if !requireScoped(c, perms, services.PermManageStudents, deptID) {
			return
		}
		if err := db.Model(&stu).Update("is_active", false).Error; err != nil {
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		respondOK(c, http.StatusOK, gin.H{"deactivated": stu.UID})
	})
}

func setupPermissionRoutes(router *gin.Engine, perms *services.PermissionService, log *zap.Logger) {
	rg := router.Group("/permissions")

	rg.GET("/user/:uid", requirePerm(perms, services.PermManagePermissions), func(c *gin.Context) {
		grants, err := perms.GrantsFor(c.Param("uid"))
		if err != nil {
			respondErr(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, grants)
	})

	rg.POST("/", requirePerm(perms, services.PermManagePermissions), func(c *gin.Context) {
		var in services.GrantInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		grant, err := perms.Upsert(in, currentActor(c).UID)
		if err != nil {
			respondErr(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, grant)
	})

	rg.DELETE("/", requirePerm(perms, services.PermManagePermissions), func(c *gin.Context) {
		var req struct {
			UserUID      string `json:"user_uid" binding:"required"`
			Scope        string `json:"scope" binding:"required"`
			DepartmentID uint   `json:"department_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := perms.Revoke(req.UserUID, req.Scope, req.DepartmentID); err != nil {
			respondErr(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"revoked": req.UserUID})
	})
}

func setupSchemeRoutes(router *gin.Engine, db *gorm.DB, perms *services.PermissionService, log *zap.Logger) {
	rg := router.Group("/incentive-schemes")

	rg.GET("/", func(c *gin.Context) {
		var schemes []models.IncentiveScheme
		if err := db.Order("publication_type, indexing_category, quartile").Find(&schemes).Error; err != nil {
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		respondOK(c, http.StatusOK, schemes)
	})

	rg.POST("/", requirePerm(perms, services.PermManageSchemes), func(c *gin.Context) {
		var scheme models.IncentiveScheme
		if err := c.ShouldBindJSON(&scheme); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if scheme.PublicationType == "" || scheme.IndexingCategory == "" {
			respondErr(c, log, services.EFields("invalid scheme",
				services.FieldError{Field: "publication_type", Message: "publication_type and indexing_category are required"}))
			return
		}
		if err := db.Create(&scheme).Error; err != nil {
			if isUniqueViolation(err) {
				respondErr(c, log, services.E(services.CodeConflict, "scheme for this key already exists"))
				return
			}
			respondMsg(c, http.StatusInternalServerError, "failed to create scheme")
			return
		}
		respondOK(c, http.StatusCreated, scheme)
	})

	rg.PUT("/:id", requirePerm(perms, services.PermManageSchemes), func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var scheme models.IncentiveScheme
		if err := db.First(&scheme, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondMsg(c, http.StatusNotFound, "scheme not found")
				return
			}
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		var updates map[string]any
		if err := c.ShouldBindJSON(&updates); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := db.Model(&scheme).Updates(updates).Error; err != nil {
			respondMsg(c, http.StatusInternalServerError, "failed to update scheme")
			return
		}
		respondOK(c, http.StatusOK, scheme)
	})
}

func setupContributionRoutes(router *gin.Engine, db *gorm.DB, lifecycle *services.LifecycleService, registry *services.AuthorRegistry, prefill *crossref.Fetcher, log *zap.Logger) {
	rg := router.Group("/contributions")

	type contributionPayload struct {
		PublicationType    string     `json:"publication_type"`
		Title              string     `json:"title"`
		JournalName        string     `json:"journal_name"`
		Publisher          string     `json:"publisher"`
		ISBN               string     `json:"isbn"`
		DOI                string     `json:"doi"`
		ConferenceName     string     `json:"conference_name"`
		PublicationDate    *time.Time `json:"publication_date"`
		IndexingCategories []string   `json:"indexing_categories"`
		Quartile           string     `json:"quartile"`
		ImpactFactor       *float64   `json:"impact_factor"`
		NAASRating         *float64   `json:"naas_rating"`
	}

	validType := func(t string) bool {
		switch t {
		case models.TypeResearchPaper, models.TypeBook, models.TypeBookChapter, models.TypeConferencePaper:
			return true
		}
		return false
	}

	rg.POST("/", func(c *gin.Context) {
		var req contributionPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validType(req.PublicationType) {
			respondErr(c, log, services.EFields("invalid contribution",
				services.FieldError{Field: "publication_type", Message: "unknown publication type"}))
			return
		}
		if req.Title == "" {
			respondErr(c, log, services.EFields("invalid contribution",
				services.FieldError{Field: "title", Message: "title is required"}))
			return
		}
		categories, _ := json.Marshal(req.IndexingCategories)
		contribution := models.Contribution{
			PublicationType:    req.PublicationType,
			Title:              req.Title,
			Status:             models.StatusDraft,
			ApplicantUID:       currentActor(c).UID,
			JournalName:        req.JournalName,
			Publisher:          req.Publisher,
			ISBN:               req.ISBN,
			DOI:                req.DOI,
			ConferenceName:     req.ConferenceName,
			PublicationDate:    req.PublicationDate,
			IndexingCategories: categories,
			Quartile:           req.Quartile,
			ImpactFactor:       req.ImpactFactor,
			NAASRating:         req.NAASRating,
		}
		if err := db.Create(&contribution).Error; err != nil {
			log.Error("Failed to create contribution", zap.Error(err))
			respondMsg(c, http.StatusInternalServerError, "failed to create contribution")
			return
		}
		respondOK(c, http.StatusCreated, contribution)
	})

	rg.GET("/", func(c *gin.Context) {
		query := db.Model(&models.Contribution{}).Preload("Authors")
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if c.Query("mine") == "true" {
			query = query.Where("applicant_uid = ?", currentActor(c).UID)
		}
		var contributions []models.Contribution
		if err := query.Order("created_at desc").Find(&contributions).Error; err != nil {
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		respondOK(c, http.StatusOK, contributions)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		contribution, err := lifecycle.Get(id)
		if err != nil {
			respondErr(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, contribution)
	})

	// Metadata edits are applicant-only and limited to the editable stages.
	rg.PUT("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		contribution, err := lifecycle.Get(id)
		if err != nil {
			respondErr(c, log, err)
			return
		}
		if contribution.ApplicantUID != currentActor(c).UID {
			respondErr(c, log, services.E(services.CodeForbidden, "only the applicant can edit"))
			return
		}
		if contribution.Status != models.StatusDraft && contribution.Status != models.StatusChangesRequired {
			respondErr(c, log, services.E(services.CodeInvalidTransition, "contribution is not editable in its current status"))
			return
		}
		var req contributionPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		updates := map[string]any{}
		if req.Title != "" {
			updates["title"] = req.Title
		}
		if req.JournalName != "" {
			updates["journal_name"] = req.JournalName
		}
		if req.Publisher != "" {
			updates["publisher"] = req.Publisher
		}
		if req.ISBN != "" {
			updates["isbn"] = req.ISBN
		}
		if req.DOI != "" {
			updates["doi"] = req.DOI
		}
		if req.ConferenceName != "" {
			updates["conference_name"] = req.ConferenceName
		}
		if req.Quartile != "" {
			updates["quartile"] = req.Quartile
		}
		if req.PublicationDate != nil {
			updates["publication_date"] = req.PublicationDate
		}
		if req.ImpactFactor != nil {
			updates["impact_factor"] = req.ImpactFactor
		}
		if req.NAASRating != nil {
			updates["naas_rating"] = req.NAASRating
		}
		if len(req.IndexingCategories) > 0 {
			categories, _ := json.Marshal(req.IndexingCategories)
			updates["indexing_categories"] = categories
		}
		if len(updates) == 0 {
			respondMsg(c, http.StatusBadRequest, "no updatable fields provided")
			return
		}
		if err := db.Model(&models.Contribution{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			respondMsg(c, http.StatusInternalServerError, "failed to update contribution")
			return
		}
		respondOK(c, http.StatusOK, gin.H{"updated": updates})
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := lifecycle.Delete(id, currentActor(c).UID); err != nil {
			respondErr(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"deleted": id})
	})

	rg.POST("/:id/authors", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		contribution, err := lifecycle.Get(id)
		if err != nil {
			respondErr(c, log, err)
			return
		}
		if contribution.ApplicantUID != currentActor(c).UID {
			respondErr(c, log, services.E(services.CodeForbidden, "only the applicant can edit the author list"))
			return
		}
		if contribution.Status != models.StatusDraft && contribution.Status != models.StatusChangesRequired {
			respondErr(c, log, services.E(services.CodeInvalidTransition, "author list is frozen in the current status"))
			return
		}
		var req struct {
			services.AuthorDraft
			ReplaceID uint `json:"replace_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMsg(c, http.StatusBadRequest, "invalid request body")
			return
		}
		author, err := registry.AddAuthor(contribution, req.AuthorDraft, req.ReplaceID)
		if err != nil {
			respondErr(c, log, err)
			return
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if req.ReplaceID != 0 {
				if err := tx.Where("id = ? AND contribution_id = ?", req.ReplaceID, contribution.ID).
					Delete(&models.Author{}).Error; err != nil {
					return err
				}
			}
			return tx.Create(author).Error
		})
		if err != nil {
			log.Error("Failed to save author", zap.Error(err))
			respondMsg(c, http.StatusInternalServerError, "failed to save author")
			return
		}
		respondOK(c, http.StatusCreated, author)
	})

	rg.POST("/:id/submit", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := lifecycle.Submit(id, currentActor(c).UID); err != nil {
			respondErr(c, log, err)
			return
		}
		contributionsSubmittedTotal.Inc()
		respondOK(c, http.StatusOK, gin.H{"status": models.StatusSubmitted})
	})

	rg.POST("/:id/resubmit", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := lifecycle.Resubmit(id, currentActor(c).UID); err != nil {
			respondErr(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"status": models.StatusResubmitted})
	})

	rg.POST("/:id/advance", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req struct {
			ToStatus string `json:"to_status" binding:"required"`
			Notes    string `json:"notes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMsg(c, http.StatusBadRequest, "to_status is required")
			return
		}
		if err := lifecycle.Advance(id, currentActor(c).UID, req.ToStatus, req.Notes); err != nil {
			respondErr(c, log, err)
			return
		}
		if req.ToStatus == models.StatusApproved {
			contributionsApprovedTotal.Inc()
			if contribution, err := lifecycle.Get(id); err == nil && contribution.IncentiveAmount != nil {
				incentiveDisbursedTotal.Add(*contribution.IncentiveAmount)
			}
		}
		respondOK(c, http.StatusOK, gin.H{"status": req.ToStatus})
	})

	rg.POST("/:id/suggestions", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req struct {
			FieldPath      string `json:"field_path" binding:"required"`
			SuggestedValue string `json:"suggested_value" binding:"required"`
			Note           string `json:"note"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMsg(c, http.StatusBadRequest, "field_path and suggested_value are required")
			return
		}
		suggestion, err := lifecycle.CreateSuggestion(id, currentActor(c).UID, req.FieldPath, req.SuggestedValue, req.Note)
		if err != nil {
			respondErr(c, log, err)
			return
		}
		respondOK(c, http.StatusCreated, suggestion)
	})

	rg.POST("/:id/suggestions/:sid/accept", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		sid, ok := parseID(c, "sid")
		if !ok {
			return
		}
		if err := lifecycle.AcceptSuggestion(id, sid, currentActor(c).UID); err != nil {
			respondErr(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"suggestion": sid, "status": models.SuggestionAccepted})
	})

	rg.POST("/:id/suggestions/:sid/reject", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		sid, ok := parseID(c, "sid")
		if !ok {
			return
		}
		if err := lifecycle.RejectSuggestion(id, sid, currentActor(c).UID); err != nil {
			respondErr(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"suggestion": sid, "status": models.SuggestionRejected})
	})

	// DOI metadata prefill for draft forms.
	rg.GET("/prefill/doi/*doi", func(c *gin.Context) {
		doi := strings.TrimPrefix(c.Param("doi"), "/")
		if doi == "" {
			respondMsg(c, http.StatusBadRequest, "doi required")
			return
		}
		meta, err := prefill.Lookup(doi)
		if err != nil {
			log.Warn("Crossref lookup failed", zap.String("doi", doi), zap.Error(err))
			respondMsg(c, http.StatusBadGateway, "metadata lookup failed")
			return
		}
		if meta == nil {
			respondMsg(c, http.StatusNotFound, "no metadata for this doi")
			return
		}
		respondOK(c, http.StatusOK, meta)
	})
}

func setupTrackerRoutes(router *gin.Engine, trackerSvc *services.TrackerService, s3Client *awss3.Client, cfg *config.Config, log *zap.Logger) {
	rg := router.Group("/trackers")

	rg.POST("/", func(c *gin.Context) {
		var req struct {
			PublicationType string         `json:"publication_type" binding:"required"`
			Title           string         `json:"title" binding:"required"`
			ContributionID  *uint          `json:"contribution_id"`
			Data            map[string]any `json:"data"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMsg(c, http.StatusBadRequest, "publication_type and title are required")
			return
		}
		tracker, err := trackerSvc.Create(currentActor(c).UID, req.PublicationType, req.Title, req.ContributionID, req.Data)
		if err != nil {
			respondErr(c, log, err)
			return
		}
		respondOK(c, http.StatusCreated, tracker)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		tracker, err := trackerSvc.Get(id)
		if err != nil {
			respondErr(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, tracker)
	})

	rg.GET("/", func(c *gin.Context) {
		trackers, err := trackerSvc.ListByOwner(currentActor(c).UID)
		if err != nil {
			respondErr(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, trackers)
	})

	// Multipart update: status fields plus evidence attachments. The upload
	// ceiling is enforced before any byte reaches the store.
	rg.POST("/:id/updates", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxUploadBytes())
		if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
			respondMsg(c, http.StatusRequestEntityTooLarge, "upload exceeds the size ceiling")
			return
		}

		in := services.UpdateInput{
			NewStatus: c.PostForm("new_status"),
			Notes:     c.PostForm("notes"),
		}
		if in.NewStatus == "" {
			respondMsg(c, http.StatusBadRequest, "new_status is required")
			return
		}
		in.ReportedDate = time.Now().UTC()
		if raw := c.PostForm("reported_date"); raw != "" {
			if t, err := time.Parse("2006-01-02", raw); err == nil {
				in.ReportedDate = t
			}
		}
		if raw := c.PostForm("actual_date"); raw != "" {
			if t, err := time.Parse("2006-01-02", raw); err == nil {
				in.ActualDate = &t
			}
		}
		if raw := c.PostForm("status_data"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &in.StatusData); err != nil {
				respondMsg(c, http.StatusBadRequest, "status_data must be a JSON object")
				return
			}
		}

		form := c.Request.MultipartForm
		if form != nil {
			for _, fh := range form.File["attachments"] {
				f, err := fh.Open()
				if err != nil {
					respondMsg(c, http.StatusBadRequest, "unreadable attachment")
					return
				}
				data, err := io.ReadAll(f)
				f.Close()
				if err != nil {
					respondMsg(c, http.StatusBadRequest, "unreadable attachment")
					return
				}
				key := fmt.Sprintf("trackers/%d/%d-%s", id, time.Now().UnixNano(), fh.Filename)
				ref, err := storage.UploadFile(s3Client, cfg.EvidenceS3Bucket, key, data, cfg)
				if err != nil {
					log.Error("Attachment upload failed", zap.String("key", key), zap.Error(err))
					respondMsg(c, http.StatusBadGateway, "attachment upload failed")
					return
				}
				in.Attachments = append(in.Attachments, services.AttachmentInput{
					FileName: fh.Filename,
					Ref:      ref,
					Size:     fh.Size,
				})
			}
		}

		tracker, err := trackerSvc.UpdateStatus(id, currentActor(c).UID, in)
		if err != nil {
			respondErr(c, log, err)
			return
		}
		trackerUpdatesTotal.Inc()
		respondOK(c, http.StatusOK, tracker)
	})
}

func setupDashboardRoutes(router *gin.Engine, db *gorm.DB, cache *storage.TTLCache, log *zap.Logger) {
	rg := router.Group("/dashboard")

	rg.GET("/summary", func(c *gin.Context) {
		if v, ok := cache.Get("dashboard:summary"); ok {
			respondOK(c, http.StatusOK, v)
			return
		}
		type statusCount struct {
			Status string `json:"status"`
			Count  int64  `json:"count"`
		}
		var byStatus []statusCount
		if err := db.Model(&models.Contribution{}).
			Select("status, count(*) as count").
			Group("status").Scan(&byStatus).Error; err != nil {
			log.Error("Dashboard query failed", zap.Error(err))
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		var totalIncentive float64
		if err := db.Model(&models.Contribution{}).
			Where("status IN ?", []string{models.StatusApproved, models.StatusCompleted}).
			Select("COALESCE(SUM(incentive_amount), 0)").Scan(&totalIncentive).Error; err != nil {
			log.Error("Dashboard query failed", zap.Error(err))
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}
		var trackerCount int64
		if err := db.Model(&models.ProgressTracker{}).Count(&trackerCount).Error; err != nil {
			log.Error("Dashboard query failed", zap.Error(err))
			respondMsg(c, http.StatusInternalServerError, "database error")
			return
		}

		summary := gin.H{
			"contributions_by_status": byStatus,
			"total_incentive":         totalIncentive,
			"tracker_count":           trackerCount,
		}
		cache.Set("dashboard:summary", summary)
		respondOK(c, http.StatusOK, summary)
	})
}

// setupTemplateRoutes serves the fixed CSV bulk-import templates. Parsing of
// filled-in sheets happens upstream.
func setupTemplateRoutes(router *gin.Engine) {
	templates := map[string][][]string{
		"schools": {
			{"code", "name", "dean_uid"},
			{"SOE", "School of Engineering", "E1001"},
		},
		"departments": {
			{"code", "name", "school_code", "head_uid"},
			{"CSE", "Computer Science and Engineering", "SOE", "E1002"},
		},
		"programs": {
			{"code", "name", "department_code", "level", "duration_years"},
			{"BTCS", "B.Tech Computer Science", "CSE", "UG", "4"},
		},
		"employees": {
			{"uid", "name", "email", "designation", "department_code"},
			{"E1003", "A. Sharma", "a.sharma@example.edu", "Assistant Professor", "CSE"},
		},
		"students": {
			{"uid", "student_id", "name", "email", "program_code", "batch_year"},
			{"S2301", "2023BTCS001", "R. Verma", "r.verma@example.edu", "BTCS", "2023"},
		},
	}

	router.GET("/bulk-templates/:entity", func(c *gin.Context) {
		rows, ok := templates[c.Param("entity")]
		if !ok {
			respondMsg(c, http.StatusNotFound, "no template for this entity")
			return
		}
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-template.csv", c.Param("entity")))
		w := csv.NewWriter(c.Writer)
		w.WriteAll(rows)
		w.Flush()
	})
}
