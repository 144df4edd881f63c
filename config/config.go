package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime parameter, loaded from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4280"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Role percentages for the incentive split. First and Corresponding stack
	// when one person holds both roles; the co-author pool is divided evenly.
	FirstAuthorPercent         float64 `envconfig:"FIRST_AUTHOR_PERCENT" default:"35"`
	CorrespondingAuthorPercent float64 `envconfig:"CORRESPONDING_AUTHOR_PERCENT" default:"35"`
	CoAuthorPoolPercent        float64 `envconfig:"CO_AUTHOR_POOL_PERCENT" default:"30"`

	// Ceiling for evidence uploads on the progress tracker, in megabytes.
	MaxUploadMB int64 `envconfig:"MAX_UPLOAD_MB" default:"50"`

	// TTL for the read-through cache on list endpoints, in seconds.
	ListCacheTTLSeconds int `envconfig:"LIST_CACHE_TTL_SECONDS" default:"60"`

	// Schedule for the stale-tracker reminder sweep.
	ReminderCronSchedule string `envconfig:"REMINDER_CRON_SCHEDULE" default:"0 8 * * MON"`
	// Trackers without an update for this many days are flagged by the sweep.
	ReminderStaleDays int `envconfig:"REMINDER_STALE_DAYS" default:"30"`

	EvidenceS3Key    string `envconfig:"EVIDENCE_S3_KEY" required:"true"`
	EvidenceS3Secret string `envconfig:"EVIDENCE_S3_SECRET" required:"true"`
	EvidenceS3URL    string `envconfig:"EVIDENCE_S3_URL" required:"true"`
	EvidenceS3Region string `envconfig:"EVIDENCE_S3_REGION" required:"true"`
	EvidenceS3Bucket string `envconfig:"EVIDENCE_S3_BUCKET" required:"true"`

	// Crossref REST API for DOI metadata prefill on draft contributions.
	CrossrefBaseURL string `envconfig:"CROSSREF_BASE_URL" default:"https://api.crossref.org/works"`
	CrossrefMailto  string `envconfig:"CROSSREF_MAILTO"`
}

// DSN returns the Data Source Name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// AllocationPercents returns the configured role percentages in the order
// first, corresponding, co-author pool.
func (c *Config) AllocationPercents() (float64, float64, float64) {
	return c.FirstAuthorPercent, c.CorrespondingAuthorPercent, c.CoAuthorPoolPercent
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
