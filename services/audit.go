package services

import (
	"time"

	"go.uber.org/zap"
)

// AuditRecord is one structured change record handed to the sink.
type AuditRecord struct {
	Actor  string
	Entity string
	Action string
	Detail map[string]any
	At     time.Time
}

// AuditSink accepts change records fire-and-forget. Failures must never block
// the primary operation.
type AuditSink interface {
	Record(rec AuditRecord)
}

// LogAuditSink writes audit records to the structured log.
type LogAuditSink struct {
	Logger *zap.Logger
}

// NewLogAuditSink creates the zap-backed sink.
func NewLogAuditSink(logger *zap.Logger) *LogAuditSink {
	return &LogAuditSink{Logger: logger}
}

// Record logs the change record.
func (s *LogAuditSink) Record(rec AuditRecord) {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	s.Logger.Info("audit",
		zap.String("actor", rec.Actor),
		zap.String("entity", rec.Entity),
		zap.String("action", rec.Action),
		zap.Any("detail", rec.Detail),
		zap.Time("at", rec.At),
	)
}
