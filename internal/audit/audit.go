// Package audit defines the audit record Runtime emits for every usecase
// invocation (spec §4.7, §6) and its logging sink.
package audit

import (
	"log/slog"

	"github.com/google/uuid"
)

// Result is the closed set of audit outcomes.
type Result string

const (
	ResultSuccess      Result = "success"
	ResultError        Result = "error"
	ResultUnauthorized Result = "unauthorized"
)

// Record is the audit record fields of spec §6.
type Record struct {
	CorrelationID string
	UserID        string
	Operation     string
	Result        Result
}

// Sink receives one Record per Runtime.Run invocation.
type Sink interface {
	Emit(r Record)
}

// LogSink writes audit records through the ambient structured logger under
// a dedicated "audit" sub-logger name, per the design note that the source
// uses a structured-logging layer rather than a bespoke persistence path.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink builds a LogSink. A nil logger falls back to slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With(slog.String("component", "audit"))}
}

func (s *LogSink) Emit(r Record) {
	s.logger.Info("operation",
		slog.String("correlation_id", r.CorrelationID),
		slog.String("user_id", r.UserID),
		slog.String("operation", r.Operation),
		slog.String("result", string(r.Result)))
}

// NewCorrelationID returns a fresh correlation id for one Runtime.Run
// invocation.
func NewCorrelationID() string {
	return uuid.NewString()
}
