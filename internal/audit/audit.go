// Package audit records who changed which tariff record and when. Rules are
// never deleted, so the audit trail plus the deactivation stamps give a full
// history for cost recomputation.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event represents an audit event
type Event struct {
	ID         string                 `json:"id"`
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource"`
	ResourceID int32                  `json:"resource_id"`
	ActorID    string                 `json:"actor_id"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Result     string                 `json:"result"` // success, failure
	Error      string                 `json:"error,omitempty"`
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event)
}

// ZapAuditLogger implements audit logging using zap
type ZapAuditLogger struct {
	logger *zap.Logger
}

// NewZapAuditLogger creates a new zap-based audit logger
func NewZapAuditLogger(logger *zap.Logger) *ZapAuditLogger {
	return &ZapAuditLogger{logger: logger}
}

// Log logs an audit event
func (l *ZapAuditLogger) Log(ctx context.Context, event Event) {
	fields := []zap.Field{
		zap.String("audit_id", event.ID),
		zap.String("audit_action", event.Action),
		zap.String("audit_resource", event.Resource),
		zap.Int32("audit_resource_id", event.ResourceID),
		zap.String("audit_actor_id", event.ActorID),
		zap.String("audit_result", event.Result),
		zap.Time("audit_timestamp", event.Timestamp),
	}

	if event.Error != "" {
		fields = append(fields, zap.String("audit_error", event.Error))
	}

	if len(event.Details) > 0 {
		detailsJSON, _ := json.Marshal(event.Details)
		fields = append(fields, zap.String("audit_details", string(detailsJSON)))
	}

	if event.Result == "success" {
		l.logger.Info("audit", fields...)
	} else {
		l.logger.Error("audit", fields...)
	}
}

// NewEvent builds an audit event for an actor mutating a resource.
func NewEvent(action, resource string, resourceID int32, actor uuid.UUID) Event {
	return Event{
		ID:         uuid.NewString(),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		ActorID:    actor.String(),
		Timestamp:  time.Now().UTC(),
		Result:     "success",
	}
}

// Failed marks the event as failed with the given error.
func (e Event) Failed(err error) Event {
	e.Result = "failure"
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// NopLogger discards audit events, for tests.
type NopLogger struct{}

// Log implements Logger for NopLogger
func (NopLogger) Log(context.Context, Event) {}
