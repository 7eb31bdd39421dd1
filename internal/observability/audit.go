package observability

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const auditEventVersion = 1

type requestIDKey struct{}

// WithRequestID stores the request correlation id used by audit events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

type AuditInput struct {
	EventName   string
	ActorUserID uint
	TargetID    uint
	Action      string
	Outcome     string
	Reason      string
}

type AuditEvent struct {
	EventVersion int    `json:"event_version"`
	EventName    string `json:"event_name"`
	ActorUserID  string `json:"actor_user_id"`
	TargetType   string `json:"target_type"`
	TargetID     string `json:"target_id"`
	Action       string `json:"action"`
	Outcome      string `json:"outcome"`
	Reason       string `json:"reason,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	TraceID      string `json:"trace_id,omitempty"`
	TS           string `json:"ts"`
}

func BuildAuditEvent(ctx context.Context, in AuditInput) AuditEvent {
	ev := AuditEvent{
		EventVersion: auditEventVersion,
		EventName:    in.EventName,
		ActorUserID:  strconv.FormatUint(uint64(in.ActorUserID), 10),
		TargetType:   "credential",
		TargetID:     strconv.FormatUint(uint64(in.TargetID), 10),
		Action:       in.Action,
		Outcome:      in.Outcome,
		Reason:       in.Reason,
		RequestID:    RequestIDFromContext(ctx),
		TS:           time.Now().UTC().Format(time.RFC3339),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		ev.TraceID = sc.TraceID().String()
	}
	return ev
}

func (e AuditEvent) Validate() error {
	var errs []error
	if e.EventVersion != auditEventVersion {
		errs = append(errs, errors.New("unsupported event_version"))
	}
	if e.EventName == "" {
		errs = append(errs, errors.New("event_name is required"))
	}
	if e.Action == "" {
		errs = append(errs, errors.New("action is required"))
	}
	if e.Outcome == "" {
		errs = append(errs, errors.New("outcome is required"))
	}
	if e.TS == "" {
		errs = append(errs, errors.New("ts is required"))
	}
	return errors.Join(errs...)
}

// Audit emits one structured audit record. Invalid events are logged as
// warnings instead of being dropped silently.
func Audit(ctx context.Context, in AuditInput) {
	ev := BuildAuditEvent(ctx, in)
	if err := ev.Validate(); err != nil {
		slog.WarnContext(ctx, "audit event invalid", "event_name", ev.EventName, "error", err)
		return
	}
	slog.InfoContext(ctx, "audit",
		"event_version", ev.EventVersion,
		"event_name", ev.EventName,
		"actor_user_id", ev.ActorUserID,
		"target_type", ev.TargetType,
		"target_id", ev.TargetID,
		"action", ev.Action,
		"outcome", ev.Outcome,
		"reason", ev.Reason,
		"request_id", ev.RequestID,
		"trace_id", ev.TraceID,
		"ts", ev.TS,
	)
}
