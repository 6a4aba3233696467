package telemetry

import (
	"context"
	"log/slog"
	"time"
)

// Publisher delivers JSON events to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
	Close() error
}

// AuditEmitter records administrative actions such as flushes.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	Action        string       `json:"action"`
	Group         string       `json:"group,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// AuditRecord describes one audited action.
type AuditRecord struct {
	Level     string
	Action    string
	Group     string
	Text      string
	RequestID string
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes rec. Publish failures are logged and otherwise ignored.
func (e *AuditEmitter) Emit(ctx context.Context, rec AuditRecord) {
	if e == nil || e.publisher == nil {
		return
	}

	slog.Debug("audit emit", "level", rec.Level, "action", rec.Action, "group", rec.Group, "request_id", rec.RequestID)
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     rec.RequestID,
		Action:        rec.Action,
		Group:         rec.Group,
		Payload: AuditPayload{
			Level: rec.Level,
			Text:  rec.Text,
		},
	}

	headers := map[string]string{}
	if rec.RequestID != "" {
		headers["x-request-id"] = rec.RequestID
	}
	if err := e.publisher.Publish(ctx, e.routingKey, envelope, headers); err != nil {
		slog.Warn("audit publish failed", "action", rec.Action, "error", err)
	}
}
