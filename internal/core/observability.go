package core

import (
	"context"
	"time"

	"treeregistry/pkg/domain"
)

// Logger is the structured logging surface the service writes to.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// MetricsRecorder observes the outcome and latency of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens a span around a service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is closed exactly once with the operation's error, if any.
type TraceSpan interface {
	End(err error)
}

// AuditStatus records whether an audited operation succeeded.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one mutating operation against the registry graph.
type AuditEntry struct {
	Operation string
	Status    AuditStatus
	Action    domain.Action
	Entity    domain.EntityType
	EntityID  string
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries for mutating operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// Clock supplies the service's notion of now.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

// Now implements Clock. A nil function falls back to the wall clock in UTC.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f()
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type operationMeta struct {
	entity domain.EntityType
	action domain.Action
}

// auditedOperations maps mutating operations to the record they touch.
// Operations missing from the table are observed but never audited.
var auditedOperations = map[string]operationMeta{
	opCreateTree:         {entity: domain.EntityTree, action: domain.ActionCreate},
	opRemoveTree:         {entity: domain.EntityTree, action: domain.ActionDelete},
	opUpdateTree:         {entity: domain.EntityTree, action: domain.ActionUpdate},
	opMarkDiseased:       {entity: domain.EntityTree, action: domain.ActionUpdate},
	opMarkToBeCut:        {entity: domain.EntityTree, action: domain.ActionUpdate},
	opCreateSpecies:      {entity: domain.EntitySpecies, action: domain.ActionCreate},
	opCreateMunicipality: {entity: domain.EntityMunicipality, action: domain.ActionCreate},
	opCreateTreeStatus:   {entity: domain.EntityTreeStatus, action: domain.ActionCreate},
	opCreatePark:         {entity: domain.EntityPark, action: domain.ActionCreate},
	opCreateStreet:       {entity: domain.EntityStreet, action: domain.ActionCreate},
	opRegister:           {entity: domain.EntityUser, action: domain.ActionCreate},
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, duration time.Duration) {
	meta, ok := auditedOperations[op]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Status:    AuditStatusSuccess,
		Action:    meta.action,
		Entity:    meta.entity,
		EntityID:  entityID,
		Duration:  duration,
		Timestamp: s.now(),
	})
}

func (s *Service) recordAuditError(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	meta, ok := auditedOperations[op]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Status:    AuditStatusError,
		Action:    meta.action,
		Entity:    meta.entity,
		EntityID:  entityID,
		Error:     err.Error(),
		Duration:  duration,
		Timestamp: s.now(),
	})
}
