// Package core implements the tree registry service: registration
// validation, aggregate calculations, authentication and graph queries over a
// snapshotting persistent store.
package core

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"treeregistry/internal/infra/persistence/memory"
	"treeregistry/pkg/domain"
)

const (
	opCreateTree              = "create_tree"
	opRemoveTree              = "remove_tree"
	opUpdateTree              = "update_tree"
	opMarkDiseased            = "mark_diseased"
	opMarkToBeCut             = "mark_to_be_cut"
	opCreateSpecies           = "create_species"
	opCreateMunicipality      = "create_municipality"
	opCreateTreeStatus        = "create_tree_status"
	opCreatePark              = "create_park"
	opCreateStreet            = "create_street"
	opEnsureStatuses          = "ensure_default_statuses"
	opRegister                = "register"
	opLogin                   = "login"
	opTotalOxygen             = "total_oxygen_production"
	opTotalCarbon             = "total_carbon_consumption"
	opBioIndex                = "bio_index"
	opBioForecast             = "bio_forecast"
	opCalcChangeOxygenProd    = "calc_change_oxygen_prod"
	opCalcChangeCarbonConsump = "calc_change_carbon_consump"
	opLoadFile                = "load_file"
	opTreeStatistics          = "tree_statistics"
)

// Service runs registry operations against a persistent store. Every
// mutation is one store transaction, so a successful call has already been
// snapshotted by the backing store when it returns.
type Service struct {
	store        domain.PersistentStore
	logger       Logger
	metrics      MetricsRecorder
	tracer       Tracer
	audit        AuditRecorder
	clock        Clock
	passwordCost int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger. Nil keeps the no-op logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the span factory.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder sets the audit sink for mutating operations.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithClock overrides the clock used for date-added stamps and audit timestamps.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPasswordCost sets the bcrypt cost used by Register.
func WithPasswordCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.passwordCost = cost
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:        store,
		logger:       noopLogger{},
		metrics:      noopMetricsRecorder{},
		tracer:       noopTracer{},
		audit:        noopAuditRecorder{},
		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	if svc.clock == nil {
		svc.clock = storeClock(store)
	}
	return svc
}

// storeClock follows the store's time provider as it is at each call, so a
// later SetNowFunc on the store is honoured. Stores without one use the wall clock.
func storeClock(store domain.PersistentStore) Clock {
	clocked, ok := store.(interface{ NowFunc() func() time.Time })
	if !ok {
		return ClockFunc(nil)
	}
	return ClockFunc(func() time.Time {
		if fn := clocked.NowFunc(); fn != nil {
			return fn()
		}
		return time.Now().UTC()
	})
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

func (s *Service) now() time.Time {
	return s.clock.Now()
}

// run wraps an operation with tracing, metrics, logging and auditing. fn
// returns the identifier of the record it touched, if any.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) (string, error)) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	entityID, err := fn(ctx)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	if err != nil {
		kv := []any{"operation", op, "error", err}
		if entityID != "" {
			kv = append(kv, "entity_id", entityID)
		}
		if isCallerError(err) {
			s.logger.Warn("operation rejected", kv...)
		} else {
			s.logger.Error("operation failed", kv...)
		}
		s.recordAuditError(ctx, op, entityID, duration, err)
		return err
	}
	s.logger.Debug("operation completed", "operation", op, "entity_id", entityID, "duration", duration)
	s.recordAuditSuccess(ctx, op, entityID, duration)
	return nil
}

func isCallerError(err error) bool {
	var blocked domain.RuleViolationError
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrUnsupported) ||
		errors.As(err, &blocked)
}
