// Package core implements the catalog service: entity CRUD, the association
// registry operations, existence guards and the cascade-delete orchestrator.
package core

import (
	"context"
	"errors"
	"time"

	"qcatlas/internal/blob"
	"qcatlas/internal/infra/persistence/memory"
	"qcatlas/pkg/domain"
)

// Service exposes transactional catalog operations over a persistent store.
type Service struct {
	store   domain.PersistentStore
	blobs   blob.Store
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for audit timestamps and durations.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
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

// WithBlobStore sets the store holding implementation file content.
func WithBlobStore(store blob.Store) Option {
	return func(s *Service) {
		s.blobs = store
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		logger:  noopLogger{},
		clock:   ClockFunc(nil),
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// NewDefaultRulesEngine builds a rules engine with the built-in integrity rules.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(ReferentialIntegrityRule())
	engine.Register(PropertyOwnershipRule())
	return engine
}

// Store returns the underlying persistent store.
func (s *Service) Store() domain.PersistentStore { return s.store }

// BlobStore returns the configured blob store, which may be nil.
func (s *Service) BlobStore() blob.Store { return s.blobs }

// operation names a service call for logs, metrics, spans and audit.
// Read operations leave action empty and are not audited.
type operation struct {
	name   string
	entity domain.EntityType
	action domain.Action
}

func mutation(action domain.Action, kind domain.EntityType) operation {
	return operation{name: string(action) + "_" + string(kind), entity: kind, action: action}
}

func query(verb string, kind domain.EntityType) operation {
	return operation{name: verb + "_" + string(kind), entity: kind}
}

// run wraps fn with tracing, timing, metrics, audit and logging. fn returns
// the ID of the entity it acted on.
func (s *Service) run(ctx context.Context, op operation, fn func(context.Context) (string, error)) error {
	ctx, span := s.tracer.Start(ctx, op.name)
	started := s.clock.Now()
	entityID, err := fn(ctx)
	duration := s.clock.Now().Sub(started)
	span.End(err)
	s.metrics.Observe(ctx, op.name, err == nil, duration)
	if op.action != "" {
		s.recordAudit(ctx, op, entityID, duration, err)
	}
	if err != nil {
		s.logger.Error("catalog operation failed", "op", op.name, "entity_id", entityID, "duration", duration, "error", err)
		return err
	}
	s.logger.Debug("catalog operation", "op", op.name, "entity_id", entityID, "duration", duration)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, op operation, entityID string, duration time.Duration, err error) {
	entry := AuditEntry{
		Operation: op.name,
		Entity:    op.entity,
		Action:    op.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// transact runs fn in a store transaction and logs non-blocking violations.
func (s *Service) transact(ctx context.Context, op operation, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.store.RunInTransaction(ctx, fn)
	var rv domain.RuleViolationError
	if errors.As(err, &rv) {
		for _, v := range rv.Result.Violations {
			s.logger.Warn("rule violation", "op", op.name, "rule", v.Rule, "severity", v.Severity, "entity", v.Entity, "entity_id", v.EntityID, "message", v.Message)
		}
		return res, err
	}
	if err == nil {
		for _, v := range res.Violations {
			s.logger.Warn("rule warning", "op", op.name, "rule", v.Rule, "severity", v.Severity, "entity", v.Entity, "entity_id", v.EntityID, "message", v.Message)
		}
	}
	return res, err
}
