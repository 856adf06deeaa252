// Package billing holds the collection and reconciliation use cases.
package billing

import (
	"context"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/domain/shared"
	"github.com/netcollect/backend/internal/infrastructure/cache"
	"github.com/netcollect/backend/internal/infrastructure/logger"
	"github.com/netcollect/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// serviceOptions are the collaborators shared by every billing service
type serviceOptions struct {
	clock   shared.Clock
	loc     *time.Location
	bus     shared.EventPublisher
	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *telemetry.BillingMetrics
	cache   cache.SummaryCache
}

// Option is a functional option for configuring the billing services
type Option func(*serviceOptions)

// WithClock sets the clock that decides "now" and therefore "today"
func WithClock(clock shared.Clock) Option {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLocation sets the billing time zone
func WithLocation(loc *time.Location) Option {
	return func(o *serviceOptions) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithEventBus sets the publisher that receives events after commit
func WithEventBus(bus shared.EventPublisher) Option {
	return func(o *serviceOptions) {
		o.bus = bus
	}
}

// WithLogger sets the fallback logger used when the context carries none
func WithLogger(l *zap.Logger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer sets the tracer for service spans
func WithTracer(tracer trace.Tracer) Option {
	return func(o *serviceOptions) {
		o.tracer = tracer
	}
}

// WithMetrics sets the operation metrics recorder
func WithMetrics(m *telemetry.BillingMetrics) Option {
	return func(o *serviceOptions) {
		o.metrics = m
	}
}

// WithSummaryCache sets the period summary cache
func WithSummaryCache(c cache.SummaryCache) Option {
	return func(o *serviceOptions) {
		o.cache = c
	}
}

func newServiceOptions(opts []Option) serviceOptions {
	o := serviceOptions{
		clock:  shared.SystemClock{},
		loc:    time.Local,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *serviceOptions) now() time.Time {
	return o.clock.Now()
}

func (o *serviceOptions) today() billing.Day {
	return billing.DayOf(o.now(), o.loc)
}

// log returns the request-scoped logger, falling back to the service logger
func (o *serviceOptions) log(ctx context.Context) *logger.ContextLogger {
	return logger.L(logger.WithContext(ctx, logger.FromContextOr(ctx, o.logger)))
}

// publish hands committed events to the bus. Handler failures never undo a commit.
func (o *serviceOptions) publish(ctx context.Context, events ...billing.AuditedEvent) {
	if o.bus == nil || len(events) == 0 {
		return
	}
	domainEvents := make([]shared.DomainEvent, len(events))
	for i, e := range events {
		domainEvents[i] = e
	}
	if err := o.bus.Publish(ctx, domainEvents...); err != nil {
		o.log(ctx).Warn("publish events failed", zap.Error(err))
	}
}

// finish closes out a service span and records the operation's outcome
func (o *serviceOptions) finish(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, telemetry.OutcomeOf(err))
	if err != nil && shared.KindOf(err) == "" {
		telemetry.RecordError(span, err)
	}
	o.metrics.RecordOperation(ctx, operation, start, err)
	span.End()
}
