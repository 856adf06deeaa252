package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (r *recorder) handler(name string, err error, eventTypes ...string) *FuncHandler {
	return NewFuncHandler(name, func(_ context.Context, e shared.DomainEvent) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
		return err
	}, eventTypes...)
}

func (r *recorder) got() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shared.DomainEvent(nil), r.events...)
}

func materialized() *billing.InvoicesMaterializedEvent {
	return billing.NewInvoicesMaterializedEvent("2025-06", 3, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
}

func batchApproved() *billing.CashBatchApprovedEvent {
	b := &billing.CashBatch{ID: 4, Period: "2025-06", BatchDate: "2025-06-15", Collector: "Ali", ApprovedBy: "Admin"}
	return billing.NewCashBatchApprovedEvent(b, 2, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	var rec recorder
	bus.Subscribe(rec.handler("materialized", nil, billing.EventTypeInvoicesMaterialized))

	e := materialized()
	require.NoError(t, bus.Publish(context.Background(), e, batchApproved()))

	got := rec.got()
	require.Len(t, got, 1)
	assert.Same(t, e, got[0])
}

func TestInMemoryEventBus_SubscribeExplicitTypes(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	var rec recorder
	h := rec.handler("approved", nil, billing.EventTypeInvoicesMaterialized)
	bus.Subscribe(h, billing.EventTypeCashBatchApproved)

	require.NoError(t, bus.Publish(context.Background(), materialized(), batchApproved()))

	got := rec.got()
	require.Len(t, got, 1, "explicit types override the handler's own")
	assert.Equal(t, billing.EventTypeCashBatchApproved, got[0].EventType())
}

func TestInMemoryEventBus_Wildcard(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	var rec recorder
	bus.Subscribe(rec.handler("audit", nil))

	require.NoError(t, bus.Publish(context.Background(), materialized(), batchApproved()))
	assert.Len(t, rec.got(), 2)
}

func TestInMemoryEventBus_HandlerFailures(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	var first, second recorder
	bus.Subscribe(first.handler("failing", errors.New("redis down"), billing.EventTypeCashBatchApproved))
	bus.Subscribe(NewFuncHandler("panicking", func(context.Context, shared.DomainEvent) error {
		panic("boom")
	}, billing.EventTypeCashBatchApproved))
	bus.Subscribe(second.handler("healthy", nil, billing.EventTypeCashBatchApproved))

	err := bus.Publish(context.Background(), batchApproved())

	require.NoError(t, err)
	assert.Len(t, first.got(), 1)
	assert.Len(t, second.got(), 1, "later handlers still run")
	assert.Equal(t, int64(2), bus.Failures())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	var rec recorder
	h := rec.handler("materialized", nil, billing.EventTypeInvoicesMaterialized)
	bus.Subscribe(h)

	_ = bus.Publish(context.Background(), materialized())
	bus.Unsubscribe(h)
	_ = bus.Publish(context.Background(), materialized())

	assert.Len(t, rec.got(), 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))
	assert.True(t, bus.Running())

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
	assert.False(t, bus.Running())
}
