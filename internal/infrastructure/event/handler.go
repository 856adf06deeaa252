package event

import (
	"context"

	"github.com/netcollect/backend/internal/domain/shared"
)

// FuncHandler adapts a function to shared.EventHandler.
// It is used by pointer so the registry can compare and remove it.
type FuncHandler struct {
	name       string
	eventTypes []string
	fn         func(ctx context.Context, event shared.DomainEvent) error
}

// NewFuncHandler creates a handler for eventTypes; none means every event
func NewFuncHandler(name string, fn func(ctx context.Context, event shared.DomainEvent) error, eventTypes ...string) *FuncHandler {
	return &FuncHandler{name: name, eventTypes: eventTypes, fn: fn}
}

// Handle calls the wrapped function
func (h *FuncHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	return h.fn(ctx, event)
}

// EventTypes returns the subscribed event types
func (h *FuncHandler) EventTypes() []string {
	return h.eventTypes
}

// Name identifies the handler in logs
func (h *FuncHandler) Name() string {
	return h.name
}

var _ shared.EventHandler = (*FuncHandler)(nil)
