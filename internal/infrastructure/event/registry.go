package event

import (
	"slices"
	"sync"

	"github.com/netcollect/backend/internal/domain/shared"
)

// HandlerRegistry decides which subscribers see a billing event. In a running
// process that is the summary cache invalidator (payments, undos, batch and
// roster changes) and the billing metrics counters (every event type).
//
// Handlers are returned in subscription order, so the cache is invalidated
// before anything later in the chain reads a summary. A handler subscribed
// both to a type and to every event is delivered to once.
type HandlerRegistry struct {
	mu     sync.RWMutex
	order  []shared.EventHandler
	byType map[string][]shared.EventHandler
	all    []shared.EventHandler
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{byType: make(map[string][]shared.EventHandler)}
}

// Register subscribes handler to eventTypes, or to every event when none are given
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !slices.Contains(r.order, handler) {
		r.order = append(r.order, handler)
	}
	if len(eventTypes) == 0 {
		if !slices.Contains(r.all, handler) {
			r.all = append(r.all, handler)
		}
		return
	}
	for _, eventType := range eventTypes {
		if !slices.Contains(r.byType[eventType], handler) {
			r.byType[eventType] = append(r.byType[eventType], handler)
		}
	}
}

// Unregister drops handler from every subscription
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	is := func(h shared.EventHandler) bool { return h == handler }
	r.order = slices.DeleteFunc(r.order, is)
	r.all = slices.DeleteFunc(r.all, is)
	for eventType, handlers := range r.byType {
		if handlers = slices.DeleteFunc(handlers, is); len(handlers) == 0 {
			delete(r.byType, eventType)
		} else {
			r.byType[eventType] = handlers
		}
	}
}

// GetHandlers returns the handlers for eventType in subscription order
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typed := r.byType[eventType]
	out := make([]shared.EventHandler, 0, len(typed)+len(r.all))
	for _, h := range r.order {
		if slices.Contains(typed, h) || slices.Contains(r.all, h) {
			out = append(out, h)
		}
	}
	return out
}

// GetAllHandlers returns every subscribed handler in subscription order
func (r *HandlerRegistry) GetAllHandlers() []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
