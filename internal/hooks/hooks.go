// Package hooks dispatches pipeline lifecycle events to registered handlers.
package hooks

import (
	"context"
	"sync"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/logging"
)

// Event names for the hook system.
const (
	EventTurnCompleted      = "turn_completed"
	EventEmergencyDetected  = "emergency_detected"
	EventHandoffRecommended = "handoff_recommended"
	EventProviderFailed     = "provider_failed"
	EventGatewayStart       = "gateway_start"
	EventGatewayStop        = "gateway_stop"
)

// AllEvents lists all known hook event names.
var AllEvents = []string{
	EventTurnCompleted,
	EventEmergencyDetected,
	EventHandoffRecommended,
	EventProviderFailed,
	EventGatewayStart,
	EventGatewayStop,
}

// Payload carries event data to hook handlers. Record is set for the
// per-turn events.
type Payload struct {
	Event  string             `json:"event"`
	Record *domain.TurnRecord `json:"record,omitempty"`
	Data   map[string]any     `json:"data,omitempty"`
}

// Handler is a function that handles a hook event.
// Returning an error logs the failure but does not stop processing.
type Handler func(ctx context.Context, p Payload) error

// Manager manages hook registrations and dispatches events.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for the given event.
// The name identifies the handler for logging and debugging.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// Off removes all handlers with the given name from the event.
func (m *Manager) Off(event, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handlers := m.handlers[event]
	filtered := make([]namedHandler, 0, len(handlers))
	for _, h := range handlers {
		if h.name != name {
			filtered = append(filtered, h)
		}
	}
	m.handlers[event] = filtered
}

func (m *Manager) snapshot(event string) []namedHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handlers := make([]namedHandler, len(m.handlers[event]))
	copy(handlers, m.handlers[event])
	return handlers
}

// Emit dispatches p to all handlers of p.Event synchronously, in
// registration order. Errors are logged but do not prevent subsequent
// handlers from running.
func (m *Manager) Emit(ctx context.Context, p Payload) {
	for _, h := range m.snapshot(p.Event) {
		if err := h.handler(ctx, p); err != nil {
			m.log.Warn().
				Err(err).
				Str("event", p.Event).
				Str("handler", h.name).
				Msg("hook handler error")
		}
	}
}

// EmitTurn announces a finished turn: turn_completed always, followed by
// whichever of emergency_detected, handoff_recommended and provider_failed
// the record implies.
func (m *Manager) EmitTurn(ctx context.Context, rec domain.TurnRecord) {
	m.Emit(ctx, Payload{Event: EventTurnCompleted, Record: &rec})

	switch rec.Outcome {
	case domain.OutcomeEmergency:
		m.Emit(ctx, Payload{Event: EventEmergencyDetected, Record: &rec})
	case domain.OutcomeFailed, domain.OutcomeInterrupted:
		m.Emit(ctx, Payload{Event: EventProviderFailed, Record: &rec})
	}
	if rec.HandoffRecommended {
		m.Emit(ctx, Payload{Event: EventHandoffRecommended, Record: &rec})
	}
}

// Count returns the number of handlers registered for an event.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}

// Events returns the list of events that have at least one handler registered.
func (m *Manager) Events() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]string, 0, len(m.handlers))
	for event, handlers := range m.handlers {
		if len(handlers) > 0 {
			events = append(events, event)
		}
	}
	return events
}
