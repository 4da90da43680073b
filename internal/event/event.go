// Package event provides a small synchronous observer mechanism. Delivery
// is in-process with no guarantee beyond one call per emitting site.
package event

import "time"

// Type names an engine event.
type Type string

const (
	TypeDetected    Type = "detected"
	TypePriceChange Type = "priceChange"
	TypeMissed      Type = "missed"
	TypeAlert       Type = "alert"
	TypeRollover    Type = "rollover"
	TypeCreated     Type = "created"
	TypeUpdated     Type = "updated"
	TypeDeleted     Type = "deleted"
)

// Event carries a typed payload to subscribers.
type Event struct {
	Type    Type
	Time    time.Time
	Payload any
}

// Handler receives events. Handlers must not block: emission happens inline
// on the caller's goroutine.
type Handler interface {
	HandleEvent(Event)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(Event)

func (f HandlerFunc) HandleEvent(e Event) { f(e) }

// Emitter fans events out to its subscribers synchronously.
type Emitter struct {
	handlers []Handler
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter { return &Emitter{} }

// Subscribe registers a handler for all subsequent events. Not safe for
// concurrent use with Emit; subscribe during wiring, before the scheduler
// starts.
func (e *Emitter) Subscribe(h Handler) {
	e.handlers = append(e.handlers, h)
}

// Emit delivers the event to every subscriber in registration order.
func (e *Emitter) Emit(typ Type, payload any) {
	evt := Event{Type: typ, Time: time.Now(), Payload: payload}
	for _, h := range e.handlers {
		h.HandleEvent(evt)
	}
}
