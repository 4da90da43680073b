package recorder

import (
	"log"

	"LedgerSentinel/internal/budget"
	"LedgerSentinel/internal/event"
)

// EventBridge persists rollover events. Alerts and detections are recorded
// by the scheduler from the engines' return values; rollovers only surface
// through the emitter, so they need a subscriber.
type EventBridge struct {
	rec Recorder
}

func NewEventBridge(rec Recorder) *EventBridge {
	return &EventBridge{rec: rec}
}

func (b *EventBridge) HandleEvent(e event.Event) {
	if e.Type != event.TypeRollover {
		return
	}
	ro, ok := e.Payload.(budget.Rollover)
	if !ok {
		return
	}
	if err := b.rec.RecordRollover(&RolloverEvent{
		BudgetID:  ro.Budget.ID,
		Category:  ro.Budget.Category,
		Period:    string(ro.Budget.Period),
		CarryOver: ro.Budget.CarryOver,
		SpentLast: ro.SpentLast,
	}); err != nil {
		log.Printf("[ERROR] record rollover: %v", err)
	}
}
