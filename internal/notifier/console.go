package notifier

import (
	"context"
	"log"

	"LedgerSentinel/internal/budget"
	"LedgerSentinel/internal/event"
	"LedgerSentinel/internal/model"
)

// ConsoleNotifier logs every engine event. It is always subscribed, so the
// daemon is observable without any chat configured.
type ConsoleNotifier struct{}

func NewConsoleNotifier() *ConsoleNotifier { return &ConsoleNotifier{} }

func (c *ConsoleNotifier) HandleEvent(e event.Event) {
	switch e.Type {
	case event.TypeAlert:
		c.logAlert(e.Payload)
	case event.TypeDetected:
		switch p := e.Payload.(type) {
		case model.RecurringPayment:
			log.Printf("[INFO] detected recurring payment: %s %s %.2f", p.DisplayName, p.Frequency, p.Amount)
		case model.DirectDebit:
			log.Printf("[INFO] detected direct debit: %s %s %.2f", p.DisplayName, p.Frequency, p.ExpectedAmount)
		case model.StandingOrder:
			log.Printf("[INFO] detected standing order: %s %s %.2f", p.DisplayName, p.Frequency, p.ExpectedAmount)
		}
	case event.TypeRollover:
		if ro, ok := e.Payload.(budget.Rollover); ok {
			log.Printf("[INFO] budget rollover: %s, spent %.2f last period, carry over %.2f",
				ro.Budget.Category, ro.SpentLast, ro.Budget.CarryOver)
		}
	}
}

func (c *ConsoleNotifier) logAlert(payload any) {
	var a model.Alert
	switch p := payload.(type) {
	case model.BalanceAlert:
		a = p.Alert
	case model.PriceChangeAlert:
		a = p.Alert
	case model.MissedPaymentAlert:
		a = p.Alert
	case model.BudgetAlert:
		a = p.Alert
	default:
		return
	}
	switch a.Severity {
	case model.SeverityCritical:
		log.Printf("[ERROR] alert [%s]: %s", a.Type, a.Message)
	case model.SeverityWarning:
		log.Printf("[WARN] alert [%s]: %s", a.Type, a.Message)
	default:
		log.Printf("[INFO] alert [%s]: %s", a.Type, a.Message)
	}
}

// TelegramAlerts bridges alert events to a Telegram chat. Only alert events
// are forwarded; detection and rollover chatter stays on the console.
type TelegramAlerts struct {
	notifier *TelegramNotifier
}

func NewTelegramAlerts(t *TelegramNotifier) *TelegramAlerts {
	return &TelegramAlerts{notifier: t}
}

func (t *TelegramAlerts) HandleEvent(e event.Event) {
	if e.Type != event.TypeAlert {
		return
	}
	msg := FormatAlertEvent(e.Payload)
	if msg == "" {
		return
	}
	if err := t.notifier.SendWithRetry(context.Background(), msg, 2); err != nil {
		log.Printf("[ERROR] forward alert to telegram: %v", err)
	}
}
