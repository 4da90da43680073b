package model

import "time"

// AlertType identifies what condition raised an alert.
type AlertType string

const (
	AlertLowBalance      AlertType = "low_balance"
	AlertOverdraftNear   AlertType = "overdraft_near"
	AlertLargeWithdrawal AlertType = "large_withdrawal"
	AlertBalanceIncrease AlertType = "balance_increase"
	AlertPriceChange     AlertType = "price_change"
	AlertMissedPayment   AlertType = "missed_payment"
	AlertBudgetThreshold AlertType = "budget_threshold"
	AlertBudgetExceeded  AlertType = "budget_exceeded"
)

// Severity grades an alert for the notification layer.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is the common core of every alert record. Alerts are immutable
// events; the only mutation allowed is acknowledgement.
type Alert struct {
	ID           string    `json:"id"`
	Type         AlertType `json:"type"`
	EntityID     string    `json:"entity_id"` // account, recurring payment, mandate or budget id
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
	Acknowledged bool      `json:"acknowledged"`
}

// Suppresses reports whether this alert blocks a repeat of the same
// type/entity raised at t, given the dedup window. Acknowledged alerts
// never suppress.
func (a *Alert) Suppresses(typ AlertType, entityID string, t time.Time, window time.Duration) bool {
	if a.Acknowledged || a.Type != typ || a.EntityID != entityID {
		return false
	}
	return t.Sub(a.CreatedAt) < window
}

// BalanceAlert is raised by the balance monitor.
type BalanceAlert struct {
	Alert
	AccountID       string  `json:"account_id"`
	Balance         float64 `json:"balance"`
	PreviousBalance float64 `json:"previous_balance"`
	Threshold       float64 `json:"threshold"`
}

// PriceChangeAlert is raised when a recurring payment's amount moves more
// than the change threshold.
type PriceChangeAlert struct {
	Alert
	Merchant       string  `json:"merchant"`
	PreviousAmount float64 `json:"previous_amount"`
	NewAmount      float64 `json:"new_amount"`
	ChangePercent  float64 `json:"change_percent"`
}

// MissedPaymentAlert is raised when an expected payment has not appeared
// past its grace period.
type MissedPaymentAlert struct {
	Alert
	Merchant       string    `json:"merchant"`
	ExpectedAmount float64   `json:"expected_amount"`
	ExpectedDate   time.Time `json:"expected_date"`
	DaysOverdue    int       `json:"days_overdue"`
}

// BudgetAlert is raised when a budget crosses a spend threshold.
type BudgetAlert struct {
	Alert
	Category    string  `json:"category"`
	Threshold   int     `json:"threshold"` // percent: 50, 75, 90, 100
	Spent       float64 `json:"spent"`
	Limit       float64 `json:"limit"`
	PercentUsed float64 `json:"percent_used"`
}
