package model

import "time"

// Cadence is an inferred payment frequency.
type Cadence string

const (
	CadenceWeekly      Cadence = "weekly"
	CadenceFortnightly Cadence = "fortnightly"
	CadenceMonthly     Cadence = "monthly"
	CadenceQuarterly   Cadence = "quarterly"
	CadenceAnnual      Cadence = "annual"
)

// PricePoint is one entry in a recurring payment's price history.
type PricePoint struct {
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

// RecurringPayment is one detected recurring payment, keyed by the
// normalized merchant. Records are updated in place and only ever marked
// inactive, never deleted.
type RecurringPayment struct {
	ID               string       `json:"id"`
	Merchant         string       `json:"merchant"` // normalized grouping key
	DisplayName      string       `json:"display_name"`
	Frequency        Cadence      `json:"frequency"`
	Amount           float64      `json:"amount"`
	Currency         string       `json:"currency"`
	LastDate         time.Time    `json:"last_date"`
	NextExpectedDate time.Time    `json:"next_expected_date"`
	AnchorDay        int          `json:"anchor_day"`     // day of month, from the latest transaction
	AnchorWeekday    time.Weekday `json:"anchor_weekday"` // for weekly/fortnightly cadences
	PriceHistory     []PricePoint `json:"price_history"`
	IsSubscription   bool         `json:"is_subscription"`
	Active           bool         `json:"active"`
	TransactionIDs   []string     `json:"transaction_ids"`
	FirstSeen        time.Time    `json:"first_seen"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// HasTransaction reports whether the given transaction id already
// contributed to this record.
func (r *RecurringPayment) HasTransaction(id string) bool {
	for _, existing := range r.TransactionIDs {
		if existing == id {
			return true
		}
	}
	return false
}
