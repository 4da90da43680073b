package model

import "time"

// CollectionStatus is the outcome of a single mandate collection.
type CollectionStatus string

const (
	CollectionCollected CollectionStatus = "collected"
	CollectionRejected  CollectionStatus = "rejected"
	CollectionReturned  CollectionStatus = "returned"
)

// Collection is one payment taken under a mandate.
type Collection struct {
	Date          time.Time        `json:"date"`
	Amount        float64          `json:"amount"`
	Status        CollectionStatus `json:"status"`
	TransactionID string           `json:"transaction_id"`
}

// DirectDebit is a direct debit mandate, identified by explicit description
// markers rather than payment statistics.
type DirectDebit struct {
	ID                string       `json:"id"`
	Merchant          string       `json:"merchant"` // normalized grouping key
	DisplayName       string       `json:"display_name"`
	Reference         string       `json:"reference,omitempty"`
	ServiceUserNumber string       `json:"service_user_number,omitempty"`
	ExpectedAmount    float64      `json:"expected_amount"`
	Currency          string       `json:"currency"`
	Frequency         Cadence      `json:"frequency"`
	NextCollection    time.Time    `json:"next_collection"`
	History           []Collection `json:"history"`
	Active            bool         `json:"active"`
	FirstSeen         time.Time    `json:"first_seen"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// StandingOrder is a standing order mandate. Sort code and account number
// are only present when the provider exposes them.
type StandingOrder struct {
	ID             string       `json:"id"`
	Merchant       string       `json:"merchant"`
	DisplayName    string       `json:"display_name"`
	Reference      string       `json:"reference,omitempty"`
	SortCode       string       `json:"sort_code,omitempty"`
	AccountNumber  string       `json:"account_number,omitempty"`
	ExpectedAmount float64      `json:"expected_amount"`
	Currency       string       `json:"currency"`
	Frequency      Cadence      `json:"frequency"`
	NextPayment    time.Time    `json:"next_payment"`
	History        []Collection `json:"history"`
	Active         bool         `json:"active"`
	FirstSeen      time.Time    `json:"first_seen"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
