package model

import "time"

// TransactionStatus reflects the settlement state reported by the provider.
type TransactionStatus string

const (
	TransactionPosted  TransactionStatus = "posted"
	TransactionPending TransactionStatus = "pending"
)

// BankTransaction is an immutable fact supplied by the external account
// provider. Amount is signed: negative means outgoing.
type BankTransaction struct {
	ID           string            `json:"id"`
	AccountID    string            `json:"account_id"`
	Amount       float64           `json:"amount"`
	Currency     string            `json:"currency"`
	Date         time.Time         `json:"date"`
	Description  string            `json:"description"`
	MerchantName string            `json:"merchant_name,omitempty"`
	Category     string            `json:"category,omitempty"`
	Status       TransactionStatus `json:"status,omitempty"`
}

// Merchant returns the best available merchant label for grouping.
func (t BankTransaction) Merchant() string {
	if t.MerchantName != "" {
		return t.MerchantName
	}
	return t.Description
}

// Outgoing reports whether the transaction moves money out of the account.
func (t BankTransaction) Outgoing() bool { return t.Amount < 0 }

// Account is a balance snapshot for one bank account.
type Account struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Currency         string  `json:"currency"`
	Balance          float64 `json:"balance"`
	AvailableBalance float64 `json:"available_balance"`
}

// CategoryFn assigns a spending category to a transaction. Categorization
// heuristics live outside this engine; the default falls back to the
// transaction's own category field.
type CategoryFn func(BankTransaction) string

// DefaultCategory is used when no categorizer is available.
const DefaultCategory = "uncategorized"

// CategoryOrDefault is the default injected categorizer.
func CategoryOrDefault(t BankTransaction) string {
	if t.Category != "" {
		return t.Category
	}
	return DefaultCategory
}
