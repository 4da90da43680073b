// Package source is the input boundary: an external collaborator (bank
// sync, desktop assistant IPC) supplies transactions and account snapshots;
// this engine never pulls from a bank itself.
package source

import (
	"LedgerSentinel/internal/model"
)

// Source supplies the current transaction window and account snapshots.
type Source interface {
	Transactions() ([]model.BankTransaction, error)
	Accounts() ([]model.Account, error)
	Name() string
}
