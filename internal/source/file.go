package source

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"LedgerSentinel/internal/model"
)

// exportDocument is the JSON shape a sync collaborator writes for us.
type exportDocument struct {
	Accounts     []model.Account         `json:"accounts"`
	Transactions []model.BankTransaction `json:"transactions"`
}

// FileSource reads the transaction window from a JSON export document,
// re-reading the file on every call so an external sync process can refresh
// it between scans.
type FileSource struct {
	path string
}

// NewFileSource creates a source backed by the given export file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Name() string { return "file:" + f.path }

// Transactions returns the export's transactions sorted by date ascending.
func (f *FileSource) Transactions() ([]model.BankTransaction, error) {
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	txs := doc.Transactions
	sort.Slice(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })
	return txs, nil
}

// Accounts returns the export's account snapshots.
func (f *FileSource) Accounts() ([]model.Account, error) {
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	return doc.Accounts, nil
}

func (f *FileSource) read() (*exportDocument, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", f.path, err)
	}
	var doc exportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse export %s: %w", f.path, err)
	}
	return &doc, nil
}

// MockSource returns fixed data for development and testing.
type MockSource struct {
	Txs  []model.BankTransaction
	Acct []model.Account
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Transactions() ([]model.BankTransaction, error) { return m.Txs, nil }

func (m *MockSource) Accounts() ([]model.Account, error) { return m.Acct, nil }
