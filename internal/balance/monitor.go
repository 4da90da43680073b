// Package balance raises alerts from account balance snapshots: low
// balance, overdraft proximity, and large single-step movements against the
// previously observed balance.
package balance

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"LedgerSentinel/internal/event"
	"LedgerSentinel/internal/model"
	"LedgerSentinel/internal/store"
)

const (
	// dedupWindow suppresses repeat alerts of the same type per account.
	dedupWindow = 24 * time.Hour

	maxAlerts = 200
)

// Options tunes the monitor. Zero thresholds fall back to defaults.
type Options struct {
	LowBalance      float64 // default 100
	OverdraftBuffer float64 // default 50, applied to available balance
	LargeWithdrawal float64 // default 500, single-step decrease
	LargeDeposit    float64 // default 1000, single-step increase
	Now             func() time.Time
}

type document struct {
	Snapshots map[string]float64   `json:"snapshots"` // account id -> last seen balance
	Alerts    []model.BalanceAlert `json:"alerts"`
}

// Monitor compares each account against fixed thresholds and its previous
// snapshot. Not safe for concurrent use: the host serializes calls into
// each engine.
type Monitor struct {
	store   store.Store
	emitter *event.Emitter
	opt     Options
	now     func() time.Time

	snapshots map[string]float64
	alerts    []model.BalanceAlert
}

// NewMonitor creates a monitor, loading any persisted snapshots and alert
// history. A corrupt document is logged and replaced with empty state.
func NewMonitor(st store.Store, em *event.Emitter, opt Options) *Monitor {
	if opt.LowBalance == 0 {
		opt.LowBalance = 100
	}
	if opt.OverdraftBuffer == 0 {
		opt.OverdraftBuffer = 50
	}
	if opt.LargeWithdrawal == 0 {
		opt.LargeWithdrawal = 500
	}
	if opt.LargeDeposit == 0 {
		opt.LargeDeposit = 1000
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	m := &Monitor{
		store:     st,
		emitter:   em,
		opt:       opt,
		now:       opt.Now,
		snapshots: make(map[string]float64),
	}
	var doc document
	if err := st.Load(&doc); err != nil {
		log.Printf("[WARN] balance: load state failed, starting empty: %v", err)
	} else if doc.Snapshots != nil {
		m.snapshots = doc.Snapshots
		m.alerts = doc.Alerts
	}
	return m
}

// CheckAccounts evaluates every account snapshot and returns the alerts
// raised this pass. Each alert type is deduplicated per account against
// unacknowledged alerts inside the dedup window. The snapshot for each
// account is updated afterwards, so step alerts compare consecutive checks.
func (m *Monitor) CheckAccounts(accounts []model.Account) []model.BalanceAlert {
	now := m.now()
	var raised []model.BalanceAlert

	for _, acc := range accounts {
		prev, seen := m.snapshots[acc.ID]

		if acc.Balance < m.opt.LowBalance {
			raised = m.raise(raised, acc, now, model.AlertLowBalance, model.SeverityWarning, prev, m.opt.LowBalance,
				fmt.Sprintf("%s balance %.2f is below %.2f", acc.Name, acc.Balance, m.opt.LowBalance))
		}
		if acc.AvailableBalance < m.opt.OverdraftBuffer {
			raised = m.raise(raised, acc, now, model.AlertOverdraftNear, model.SeverityCritical, prev, m.opt.OverdraftBuffer,
				fmt.Sprintf("%s available balance %.2f is within %.2f of overdraft", acc.Name, acc.AvailableBalance, m.opt.OverdraftBuffer))
		}
		if seen {
			step := acc.Balance - prev
			if step <= -m.opt.LargeWithdrawal {
				raised = m.raise(raised, acc, now, model.AlertLargeWithdrawal, model.SeverityWarning, prev, m.opt.LargeWithdrawal,
					fmt.Sprintf("%s dropped %.2f since the last check (%.2f -> %.2f)", acc.Name, math.Abs(step), prev, acc.Balance))
			}
			if step >= m.opt.LargeDeposit {
				raised = m.raise(raised, acc, now, model.AlertBalanceIncrease, model.SeverityInfo, prev, m.opt.LargeDeposit,
					fmt.Sprintf("%s rose %.2f since the last check (%.2f -> %.2f)", acc.Name, step, prev, acc.Balance))
			}
		}

		m.snapshots[acc.ID] = acc.Balance
	}

	m.save()
	return raised
}

func (m *Monitor) raise(raised []model.BalanceAlert, acc model.Account, now time.Time, typ model.AlertType, sev model.Severity, prev, threshold float64, msg string) []model.BalanceAlert {
	if m.suppressed(typ, acc.ID, now) {
		return raised
	}
	a := model.BalanceAlert{
		Alert: model.Alert{
			ID:        uuid.NewString(),
			Type:      typ,
			EntityID:  acc.ID,
			Severity:  sev,
			Message:   msg,
			CreatedAt: now,
		},
		AccountID:       acc.ID,
		Balance:         acc.Balance,
		PreviousBalance: prev,
		Threshold:       threshold,
	}
	m.alerts = append(m.alerts, a)
	if m.emitter != nil {
		m.emitter.Emit(event.TypeAlert, a)
	}
	return append(raised, a)
}

func (m *Monitor) suppressed(typ model.AlertType, accountID string, now time.Time) bool {
	for i := range m.alerts {
		if m.alerts[i].Suppresses(typ, accountID, now, dedupWindow) {
			return true
		}
	}
	return false
}

// ActiveAlerts returns unacknowledged alerts, newest first.
func (m *Monitor) ActiveAlerts() []model.BalanceAlert {
	var out []model.BalanceAlert
	for _, a := range m.alerts {
		if !a.Acknowledged {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Acknowledge marks an alert handled so it no longer suppresses repeats.
func (m *Monitor) Acknowledge(alertID string) bool {
	for i := range m.alerts {
		if m.alerts[i].ID == alertID {
			m.alerts[i].Acknowledged = true
			m.save()
			return true
		}
	}
	return false
}

func (m *Monitor) save() {
	if len(m.alerts) > maxAlerts {
		m.alerts = m.alerts[len(m.alerts)-maxAlerts:]
	}
	doc := document{Snapshots: m.snapshots, Alerts: m.alerts}
	if err := m.store.Save(&doc); err != nil {
		log.Printf("[ERROR] balance: save state: %v", err)
	}
}
