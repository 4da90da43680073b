package balance

import (
	"testing"
	"time"

	"LedgerSentinel/internal/event"
	"LedgerSentinel/internal/model"
	"LedgerSentinel/internal/store"
)

func account(id string, balance, available float64) model.Account {
	return model.Account{ID: id, Name: "Current Account", Currency: "GBP", Balance: balance, AvailableBalance: available}
}

func TestLowBalanceDedupedWithinWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	m := NewMonitor(store.NewMemStore(), nil, Options{Now: func() time.Time { return now }})

	accs := []model.Account{account("acc-1", 42, 542)}
	if raised := m.CheckAccounts(accs); len(raised) != 1 || raised[0].Type != model.AlertLowBalance {
		t.Fatalf("first check raised %+v, want one low_balance alert", raised)
	}

	// Second snapshot an hour later still below threshold: suppressed.
	now = now.Add(time.Hour)
	if raised := m.CheckAccounts(accs); len(raised) != 0 {
		t.Fatalf("second check within window raised %d alerts, want 0", len(raised))
	}
	if active := m.ActiveAlerts(); len(active) != 1 {
		t.Fatalf("active alerts = %d, want exactly 1 unacknowledged", len(active))
	}

	// Past the window it fires again.
	now = now.Add(24 * time.Hour)
	if raised := m.CheckAccounts(accs); len(raised) != 1 {
		t.Fatalf("check after window raised %d alerts, want 1", len(raised))
	}
}

func TestAcknowledgeAllowsRealert(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	m := NewMonitor(store.NewMemStore(), nil, Options{Now: func() time.Time { return now }})

	accs := []model.Account{account("acc-1", 42, 542)}
	raised := m.CheckAccounts(accs)
	if !m.Acknowledge(raised[0].ID) {
		t.Fatal("acknowledge failed")
	}
	if active := m.ActiveAlerts(); len(active) != 0 {
		t.Fatalf("active alerts after ack = %d, want 0", len(active))
	}

	now = now.Add(time.Hour)
	if raised := m.CheckAccounts(accs); len(raised) != 1 {
		t.Fatalf("check after ack raised %d alerts, want 1", len(raised))
	}
}

func TestOverdraftBufferUsesAvailableBalance(t *testing.T) {
	m := NewMonitor(store.NewMemStore(), nil, Options{})

	// Balance healthy but available is nearly exhausted.
	raised := m.CheckAccounts([]model.Account{account("acc-1", 900, 20)})
	if len(raised) != 1 || raised[0].Type != model.AlertOverdraftNear {
		t.Fatalf("raised %+v, want one overdraft_near alert", raised)
	}
	if raised[0].Severity != model.SeverityCritical {
		t.Errorf("severity = %s, want critical", raised[0].Severity)
	}
}

func TestLargeStepAlertsCompareConsecutiveSnapshots(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	m := NewMonitor(store.NewMemStore(), nil, Options{Now: func() time.Time { return now }})

	// First sighting establishes the snapshot; no step alert possible.
	if raised := m.CheckAccounts([]model.Account{account("acc-1", 2000, 2500)}); len(raised) != 0 {
		t.Fatalf("first sighting raised %d alerts, want 0", len(raised))
	}

	now = now.Add(time.Hour)
	raised := m.CheckAccounts([]model.Account{account("acc-1", 1200, 1700)})
	if len(raised) != 1 || raised[0].Type != model.AlertLargeWithdrawal {
		t.Fatalf("raised %+v, want one large_withdrawal alert", raised)
	}
	if raised[0].PreviousBalance != 2000 || raised[0].Balance != 1200 {
		t.Errorf("alert balances = %.2f -> %.2f, want 2000 -> 1200", raised[0].PreviousBalance, raised[0].Balance)
	}

	now = now.Add(time.Hour)
	raised = m.CheckAccounts([]model.Account{account("acc-1", 2700, 3200)})
	if len(raised) != 1 || raised[0].Type != model.AlertBalanceIncrease {
		t.Fatalf("raised %+v, want one balance_increase alert", raised)
	}
	if raised[0].Severity != model.SeverityInfo {
		t.Errorf("severity = %s, want info for a deposit", raised[0].Severity)
	}
}

func TestSmallStepsIgnored(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	m := NewMonitor(store.NewMemStore(), nil, Options{Now: func() time.Time { return now }})

	m.CheckAccounts([]model.Account{account("acc-1", 2000, 2500)})
	now = now.Add(time.Hour)
	if raised := m.CheckAccounts([]model.Account{account("acc-1", 1600, 2100)}); len(raised) != 0 {
		t.Fatalf("a 400 step raised %d alerts, want 0 below the 500 threshold", len(raised))
	}
}

func TestDedupIsPerAccountAndType(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	m := NewMonitor(store.NewMemStore(), nil, Options{Now: func() time.Time { return now }})

	m.CheckAccounts([]model.Account{account("acc-1", 42, 542)})

	// A different account tripping the same threshold is not suppressed.
	now = now.Add(time.Hour)
	if raised := m.CheckAccounts([]model.Account{account("acc-2", 30, 530)}); len(raised) != 1 {
		t.Fatalf("second account raised %d alerts, want 1", len(raised))
	}

	// A different alert type on the first account is not suppressed either.
	now = now.Add(time.Hour)
	if raised := m.CheckAccounts([]model.Account{account("acc-1", 42, 10)}); len(raised) != 1 || raised[0].Type != model.AlertOverdraftNear {
		t.Fatalf("raised %+v, want one overdraft_near for acc-1", raised)
	}
}

func TestPersistsSnapshotsAcrossRestarts(t *testing.T) {
	st := store.NewMemStore()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	m := NewMonitor(st, nil, Options{Now: func() time.Time { return now }})
	m.CheckAccounts([]model.Account{account("acc-1", 2000, 2500)})

	// The restarted monitor still has the old snapshot to diff against.
	m2 := NewMonitor(st, nil, Options{Now: func() time.Time { return now.Add(time.Hour) }})
	raised := m2.CheckAccounts([]model.Account{account("acc-1", 1200, 1700)})
	if len(raised) != 1 || raised[0].Type != model.AlertLargeWithdrawal {
		t.Fatalf("restarted monitor raised %+v, want one large_withdrawal", raised)
	}
}

func TestEmitsAlertEvents(t *testing.T) {
	em := event.NewEmitter()
	var got []event.Event
	em.Subscribe(event.HandlerFunc(func(e event.Event) { got = append(got, e) }))

	m := NewMonitor(store.NewMemStore(), em, Options{})
	m.CheckAccounts([]model.Account{account("acc-1", 42, 542)})

	if len(got) != 1 || got[0].Type != event.TypeAlert {
		t.Fatalf("events = %+v, want one alert event", got)
	}
	if _, ok := got[0].Payload.(model.BalanceAlert); !ok {
		t.Errorf("payload type = %T, want model.BalanceAlert", got[0].Payload)
	}
}
