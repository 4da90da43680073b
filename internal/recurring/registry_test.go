package recurring

import (
	"math"
	"testing"
	"time"

	"LedgerSentinel/internal/event"
	"LedgerSentinel/internal/model"
	"LedgerSentinel/internal/store"
)

func tx(id string, date time.Time, amount float64, merchant string) model.BankTransaction {
	return model.BankTransaction{
		ID:          id,
		AccountID:   "acc-1",
		Amount:      amount,
		Currency:    "GBP",
		Date:        date,
		Description: merchant,
	}
}

func monthlyNetflix(n int) []model.BankTransaction {
	txs := make([]model.BankTransaction, 0, n)
	for i := 0; i < n; i++ {
		date := time.Date(2025, time.Month(1+i), 5, 0, 0, 0, 0, time.UTC)
		txs = append(txs, tx("nf-"+string(rune('a'+i)), date, -9.99, "NETFLIX.COM"))
	}
	return txs
}

func TestAnalyze_DetectsMonthlySubscription(t *testing.T) {
	r := NewRegistry(store.NewMemStore(), nil, Options{})

	res := r.Analyze(monthlyNetflix(3))
	if len(res.Detected) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(res.Detected))
	}
	p := res.Detected[0]
	if p.Merchant != "netflix" {
		t.Errorf("merchant key = %q, want netflix", p.Merchant)
	}
	if p.Frequency != model.CadenceMonthly {
		t.Errorf("frequency = %s, want monthly", p.Frequency)
	}
	if p.Amount != 9.99 {
		t.Errorf("amount = %.2f, want 9.99", p.Amount)
	}
	if !p.IsSubscription {
		t.Error("netflix should be flagged as a subscription")
	}
	if p.AnchorDay != 5 {
		t.Errorf("anchor day = %d, want 5", p.AnchorDay)
	}
	if want := time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC); !p.NextExpectedDate.Equal(want) {
		t.Errorf("next expected = %v, want %v", p.NextExpectedDate, want)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	r := NewRegistry(store.NewMemStore(), nil, Options{})
	txs := monthlyNetflix(3)

	first := r.Analyze(txs)
	second := r.Analyze(txs)

	if len(first.Detected) != 1 || len(second.Detected) != 0 {
		t.Errorf("detections = %d then %d, want 1 then 0", len(first.Detected), len(second.Detected))
	}
	if len(second.PriceChanges) != 0 {
		t.Errorf("identical amounts must not raise price changes, got %d", len(second.PriceChanges))
	}
	if got := len(r.Payments(false)); got != 1 {
		t.Errorf("payments = %d, want exactly 1 per merchant", got)
	}
}

func TestAnalyze_PriceChangeAlert(t *testing.T) {
	r := NewRegistry(store.NewMemStore(), nil, Options{})
	txs := monthlyNetflix(3)
	r.Analyze(txs)

	txs = append(txs, tx("nf-d", time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC), -12.99, "NETFLIX.COM"))
	res := r.Analyze(txs)

	if len(res.PriceChanges) != 1 {
		t.Fatalf("expected 1 price change, got %d", len(res.PriceChanges))
	}
	a := res.PriceChanges[0]
	if a.PreviousAmount != 9.99 || a.NewAmount != 12.99 {
		t.Errorf("amounts = %.2f -> %.2f, want 9.99 -> 12.99", a.PreviousAmount, a.NewAmount)
	}
	if math.Abs(a.ChangePercent-30.03) > 0.01 {
		t.Errorf("change percent = %.2f, want ~30.03", a.ChangePercent)
	}

	p := r.Payments(true)[0]
	if p.Amount != 12.99 {
		t.Errorf("stored amount = %.2f, want 12.99", p.Amount)
	}
	if len(p.PriceHistory) != 2 {
		t.Errorf("price history entries = %d, want 2", len(p.PriceHistory))
	}
}

func TestAnalyze_SmallDriftBelowThresholdIgnored(t *testing.T) {
	r := NewRegistry(store.NewMemStore(), nil, Options{})
	txs := monthlyNetflix(3)
	r.Analyze(txs)

	// 2% drift stays under the 5% threshold.
	txs = append(txs, tx("nf-d", time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC), -10.19, "NETFLIX.COM"))
	res := r.Analyze(txs)
	if len(res.PriceChanges) != 0 {
		t.Errorf("expected no price change for 2%% drift, got %d", len(res.PriceChanges))
	}
}

func TestAnalyze_RejectsIrregularAndInconsistentGroups(t *testing.T) {
	r := NewRegistry(store.NewMemStore(), nil, Options{})
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// Irregular gaps {5, 40, 6}.
	irregular := []model.BankTransaction{
		tx("i1", base, -20, "Corner Shop"),
		tx("i2", base.AddDate(0, 0, 5), -20, "Corner Shop"),
		tx("i3", base.AddDate(0, 0, 45), -20, "Corner Shop"),
		tx("i4", base.AddDate(0, 0, 51), -20, "Corner Shop"),
	}
	// Weekly cadence but wildly varying amounts fails the 20% rule.
	inconsistent := []model.BankTransaction{
		tx("w1", base, -10, "Gym Co"),
		tx("w2", base.AddDate(0, 0, 7), -80, "Gym Co"),
		tx("w3", base.AddDate(0, 0, 14), -10, "Gym Co"),
	}
	// Income never counts.
	income := []model.BankTransaction{
		tx("s1", base, 2500, "ACME PAYROLL"),
		tx("s2", base.AddDate(0, 1, 0), 2500, "ACME PAYROLL"),
		tx("s3", base.AddDate(0, 2, 0), 2500, "ACME PAYROLL"),
	}

	all := append(append(irregular, inconsistent...), income...)
	if res := r.Analyze(all); len(res.Detected) != 0 {
		t.Errorf("expected no detections, got %d", len(res.Detected))
	}
}

func TestAnalyze_MonthlyExemptFromAmountConsistency(t *testing.T) {
	r := NewRegistry(store.NewMemStore(), nil, Options{})
	base := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	// A varying monthly bill is still recurring.
	txs := []model.BankTransaction{
		tx("g1", base, -60, "British Gas PLC"),
		tx("g2", base.AddDate(0, 1, 0), -110, "British Gas PLC"),
		tx("g3", base.AddDate(0, 2, 0), -45, "British Gas PLC"),
	}
	if res := r.Analyze(txs); len(res.Detected) != 1 {
		t.Fatalf("expected monthly bill detection despite variance, got %d", len(res.Detected))
	}
}

func TestCheckMissedPayments(t *testing.T) {
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(store.NewMemStore(), nil, Options{Now: func() time.Time { return now }})
	r.Analyze(monthlyNetflix(3)) // next expected: 2025-04-05

	// 10 days past the expected date with a 3-day grace: 7 days overdue.
	now = time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	raised := r.CheckMissedPayments()
	if len(raised) != 1 {
		t.Fatalf("expected 1 missed-payment alert, got %d", len(raised))
	}
	if raised[0].DaysOverdue != 7 {
		t.Errorf("days overdue = %d, want 7", raised[0].DaysOverdue)
	}

	// A repeat check inside the 30-day window is suppressed.
	now = now.AddDate(0, 0, 2)
	if again := r.CheckMissedPayments(); len(again) != 0 {
		t.Errorf("expected dedup inside 30-day window, got %d alerts", len(again))
	}

	// Acknowledging clears the way only after the window logic allows it;
	// an acknowledged alert never suppresses.
	if !r.Acknowledge(raised[0].ID) {
		t.Fatal("acknowledge failed")
	}
	if again := r.CheckMissedPayments(); len(again) != 1 {
		t.Errorf("expected a new alert once the prior one is acknowledged, got %d", len(again))
	}
}

func TestRegistry_PersistsAcrossRestarts(t *testing.T) {
	st := store.NewMemStore()
	r := NewRegistry(st, nil, Options{})
	r.Analyze(monthlyNetflix(3))

	reloaded := NewRegistry(st, nil, Options{})
	payments := reloaded.Payments(true)
	if len(payments) != 1 {
		t.Fatalf("expected 1 payment after reload, got %d", len(payments))
	}
	if payments[0].Merchant != "netflix" {
		t.Errorf("reloaded merchant = %q, want netflix", payments[0].Merchant)
	}

	// Reload plus re-analyze must still not duplicate.
	reloaded.Analyze(monthlyNetflix(3))
	if got := len(reloaded.Payments(false)); got != 1 {
		t.Errorf("payments after reload+analyze = %d, want 1", got)
	}
}

func TestMonthlyTotal(t *testing.T) {
	r := NewRegistry(store.NewMemStore(), nil, Options{})
	base := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	weekly := []model.BankTransaction{
		tx("c1", base, -10, "Coffee Club"),
		tx("c2", base.AddDate(0, 0, 7), -10, "Coffee Club"),
		tx("c3", base.AddDate(0, 0, 14), -10, "Coffee Club"),
	}
	r.Analyze(append(weekly, monthlyNetflix(3)...))

	want := 9.99 + 10*4.33
	if got := r.MonthlyTotal(false); math.Abs(got-want) > 0.001 {
		t.Errorf("MonthlyTotal = %.2f, want %.2f", got, want)
	}
	if got := r.MonthlyTotal(true); math.Abs(got-9.99) > 0.001 {
		t.Errorf("MonthlyTotal(subscriptions) = %.2f, want 9.99", got)
	}
}

func TestAnalyze_EmitsEvents(t *testing.T) {
	em := event.NewEmitter()
	var seen []event.Type
	em.Subscribe(event.HandlerFunc(func(e event.Event) { seen = append(seen, e.Type) }))

	r := NewRegistry(store.NewMemStore(), em, Options{})
	r.Analyze(monthlyNetflix(3))

	if len(seen) != 1 || seen[0] != event.TypeDetected {
		t.Errorf("events = %v, want [detected]", seen)
	}
}

func TestUpcoming(t *testing.T) {
	now := time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC)
	r := NewRegistry(store.NewMemStore(), nil, Options{Now: func() time.Time { return now }})
	spotify := make([]model.BankTransaction, 0, 3)
	for i := 0; i < 3; i++ {
		date := time.Date(2025, time.Month(1+i), 12, 0, 0, 0, 0, time.UTC)
		spotify = append(spotify, tx("sp-"+string(rune('a'+i)), date, -11.99, "SPOTIFY"))
	}
	r.Analyze(append(monthlyNetflix(3), spotify...))

	// Netflix is next due Apr 5, Spotify Apr 12. Both inside 14 days,
	// sorted soonest first.
	up := r.Upcoming(14)
	if len(up) != 2 {
		t.Fatalf("upcoming = %d, want 2", len(up))
	}
	if up[0].Merchant != "NETFLIX.COM" || up[1].Merchant != "SPOTIFY" {
		t.Errorf("order = %q, %q, want netflix then spotify", up[0].Merchant, up[1].Merchant)
	}

	// A payment due exactly at now+days is still inside the window.
	now = time.Date(2025, 3, 22, 0, 0, 0, 0, time.UTC)
	if got := len(r.Upcoming(14)); got != 1 {
		t.Errorf("upcoming with due date on the horizon = %d, want 1", got)
	}
	now = time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC)
	if got := len(r.Upcoming(14)); got != 0 {
		t.Errorf("upcoming a day short of the due date = %d, want 0", got)
	}

	// Recently overdue records stay listed for the grace period.
	now = time.Date(2025, 4, 8, 0, 0, 0, 0, time.UTC)
	up = r.Upcoming(2)
	if len(up) != 1 || up[0].Merchant != "NETFLIX.COM" {
		t.Fatalf("upcoming within grace = %v, want overdue netflix", up)
	}
	now = time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC)
	if got := len(r.Upcoming(2)); got != 0 {
		t.Errorf("upcoming past grace = %d, want 0", got)
	}

	// Deactivated records never surface.
	now = time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC)
	for _, p := range r.Payments(false) {
		r.Deactivate(p.ID)
	}
	if got := len(r.Upcoming(14)); got != 0 {
		t.Errorf("upcoming after deactivation = %d, want 0", got)
	}
}
