// Package budget tracks per-category spending limits with period rollover
// and staged threshold alerts.
package budget

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
	// rolloverCap limits how much unspent budget carries into the next
	// period: at most half of the base amount.
	rolloverCap = 0.5

	// exceededDedupWindow suppresses repeat over-limit alerts per budget.
	exceededDedupWindow = 24 * time.Hour

	maxAlerts = 200
)

// thresholds are the staged warning levels, in ascending order. Each fires
// at most once per period.
var thresholds = []int{50, 75, 90, 100}

// Options tunes the tracker.
type Options struct {
	Now func() time.Time
}

type document struct {
	Budgets map[string]*model.Budget `json:"budgets"`
	Alerts  []model.BudgetAlert      `json:"alerts"`
}

// Rollover is the payload of a rollover event: the budget in its fresh
// period plus the spend of the period that just closed.
type Rollover struct {
	Budget    model.Budget
	SpentLast float64
}

// Tracker maintains category budgets. Not safe for concurrent use: the
// host serializes calls into each engine.
type Tracker struct {
	store   store.Store
	emitter *event.Emitter
	now     func() time.Time

	budgets map[string]*model.Budget // by id
	alerts  []model.BudgetAlert
}

// NewTracker creates a tracker, loading any persisted state. A corrupt
// document is logged and replaced with empty state.
func NewTracker(st store.Store, em *event.Emitter, opt Options) *Tracker {
	if opt.Now == nil {
		opt.Now = time.Now
	}
	t := &Tracker{
		store:   st,
		emitter: em,
		now:     opt.Now,
		budgets: make(map[string]*model.Budget),
	}
	var doc document
	if err := st.Load(&doc); err != nil {
		log.Printf("[WARN] budget: load state failed, starting empty: %v", err)
	} else if doc.Budgets != nil {
		t.budgets = doc.Budgets
		t.alerts = doc.Alerts
	}
	return t
}

// Create adds a budget for a category and opens its first period starting
// now.
func (t *Tracker) Create(category string, amount float64, period model.BudgetPeriod, rollover bool) (*model.Budget, error) {
	if category == "" {
		return nil, fmt.Errorf("budget: category required")
	}
	if amount <= 0 {
		return nil, fmt.Errorf("budget: amount must be positive, got %.2f", amount)
	}
	switch period {
	case model.BudgetWeekly, model.BudgetMonthly, model.BudgetYearly:
	default:
		return nil, fmt.Errorf("budget: unknown period %q", period)
	}

	now := t.now()
	start, end := periodWindow(now, period)
	b := &model.Budget{
		ID:        uuid.NewString(),
		Category:  category,
		Amount:    amount,
		Period:    period,
		StartDate: start,
		EndDate:   end,
		Remaining: amount,
		Rollover:  rollover,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.budgets[b.ID] = b
	t.save()
	t.emit(event.TypeCreated, *b)
	return b, nil
}

// Update changes a budget's amount and rollover flag. The current period's
// spend is kept; remaining and percent used are recomputed against the new
// limit.
func (t *Tracker) Update(id string, amount float64, rollover bool) (*model.Budget, error) {
	b, ok := t.budgets[id]
	if !ok {
		return nil, fmt.Errorf("budget: no budget %s", id)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("budget: amount must be positive, got %.2f", amount)
	}
	b.Amount = amount
	b.Rollover = rollover
	recompute(b)
	b.UpdatedAt = t.now()
	t.save()
	t.emit(event.TypeUpdated, *b)
	return b, nil
}

// Delete removes a budget entirely.
func (t *Tracker) Delete(id string) error {
	b, ok := t.budgets[id]
	if !ok {
		return fmt.Errorf("budget: no budget %s", id)
	}
	delete(t.budgets, id)
	t.save()
	t.emit(event.TypeDeleted, *b)
	return nil
}

// Budgets lists all budgets sorted by category.
func (t *Tracker) Budgets() []model.Budget {
	out := make([]model.Budget, 0, len(t.budgets))
	for _, b := range t.budgets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Get returns one budget by id.
func (t *Tracker) Get(id string) (*model.Budget, bool) {
	b, ok := t.budgets[id]
	if !ok {
		return nil, false
	}
	cp := *b
	return &cp, true
}

// ProcessTransactions reconciles every active budget against the
// transaction stream. Expired periods roll over first, so spending after a
// period boundary lands in the fresh window. Spend for the current window
// is recomputed from scratch each pass, which makes the call idempotent.
func (t *Tracker) ProcessTransactions(txs []model.BankTransaction, categorize model.CategoryFn) []model.BudgetAlert {
	if categorize == nil {
		categorize = model.CategoryOrDefault
	}
	now := t.now()
	var raised []model.BudgetAlert

	for _, b := range t.budgets {
		if !b.Active {
			continue
		}
		if !now.Before(b.EndDate) {
			t.rollover(b, now)
		}

		b.Spent = 0
		for _, tx := range txs {
			if !tx.Outgoing() {
				continue
			}
			if categorize(tx) != b.Category {
				continue
			}
			if tx.Date.Before(b.StartDate) || !tx.Date.Before(b.EndDate) {
				continue
			}
			b.Spent += math.Abs(tx.Amount)
		}
		recompute(b)
		b.UpdatedAt = now

		raised = append(raised, t.checkThresholds(b, now)...)
	}

	t.save()
	return raised
}

// rollover closes the expired period and opens the next one. When the
// budget carries over, up to half of the base amount of unspent budget is
// added to the next period's limit; overspend never carries as debt.
func (t *Tracker) rollover(b *model.Budget, now time.Time) {
	spentLast := b.Spent
	carry := 0.0
	if b.Rollover && b.Remaining > 0 {
		carry = math.Min(b.Remaining, b.Amount*rolloverCap)
	}
	b.CarryOver = carry
	b.Spent = 0
	b.Alert50Sent = false
	b.Alert75Sent = false
	b.Alert90Sent = false
	b.Alert100Sent = false
	b.StartDate, b.EndDate = periodWindow(now, b.Period)
	recompute(b)
	b.UpdatedAt = now
	t.emit(event.TypeRollover, Rollover{Budget: *b, SpentLast: spentLast})
}

// checkThresholds fires each staged alert once per period, plus a
// deduplicated exceeded alert while the budget stays over its limit.
func (t *Tracker) checkThresholds(b *model.Budget, now time.Time) []model.BudgetAlert {
	var raised []model.BudgetAlert

	for _, pct := range thresholds {
		if b.PercentUsed < float64(pct) || thresholdSent(b, pct) {
			continue
		}
		markThreshold(b, pct)
		a := t.newAlert(b, now, pct, model.AlertBudgetThreshold)
		raised = append(raised, a)
	}

	if b.PercentUsed > 100 && !t.suppressed(model.AlertBudgetExceeded, b.ID, now) {
		a := t.newAlert(b, now, 100, model.AlertBudgetExceeded)
		raised = append(raised, a)
	}

	for _, a := range raised {
		t.alerts = append(t.alerts, a)
		t.emit(event.TypeAlert, a)
	}
	return raised
}

func (t *Tracker) newAlert(b *model.Budget, now time.Time, pct int, typ model.AlertType) model.BudgetAlert {
	sev := model.SeverityInfo
	msg := fmt.Sprintf("%s budget at %.0f%%: %.2f of %.2f spent", b.Category, b.PercentUsed, b.Spent, b.Limit())
	switch {
	case typ == model.AlertBudgetExceeded:
		sev = model.SeverityCritical
		msg = fmt.Sprintf("%s budget exceeded: %.2f spent against a limit of %.2f", b.Category, b.Spent, b.Limit())
	case pct >= 90:
		sev = model.SeverityWarning
	}
	return model.BudgetAlert{
		Alert: model.Alert{
			ID:        uuid.NewString(),
			Type:      typ,
			EntityID:  b.ID,
			Severity:  sev,
			Message:   msg,
			CreatedAt: now,
		},
		Category:    b.Category,
		Threshold:   pct,
		Spent:       b.Spent,
		Limit:       b.Limit(),
		PercentUsed: b.PercentUsed,
	}
}

// suppressed reports whether an unacknowledged alert of the same type for
// the same budget exists inside the dedup window.
func (t *Tracker) suppressed(typ model.AlertType, budgetID string, now time.Time) bool {
	for i := range t.alerts {
		if t.alerts[i].Suppresses(typ, budgetID, now, exceededDedupWindow) {
			return true
		}
	}
	return false
}

// Alerts returns the retained alert history, newest first.
func (t *Tracker) Alerts() []model.BudgetAlert {
	out := make([]model.BudgetAlert, len(t.alerts))
	copy(out, t.alerts)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Acknowledge marks an alert handled so it no longer suppresses repeats.
func (t *Tracker) Acknowledge(alertID string) bool {
	for i := range t.alerts {
		if t.alerts[i].ID == alertID {
			t.alerts[i].Acknowledged = true
			t.save()
			return true
		}
	}
	return false
}

func (t *Tracker) emit(typ event.Type, payload any) {
	if t.emitter != nil {
		t.emitter.Emit(typ, payload)
	}
}

func (t *Tracker) save() {
	if len(t.alerts) > maxAlerts {
		t.alerts = t.alerts[len(t.alerts)-maxAlerts:]
	}
	doc := document{Budgets: t.budgets, Alerts: t.alerts}
	if err := t.store.Save(&doc); err != nil {
		log.Printf("[ERROR] budget: save state: %v", err)
	}
}

func recompute(b *model.Budget) {
	limit := b.Limit()
	b.Remaining = limit - b.Spent
	if limit > 0 {
		b.PercentUsed = b.Spent / limit * 100
	} else {
		b.PercentUsed = 0
	}
}

func thresholdSent(b *model.Budget, pct int) bool {
	switch pct {
	case 50:
		return b.Alert50Sent
	case 75:
		return b.Alert75Sent
	case 90:
		return b.Alert90Sent
	default:
		return b.Alert100Sent
	}
}

func markThreshold(b *model.Budget, pct int) {
	switch pct {
	case 50:
		b.Alert50Sent = true
	case 75:
		b.Alert75Sent = true
	case 90:
		b.Alert90Sent = true
	default:
		b.Alert100Sent = true
	}
}

// periodWindow returns the half-open [start, end) window containing now.
// Weekly windows are anchored to Monday; monthly and yearly windows follow
// the calendar.
func periodWindow(now time.Time, period model.BudgetPeriod) (time.Time, time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case model.BudgetWeekly:
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	case model.BudgetYearly:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(1, 0, 0)
	default:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0)
	}
}
