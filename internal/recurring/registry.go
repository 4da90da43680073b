// Package recurring detects and tracks recurring payments from the
// transaction stream.
package recurring

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"LedgerSentinel/internal/event"
	"LedgerSentinel/internal/frequency"
	"LedgerSentinel/internal/model"
	"LedgerSentinel/internal/normalize"
	"LedgerSentinel/internal/store"
)

const (
	// amountTolerance is the consistency requirement for non-monthly
	// cadences: every amount within 20% of the group mean. Monthly is
	// exempt because bills legitimately vary.
	amountTolerance = 0.20

	// missedDedupWindow suppresses repeat missed-payment alerts per record.
	missedDedupWindow = 30 * 24 * time.Hour

	maxAlerts        = 200
	maxPriceHistory  = 24
	maxTrackedTxIDs  = 500
	minGroupSize     = 2
)

// Options tunes the registry. Zero values fall back to defaults.
type Options struct {
	ChangePercent float64  // price-change alert threshold, default 5
	GraceDays     int      // missed-payment grace period, default 3
	ExtraServices []string // additional subscription allowlist entries
	Now           func() time.Time
}

// Result is the outcome of one Analyze pass.
type Result struct {
	Detected     []model.RecurringPayment
	PriceChanges []model.PriceChangeAlert
}

type document struct {
	Payments     map[string]*model.RecurringPayment `json:"payments"`
	PriceAlerts  []model.PriceChangeAlert           `json:"price_alerts"`
	MissedAlerts []model.MissedPaymentAlert         `json:"missed_alerts"`
}

// Registry groups transactions by normalized merchant and maintains one
// RecurringPayment record per merchant. Not safe for concurrent use: the
// host serializes calls into each engine.
type Registry struct {
	store   store.Store
	emitter *event.Emitter

	changePercent float64
	graceDays     int
	allowlist     map[string]bool
	now           func() time.Time

	payments     map[string]*model.RecurringPayment // by id
	byMerchant   map[string]string                  // normalized merchant -> id
	priceAlerts  []model.PriceChangeAlert
	missedAlerts []model.MissedPaymentAlert
}

// NewRegistry creates a registry, loading any persisted state. A corrupt
// document is logged and replaced with empty state.
func NewRegistry(st store.Store, em *event.Emitter, opt Options) *Registry {
	if opt.ChangePercent == 0 {
		opt.ChangePercent = 5
	}
	if opt.GraceDays == 0 {
		opt.GraceDays = 3
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}

	r := &Registry{
		store:         st,
		emitter:       em,
		changePercent: opt.ChangePercent,
		graceDays:     opt.GraceDays,
		allowlist:     buildAllowlist(opt.ExtraServices),
		now:           opt.Now,
		payments:      make(map[string]*model.RecurringPayment),
		byMerchant:    make(map[string]string),
	}

	var doc document
	if err := st.Load(&doc); err != nil {
		log.Printf("[WARN] recurring: load state failed, starting empty: %v", err)
	} else if doc.Payments != nil {
		r.payments = doc.Payments
		r.priceAlerts = doc.PriceAlerts
		r.missedAlerts = doc.MissedAlerts
	}
	for id, p := range r.payments {
		r.byMerchant[p.Merchant] = id
	}
	return r
}

// Analyze groups outgoing transactions by normalized merchant, classifies
// each group's cadence, and creates or updates recurring payment records.
// Calling it twice with the same window is idempotent: the second pass only
// refreshes existing records.
func (r *Registry) Analyze(txs []model.BankTransaction) Result {
	var res Result

	for merchant, group := range groupByMerchant(txs) {
		if len(group) < minGroupSize {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })

		cadence, ok := frequency.Classify(datesOf(group))
		if !ok {
			continue
		}
		if cadence != model.CadenceMonthly && !amountsConsistent(group) {
			continue
		}

		latest := group[len(group)-1]
		if id, exists := r.byMerchant[merchant]; exists {
			if alert, changed := r.update(r.payments[id], cadence, group); changed {
				res.PriceChanges = append(res.PriceChanges, alert)
			}
		} else {
			p := r.create(merchant, cadence, group)
			res.Detected = append(res.Detected, *p)
			log.Printf("[INFO] recurring: detected %s (%s, %.2f %s)", p.DisplayName, p.Frequency, p.Amount, latest.Currency)
		}
	}

	r.save()

	for i := range res.Detected {
		r.emit(event.TypeDetected, res.Detected[i])
	}
	for i := range res.PriceChanges {
		r.emit(event.TypePriceChange, res.PriceChanges[i])
	}
	return res
}

func (r *Registry) create(merchant string, cadence model.Cadence, group []model.BankTransaction) *model.RecurringPayment {
	latest := group[len(group)-1]
	amount := math.Abs(latest.Amount)
	now := r.now()

	p := &model.RecurringPayment{
		ID:               uuid.NewString(),
		Merchant:         merchant,
		DisplayName:      latest.Merchant(),
		Frequency:        cadence,
		Amount:           amount,
		Currency:         latest.Currency,
		LastDate:         latest.Date,
		NextExpectedDate: frequency.Next(latest.Date, cadence, latest.Date.Day()),
		AnchorDay:        latest.Date.Day(),
		AnchorWeekday:    latest.Date.Weekday(),
		PriceHistory:     []model.PricePoint{{Amount: amount, Date: latest.Date}},
		IsSubscription:   r.allowlist[merchant],
		Active:           true,
		FirstSeen:        now,
		UpdatedAt:        now,
	}
	for _, tx := range group {
		p.TransactionIDs = append(p.TransactionIDs, tx.ID)
	}
	r.payments[p.ID] = p
	r.byMerchant[merchant] = p.ID
	return p
}

// update refreshes an existing record from the latest group, emitting a
// price-change alert when the amount moved beyond the threshold.
func (r *Registry) update(p *model.RecurringPayment, cadence model.Cadence, group []model.BankTransaction) (model.PriceChangeAlert, bool) {
	latest := group[len(group)-1]
	newAmount := math.Abs(latest.Amount)
	prevAmount := p.Amount

	var alert model.PriceChangeAlert
	changed := false
	if prevAmount > 0 {
		pct := (newAmount - prevAmount) / prevAmount * 100
		if math.Abs(pct) > r.changePercent {
			alert = model.PriceChangeAlert{
				Alert: model.Alert{
					ID:        uuid.NewString(),
					Type:      model.AlertPriceChange,
					EntityID:  p.ID,
					Severity:  model.SeverityWarning,
					Message:   fmt.Sprintf("%s changed from %.2f to %.2f (%+.2f%%)", p.DisplayName, prevAmount, newAmount, pct),
					CreatedAt: r.now(),
				},
				Merchant:       p.DisplayName,
				PreviousAmount: prevAmount,
				NewAmount:      newAmount,
				ChangePercent:  pct,
			}
			r.priceAlerts = append(r.priceAlerts, alert)
			p.PriceHistory = append(p.PriceHistory, model.PricePoint{Amount: newAmount, Date: latest.Date})
			changed = true
			log.Printf("[INFO] recurring: price change for %s: %.2f -> %.2f", p.DisplayName, prevAmount, newAmount)
		}
	}

	p.Amount = newAmount
	p.Frequency = cadence
	p.DisplayName = latest.Merchant()
	p.LastDate = latest.Date
	p.AnchorDay = latest.Date.Day()
	p.AnchorWeekday = latest.Date.Weekday()
	p.NextExpectedDate = frequency.Next(latest.Date, cadence, p.AnchorDay)
	p.Active = true
	p.UpdatedAt = r.now()

	for _, tx := range group {
		if !p.HasTransaction(tx.ID) {
			p.TransactionIDs = append(p.TransactionIDs, tx.ID)
		}
	}
	if len(p.TransactionIDs) > maxTrackedTxIDs {
		p.TransactionIDs = p.TransactionIDs[len(p.TransactionIDs)-maxTrackedTxIDs:]
	}
	if len(p.PriceHistory) > maxPriceHistory {
		p.PriceHistory = p.PriceHistory[len(p.PriceHistory)-maxPriceHistory:]
	}
	return alert, changed
}

// CheckMissedPayments raises an alert for every active record whose next
// expected date plus grace has passed, deduplicated per record against
// unacknowledged alerts inside a 30-day window.
func (r *Registry) CheckMissedPayments() []model.MissedPaymentAlert {
	now := r.now()
	var raised []model.MissedPaymentAlert

	for _, p := range r.payments {
		if !p.Active || p.NextExpectedDate.IsZero() {
			continue
		}
		graceEnd := p.NextExpectedDate.AddDate(0, 0, r.graceDays)
		if !now.After(graceEnd) {
			continue
		}
		if r.missedSuppressed(p.ID, now) {
			continue
		}

		daysOverdue := int(now.Sub(graceEnd).Hours() / 24)
		alert := model.MissedPaymentAlert{
			Alert: model.Alert{
				ID:        uuid.NewString(),
				Type:      model.AlertMissedPayment,
				EntityID:  p.ID,
				Severity:  model.SeverityWarning,
				Message:   fmt.Sprintf("expected payment to %s (%.2f) is %d day(s) overdue", p.DisplayName, p.Amount, daysOverdue),
				CreatedAt: now,
			},
			Merchant:       p.DisplayName,
			ExpectedAmount: p.Amount,
			ExpectedDate:   p.NextExpectedDate,
			DaysOverdue:    daysOverdue,
		}
		r.missedAlerts = append(r.missedAlerts, alert)
		raised = append(raised, alert)
		log.Printf("[WARN] recurring: missed payment for %s, %d day(s) overdue", p.DisplayName, daysOverdue)
	}

	if len(raised) > 0 {
		r.save()
		for i := range raised {
			r.emit(event.TypeMissed, raised[i])
		}
	}
	return raised
}

func (r *Registry) missedSuppressed(entityID string, now time.Time) bool {
	for i := range r.missedAlerts {
		if r.missedAlerts[i].Suppresses(model.AlertMissedPayment, entityID, now, missedDedupWindow) {
			return true
		}
	}
	return false
}

// Payments returns the tracked records, optionally only active ones,
// sorted by merchant for stable output.
func (r *Registry) Payments(activeOnly bool) []model.RecurringPayment {
	out := make([]model.RecurringPayment, 0, len(r.payments))
	for _, p := range r.payments {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Merchant < out[j].Merchant })
	return out
}

// Upcoming returns active payments expected within the next `days` days,
// soonest first.
func (r *Registry) Upcoming(days int) []model.UpcomingPayment {
	now := r.now()
	horizon := now.AddDate(0, 0, days)
	var out []model.UpcomingPayment
	for _, p := range r.payments {
		if !p.Active || p.NextExpectedDate.IsZero() {
			continue
		}
		if p.NextExpectedDate.After(horizon) || p.NextExpectedDate.Before(now.AddDate(0, 0, -r.graceDays)) {
			continue
		}
		out = append(out, model.UpcomingPayment{Merchant: p.DisplayName, Amount: p.Amount, Due: p.NextExpectedDate})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Due.Before(out[j].Due) })
	return out
}

// MonthlyTotal sums active recurring payments normalized to a monthly
// equivalent. subscriptionsOnly restricts the total to allowlisted services.
func (r *Registry) MonthlyTotal(subscriptionsOnly bool) float64 {
	total := 0.0
	for _, p := range r.payments {
		if !p.Active || (subscriptionsOnly && !p.IsSubscription) {
			continue
		}
		total += p.Amount * frequency.MonthlyFactor(p.Frequency)
	}
	return total
}

// Deactivate marks a record inactive. Records are never deleted.
func (r *Registry) Deactivate(id string) bool {
	p, ok := r.payments[id]
	if !ok || !p.Active {
		return false
	}
	p.Active = false
	p.UpdatedAt = r.now()
	r.save()
	r.emit(event.TypeUpdated, *p)
	return true
}

// PriceChangeAlerts returns unacknowledged price-change alerts.
func (r *Registry) PriceChangeAlerts() []model.PriceChangeAlert {
	var out []model.PriceChangeAlert
	for _, a := range r.priceAlerts {
		if !a.Acknowledged {
			out = append(out, a)
		}
	}
	return out
}

// MissedPaymentAlerts returns unacknowledged missed-payment alerts.
func (r *Registry) MissedPaymentAlerts() []model.MissedPaymentAlert {
	var out []model.MissedPaymentAlert
	for _, a := range r.missedAlerts {
		if !a.Acknowledged {
			out = append(out, a)
		}
	}
	return out
}

// Acknowledge marks the alert with the given id as acknowledged.
func (r *Registry) Acknowledge(alertID string) bool {
	for i := range r.priceAlerts {
		if r.priceAlerts[i].ID == alertID && !r.priceAlerts[i].Acknowledged {
			r.priceAlerts[i].Acknowledged = true
			r.save()
			return true
		}
	}
	for i := range r.missedAlerts {
		if r.missedAlerts[i].ID == alertID && !r.missedAlerts[i].Acknowledged {
			r.missedAlerts[i].Acknowledged = true
			r.save()
			return true
		}
	}
	return false
}

func (r *Registry) save() {
	if len(r.priceAlerts) > maxAlerts {
		r.priceAlerts = r.priceAlerts[len(r.priceAlerts)-maxAlerts:]
	}
	if len(r.missedAlerts) > maxAlerts {
		r.missedAlerts = r.missedAlerts[len(r.missedAlerts)-maxAlerts:]
	}
	doc := document{Payments: r.payments, PriceAlerts: r.priceAlerts, MissedAlerts: r.missedAlerts}
	if err := r.store.Save(doc); err != nil {
		log.Printf("[ERROR] recurring: save state: %v", err)
	}
}

func (r *Registry) emit(typ event.Type, payload any) {
	if r.emitter != nil {
		r.emitter.Emit(typ, payload)
	}
}

func groupByMerchant(txs []model.BankTransaction) map[string][]model.BankTransaction {
	groups := make(map[string][]model.BankTransaction)
	for _, tx := range txs {
		if !tx.Outgoing() {
			continue
		}
		key := normalize.Merchant(tx.Merchant())
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], tx)
	}
	return groups
}

func datesOf(txs []model.BankTransaction) []time.Time {
	dates := make([]time.Time, len(txs))
	for i, tx := range txs {
		dates[i] = tx.Date
	}
	return dates
}

// amountsConsistent requires every amount within 20% of the group mean.
func amountsConsistent(txs []model.BankTransaction) bool {
	if len(txs) == 0 {
		return false
	}
	sum := 0.0
	for _, tx := range txs {
		sum += math.Abs(tx.Amount)
	}
	mean := sum / float64(len(txs))
	if mean == 0 {
		return false
	}
	for _, tx := range txs {
		if math.Abs(math.Abs(tx.Amount)-mean)/mean > amountTolerance {
			return false
		}
	}
	return true
}
