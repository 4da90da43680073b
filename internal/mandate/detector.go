// Package mandate tracks direct debit and standing order mandates. Unlike
// the recurring registry it keys on explicit description markers, not
// payment statistics, and carries mandate-level metadata.
package mandate

import (
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"LedgerSentinel/internal/event"
	"LedgerSentinel/internal/frequency"
	"LedgerSentinel/internal/model"
	"LedgerSentinel/internal/normalize"
	"LedgerSentinel/internal/store"
)

const (
	maxHistory = 50

	// nearZeroVariance decides between "latest amount" and "historical
	// average" for the expected amount.
	nearZeroVariance = 0.01
)

// Options tunes the detector.
type Options struct {
	DirectDebitMarkers   []string
	StandingOrderMarkers []string
	Now                  func() time.Time
}

// group collects the transactions of one mandate candidate along with the
// marker that matched them.
type group struct {
	marker string
	txs    []model.BankTransaction
}

type document struct {
	DirectDebits   map[string]*model.DirectDebit   `json:"direct_debits"`
	StandingOrders map[string]*model.StandingOrder `json:"standing_orders"`
}

// Result is the outcome of one Detect pass.
type Result struct {
	DirectDebits   []model.DirectDebit
	StandingOrders []model.StandingOrder
}

// Detector maintains mandate records grouped by normalized merchant.
// Single-caller-at-a-time, like every engine here.
type Detector struct {
	store   store.Store
	emitter *event.Emitter
	ddMatch *Matcher
	soMatch *Matcher
	now     func() time.Time

	dds          map[string]*model.DirectDebit
	sos          map[string]*model.StandingOrder
	ddByMerchant map[string]string
	soByMerchant map[string]string
}

// NewDetector creates a detector, loading persisted mandates. A corrupt
// document is logged and replaced with empty state.
func NewDetector(st store.Store, em *event.Emitter, opt Options) *Detector {
	if len(opt.DirectDebitMarkers) == 0 {
		opt.DirectDebitMarkers = []string{"direct debit", `\bd/?d\b`}
	}
	if len(opt.StandingOrderMarkers) == 0 {
		opt.StandingOrderMarkers = []string{"standing order", `\bs/?o\b`, `\bsto\b`}
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}

	d := &Detector{
		store:        st,
		emitter:      em,
		ddMatch:      NewMatcher(opt.DirectDebitMarkers),
		soMatch:      NewMatcher(opt.StandingOrderMarkers),
		now:          opt.Now,
		dds:          make(map[string]*model.DirectDebit),
		sos:          make(map[string]*model.StandingOrder),
		ddByMerchant: make(map[string]string),
		soByMerchant: make(map[string]string),
	}

	var doc document
	if err := st.Load(&doc); err != nil {
		log.Printf("[WARN] mandate: load state failed, starting empty: %v", err)
	} else {
		if doc.DirectDebits != nil {
			d.dds = doc.DirectDebits
		}
		if doc.StandingOrders != nil {
			d.sos = doc.StandingOrders
		}
	}
	for id, dd := range d.dds {
		d.ddByMerchant[dd.Merchant] = id
	}
	for id, so := range d.sos {
		d.soByMerchant[so.Merchant] = id
	}
	return d
}

// Detect scans outgoing transactions for mandate markers and creates or
// updates one record per merchant per mandate kind. Amount consistency is
// not required: direct debit amounts legitimately vary.
func (d *Detector) Detect(txs []model.BankTransaction) Result {
	ddGroups := make(map[string]*group)
	soGroups := make(map[string]*group)

	for _, tx := range txs {
		if !tx.Outgoing() {
			continue
		}
		// Standing order markers win when both match: "standing order" is
		// the more specific instrument.
		if marker, ok := d.soMatch.Match(tx.Description); ok {
			addToGroup(soGroups, tx, marker)
		} else if marker, ok := d.ddMatch.Match(tx.Description); ok {
			addToGroup(ddGroups, tx, marker)
		}
	}

	var res Result
	var created, updated int

	for merchant, g := range ddGroups {
		sort.Slice(g.txs, func(i, j int) bool { return g.txs[i].Date.Before(g.txs[j].Date) })
		if id, ok := d.ddByMerchant[merchant]; ok {
			d.refreshDirectDebit(d.dds[id], g.marker, g.txs)
			updated++
		} else {
			dd := d.createDirectDebit(merchant, g.marker, g.txs)
			res.DirectDebits = append(res.DirectDebits, *dd)
			created++
		}
	}
	for merchant, g := range soGroups {
		sort.Slice(g.txs, func(i, j int) bool { return g.txs[i].Date.Before(g.txs[j].Date) })
		if id, ok := d.soByMerchant[merchant]; ok {
			d.refreshStandingOrder(d.sos[id], g.marker, g.txs)
			updated++
		} else {
			so := d.createStandingOrder(merchant, g.marker, g.txs)
			res.StandingOrders = append(res.StandingOrders, *so)
			created++
		}
	}

	if created > 0 || updated > 0 {
		d.save()
	}
	for i := range res.DirectDebits {
		d.emit(event.TypeDetected, res.DirectDebits[i])
	}
	for i := range res.StandingOrders {
		d.emit(event.TypeDetected, res.StandingOrders[i])
	}
	return res
}

func (d *Detector) createDirectDebit(merchant, marker string, txs []model.BankTransaction) *model.DirectDebit {
	latest := txs[len(txs)-1]
	now := d.now()
	dd := &model.DirectDebit{
		ID:          uuid.NewString(),
		Merchant:    merchant,
		DisplayName: mandateLabel(latest, marker),
		Reference:   ExtractReference(latest.Description, marker),
		Currency:    latest.Currency,
		Frequency:   cadenceOf(txs),
		Active:      true,
		FirstSeen:   now,
		UpdatedAt:   now,
	}
	dd.History = collections(txs)
	dd.ExpectedAmount = expectedAmount(dd.History)
	dd.NextCollection = frequency.Next(latest.Date, dd.Frequency, latest.Date.Day())
	d.dds[dd.ID] = dd
	d.ddByMerchant[merchant] = dd.ID
	log.Printf("[INFO] mandate: new direct debit %s (%s, expected %.2f)", dd.DisplayName, dd.Frequency, dd.ExpectedAmount)
	return dd
}

func (d *Detector) refreshDirectDebit(dd *model.DirectDebit, marker string, txs []model.BankTransaction) {
	latest := txs[len(txs)-1]
	dd.History = appendCollections(dd.History, txs)
	dd.Frequency = cadenceOf(txs)
	dd.ExpectedAmount = expectedAmount(dd.History)
	dd.NextCollection = frequency.Next(latest.Date, dd.Frequency, latest.Date.Day())
	dd.DisplayName = mandateLabel(latest, marker)
	dd.Active = true
	dd.UpdatedAt = d.now()
}

func (d *Detector) createStandingOrder(merchant, marker string, txs []model.BankTransaction) *model.StandingOrder {
	latest := txs[len(txs)-1]
	now := d.now()
	so := &model.StandingOrder{
		ID:          uuid.NewString(),
		Merchant:    merchant,
		DisplayName: mandateLabel(latest, marker),
		Reference:   ExtractReference(latest.Description, marker),
		Currency:    latest.Currency,
		Frequency:   cadenceOf(txs),
		Active:      true,
		FirstSeen:   now,
		UpdatedAt:   now,
	}
	so.History = collections(txs)
	so.ExpectedAmount = expectedAmount(so.History)
	so.NextPayment = frequency.Next(latest.Date, so.Frequency, latest.Date.Day())
	d.sos[so.ID] = so
	d.soByMerchant[merchant] = so.ID
	log.Printf("[INFO] mandate: new standing order %s (%s, expected %.2f)", so.DisplayName, so.Frequency, so.ExpectedAmount)
	return so
}

func (d *Detector) refreshStandingOrder(so *model.StandingOrder, marker string, txs []model.BankTransaction) {
	latest := txs[len(txs)-1]
	so.History = appendCollections(so.History, txs)
	so.Frequency = cadenceOf(txs)
	so.ExpectedAmount = expectedAmount(so.History)
	so.NextPayment = frequency.Next(latest.Date, so.Frequency, latest.Date.Day())
	so.DisplayName = mandateLabel(latest, marker)
	so.Active = true
	so.UpdatedAt = d.now()
}

// DirectDebits returns all tracked direct debits, sorted by merchant.
func (d *Detector) DirectDebits() []model.DirectDebit {
	out := make([]model.DirectDebit, 0, len(d.dds))
	for _, dd := range d.dds {
		out = append(out, *dd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Merchant < out[j].Merchant })
	return out
}

// StandingOrders returns all tracked standing orders, sorted by merchant.
func (d *Detector) StandingOrders() []model.StandingOrder {
	out := make([]model.StandingOrder, 0, len(d.sos))
	for _, so := range d.sos {
		out = append(out, *so)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Merchant < out[j].Merchant })
	return out
}

// MonthlyCommitted aggregates all active mandates into a monthly-equivalent
// total using fixed cadence multipliers.
func (d *Detector) MonthlyCommitted() float64 {
	total := 0.0
	for _, dd := range d.dds {
		if dd.Active {
			total += dd.ExpectedAmount * frequency.MonthlyFactor(dd.Frequency)
		}
	}
	for _, so := range d.sos {
		if so.Active {
			total += so.ExpectedAmount * frequency.MonthlyFactor(so.Frequency)
		}
	}
	return total
}

// UpcomingCollections lists mandate collections due within `days` days.
func (d *Detector) UpcomingCollections(days int) []model.UpcomingPayment {
	now := d.now()
	horizon := now.AddDate(0, 0, days)
	var out []model.UpcomingPayment
	for _, dd := range d.dds {
		if dd.Active && !dd.NextCollection.IsZero() && !dd.NextCollection.After(horizon) && !dd.NextCollection.Before(now.AddDate(0, 0, -1)) {
			out = append(out, model.UpcomingPayment{Merchant: dd.DisplayName, Amount: dd.ExpectedAmount, Due: dd.NextCollection})
		}
	}
	for _, so := range d.sos {
		if so.Active && !so.NextPayment.IsZero() && !so.NextPayment.After(horizon) && !so.NextPayment.Before(now.AddDate(0, 0, -1)) {
			out = append(out, model.UpcomingPayment{Merchant: so.DisplayName, Amount: so.ExpectedAmount, Due: so.NextPayment})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Due.Before(out[j].Due) })
	return out
}

// Deactivate marks a mandate inactive by id.
func (d *Detector) Deactivate(id string) bool {
	if dd, ok := d.dds[id]; ok && dd.Active {
		dd.Active = false
		dd.UpdatedAt = d.now()
		d.save()
		d.emit(event.TypeUpdated, *dd)
		return true
	}
	if so, ok := d.sos[id]; ok && so.Active {
		so.Active = false
		so.UpdatedAt = d.now()
		d.save()
		d.emit(event.TypeUpdated, *so)
		return true
	}
	return false
}

func (d *Detector) save() {
	doc := document{DirectDebits: d.dds, StandingOrders: d.sos}
	if err := d.store.Save(doc); err != nil {
		log.Printf("[ERROR] mandate: save state: %v", err)
	}
}

func (d *Detector) emit(typ event.Type, payload any) {
	if d.emitter != nil {
		d.emitter.Emit(typ, payload)
	}
}

// addToGroup buckets the transaction under the marker-stripped merchant key.
func addToGroup(groups map[string]*group, tx model.BankTransaction, marker string) {
	key := normalize.Merchant(mandateLabel(tx, marker))
	if key == "" {
		return
	}
	g := groups[key]
	if g == nil {
		g = &group{marker: marker}
		groups[key] = g
	}
	g.txs = append(g.txs, tx)
}

// mandateLabel is the merchant label with the mandate marker removed.
func mandateLabel(tx model.BankTransaction, marker string) string {
	if tx.MerchantName != "" {
		return tx.MerchantName
	}
	label := strings.Replace(tx.Description, marker, "", 1)
	return strings.Trim(label, " -:/*.")
}

// cadenceOf classifies the group's dates, defaulting to monthly when the
// series is too short or irregular to classify (most UK mandates collect
// monthly).
func cadenceOf(txs []model.BankTransaction) model.Cadence {
	dates := make([]time.Time, len(txs))
	for i, tx := range txs {
		dates[i] = tx.Date
	}
	if c, ok := frequency.Classify(dates); ok {
		return c
	}
	return model.CadenceMonthly
}

func collections(txs []model.BankTransaction) []model.Collection {
	out := make([]model.Collection, 0, len(txs))
	for _, tx := range txs {
		out = append(out, model.Collection{
			Date:          tx.Date,
			Amount:        math.Abs(tx.Amount),
			Status:        model.CollectionCollected,
			TransactionID: tx.ID,
		})
	}
	return out
}

// appendCollections merges new transactions into the history, skipping ones
// already recorded, keeping the bounded tail.
func appendCollections(history []model.Collection, txs []model.BankTransaction) []model.Collection {
	seen := make(map[string]bool, len(history))
	for _, c := range history {
		seen[c.TransactionID] = true
	}
	for _, tx := range txs {
		if seen[tx.ID] {
			continue
		}
		history = append(history, model.Collection{
			Date:          tx.Date,
			Amount:        math.Abs(tx.Amount),
			Status:        model.CollectionCollected,
			TransactionID: tx.ID,
		})
	}
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	return history
}

// expectedAmount is the latest collection when amounts barely vary, else
// the historical average (utility bills vary month to month).
func expectedAmount(history []model.Collection) float64 {
	if len(history) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range history {
		sum += c.Amount
	}
	mean := sum / float64(len(history))
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, c := range history {
		variance += (c.Amount - mean) * (c.Amount - mean)
	}
	variance /= float64(len(history))

	if math.Sqrt(variance)/mean < nearZeroVariance {
		return history[len(history)-1].Amount
	}
	return mean
}
