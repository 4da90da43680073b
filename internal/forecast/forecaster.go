// Package forecast learns per-weekday and per-category spending patterns
// from monthly summaries and projects the remaining-month spend.
package forecast

import (
	"log"
	"math"
	"sort"
	"time"

	"LedgerSentinel/internal/frequency"
	"LedgerSentinel/internal/model"
	"LedgerSentinel/internal/store"
)

const (
	// confidenceCap bounds every prediction: the model is a heuristic, not
	// a trained forecaster.
	confidenceCap = 0.85

	// thinHistoryConfidence applies below minTrainingMonths of history.
	thinHistoryConfidence = 0.5
	minTrainingMonths     = 3

	// trendBand is the relative change outside which a category trend is
	// classified increasing or decreasing.
	trendBand = 0.10

	// weekdayOccurrences flattens a month's weekday totals into a per-day
	// average. Every calendar month holds four full weeks plus up to three
	// extra days.
	weekdayOccurrences = 4
)

// monthKey formats a time as the summary ledger key.
func monthKey(t time.Time) string { return t.Format("2006-01") }

// Options tunes the forecaster.
type Options struct {
	ProtectedFloor float64 // balance the daily budget will not spend below, default 100
	Now            func() time.Time
}

type document struct {
	Summaries map[string]*model.MonthlySummary `json:"summaries"`
}

// Forecaster keeps the append-only monthly ledger. Not safe for concurrent
// use: the host serializes calls into each engine.
type Forecaster struct {
	store store.Store
	floor float64
	now   func() time.Time

	summaries map[string]*model.MonthlySummary // by "YYYY-MM"
}

// NewForecaster creates a forecaster, loading any persisted summaries. A
// corrupt document is logged and replaced with empty state.
func NewForecaster(st store.Store, opt Options) *Forecaster {
	if opt.ProtectedFloor == 0 {
		opt.ProtectedFloor = 100
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	f := &Forecaster{
		store:     st,
		floor:     opt.ProtectedFloor,
		now:       opt.Now,
		summaries: make(map[string]*model.MonthlySummary),
	}
	var doc document
	if err := st.Load(&doc); err != nil {
		log.Printf("[WARN] forecast: load state failed, starting empty: %v", err)
	} else if doc.Summaries != nil {
		f.summaries = doc.Summaries
	}
	return f
}

// LearnFromTransactions folds the transactions into monthly summaries.
// Months already summarized are skipped entirely: the ledger is append-only
// and a closed month is never recomputed, even when late transactions for
// it arrive. Returns the number of new months learned.
func (f *Forecaster) LearnFromTransactions(txs []model.BankTransaction, categorize model.CategoryFn) int {
	if categorize == nil {
		categorize = model.CategoryOrDefault
	}

	fresh := make(map[string]*model.MonthlySummary)
	for _, tx := range txs {
		key := monthKey(tx.Date)
		if _, closed := f.summaries[key]; closed {
			continue
		}
		s, ok := fresh[key]
		if !ok {
			s = &model.MonthlySummary{Month: key, ByCategory: make(map[string]float64)}
			fresh[key] = s
		}
		s.Transactions++
		if tx.Outgoing() {
			amount := math.Abs(tx.Amount)
			s.TotalExpense += amount
			s.ByCategory[categorize(tx)] += amount
			s.ByWeekday[tx.Date.Weekday()] += amount
		} else {
			s.TotalIncome += tx.Amount
		}
	}

	for key, s := range fresh {
		f.summaries[key] = s
	}
	if len(fresh) > 0 {
		f.save()
	}
	return len(fresh)
}

// Months returns the number of summarized months.
func (f *Forecaster) Months() int { return len(f.summaries) }

// Summaries lists the monthly ledger in chronological order.
func (f *Forecaster) Summaries() []model.MonthlySummary {
	out := make([]model.MonthlySummary, 0, len(f.summaries))
	for _, s := range f.summaries {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// WeekdayAverages is the typical spend per weekday: each month's weekday
// total divided by four occurrences, averaged across observed months.
func (f *Forecaster) WeekdayAverages() [7]float64 {
	var avg [7]float64
	if len(f.summaries) == 0 {
		return avg
	}
	for _, s := range f.summaries {
		for wd, total := range s.ByWeekday {
			avg[wd] += total / weekdayOccurrences
		}
	}
	for wd := range avg {
		avg[wd] /= float64(len(f.summaries))
	}
	return avg
}

// CategoryTrend compares the category's last-three-month average against
// the prior three months.
func (f *Forecaster) CategoryTrend(category string) model.TrendDirection {
	ordered := f.Summaries()
	if len(ordered) < 2 {
		return model.TrendStable
	}
	recent := categoryAverage(lastN(ordered, 3), category)
	prior := categoryAverage(lastN(ordered[:len(ordered)-min(3, len(ordered))], 3), category)
	if prior == 0 {
		return model.TrendStable
	}
	change := (recent - prior) / prior
	switch {
	case change > trendBand:
		return model.TrendIncreasing
	case change < -trendBand:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

// Predict projects spending for the remaining days of the current month:
// known upcoming payments plus the weekday average for every remaining
// calendar day. The daily budget spends the balance down to the protected
// floor after reserving the upcoming total.
func (f *Forecaster) Predict(balance float64, upcoming []model.UpcomingPayment) model.SpendingPrediction {
	now := f.now()
	monthEnd := time.Date(now.Year(), now.Month(), frequency.DaysInMonth(now.Year(), now.Month()), 0, 0, 0, 0, now.Location())
	daysRemaining := monthEnd.Day() - now.Day()

	recurringTotal := 0.0
	for _, u := range upcoming {
		if u.Due.After(now) && u.Due.Before(monthEnd.AddDate(0, 0, 1)) {
			recurringTotal += math.Abs(u.Amount)
		}
	}

	avg := f.WeekdayAverages()
	dayToDay := 0.0
	for d := 1; d <= daysRemaining; d++ {
		dayToDay += avg[now.AddDate(0, 0, d).Weekday()]
	}

	spending := recurringTotal + dayToDay
	end := balance - spending

	daily := 0.0
	if daysRemaining > 0 {
		daily = math.Max(0, (balance-math.Max(end, f.floor)-recurringTotal)/float64(daysRemaining))
	}

	p := model.SpendingPrediction{
		CurrentBalance:      balance,
		PredictedSpending:   spending,
		PredictedEndBalance: end,
		DailyBudget:         daily,
		DaysRemaining:       daysRemaining,
		RecurringTotal:      recurringTotal,
		Confidence:          f.confidence(),
		Categories:          f.categoryBreakdown(dayToDay),
		WarningLevel:        warningLevel(end),
		GeneratedAt:         now,
	}
	return p
}

// confidence is sample-count weighted: it grows with the number of observed
// months but never exceeds the cap, and thin history pins it low.
func (f *Forecaster) confidence() float64 {
	months := len(f.summaries)
	if months < minTrainingMonths {
		return thinHistoryConfidence
	}
	return math.Min(confidenceCap, 0.3+0.1*float64(months))
}

// categoryBreakdown splits the predicted day-to-day spend across categories
// in proportion to their historical shares.
func (f *Forecaster) categoryBreakdown(predicted float64) []model.CategoryForecast {
	months := len(f.summaries)
	if months == 0 {
		return nil
	}
	totals := make(map[string]float64)
	grand := 0.0
	for _, s := range f.summaries {
		for cat, amount := range s.ByCategory {
			totals[cat] += amount
			grand += amount
		}
	}
	if grand == 0 {
		return nil
	}

	out := make([]model.CategoryForecast, 0, len(totals))
	for cat, total := range totals {
		out = append(out, model.CategoryForecast{
			Category:       cat,
			MonthlyAverage: total / float64(months),
			Predicted:      predicted * total / grand,
			Trend:          f.CategoryTrend(cat),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthlyAverage > out[j].MonthlyAverage })
	return out
}

func warningLevel(endBalance float64) model.WarningLevel {
	switch {
	case endBalance < 0:
		return model.WarningCritical
	case endBalance < 100:
		return model.WarningWarning
	case endBalance < 500:
		return model.WarningCaution
	default:
		return model.WarningOK
	}
}

func categoryAverage(summaries []model.MonthlySummary, category string) float64 {
	if len(summaries) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range summaries {
		total += s.ByCategory[category]
	}
	return total / float64(len(summaries))
}

func lastN(summaries []model.MonthlySummary, n int) []model.MonthlySummary {
	if len(summaries) <= n {
		return summaries
	}
	return summaries[len(summaries)-n:]
}

func (f *Forecaster) save() {
	doc := document{Summaries: f.summaries}
	if err := f.store.Save(&doc); err != nil {
		log.Printf("[ERROR] forecast: save state: %v", err)
	}
}
