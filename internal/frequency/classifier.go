// Package frequency infers payment cadences from irregular date series and
// provides the calendar arithmetic for projecting the next occurrence.
package frequency

import (
	"math"
	"time"

	"LedgerSentinel/internal/model"
)

// maxRelativeSpread is the irregularity cutoff: with three or more samples,
// a gap series whose stddev/mean exceeds this is not trusted.
const maxRelativeSpread = 0.2

// cadence bucket bounds in days. Banks post with a few days of jitter, so
// the buckets are intentionally coarse.
var buckets = []struct {
	min, max float64
	cadence  model.Cadence
}{
	{5, 9, model.CadenceWeekly},
	{12, 16, model.CadenceFortnightly},
	{25, 35, model.CadenceMonthly},
	{85, 100, model.CadenceQuarterly},
	{350, 380, model.CadenceAnnual},
}

// Classify infers a cadence from dates sorted ascending. The second return
// is false when there are fewer than two dates, the series is too irregular,
// or the mean gap falls outside every bucket.
func Classify(dates []time.Time) (model.Cadence, bool) {
	gaps := dayGaps(dates)
	if len(gaps) == 0 {
		return "", false
	}

	mean := meanOf(gaps)
	if mean <= 0 {
		return "", false
	}
	if len(gaps) > 1 && stddevOf(gaps, mean)/mean > maxRelativeSpread {
		return "", false
	}

	for _, b := range buckets {
		if mean >= b.min && mean <= b.max {
			return b.cadence, true
		}
	}
	return "", false
}

// dayGaps returns the whole-day intervals between consecutive dates.
func dayGaps(dates []time.Time) []float64 {
	if len(dates) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, dates[i].Sub(dates[i-1]).Hours()/24)
	}
	return gaps
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddevOf(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return math.Sqrt(variance / float64(len(xs)))
}

// Next projects the occurrence after from. anchorDay is the day-of-month
// anchor used by the monthly-and-longer cadences; it is clamped to the
// length of the target month (anchor 31 in a 30-day month becomes 30).
func Next(from time.Time, c model.Cadence, anchorDay int) time.Time {
	switch c {
	case model.CadenceWeekly:
		return from.AddDate(0, 0, 7)
	case model.CadenceFortnightly:
		return from.AddDate(0, 0, 14)
	case model.CadenceMonthly:
		return onAnchorDay(from, 1, anchorDay)
	case model.CadenceQuarterly:
		return onAnchorDay(from, 3, anchorDay)
	case model.CadenceAnnual:
		return onAnchorDay(from, 12, anchorDay)
	default:
		return from.AddDate(0, 1, 0)
	}
}

func onAnchorDay(from time.Time, monthsAhead, anchorDay int) time.Time {
	if anchorDay <= 0 {
		anchorDay = from.Day()
	}
	first := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location()).AddDate(0, monthsAhead, 0)
	day := anchorDay
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, from.Location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthlyFactor converts one payment at cadence c into a monthly-equivalent
// multiplier.
func MonthlyFactor(c model.Cadence) float64 {
	switch c {
	case model.CadenceWeekly:
		return 4.33
	case model.CadenceFortnightly:
		return 2.17
	case model.CadenceMonthly:
		return 1
	case model.CadenceQuarterly:
		return 1.0 / 3.0
	case model.CadenceAnnual:
		return 1.0 / 12.0
	default:
		return 1
	}
}
