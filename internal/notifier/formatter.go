package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"LedgerSentinel/internal/model"
)

// money formats an amount with thousands separators and two decimals.
func money(amount float64) string {
	return "£" + humanize.CommafWithDigits(amount, 2)
}

func severityIcon(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "🚨"
	case model.SeverityWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

// FormatAlertEvent renders any alert payload into a chat message. Unknown
// payloads return "".
func FormatAlertEvent(payload any) string {
	switch a := payload.(type) {
	case model.BalanceAlert:
		return fmt.Sprintf("%s <b>Balance alert</b>\n%s\nBalance: %s", severityIcon(a.Severity), a.Message, money(a.Balance))
	case model.PriceChangeAlert:
		return fmt.Sprintf("%s <b>Price change</b>: %s\n%s → %s (%+.1f%%)",
			severityIcon(a.Severity), a.Merchant, money(a.PreviousAmount), money(a.NewAmount), a.ChangePercent)
	case model.MissedPaymentAlert:
		return fmt.Sprintf("%s <b>Missed payment</b>: %s\nExpected %s on %s — %d days overdue",
			severityIcon(a.Severity), a.Merchant, money(a.ExpectedAmount), a.ExpectedDate.Format("2 Jan"), a.DaysOverdue)
	case model.BudgetAlert:
		return fmt.Sprintf("%s <b>Budget</b>: %s\n%s", severityIcon(a.Severity), a.Category, a.Message)
	default:
		return ""
	}
}

// FormatUpcoming lists payments expected in the coming days.
func FormatUpcoming(payments []model.UpcomingPayment) string {
	if len(payments) == 0 {
		return "📅 No upcoming payments."
	}
	var b strings.Builder
	b.WriteString("📅 <b>Upcoming payments</b>\n\n")
	total := 0.0
	for _, p := range payments {
		b.WriteString(fmt.Sprintf("  %s — %s (%s)\n", p.Merchant, money(p.Amount), humanize.Time(p.Due)))
		total += p.Amount
	}
	b.WriteString(fmt.Sprintf("\nTotal: %s\n", money(total)))
	return b.String()
}

// FormatBudgets renders the budget list with a usage bar per category.
func FormatBudgets(budgets []model.Budget) string {
	if len(budgets) == 0 {
		return "💷 No budgets configured."
	}
	var b strings.Builder
	b.WriteString("💷 <b>Budgets</b>\n\n")
	for _, bd := range budgets {
		if !bd.Active {
			continue
		}
		b.WriteString(fmt.Sprintf("%s (%s): %s of %s — %.0f%%\n",
			bd.Category, bd.Period, money(bd.Spent), money(bd.Limit()), bd.PercentUsed))
		if bd.CarryOver > 0 {
			b.WriteString(fmt.Sprintf("  includes %s carried over\n", money(bd.CarryOver)))
		}
	}
	return b.String()
}

// FormatPrediction renders a spending forecast.
func FormatPrediction(p model.SpendingPrediction) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔮 <b>Forecast</b> | %s\n\n", p.GeneratedAt.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Balance: %s\n", money(p.CurrentBalance)))
	b.WriteString(fmt.Sprintf("Predicted spend (%d days left): %s\n", p.DaysRemaining, money(p.PredictedSpending)))
	if p.RecurringTotal > 0 {
		b.WriteString(fmt.Sprintf("  of which committed: %s\n", money(p.RecurringTotal)))
	}
	b.WriteString(fmt.Sprintf("Predicted month-end balance: %s\n", money(p.PredictedEndBalance)))
	b.WriteString(fmt.Sprintf("Daily budget: %s\n", money(p.DailyBudget)))

	if len(p.Categories) > 0 {
		b.WriteString("\nBy category:\n")
		for _, c := range p.Categories {
			arrow := "→"
			switch c.Trend {
			case model.TrendIncreasing:
				arrow = "↑"
			case model.TrendDecreasing:
				arrow = "↓"
			}
			b.WriteString(fmt.Sprintf("  %s %s %s\n", c.Category, money(c.Predicted), arrow))
		}
	}

	b.WriteString(fmt.Sprintf("\nOutlook: %s (confidence %.0f%%)\n", p.WarningLevel, p.Confidence*100))
	return b.String()
}

// FormatRecurring renders the active recurring payments.
func FormatRecurring(payments []model.RecurringPayment, monthlyTotal float64) string {
	if len(payments) == 0 {
		return "🔁 No recurring payments detected yet."
	}
	var b strings.Builder
	b.WriteString("🔁 <b>Recurring payments</b>\n\n")
	for _, p := range payments {
		if !p.Active {
			continue
		}
		tag := ""
		if p.IsSubscription {
			tag = " · subscription"
		}
		b.WriteString(fmt.Sprintf("%s — %s %s%s\n  next %s\n",
			p.DisplayName, money(p.Amount), p.Frequency, tag, humanize.Time(p.NextExpectedDate)))
	}
	b.WriteString(fmt.Sprintf("\nMonthly equivalent: %s\n", money(monthlyTotal)))
	return b.String()
}

// FormatCommitted renders the mandate commitments.
func FormatCommitted(dds []model.DirectDebit, sos []model.StandingOrder, monthlyTotal float64) string {
	if len(dds) == 0 && len(sos) == 0 {
		return "🏦 No direct debits or standing orders detected yet."
	}
	var b strings.Builder
	b.WriteString("🏦 <b>Committed payments</b>\n\n")
	if len(dds) > 0 {
		b.WriteString("Direct debits:\n")
		for _, dd := range dds {
			if !dd.Active {
				continue
			}
			b.WriteString(fmt.Sprintf("  %s — %s %s, next %s\n",
				dd.DisplayName, money(dd.ExpectedAmount), dd.Frequency, dd.NextCollection.Format("2 Jan")))
		}
	}
	if len(sos) > 0 {
		b.WriteString("Standing orders:\n")
		for _, so := range sos {
			if !so.Active {
				continue
			}
			b.WriteString(fmt.Sprintf("  %s — %s %s, next %s\n",
				so.DisplayName, money(so.ExpectedAmount), so.Frequency, so.NextPayment.Format("2 Jan")))
		}
	}
	b.WriteString(fmt.Sprintf("\nMonthly committed: %s\n", money(monthlyTotal)))
	return b.String()
}

// FormatDigest renders the monthly summary report.
func FormatDigest(summaries []model.MonthlySummary, p model.SpendingPrediction) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>Monthly digest</b> | %s\n\n", time.Now().Format("2006-01")))
	if len(summaries) > 0 {
		last := summaries[len(summaries)-1]
		b.WriteString(fmt.Sprintf("Last summarized month (%s):\n", last.Month))
		b.WriteString(fmt.Sprintf("  income %s, spend %s, %d transactions\n\n",
			money(last.TotalIncome), money(last.TotalExpense), last.Transactions))
	}
	b.WriteString(FormatPrediction(p))
	return b.String()
}
