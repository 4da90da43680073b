package notifier

import (
	"strings"
	"testing"
	"time"

	"LedgerSentinel/internal/model"
)

func TestFormatAlertEvent(t *testing.T) {
	a := model.PriceChangeAlert{
		Alert: model.Alert{
			Type:     model.AlertPriceChange,
			Severity: model.SeverityWarning,
			Message:  "netflix went up",
		},
		Merchant:       "netflix",
		PreviousAmount: 9.99,
		NewAmount:      12.99,
		ChangePercent:  30.03,
	}
	msg := FormatAlertEvent(a)
	for _, want := range []string{"netflix", "£9.99", "£12.99", "+30.0%"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}

	if got := FormatAlertEvent("not an alert"); got != "" {
		t.Errorf("unknown payload formatted as %q, want empty", got)
	}
}

func TestFormatUpcomingTotals(t *testing.T) {
	due := time.Now().Add(48 * time.Hour)
	msg := FormatUpcoming([]model.UpcomingPayment{
		{Merchant: "netflix", Amount: 9.99, Due: due},
		{Merchant: "british gas", Amount: 85, Due: due},
	})
	if !strings.Contains(msg, "£94.99") {
		t.Errorf("message %q missing total £94.99", msg)
	}

	if msg := FormatUpcoming(nil); !strings.Contains(msg, "No upcoming") {
		t.Errorf("empty list message = %q", msg)
	}
}

func TestFormatBudgetsShowsCarryOver(t *testing.T) {
	msg := FormatBudgets([]model.Budget{{
		Category:    "groceries",
		Period:      model.BudgetMonthly,
		Amount:      200,
		CarryOver:   50,
		Spent:       150,
		PercentUsed: 60,
		Active:      true,
	}})
	for _, want := range []string{"groceries", "£150", "£250", "60%", "£50 carried over"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestFormatPredictionOutlook(t *testing.T) {
	msg := FormatPrediction(model.SpendingPrediction{
		CurrentBalance:      1000,
		PredictedSpending:   500,
		PredictedEndBalance: 500,
		DailyBudget:         20,
		DaysRemaining:       25,
		Confidence:          0.6,
		WarningLevel:        model.WarningOK,
		GeneratedAt:         time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC),
	})
	for _, want := range []string{"25 days left", "£500", "ok", "60%"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
