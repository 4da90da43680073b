package model

import "time"

// MonthlySummary aggregates one calendar month of transactions, keyed by
// "YYYY-MM". Once written a summary is never recomputed: months are treated
// as closed ledgers.
type MonthlySummary struct {
	Month        string             `json:"month"`
	TotalIncome  float64            `json:"total_income"`
	TotalExpense float64            `json:"total_expense"`
	ByCategory   map[string]float64 `json:"by_category"`
	ByWeekday    [7]float64         `json:"by_weekday"` // indexed by time.Weekday
	Transactions int                `json:"transactions"`
}

// TrendDirection classifies a category's recent spending movement.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// WarningLevel grades a predicted end-of-period balance.
type WarningLevel string

const (
	WarningOK       WarningLevel = "ok"
	WarningCaution  WarningLevel = "caution"
	WarningWarning  WarningLevel = "warning"
	WarningCritical WarningLevel = "critical"
)

// CategoryForecast is the per-category slice of a prediction.
type CategoryForecast struct {
	Category       string         `json:"category"`
	MonthlyAverage float64        `json:"monthly_average"`
	Predicted      float64        `json:"predicted"`
	Trend          TrendDirection `json:"trend"`
}

// UpcomingPayment is a known future outgoing (recurring payment or mandate
// collection) fed into a prediction.
type UpcomingPayment struct {
	Merchant string    `json:"merchant"`
	Amount   float64   `json:"amount"`
	Due      time.Time `json:"due"`
}

// SpendingPrediction is a derived, non-persisted forecast for the rest of
// the current month.
type SpendingPrediction struct {
	CurrentBalance      float64            `json:"current_balance"`
	PredictedSpending   float64            `json:"predicted_spending"`
	PredictedEndBalance float64            `json:"predicted_end_balance"`
	DailyBudget         float64            `json:"daily_budget"`
	DaysRemaining       int                `json:"days_remaining"`
	RecurringTotal      float64            `json:"recurring_total"`
	Confidence          float64            `json:"confidence"`
	Categories          []CategoryForecast `json:"categories"`
	WarningLevel        WarningLevel       `json:"warning_level"`
	GeneratedAt         time.Time          `json:"generated_at"`
}
