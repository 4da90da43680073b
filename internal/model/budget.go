package model

import "time"

// BudgetPeriod is the accounting window a budget resets over.
type BudgetPeriod string

const (
	BudgetWeekly  BudgetPeriod = "weekly"
	BudgetMonthly BudgetPeriod = "monthly"
	BudgetYearly  BudgetPeriod = "yearly"
)

// Budget tracks spending for one category across a rolling period.
// The four alert flags are reset only on rollover, which is what prevents
// duplicate threshold notifications within one period.
type Budget struct {
	ID          string       `json:"id"`
	Category    string       `json:"category"`
	Amount      float64      `json:"amount"`
	Period      BudgetPeriod `json:"period"`
	StartDate   time.Time    `json:"start_date"`
	EndDate     time.Time    `json:"end_date"`
	Spent       float64      `json:"spent"`
	Remaining   float64      `json:"remaining"`
	PercentUsed float64      `json:"percent_used"`
	CarryOver   float64      `json:"carry_over"`
	Rollover    bool         `json:"rollover"`
	Active      bool         `json:"active"`

	Alert50Sent  bool `json:"alert_50_sent"`
	Alert75Sent  bool `json:"alert_75_sent"`
	Alert90Sent  bool `json:"alert_90_sent"`
	Alert100Sent bool `json:"alert_100_sent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Limit is the total spendable amount for the current period.
func (b *Budget) Limit() float64 { return b.Amount + b.CarryOver }
