package recorder

import "LedgerSentinel/internal/model"

// DetectionEvent records one recurring-payment or mandate detection.
type DetectionEvent struct {
	Kind      string // "recurring", "direct_debit" or "standing_order"
	RecordID  string
	Merchant  string
	Frequency string
	Amount    float64
	New       bool
}

// PredictionEvent records a generated spending forecast.
type PredictionEvent struct {
	Balance      float64
	Spending     float64
	EndBalance   float64
	DailyBudget  float64
	Confidence   float64
	WarningLevel string
}

// RolloverEvent records a budget period rollover.
type RolloverEvent struct {
	BudgetID  string
	Category  string
	Period    string
	CarryOver float64
	SpentLast float64
}

// Recorder persists engine history for later analysis.
type Recorder interface {
	RecordAlert(typ model.AlertType, severity model.Severity, entityID, message string) error
	RecordDetection(evt *DetectionEvent) error
	RecordPrediction(evt *PredictionEvent) error
	RecordRollover(evt *RolloverEvent) error
	Close() error
}
