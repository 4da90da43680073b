package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"LedgerSentinel/internal/balance"
	"LedgerSentinel/internal/budget"
	"LedgerSentinel/internal/forecast"
	"LedgerSentinel/internal/mandate"
	"LedgerSentinel/internal/model"
	"LedgerSentinel/internal/notifier"
	"LedgerSentinel/internal/recorder"
	"LedgerSentinel/internal/recurring"
	"LedgerSentinel/internal/source"

	"github.com/robfig/cron/v3"
)

// upcomingWindowDays is how far ahead the digest and /upcoming command look.
const upcomingWindowDays = 14

// Scheduler drives the engines from cron tasks. All tasks share one mutex:
// the engines are single-writer and cron fires on separate goroutines.
type Scheduler struct {
	Cron       *cron.Cron
	Source     source.Source
	Recurring  *recurring.Registry
	Mandates   *mandate.Detector
	Budgets    *budget.Tracker
	Forecaster *forecast.Forecaster
	Balances   *balance.Monitor
	Categorize model.CategoryFn
	Notifier   *notifier.TelegramNotifier
	Recorder   recorder.Recorder
	Ctx        context.Context

	mu sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, src source.Source, reg *recurring.Registry, man *mandate.Detector, bud *budget.Tracker, fc *forecast.Forecaster, bal *balance.Monitor, tn *notifier.TelegramNotifier, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Source:     src,
		Recurring:  reg,
		Mandates:   man,
		Budgets:    bud,
		Forecaster: fc,
		Balances:   bal,
		Categorize: model.CategoryOrDefault,
		Notifier:   tn,
		Recorder:   rec,
		Ctx:        ctx,
	}
}

// RegisterAll registers the scan, missed-payment, balance and digest tasks.
func (s *Scheduler) RegisterAll(scanCron, missedCron, balanceCron, digestCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	if _, err := s.Cron.AddFunc(missedCron, s.missedTask); err != nil {
		return fmt.Errorf("register missed-payment task: %w", err)
	}
	if _, err := s.Cron.AddFunc(balanceCron, s.balanceTask); err != nil {
		return fmt.Errorf("register balance task: %w", err)
	}
	if _, err := s.Cron.AddFunc(digestCron, s.digestTask); err != nil {
		return fmt.Errorf("register digest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunScanNow executes the scan task immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunScanNow() {
	s.scanTask()
}

// scanTask runs the full analysis pass: fetch the transaction window, then
// feed every engine.
func (s *Scheduler) scanTask() {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("[INFO] running scan via %s", s.Source.Name())
	txs, err := s.Source.Transactions()
	if err != nil {
		log.Printf("[ERROR] scan: fetch transactions: %v", err)
		return
	}

	res := s.Recurring.Analyze(txs)
	for i := range res.Detected {
		p := res.Detected[i]
		s.recordDetection("recurring", p.ID, p.Merchant, string(p.Frequency), p.Amount)
	}
	for i := range res.PriceChanges {
		a := res.PriceChanges[i]
		s.recordAlert(a.Type, a.Severity, a.EntityID, a.Message)
	}

	mres := s.Mandates.Detect(txs)
	for i := range mres.DirectDebits {
		dd := mres.DirectDebits[i]
		s.recordDetection("direct_debit", dd.ID, dd.Merchant, string(dd.Frequency), dd.ExpectedAmount)
	}
	for i := range mres.StandingOrders {
		so := mres.StandingOrders[i]
		s.recordDetection("standing_order", so.ID, so.Merchant, string(so.Frequency), so.ExpectedAmount)
	}

	for _, a := range s.Budgets.ProcessTransactions(txs, s.Categorize) {
		s.recordAlert(a.Type, a.Severity, a.EntityID, a.Message)
	}

	if months := s.Forecaster.LearnFromTransactions(txs, s.Categorize); months > 0 {
		log.Printf("[INFO] forecast: learned %d new month(s)", months)
	}

	log.Printf("[INFO] scan done: %d txs, %d recurring detections, %d mandates",
		len(txs), len(res.Detected), len(mres.DirectDebits)+len(mres.StandingOrders))
}

func (s *Scheduler) missedTask() {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Println("[INFO] running missed-payment check")
	for _, a := range s.Recurring.CheckMissedPayments() {
		s.recordAlert(a.Type, a.Severity, a.EntityID, a.Message)
	}
}

func (s *Scheduler) balanceTask() {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.Source.Accounts()
	if err != nil {
		log.Printf("[ERROR] balance check: fetch accounts: %v", err)
		return
	}
	for _, a := range s.Balances.CheckAccounts(accounts) {
		s.recordAlert(a.Type, a.Severity, a.EntityID, a.Message)
	}
}

// digestTask sends the monthly forecast report.
func (s *Scheduler) digestTask() {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Println("[INFO] running monthly digest")
	p, err := s.predict()
	if err != nil {
		log.Printf("[ERROR] digest: %v", err)
		return
	}
	s.trySend(notifier.FormatDigest(s.Forecaster.Summaries(), p))
}

// predict fetches the current balance and runs the forecaster with the
// known upcoming recurring payments and mandate collections.
func (s *Scheduler) predict() (model.SpendingPrediction, error) {
	accounts, err := s.Source.Accounts()
	if err != nil {
		return model.SpendingPrediction{}, fmt.Errorf("fetch accounts: %w", err)
	}
	total := 0.0
	for _, a := range accounts {
		total += a.Balance
	}
	upcoming := append(s.Recurring.Upcoming(upcomingWindowDays), s.Mandates.UpcomingCollections(upcomingWindowDays)...)

	p := s.Forecaster.Predict(total, upcoming)
	if err := s.Recorder.RecordPrediction(&recorder.PredictionEvent{
		Balance:      p.CurrentBalance,
		Spending:     p.PredictedSpending,
		EndBalance:   p.PredictedEndBalance,
		DailyBudget:  p.DailyBudget,
		Confidence:   p.Confidence,
		WarningLevel: string(p.WarningLevel),
	}); err != nil {
		log.Printf("[ERROR] record prediction: %v", err)
	}
	return p, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch command {
	case "/scan":
		go s.scanTask()
		return "Scan started."
	case "/upcoming":
		upcoming := append(s.Recurring.Upcoming(upcomingWindowDays), s.Mandates.UpcomingCollections(upcomingWindowDays)...)
		return notifier.FormatUpcoming(upcoming)
	case "/budgets":
		return notifier.FormatBudgets(s.Budgets.Budgets())
	case "/forecast":
		p, err := s.predict()
		if err != nil {
			return fmt.Sprintf("Forecast failed: %v", err)
		}
		return notifier.FormatPrediction(p)
	case "/recurring":
		return notifier.FormatRecurring(s.Recurring.Payments(true), s.Recurring.MonthlyTotal(false))
	case "/committed":
		return notifier.FormatCommitted(s.Mandates.DirectDebits(), s.Mandates.StandingOrders(), s.Mandates.MonthlyCommitted())
	default:
		return "Commands:\n• /scan\n• /upcoming\n• /budgets\n• /forecast\n• /recurring\n• /committed"
	}
}

func (s *Scheduler) recordDetection(kind, id, merchant, frequency string, amount float64) {
	if err := s.Recorder.RecordDetection(&recorder.DetectionEvent{
		Kind:      kind,
		RecordID:  id,
		Merchant:  merchant,
		Frequency: frequency,
		Amount:    amount,
		New:       true,
	}); err != nil {
		log.Printf("[ERROR] record detection: %v", err)
	}
}

func (s *Scheduler) recordAlert(typ model.AlertType, sev model.Severity, entityID, message string) {
	if err := s.Recorder.RecordAlert(typ, sev, entityID, message); err != nil {
		log.Printf("[ERROR] record alert: %v", err)
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
