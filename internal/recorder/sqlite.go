package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"LedgerSentinel/internal/model"
)

// SQLiteRecorder persists engine history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so external readers do not block the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			type      TEXT,
			severity  TEXT,
			entity_id TEXT,
			message   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(timestamp)`,

		`CREATE TABLE IF NOT EXISTS detections (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			kind      TEXT,
			record_id TEXT,
			merchant  TEXT,
			frequency TEXT,
			amount    REAL,
			is_new    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_ts ON detections(timestamp)`,

		`CREATE TABLE IF NOT EXISTS predictions (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			balance       REAL,
			spending      REAL,
			end_balance   REAL,
			daily_budget  REAL,
			confidence    REAL,
			warning_level TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_ts ON predictions(timestamp)`,

		`CREATE TABLE IF NOT EXISTS budget_rollovers (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			budget_id  TEXT,
			category   TEXT,
			period     TEXT,
			carry_over REAL,
			spent_last REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rollovers_ts ON budget_rollovers(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAlert(typ model.AlertType, severity model.Severity, entityID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO alerts
		(timestamp, type, severity, entity_id, message)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), string(typ), string(severity), entityID, message,
	)
	return err
}

func (r *SQLiteRecorder) RecordDetection(evt *DetectionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	isNew := 0
	if evt.New {
		isNew = 1
	}
	_, err := r.db.Exec(`INSERT INTO detections
		(timestamp, kind, record_id, merchant, frequency, amount, is_new)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Kind, evt.RecordID, evt.Merchant,
		evt.Frequency, evt.Amount, isNew,
	)
	return err
}

func (r *SQLiteRecorder) RecordPrediction(evt *PredictionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO predictions
		(timestamp, balance, spending, end_balance, daily_budget, confidence, warning_level)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Balance, evt.Spending, evt.EndBalance,
		evt.DailyBudget, evt.Confidence, evt.WarningLevel,
	)
	return err
}

func (r *SQLiteRecorder) RecordRollover(evt *RolloverEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO budget_rollovers
		(timestamp, budget_id, category, period, carry_over, spent_last)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), evt.BudgetID, evt.Category, evt.Period,
		evt.CarryOver, evt.SpentLast,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
