package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// sqliteTimeLayout matches the strftime format below; it sorts lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transaction_records (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id    TEXT NOT NULL UNIQUE,
	owner_id     TEXT NOT NULL,
	raw_text     TEXT NOT NULL,
	amount       TEXT NOT NULL,
	direction    TEXT NOT NULL,
	counterpart  TEXT NOT NULL,
	category     TEXT NOT NULL,
	recorded_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transaction_records_owner
	ON transaction_records (owner_id, recorded_at DESC, seq DESC);

CREATE TABLE IF NOT EXISTS plan_records (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id    TEXT NOT NULL UNIQUE,
	owner_id     TEXT NOT NULL,
	raw_input    TEXT NOT NULL,
	schedule     TEXT NOT NULL,
	recorded_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_plan_records_owner
	ON plan_records (owner_id, recorded_at DESC, seq DESC);
`

// serverNow is evaluated by SQLite, so record timestamps come from the
// database rather than the caller.
const serverNow = `strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

// SQLite is a ledger backed by a local SQLite database file.
type SQLite struct {
	db *sql.DB
}

var _ Ledger = (*SQLite)(nil)

// NewSQLite opens (and if needed creates) the database at dbPath.
func NewSQLite(dbPath string) (*SQLite, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("NewSQLite: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("NewSQLite: creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("NewSQLite: opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't benefit from multiple connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLite: pinging database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLite: applying schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) AppendTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	if rec.OwnerID == "" {
		return fmt.Errorf("SQLite.AppendTransaction: %w", ErrMissingOwner)
	}
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}

	var recordedAt string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO transaction_records
			(record_id, owner_id, raw_text, amount, direction, counterpart, category, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, `+serverNow+`)
		RETURNING recorded_at`,
		id, rec.OwnerID, rec.RawText, rec.Amount.String(), string(rec.Direction), rec.Counterpart, rec.Category,
	).Scan(&recordedAt)
	if err != nil {
		return fmt.Errorf("SQLite.AppendTransaction: %w", translateSQLiteErr(err, id))
	}

	ts, err := time.Parse(sqliteTimeLayout, recordedAt)
	if err != nil {
		return fmt.Errorf("SQLite.AppendTransaction: parsing recorded_at %q: %w", recordedAt, err)
	}
	rec.ID = id
	rec.RecordedAt = ts
	return nil
}

func (s *SQLite) AppendPlan(ctx context.Context, rec *domain.PlanRecord) error {
	if rec.OwnerID == "" {
		return fmt.Errorf("SQLite.AppendPlan: %w", ErrMissingOwner)
	}
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}

	schedule, err := json.Marshal(rec.Schedule)
	if err != nil {
		return fmt.Errorf("SQLite.AppendPlan: encoding schedule: %w", err)
	}

	var recordedAt string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO plan_records (record_id, owner_id, raw_input, schedule, recorded_at)
		VALUES (?, ?, ?, ?, `+serverNow+`)
		RETURNING recorded_at`,
		id, rec.OwnerID, rec.RawInput, string(schedule),
	).Scan(&recordedAt)
	if err != nil {
		return fmt.Errorf("SQLite.AppendPlan: %w", translateSQLiteErr(err, id))
	}

	ts, err := time.Parse(sqliteTimeLayout, recordedAt)
	if err != nil {
		return fmt.Errorf("SQLite.AppendPlan: parsing recorded_at %q: %w", recordedAt, err)
	}
	rec.ID = id
	rec.RecordedAt = ts
	return nil
}

func (s *SQLite) ListTransactions(ctx context.Context, ownerID string) ([]*domain.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, owner_id, raw_text, amount, direction, counterpart, category, recorded_at
		FROM transaction_records
		WHERE owner_id = ?
		ORDER BY recorded_at DESC, seq DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("SQLite.ListTransactions: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.TransactionRecord
	for rows.Next() {
		var (
			rec        domain.TransactionRecord
			amount     string
			direction  string
			recordedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.RawText, &amount, &direction,
			&rec.Counterpart, &rec.Category, &recordedAt); err != nil {
			return nil, fmt.Errorf("SQLite.ListTransactions: scan: %w", err)
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("SQLite.ListTransactions: amount %q: %w", amount, err)
		}
		if rec.RecordedAt, err = time.Parse(sqliteTimeLayout, recordedAt); err != nil {
			return nil, fmt.Errorf("SQLite.ListTransactions: recorded_at %q: %w", recordedAt, err)
		}
		rec.Direction = domain.Direction(direction)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SQLite.ListTransactions: rows: %w", err)
	}
	return out, nil
}

func (s *SQLite) ListPlans(ctx context.Context, ownerID string) ([]*domain.PlanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, owner_id, raw_input, schedule, recorded_at
		FROM plan_records
		WHERE owner_id = ?
		ORDER BY recorded_at DESC, seq DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("SQLite.ListPlans: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.PlanRecord
	for rows.Next() {
		var (
			rec        domain.PlanRecord
			schedule   string
			recordedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.RawInput, &schedule, &recordedAt); err != nil {
			return nil, fmt.Errorf("SQLite.ListPlans: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(schedule), &rec.Schedule); err != nil {
			return nil, fmt.Errorf("SQLite.ListPlans: schedule of %s: %w", rec.ID, err)
		}
		if rec.RecordedAt, err = time.Parse(sqliteTimeLayout, recordedAt); err != nil {
			return nil, fmt.Errorf("SQLite.ListPlans: recorded_at %q: %w", recordedAt, err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SQLite.ListPlans: rows: %w", err)
	}
	return out, nil
}

func translateSQLiteErr(err error, id string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s", ErrDuplicateRecord, id)
	}
	return err
}
