// Package repository keeps a local append-only log of confirmed
// intakes. The spreadsheet sink is the source of truth; this table is
// an audit convenience for the review UI and the CLI.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/yuchiaw/oil-intake/internal/common"
	"github.com/yuchiaw/oil-intake/internal/entity"
)

// HistoryRepository records confirmed intakes and lists recent ones.
type HistoryRepository interface {
	Record(ctx context.Context, rec entity.Intake) error
	ListRecent(ctx context.Context, limit int) ([]entity.Intake, error)
}

type historyRepository struct {
	db *sqlx.DB
}

// OpenDB opens (or creates) the sqlite history database and ensures the
// schema exists.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS intakes(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  price TEXT NOT NULL DEFAULT '',
  volume TEXT NOT NULL DEFAULT '',
  expiry TEXT NOT NULL DEFAULT '',
  batch_code TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_intakes_created_at ON intakes(created_at);
`
	_, err := db.Exec(schema)
	return err
}

func NewHistoryRepository(db *sqlx.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// Record inserts one confirmed intake. IDs and timestamps are filled in
// when the caller left them zero.
func (r *historyRepository) Record(ctx context.Context, rec entity.Intake) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO intakes (id, name, price, volume, expiry, batch_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID.String(), rec.Name, rec.Price, rec.Volume, rec.Expiry, rec.BatchCode, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert intake: %w", common.ErrDatabase, err)
	}
	return nil
}

// ListRecent returns the newest confirmed intakes, newest first.
func (r *historyRepository) ListRecent(ctx context.Context, limit int) ([]entity.Intake, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []intakeRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, name, price, volume, expiry, batch_code, created_at
		FROM intakes
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list intakes: %w", common.ErrDatabase, err)
	}
	out := make([]entity.Intake, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// intakeRow exists because sqlite hands back the uuid as TEXT.
type intakeRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Price     string    `db:"price"`
	Volume    string    `db:"volume"`
	Expiry    string    `db:"expiry"`
	BatchCode string    `db:"batch_code"`
	CreatedAt time.Time `db:"created_at"`
}

func (row intakeRow) toEntity() (entity.Intake, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return entity.Intake{}, fmt.Errorf("parse intake id %q: %w", row.ID, err)
	}
	return entity.Intake{
		ID:        id,
		Name:      row.Name,
		Price:     row.Price,
		Volume:    row.Volume,
		Expiry:    row.Expiry,
		BatchCode: row.BatchCode,
		CreatedAt: row.CreatedAt,
	}, nil
}
