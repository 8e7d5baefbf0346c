package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// TickRecord is one row of the tick journal: the command consumed on a
// tick and the player/view state after the tick's systems ran.
type TickRecord struct {
	Tick       uint64
	Command    string
	PlayerX    int
	PlayerY    int
	VelocityDX int
	VelocityDY int
	ViewX      int
	ViewY      int
	RecordedAt time.Time
}

// JournalRepo appends tick records for one process run.
type JournalRepo struct {
	db    *DB
	runID int64
}

// NewJournalRepo tags every row written with runID so runs can be told apart.
func NewJournalRepo(db *DB, runID int64) *JournalRepo {
	return &JournalRepo{db: db, runID: runID}
}

func (r *JournalRepo) RunID() int64 { return r.runID }

// WriteTicks writes a batch of records in a single transaction.
func (r *JournalRepo) WriteTicks(ctx context.Context, records []TickRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(
			`INSERT INTO tick_journal (run_id, tick, command, player_x, player_y,
			                           velocity_dx, velocity_dy, view_x, view_y, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (run_id, tick) DO NOTHING`,
			r.runID, int64(rec.Tick), rec.Command, rec.PlayerX, rec.PlayerY,
			rec.VelocityDX, rec.VelocityDY, rec.ViewX, rec.ViewY, rec.RecordedAt,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("journal insert: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("journal batch: %w", err)
	}

	return tx.Commit(ctx)
}

// LastTick returns the highest tick recorded for this run, 0 if none.
func (r *JournalRepo) LastTick(ctx context.Context) (uint64, error) {
	var last int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(tick), 0) FROM tick_journal WHERE run_id = $1`, r.runID,
	).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("journal last tick: %w", err)
	}
	return uint64(last), nil
}
