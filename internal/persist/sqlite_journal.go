package persist

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// tickJournalRow is the gorm model of a tick_journal row. The schema
// matches the PostgreSQL migration.
type tickJournalRow struct {
	RunID      int64     `gorm:"primaryKey;autoIncrement:false"`
	Tick       int64     `gorm:"primaryKey;autoIncrement:false"`
	Command    string    `gorm:"not null;default:''"`
	PlayerX    int       `gorm:"not null"`
	PlayerY    int       `gorm:"not null"`
	VelocityDX int       `gorm:"column:velocity_dx;not null"`
	VelocityDY int       `gorm:"column:velocity_dy;not null"`
	ViewX      int       `gorm:"not null"`
	ViewY      int       `gorm:"not null"`
	RecordedAt time.Time `gorm:"index;not null"`
}

func (tickJournalRow) TableName() string { return "tick_journal" }

// SQLiteJournal writes the tick journal to a local SQLite file.
type SQLiteJournal struct {
	db    *gorm.DB
	runID int64
	log   *zap.Logger
}

// OpenSQLiteJournal opens (creating if needed) the database at path and
// migrates the journal table.
func OpenSQLiteJournal(path string, runID int64, log *zap.Logger) (*SQLiteJournal, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&tickJournalRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite journal: %w", err)
	}
	log.Info("sqlite journal opened", zap.String("path", path))
	return &SQLiteJournal{db: db, runID: runID, log: log}, nil
}

func (j *SQLiteJournal) RunID() int64 { return j.runID }

// WriteTicks inserts a batch of records in one transaction. Ticks already
// present for this run are skipped.
func (j *SQLiteJournal) WriteTicks(ctx context.Context, records []TickRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]tickJournalRow, len(records))
	for i, rec := range records {
		rows[i] = tickJournalRow{
			RunID:      j.runID,
			Tick:       int64(rec.Tick),
			Command:    rec.Command,
			PlayerX:    rec.PlayerX,
			PlayerY:    rec.PlayerY,
			VelocityDX: rec.VelocityDX,
			VelocityDY: rec.VelocityDY,
			ViewX:      rec.ViewX,
			ViewY:      rec.ViewY,
			RecordedAt: rec.RecordedAt,
		}
	}
	err := j.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, 100).Error
	if err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

// LastTick returns the highest tick recorded for this run, 0 if none.
func (j *SQLiteJournal) LastTick(ctx context.Context) (uint64, error) {
	var last int64
	err := j.db.WithContext(ctx).
		Model(&tickJournalRow{}).
		Where("run_id = ?", j.runID).
		Select("COALESCE(MAX(tick), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, fmt.Errorf("journal last tick: %w", err)
	}
	return uint64(last), nil
}

// Records returns every record of this run in tick order.
func (j *SQLiteJournal) Records(ctx context.Context) ([]TickRecord, error) {
	var rows []tickJournalRow
	if err := j.db.WithContext(ctx).Where("run_id = ?", j.runID).Order("tick").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("journal records: %w", err)
	}
	out := make([]TickRecord, len(rows))
	for i, r := range rows {
		out[i] = TickRecord{
			Tick:       uint64(r.Tick),
			Command:    r.Command,
			PlayerX:    r.PlayerX,
			PlayerY:    r.PlayerY,
			VelocityDX: r.VelocityDX,
			VelocityDY: r.VelocityDY,
			ViewX:      r.ViewX,
			ViewY:      r.ViewY,
			RecordedAt: r.RecordedAt,
		}
	}
	return out, nil
}

func (j *SQLiteJournal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
