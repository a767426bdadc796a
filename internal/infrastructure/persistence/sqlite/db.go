// Package sqlite implements the repository contracts on SQLite through
// bun. The schema here covers only the tables the cache and reconciliation
// subsystems touch.
package sqlite

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"tutorhub-backend/internal/domain"
)

// Open connects to the SQLite database at dsn and returns a bun handle.
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; a single connection avoids lock errors.
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	return db, nil
}

// CreateSchema creates the tables this module owns if they do not exist.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []interface{}{
		(*domain.Course)(nil),
		(*domain.Teacher)(nil),
		(*domain.Student)(nil),
		(*domain.Enrollment)(nil),
		(*domain.Schedule)(nil),
		(*domain.HourLedgerEntry)(nil),
		(*domain.JobRun)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	// The rollover's exactly-once marker depends on this uniqueness.
	if _, err := db.NewCreateIndex().
		Model((*domain.JobRun)(nil)).
		Index("job_runs_job_period_uq").
		Unique().
		Column("job_name", "period").
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}
	return nil
}
