package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Teacher carries the hour account the reconciliation engine maintains.
// CurrentPeriodHours is only ever incremented by ledger-writing schedule
// completions; the monthly rollover rewrites both fields in one pass.
type Teacher struct {
	bun.BaseModel `bun:"table:teachers,alias:t"`

	ID                  int64           `bun:"id,pk,autoincrement"`
	UserID              int64           `bun:"user_id,notnull"`
	Name                string          `bun:"name,notnull"`
	SubjectID           int64           `bun:"subject_id"`
	Featured            bool            `bun:"featured,notnull,default:false"`
	CurrentPeriodHours  decimal.Decimal `bun:"current_hours,notnull,default:0"`
	PreviousPeriodHours decimal.Decimal `bun:"last_hours,notnull,default:0"`
}

// LedgerReasonAutoSettle is recorded on entries written by the daily
// completion job.
const LedgerReasonAutoSettle = "schedule completion auto settlement"

// HourLedgerEntry is an append-only accrual record. Entries are never
// updated or deleted; account balances are reconstructable from them.
type HourLedgerEntry struct {
	bun.BaseModel `bun:"table:hour_ledger,alias:hl"`

	ID               int64           `bun:"id,pk,autoincrement"`
	SubjectUserID    int64           `bun:"subject_user_id,notnull"`
	HoursDelta       decimal.Decimal `bun:"hours_delta,notnull"`
	Reason           string          `bun:"reason,notnull"`
	SourceScheduleID int64           `bun:"source_schedule_id,notnull"`
	CreatedAt        time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// SessionHours converts a schedule's start/end clock times into ledger
// hours: whole minutes divided by 60, rounded half-up to two decimals.
func SessionHours(startTime, endTime string) (decimal.Decimal, error) {
	start, err := time.Parse("15:04", startTime)
	if err != nil {
		return decimal.Zero, err
	}
	end, err := time.Parse("15:04", endTime)
	if err != nil {
		return decimal.Zero, err
	}
	minutes := end.Sub(start).Minutes()
	return decimal.NewFromFloat(minutes).DivRound(decimal.NewFromInt(60), 2), nil
}

// Student carries the monthly adjustment allowance reset by the rollover job.
type Student struct {
	bun.BaseModel `bun:"table:students,alias:st"`

	ID              int64  `bun:"id,pk,autoincrement"`
	UserID          int64  `bun:"user_id,notnull"`
	Name            string `bun:"name,notnull"`
	AdjustmentTimes int    `bun:"adjustment_times,notnull,default:3"`
}

// JobRun is the exactly-once-per-period marker for calendar-boundary jobs.
// A unique (job_name, period) row means the period has been processed.
type JobRun struct {
	bun.BaseModel `bun:"table:job_runs,alias:jr"`

	ID      int64     `bun:"id,pk,autoincrement"`
	JobName string    `bun:"job_name,notnull"`
	Period  string    `bun:"period,notnull"` // e.g. "2026-09"
	RanAt   time.Time `bun:"ran_at,nullzero,notnull,default:current_timestamp"`
}
