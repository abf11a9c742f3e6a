package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mec/internal/schedule"
)

// ScheduleRecord is a persisted adapter schedule plus the adapter's resume
// cursor, if it keeps one.
type ScheduleRecord struct {
	schedule.Snapshot
	Progress string `json:"progress,omitempty"`
}

// SaveSchedule upserts one adapter's schedule snapshot. An empty progress
// keeps the stored cursor.
func (s *Store) SaveSchedule(ctx context.Context, snap schedule.Snapshot, progress string) error {
	_, err := s.exec(ctx,
		`INSERT INTO schedule_state (name, cadence, busy, next_run, last_start, last_finish, last_error, runs, failures, progress, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   cadence = excluded.cadence,
		   busy = excluded.busy,
		   next_run = excluded.next_run,
		   last_start = excluded.last_start,
		   last_finish = excluded.last_finish,
		   last_error = excluded.last_error,
		   runs = excluded.runs,
		   failures = excluded.failures,
		   progress = COALESCE(excluded.progress, schedule_state.progress),
		   updated_at = excluded.updated_at`,
		snap.Name,
		snap.Cadence,
		boolToInt(snap.Busy),
		nullableTime(snap.NextRun),
		nullableTime(snap.LastStart),
		nullableTime(snap.LastFinish),
		nullableString(snap.LastError),
		snap.Runs,
		snap.Failures,
		nullableString(progress),
		s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("save schedule %s: %w", snap.Name, err)
	}
	return nil
}

const scheduleColumns = "name, cadence, busy, next_run, last_start, last_finish, last_error, runs, failures, progress"

func scanSchedule(scanner interface{ Scan(dest ...any) error }) (*ScheduleRecord, error) {
	var (
		rec        ScheduleRecord
		busy       int
		nextRun    sql.NullString
		lastStart  sql.NullString
		lastFinish sql.NullString
		lastError  sql.NullString
		progress   sql.NullString
	)
	if err := scanner.Scan(
		&rec.Name,
		&rec.Cadence,
		&busy,
		&nextRun,
		&lastStart,
		&lastFinish,
		&lastError,
		&rec.Runs,
		&rec.Failures,
		&progress,
	); err != nil {
		return nil, err
	}
	rec.Busy = busy != 0
	rec.NextRun = scanTime(nextRun)
	rec.LastStart = scanTime(lastStart)
	rec.LastFinish = scanTime(lastFinish)
	rec.LastError = lastError.String
	rec.Progress = progress.String
	return &rec, nil
}

// LoadSchedule returns one adapter's persisted schedule, or nil when none exists.
func (s *Store) LoadSchedule(ctx context.Context, name string) (*ScheduleRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+scheduleColumns+" FROM schedule_state WHERE name = ?", name)
	rec, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule %s: %w", name, err)
	}
	return rec, nil
}

// LoadSchedules returns every persisted schedule ordered by adapter name.
func (s *Store) LoadSchedules(ctx context.Context) ([]*ScheduleRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+scheduleColumns+" FROM schedule_state ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}
	defer rows.Close()

	var out []*ScheduleRecord
	for rows.Next() {
		rec, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ClearBusy resets busy flags left behind by a process that died mid-run.
func (s *Store) ClearBusy(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, "UPDATE schedule_state SET busy = 0, updated_at = ? WHERE busy = 1", s.timestamp())
	if err != nil {
		return 0, fmt.Errorf("clear busy schedules: %w", err)
	}
	return res.RowsAffected()
}
