package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"mec/internal/event"
)

const recordColumns = "id, name, event_id, event_name, payload, status, attempts, error_message, created_at, updated_at, published_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		rec          Record
		payload      string
		status       string
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		publishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.Name,
		&rec.EventID,
		&rec.EventName,
		&payload,
		&status,
		&rec.Attempts,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&publishedRaw,
	); err != nil {
		return nil, err
	}
	rec.Payload = []byte(payload)
	rec.Status = Status(status)
	rec.ErrorMessage = errorMessage.String
	rec.CreatedAt = scanTime(createdRaw)
	rec.UpdatedAt = scanTime(updatedRaw)
	rec.PublishedAt = scanTime(publishedRaw)
	return &rec, nil
}

// Enqueue appends an envelope for ev tagged with the producing adapter's name.
// The outbox is append-only; concurrent adapters may enqueue at will.
func (s *Store) Enqueue(ctx context.Context, name string, ev *event.MusicEvent) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("enqueue: message name is required")
	}
	if ev == nil {
		return 0, ErrEmptyEnvelope
	}
	ev.EnsureIDs()
	payload, err := Envelope{Event: ev}.Encode()
	if err != nil {
		return 0, err
	}
	now := s.timestamp()
	res, err := s.exec(ctx,
		`INSERT INTO outbox (name, event_id, event_name, payload, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name, ev.ID, ev.Name, string(payload), StatusPending, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", name, err)
	}
	return res.LastInsertId()
}

// Get returns one row by id.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM outbox WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get outbox row %d: %w", id, err)
	}
	return rec, nil
}

// Pending returns up to limit pending rows in insertion order.
func (s *Store) Pending(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.query(ctx,
		"SELECT "+recordColumns+" FROM outbox WHERE status = ? ORDER BY id LIMIT ?",
		StatusPending, limit,
	)
}

// List returns rows filtered by status, newest first. No statuses means all rows.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Record, error) {
	query := "SELECT " + recordColumns + " FROM outbox"
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(statuses)) + ")"
		for _, st := range statuses {
			args = append(args, st)
		}
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkPublished records a successful hand-off to the broker.
func (s *Store) MarkPublished(ctx context.Context, id int64) error {
	now := s.timestamp()
	_, err := s.exec(ctx,
		`UPDATE outbox SET status = ?, attempts = attempts + 1, error_message = NULL, updated_at = ?, published_at = ?
		 WHERE id = ?`,
		StatusPublished, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("mark published %d: %w", id, err)
	}
	return nil
}

// MarkFailed records a failed publish attempt. The row returns to pending
// while FailureStatus allows another attempt.
func (s *Store) MarkFailed(ctx context.Context, id int64, cause error) (Status, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", fmt.Errorf("mark failed %d: row not found", id)
	}
	attempts := rec.Attempts + 1
	status := FailureStatus(cause, attempts)
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err = s.exec(ctx,
		`UPDATE outbox SET status = ?, attempts = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, attempts, nullableString(msg), s.timestamp(), id,
	)
	if err != nil {
		return "", fmt.Errorf("mark failed %d: %w", id, err)
	}
	return status, nil
}

// Retry resets failed rows to pending. No ids means every failed row.
func (s *Store) Retry(ctx context.Context, ids ...int64) (int64, error) {
	query := `UPDATE outbox SET status = ?, attempts = 0, error_message = NULL, updated_at = ? WHERE status = ?`
	args := []any{StatusPending, s.timestamp(), StatusFailed}
	if len(ids) > 0 {
		query += " AND id IN (" + makePlaceholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry outbox rows: %w", err)
	}
	return res.RowsAffected()
}

// Purge deletes rows in the given statuses. No statuses means published rows.
func (s *Store) Purge(ctx context.Context, statuses ...Status) (int64, error) {
	if len(statuses) == 0 {
		statuses = []Status{StatusPublished}
	}
	args := make([]any, 0, len(statuses))
	for _, st := range statuses {
		args = append(args, st)
	}
	res, err := s.exec(ctx, "DELETE FROM outbox WHERE status IN ("+makePlaceholders(len(statuses))+")", args...)
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return res.RowsAffected()
}

// Stats counts rows per status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM outbox GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("outbox stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		switch status {
		case StatusPending:
			stats.Pending = count
		case StatusPublished:
			stats.Published = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}
