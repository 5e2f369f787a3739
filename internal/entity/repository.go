package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository persists published discovery configs.
type Repository interface {
	Upsert(ctx context.Context, rec Record) error
	Get(ctx context.Context, configTopic string) (*Record, error)
	List(ctx context.Context) ([]Record, error)
	ListByDevice(ctx context.Context, deviceKey string) ([]Record, error)
	ListStale(ctx context.Context, cycle string) ([]Record, error)
	Delete(ctx context.Context, configTopic string) error
	Count(ctx context.Context) (int, error)
}

// SQLiteRepository implements Repository on the published_entities table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository backed by db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const selectColumns = `SELECT config_topic, unique_id, component, device_key, service, name,
	first_published_at, last_published_at, last_cycle FROM published_entities`

// Upsert inserts rec or refreshes the existing row for its topic.
// first_published_at is kept from the original insert.
func (r *SQLiteRepository) Upsert(ctx context.Context, rec Record) error {
	if rec.ConfigTopic == "" || rec.LastCycle == "" {
		return fmt.Errorf("%w: topic and cycle are required", ErrInvalidRecord)
	}
	now := r.now().UTC().Format(time.RFC3339Nano)

	const query = `INSERT INTO published_entities
		(config_topic, unique_id, component, device_key, service, name,
		 first_published_at, last_published_at, last_cycle)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (config_topic) DO UPDATE SET
			unique_id = excluded.unique_id,
			component = excluded.component,
			device_key = excluded.device_key,
			service = excluded.service,
			name = excluded.name,
			last_published_at = excluded.last_published_at,
			last_cycle = excluded.last_cycle`
	_, err := r.db.ExecContext(ctx, query,
		rec.ConfigTopic, rec.UniqueID, rec.Component, rec.DeviceKey, rec.Service, rec.Name,
		now, now, rec.LastCycle)
	if err != nil {
		return fmt.Errorf("upserting entity %s: %w", rec.ConfigTopic, err)
	}
	return nil
}

// Get returns the record for configTopic.
func (r *SQLiteRepository) Get(ctx context.Context, configTopic string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE config_topic = ?`, configTopic)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, configTopic)
	}
	if err != nil {
		return nil, fmt.Errorf("getting entity %s: %w", configTopic, err)
	}
	return rec, nil
}

// List returns every record ordered by topic.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	return r.query(ctx, selectColumns+` ORDER BY config_topic`)
}

// ListByDevice returns the records of one hub device.
func (r *SQLiteRepository) ListByDevice(ctx context.Context, deviceKey string) ([]Record, error) {
	return r.query(ctx, selectColumns+` WHERE device_key = ? ORDER BY config_topic`, deviceKey)
}

// ListStale returns records not refreshed by cycle.
func (r *SQLiteRepository) ListStale(ctx context.Context, cycle string) ([]Record, error) {
	return r.query(ctx, selectColumns+` WHERE last_cycle <> ? ORDER BY config_topic`, cycle)
}

// Delete removes the record for configTopic. Deleting a missing record is
// not an error.
func (r *SQLiteRepository) Delete(ctx context.Context, configTopic string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM published_entities WHERE config_topic = ?`, configTopic); err != nil {
		return fmt.Errorf("deleting entity %s: %w", configTopic, err)
	}
	return nil
}

// Count returns the number of records.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM published_entities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entities: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var first, last string
	if err := s.Scan(&rec.ConfigTopic, &rec.UniqueID, &rec.Component, &rec.DeviceKey,
		&rec.Service, &rec.Name, &first, &last, &rec.LastCycle); err != nil {
		return nil, err
	}
	rec.FirstPublishedAt = parseTime(first)
	rec.LastPublishedAt = parseTime(last)
	return &rec, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
