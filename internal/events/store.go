// Package events persists detected smoke events to sqlite and writes
// the snapshot images the dashboard links to.
package events

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Event is one persisted smoke detection.
type Event struct {
	ID              string    `json:"id"`
	CameraID        string    `json:"camera_id"`
	DetectedAt      time.Time `json:"detected_at"`
	MotionCount     int       `json:"motion_count"`
	CountA          int       `json:"count_a"`
	CountB          int       `json:"count_b"`
	MaxDistance     float64   `json:"max_distance"`
	SnapshotFrame   string    `json:"snapshot_frame,omitempty"`
	SnapshotHeatmap string    `json:"snapshot_heatmap,omitempty"`
	Notified        bool      `json:"notified"`
}

// Store wraps the events database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the events database at path and runs
// pending migrations. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open events db: %w", err)
	}
	// sqlite allows one writer; a second connection would fail with
	// SQLITE_BUSY under concurrent sweeps.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrateUp applies all pending embedded migrations.
func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// Not closing m: that would close the underlying DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts an event, assigning an ID when the caller left it
// empty. The assigned ID is written back to the event.
func (s *Store) Record(ctx context.Context, e *Event) error {
	if e.CameraID == "" {
		return fmt.Errorf("event has no camera id")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.DetectedAt.IsZero() {
		e.DetectedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO smoke_events (
			id, camera_id, detected_at, motion_count, count_a, count_b,
			max_distance, snapshot_frame, snapshot_heatmap, notified
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CameraID, e.DetectedAt.UTC(), e.MotionCount, e.CountA, e.CountB,
		e.MaxDistance, e.SnapshotFrame, e.SnapshotHeatmap, boolToInt(e.Notified),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// MarkNotified flags an event as delivered to the alert channel.
func (s *Store) MarkNotified(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE smoke_events SET notified = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("event %s not found", id)
	}
	return nil
}

// Get returns one event by ID.
func (s *Store) Get(ctx context.Context, id string) (Event, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, fmt.Errorf("event %s not found", id)
	}
	return e, err
}

// List returns events newest first. A non-empty cameraID filters to one
// camera; limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, cameraID string, limit int) ([]Event, error) {
	query := selectColumns
	args := []any{}
	if cameraID != "" {
		query += ` WHERE camera_id = ?`
		args = append(args, cameraID)
	}
	query += ` ORDER BY detected_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByCamera returns the number of stored events per camera.
func (s *Store) CountByCamera(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT camera_id, COUNT(*) FROM smoke_events GROUP BY camera_id`)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

const selectColumns = `SELECT id, camera_id, detected_at, motion_count, count_a, count_b,
	max_distance, snapshot_frame, snapshot_heatmap, notified FROM smoke_events`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (Event, error) {
	var e Event
	var frame, heatmap sql.NullString
	var notified int
	err := r.Scan(&e.ID, &e.CameraID, &e.DetectedAt, &e.MotionCount, &e.CountA, &e.CountB,
		&e.MaxDistance, &frame, &heatmap, &notified)
	if err != nil {
		return Event{}, err
	}
	e.SnapshotFrame = frame.String
	e.SnapshotHeatmap = heatmap.String
	e.Notified = notified != 0
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
