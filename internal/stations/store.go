// Package stations persists the saved station list in SQLite.
package stations

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"airwave/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users need to delete the database after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible
// version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrNotFound indicates the requested station does not exist.
var ErrNotFound = errors.New("station not found")

// Store manages station persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the station database. A fresh database is
// seeded with a small built-in station list.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.StationDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	for i, station := range defaultStations {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO stations (name, stream_url, art_url, homepage, country, remote_id, position) VALUES (?, ?, ?, ?, ?, ?, ?)",
			station.Name, station.StreamURL, station.ArtURL, station.Homepage, station.Country, station.RemoteID, i,
		); err != nil {
			return fmt.Errorf("seed station %q: %w", station.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

const stationColumns = "id, name, stream_url, art_url, homepage, country, remote_id, position"

func scanStation(scanner interface{ Scan(...any) error }) (Station, error) {
	var st Station
	err := scanner.Scan(&st.ID, &st.Name, &st.StreamURL, &st.ArtURL, &st.Homepage, &st.Country, &st.RemoteID, &st.Position)
	return st, err
}

// List returns every saved station in display order.
func (s *Store) List(ctx context.Context) ([]Station, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+stationColumns+" FROM stations ORDER BY position, id")
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer rows.Close()

	var result []Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stations: %w", err)
	}
	return result, nil
}

// Get returns the station with the given id.
func (s *Store) Get(ctx context.Context, id int64) (Station, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+stationColumns+" FROM stations WHERE id = ?", id)
	st, err := scanStation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Station{}, ErrNotFound
	}
	if err != nil {
		return Station{}, fmt.Errorf("get station %d: %w", id, err)
	}
	return st, nil
}

// Add appends a station to the end of the list. Adding a stream URL that is
// already saved updates the existing row instead of duplicating it.
func (s *Store) Add(ctx context.Context, station Station) (int64, error) {
	name := strings.TrimSpace(station.Name)
	streamURL := strings.TrimSpace(station.StreamURL)
	if name == "" || streamURL == "" {
		return 0, errors.New("station name and stream URL are required")
	}

	// RETURNING reports the surviving row's id; LastInsertId would be stale
	// when the conflict clause updates an existing row.
	ctx = ensureContext(ctx)
	var id int64
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, `
			INSERT INTO stations (name, stream_url, art_url, homepage, country, remote_id, position)
			VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM stations))
			ON CONFLICT(stream_url) DO UPDATE SET
				name = excluded.name,
				art_url = excluded.art_url,
				homepage = excluded.homepage,
				country = excluded.country,
				remote_id = excluded.remote_id
			RETURNING id`,
			name, streamURL, station.ArtURL, station.Homepage, station.Country, station.RemoteID,
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("add station: %w", err)
	}
	return id, nil
}

// Remove deletes the station with the given id.
func (s *Store) Remove(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM stations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("remove station %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove station %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveByURL deletes the station with the given stream URL.
func (s *Store) RemoveByURL(ctx context.Context, streamURL string) error {
	streamURL = strings.TrimSpace(streamURL)
	res, err := s.execWithRetry(ctx, "DELETE FROM stations WHERE stream_url = ?", streamURL)
	if err != nil {
		return fmt.Errorf("remove station %s: %w", streamURL, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove station %s: %w", streamURL, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Contains reports whether a station with the given stream URL is saved.
func (s *Store) Contains(ctx context.Context, streamURL string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM stations WHERE stream_url = ?",
		strings.TrimSpace(streamURL)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check station %s: %w", streamURL, err)
	}
	return count > 0, nil
}

// SetRemoteID links a station to its out-of-band feed entry.
func (s *Store) SetRemoteID(ctx context.Context, id, remoteID int64) error {
	res, err := s.execWithRetry(ctx, "UPDATE stations SET remote_id = ? WHERE id = ?", remoteID, id)
	if err != nil {
		return fmt.Errorf("set remote id for station %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set remote id for station %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
