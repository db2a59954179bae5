package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rickgao/gecko-volumes/internal/model"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tokens (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS token_volumes (
		token_id     TEXT NOT NULL REFERENCES tokens (id),
		total_volume NUMERIC,
		date         TEXT NOT NULL DEFAULT (date('now')),
		PRIMARY KEY (token_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS token_volumes_date_idx ON token_volumes (date)`,
}

// SQLiteStore implements Store on a go-sqlite3 database. Dates are stored as
// YYYY-MM-DD text so that string comparison orders them chronologically.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite wraps an open database handle.
func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", sqliteError(err))
		}
	}
	return nil
}

func (s *SQLiteStore) TokenIDs(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT id FROM tokens ORDER BY id`)
}

func (s *SQLiteStore) Tokens(ctx context.Context) ([]model.Token, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tokens ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", sqliteError(err))
	}
	defer rows.Close()

	var tokens []model.Token
	for rows.Next() {
		var t model.Token
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// InsertTokens inserts all rows in one transaction with ON CONFLICT DO NOTHING.
func (s *SQLiteStore) InsertTokens(ctx context.Context, tokens []model.Token) (int, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tokens (id, name)
		VALUES (?, ?)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", sqliteError(err))
	}
	defer stmt.Close()

	inserted := 0
	for _, t := range tokens {
		res, err := stmt.ExecContext(ctx, t.ID, t.Name)
		if err != nil {
			return 0, fmt.Errorf("insert token %s: %w", t.ID, sqliteError(err))
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", sqliteError(err))
	}
	return inserted, nil
}

func (s *SQLiteStore) VolumeTokenIDs(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT DISTINCT token_id FROM token_volumes ORDER BY token_id`)
}

func (s *SQLiteStore) UpsertVolume(ctx context.Context, v model.TokenVolume) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token_volumes (token_id, total_volume, date)
		VALUES (?, ?, ?)
		ON CONFLICT (token_id, date) DO UPDATE SET total_volume = excluded.total_volume
	`, v.TokenID, volumeArg(v.TotalVolume), model.FormatDate(v.Date))
	if err != nil {
		return fmt.Errorf("upsert volume %s: %w", v.TokenID, sqliteError(err))
	}
	return nil
}

func (s *SQLiteStore) VolumeOn(ctx context.Context, tokenID string, day time.Time) (decimal.NullDecimal, bool, error) {
	var vol decimal.NullDecimal
	err := s.db.QueryRowContext(ctx, `
		SELECT total_volume FROM token_volumes WHERE token_id = ? AND date = ?
	`, tokenID, model.FormatDate(day)).Scan(&vol)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.NullDecimal{}, false, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, false, fmt.Errorf("query volume %s: %w", tokenID, sqliteError(err))
	}
	return vol, true, nil
}

func (s *SQLiteStore) VolumesOn(ctx context.Context, day time.Time) ([]model.TokenVolume, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token_id, total_volume, date FROM token_volumes WHERE date = ? ORDER BY token_id
	`, model.FormatDate(day))
	if err != nil {
		return nil, fmt.Errorf("query volumes: %w", sqliteError(err))
	}
	defer rows.Close()

	var volumes []model.TokenVolume
	for rows.Next() {
		var (
			v    model.TokenVolume
			date string
		)
		if err := rows.Scan(&v.TokenID, &v.TotalVolume, &date); err != nil {
			return nil, fmt.Errorf("scan volume: %w", err)
		}
		if v.Date, err = model.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse volume date %q: %w", date, err)
		}
		volumes = append(volumes, v)
	}
	return volumes, rows.Err()
}

func (s *SQLiteStore) PurgeVolumesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM token_volumes WHERE date < ?`, model.FormatDate(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge volumes: %w", sqliteError(err))
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Counts(ctx context.Context) (int64, int64, error) {
	var tokens, volumes int64
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM tokens), (SELECT COUNT(*) FROM token_volumes)
	`).Scan(&tokens, &volumes)
	if err != nil {
		return 0, 0, fmt.Errorf("count rows: %w", sqliteError(err))
	}
	return tokens, volumes, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	s.db.Close()
}

func (s *SQLiteStore) queryStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", sqliteError(err))
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func sqliteError(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	return err
}
