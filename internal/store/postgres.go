package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rickgao/gecko-volumes/internal/model"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tokens (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS token_volumes (
		token_id     TEXT NOT NULL REFERENCES tokens (id),
		total_volume NUMERIC,
		date         DATE NOT NULL DEFAULT CURRENT_DATE,
		PRIMARY KEY (token_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS token_volumes_date_idx ON token_volumes (date)`,
}

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres wraps an open pool.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", pgError(err))
		}
	}
	return nil
}

func (s *PostgresStore) TokenIDs(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT id FROM tokens ORDER BY id`)
}

func (s *PostgresStore) Tokens(ctx context.Context) ([]model.Token, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM tokens ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", pgError(err))
	}
	tokens, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Token, error) {
		var t model.Token
		err := row.Scan(&t.ID, &t.Name)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan tokens: %w", pgError(err))
	}
	return tokens, nil
}

// InsertTokens inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (s *PostgresStore) InsertTokens(ctx context.Context, tokens []model.Token) (int, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, t := range tokens {
		batch.Queue(`
			INSERT INTO tokens (id, name)
			VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING
		`, t.ID, t.Name)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range tokens {
		ct, err := results.Exec()
		if err != nil {
			return 0, fmt.Errorf("insert tokens: %w", pgError(err))
		}
		inserted += int(ct.RowsAffected())
	}

	return inserted, nil
}

func (s *PostgresStore) VolumeTokenIDs(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT DISTINCT token_id FROM token_volumes ORDER BY token_id`)
}

func (s *PostgresStore) UpsertVolume(ctx context.Context, v model.TokenVolume) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO token_volumes (token_id, total_volume, date)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_id, date) DO UPDATE SET total_volume = EXCLUDED.total_volume
	`, v.TokenID, volumeArg(v.TotalVolume), model.Day(v.Date))
	if err != nil {
		return fmt.Errorf("upsert volume %s: %w", v.TokenID, pgError(err))
	}
	return nil
}

func (s *PostgresStore) VolumeOn(ctx context.Context, tokenID string, day time.Time) (decimal.NullDecimal, bool, error) {
	var n pgtype.Numeric
	err := s.db.QueryRow(ctx, `
		SELECT total_volume FROM token_volumes WHERE token_id = $1 AND date = $2
	`, tokenID, model.Day(day)).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.NullDecimal{}, false, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, false, fmt.Errorf("query volume %s: %w", tokenID, pgError(err))
	}
	return numericToDecimal(n), true, nil
}

func (s *PostgresStore) VolumesOn(ctx context.Context, day time.Time) ([]model.TokenVolume, error) {
	rows, err := s.db.Query(ctx, `
		SELECT token_id, total_volume, date FROM token_volumes WHERE date = $1 ORDER BY token_id
	`, model.Day(day))
	if err != nil {
		return nil, fmt.Errorf("query volumes: %w", pgError(err))
	}
	volumes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.TokenVolume, error) {
		var (
			v model.TokenVolume
			n pgtype.Numeric
		)
		if err := row.Scan(&v.TokenID, &n, &v.Date); err != nil {
			return v, err
		}
		v.TotalVolume = numericToDecimal(n)
		v.Date = model.Day(v.Date)
		return v, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan volumes: %w", pgError(err))
	}
	return volumes, nil
}

func (s *PostgresStore) PurgeVolumesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := s.db.Exec(ctx, `DELETE FROM token_volumes WHERE date < $1`, model.Day(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge volumes: %w", pgError(err))
	}
	return ct.RowsAffected(), nil
}

func (s *PostgresStore) Counts(ctx context.Context) (int64, int64, error) {
	var tokens, volumes int64
	err := s.db.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM tokens), (SELECT COUNT(*) FROM token_volumes)
	`).Scan(&tokens, &volumes)
	if err != nil {
		return 0, 0, fmt.Errorf("count rows: %w", pgError(err))
	}
	return tokens, volumes, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

func (s *PostgresStore) queryStrings(ctx context.Context, sql string) ([]string, error) {
	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query: %w", pgError(err))
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan: %w", pgError(err))
	}
	return out, nil
}

// pgError tags SQLSTATE class 23 (integrity constraint violation) with ErrConstraint.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	return err
}

func numericToDecimal(n pgtype.Numeric) decimal.NullDecimal {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromBigInt(n.Int, n.Exp))
}
