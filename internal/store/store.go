package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/gecko-volumes/internal/model"
)

// ErrConstraint marks an integrity violation (duplicate key, missing foreign
// key, NOT NULL). Any other storage error is operational.
var ErrConstraint = errors.New("constraint violation")

// IsConstraint reports whether err is an integrity violation.
func IsConstraint(err error) bool {
	return errors.Is(err, ErrConstraint)
}

// Store is the local relational store.
type Store interface {
	// EnsureSchema creates both tables if they do not exist.
	EnsureSchema(ctx context.Context) error

	// TokenIDs returns every stored token id.
	TokenIDs(ctx context.Context) ([]string, error)
	// Tokens returns every stored token ordered by id.
	Tokens(ctx context.Context) ([]model.Token, error)
	// InsertTokens inserts tokens whose id is not yet present and reports how
	// many rows were added.
	InsertTokens(ctx context.Context, tokens []model.Token) (int, error)

	// VolumeTokenIDs returns the distinct token ids that have any volume row.
	VolumeTokenIDs(ctx context.Context) ([]string, error)
	// UpsertVolume inserts or replaces the row for (TokenID, Date).
	UpsertVolume(ctx context.Context, v model.TokenVolume) error
	// VolumeOn returns the volume stored for a token on day; found is false
	// when no row exists.
	VolumeOn(ctx context.Context, tokenID string, day time.Time) (vol decimal.NullDecimal, found bool, err error)
	// VolumesOn returns every row dated day ordered by token id.
	VolumesOn(ctx context.Context, day time.Time) ([]model.TokenVolume, error)
	// PurgeVolumesBefore deletes rows dated strictly before cutoff.
	PurgeVolumesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Counts returns the number of token and volume rows.
	Counts(ctx context.Context) (tokens, volumes int64, err error)
	Ping(ctx context.Context) error
	Close()
}

func volumeArg(v decimal.NullDecimal) any {
	if !v.Valid {
		return nil
	}
	return v.Decimal.String()
}
