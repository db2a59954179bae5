package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/gecko-volumes/internal/api"
	"github.com/rickgao/gecko-volumes/internal/metrics"
	"github.com/rickgao/gecko-volumes/internal/model"
	"github.com/rickgao/gecko-volumes/internal/store"
)

// Status strings returned by SnapshotVolumes.
const (
	SnapshotStatus  = "token volume data saved"
	SnapshotSkipped = "no tokens found, volume snapshot skipped"
)

// MarketData is the upstream API surface the poller needs.
type MarketData interface {
	GetCoinList(ctx context.Context) ([]api.APICoin, error)
	GetTokenVolume(ctx context.Context, id, currency string) (decimal.NullDecimal, error)
}

// Config holds poller configuration.
type Config struct {
	VsCurrency    string          // Quote currency for volumes (default: usd)
	RetentionDays int             // Volume rows older than this are purged (default: 21)
	SpikeFactor   decimal.Decimal // today > yesterday*factor is a spike (default: 2)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		VsCurrency:    "usd",
		RetentionDays: 21,
		SpikeFactor:   decimal.NewFromInt(2),
	}
}

// SyncResult summarizes a token list sync.
type SyncResult struct {
	Fetched  int
	Existing int
	Inserted int
}

// SnapshotResult summarizes a volume snapshot.
type SnapshotResult struct {
	Tokens int
	Saved  int
	NoData int // saved with NULL volume
	Failed int
	Status string
}

// Spike is a token whose volume exceeded the spike threshold.
type Spike struct {
	TokenID   string
	Today     decimal.Decimal
	Yesterday decimal.Decimal
}

// RefreshResult summarizes a volume refresh.
type RefreshResult struct {
	Tokens  int
	Updated int
	NoData  int
	Failed  int
	Spikes  []Spike
}

// Poller fetches token data from the API and reconciles it with the store.
type Poller struct {
	cfg    Config
	client MarketData
	store  store.Store
	logger *slog.Logger

	now func() time.Time
}

// New creates a new Poller.
func New(cfg Config, client MarketData, st store.Store, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.VsCurrency == "" {
		cfg.VsCurrency = "usd"
	}
	return &Poller{
		cfg:    cfg,
		client: client,
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// today is the UTC day every write and purge is keyed on.
func (p *Poller) today() time.Time {
	return model.Day(p.now())
}

// SyncTokenList inserts catalog tokens that are not stored yet. Existing
// names are never updated and delisted tokens are never removed.
func (p *Poller) SyncTokenList(ctx context.Context) (SyncResult, error) {
	coins, err := p.client.GetCoinList(ctx)
	if err != nil {
		p.logger.Error("failed to fetch token list", "err", err)
		return SyncResult{}, fmt.Errorf("fetch token list: %w", err)
	}

	ids, err := p.store.TokenIDs(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("load token ids: %w", err)
	}

	known := make(map[string]struct{}, len(ids)+len(coins))
	for _, id := range ids {
		known[id] = struct{}{}
	}

	var missing []model.Token
	for _, c := range coins {
		if c.ID == "" {
			continue
		}
		if _, ok := known[c.ID]; ok {
			continue
		}
		known[c.ID] = struct{}{}
		missing = append(missing, c.ToModel())
	}

	inserted, err := p.store.InsertTokens(ctx, missing)
	if err != nil {
		return SyncResult{}, fmt.Errorf("insert tokens: %w", err)
	}
	metrics.TokensInserted.Add(float64(inserted))

	res := SyncResult{
		Fetched:  len(coins),
		Existing: len(ids),
		Inserted: inserted,
	}
	p.logger.Info("token list updated",
		"fetched", res.Fetched,
		"existing", res.Existing,
		"inserted", res.Inserted,
	)
	return res, nil
}

// SnapshotVolumes fetches every stored token's volume and writes today's row.
func (p *Poller) SnapshotVolumes(ctx context.Context) (SnapshotResult, error) {
	const job = "snapshot"
	start := time.Now()

	ids, err := p.store.TokenIDs(ctx)
	if err != nil {
		return SnapshotResult{}, fmt.Errorf("load token ids: %w", err)
	}
	if len(ids) == 0 {
		p.logger.Warn("no tokens found in the token list, skipping volume snapshot")
		return SnapshotResult{Status: SnapshotSkipped}, nil
	}

	today := p.today()
	res := SnapshotResult{Tokens: len(ids)}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		vol, err := p.fetchVolume(ctx, job, id)
		if err != nil {
			res.Failed++
			continue
		}

		if err := p.writeVolume(ctx, job, id, vol, today); err != nil {
			res.Failed++
			continue
		}

		res.Saved++
		if !vol.Valid {
			res.NoData++
		}
	}

	res.Status = SnapshotStatus
	p.logger.Info(res.Status,
		"tokens", res.Tokens,
		"saved", res.Saved,
		"no_data", res.NoData,
		"failed", res.Failed,
		"duration", time.Since(start),
	)
	return res, nil
}

// RefreshVolumes re-fetches every token already present in the volume table,
// upserts today's row and compares it with yesterday's.
func (p *Poller) RefreshVolumes(ctx context.Context) (RefreshResult, error) {
	const job = "refresh"
	start := time.Now()

	ids, err := p.store.VolumeTokenIDs(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("load volume token ids: %w", err)
	}
	if len(ids) == 0 {
		p.logger.Debug("no recorded volumes to refresh")
		return RefreshResult{}, nil
	}

	today := p.today()
	yesterday := model.DaysAgo(today, 1)
	res := RefreshResult{Tokens: len(ids)}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		vol, err := p.fetchVolume(ctx, job, id)
		if err != nil {
			res.Failed++
			continue
		}

		if err := p.writeVolume(ctx, job, id, vol, today); err != nil {
			res.Failed++
			continue
		}
		res.Updated++
		if !vol.Valid {
			res.NoData++
		}

		prev, _, err := p.store.VolumeOn(ctx, id, yesterday)
		if err != nil {
			p.logStoreError(job, id, err)
			continue
		}

		if IsSpike(vol, prev, p.cfg.SpikeFactor) {
			spike := Spike{TokenID: id, Today: vol.Decimal, Yesterday: zeroIfNull(prev)}
			res.Spikes = append(res.Spikes, spike)
			metrics.VolumeSpikes.Inc()
			p.logger.Warn("volume spike detected",
				"token", id,
				"today", spike.Today,
				"yesterday", spike.Yesterday,
				"factor", p.cfg.SpikeFactor,
			)
		}
	}

	p.logger.Info("token volume data updated",
		"tokens", res.Tokens,
		"updated", res.Updated,
		"no_data", res.NoData,
		"failed", res.Failed,
		"spikes", len(res.Spikes),
		"duration", time.Since(start),
	)
	return res, nil
}

// PurgeStaleVolumes deletes rows dated before today minus RetentionDays. A row
// exactly RetentionDays old is kept.
func (p *Poller) PurgeStaleVolumes(ctx context.Context) (int64, error) {
	cutoff := model.DaysAgo(p.today(), p.cfg.RetentionDays)

	deleted, err := p.store.PurgeVolumesBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to purge stale volumes", "cutoff", model.FormatDate(cutoff), "err", err)
		return 0, fmt.Errorf("purge volumes: %w", err)
	}
	metrics.VolumesPurged.Add(float64(deleted))

	p.logger.Info("token volume data deleted",
		"cutoff", model.FormatDate(cutoff),
		"deleted", deleted,
	)
	return deleted, nil
}

// IsSpike reports whether today's volume exceeds factor times yesterday's. A
// missing or NULL yesterday counts as zero, so any positive volume after a gap
// is a spike. A NULL today is never a spike.
func IsSpike(today, yesterday decimal.NullDecimal, factor decimal.Decimal) bool {
	if !today.Valid {
		return false
	}
	return today.Decimal.GreaterThan(zeroIfNull(yesterday).Mul(factor))
}

func zeroIfNull(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}

func (p *Poller) fetchVolume(ctx context.Context, job, id string) (decimal.NullDecimal, error) {
	vol, err := p.client.GetTokenVolume(ctx, id, p.cfg.VsCurrency)
	if err != nil {
		metrics.VolumeFailures.WithLabelValues(job, "fetch").Inc()
		level := slog.LevelWarn
		if errors.Is(err, api.ErrRateLimitExhausted) {
			level = slog.LevelError
		}
		p.logger.Log(ctx, level, "failed to fetch token volume", "job", job, "token", id, "err", err)
		return decimal.NullDecimal{}, err
	}

	if vol.Valid {
		p.logger.Debug("fetched token volume", "token", id, "volume", vol.Decimal)
	} else {
		p.logger.Debug("no volume data for token", "token", id)
	}
	return vol, nil
}

func (p *Poller) writeVolume(ctx context.Context, job, id string, vol decimal.NullDecimal, day time.Time) error {
	err := p.store.UpsertVolume(ctx, model.TokenVolume{
		TokenID:     id,
		TotalVolume: vol,
		Date:        day,
	})
	if err != nil {
		metrics.VolumeFailures.WithLabelValues(job, "store").Inc()
		p.logStoreError(job, id, err)
		return err
	}
	metrics.VolumesWritten.WithLabelValues(job).Inc()
	return nil
}

func (p *Poller) logStoreError(job, id string, err error) {
	if store.IsConstraint(err) {
		p.logger.Error("database integrity error", "job", job, "token", id, "err", err)
		return
	}
	p.logger.Error("database operational error", "job", job, "token", id, "err", err)
}
