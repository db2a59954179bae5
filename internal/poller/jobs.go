package poller

import (
	"context"
	"time"

	"github.com/rickgao/gecko-volumes/internal/scheduler"
)

// Job names.
const (
	JobRefreshVolumes = "refresh_volumes"
	JobSyncTokenList  = "sync_token_list"
	JobPurgeVolumes   = "purge_stale_volumes"
)

// Schedule sets when each recurring job runs.
type Schedule struct {
	VolumeInterval    time.Duration // default: 1h
	TokenListInterval time.Duration // default: 1h
	PurgeAt           string        // HH:MM, default: 00:01
}

// Jobs returns the recurring jobs for the poller.
func (p *Poller) Jobs(s Schedule) []scheduler.Job {
	return []scheduler.Job{
		{
			Name:  JobRefreshVolumes,
			Every: s.VolumeInterval,
			Run: func(ctx context.Context) error {
				_, err := p.RefreshVolumes(ctx)
				return err
			},
		},
		{
			Name:  JobSyncTokenList,
			Every: s.TokenListInterval,
			Run: func(ctx context.Context) error {
				_, err := p.SyncTokenList(ctx)
				return err
			},
		},
		{
			Name: JobPurgeVolumes,
			At:   s.PurgeAt,
			Run: func(ctx context.Context) error {
				_, err := p.PurgeStaleVolumes(ctx)
				return err
			},
		},
	}
}
