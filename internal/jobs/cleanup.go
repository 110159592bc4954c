package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fablehouse/reader-server/internal/config"
	"github.com/fablehouse/reader-server/internal/repository"
)

// CleanupJob periodically sweeps pairing codes: pending codes past their
// expiry become expired (making the lazy transition visible to portal
// listings), and terminal codes past the retention window are deleted.
// Engine correctness never depends on the sweep; expiry is still observed
// lazily at claim time.
type CleanupJob struct {
	codeRepo repository.PairingCodeRepository
	interval time.Duration
	done     chan struct{}
}

func NewCleanupJob(codeRepo repository.PairingCodeRepository, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		codeRepo: codeRepo,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "overdue pairing codes", j.codeRepo.ExpireOverdue)
	j.runCleanup(ctx, "terminal pairing codes", func(ctx context.Context) (int64, error) {
		return j.codeRepo.DeleteTerminalBefore(ctx, time.Now().Add(-config.TerminalCodeRetention))
	})
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
