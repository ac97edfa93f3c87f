package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/service"
	"edgeinsight-backend/internal/store"
)

func newCron() *cron.Cron {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.DowOptional | cron.Descriptor)
	return cron.New(cron.WithParser(parser))
}

// NewScheduler runs the expired-key purge and, when archiving is on, the
// archive flush.
func NewScheduler(lc fx.Lifecycle, cfg *config.Config, kv store.KV, archiveSvc service.ArchiveService) (*cron.Cron, error) {
	c := newCron()
	if err := registerJobs(c, cfg, kv, archiveSvc); err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msg("Starting cron scheduler")
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Stopping cron scheduler...")
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
				log.Info().Msg("Cron scheduler stopped gracefully.")
				return nil
			case <-ctx.Done():
				log.Error().Msg("Context cancelled while waiting for cron scheduler to stop.")
				return ctx.Err()
			}
		},
	})

	return c, nil
}

func registerJobs(c *cron.Cron, cfg *config.Config, kv store.KV, archiveSvc service.ArchiveService) error {
	purgeSchedule := cfg.KV.PurgeSchedule
	if _, err := c.AddFunc(purgeSchedule, func() { purgeExpired(cfg, kv) }); err != nil {
		log.Error().Err(err).Str("schedule", purgeSchedule).Msg("Failed to add KV purge job")
		return fmt.Errorf("invalid KV purge schedule %q: %w", purgeSchedule, err)
	}
	log.Info().Str("schedule", purgeSchedule).Msg("Scheduled KV purge job")

	if !cfg.Archive.Enabled {
		return nil
	}
	flushSchedule := cfg.Archive.FlushSchedule
	_, err := c.AddFunc(flushSchedule, func() {
		go func() {
			if err := archiveSvc.FlushPending(context.Background()); err != nil {
				log.Error().Err(err).Msg("Error during scheduled archive flush")
			}
		}()
	})
	if err != nil {
		log.Error().Err(err).Str("schedule", flushSchedule).Msg("Failed to add archive flush job")
		return fmt.Errorf("invalid archive flush schedule %q: %w", flushSchedule, err)
	}
	log.Info().Str("schedule", flushSchedule).Msg("Scheduled archive flush job")
	return nil
}

func purgeExpired(cfg *config.Config, kv store.KV) {
	ctx := context.Background()
	if cfg.KV.OperationLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.KV.OperationLimit)
		defer cancel()
	}
	removed, err := kv.PurgeExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error during scheduled KV purge")
		return
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Purged expired KV entries")
	}
}
