package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/filestate"
)

// ProvideKV builds the configured backend and closes it on shutdown.
func ProvideKV(lc fx.Lifecycle, cfg *config.Config) (KV, error) {
	kv, err := Open(context.Background(), cfg.KV)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Str("backend", cfg.KV.Backend).Msg("Closing KV store...")
			return kv.Close()
		},
	})
	return kv, nil
}

func ProvideTTLPolicy(cfg *config.Config) TTLPolicy {
	p := DefaultTTLPolicy()
	if cfg.KV.DataTTL > 0 {
		p.Data = cfg.KV.DataTTL
	}
	if cfg.KV.AnalysisTTL > 0 {
		p.Analysis = cfg.KV.AnalysisTTL
	}
	if cfg.KV.ReportTTL > 0 {
		p.Report = cfg.KV.ReportTTL
	}
	if cfg.KV.CacheTTL > 0 {
		p.Cache = cfg.KV.CacheTTL
	}
	if cfg.KV.DefaultTTL > 0 {
		p.Default = cfg.KV.DefaultTTL
	}
	return p
}

// Open selects a backend by cfg.Backend; empty means memory.
func Open(ctx context.Context, cfg config.KVConfig) (KV, error) {
	switch cfg.Backend {
	case "", "memory":
		var snapshot filestate.Manager
		if cfg.SnapshotPath != "" {
			snapshot = filestate.NewManager(cfg.SnapshotPath)
		}
		return NewInMemoryKV(snapshot)
	case "postgres":
		return NewPostgresKV(ctx, cfg.PostgresDSN)
	case "sqlite":
		return NewSQLiteKV(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, cfg.Backend)
	}
}
