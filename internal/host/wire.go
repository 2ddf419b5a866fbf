package host

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"amsplayer/internal/assets"
	"amsplayer/internal/block"
	"amsplayer/internal/catalog"
	"amsplayer/internal/mediaservices"
	"amsplayer/internal/transcript"
	"amsplayer/pkg/config"
	"amsplayer/pkg/db"
	"amsplayer/pkg/tenants"
)

// App is the wired process: the block plus the stores behind it.
type App struct {
	Block    *block.Block
	Settings tenants.Provider
	Videos   catalog.Catalog
	Platform tenants.Credentials

	pool *pgxpool.Pool
	rdb  *redis.Client
}

// MediaOptions is the outbound policy shared by every Media Services client.
func MediaOptions(cfg config.Config, log *zap.SugaredLogger) mediaservices.Options {
	return mediaservices.Options{
		Authority: cfg.AzureAuthority,
		Timeout:   cfg.UpstreamTimeout,
		RetryMax:  cfg.UpstreamRetryMax,
		Log:       log,
	}
}

// Build connects Postgres and Redis when configured and falls back to the
// in-memory stores otherwise. Seeds are applied on every start.
func Build(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (*App, error) {
	app := &App{Platform: tenants.Credentials(cfg.AzureDefaults)}

	app.pool = db.MustConnect(cfg, log)
	if app.pool != nil {
		if err := tenants.EnsureSchema(ctx, app.pool); err != nil {
			return nil, fmt.Errorf("settings schema: %w", err)
		}
		if err := catalog.EnsureSchema(ctx, app.pool); err != nil {
			return nil, fmt.Errorf("catalog schema: %w", err)
		}
		if err := tenants.SeedFromEnv(ctx, app.pool, os.Getenv("AZURE_ORG_SEED_JSON"), cfg.EncryptionKey); err != nil {
			log.Warnw("org settings seed", "err", err)
		}
		if err := catalog.Import(ctx, app.pool, cfg.Seed.Videos); err != nil {
			return nil, fmt.Errorf("catalog import: %w", err)
		}
		app.Settings = tenants.NewPostgresProvider(app.pool, log, cfg.EncryptionKey)
		app.Videos = catalog.NewPostgres(app.pool)
	} else {
		app.Settings = tenants.NewMemoryProvider(log, cfg.Seed.Organizations)
		app.Videos = catalog.NewMemory(cfg.Seed.Videos)
	}

	var (
		store block.FieldStore
		bus   EventBus
	)
	app.rdb = db.MustRedis(cfg, log)
	if app.rdb != nil {
		rs := NewRedisFieldStore(app.rdb)
		n, err := rs.Seed(ctx, cfg.Seed.Blocks)
		if err != nil {
			return nil, fmt.Errorf("block seed: %w", err)
		}
		log.Infow("block seed applied", "created", n, "total", len(cfg.Seed.Blocks))
		store, bus = rs, NewRedisEventBus(app.rdb)
	} else {
		store, bus = NewMemoryFieldStore(cfg.Seed.Blocks), NewLogEventBus(log)
	}

	renderer, err := NewRenderer(block.Templates)
	if err != nil {
		return nil, err
	}
	opts := MediaOptions(cfg, log)
	app.Block = block.New(block.Deps{
		Runtime:  NewRuntime(renderer, bus),
		Store:    store,
		Videos:   app.Videos,
		Settings: app.Settings,
		Platform: app.Platform,
		Media: func(creds tenants.Credentials) (block.MediaService, error) {
			c, err := mediaservices.New(creds, opts)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Transcripts:   transcript.New(mediaservices.NewHTTPClient(cfg.UpstreamTimeout, 0, nil, log), log),
		Languages:     assets.NewLanguageTable(cfg.Languages),
		Log:           log,
		PlayerVersion: cfg.PlayerVersion,
	})
	return app, nil
}

func (a *App) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
