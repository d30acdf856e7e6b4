package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/epicvibe/platform/internal/auth"
	"github.com/epicvibe/platform/internal/catalog"
	"github.com/epicvibe/platform/internal/config"
	"github.com/epicvibe/platform/internal/database"
	"github.com/epicvibe/platform/internal/epicvibe"
	"github.com/epicvibe/platform/internal/game"
	"github.com/epicvibe/platform/internal/generate"
	"github.com/epicvibe/platform/internal/handler/health"
	"github.com/epicvibe/platform/internal/handler/realtime"
	"github.com/epicvibe/platform/internal/ledger"
	"github.com/epicvibe/platform/internal/migrations"
	"github.com/epicvibe/platform/internal/relay"
	"github.com/epicvibe/platform/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger.Info("starting epicvibe", "mode", cfg.Mode, "catalog", cfg.CatalogDriver, "rewards", cfg.RewardMode)

	checks := map[string]health.Checker{}

	// --- Catalog ---
	store, closeStore, err := openCatalog(ctx, cfg, logger, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.SeedSamples {
		rnd := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
		n, err := game.SeedSamples(ctx, store, rnd, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("seeding samples: %w", err)
		}
		if n > 0 {
			logger.Info("seeded sample games", "count", n)
		}
	}

	// --- Ledger ---
	rewards, closeLedger, err := openLedger(cfg, logger, checks)
	if err != nil {
		return err
	}
	defer closeLedger()

	// --- Relay ---
	hub := relay.NewHub(logger)
	var fanout *relay.RedisFanout
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		fanout = relay.NewRedisFanout(rdb, hub, logger)
		hub.SetFanout(fanout)
		checks["redis"] = redisChecker{rdb}
	}

	// --- Auth ---
	authn := auth.New(cfg.JWTSecret, cfg.JWTTTL)
	if err := registerDemoAccounts(authn, cfg.DemoPassword); err != nil {
		return err
	}

	// --- Game service ---
	genOpts := generate.DefaultOptions()
	genOpts.Delay = cfg.GenerationDelay
	gen := generate.New(rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 1)), genOpts)
	games := game.NewService(store, gen, rewards, hub, logger)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Games:      games,
		Auth:       authn,
		Ledger:     rewards,
		Hub:        hub,
		Production: cfg.Production(),
		SPADir:     cfg.SPADir,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
		r.Mount("/ws", realtime.NewHandler(logger, hub, authn).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	if fanout != nil {
		g.Go(func() error {
			return fanout.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger, checks map[string]health.Checker) (catalog.Store, func(), error) {
	switch cfg.CatalogDriver {
	case config.DriverLibSQL:
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		version, err := migrations.Run(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("connected to sqlite", "path", cfg.DBPath, "schema_version", version)
		checks["catalog"] = health.CheckFunc(db.PingContext)
		return catalog.NewSQLStore(db), func() { db.Close() }, nil

	case config.DriverPostgres:
		db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		store, err := catalog.NewGormStore(ctx, db)
		if err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		logger.Info("connected to postgres")
		checks["catalog"] = health.CheckFunc(sqlDB.PingContext)
		return store, func() { sqlDB.Close() }, nil
	}

	logger.Warn("using in-memory catalog; games are lost on restart")
	return catalog.NewMemoryStore(), func() {}, nil
}

func openLedger(cfg *config.Config, logger *slog.Logger, checks map[string]health.Checker) (ledger.Ledger, func(), error) {
	if cfg.RewardMode != config.RewardLive {
		logger.Info("reward ledger in simulation mode")
		return ledger.NewSimulated(rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 2))), func() {}, nil
	}

	history, err := ledger.OpenBadgerHistory(cfg.LedgerDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening reward history: %w", err)
	}
	client := ledger.NewRPCClient(cfg.ChainRPCURL, cfg.TokenMint, cfg.ChainTimeout)
	checks["chain"] = health.CheckFunc(client.Ping)

	logger.Info("reward ledger in live mode",
		"rpc", cfg.ChainRPCURL,
		"mint", cfg.TokenMint,
		"pool", cfg.RewardPool,
		"history_dir", cfg.LedgerDir,
	)
	return ledger.NewLive(client, cfg.RewardPool, history), func() { history.Close() }, nil
}

// registerDemoAccounts creates demouser and the sample creators, all sharing
// one password. creator1 and demouser are the same user_1 identity.
func registerDemoAccounts(a *auth.Authenticator, password string) error {
	users := []epicvibe.User{auth.DemoUser}
	for n := 1; n <= 5; n++ {
		users = append(users, epicvibe.User{
			ID:            fmt.Sprintf("user_%d", n),
			Username:      fmt.Sprintf("creator%d", n),
			WalletAddress: game.SampleWallet(n),
			Role:          "user",
		})
	}
	for _, u := range users {
		if err := a.Register(u, password); err != nil {
			return fmt.Errorf("registering %s: %w", u.Username, err)
		}
	}
	return nil
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
