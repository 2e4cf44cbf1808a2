package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/wfunc/rhythmserver/broadcast"
	"github.com/wfunc/rhythmserver/config"
	"github.com/wfunc/rhythmserver/lobby"
	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/monitor"
	"github.com/wfunc/rhythmserver/persistence"
	"github.com/wfunc/rhythmserver/room"
	"github.com/wfunc/rhythmserver/rpc"
	"github.com/wfunc/rhythmserver/server"
	"github.com/wfunc/rhythmserver/services"
	"github.com/wfunc/rhythmserver/timer"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "rhythmserver",
		Usage: "multiplayer room server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: ".",
				Usage: "directory containing config.yaml",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the room server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create the database tables",
				Action: migrate,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) (*config.Config, persistence.Database, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	// Initialize logger
	if cfg.Log.Development {
		logger.InitDevelopment()
	} else {
		logger.Init()
	}

	// Initialize Database
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Log.Infof("Database connection successful (%s).", cfg.Database.Driver)
	return cfg, db, nil
}

func migrate(c *cli.Context) error {
	_, db, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer db.Close()

	if err := db.Migrate(c.Context); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Log.Info("Migration finished.")
	return nil
}

func serve(c *cli.Context) error {
	cfg, db, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mon := monitor.NewMonitor(cfg.Server.MetricsNamespace, registry)

	timers := timer.NewTimerManager(timer.DefaultResolution)
	defer timers.Stop()

	// without a mirror beatmaps keep an empty set id
	var beatmaps room.BeatmapLookup
	if cfg.Beatmap.MirrorEndpoint != "" {
		svc, closeCache, err := newBeatmapService(c.Context, cfg)
		if err != nil {
			return err
		}
		defer closeCache()
		beatmaps = svc
	}

	manager := room.NewRoomManager(room.Dependencies{
		Broadcaster:     broadcast.NewHub(),
		Ranking:         services.NewRankingService(db),
		Beatmaps:        beatmaps,
		Observer:        mon,
		Timers:          timers,
		PendingRoomTTL:  cfg.Multiplayer.PendingRoomTTL,
		LookupTimeout:   cfg.Beatmap.LookupTimeout,
		MaxPlayersLimit: cfg.Multiplayer.MaxPlayersLimit,
	})
	defer manager.Close()

	lobbyService := lobby.NewService(manager, mon)

	gameServer := server.NewGameServer(server.Options{
		Addr:              cfg.Server.HTTPAddress,
		Rooms:             manager,
		Lobby:             lobbyService,
		Accounts:          services.NewAccountService(db),
		Monitor:           mon,
		Timers:            timers,
		Tracer:            otel.Tracer("github.com/wfunc/rhythmserver"),
		HeartbeatInterval: cfg.Server.HeartbeatInterval,
		MinClientVersion:  cfg.Multiplayer.MinClientVersion,
		ChatRate:          rate.Limit(cfg.Multiplayer.ChatRate),
		ChatBurst:         cfg.Multiplayer.ChatBurst,
	})

	if cfg.Server.RPCAddress != "" {
		rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, lobbyService)
		if err != nil {
			return fmt.Errorf("start rpc server: %w", err)
		}
		go rpcServer.Start()
		defer rpcServer.Stop()
	}
	if cfg.Server.GRPCAddress != "" {
		health, err := rpc.NewHealthServer(cfg.Server.GRPCAddress)
		if err != nil {
			return fmt.Errorf("start health server: %w", err)
		}
		go health.Start()
		defer health.Stop()
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Log.Infof("Starting room server on %s", cfg.Server.HTTPAddress)
		errChan <- gameServer.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Log.Infof("Received %s, shutting down.", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return gameServer.Shutdown(ctx)
}

// newBeatmapService builds the mirror lookup, cached in redis when an
// address is configured.
func newBeatmapService(ctx context.Context, cfg *config.Config) (*services.BeatmapService, func(), error) {
	httpClient := &http.Client{Timeout: cfg.Beatmap.LookupTimeout}
	if cfg.Redis.Address == "" {
		return services.NewBeatmapService(cfg.Beatmap.MirrorEndpoint, httpClient, nil), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cache, err := services.NewRedisSetIDCache(ctx, client, cfg.Beatmap.CacheTTL)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return services.NewBeatmapService(cfg.Beatmap.MirrorEndpoint, httpClient, cache), func() { _ = client.Close() }, nil
}
