package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/conditional"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/config"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/fetch"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/httpserver"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/httpserver/deps"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/orchestrator"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/pending"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/policy"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/profile"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/provider"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/publish"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/redis"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/scheduler"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/statuscache"
	redisstore "github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/store/redis"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/utils"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/version"
)

type App struct {
	cfg          *config.Config
	logger       logger.Logger
	server       *httpserver.Server
	redisClient  *goredis.Client
	docker       *provider.Docker
	index        *policy.Index
	cache        *statuscache.Cache
	orchestrator *orchestrator.Orchestrator
	refresher    *scheduler.Refresher
	gc           *scheduler.GarbageCollector
}

// New wires every component from the environment configuration.
func New(ctx context.Context) (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	docker, err := provider.NewDocker(cfg.DockerHost)
	if err != nil {
		return nil, err
	}

	// Redis is optional; when configured it must be reachable.
	var redisClient *goredis.Client
	var store *redisstore.Store
	if cfg.RedisEnabled() {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = redis.Connect(ctx, redis.Options{
			Addr:           cfg.RedisAddr,
			Username:       cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = redisstore.NewStore(redisClient)
		loggerClient.Info("Redis initialized successfully")
	} else {
		loggerClient.Info("redis not configured, running memory only")
	}

	index := policy.NewIndex()
	loader := policy.NewLoader(cfg.PolicyFile)
	if err := policy.LoadIndex(loader, index); err != nil {
		closeRedis(redisClient, loggerClient)
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	loggerClient.Info("policy loaded",
		logger.String("file", cfg.PolicyFile),
		logger.Int("resources", index.Count()))

	var inactive policy.InactiveStore
	if store != nil {
		inactive = store
		syncer := scheduler.NewRedisSyncer(store, index, loggerClient)
		if err := syncer.Sync(ctx); err != nil {
			loggerClient.Warn("failed to sync inactive resources from redis",
				logger.Error(err))
		}
	}

	profiles := profile.NewStore(cfg.PerformanceConfig())
	deactivator := policy.NewDeactivator(index, inactive, loggerClient)
	cache := statuscache.New(statuscache.Config{
		RawTTL:                 cfg.CacheTTL,
		FormattedTTLMultiplier: cfg.FormattedTTLMultiplier,
		NotFoundThreshold:      cfg.NotFoundThreshold,
	}, deactivator, loggerClient)

	fetcher := fetch.NewService(docker, profiles, fetch.Config{
		Cooldown:   cfg.QueryCooldown,
		RetryDelay: cfg.RetryDelay,
	}, loggerClient)

	unknown := orchestrator.UnknownAsFast
	if cfg.UnknownAsSlow {
		unknown = orchestrator.UnknownAsSlow
	}
	orch := orchestrator.New(docker, profiles, fetcher, cache, index, orchestrator.Config{
		PingTimeout:   cfg.PingTimeout,
		MaxConcurrent: cfg.MaxConcurrentFetches,
		Unknown:       unknown,
	}, loggerClient)

	dedup := conditional.New(conditional.Config{
		MaxKeys:   cfg.ConditionalMaxKeys,
		TrimEvery: cfg.ConditionalTrimEvery,
	})
	tracker := pending.NewTracker(cfg.PendingTimeout)

	var publisher publish.Publisher = publish.NewLogPublisher(loggerClient)
	if redisClient != nil {
		publisher = publish.NewRedisPublisher(redisClient)
	}
	cycle := publish.NewCycle(index, cache, tracker, nil, dedup, publisher, loggerClient)

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)

	interval := cfg.RefreshInterval
	if !cfg.BackgroundRefresh {
		interval = 0
	}
	refresher := scheduler.NewRefresher(orch, loader, index, cache, store, cycle, loggerClient, interval, reloadTrigger)

	gc := scheduler.NewGarbageCollector(index, profiles, cache, dedup, fetcher, store,
		loggerClient, cfg.GCInterval, cfg.GCThreshold)

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		CORSOrigins:     cfg.CORSOrigins,
		ActionBurst:     cfg.ActionBurst,
		ActionPerMinute: cfg.ActionPerMinute,
		ActionTimeout:   cfg.ActionTimeout,
		PingTimeout:     cfg.PingTimeout,
		Orchestrator:    orch,
		Fetcher:         fetcher,
		Policies:        index,
		Cache:           cache,
		Profiles:        profiles,
		Conditional:     dedup,
		Pending:         tracker,
		Controller:      docker,
		Pinger:          docker,
		RedisClient:     redisClient,
		ReloadTrigger:   reloadTrigger,
	}

	return &App{
		cfg:          cfg,
		logger:       loggerClient,
		server:       httpserver.New(cfg, loggerClient, d),
		redisClient:  redisClient,
		docker:       docker,
		index:        index,
		cache:        cache,
		orchestrator: orch,
		refresher:    refresher,
		gc:           gc,
	}, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting ddc-status %s on %s", version.String(), a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.refresher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start refresher: %w", err)
	}
	a.logger.Info("refresher started",
		logger.Bool("background", a.cfg.BackgroundRefresh),
		logger.Duration("interval", a.cfg.RefreshInterval))

	if err := a.gc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start garbage collector: %w", err)
	}
	a.logger.Info("garbage collector started",
		logger.Duration("interval", a.cfg.GCInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.refresher.Stop()
	a.gc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.Close()
	a.logger.Info("✅ ddc-status stopped cleanly")
	return nil
}

// Check pings the daemon, runs one bulk fetch over the active resources and
// writes a summary to w. It is the one-shot counterpart of Run.
func (a *App) Check(ctx context.Context, w io.Writer) error {
	pingCtx, cancel := context.WithTimeout(ctx, a.cfg.PingTimeout)
	defer cancel()
	if err := a.docker.Ping(pingCtx); err != nil {
		return fmt.Errorf("docker daemon at %s unreachable: %w", a.cfg.DockerHost, err)
	}

	ids := a.index.ActiveIDs()
	fmt.Fprintf(w, "daemon: %s ok\n", a.cfg.DockerHost)
	fmt.Fprintf(w, "policy: %s (%d resources, %d active)\n", a.cfg.PolicyFile, a.index.Count(), len(ids))

	results := a.orchestrator.BulkFetch(ctx, ids)
	for _, id := range ids {
		res := results[id]
		t := res.Legacy(string(id))
		state := "stopped"
		switch {
		case res.IsError():
			state = "error(" + string(res.ErrorKind) + ")"
		case t.IsRunning:
			state = "running"
		}
		fmt.Fprintf(w, "%-24s %-28s %-8s %-10s %s\n", t.DisplayName, state, dash(t.CPU), dash(t.RAM), dash(t.Uptime))
	}
	return nil
}

// Close releases the Docker and Redis clients.
func (a *App) Close() {
	utils.CloseLogged(a.docker, "docker", a.logger)
	closeRedis(a.redisClient, a.logger)
}

func closeRedis(c *goredis.Client, log logger.Logger) {
	if c == nil {
		return
	}
	utils.CloseLogged(c, "redis", log)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
