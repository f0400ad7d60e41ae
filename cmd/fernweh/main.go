package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fernweh/internal/api"
	"fernweh/pkg/ai"
	"fernweh/pkg/ai/gemini"
	"fernweh/pkg/cache"
	"fernweh/pkg/config"
	"fernweh/pkg/core"
	"fernweh/pkg/db"
	"fernweh/pkg/db/maintenance"
	"fernweh/pkg/enrich"
	"fernweh/pkg/fetch"
	"fernweh/pkg/imagery"
	"fernweh/pkg/logging"
	"fernweh/pkg/probe"
	"fernweh/pkg/ratelimit"
	"fernweh/pkg/request"
	"fernweh/pkg/sources/brave"
	"fernweh/pkg/sources/flickr"
	"fernweh/pkg/sources/geonames"
	"fernweh/pkg/sources/nominatim"
	"fernweh/pkg/sources/pagemeta"
	"fernweh/pkg/sources/wikimedia"
	"fernweh/pkg/store"
	"fernweh/pkg/tracker"
	"fernweh/pkg/version"
)

var (
	configPath = flag.String("config", "configs/fernweh.yaml", "Path to config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	address    = flag.String("address", "", "Override server listen address")
)

func main() {
	// Secrets live in .env during development; missing file is fine.
	_ = godotenv.Load()
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *address != "" {
		appCfg.Server.Address = *address
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Fernweh started", "version", version.Version)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	maintenance.Run(dbConn)

	tr := tracker.New()

	tiers, limiter, closeRedis := initCacheAndLimits(ctx, appCfg, st)
	if closeRedis != nil {
		defer closeRedis()
	}

	fetcher := fetch.New(tiers, limiter, tr)

	svcs, err := initServices(appCfg, tr, fetcher)
	if err != nil {
		return err
	}
	defer svcs.Close()

	deps := enrich.Deps{
		Resolver:  svcs.Resolver,
		Peek:      svcs.Brave,
		Photos:    svcs.Flickr,
		Summaries: svcs.Wikimedia,
		Nearby:    svcs.GeoNames,
	}
	// No key, no assistant: loads then finish after the enhanced stage
	// instead of failing their validation stage on every run.
	if appCfg.Sources.Gemini.Key != "" {
		deps.Assistant = svcs.Tasks
	}
	enrichSvc := enrich.New(enrich.Config{
		BatchSize:   appCfg.Batch.Size,
		BatchDelay:  time.Duration(appCfg.Batch.Delay),
		ImageTarget: appCfg.Resolver.Target,
	}, deps)

	probes := buildProbes(appCfg, st, tiers, svcs)
	results := probe.Run(ctx, probes)
	if err := probe.Analyze(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	sched := core.NewScheduler(0)
	sched.AddJob(core.NewCachePruneJob(dbConn))
	sched.AddJob(core.NewUsageFlushJob(tr, st))
	sched.AddJob(core.NewMicroSweepJob(svcs.Resolver))
	go sched.Start(ctx)

	err = runServer(ctx, appCfg, svcs, enrichSvc, dbConn, st, tr, probes)

	// Persist the tail of the usage counters before the process exits.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	core.FlushUsage(flushCtx, tr, st)
	flushCancel()

	return err
}

func initDB(appCfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(appCfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// initCacheAndLimits builds the cache tiers and the admission limiter.
// With a Redis address both the fast tier and the rate counters live
// there, shared across instances; without one everything stays
// in-process.
func initCacheAndLimits(ctx context.Context, appCfg *config.Config, st store.Store) (*cache.Tiers, ratelimit.Limiter, func()) {
	limits := mergedLimits(appCfg.Limits)

	if appCfg.Redis.Addr != "" {
		rds, err := cache.NewRedis(ctx, appCfg.Redis.Addr, appCfg.Redis.Password, appCfg.Redis.DB)
		if err == nil {
			slog.Info("Cache: redis fast tier", "addr", appCfg.Redis.Addr)
			return cache.NewTiers(rds, st), ratelimit.NewRedis(rds.Client(), limits), func() { rds.Close() }
		}
		slog.Warn("Cache: redis unavailable, using in-process tiers", "addr", appCfg.Redis.Addr, "error", err)
	}

	return cache.NewTiers(cache.NewMemory(), st), ratelimit.NewWindow(limits), nil
}

// mergedLimits overlays configured per-service budgets onto the defaults,
// so a config only has to name the services it changes. A zero limit
// disables admission for that service entirely.
func mergedLimits(overrides map[string]int) map[string]int {
	limits := make(map[string]int, len(ratelimit.DefaultLimits))
	for service, limit := range ratelimit.DefaultLimits {
		limits[service] = limit
	}
	for service, limit := range overrides {
		limits[service] = limit
	}
	return limits
}

// Services bundles the source adapters and the resolver built on them.
type Services struct {
	Brave     *brave.Client
	Flickr    *flickr.Client
	Wikimedia *wikimedia.Client
	GeoNames  *geonames.Client
	Nominatim *nominatim.Client
	Pagemeta  *pagemeta.Client
	Gemini    *gemini.Client
	Tasks     *ai.Tasks
	Resolver  *imagery.Resolver
}

func (s *Services) Close() {
	if s.Gemini != nil {
		s.Gemini.Close()
	}
}

func initServices(appCfg *config.Config, tr *tracker.Tracker, fetcher *fetch.Fetcher) (*Services, error) {
	reqClient := request.New(tr, request.Config{
		Retries:   appCfg.Request.Retries,
		Timeout:   time.Duration(appCfg.Request.Timeout),
		BaseDelay: time.Duration(appCfg.Request.Backoff.BaseDelay),
		MaxDelay:  time.Duration(appCfg.Request.Backoff.MaxDelay),
	})

	svcs := &Services{
		Brave:     brave.New(appCfg.Sources.Brave, reqClient, fetcher),
		Flickr:    flickr.New(appCfg.Sources.Flickr, reqClient, fetcher),
		Wikimedia: wikimedia.New(appCfg.Sources.Wikimedia, reqClient, fetcher),
		GeoNames:  geonames.New(appCfg.Sources.GeoNames, reqClient, fetcher),
		Nominatim: nominatim.New(appCfg.Sources.Nominatim, reqClient, fetcher),
		Pagemeta:  pagemeta.New(reqClient, fetcher),
	}

	gem, err := gemini.New(appCfg.Sources.Gemini, tr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini: %w", err)
	}
	svcs.Gemini = gem
	svcs.Tasks = ai.NewTasks(gem, fetcher)

	svcs.Resolver = imagery.NewResolver(svcs.Brave, svcs.Wikimedia, imagery.ResolverOptions{
		TargetCount: appCfg.Resolver.Target,
		MaxPerLevel: appCfg.Resolver.MaxPerLevel,
		MinPerLevel: appCfg.Resolver.MinPerLevel,
		MicroTTL:    time.Duration(appCfg.Resolver.MicroTTL),
		GlobalTerm:  appCfg.Resolver.GlobalTerm,
	})

	return svcs, nil
}

// buildProbes assembles the startup checks. Only the database is
// critical: every upstream can be missing and the service still serves
// whatever its cache and the remaining sources can produce.
func buildProbes(appCfg *config.Config, st store.Store, tiers *cache.Tiers, svcs *Services) []probe.Probe {
	probes := []probe.Probe{
		{
			Name:     "Database",
			Critical: true,
			Check: func(ctx context.Context) error {
				key := "probe:rw"
				if err := st.SetState(ctx, key, time.Now().UTC().Format(time.RFC3339)); err != nil {
					return fmt.Errorf("write: %w", err)
				}
				if _, ok := st.GetState(ctx, key); !ok {
					return fmt.Errorf("read back failed")
				}
				return st.DeleteState(ctx, key)
			},
		},
		{
			Name: "Fast cache tier",
			Check: func(ctx context.Context) error {
				key := cache.Key(cache.TypeLocation, "probe", "rw")
				if err := tiers.Set(ctx, key, cache.TypeLocation, []byte("ok")); err != nil {
					return err
				}
				defer tiers.Delete(ctx, key)
				if _, ok := tiers.Get(ctx, key, cache.TypeLocation); !ok {
					return fmt.Errorf("read back failed")
				}
				return nil
			},
		},
		{
			Name: "Brave API key",
			Check: func(context.Context) error {
				if !svcs.Brave.Configured() {
					return fmt.Errorf("BRAVE_API_KEY not set; primary image search disabled")
				}
				return nil
			},
		},
		{
			Name: "Flickr API key",
			Check: func(context.Context) error {
				if !svcs.Flickr.Configured() {
					return fmt.Errorf("FLICKR_API_KEY not set; photo directory disabled")
				}
				return nil
			},
		},
		{
			Name: "GeoNames account",
			Check: func(context.Context) error {
				if !svcs.GeoNames.Configured() {
					return fmt.Errorf("GEONAMES_USERNAME not set; nearby places disabled")
				}
				return nil
			},
		},
		{
			Name:  "Gemini",
			Check: svcs.Gemini.HealthCheck,
		},
	}
	return probes
}

func runServer(ctx context.Context, appCfg *config.Config, svcs *Services, enrichSvc *enrich.Service, dbConn *db.DB, st store.Store, tr *tracker.Tracker, probes []probe.Probe) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	srv := api.NewServer(appCfg.Server.Address,
		api.NewImagesHandler(svcs.Resolver),
		api.NewLocationsHandler(svcs.Nominatim, svcs.GeoNames),
		api.NewEnrichHandler(enrichSvc),
		api.NewPagemetaHandler(svcs.Pagemeta),
		api.NewCacheHandler(dbConn, st, svcs.Resolver),
		api.NewStatsHandler(tr, st),
		api.NewHealthHandler(probes),
		shutdownFunc,
	)

	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
