// Command maestro runs the Muse Hub VCS core and the Variation Pipeline
// real-time composition service behind a single HTTP API, an
// introspection gRPC service, a variation expiry sweeper, and a
// logging subscriber on the push/merge event exchange.
package main

import (
	"context"
	"os"
	"time"

	"github.com/cgcardona/maestro/internal/daw"
	"github.com/cgcardona/maestro/internal/httpapi"
	"github.com/cgcardona/maestro/internal/musehub"
	"github.com/cgcardona/maestro/internal/musehub/grpcapi"
	museStore "github.com/cgcardona/maestro/internal/musehub/postgres"
	"github.com/cgcardona/maestro/internal/planner"
	"github.com/cgcardona/maestro/internal/registry"
	"github.com/cgcardona/maestro/internal/statestore"
	"github.com/cgcardona/maestro/internal/variation/pipeline"
	"github.com/cgcardona/maestro/internal/variation/store"
	"github.com/cgcardona/maestro/pkg/mconfig"
	"github.com/cgcardona/maestro/pkg/mhttp"
	"github.com/cgcardona/maestro/pkg/mlauncher"
	"github.com/cgcardona/maestro/pkg/mlog"
	"github.com/cgcardona/maestro/pkg/mpostgres"
	"github.com/cgcardona/maestro/pkg/mrabbitmq"
	"github.com/cgcardona/maestro/pkg/mredis"
	"github.com/cgcardona/maestro/pkg/mtrace"
)

func main() {
	cfg, err := mconfig.FromEnv()
	if err != nil {
		panic(err)
	}

	logger, err := mlog.NewZapLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}

	telemetry := &mtrace.Telemetry{
		ServiceName:    cfg.OtelServiceName,
		ServiceVersion: cfg.Version,
		DeploymentEnv:  cfg.EnvName,
	}

	if cfg.EnableTelemetry {
		if err := telemetry.Start(context.Background()); err != nil {
			logger.Fatalf("starting telemetry: %v", err)
		}

		defer func() {
			if err := telemetry.Shutdown(context.Background()); err != nil {
				logger.Errorf("shutting down telemetry: %v", err)
			}
		}()
	}

	pg := &mpostgres.Connection{
		PrimaryDSN:     cfg.PostgresDSN(),
		DatabaseName:   cfg.DBName,
		MigrationsPath: "migrations",
		Logger:         logger,
	}

	if err := pg.Connect(); err != nil {
		logger.Fatalf("connecting to postgres: %v", err)
	}

	museHubStore := museStore.New(pg)

	redisConn := &mredis.Connection{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Logger:   logger,
	}

	var branchCache *mredis.BranchHeadCache

	if client, err := redisConn.GetClient(context.Background()); err != nil {
		logger.Warnf("redis unavailable, branch head cache disabled: %v", err)
	} else {
		branchCache = mredis.NewBranchHeadCache(client, time.Hour)
	}

	rabbit := &mrabbitmq.Connection{
		URI:      cfg.RabbitMQURI,
		Exchange: cfg.RabbitMQExchange,
		Logger:   logger,
	}

	var eventPublisher musehub.EventPublisher = musehub.NoopEventPublisher{}

	var subscriberChannel = func() *eventLogSubscriber {
		ch, err := rabbit.GetChannel(context.Background())
		if err != nil {
			logger.Warnf("rabbitmq unavailable, event publishing and logging disabled: %v", err)
			return &eventLogSubscriber{exchange: cfg.RabbitMQExchange, logger: logger}
		}

		eventPublisher = mrabbitmq.NewEventPublisher(rabbit)

		return &eventLogSubscriber{channel: ch, exchange: cfg.RabbitMQExchange, logger: logger}
	}()

	objects := musehub.LocalObjectStore{BaseDir: "data/objects"}

	museHub := musehub.NewService(museHubStore, branchCache, objects, logger)
	museHub.Events = eventPublisher

	variations := store.NewVariationStore()
	broadcaster := store.NewSSEBroadcaster(cfg.SSESubscriberQueueSize, logger)
	states := statestore.NewManager()
	registries := registry.NewManager()

	pipelineConfig := pipeline.DefaultConfig()
	pipelineConfig.InstrumentGroupParallelism = cfg.InstrumentGroupParallelism
	pipelineConfig.GeneratorToolTimeout = time.Duration(cfg.GeneratorToolTimeoutSeconds) * time.Second
	pipelineConfig.VariationTTL = time.Duration(cfg.VariationTTLSeconds) * time.Second
	pipelineConfig.SSEHeartbeat = time.Duration(cfg.SSEHeartbeatSeconds) * time.Second

	pl := &pipeline.Pipeline{
		Variations: variations,
		Broadcast:  broadcaster,
		States:     states,
		Planner:    planner.DefaultPlanner{},
		DAW:        daw.DefaultAdapter{},
		Budget:     daw.UnlimitedBudget{},
		Now:        func() int64 { return time.Now().UnixNano() },
		Logger:     logger,
		Config:     pipelineConfig,
	}

	jwtConfig := mhttp.JWTConfig{
		SigningKey: []byte(cfg.JWTSigningKey),
		Issuer:     cfg.JWTIssuer,
		ExpiresIn:  cfg.JWTTokenTTL,
	}

	router := httpapi.NewRouter(httpapi.Dependencies{
		Pipeline:     pl,
		States:       states,
		Registries:   registries,
		MuseHub:      museHub,
		Logger:       logger,
		JWT:          jwtConfig,
		Version:      cfg.Version,
		SSEHeartbeat: cfg.SSEHeartbeatSeconds,
	})

	grpcSrv := grpcapi.NewServer(grpcapi.Dependencies{
		MuseHub:    museHub,
		Variations: variations,
		Logger:     logger,
	})

	launcherOpts := []func(*mlauncher.Launcher){
		mlauncher.WithLogger(logger),
		mlauncher.RunApp("HTTP Server", &httpServer{app: router, address: cfg.ServerAddress, logger: logger}),
		mlauncher.RunApp("gRPC Server", &grpcServer{srv: grpcSrv, address: cfg.GRPCAddress, logger: logger}),
		mlauncher.RunApp("Variation Sweeper", &variationSweeper{
			variations: variations,
			ttl:        pipelineConfig.VariationTTL,
			interval:   time.Duration(cfg.VariationSweepIntervalSecs) * time.Second,
			logger:     logger,
		}),
		mlauncher.RunApp("Event Log Subscriber", subscriberChannel),
	}

	mlauncher.NewLauncher(launcherOpts...).Run()

	os.Exit(0)
}
