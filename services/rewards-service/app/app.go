package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/burakmert236/goodswipe-rewards/common/cache"
	"github.com/burakmert236/goodswipe-rewards/common/config"
	"github.com/burakmert236/goodswipe-rewards/common/database"
	commonevents "github.com/burakmert236/goodswipe-rewards/common/events"
	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/burakmert236/goodswipe-rewards/common/metrics"
	"github.com/burakmert236/goodswipe-rewards/common/natsjetstream"
	"github.com/burakmert236/goodswipe-rewards/common/utils"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/analytics"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/events"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/handler"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/repository"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/rules"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/service"
)

const serviceName = "rewards-service"

type App struct {
	cfg           *config.Config
	grpcServer    *grpc.Server
	health        *health.Server
	metricsServer *http.Server
	store         *database.Store
	natsClient    *natsjetstream.Client
	redisClient   *cache.RedisClient
	metrics       *metrics.Manager
	logger        *logger.Logger

	eventPublisher *events.EventPublisher
	subscriber     *events.EventSubscriber

	cleanup []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		cfg:     cfg,
		cleanup: make([]func() error, 0),
	}

	if err := app.initLogger(); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	if err := app.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := app.initNATS(ctx); err != nil {
		return nil, fmt.Errorf("failed to init NATS: %w", err)
	}

	if err := app.initRedis(ctx); err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}

	if err := app.initMessaging(); err != nil {
		return nil, fmt.Errorf("failed to init messaging: %w", err)
	}

	if err := app.initGRPC(); err != nil {
		return nil, fmt.Errorf("failed to init gRPC: %w", err)
	}

	return app, nil
}

func (a *App) initLogger() error {
	a.logger = logger.New(logger.Config{
		Level:       a.cfg.Server.LogLevel,
		Format:      a.cfg.Server.LogFormat,
		ServiceName: serviceName,
	})
	a.cleanup = append(a.cleanup, func() error {
		// stdout cannot be synced on some platforms
		_ = a.logger.Sync()
		return nil
	})
	return nil
}

func (a *App) initMetrics() error {
	a.metrics = metrics.NewManager()

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.metricsServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	dynamoClient, err := database.NewDynamoDBClient(ctx, a.cfg)
	if err != nil {
		return err
	}

	a.store = database.NewStore(dynamoClient,
		database.WithLogger(a.logger),
		database.WithMetrics(a.metrics),
		database.WithBatchSize(a.cfg.DynamoDB.BatchSize),
	)
	return nil
}

func (a *App) initNATS(ctx context.Context) error {
	natsClient, err := natsjetstream.NewClient(&natsjetstream.Config{
		URL:           a.cfg.NATS.URL,
		MaxReconnect:  a.cfg.NATS.MaxReconnect,
		ReconnectWait: time.Duration(a.cfg.NATS.ReconnectWaitSeconds) * time.Second,
		Timeout:       time.Duration(a.cfg.NATS.TimeoutSeconds) * time.Second,
	}, a.logger)
	if err != nil {
		return err
	}

	a.natsClient = natsClient
	a.cleanup = append(a.cleanup, natsClient.Close)

	// Streams this service publishes to. User and contest streams belong to their producers.
	streams := map[string]string{
		commonevents.RewardEventsStream:         commonevents.RewardEventsWildcard,
		commonevents.RewardCommandsStream:       commonevents.RewardCommandsWildcard,
		commonevents.NotificationCommandsStream: commonevents.NotificationSendCommand,
	}
	for name, subject := range streams {
		if err := natsClient.EnsureStream(ctx, name, subject); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	redisClient, err := cache.NewRedisClient(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}

	a.redisClient = redisClient
	a.cleanup = append(a.cleanup, redisClient.Close)
	return nil
}

func (a *App) initMessaging() error {
	a.eventPublisher = events.NewEventPublisher(natsjetstream.NewPublisher(a.natsClient), a.logger)

	accountRepo := repository.NewAccountRepository(a.store)
	rewardRepo := repository.NewRewardRepository(a.store)
	grantRepo := repository.NewGrantRepository(accountRepo, rewardRepo, database.NewTransactionRepository(a.store))

	rewardService := service.NewRewardService(
		accountRepo,
		rewardRepo,
		grantRepo,
		rules.NewEngine(),
		a.eventPublisher,
		a.logger,
		service.WithDailyWindow(a.cfg.Rewards.DailyWindow()),
		service.WithMetrics(a.metrics),
		service.WithIdentitySync(analytics.NewRedisIdentitySync(a.redisClient.Cmdable(), a.redisClient.Keyspace(), a.logger)),
	)

	contestService := service.NewContestService(
		repository.NewContestRepository(a.store),
		repository.NewContestantRepository(a.store),
		a.logger,
	)

	commandHandler := handler.NewCommandHandler(
		rewardService,
		contestService,
		a.eventPublisher,
		a.cfg.Rewards.NotificationsEnabled,
		a.logger,
	)

	a.subscriber = events.NewEventSubscriber(a.natsClient, commandHandler, a.logger)
	return nil
}

func (a *App) initGRPC() error {
	a.grpcServer = grpc.NewServer(
		grpc.UnaryInterceptor(utils.LoggingInterceptor(a.logger)),
	)

	a.health = health.NewServer()
	healthpb.RegisterHealthServer(a.grpcServer, a.health)
	reflection.Register(a.grpcServer)

	return nil
}

func (a *App) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		a.logger.Info("gRPC server listening", "port", a.cfg.Server.GRPCPort)
		if err := a.grpcServer.Serve(lis); err != nil {
			a.logger.Error("gRPC server stopped", "error", err)
		}
	}()

	go func() {
		a.logger.Info("Metrics server listening", "port", a.cfg.Server.MetricsPort)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server stopped", "error", err)
		}
	}()

	if err := a.subscriber.Start(ctx); err != nil {
		return fmt.Errorf("failed to start subscriber: %w", err)
	}

	a.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	a.logger.Info("Application started successfully")

	return nil
}

func (a *App) Stop(ctx context.Context) error {
	a.logger.Info("Stopping application...")

	if a.health != nil {
		a.health.Shutdown()
	}

	if a.subscriber != nil {
		if err := a.subscriber.Stop(); err != nil {
			a.logger.Error("Failed to stop subscriber", "error", err)
		}
	}

	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to stop metrics server", "error", err)
		}
	}

	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			a.logger.Error("Cleanup error", "error", err)
		}
	}

	return nil
}
