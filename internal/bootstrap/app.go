package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ayushanand27/xhire/internal/hub"
	"github.com/ayushanand27/xhire/internal/infra/execution/piston"
	gormpersistence "github.com/ayushanand27/xhire/internal/infra/persistence/gorm"
	"github.com/ayushanand27/xhire/internal/infra/setup"
	redisstate "github.com/ayushanand27/xhire/internal/infra/state/redis"
	"github.com/ayushanand27/xhire/internal/infra/video"
	"github.com/ayushanand27/xhire/internal/service"
	"github.com/ayushanand27/xhire/internal/tasks"
	"github.com/ayushanand27/xhire/internal/worker"
)

// App holds every long-lived component of the server process.
type App struct {
	Config       *Config
	Log          *logrus.Logger
	DB           *gorm.DB
	RedisClient  *redis.Client
	AsynqClient  *asynq.Client
	WorkerServer *worker.WorkerServer
	Hub          *hub.Hub
	HTTPServer   *http.Server

	Identity *service.IdentityService

	cancelHub context.CancelFunc
}

// Services groups the application services so the router can be built from them.
type Services struct {
	Identity    *service.IdentityService
	Rooms       *service.RoomService
	Chat        *service.ChatService
	Activity    *service.ActivityService
	Execution   *service.ExecutionService
	Preferences *service.PreferencesService
}

// OpenDB connects to the configured database.
func OpenDB(cfg *Config, log *logrus.Logger) (*gorm.DB, error) {
	return setup.InitDB(setup.DBConfig{
		Driver:   cfg.DBDriver,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
		Path:     cfg.DBPath,
		LogLevel: log.GetLevel(),
	})
}

// NewApp loads configuration and wires every component. Nothing is started.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log := NewLogger(cfg)
	log.WithFields(logrus.Fields{"env": cfg.AppEnv, "level": log.GetLevel().String()}).Info("Configuration loaded")

	db, err := OpenDB(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}

	redisClient, err := setup.InitRedis(setup.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	asynqClient := asynq.NewClient(redisOpt)

	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	chatRepo := gormpersistence.NewGormChatRepository(db)
	activityRepo := gormpersistence.NewGormActivityRepository(db)
	preferencesRepo := gormpersistence.NewGormPreferencesRepository(db)
	presenceRepo := redisstate.NewRedisPresenceRepository(redisClient, cfg.RedisKeyPrefix,
		redisstate.WithStaleAfter(cfg.PresenceStaleAfter))
	fanout := redisstate.NewRedisFanout(redisClient, cfg.RedisKeyPrefix)
	limiter := redisstate.NewRedisRateLimiter(redisClient, cfg.RedisKeyPrefix)

	var videoProvider service.VideoProvider = video.NoopProvider{}
	if cfg.VideoEnabled() {
		sp, err := video.NewStreamProvider(cfg.StreamAPIKey, cfg.StreamAPISecret)
		if err != nil {
			return nil, fmt.Errorf("failed to init video provider: %w", err)
		}
		videoProvider = sp
	} else {
		log.Warn("STREAM_API_KEY not set; video provider disabled")
	}

	identity, err := service.NewIdentityService(userRepo, cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to create IdentityService: %w", err)
	}
	// Inline recorder for the worker and for enqueue failures; it never reads rooms.
	directRecorder := service.NewActivityService(activityRepo, userRepo, nil)
	enqueuer := tasks.NewEnqueuer(asynqClient, directRecorder)

	rooms := service.NewRoomService(roomRepo, userRepo, videoProvider, enqueuer, enqueuer, service.RoomServiceConfig{
		ProviderTimeout:        cfg.ProviderTimeout,
		DefaultMaxParticipants: cfg.DefaultMaxParticipants,
	})
	services := Services{
		Identity:    identity,
		Rooms:       rooms,
		Chat:        service.NewChatService(chatRepo, rooms, enqueuer),
		Activity:    service.NewActivityService(activityRepo, userRepo, rooms),
		Execution:   service.NewExecutionService(piston.NewClient(cfg.PistonURL, cfg.ExecutionTimeout), rooms, enqueuer, cfg.ExecutionTimeout),
		Preferences: service.NewPreferencesService(preferencesRepo, roomRepo, userRepo),
	}

	hubInstance := hub.NewHub(
		service.NewCollaborationService(rooms, presenceRepo),
		service.NewLifecycleService(presenceRepo, rooms),
		fanout,
		hub.Config{EventsPerSecond: cfg.WSEventsPerSecond, EventBurst: cfg.WSEventBurst},
	)

	workerServer := worker.NewWorkerServer(redisOpt, worker.Dependencies{
		Activity: directRecorder,
		Rooms:    rooms,
		Video:    videoProvider,
	}, worker.Config{
		SweepSchedule: cfg.RoomSweepSchedule,
		Sweep:         worker.SweepConfig{Retention: cfg.InactiveRoomRetention},
	}, log)

	router := NewRouter(cfg, log, services, hubInstance, limiter, readiness(db, redisClient))

	return &App{
		Config:       cfg,
		Log:          log,
		DB:           db,
		RedisClient:  redisClient,
		AsynqClient:  asynqClient,
		WorkerServer: workerServer,
		Hub:          hubInstance,
		Identity:     identity,
		HTTPServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}, nil
}

// Start launches the hub, the worker and the HTTP listener in the background.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelHub = cancel
	go a.Hub.Run(ctx)
	a.Log.Info("Hub routine started")

	if err := a.WorkerServer.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start worker: %w", err)
	}

	go func() {
		a.Log.Infof("HTTP server listening on %s", a.HTTPServer.Addr)
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
	return nil
}

// Shutdown stops accepting requests, closes sockets, drains the worker and
// releases connections, in that order.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}

	if a.cancelHub != nil {
		a.cancelHub()
		a.Hub.Wait()
	}
	a.WorkerServer.Shutdown()

	if err := a.AsynqClient.Close(); err != nil {
		a.Log.Errorf("Error closing Asynq client: %v", err)
	}
	if err := a.RedisClient.Close(); err != nil {
		a.Log.Errorf("Error closing Redis connection: %v", err)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.Log.Errorf("Error closing database: %v", err)
		}
	}
	a.Log.Info("Application shutdown complete")
}

// readiness pings the database and Redis.
func readiness(db *gorm.DB, rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}
}
