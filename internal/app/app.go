package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose"
	redisClient "github.com/redis/go-redis/v9"
	"github.com/sm8ta/safaride_ride_microservice/internal/adapter/handler/http"
	"github.com/sm8ta/safaride_ride_microservice/internal/adapter/kafka"
	"github.com/sm8ta/safaride_ride_microservice/internal/adapter/logger"
	"github.com/sm8ta/safaride_ride_microservice/internal/adapter/memory"
	"github.com/sm8ta/safaride_ride_microservice/internal/adapter/osrm"
	"github.com/sm8ta/safaride_ride_microservice/internal/adapter/postgres"
	"github.com/sm8ta/safaride_ride_microservice/internal/adapter/prometheus"
	"github.com/sm8ta/safaride_ride_microservice/internal/adapter/redis"
	"github.com/sm8ta/safaride_ride_microservice/internal/adapter/s3"
	"github.com/sm8ta/safaride_ride_microservice/internal/adapter/websocket"
	"github.com/sm8ta/safaride_ride_microservice/internal/config"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/services"
)

type App struct {
	Config       *config.Container
	Logger       ports.LoggerPort
	DB           *sql.DB
	RedisClient  *redisClient.Client
	RedisAdapter ports.CachePort
	Events       ports.EventPublisher
	Hub          *websocket.Hub
	HTTPRouter   *http.Router
}

type repositories struct {
	rides        ports.RideRepository
	users        ports.UserRepository
	verification ports.VerificationRepository
	sos          ports.SOSRepository
}

func New(ctx context.Context, cfg *config.Container) (*App, error) {
	// Set logger
	loggerAdapter := logger.NewLoggerAdapter(cfg.App.Env, cfg.App.LogLevel)
	loggerAdapter.Info("Starting the application", map[string]interface{}{
		"app": cfg.App.Name,
		"env": cfg.App.Env,
	})

	a := &App{
		Config: cfg,
		Logger: loggerAdapter,
	}

	// Set redis
	var cacheAdapter ports.CachePort
	if cfg.Redis.Address != "" {
		redisConn := redisClient.NewClient(&redisClient.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if _, err := redisConn.Ping(ctx).Result(); err != nil {
			redisConn.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.RedisClient = redisConn
		cacheAdapter = redis.NewRedisAdapter(redisConn)
		a.RedisAdapter = cacheAdapter
	} else {
		loggerAdapter.Warn("REDIS_ADDRESS not set, ride cache disabled", nil)
	}

	// Storage
	repos, err := a.openStorage(ctx)
	if err != nil {
		a.closeClients()
		return nil, err
	}

	// Validate
	validate := services.NewValidator()

	// Observability
	metrics := prometheus.NewPrometheusAdapter()

	// Events
	if len(cfg.Kafka.Brokers) > 0 {
		a.Events = kafka.NewEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	} else {
		loggerAdapter.Warn("KAFKA_BROKERS not set, events are only logged", nil)
		a.Events = kafka.NewLogPublisher(loggerAdapter)
	}
	a.Hub = websocket.NewHub(cfg.HTTP.AllowedOrigins, loggerAdapter)
	notifier := services.NewNotifier(cacheAdapter, a.Events, a.Hub, metrics, loggerAdapter)

	// Documents
	var blobs ports.BlobStore
	if cfg.S3.Bucket != "" {
		store, err := s3.NewBlobStore(s3.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			a.closeClients()
			return nil, err
		}
		blobs = store
	} else {
		loggerAdapter.Warn("S3_BUCKET not set, verification documents are kept in memory", nil)
		blobs = memory.NewBlobStore()
	}

	// Routing
	var routes ports.RouteProvider
	if cfg.OSRM.Endpoint != "" {
		routes = osrm.NewClient(cfg.OSRM.Endpoint, cfg.OSRM.Timeout)
	}

	// Services
	tokenService := http.NewJWTTokenService(cfg.Token.Secret, cfg.Token.Duration, loggerAdapter)
	rideService := services.NewRideService(repos.rides, repos.users, routes, loggerAdapter, validate, cacheAdapter, metrics, notifier)
	rideService.SetPageSize(cfg.Rides.PageSize)
	verificationService := services.NewVerificationService(repos.verification, repos.users, blobs, loggerAdapter, validate, notifier)
	authService := services.NewAuthService(repos.users, tokenService, loggerAdapter, validate)
	userService := services.NewUserService(repos.users, loggerAdapter, validate)
	sosService := services.NewSOSService(repos.sos, repos.rides, repos.users, loggerAdapter, validate, metrics, notifier)
	adminService := services.NewAdminService(repos.users, repos.rides, repos.verification, loggerAdapter)

	// Init HTTP router
	router, err := http.NewRouter(cfg.HTTP, tokenService, http.Handlers{
		Auth:         http.NewAuthHandler(authService, loggerAdapter, metrics),
		User:         http.NewUserHandler(userService, loggerAdapter, metrics),
		Ride:         http.NewRideHandler(rideService, loggerAdapter, metrics),
		Verification: http.NewVerificationHandler(verificationService, loggerAdapter, metrics),
		SOS:          http.NewSOSHandler(sosService, a.Hub, loggerAdapter, metrics),
		Admin:        http.NewAdminHandler(adminService, loggerAdapter, metrics),
		Route:        http.NewRouteHandler(rideService, loggerAdapter, metrics),
	})
	if err != nil {
		a.closeClients()
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}
	a.HTTPRouter = router

	return a, nil
}

// openStorage connects to Postgres and migrates it, or falls back to the
// in-memory store when no database is configured.
func (a *App) openStorage(ctx context.Context) (*repositories, error) {
	dsn := a.Config.DB.PostgresDSN()
	if dsn == "" {
		a.Logger.Warn("No database configured, using in-memory store", nil)
		store := memory.NewStore()
		return &repositories{rides: store, users: store, verification: store, sos: store}, nil
	}

	db, err := postgres.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}

	// Migrate DB
	if err := goose.Up(db, a.Config.DB.MigrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	a.DB = db

	return &repositories{
		rides:        postgres.NewRideRepository(db),
		users:        postgres.NewUserRepository(db),
		verification: postgres.NewVerificationRepository(db),
		sos:          postgres.NewSOSRepository(db),
	}, nil
}

// Runs all services
func (a *App) Run() error {
	listenAddr := a.Config.HTTP.Addr()
	a.Logger.Info("Starting HTTP server", map[string]interface{}{
		"addr": listenAddr,
	})

	if err := a.HTTPRouter.Serve(listenAddr); err != nil {
		a.Logger.Error("HTTP server error", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// Stops all services
func (a *App) Stop(ctx context.Context) error {
	a.Logger.Info("Shutting down gracefully...", nil)

	if err := a.HTTPRouter.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
	}

	a.closeClients()

	a.Logger.Info("Application stopped successfully", nil)
	return nil
}

func (a *App) closeClients() {
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			a.Logger.Error("Event publisher close error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	// Close database
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("Database close error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	// Close Redis
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Redis close error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
