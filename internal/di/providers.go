package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/secure-credential-service/internal/app"
	"github.com/sandeepkv93/secure-credential-service/internal/config"
	"github.com/sandeepkv93/secure-credential-service/internal/credential"
	"github.com/sandeepkv93/secure-credential-service/internal/database"
	"github.com/sandeepkv93/secure-credential-service/internal/health"
	"github.com/sandeepkv93/secure-credential-service/internal/http/handler"
	"github.com/sandeepkv93/secure-credential-service/internal/http/router"
	"github.com/sandeepkv93/secure-credential-service/internal/legacy"
	"github.com/sandeepkv93/secure-credential-service/internal/observability"
	"github.com/sandeepkv93/secure-credential-service/internal/repository"
	"github.com/sandeepkv93/secure-credential-service/internal/security"
)

const (
	storeDatabase = "database"
	storeRedis    = "redis"
	storeMemory   = "memory"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	wire.Bind(new(repository.UserDirectory), new(*repository.GormUserRepository)),
	provideCredentialBackend,
	provideCredentialStore,
)

var CredentialSet = wire.NewSet(
	providePasswordHasher,
	wire.Bind(new(credential.Hasher), new(*security.PasswordHasher)),
	provideMigrationVerifier,
	credential.NewEngine,
	credential.NewService,
)

var HTTPSet = wire.NewSet(
	wire.Bind(new(handler.CredentialService), new(*credential.Service)),
	handler.NewCredentialHandler,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

// ToolSet backs the admin CLI: the same stores and engine as the server,
// without HTTP or exporters.
var ToolSet = wire.NewSet(
	provideToolLogger,
	provideRuntimeDB,
	provideRedisClient,
	RepositorySet,
	CredentialSet,
	wire.Struct(new(CredentialTool), "*"),
)

type CredentialTool struct {
	Config  *config.Config
	Logger  *slog.Logger
	DB      *gorm.DB
	Redis   redis.UniversalClient
	Users   *repository.GormUserRepository
	Backend repository.CredentialBackend
	Engine  *credential.Engine
	Service *credential.Service
}

// Close waits for pending notifications and releases connections.
func (t *CredentialTool) Close() {
	if t.Engine != nil {
		t.Engine.Wait()
	}
	if t.Redis != nil {
		_ = t.Redis.Close()
	}
	if t.DB != nil {
		if sqlDB, err := t.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

type MigrationRunner struct {
	cfg    *config.Config
	db     *gorm.DB
	logger *slog.Logger
}

func NewMigrationRunner(cfg *config.Config, db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{cfg: cfg, db: db, logger: observability.NewBootstrapLogger(cfg)}
}

func (m *MigrationRunner) Run() error {
	if err := database.Migrate(m.db); err != nil {
		return err
	}
	m.logger.Info("migration complete", "driver", m.cfg.DatabaseDriver)
	return nil
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideToolLogger(cfg *config.Config) *slog.Logger {
	return observability.NewBootstrapLogger(cfg)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if cfg.CredentialStore != storeRedis {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func providePasswordHasher(cfg *config.Config) (*security.PasswordHasher, error) {
	return security.NewPasswordHasher(security.PasswordHasherConfig{Iterations: cfg.PasswordIterations})
}

func provideCredentialBackend(
	cfg *config.Config,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	users repository.UserDirectory,
) (repository.CredentialBackend, error) {
	switch cfg.CredentialStore {
	case storeDatabase, "":
		return repository.NewGormCredentialStore(db), nil
	case storeRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("credential store %q requires a redis client", cfg.CredentialStore)
		}
		return repository.NewRedisCredentialStore(redisClient, users, cfg.RedisKeyPrefix, cfg.RedisTxMaxRetries), nil
	case storeMemory:
		return repository.NewInMemoryCredentialStore(users), nil
	default:
		return nil, fmt.Errorf("unsupported credential store %q", cfg.CredentialStore)
	}
}

func provideCredentialStore(backend repository.CredentialBackend) credential.Store {
	return backend
}

func provideMigrationVerifier(cfg *config.Config, db *gorm.DB) credential.MigrationVerifier {
	if !cfg.LegacyMigration {
		return nil
	}
	return legacy.NewGormVerifier(db)
}

func provideRouterDependencies(
	credentialHandler *handler.CredentialHandler,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		CredentialHandler: credentialHandler,
		Readiness:         readiness,
		EnableOTelHTTP:    cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if cfg.CredentialStore == storeRedis {
		checkers = append(checkers, health.NewRedisChecker(redisClient))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, checkers...)
}
