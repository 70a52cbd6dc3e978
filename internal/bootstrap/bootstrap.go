package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/yigit/machzor/internal/app/controllers"
	appMigrations "github.com/yigit/machzor/internal/app/migrations"
	appRepos "github.com/yigit/machzor/internal/app/repositories"
	appRoutes "github.com/yigit/machzor/internal/app/routes"
	appServices "github.com/yigit/machzor/internal/app/services"
	"github.com/yigit/machzor/internal/config"
	"github.com/yigit/machzor/internal/db"
	appMiddleware "github.com/yigit/machzor/internal/middleware"
	pkgAuth "github.com/yigit/machzor/internal/pkg/auth"
	"github.com/yigit/machzor/internal/pkg/filestorage"
	"github.com/yigit/machzor/internal/pkg/helpers"
	"github.com/yigit/machzor/internal/pkg/logger"
	"github.com/yigit/machzor/internal/pkg/websocket"
	"github.com/yigit/machzor/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	StudentService    *appServices.StudentService
	ImportService     *appServices.ImportService
	AuthService       *appServices.AuthService
	StudentController *appControllers.StudentController
	ImportController  *appControllers.ImportController
	AuthController    *appControllers.AuthController
	AuthMiddleware    *appMiddleware.AuthMiddleware
	Repos             *appRepos.Repositories
	JWTService        *pkgAuth.JWTService
	FeedHub           *websocket.Hub
	FeedHandler       *websocket.Handler
	Logger            zerolog.Logger
	FileStorage       *filestorage.LocalStorage
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, runs migrations and
// seeds the default admin account.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	// NewPostgresDB verifies connectivity before returning.
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database.Pool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")

	if err := seed.CreateDefaultData(context.Background(), database, cfg, lgr); err != nil {
		// A registry without its admin account is still serviceable for
		// existing users, so log and continue.
		lgr.Error().Err(err).Msg("Failed to seed default data, proceeding anyway...")
	}

	return database, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(database)

	// Stale refresh tokens accumulate forever without a sweep.
	go func() {
		ticker := time.NewTicker(12 * time.Hour)
		defer ticker.Stop()
		for {
			if _, err := deps.Repos.Token.CleanupExpiredTokens(context.Background()); err != nil {
				lgr.Warn().Err(err).Msg("Refresh token cleanup failed")
			}
			<-ticker.C
		}
	}()

	// Initialize file storage for archived roster uploads. The base URL must
	// match the static file serving endpoint.
	baseURL := "http://localhost:" + cfg.Server.Port
	fileStorageBaseURL := baseURL + "/uploads"
	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath, fileStorageBaseURL)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	// The feed hub fans committed history events out to websocket clients.
	// Services publish into it through the ActivityNotifier interface.
	deps.FeedHub = websocket.NewHub(lgr)
	go deps.FeedHub.Run()

	deps.StudentService = appServices.NewStudentService(deps.Repos.Student, deps.Repos.History, deps.FeedHub, nil)
	deps.ImportService = appServices.NewImportService(deps.Repos.Student, deps.Repos.ImportRun, deps.FeedHub, nil)
	deps.AuthService = appServices.NewAuthService(deps.Repos.User, deps.Repos.Token, deps.JWTService)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.StudentController = appControllers.NewStudentController(deps.StudentService)
	deps.ImportController = appControllers.NewImportController(deps.ImportService, deps.FileStorage)
	deps.AuthController = appControllers.NewAuthController(deps.AuthService, deps.Logger)
	deps.FeedHandler = websocket.NewHandler(deps.FeedHub, lgr)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	allowedOrigins := strings.Split(cfg.Server.AllowedOrigins, ",")
	router.Use(appMiddleware.RequestLogger(), appMiddleware.CORS(allowedOrigins), gin.Recovery())

	appRoutes.SetupSwagger(router)

	// Setup API routes using the dependencies
	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.StudentController,
		deps.ImportController,
		deps.FeedHandler,
		deps.AuthMiddleware,
	)

	return router
}
