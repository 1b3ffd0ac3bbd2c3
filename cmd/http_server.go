package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/advance"
	advancestore "github.com/expenseflow/expense-approval/internal/advance/postgres"
	"github.com/expenseflow/expense-approval/internal/attachment"
	attachmentstore "github.com/expenseflow/expense-approval/internal/attachment/postgres"
	"github.com/expenseflow/expense-approval/internal/auth"
	authstore "github.com/expenseflow/expense-approval/internal/auth/postgres"
	"github.com/expenseflow/expense-approval/internal/core/events"
	"github.com/expenseflow/expense-approval/internal/expense"
	expensestore "github.com/expenseflow/expense-approval/internal/expense/postgres"
	"github.com/expenseflow/expense-approval/internal/notification"
	notificationstore "github.com/expenseflow/expense-approval/internal/notification/postgres"
	"github.com/expenseflow/expense-approval/internal/profile"
	profilestore "github.com/expenseflow/expense-approval/internal/profile/postgres"
	"github.com/expenseflow/expense-approval/internal/transport/rest"
	"github.com/expenseflow/expense-approval/internal/transport/swagger"
	"github.com/expenseflow/expense-approval/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Bus    *events.EventBus
	Router *chi.Mux
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	log := logger.L()

	if err := swagger.ValidateSpec(context.Background(), "./api/openapi.yml"); err != nil {
		log.Warn("openapi spec validation failed, swagger UI may be degraded", "error", err)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	log.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
		deps.Bus.Drain()
		if err := deps.DB.Close(); err != nil {
			log.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	log.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	bus := events.NewEventBus(log)

	authRepo := authstore.NewRepository(gormDB)
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokenGen, config.Security.BCryptCost, log)
	authHandler := auth.NewHandler(authService)

	storage := attachment.NewDiskStorage(config.Storage.UploadDir, config.Storage.MaxUploadSize)
	attachmentRepo := attachmentstore.NewAttachmentRepository(gormDB)
	attachmentService := attachment.NewService(attachmentRepo, storage, log)

	expenseRepo := expensestore.NewExpenseRepository(gormDB)
	expenseService := expense.NewService(expenseRepo, attachmentService, bus, log)
	expenseHandler := expense.NewHandler(expenseService, attachmentService)

	advanceRepo := advancestore.NewAdvanceRepository(gormDB)
	advanceService := advance.NewService(advanceRepo, bus, log)
	advanceHandler := advance.NewHandler(advanceService)

	profileRepo := profilestore.NewProfileRepository(gormDB)
	profileService := profile.NewService(profileRepo, log)
	profileHandler := profile.NewHandler(profileService)

	notificationRepo := notificationstore.NewNotificationRepository(gormDB)
	notificationService := notification.NewService(notificationRepo, log)
	notificationHandler := notification.NewHandler(notificationService)

	notification.NewSubscriber(notificationService, log).Register(bus)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, rest.Handlers{
		Auth:          authHandler,
		Profile:       profileHandler,
		Expense:       expenseHandler,
		Advance:       advanceHandler,
		Notification:  notificationHandler,
		AllowedOrigin: config.Server.AllowedOrigins,
		UploadDir:     config.Storage.UploadDir,
	}, log)

	return &Dependencies{
		Config: config,
		DB:     db,
		Gorm:   gormDB,
		Bus:    bus,
		Router: router,
	}, nil
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers the ORM over the already-open pgx connection so both share
// one pool.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormpg.New(gormpg.Config{Conn: db.DB}), &gorm.Config{})
}
