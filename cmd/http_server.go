package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/clearspend/expense-approval/internal"
	"github.com/clearspend/expense-approval/internal/auth"
	authRepo "github.com/clearspend/expense-approval/internal/auth/postgres"
	"github.com/clearspend/expense-approval/internal/category"
	categoryRepo "github.com/clearspend/expense-approval/internal/category/postgres"
	"github.com/clearspend/expense-approval/internal/company"
	companyRepo "github.com/clearspend/expense-approval/internal/company/postgres"
	"github.com/clearspend/expense-approval/internal/core/events"
	"github.com/clearspend/expense-approval/internal/expense"
	expenseRepo "github.com/clearspend/expense-approval/internal/expense/postgres"
	"github.com/clearspend/expense-approval/internal/payment"
	"github.com/clearspend/expense-approval/internal/transport/rest"
	"github.com/clearspend/expense-approval/internal/transport/swagger"
	"github.com/clearspend/expense-approval/internal/user"
	userRepo "github.com/clearspend/expense-approval/internal/user/postgres"
	"github.com/clearspend/expense-approval/internal/workflow"
	workflowStore "github.com/clearspend/expense-approval/internal/workflow/postgres"
	"github.com/clearspend/expense-approval/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.LoggerWrapper()

	db, gormDB, err := initDB(cfg.Database)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	// Fail the boot on a broken API document rather than serving bad docs.
	if _, err := swagger.LoadSpec(context.Background(), cfg.App.OpenAPIPath); err != nil {
		log.Error("openapi spec invalid", "error", err)
		os.Exit(1)
	}

	router := buildRouter(cfg, db, gormDB, log)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "address", addr)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
		if err := db.Close(); err != nil {
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

// buildRouter wires repositories, services, the approval engine and all HTTP
// handlers onto a chi mux.
func buildRouter(cfg *internal.Config, db *sqlx.DB, gormDB *gorm.DB, log *slog.Logger) *chi.Mux {
	users := userRepo.NewUserRepository(gormDB)
	companies := companyRepo.NewCompanyRepository(gormDB)
	expenses := expenseRepo.NewExpenseRepository(gormDB)
	categories := categoryRepo.NewCategoryRepository(gormDB)
	credentials := authRepo.NewAuthRepository(gormDB)
	store := workflowStore.NewWorkflowStore(gormDB)

	bus := events.NewEventBus(log)

	userService := user.NewService(users, log)
	companyService := company.NewService(companies, log)
	converter := expense.NewStaticRateConverter(defaultRates())
	expenseService := expense.NewService(expenses, companyService, converter, log)
	categoryService := category.NewService(categories, log)

	engine := workflow.NewEngine(store, users, companyService, bus, log)

	processor := payment.NewProcessor(expenses, log)
	processor.RegisterHandlers(bus)

	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(credentials, tokenGen, cfg.Security.BCryptCost)

	authHandler := auth.NewHandler(authService, userService)
	rbac := auth.NewRBACAuthorization(log)
	userHandler := user.NewHandler(userService)
	expenseHandler := expense.NewHandler(expenseService)
	workflowHandler := workflow.NewHandler(engine)
	categoryHandler := category.NewHandler(categoryService)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, authHandler, rbac, userHandler, expenseHandler, workflowHandler, categoryHandler, log)
	return router
}

// initDB opens one pgx connection pool and hands the same pool to gorm, so
// health checks and ORM traffic share connection limits.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	const driver = "pgx"

	db, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	return db, gormDB, nil
}

// defaultRates seeds the in-memory converter. Replace with a rates feed when
// one exists; until then these cover the seeded demo currencies.
func defaultRates() map[string]float64 {
	return map[string]float64{
		"USD/EUR": 0.92,
		"USD/GBP": 0.79,
		"USD/SGD": 1.35,
		"EUR/GBP": 0.86,
	}
}
