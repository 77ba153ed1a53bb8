package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/beacon-sis/beacon/cmd/beacon/cli"
	"github.com/beacon-sis/beacon/internal/app"
	"github.com/beacon-sis/beacon/internal/auth"
	"github.com/beacon-sis/beacon/internal/fees"
	"github.com/beacon-sis/beacon/internal/ledger"
	"github.com/beacon-sis/beacon/internal/observability"
	"github.com/beacon-sis/beacon/internal/platform/cache"
	"github.com/beacon-sis/beacon/internal/platform/db"
	"github.com/beacon-sis/beacon/internal/rbac"
	"github.com/beacon-sis/beacon/internal/reports"
	"github.com/beacon-sis/beacon/internal/shared"
	"github.com/beacon-sis/beacon/internal/students"
	"github.com/beacon-sis/beacon/internal/users"
	"github.com/beacon-sis/beacon/jobs"
	"github.com/beacon-sis/beacon/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		runJobsCommand(os.Args[2:])
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "beacon_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	rbacService := rbac.NewService(dbpool)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	studentRepo := students.NewRepository(dbpool)
	studentService := students.NewService(studentRepo)
	studentHandler := students.NewHandler(studentService, rbacMiddleware, logger)

	feeRepo := fees.NewRepository(dbpool)
	feeService := fees.NewService(feeRepo)
	feeHandler := fees.NewHandler(feeService, rbacMiddleware, logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, studentService, feeService, feeService, auditLogger)
	ledgerHandler := ledger.NewHandler(ledgerService, rbacMiddleware, metrics, jobClient, logger)

	reportsRepo := reports.NewRepository(dbpool)
	reportsService := reports.NewService(reportsRepo, redisClient, 5*time.Minute)
	reportsHandler := reports.NewHandler(reportsService, rbacMiddleware)

	receiptClient := report.NewClient(cfg.GotenbergURL)
	receiptAssembler := report.NewAssembler(ledgerRepo, studentService, cfg.SchoolName)
	receiptHandler := report.NewHandler(receiptClient, receiptAssembler, rbacMiddleware, logger)

	userRepo := users.NewRepository(dbpool)
	userService := users.NewService(userRepo, rbacService, auditLogger)
	userHandler := users.NewHandler(userService, rbacMiddleware, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Metrics:        metrics,
		AuthHandler:    authHandler,
		LedgerHandler:  ledgerHandler,
		FeesHandler:    feeHandler,
		StudentHandler: studentHandler,
		UserHandler:    userHandler,
		ReportsHandler: reportsHandler,
		ReceiptHandler: receiptHandler,
		JobHandler:     jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func runJobsCommand(args []string) {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jobs cli:", err)
		os.Exit(1)
	}
	defer func() {
		_ = jobsCLI.Close()
	}()

	ctx := context.Background()
	switch {
	case len(args) >= 2 && args[0] == "sweep":
		info, err := jobsCLI.TriggerSweep(ctx, args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "trigger sweep:", err)
			os.Exit(1)
		}
		fmt.Println("enqueued", info.ID)
	case len(args) == 1 && args[0] == "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "inspect queue:", err)
			os.Exit(1)
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	default:
		fmt.Fprintln(os.Stderr, "usage: beacon jobs sweep <academic-year> | beacon jobs stats")
		os.Exit(1)
	}
}
