package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beacon-sis/beacon/internal/app"
	"github.com/beacon-sis/beacon/internal/fees"
	jobmetrics "github.com/beacon-sis/beacon/internal/jobs"
	"github.com/beacon-sis/beacon/internal/ledger"
	"github.com/beacon-sis/beacon/internal/shared"
	"github.com/beacon-sis/beacon/internal/students"
	"github.com/beacon-sis/beacon/jobs"
	"github.com/beacon-sis/beacon/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	studentRepo := students.NewRepository(pool)
	studentService := students.NewService(studentRepo)

	feeRepo := fees.NewRepository(pool)
	feeService := fees.NewService(feeRepo)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, studentService, feeService, feeService, shared.NewAuditLogger(pool))

	pdfClient := report.NewClient(cfg.GotenbergURL)
	assembler := report.NewAssembler(ledgerRepo, studentService, cfg.SchoolName)

	var mailer jobs.Mailer
	if cfg.SMTPHost != "" {
		mailer = jobs.NewSMTPMailer(
			fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
			cfg.SMTPFrom,
			cfg.SMTPUsername,
			cfg.SMTPPassword,
		)
	} else {
		mailer = &jobs.LogMailer{Logger: logger}
	}

	handlers := &jobs.Handlers{
		Sweeper:   ledgerService,
		Assembler: assembler,
		Renderer:  pdfClient,
		Mailer:    mailer,
		Logger:    logger,
		Metrics:   jobmetrics.NewMetrics(nil),
	}

	// Empty year: the handler resolves the academic year when the cron
	// fires, not when the worker booted.
	sweepTask, err := jobs.NewOverdueSweepTask(jobs.OverdueSweepPayload{})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  handlers,
		Cron: []jobs.CronRegistration{
			{Spec: cfg.OverdueSweepCron, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("queue", jobs.QueueDefault))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
