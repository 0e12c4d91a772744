// Package main runs the background worker: the notification queue consumer
// and the cron scheduler (monthly credit reset, booking completion, statement
// archiving).
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atrium-workspace/backend/config"
	"github.com/atrium-workspace/backend/internal/bookings"
	"github.com/atrium-workspace/backend/internal/cafe"
	"github.com/atrium-workspace/backend/internal/credits"
	"github.com/atrium-workspace/backend/internal/invoices"
	"github.com/atrium-workspace/backend/internal/jobs"
	"github.com/atrium-workspace/backend/internal/organizations"
	"github.com/atrium-workspace/backend/internal/realtime"
	"github.com/atrium-workspace/backend/internal/timeutil"
	"github.com/atrium-workspace/backend/internal/worker"
	"github.com/atrium-workspace/backend/pkg/database"
	"github.com/atrium-workspace/backend/pkg/queue"
	"github.com/atrium-workspace/backend/pkg/redis"
	"github.com/atrium-workspace/backend/pkg/storage"
)

func main() {
	runOnce := flag.String("run-once", "", "run one job and exit: credit-reset, complete-bookings, statements")
	flag.Parse()

	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	loc, err := timeutil.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		logger.Fatal("billing timezone", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:           cfg.AWS.Region,
			AccessKeyID:      cfg.AWS.AccessKeyID,
			SecretAccessKey:  cfg.AWS.SecretAccessKey,
			MenuImagesBucket: cfg.AWS.MenuImagesBucket,
			StatementsBucket: cfg.AWS.StatementsBucket,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	creditsRepo := credits.NewRepository(pool)
	bookingRepo := bookings.NewRepository(pool)
	orgRepo := organizations.NewRepository(pool)
	orderRepo := cafe.NewOrderRepository(pool)
	invoiceRepo := invoices.NewRepository(pool)
	aggregator := invoices.NewAggregator(invoiceRepo, loc)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	publisher := realtime.NewRedisPubSub(rdb.Client, logger)
	processor := worker.NewNotificationProcessor(orderRepo, orgRepo, aggregator, s3Client, publisher, jobQueue, logger)

	runner := jobs.NewRunner(creditsRepo, bookingRepo, orgRepo, jobQueue, loc, logger)

	if *runOnce != "" {
		switch *runOnce {
		case "credit-reset":
			runner.ResetMonthlyCredits()
		case "complete-bookings":
			runner.CompleteFinishedBookings()
		case "statements":
			runner.EnqueueStatementArchives()
		default:
			logger.Fatal("unknown job", zap.String("job", *runOnce))
		}
		return
	}

	scheduler, err := jobs.NewScheduler(runner, cfg.Jobs, loc, logger)
	if err != nil {
		logger.Fatal("scheduler", zap.Error(err))
	}
	scheduler.Start()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	go processor.Run(workerCtx)
	logger.Info("worker started", zap.String("timezone", loc.String()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	scheduler.Stop()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
