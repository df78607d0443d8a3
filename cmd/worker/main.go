// Package main runs the background job worker (email dispatch, CSV report
// export to S3).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hourtrack/backend/config"
	"github.com/hourtrack/backend/internal/emaillogs"
	"github.com/hourtrack/backend/internal/reports"
	"github.com/hourtrack/backend/internal/worker"
	"github.com/hourtrack/backend/pkg/database"
	"github.com/hourtrack/backend/pkg/mailer"
	"github.com/hourtrack/backend/pkg/queue"
	"github.com/hourtrack/backend/pkg/redis"
	"github.com/hourtrack/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
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
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ReportsBucket:        cfg.AWS.ReportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	mail := mailer.New(cfg.Email.APIKey, cfg.Email.FromName, cfg.Email.FromAddress, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	emailLogRepo := emaillogs.NewRepository(pool)
	reportRepo := reports.NewRepository(pool)

	w := worker.New(jobQueue, mail, emailLogRepo, reportRepo, s3Client, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
