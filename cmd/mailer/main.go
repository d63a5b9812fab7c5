// Command mailer drains the booking mail queue into a spool directory that
// the festival's MTA picks up.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/festival-booking/internal/config"
	"github.com/iliyamo/festival-booking/internal/logger"
	"github.com/iliyamo/festival-booking/internal/queue"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg := config.LoadMailer()
	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zl.Info("mailer started", zap.String("queue", cfg.Queue), zap.String("spool", cfg.SpoolDir))
	err = queue.StartMailConsumer(ctx, cfg.AMQPURL, cfg.Queue, queue.SpoolSink{Dir: cfg.SpoolDir}, zl)
	if err != nil && !errors.Is(err, context.Canceled) {
		zl.Fatal("mailer stopped", zap.Error(err))
	}
	zl.Info("mailer stopped")
}
