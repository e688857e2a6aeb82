package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cerita/nobat/internal/config"
	"github.com/cerita/nobat/internal/db"
	"github.com/cerita/nobat/internal/dispatcher"
	"github.com/cerita/nobat/internal/kafka"
	"github.com/cerita/nobat/internal/metrics"
	"github.com/cerita/nobat/internal/repository"
	"github.com/cerita/nobat/internal/service/booking"
	"github.com/cerita/nobat/internal/worker"
)

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Run the comment-survey SMS notifier",
	RunE:  runNotifier,
}

func runNotifier(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) DB connections
	dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		PingTimeout:     cfg.MySQL.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
		DSN:             cfg.ClickHouse.DSN,
		MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
		PingTimeout:     cfg.ClickHouse.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	defer chDB.Close()

	// 3) repositories
	turnsRepo := repository.NewTurnsRepository(dbx)
	notifsRepo := repository.NewCHNotificationsRepository(chDB)

	// 4) providers → dispatcher
	var provs []dispatcher.Provider
	for _, pc := range cfg.Providers {
		if !pc.Enabled || strings.TrimSpace(pc.BaseURL) == "" {
			continue
		}
		provs = append(provs,
			dispatcher.NewHTTPProvider(
				pc.Name,
				strings.TrimRight(pc.BaseURL, "/"),
				pc.SurveyPath,
				pc.TimeoutMs,
				pc.Breaker.FailThreshold,
				pc.Breaker.OpenForMs,
			),
		)
	}
	if len(provs) == 0 {
		return fmt.Errorf("no providers enabled in config")
	}
	disp := dispatcher.NewDispatcher(provs, 2)

	// 5) kafka consumer
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "nobat-notifier"
	}

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          booking.CommentSMSTopic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	w := worker.NewNotifier(consumer, turnsRepo, notifsRepo, disp, cfg.Notifier.SurveyText)

	// tune knobs
	if cfg.Notifier.WorkerCount > 0 {
		w.Workers = cfg.Notifier.WorkerCount
	}
	if cfg.Notifier.BatchSize > 0 {
		w.BatchSize = cfg.Notifier.BatchSize
	}
	if cfg.Notifier.BatchWait > 0 {
		w.BatchWait = cfg.Notifier.BatchWait
	}

	// 6) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf(">> notifier started topic=%s group=%s workers=%d batchSize=%d batchWait=%s",
		booking.CommentSMSTopic, groupID, w.Workers, w.BatchSize, w.BatchWait)

	return w.Run(ctx)
}
