// Package app is the composition root shared by the server and the operator CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"quantumtrust/internal/audit/ledger"
	"quantumtrust/internal/audit/relay"
	auditstore "quantumtrust/internal/audit/store"
	"quantumtrust/internal/did/registry"
	didstore "quantumtrust/internal/did/store"
	"quantumtrust/internal/identity/password"
	identityservice "quantumtrust/internal/identity/service"
	identitystore "quantumtrust/internal/identity/store"
	"quantumtrust/internal/lifecycle"
	lifecyclemetrics "quantumtrust/internal/lifecycle/metrics"
	"quantumtrust/internal/platform/config"
	"quantumtrust/internal/platform/kafka"
	"quantumtrust/internal/platform/postgres"
	"quantumtrust/internal/platform/redis"
)

// Audit records are keyed by entry id, so ordering across partitions is
// recovered by consumers from the key.
const (
	auditTopicPartitions        = 3
	auditTopicReplicationFactor = 1
)

// App holds the wired services.
type App struct {
	DB        *sql.DB
	Lifecycle *lifecycle.Service
	Ledger    *ledger.Ledger
	Relay     *relay.Relay // nil when Kafka is not configured
	Producer  *kafka.Producer
	Redis     *redis.Client
	logger    *slog.Logger
}

// New opens the database and wires stores, registry, identity, ledger and the
// lifecycle coordinator. The audit relay is wired only when Kafka brokers are set.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	a := &App{DB: db, logger: logger}

	txm := postgres.NewTxManager(db, cfg.Lifecycle.TxTimeout)
	users := identitystore.NewPostgres(db)
	dids := registry.New(didstore.NewPostgres(db), users,
		registry.WithLogger(logger),
		registry.WithMethod(cfg.Lifecycle.DIDMethod),
	)
	identity := identityservice.New(users, dids, identityservice.WithLogger(logger))
	a.Ledger = ledger.New(auditstore.NewPostgres(db),
		ledger.WithLogger(logger),
		ledger.WithTransactor(txm),
	)
	a.Lifecycle = lifecycle.New(txm, identity, dids, a.Ledger,
		lifecycle.WithLogger(logger),
		lifecycle.WithMetrics(lifecyclemetrics.New(reg)),
		lifecycle.WithSweepBatchSize(cfg.Lifecycle.SweepBatchSize),
		lifecycle.WithPasswordHasher(password.Hash),
	)

	if len(cfg.Kafka.Brokers) > 0 {
		if err := a.wireRelay(ctx, cfg, reg); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *App) wireRelay(ctx context.Context, cfg config.Config, reg prometheus.Registerer) error {
	producer, err := kafka.NewProducer(cfg.Kafka, a.logger)
	if err != nil {
		return err
	}
	a.Producer = producer
	if err := producer.EnsureTopic(ctx, auditTopicPartitions, auditTopicReplicationFactor); err != nil {
		return fmt.Errorf("ensure audit topic: %w", err)
	}

	var cursor relay.CursorStore = &relay.MemoryCursor{}
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if client != nil {
		a.Redis = client
		cursor = relay.NewRedisCursor(client, relay.DefaultCursorKey)
	} else {
		a.logger.WarnContext(ctx, "redis not configured, audit relay cursor is process-local")
	}

	a.Relay = relay.New(a.Ledger, producer, cursor,
		relay.WithLogger(a.logger),
		relay.WithMetrics(relay.NewMetrics(reg)),
		relay.WithBatchSize(cfg.Kafka.RelayBatch),
		relay.WithInterval(cfg.Kafka.RelayInterval),
		relay.WithGapGrace(cfg.Kafka.RelayGapGrace),
	)
	return nil
}

// Close releases every connection the app opened.
func (a *App) Close() error {
	var errs []error
	if a.Producer != nil {
		a.Producer.Close()
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
