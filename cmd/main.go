// Package main runs the bank ledger API: accounts, deposits, withdrawals and transaction history.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/go-petr/bank-ledger/cmd/httpserver"
	"github.com/go-petr/bank-ledger/internal/events"
	"github.com/go-petr/bank-ledger/internal/ledgerservice"
	"github.com/go-petr/bank-ledger/internal/middleware"
	"github.com/go-petr/bank-ledger/pkg/configpkg"
	"github.com/go-petr/bank-ledger/pkg/dbpkg"
)

const shutdownTimeout = 10 * time.Second

type publisher interface {
	ledgerservice.Publisher
	Close() error
}

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}
	defer db.Close()

	applied, err := dbpkg.Migrate(db, config.MigrationURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot migrate database")
	}
	logger.Info().Bool("applied", applied).Msg("database migrated")

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis is unavailable, serving reads from database")
	}

	var pub publisher = events.NopPublisher{}
	if brokers := config.Brokers(); len(brokers) > 0 {
		pub = events.NewKafkaPublisher(brokers, config.KafkaTopic)
		logger.Info().Strs("brokers", brokers).Str("topic", config.KafkaTopic).Msg("publishing ledger events")
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Error().Err(err).Msg("cannot close event publisher")
		}
	}()

	server, err := httpserver.New(db, rdb, pub, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	srv := &http.Server{
		Addr:              config.ServerAddress,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("address", config.ServerAddress).Msg("BANK LEDGER SERVER HAS STARTED")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("cannot start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
