package main

import (
	"context"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/listforge/trustgate/adapters/chain"
	"github.com/listforge/trustgate/adapters/events"
	"github.com/listforge/trustgate/adapters/store"
	"github.com/listforge/trustgate/adapters/tokenizer"
	"github.com/listforge/trustgate/config"
	"github.com/listforge/trustgate/service"
	"github.com/listforge/trustgate/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	// Migrations run once per process; a replica losing the lock race retries
	// on the next call, so a cold-start failure here is logged rather than
	// fatal and RunAll is attempted again before serving.
	migrator := store.NewMigrator(db, store.DefaultMigrations(), log)
	if err := migrator.RunAll(ctx); err != nil {
		log.Error().Err(err).Msg("initial migration pass failed, retrying")
		if err := migrator.RunAll(ctx); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("create event publisher")
	}

	endpoints, err := cfg.ChainEndpoints()
	if err != nil {
		log.Fatal().Err(err).Msg("parse chain endpoints")
	}
	readers, err := chain.DialReaders(ctx, endpoints)
	if err != nil {
		log.Fatal().Err(err).Msg("dial chain endpoints")
	}

	pg := store.NewPostgres(db)
	eventPub := events.NewWatermillPublisher(publisher)

	authService := service.NewAuthService(
		pg,
		tokenizer.NewHMACTokenizer([]byte(cfg.SessionSecret), cfg.SessionTTL),
		store.NewRedisDenylist(redisClient),
		eventPub,
		log,
	)
	settlementService := service.NewSettlementService(
		service.NewPaymentVerifier(readers, cfg.ChainLookupTimeout),
		pg,
		service.DefaultPrices(),
		common.HexToAddress(cfg.TreasuryAddress),
		eventPub,
		log,
	)

	handlers := http.NewHandlers(authService, settlementService, pg, pg, cfg.SIWEDomain)
	router := http.SetupRouter(handlers, authService)

	log.Info().Str("addr", cfg.ListenAddr).Msg("starting server")
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
