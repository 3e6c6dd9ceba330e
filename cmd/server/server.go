package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"zapcrm/messaging-gateway/internal/config"
	"zapcrm/messaging-gateway/internal/domain/automation"
	"zapcrm/messaging-gateway/internal/domain/dedup"
	"zapcrm/messaging-gateway/internal/domain/ingest"
	"zapcrm/messaging-gateway/internal/domain/outbound"
	"zapcrm/messaging-gateway/internal/domain/retry"
	"zapcrm/messaging-gateway/internal/domain/session"
	"zapcrm/messaging-gateway/internal/domain/tenant"
	"zapcrm/messaging-gateway/internal/infrastructure/accounts"
	"zapcrm/messaging-gateway/internal/infrastructure/database"
	"zapcrm/messaging-gateway/internal/infrastructure/events"
	"zapcrm/messaging-gateway/internal/infrastructure/logger"
	"zapcrm/messaging-gateway/internal/infrastructure/repository/chatrepo"
	"zapcrm/messaging-gateway/internal/infrastructure/repository/leadrepo"
	"zapcrm/messaging-gateway/internal/infrastructure/repository/rulerepo"
	"zapcrm/messaging-gateway/internal/infrastructure/repository/tenantrepo"
	"zapcrm/messaging-gateway/internal/infrastructure/storage"
	"zapcrm/messaging-gateway/internal/infrastructure/whatsapp"
	"zapcrm/messaging-gateway/internal/interfaces/httpserver"
	"zapcrm/messaging-gateway/internal/interfaces/httpserver/handlers"
)

// Application bundles the long-lived components that need coordinated
// startup and shutdown.
type Application struct {
	httpServer *httpserver.HttpServer
	sessions   *session.Registry
	closers    []func() error
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, sessions *session.Registry, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		sessions:   sessions,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	err := a.httpServer.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	a.sessions.StopAll(shutdownCtx)
	for _, closeFn := range a.closers {
		if cerr := closeFn(); cerr != nil {
			a.log.Warn().Err(cerr).Msg("close failed during shutdown")
		}
	}
	return err
}

const shutdownGrace = 15 * time.Second

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseDSN,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	blobStorage, err := storage.NewS3Storage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize media storage")
	}

	var publisher session.StatusPublisher = events.NopPublisher{}
	var publisherClose func() error
	if cfg.BroadcastEnabled() {
		amqpPublisher, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize status publisher")
		}
		publisher = amqpPublisher
		publisherClose = amqpPublisher.Close
	}

	tenantRepo := tenantrepo.NewRepository(db)
	conversationRepo := chatrepo.NewConversationRepository(db)
	messageRepo := chatrepo.NewMessageRepository(db)
	ruleRepo := rulerepo.NewRepository(db)
	leadRepo := leadrepo.NewRepository(db)

	accountClient := accounts.NewClient(cfg, log)
	resolver := tenant.NewResolver(tenantRepo, accountClient, log)
	guard := dedup.New(cfg.DedupTTL, cfg.DedupMaxEntries, nil)

	// The pipeline and the client factory reference each other: the factory
	// feeds translated events into the pipeline, and the pipeline's automation
	// engine sends replies back through the sessions the factory built. The
	// registry closes the loop.
	var pipeline *ingest.Pipeline
	factory := whatsapp.NewFactory(cfg.SessionStorePath, trafficFunc{
		inbound:  func(ctx context.Context, evt ingest.Event) { pipeline.HandleInbound(ctx, evt) },
		outbound: func(ctx context.Context, evt ingest.Event) { pipeline.HandleOutbound(ctx, evt) },
		receipt:  func(ctx context.Context, rcpt ingest.Receipt) { pipeline.HandleReceipt(ctx, rcpt) },
	}, log)

	registry := session.NewRegistry(session.ManagerOptions{
		Factory:       factory,
		Repo:          tenantRepo,
		Publisher:     publisher,
		Policy:        retry.FixedPolicy(cfg.StartMaxRetries, cfg.StartRetryDelay),
		ProbeInterval: cfg.ProbeInterval,
		Log:           log,
	})

	sender := outbound.NewService(registry, guard, conversationRepo, messageRepo, blobStorage, log)
	engine := automation.NewEngine(ruleRepo, messageRepo, leadRepo, sender, log)
	pipeline = ingest.NewPipeline(conversationRepo, messageRepo, blobStorage, guard, engine, cfg.MaxMediaBytes, log)

	provider := handlers.NewProvider(cfg, resolver, registry, sender, log)
	httpServer := httpserver.New(cfg, provider, log,
		func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		blobStorage.Health,
	)

	app := NewApplication(httpServer, registry, log)
	if publisherClose != nil {
		app.closers = append(app.closers, publisherClose)
	}

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}
	log.Info().Msg("application exited cleanly")
}

// trafficFunc adapts late-bound pipeline methods to the whatsapp.Traffic
// interface so the factory can be constructed before the pipeline.
type trafficFunc struct {
	inbound  func(ctx context.Context, evt ingest.Event)
	outbound func(ctx context.Context, evt ingest.Event)
	receipt  func(ctx context.Context, rcpt ingest.Receipt)
}

func (t trafficFunc) HandleInbound(ctx context.Context, evt ingest.Event)    { t.inbound(ctx, evt) }
func (t trafficFunc) HandleOutbound(ctx context.Context, evt ingest.Event)   { t.outbound(ctx, evt) }
func (t trafficFunc) HandleReceipt(ctx context.Context, rcpt ingest.Receipt) { t.receipt(ctx, rcpt) }

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
