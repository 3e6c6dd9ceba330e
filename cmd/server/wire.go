//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"zapcrm/messaging-gateway/internal/config"
	"zapcrm/messaging-gateway/internal/domain/automation"
	"zapcrm/messaging-gateway/internal/domain/chat"
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

var repositorySet = wire.NewSet(
	tenantrepo.NewRepository,
	wire.Bind(new(tenant.Repository), new(*tenantrepo.Repository)),
	chatrepo.NewConversationRepository,
	wire.Bind(new(chat.ConversationRepository), new(*chatrepo.ConversationRepository)),
	chatrepo.NewMessageRepository,
	wire.Bind(new(chat.MessageRepository), new(*chatrepo.MessageRepository)),
	rulerepo.NewRepository,
	wire.Bind(new(automation.RuleRepository), new(*rulerepo.Repository)),
	leadrepo.NewRepository,
	wire.Bind(new(automation.LeadCreator), new(*leadrepo.Repository)),
)

var domainSet = wire.NewSet(
	accounts.NewClient,
	wire.Bind(new(tenant.AccountRegistry), new(*accounts.Client)),
	tenant.NewResolver,
	provideGuard,
	wire.Bind(new(outbound.Guard), new(*dedup.Guard)),
	wire.Bind(new(ingest.Guard), new(*dedup.Guard)),
	storage.NewS3Storage,
	wire.Bind(new(ingest.BlobStore), new(*storage.S3Storage)),
	wire.Bind(new(outbound.BlobStore), new(*storage.S3Storage)),
)

// BuildApplication assembles the gateway with Wire. The session registry,
// ingest pipeline and client factory form a cycle and are wired manually in
// server.go; this builder covers the acyclic remainder.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		repositorySet,
		domainSet,
		assembleApplication,
	)
	return nil, nil
}

// assembleApplication builds the cyclic core (factory, registry, pipeline)
// the same way server.go does, then hangs the HTTP surface off it.
func assembleApplication(
	cfg *config.Config,
	log zerolog.Logger,
	db *gorm.DB,
	tenantRepo tenant.Repository,
	conversations chat.ConversationRepository,
	messages chat.MessageRepository,
	rules automation.RuleRepository,
	leads automation.LeadCreator,
	resolver *tenant.Resolver,
	guard *dedup.Guard,
	blobs *storage.S3Storage,
) *Application {
	var pipeline *ingest.Pipeline
	factory := whatsapp.NewFactory(cfg.SessionStorePath, trafficFunc{
		inbound:  func(ctx context.Context, evt ingest.Event) { pipeline.HandleInbound(ctx, evt) },
		outbound: func(ctx context.Context, evt ingest.Event) { pipeline.HandleOutbound(ctx, evt) },
		receipt:  func(ctx context.Context, rcpt ingest.Receipt) { pipeline.HandleReceipt(ctx, rcpt) },
	}, log)
	registry := session.NewRegistry(session.ManagerOptions{
		Factory:       factory,
		Repo:          tenantRepo,
		Publisher:     events.NopPublisher{},
		Policy:        retry.FixedPolicy(cfg.StartMaxRetries, cfg.StartRetryDelay),
		ProbeInterval: cfg.ProbeInterval,
		Log:           log,
	})
	sender := outbound.NewService(registry, guard, conversations, messages, blobs, log)
	engine := automation.NewEngine(rules, messages, leads, sender, log)
	pipeline = ingest.NewPipeline(conversations, messages, blobs, guard, engine, cfg.MaxMediaBytes, log)

	provider := handlers.NewProvider(cfg, resolver, registry, sender, log)
	httpServer := httpserver.New(cfg, provider, log, blobs.Health)
	return NewApplication(httpServer, registry, log)
}

func provideGuard(cfg *config.Config) *dedup.Guard {
	return dedup.New(cfg.DedupTTL, cfg.DedupMaxEntries, nil)
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseDSN,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}
