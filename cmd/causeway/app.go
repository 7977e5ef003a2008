package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/causeway-ops/causeway/internal/chat"
	"github.com/causeway-ops/causeway/internal/clustering"
	"github.com/causeway-ops/causeway/internal/config"
	"github.com/causeway-ops/causeway/internal/llm"
	"github.com/causeway-ops/causeway/internal/logging"
	"github.com/causeway-ops/causeway/internal/rca"
	"github.com/causeway-ops/causeway/internal/repository"
	"github.com/causeway-ops/causeway/internal/secrets"
	"github.com/causeway-ops/causeway/internal/telemetry"
	"github.com/causeway-ops/causeway/internal/vectorstore"
	"github.com/causeway-ops/causeway/internal/vendors"
	"github.com/causeway-ops/causeway/internal/vendors/coralogix"
	"github.com/causeway-ops/causeway/internal/vendors/pagerduty"
)

// app bundles the wired service graph shared by serve and investigate.
type app struct {
	cfg       *config.Config
	log       *logging.Logger
	store     *repository.PostgresStore
	engine    *rca.Engine
	chat      *chat.Service
	secrets   *secrets.Manager
	registry  *vendors.Registry
	publisher *telemetry.Publisher
	redis     *redis.Client
}

// newApp builds the full collaborator graph from configuration.
func newApp(ctx context.Context, cfg *config.Config, log *logging.Logger) (*app, error) {
	store, err := repository.NewPostgresStore(ctx, cfg.Database.Postgres.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	secretMgr, err := secrets.NewManager(cfg.Secrets.Key)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init secret manager: %w", err)
	}

	vsClient, err := vectorstore.NewClient(vectorstore.Config{
		URL:      cfg.Storage.URL,
		Username: cfg.Storage.Username,
		Password: cfg.Storage.Password,
		Insecure: cfg.Storage.Insecure,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("connect vector store: %w", err)
	}
	opener := rca.OpenerFunc(func(name, indexType string) rca.DocumentSearcher {
		return vsClient.Open(name, indexType)
	})

	llmClient := llm.NewHTTPClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})

	registry := vendors.NewRegistry()
	registry.RegisterAlertParser(&pagerduty.Parser{})
	registry.RegisterLogTool(&coralogix.Provider{})

	clusterer := clustering.NewClient(cfg.Clustering.URL, cfg.Clustering.Timeout)

	var publisher *telemetry.Publisher
	if cfg.NATS.Enabled {
		natsCfg := telemetry.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Name = cfg.NATS.Name
		publisher, err = telemetry.NewPublisher(natsCfg, log)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connect telemetry bus: %w", err)
		}
	}

	var rdb *redis.Client
	var quota *chat.Quota
	if cfg.Redis.Enabled {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			store.Close()
			publisher.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opt)
		quota = chat.NewQuota(rdb, cfg.Chat.QuotaLimit, cfg.Chat.QuotaWindow)
	}

	engine := rca.NewEngine(store, secretMgr, opener, llmClient, registry,
		clusterer, publisher, log, cfg.Pipeline, cfg.Server.Env)
	chatSvc := chat.NewService(llmClient, store, quota, publisher, log, cfg.Server.Env)

	return &app{
		cfg:       cfg,
		log:       log,
		store:     store,
		engine:    engine,
		chat:      chatSvc,
		secrets:   secretMgr,
		registry:  registry,
		publisher: publisher,
		redis:     rdb,
	}, nil
}

// close releases every connection the app holds.
func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.publisher.Close()
	a.store.Close()
}
