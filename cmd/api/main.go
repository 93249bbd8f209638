package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sdr_assistant_backend/internal/adapters"
	"sdr_assistant_backend/internal/adapters/storage"
	"sdr_assistant_backend/internal/chat"
	"sdr_assistant_backend/internal/conversation"
	"sdr_assistant_backend/internal/email"
	"sdr_assistant_backend/internal/events"
	apphttp "sdr_assistant_backend/internal/http"
	"sdr_assistant_backend/internal/http/router"
	"sdr_assistant_backend/internal/knowledge"
	"sdr_assistant_backend/internal/knowledge/index"
	"sdr_assistant_backend/internal/notification"
	"sdr_assistant_backend/internal/scheduler"
	"sdr_assistant_backend/platform/ai/embeddingapi"
	"sdr_assistant_backend/platform/ai/embeddings"
	"sdr_assistant_backend/platform/ai/openrouter"
	"sdr_assistant_backend/platform/config"
	"sdr_assistant_backend/platform/db"
	"sdr_assistant_backend/platform/keylock"
	"sdr_assistant_backend/platform/logger"
	"sdr_assistant_backend/platform/qdrant"
	"sdr_assistant_backend/platform/redisconn"
	"sdr_assistant_backend/platform/validator"
)

const (
	// lockTTL bounds how long a crashed replica can hold a conversation.
	lockTTL         = 3 * time.Minute
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "store", cfg.GetStoreDriver())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profile, err := config.LoadAgentProfile(cfg.GetAgentProfilePath())
	if err != nil {
		log.Error("failed to load agent profile", "error", err)
		panic("failed to load agent profile: " + err.Error())
	}

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	store, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	locker, closeLocker := initLocker(cfg, log)
	defer closeLocker()

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	storageSvc := initStorage(ctx, cfg, log)

	enqueuer, closeScheduler := initScheduler(cfg, log)
	defer closeScheduler()

	// ========================================================================
	// Knowledge (FAQ + lead corpora)
	// ========================================================================

	embedder := newEmbedder(cfg, log)
	serviceCfg := knowledge.ServiceConfig{
		Bucket:        cfg.GetMinioBucketLeadCorpus(),
		PhoneRegion:   cfg.GetLeadPhoneRegion(),
		MaxUploadSize: cfg.GetMinIOMaxFileSize(),
	}

	faqIndex := index.New("faq", embedder, index.FAQSplitter(), index.WithLoader(knowledge.FAQFileLoader(cfg.GetFAQPath())))
	leadIndex := index.New("leads", embedder, index.LeadSplitter(), index.WithLoader(knowledge.StoredLeadLoader(storageSvc, serviceCfg, log)))

	var faqSearcher knowledge.Searcher = faqIndex
	var faqTarget knowledge.Rebuilder = faqIndex
	if cfg.IsQdrantEnabled() && cfg.IsEmbeddingEnabled() {
		client := qdrant.NewClient(qdrant.Config{
			BaseURL:    cfg.GetQdrantURL(),
			APIKey:     cfg.GetQdrantAPIKey(),
			Collection: cfg.GetQdrantCollection(),
		})
		faqSearcher = knowledge.NewFallbackSearcher(knowledge.NewQdrantSearcher(embedder, client), faqIndex, log)
		ingest := embeddingapi.NewClient(embeddingapi.Config{
			BaseURL:    cfg.GetEmbeddingAPIURL(),
			APIKey:     cfg.GetEmbeddingAPIKey(),
			Collection: cfg.GetQdrantCollection(),
		})
		faqTarget = knowledge.NewCollectionMirror(faqIndex, ingest, index.FAQSplitter(), "faq", log)
		log.Info("faq served from qdrant with local fallback", "collection", cfg.GetQdrantCollection())
	}

	knowledgeSvc := knowledge.NewService(leadIndex, storageSvc, enqueuer, eventBus, serviceCfg, log)
	retriever := knowledge.NewRetriever(faqSearcher, leadIndex, cfg, log)

	if cfg.GetFAQWatch() {
		watcher := knowledge.NewFAQWatcher(cfg.GetFAQPath(), faqTarget, log)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Warn("faq watcher stopped", "error", err)
			}
		}()
	}

	if cfg.GetRedisURL() != "" {
		worker, err := scheduler.NewWorker(cfg, knowledgeSvc, log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
		go worker.Run(ctx)
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(sender, profile, log)
	notificationModule.RegisterHandlers(eventBus)

	llm := openrouter.NewModel(openrouter.Config{
		APIKey:  cfg.GetLLMAPIKey(),
		BaseURL: cfg.GetLLMBaseURL(),
		Model:   cfg.GetLLMModel(),
		AppName: "SDR Assistant",
	})

	chatModule := chat.NewModule(chat.ModuleDeps{
		Store:     store,
		Locker:    locker,
		Retriever: retriever,
		LLM:       llm,
		Notifier:  adapters.NewChatEscalationNotifier(eventBus),
		Profile:   profile,
	}, cfg, val, log)

	knowledgeModule := knowledge.NewModule(knowledgeSvc, faqIndex, leadIndex)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   store,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			chatModule,
			knowledgeModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	chatModule.Engine().Wait()
	eventBus.Wait()
	log.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (conversation.Store, func()) {
	switch cfg.GetStoreDriver() {
	case "memory":
		log.Warn("using in-memory conversation store; conversations are lost on restart")
		return conversation.NewMemoryStore(), func() {}
	case "sqlite":
		s, err := conversation.OpenSQLite(ctx, cfg.GetSQLitePath())
		if err != nil {
			log.Error("failed to open sqlite store", "error", err, "path", cfg.GetSQLitePath())
			panic("failed to open sqlite store: " + err.Error())
		}
		log.Info("sqlite conversation store opened", "path", cfg.GetSQLitePath())
		return s, func() { _ = s.Close() }
	default:
		var store *conversation.PostgresStore
		var closeFn func()
		if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
			pool, err := db.NewPool(ctx, cfg)
			if err != nil {
				return err
			}
			if err := db.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return err
			}
			store = conversation.NewPostgresStore(pool)
			closeFn = pool.Close
			return nil
		}); err != nil {
			log.Error("failed to connect to database", "error", err)
			panic("failed to connect to database: " + err.Error())
		}
		log.Info("database connection established, migrations complete")
		return store, closeFn
	}
}

func initLocker(cfg config.SchedulerConfig, log *logger.Logger) (keylock.Locker, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; conversation locks are process-local")
		return keylock.NewLocal(), func() {}
	}
	client, err := redisconn.NewClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	return keylock.NewRedis(client, lockTTL), func() { _ = client.Close() }
}

// initScheduler returns a nil interface (not a nil *Client) when Redis is
// absent so the knowledge service falls back to inline rebuilds.
func initScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.LeadCorpusEnqueuer, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; lead corpus rebuilds run inline")
		return nil, func() {}
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, func() {}
	}

	return client, func() {
		_ = client.Close()
	}
}

// initStorage returns a nil interface when MinIO is not configured; uploads
// are then indexed straight from the request and not kept across restarts.
func initStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) storage.StorageService {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; lead corpus uploads are not persisted")
		return nil
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	bucket := cfg.GetMinioBucketLeadCorpus()
	if err := withRetry(ctx, log, "ensure lead-corpus bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "leadCorpusBucket", bucket)
	return storageSvc
}

func newEmbedder(cfg config.EmbeddingConfig, log *logger.Logger) index.Embedder {
	if !cfg.IsEmbeddingEnabled() {
		log.Info("EMBEDDING_API_URL not configured; using local hashing embedder")
		return index.NewHashEmbedder()
	}
	return embeddings.NewClient(embeddings.Config{
		BaseURL: cfg.GetEmbeddingAPIURL(),
		APIKey:  cfg.GetEmbeddingAPIKey(),
	})
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
