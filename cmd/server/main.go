package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yukikurage/taskpilot/internal/auth"
	"github.com/yukikurage/taskpilot/internal/config"
	"github.com/yukikurage/taskpilot/internal/database"
	"github.com/yukikurage/taskpilot/internal/events"
	"github.com/yukikurage/taskpilot/internal/handlers"
	"github.com/yukikurage/taskpilot/internal/logging"
	"github.com/yukikurage/taskpilot/internal/metrics"
	"github.com/yukikurage/taskpilot/internal/repository"
	"github.com/yukikurage/taskpilot/internal/services"
	"go.uber.org/zap"
)

func main() {
	// A missing .env file is fine; the environment may already be set
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	// Change notifications
	broker := events.NewBroker()
	var notifier events.Notifier = broker
	if cfg.RedisEvents {
		publisher := events.NewRedisPublisher(events.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			Origin:   uuid.NewString(),
		}, logger)
		defer publisher.Close()

		if err := publisher.Ping(ctx); err != nil {
			return fmt.Errorf("failed to reach Redis for change events: %w", err)
		}
		notifier = events.Fanout{broker, publisher}
		go relayRemoteEvents(ctx, publisher, broker, logger)
	}
	changes, unsubscribe := broker.Subscribe(64)
	defer unsubscribe()
	go logChanges(ctx, changes, logger)

	store = repository.NewNotifyingStore(store, notifier)

	authenticator := auth.NewPasswordAuthenticator(auth.Options{
		SignInsPerMinute: cfg.SignInRatePerMin,
		Burst:            cfg.SignInBurst,
	}, logger)

	if cfg.SeedDemoData {
		if err := seed(ctx, store, authenticator, cfg.SeedPassword); err != nil {
			return err
		}
		logger.Info("Demo data seeded", zap.Int("users", len(repository.DemoUsers())))
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		return err
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Identity:     services.NewIdentityService(store, authenticator, m, logger),
		Tasks:        services.NewTaskService(store, m, logger),
		AI:           services.NewAIService(newTextSuggester(cfg, logger), store, m, logger),
		SessionStore: sessionStore,
		Metrics:      m,
		Logger:       logger,
		MockLogin:    cfg.AuthMode == config.AuthModeMock,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.StoreDriver),
			zap.String("auth_mode", cfg.AuthMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore selects the entity store named by STORE_DRIVER.
func openStore(cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		return repository.NewMemoryStore(), nil
	}

	db, err := database.Connect(cfg, logger)
	if err != nil {
		return repository.Store{}, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db, logger); err != nil {
		return repository.Store{}, fmt.Errorf("failed to run migrations: %w", err)
	}
	return repository.NewGormStore(db), nil
}

func seed(ctx context.Context, store repository.Store, authenticator *auth.PasswordAuthenticator, password string) error {
	if err := repository.Seed(ctx, store, time.Now()); err != nil {
		return err
	}
	for _, u := range repository.DemoUsers() {
		if err := authenticator.Register(ctx, u.ID, u.Email, password); err != nil {
			return fmt.Errorf("failed to register demo user %s: %w", u.ID, err)
		}
	}
	return nil
}

// newSessionStore keeps sessions in Redis when it is configured and in
// signed cookies otherwise.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	options := sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	if cfg.RedisAddr() == "" {
		store := cookie.NewStore([]byte(cfg.SessionSecret))
		store.Options(options)
		return store, nil
	}

	store, err := redisStore.NewStore(
		10,    // Redis pool size
		"tcp", // network type
		cfg.RedisAddr(),
		"", // username (empty for default user)
		cfg.RedisPassword,
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis session store: %w", err)
	}
	store.Options(options)
	return store, nil
}

// newTextSuggester returns nil when no provider is configured, which
// leaves AI features answering 503.
func newTextSuggester(cfg *config.Config, logger *zap.Logger) services.TextSuggester {
	if !cfg.AIEnabled() {
		logger.Info("AI features disabled", zap.String("provider", cfg.AIProvider))
		return nil
	}

	var completer services.Completer
	switch cfg.AIProvider {
	case config.AIProviderAnthropic:
		completer = services.NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.AIModel, logger)
	default:
		completer = services.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.AIModel, logger)
	}
	return services.NewLLMSuggester(completer, cfg.AITimeout, logger)
}

// relayRemoteEvents hands changes made by other instances to local
// subscribers.
func relayRemoteEvents(ctx context.Context, publisher *events.RedisPublisher, broker *events.Broker, logger *zap.Logger) {
	remote := make(chan events.Event, 64)
	go func() {
		for event := range remote {
			broker.Publish(ctx, event)
		}
	}()

	if err := publisher.Subscribe(ctx, remote); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Remote change events stopped", zap.Error(err))
	}
	close(remote)
}

func logChanges(ctx context.Context, changes <-chan events.Event, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-changes:
			if !ok {
				return
			}
			logger.Debug("Store changed",
				zap.String("kind", string(event.Kind)),
				zap.String("entity_id", event.EntityID))
		}
	}
}
