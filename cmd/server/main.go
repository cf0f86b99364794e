package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/linguapal/linguapal/internal/config"
	"github.com/linguapal/linguapal/internal/database"
	"github.com/linguapal/linguapal/internal/handlers"
	"github.com/linguapal/linguapal/internal/logging"
	"github.com/linguapal/linguapal/internal/middleware"
	"github.com/linguapal/linguapal/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{
			"env": cfg.Server.Environment,
		})
	}

	logger.Info("Starting LinguaPal server...")

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	userService := services.NewUserService(dbAdapter)
	authService := services.NewAuthService(redisAdapter)
	friendService := services.NewFriendService(dbAdapter)
	providerAuthService := services.NewProviderAuthService(dbAdapter)

	var chatClient services.PresenceSyncInterface
	if cfg.Chat.Stub || cfg.Chat.APIKey == "" {
		logger.Warn("Chat provider not configured; using stub client")
		chatClient = services.StubChatProvider{}
	} else {
		chatClient = services.NewChatProviderClient(cfg.Chat.APIKey, cfg.Chat.APISecret, cfg.Chat.BaseURL)
	}
	presenceService := services.NewPresenceService(chatClient)

	emailService, err := services.NewEmailService(&cfg.Email)
	if err != nil {
		return fmt.Errorf("initializing email service: %w", err)
	}

	var googleProvider services.OAuthProvider
	if cfg.OAuth.Google.Enabled {
		provider, err := services.NewOIDCProvider(context.Background(), services.OIDCProviderConfig{
			Provider:     services.ProviderGoogle,
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
			RedirectURL:  cfg.OAuth.Google.RedirectURL,
			IssuerURL:    cfg.OAuth.Google.IssuerURL,
			Scopes:       cfg.OAuth.Google.Scopes,
		})
		if err != nil {
			return fmt.Errorf("initializing google oidc provider: %w", err)
		}
		googleProvider = provider
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	authHandler := handlers.NewAuthHandler(userService, authService, presenceService, emailService, cfg.Server.Secure)
	googleAuthHandler := handlers.NewGoogleAuthHandler(providerAuthService, authService, presenceService, googleProvider, cfg.Server.Secure)
	friendHandler := handlers.NewFriendHandler(friendService)
	chatHandler := handlers.NewChatHandler(presenceService)
	avatarHandler := handlers.NewAvatarHandler()

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, userService)
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(logger)

	authRateLimit := resolveAuthRateLimit(cfg, logger, os.LookupEnv)
	authRateLimiter := middleware.NewRateLimiter(redisDB.Client, authRateLimit, 15*time.Minute, "ratelimit:auth:", func(r *http.Request) string {
		return middleware.GetClientIP(r)
	}, true)

	requireSession := authMiddleware.RequireSession

	mux := http.NewServeMux()

	// Health endpoints (no auth, no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Auth endpoints
	mux.Handle("POST /api/auth/signup", authRateLimiter.Middleware(http.HandlerFunc(authHandler.Signup)))
	mux.Handle("POST /api/auth/login", authRateLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/auth/logout", http.HandlerFunc(authHandler.Logout))
	mux.Handle("GET /api/auth/me", requireSession(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /api/auth/onboarding", requireSession(http.HandlerFunc(authHandler.Onboarding)))
	mux.Handle("GET /api/auth/google/start", http.HandlerFunc(googleAuthHandler.Start))
	mux.Handle("GET /api/auth/google/callback", http.HandlerFunc(googleAuthHandler.Callback))

	// User and friend endpoints
	mux.Handle("GET /api/users", requireSession(http.HandlerFunc(friendHandler.ListRecommended)))
	mux.Handle("GET /api/users/friends", requireSession(http.HandlerFunc(friendHandler.ListFriends)))
	mux.Handle("POST /api/users/friend-request/{id}", requireSession(http.HandlerFunc(friendHandler.SendRequest)))
	mux.Handle("PUT /api/users/friend-request/{id}/accept", requireSession(http.HandlerFunc(friendHandler.AcceptRequest)))
	mux.Handle("GET /api/users/friend-requests", requireSession(http.HandlerFunc(friendHandler.ListIncoming)))
	mux.Handle("GET /api/users/outgoing-friend-requests", requireSession(http.HandlerFunc(friendHandler.ListOutgoing)))

	// Chat token
	mux.Handle("GET /api/chat/token", requireSession(http.HandlerFunc(chatHandler.Token)))

	// Generated default avatars (public, cacheable)
	mux.Handle("GET /avatars/{seed}", http.HandlerFunc(avatarHandler.Serve))

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = authMiddleware.Authenticate(handler)
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

func resolveAuthRateLimit(cfg *config.Config, logger *logging.Logger, lookupEnv func(string) (string, bool)) int64 {
	authRateLimit := int64(20)
	if cfg.Server.Environment == "development" {
		authRateLimit = 200
		logger.Info("Using development auth rate limit", map[string]interface{}{"limit": authRateLimit})
	}
	if v, ok := lookupEnv("AUTH_RATE_LIMIT"); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			authRateLimit = parsed
			logger.Info("Using auth rate limit from env", map[string]interface{}{"limit": authRateLimit})
		} else {
			logger.Warn("Invalid AUTH_RATE_LIMIT; using default", map[string]interface{}{
				"value": v,
				"limit": authRateLimit,
			})
		}
	}
	return authRateLimit
}
