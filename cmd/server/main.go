package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tenant-identity-service/internal/cache"
	"tenant-identity-service/internal/config"
	"tenant-identity-service/internal/db"
	identityservice "tenant-identity-service/internal/identity/service"
	"tenant-identity-service/internal/loginlog"
	loginlogrepo "tenant-identity-service/internal/loginlog/repository"
	"tenant-identity-service/internal/oauth"
	"tenant-identity-service/internal/passwordreset"
	"tenant-identity-service/internal/refreshtoken"
	"tenant-identity-service/internal/security"
	"tenant-identity-service/internal/server"
	"tenant-identity-service/internal/telemetry/otel"
	tenantrepo "tenant-identity-service/internal/tenant/repository"
	tenantservice "tenant-identity-service/internal/tenant/service"
	userrepo "tenant-identity-service/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "tenant-identity-service", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	client, err := db.Open(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	database := client.Database(cfg.MongoDatabase)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Fatalf("mongo indexes: %v", err)
	}

	var (
		redis *cache.Redis
		store cache.Cache
	)
	if cfg.RedisAddr != "" {
		redis = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
		defer func() { _ = redis.Close() }()
		if err := redis.Ping(ctx); err != nil {
			// The service degrades to uncached reads; it does not refuse to start.
			log.Printf("redis: ping %s: %v (continuing without warm cache)", cfg.RedisAddr, err)
		}
		store = redis
	}

	signer, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	users := userrepo.NewMongoRepository(database)
	registry := refreshtoken.NewRegistry(users)
	emitter := otel.NewEventEmitter(providers.LoggerProvider)
	tenants := tenantservice.New(tenantrepo.NewMongoRepository(database), store, emitter)
	logs := loginlog.New(loginlogrepo.NewMongoRepository(database), store)
	resets := passwordreset.NewService(passwordreset.NewMongoRepository(database), users, hasher, registry, cfg.ResetTTL(), emitter)
	providerLogins := oauth.Providers{}
	if cfg.GoogleClientID != "" {
		providerLogins["google"] = oauth.NewGoogleExchanger(cfg.GoogleClientID, cfg.GoogleClientSecret)
	}
	if cfg.AppleClientID != "" {
		providerLogins["apple"] = oauth.NewAppleExchanger(cfg.AppleClientID, cfg.AppleClientSecret)
	}
	auth := identityservice.NewAuthService(users, registry, hasher, tokens, logs, providerLogins, emitter)

	limiters := &server.Limiters{}
	srv := server.New(server.Options{
		Addr:    cfg.HTTPAddr,
		Tokens:  tokens,
		Tenants: tenants,
		Auth:    auth,
		Resets:  resets,
		Logs:    logs,
		Ping: func(ctx context.Context) error {
			if err := client.Ping(ctx, nil); err != nil {
				return err
			}
			if redis != nil {
				return redis.Ping(ctx)
			}
			return nil
		},
	}, limiters)
	limiters.StartSweepers(ctx, cfg.SweepInterval())

	go func() {
		log.Printf("http server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down http server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("http server stopped")
}
