package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roombook/api/internal/application/verification"
	"github.com/roombook/api/internal/config"
	"github.com/roombook/api/internal/infrastructure/dynamo"
	jwtinfra "github.com/roombook/api/internal/infrastructure/jwt"
	"github.com/roombook/api/internal/infrastructure/mail"
	"github.com/roombook/api/internal/infrastructure/memcache"
	"github.com/roombook/api/internal/infrastructure/redisx"
	transporthttp "github.com/roombook/api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// Verification code store: Redis-backed when a host is configured,
	// in-process otherwise. The local tier is always present.
	local := memcache.New(time.Minute)
	defer local.Close()

	var backend verification.Backend
	if cfg.RedisUsable() {
		backend = redisx.NewCache(redisx.NewClient(cfg))
		log.Printf("Verification codes: redis backend at %s", cfg.RedisAddr())
	} else {
		backend = verification.NoBackend{}
		log.Println("Verification codes: in-process store only (no Redis host configured)")
	}
	codes := verification.NewService(backend, local, slog.Default())

	// Email delivery: real SMTP when configured, log-only otherwise.
	var senders []mail.Sender
	if smtpSender := mail.NewSMTPSender(cfg); smtpSender.Configured() {
		senders = append(senders, smtpSender)
	}
	senders = append(senders, &mail.LogSender{})
	mailer := mail.NewChain(slog.Default(), senders...)

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		Codes:            codes,
		Mailer:           mailer,
		JWTProvider:      jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
