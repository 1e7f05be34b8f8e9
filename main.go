package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/astrialabs/astrochat/api"
	"github.com/astrialabs/astrochat/config"
	"github.com/astrialabs/astrochat/internal/adapter/auth"
	"github.com/astrialabs/astrochat/internal/adapter/llm"
	"github.com/astrialabs/astrochat/internal/bridge"
	"github.com/astrialabs/astrochat/internal/cache"
	"github.com/astrialabs/astrochat/internal/repository"
	"github.com/astrialabs/astrochat/internal/service"
	"github.com/astrialabs/astrochat/internal/session"
	"github.com/astrialabs/astrochat/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting astrochat...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Redis: %s", cfg.RedisAddr)

	// Initialize repository
	repo, err := repository.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	// Initialize cache backend. Redis is preferred; the in-memory backend
	// keeps single-node deployments working without one.
	ctx := context.Background()
	var backend cache.Backend
	redisBackend, err := cache.NewRedisBackend(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Printf("WARN: redis unavailable (%v), using in-memory cache", err)
		backend = cache.NewMemoryBackend()
	} else {
		backend = redisBackend
	}
	defer backend.Close()

	// Initialize session store and durability bridge
	sessions := session.New(backend, cfg.SessionTTL, cfg.SessionMessageCap)
	br := bridge.New(sessions, repo)

	// Initialize LLM client
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)

	// Initialize identity verifier
	var verifier auth.Verifier
	if cfg.AuthVerifyURL != "" {
		verifier = auth.NewClient(cfg.AuthVerifyURL, 10*time.Second)
	} else {
		log.Printf("WARN: AUTH_VERIFY_URL not set, accepting any token as its own identity")
		verifier = auth.InsecureVerifier{}
	}

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	svc := service.New(repo, sessions, br, llmClient, verifier, cfg, policyEngine)

	// Background cleanup
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go svc.RunCleanupLoop(cleanupCtx)

	// Initialize handler
	h := api.NewHandler(svc, backend, cfg)

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down astrochat...")

	stopCleanup()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Astrochat stopped")
}
