package main

import (
	"context"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nestnote/backend/internal/config"
	"github.com/nestnote/backend/internal/db"
	"github.com/nestnote/backend/internal/handler"
	"github.com/nestnote/backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	store := &db.Postgres{Pool: pool}

	if err := store.EnsureAuthSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure auth schema: %v", err)
	}
	if err := store.EnsureCommentSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure comment schema: %v", err)
	}

	var googleVerifier service.GoogleVerifier
	if cfg.Google.ClientID != "" {
		googleVerifier, err = service.NewGoogleVerifier(ctx, cfg.Google.ClientID)
		if err != nil {
			log.Fatalf("Failed to init google verifier: %v", err)
		}
	} else {
		log.Printf("GOOGLE_CLIENT_ID not set; google login disabled")
	}

	// A missing signing secret must stop the process here, never surface as
	// a per-request error.
	authSvc, err := service.NewAuthService(store, store, googleVerifier, cfg.Auth)
	if err != nil {
		log.Fatalf("Invalid auth config: %v", err)
	}

	commentSvc := service.NewCommentService(store, store)

	router := handler.NewRouter(authSvc, commentSvc, strings.Split(cfg.Server.AllowedOrigins, ","))

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
