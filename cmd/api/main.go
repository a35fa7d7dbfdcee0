package main

import (
	"context"
	"log"

	"github.com/PathFinder-25-26J-118/path-finder-backend/config"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/advisor"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/bootstrap"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/db"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/cache"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/provider"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/reconcile"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/registry"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/repository"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/session"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/janitor"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/redisconn"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	conn, err := db.Open(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer conn.Close()

	redisClient, err := redisconn.Open(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	authClient, err := provider.InitFirebase(&cfg.Firebase)
	if err != nil {
		log.Fatalf("firebase: %v", err)
	}

	kv := cache.NewRedisStore(redisClient)
	profileCache := cache.NewProfileCache(kv, cfg.Identity.CacheTTL)
	reg := registry.New(cfg.Identity.DebounceWindow)
	defer reg.Stop()

	profileRepo := repository.NewProfileRepository(conn)
	engine := reconcile.New(profileRepo, profileCache, reg, cfg.Identity.EmailVerificationDisabled)

	snaps := session.NewSnapshotStore(kv, cfg.Identity.SnapshotMaxAge)

	sweeper := janitor.New(snaps, reg)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("janitor: %v", err)
	}
	defer sweeper.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "path-finder-backend",
		Version:     cfg.App.Version,
		DB:          conn,
		Redis:       redisClient,
		Verifier:    authClient,
		Engine:      engine,
		ProfileRepo: profileRepo,
		Advisor:     advisor.NewClient(cfg.Advisor.BaseURL),
	})

	log.Printf("listening on :%s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
