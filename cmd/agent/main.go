// The agent keeps a long-lived device session reconciled: it probes the
// provider once at startup, then follows the session-change stream, keeping
// the local profile provisioned and the offline snapshot fresh.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PathFinder-25-26J-118/path-finder-backend/config"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/db"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/cache"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/connectivity"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/provider"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/reconcile"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/registry"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/repository"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/session"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/redisconn"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

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

	engine := reconcile.New(
		repository.NewProfileRepository(conn),
		profileCache,
		reg,
		cfg.Identity.EmailVerificationDisabled,
	)

	monitor := connectivity.NewMonitor(
		connectivity.DialChecker("identitytoolkit.googleapis.com:443", 3*time.Second),
		cfg.Identity.ConnectivityInterval,
	)
	monitor.Start()
	defer monitor.Close()

	snaps := session.NewSnapshotStore(kv, cfg.Identity.SnapshotMaxAge)

	mgr := session.NewManager(
		provider.NewFirebase(authClient),
		engine,
		profileCache,
		monitor,
		snaps,
		session.Config{
			ProbeTimeout:    cfg.Identity.ProbeTimeout,
			LoadingDeadline: cfg.Identity.LoadingDeadline,
		},
	)
	defer mgr.Close()

	if err := mgr.Start(ctx); err != nil {
		// Connectivity failures with no usable snapshot are the one class
		// that reaches this boundary.
		log.Printf("[agent] degraded start: %v", err)
	}

	if p := mgr.Profile(); p != nil {
		log.Printf("[agent] session ready principal=%s role=%s", p.ID, p.Role)
	} else {
		log.Printf("[agent] session ready, no profile yet")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[agent] shutting down")
}
