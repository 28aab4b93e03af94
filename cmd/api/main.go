package main

import (
	"context"
	"database/sql"
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/redis/go-redis/v9"

	"github.com/graphv-app/graphv-backend/config"
	"github.com/graphv-app/graphv-backend/internal/bootstrap"
	"github.com/graphv-app/graphv-backend/internal/identity"
	"github.com/graphv-app/graphv-backend/internal/reconcile"
	"github.com/graphv-app/graphv-backend/internal/session/domain"
	sessionhttp "github.com/graphv-app/graphv-backend/internal/session/http"
	"github.com/graphv-app/graphv-backend/internal/session/repository"
	fsstore "github.com/graphv-app/graphv-backend/internal/storage/firestore"
	pgstore "github.com/graphv-app/graphv-backend/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)
	ctx := context.Background()

	// Admin client is optional; without it sign-out skips token
	// revocation and the reconciler is unavailable.
	var adminClient *auth.Client
	if cfg.Firebase.CredentialsPath != "" {
		adminClient, err = identity.InitializeFirebase(&cfg.Firebase)
		if err != nil {
			log.Fatalf("firebase admin: %v", err)
		}
	}

	toolkit := identity.NewToolkitClient(cfg.Firebase.APIKey)

	var (
		profiles domain.ProfileStore
		db       *sql.DB
	)
	switch cfg.Profile.Backend {
	case "postgres":
		db, err = pgstore.NewConnection(&cfg.Database)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer db.Close()
		profiles = pgstore.NewProfileStore(db)
	default:
		fsClient, err := identity.InitializeFirestore(ctx, &cfg.Firebase)
		if err != nil {
			log.Fatalf("firestore: %v", err)
		}
		defer fsClient.Close()
		profiles = fsstore.NewProfileStore(fsClient, cfg.Profile.Collection)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	var snapshots *repository.SnapshotRepository
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis unreachable, session persistence disabled: %v", err)
	} else {
		snapshots = repository.NewSnapshotRepository(rdb)
	}

	registry := sessionhttp.NewRegistry(func() domain.IdentityProvider {
		return identity.NewProvider(toolkit, adminClient)
	}, profiles, snapshots)

	if cfg.Reconcile.Enabled {
		if adminClient == nil {
			log.Fatal("reconciler requires FIREBASE_CREDENTIALS_PATH")
		}
		rec := reconcile.New(identity.NewAdminAccountSource(adminClient), profiles)
		sched := reconcile.NewScheduler(rec, cfg.Reconcile.Schedule)
		if err := sched.Start(); err != nil {
			log.Fatalf("reconcile scheduler: %v", err)
		}
		defer sched.Stop()
	}

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "graphv-backend",
		Version:     cfg.App.Version,
		Registry:    registry,
		Redis:       rdb,
		DB:          db,
	})

	log.Printf("listening on :%s (profile store: %s)", cfg.Server.Port, cfg.Profile.Backend)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
