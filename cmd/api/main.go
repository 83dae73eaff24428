package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskera.org/internal/auth"
	"taskera.org/internal/authz"
	"taskera.org/internal/config"
	"taskera.org/internal/database"
	"taskera.org/internal/httpapi"
	"taskera.org/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.AutoMigrate {
		if err := database.RunMigrations(cfg.DatabaseDSN); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	tokens, err := auth.NewTokenService(cfg.AuthSecret,
		auth.WithIssuer(cfg.Issuer),
		auth.WithAudience(cfg.Audience),
		auth.WithAccessTTL(cfg.AccessTokenTTL),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL),
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	sessions, err := auth.NewSessionService(
		auth.NewPGUserStore(db),
		auth.NewPGRefreshTokenStore(db),
		auth.NewHasher(cfg.BcryptCost),
		auth.NewLockoutGuard(cfg.LockoutThreshold, cfg.LockoutDuration),
		tokens,
	)
	if err != nil {
		log.Fatalf("session service: %v", err)
	}

	engine, err := authz.NewEngine(authz.NewPGStore(db))
	if err != nil {
		log.Fatalf("authz engine: %v", err)
	}
	dispatcher, err := authz.NewDispatcher(engine)
	if err != nil {
		log.Fatalf("authz dispatcher: %v", err)
	}

	api := httpapi.New(httpapi.Options{
		Sessions:          sessions,
		Tokens:            tokens,
		Dispatcher:        dispatcher,
		Ready:             httpapi.ReadyProbe{DB: db},
		Version:           version,
		AuthRateBurst:     cfg.AuthRateBurst,
		AuthRatePerSecond: cfg.AuthRatePerSecond,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting taskera-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
