package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alugix.app/internal/audit"
	"alugix.app/internal/auth"
	"alugix.app/internal/authz"
	"alugix.app/internal/httpapi"
	"alugix.app/internal/obs"
	"alugix.app/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("ALUGIX_PG_DSN")
	if dsn == "" {
		log.Fatal("ALUGIX_PG_DSN is required")
	}
	secret := os.Getenv("ALUGIX_AUTH_SECRET")
	if secret == "" {
		log.Fatal("ALUGIX_AUTH_SECRET is required")
	}
	addr := os.Getenv("ALUGIX_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	authSvc, err := auth.NewService(store, auth.WithSecret(secret), auth.WithIssuer("alugix"))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	profiles, err := authz.NewManager(store)
	if err != nil {
		log.Fatalf("authz manager: %v", err)
	}
	recorder := audit.NewRecorder(store)

	api := httpapi.New(httpapi.Config{
		Version:    version,
		Probe:      httpapi.ReadyProbe{DB: store.DB()},
		Auth:       authSvc,
		AuthzStore: store,
		Profiles:   profiles,
		Billing:    store,
		Rentals:    store,
		Recorder:   recorder,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("starting alugix-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)

	// Flush queued audit entries before the database goes away.
	recorder.Close()
	_ = store.Close()
	log.Println("stopped")
}
