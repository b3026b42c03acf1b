package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"laporfasilitas.org/internal/admin"
	"laporfasilitas.org/internal/audit"
	"laporfasilitas.org/internal/auth"
	"laporfasilitas.org/internal/httpapi"
	"laporfasilitas.org/internal/obs"
	"laporfasilitas.org/internal/report"
	"laporfasilitas.org/internal/sheets"
	"laporfasilitas.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("LAPOR_PG_DSN")
	if dsn == "" {
		log.Fatal("LAPOR_PG_DSN is required")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	authSvc, err := auth.NewService(store)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	// Audit inserts fan out through Redis when configured so every replica's
	// stream sees every entry; otherwise an in-process hub serves the single
	// replica case.
	var (
		fanout      audit.Fanout
		redisFanout *audit.RedisFanout
	)
	if addr := os.Getenv("LAPOR_REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		redisFanout = audit.NewRedisFanout(client)
		fanout = redisFanout
		defer redisFanout.Close()
	} else {
		fanout = audit.NewLocalFanout()
	}

	auditLog, err := audit.NewLog(store.Audit(), authSvc, fanout)
	if err != nil {
		log.Fatalf("audit log: %v", err)
	}

	adminSvc, err := admin.NewService(authSvc, auditLog)
	if err != nil {
		log.Fatalf("admin service: %v", err)
	}

	sheetsClient := sheets.NewClient(os.Getenv("LAPOR_SHEETS_WEBHOOK_URL"))
	reportSvc, err := report.NewService(store, authSvc, auditLog, sheetsClient)
	if err != nil {
		log.Fatalf("report service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Auth:    authSvc,
		Admins:  adminSvc,
		Reports: reportSvc,
		Logs:    auditLog,
		Ready:   httpapi.ReadyProbe{DB: store.DB()},
		Version: version,
	})

	addr := os.Getenv("LAPOR_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	// No WriteTimeout: the audit log stream holds its connection open.
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting lapor-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
