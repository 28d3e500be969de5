package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/stakepot/stakepot/internal/api/http"
	appAudit "github.com/stakepot/stakepot/internal/application/audit"
	appGame "github.com/stakepot/stakepot/internal/application/game"
	"github.com/stakepot/stakepot/internal/application/pending"
	"github.com/stakepot/stakepot/internal/config"
	"github.com/stakepot/stakepot/internal/domain/audit"
	"github.com/stakepot/stakepot/internal/domain/catalog"
	"github.com/stakepot/stakepot/internal/domain/game"
	"github.com/stakepot/stakepot/internal/infrastructure/keystore"
	"github.com/stakepot/stakepot/internal/infrastructure/ledgerhttp"
	"github.com/stakepot/stakepot/internal/infrastructure/memstore"
	"github.com/stakepot/stakepot/internal/infrastructure/notify"
	"github.com/stakepot/stakepot/internal/infrastructure/postgres"
	"github.com/stakepot/stakepot/internal/infrastructure/sse"
	"github.com/stakepot/stakepot/internal/migrations"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()

	// repositories
	var (
		gameRepo  game.Repository
		auditRepo audit.Repository
	)
	if cfg.Store == "postgres" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			log.Fatalf("db error: %v", err)
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, pool, migrations.FS); err != nil {
			log.Fatalf("migration error: %v", err)
		}
		gameRepo = postgres.NewGameRepository(pool)
		auditRepo = postgres.NewAuditRepository(pool)
	} else {
		logger.Warn().Msg("using in-memory store, sessions will not survive a restart")
		gameRepo = memstore.NewGameStore()
		auditRepo = memstore.NewAuditStore()
	}

	// infrastructure
	sseHub := sse.NewHub()
	dispatcher := notify.NewDispatcher(sseHub, logger)
	defer dispatcher.Close()
	walletClient := ledgerhttp.NewClient(cfg.LedgerBaseURL, cfg.LedgerToken, cfg.LedgerTimeout)

	// services
	ks, err := keystore.NewFromEnv()
	if err != nil {
		log.Fatalf("keystore error: %v", err)
	}
	auditSvc := appAudit.NewService(auditRepo, ks.ActiveKey(), logger)
	cat := catalog.Default()
	gameSvc := appGame.NewService(gameRepo, cat, walletClient, cfg.EscrowAccount, auditSvc, dispatcher, logger)
	pendingReg := pending.NewRegistry(walletClient, auditSvc, cfg.PendingTTL, logger)

	// API server
	apiServer := httpapi.NewServer(gameSvc, pendingReg, auditSvc, cat, sseHub, []byte(cfg.AdminTokenHash), logger)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background loops
	go func() {
		ticker := time.NewTicker(cfg.PendingSweepEvery)
		defer ticker.Stop()
		for range ticker.C {
			pendingReg.Sweep()
		}
	}()

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Str("store", cfg.Store).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
	sseHub.Stop()
}
