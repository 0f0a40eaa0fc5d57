package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sampottinger/co-opencampaigndata/internal/accounts"
	"github.com/sampottinger/co-opencampaigndata/internal/config"
	"github.com/sampottinger/co-opencampaigndata/internal/dbpool"
	"github.com/sampottinger/co-opencampaigndata/internal/gateway"
	"github.com/sampottinger/co-opencampaigndata/internal/httpapi"
	"github.com/sampottinger/co-opencampaigndata/internal/logging"
	"github.com/sampottinger/co-opencampaigndata/internal/query"
	"github.com/sampottinger/co-opencampaigndata/internal/storage"
	"github.com/sampottinger/co-opencampaigndata/internal/tracer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger("info").Fatalf("failed to load config: %v", err)
	}
	log := logging.NewLogger(cfg.LogLevel)

	newPool := func(db config.DatabaseConfig) *storage.Pool {
		p, err := dbpool.New(dbpool.Options[*mongo.Client]{
			Max:         db.MaxConnections,
			IdleTimeout: db.IdleTimeout,
			Dial:        storage.Dialer(db.URI),
			Close:       storage.Disconnect,
		})
		if err != nil {
			log.Fatalf("failed to build connection pool: %v", err)
		}
		return p
	}

	resolver := storage.NewResolver(
		newPool(cfg.Accounts), newPool(cfg.Tracer),
		cfg.Accounts.Name, cfg.Tracer.Name,
	)
	defer resolver.Close()

	accountRepo := storage.NewAccountRepository(resolver)
	tracerRepo := storage.NewTracerRepository(resolver)

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := accountRepo.EnsureIndexes(indexCtx); err != nil {
		// The service still works without them, just slower.
		log.WithError(err).Warn("could not ensure account indexes")
	}
	cancelIndex()

	manager := accounts.NewManager(accountRepo, accounts.Config{
		MaxQueries:  cfg.Quota.MaxQueries,
		Window:      cfg.Quota.Window,
		Retention:   cfg.UsageRetention,
		KeyLength:   cfg.APIKey.Length,
		KeyAlphabet: cfg.APIKey.Alphabet,
	}, log)

	records := tracer.NewService(
		tracerRepo,
		query.DefaultWhitelist(),
		query.Limits{DefaultLimit: cfg.Page.DefaultLimit, MaxLimit: cfg.Page.MaxLimit},
		query.DefaultDateFields(),
	)

	svc := gateway.NewService(manager, records, log)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      httpapi.NewRouter(svc, log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("co-opencampaigndata listening on :%s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced to shut down")
	}
}
