// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marketloop/marketloop-backend/internal/config"
	"github.com/marketloop/marketloop-backend/internal/database"
	"github.com/marketloop/marketloop-backend/internal/router"
	"github.com/marketloop/marketloop-backend/internal/search"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.Environment == "development" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	// An empty search URL disables indexing and querying entirely.
	var index search.Index
	if cfg.Search.URL != "" {
		client, err := search.NewClient(cfg.Search.URL)
		if err != nil {
			log.WithError(err).Fatal("Failed to create search client")
		}
		index = client
	} else {
		log.Warn("ELASTICSEARCH_URL not set, search is disabled")
	}

	if index != nil && cfg.Search.ReindexOnStart {
		syncer := search.NewSyncer(index, log)
		if err := syncer.ReindexAll(context.Background(), db); err != nil {
			log.WithError(err).Error("Initial reindex failed")
		}
	}

	r, err := router.Setup(db, cfg, index, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up router")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Forced shutdown")
	}
	log.Info("Server stopped")
}
