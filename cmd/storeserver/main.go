package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/neuroswipe/internal/dbconfig"
	"github.com/mcdev12/neuroswipe/internal/storeserver"
)

func main() {
	memory := flag.Bool("memory", false, "keep records in process memory instead of Postgres")
	addr := flag.String("addr", ":8090", "listen address")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	apiKey := os.Getenv("STORE_API_KEY")
	if apiKey == "" {
		log.Warn().Msg("STORE_API_KEY is empty, serving without authentication")
	}

	var repo storeserver.Repository
	if *memory {
		repo = storeserver.NewMemoryRepository()
		log.Info().Msg("using in-memory repository")
	} else {
		dbCfg := dbconfig.NewConfigFromEnv()
		db, err := sql.Open("postgres", dbCfg.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("failed to ping database")
		}

		pg := storeserver.NewPostgresRepository(db)
		if err := pg.CreateSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to create schema")
		}
		repo = pg
		log.Info().Str("database", dbCfg.Database).Msg("connected to Postgres")
	}

	metrics := storeserver.NewMetrics("neuroswipe_store")
	srv := storeserver.NewServer(repo, apiKey, metrics)
	server := srv.HTTPServer(*addr)

	go func() {
		log.Info().Str("addr", *addr).Msg("record store listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("record store server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("record store shutdown complete")
}
