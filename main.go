package main

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"podcastSearch/config"
	"podcastSearch/server"
	"podcastSearch/storage"
)

func setupLogging() {
	level, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if strings.ToLower(os.Getenv("LOG_FORMAT")) != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func main() {
	_ = godotenv.Load()
	setupLogging()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if !cfg.HasValidAPI() {
		config.PrintConfigInstructions()
		log.Warn().Msg("no API configured; running with local ASR, memory index and synthesized answers")
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatal().Err(err).Msg("failed to create data dir")
	}

	store := storage.NewVectorStore()
	backend := os.Getenv("STORE")
	if backend == "" {
		backend = "memory"
	}
	log.Info().Str("backend", backend).Msg("vector store initialized")

	episodes, err := storage.NewEpisodeStore(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init episode store")
	}

	srv := server.New(cfg, store, episodes)
	mux := http.NewServeMux()
	srv.Routes(mux)

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	log.Info().Str("addr", addr).Msg("server listening")
	log.Fatal().Err(http.ListenAndServe(addr, mux)).Msg("server stopped")
}
