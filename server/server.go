package server

import (
	"net/http"

	"podcastSearch/config"
	"podcastSearch/ingest"
	"podcastSearch/processors"
	"podcastSearch/rag"
	"podcastSearch/storage"
)

// Server wires the pipeline stages behind the HTTP surface.
type Server struct {
	cfg      *config.Config
	store    storage.VectorStore
	episodes *storage.EpisodeStore
	engine   *rag.Engine
	asr      processors.ASRProvider
	pre      processors.Preprocessor
	diarizer processors.Diarizer
	feeds    *ingest.FeedIngestor
}

func New(cfg *config.Config, store storage.VectorStore, episodes *storage.EpisodeStore) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		episodes: episodes,
		engine:   rag.NewEngine(cfg, store),
		asr:      processors.PickASRProvider(),
		pre:      processors.FFmpegPreprocessor{},
		diarizer: processors.PauseDiarizer{Gap: cfg.PauseGap},
		feeds:    ingest.NewFeedIngestor(),
	}
}

// Routes registers every handler on the mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/episodes/upload", s.uploadHandler)
	mux.HandleFunc("/episodes/ingest-feed", s.ingestFeedHandler)
	mux.HandleFunc("/episodes", s.episodesHandler)
	mux.HandleFunc("/episodes/stats", s.statsHandler)
	mux.HandleFunc("/transcript", s.transcriptHandler)

	mux.HandleFunc("/query", s.queryHandler)
	mux.HandleFunc("/search", s.searchHandler)
	mux.HandleFunc("/search-strategies", s.searchStrategiesHandler)
	mux.HandleFunc("/models", s.modelsHandler)

	mux.HandleFunc("/clear", s.clearHandler)
	mux.HandleFunc("/health", s.healthHandler)
}
