package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"podcastSearch/core"
	"podcastSearch/ingest"
	"podcastSearch/processors"
	"podcastSearch/storage"
)

// uploadHandler accepts a multipart audio upload and runs the pipeline.
// Fields: "file" (required), "title" (optional, defaults to the file name).
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if err := r.ParseMultipartForm(512 << 20); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid multipart form: %v", err)})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field 'file'"})
		return
	}
	defer file.Close()

	if err := processors.ValidateAudioFile(header.Filename); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	uploadDir := filepath.Join(s.cfg.DataDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	dest := filepath.Join(uploadDir, filepath.Base(header.Filename))
	out, err := os.Create(dest)
	if err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	out.Close()
	defer os.Remove(dest)

	title := strings.TrimSpace(r.FormValue("title"))
	resp, err := s.processEpisode(r.Context(), dest, title)
	if err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, resp)
		return
	}
	core.WriteJSON(w, http.StatusOK, resp)
}

// ingestFeedHandler pulls episodes from a podcast RSS feed and processes
// each audio enclosure. Show notes from the episode page become the title
// when the feed item has none.
func (s *Server) ingestFeedHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req core.IngestFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.FeedURL) == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "feed_url required"})
		return
	}

	items, err := s.feeds.Fetch(r.Context(), req.FeedURL, req.Limit)
	if err != nil {
		core.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	results := make([]core.ProcessEpisodeResponse, 0, len(items))
	for _, item := range items {
		title := item.Title
		if title == "" && item.PageURL != "" {
			if notes, err := ingest.FetchShowNotes(r.Context(), item.PageURL); err == nil {
				title = notes.Title
			}
		}

		audioPath, err := s.feeds.Download(r.Context(), item.AudioURL, filepath.Join(s.cfg.DataDir, "uploads"))
		if err != nil {
			log.Warn().Err(err).Str("url", item.AudioURL).Msg("enclosure download failed")
			results = append(results, core.ProcessEpisodeResponse{
				Message: fmt.Sprintf("download failed for %q: %v", item.Title, err),
				Steps:   []core.Step{{Name: "download", Status: "failed", Error: err.Error()}},
			})
			continue
		}

		resp, err := s.processEpisode(r.Context(), audioPath, title)
		os.Remove(audioPath)
		if err != nil {
			log.Warn().Err(err).Str("title", title).Msg("feed episode processing failed")
		}
		results = append(results, *resp)
	}

	core.WriteJSON(w, http.StatusOK, map[string]any{
		"feed_url": req.FeedURL,
		"episodes": results,
	})
}

func (s *Server) episodesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	episodes, err := s.episodes.ListEpisodes()
	if err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	core.WriteJSON(w, http.StatusOK, episodes)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	stats, err := s.episodes.Stats()
	if err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	core.WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) transcriptHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	episodeID := r.URL.Query().Get("episode_id")
	if episodeID == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "episode_id required"})
		return
	}
	tr, err := s.episodes.LoadTranscript(episodeID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "transcript not found"})
			return
		}
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	core.WriteJSON(w, http.StatusOK, tr)
}

func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req core.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "question required"})
		return
	}
	core.WriteJSON(w, http.StatusOK, s.engine.Query(r.Context(), req))
}

// searchHandler is retrieval only: same request shape as /query, no answer
// generation.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req core.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "question required"})
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = storage.StrategySemantic
	}
	hits := storage.SearchWithStrategy(s.store, req.Question, topK, strategy, req.EpisodeID)
	core.WriteJSON(w, http.StatusOK, core.SearchResponse{
		Query: req.Question,
		Hits:  hits,
		SearchInfo: core.SearchInfo{
			Strategy:     strategy,
			ResultsCount: len(hits),
		},
	})
}

func (s *Server) searchStrategiesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	resp := map[string]any{"strategies": storage.StrategyDescriptions}
	if q := r.URL.Query().Get("query"); q != "" {
		resp["recommendation"] = storage.RecommendStrategy(q)
	}
	core.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{
		"default": s.cfg.DefaultModel,
		"models":  s.engine.AvailableModels(),
	})
}

// clearHandler wipes the episodes file, transcripts and the vector index.
func (s *Server) clearHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if err := s.episodes.Clear(); err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := s.store.Reset(); err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("episodes cleared, index reset failed: %v", err)})
		return
	}
	log.Info().Msg("cleared all stored data")
	core.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.episodes.Stats()
	status := map[string]any{
		"status":         "ok",
		"indexed_chunks": s.store.Count(),
	}
	if err != nil {
		status["status"] = "degraded"
		status["error"] = err.Error()
	} else {
		status["episodes"] = stats.TotalEpisodes
	}
	core.WriteJSON(w, http.StatusOK, status)
}
