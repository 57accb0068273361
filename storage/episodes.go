package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"podcastSearch/core"
)

// MaxEpisodes caps the episodes file; beyond it new saves still succeed but
// log a warning suggesting cleanup.
const MaxEpisodes = 100

// EpisodeStore persists episode records and transcripts as JSON files:
// <dir>/episodes.json keyed by episode id, and one transcript file per
// episode under <dir>/transcripts/.
type EpisodeStore struct {
	mu  sync.Mutex
	dir string
}

func NewEpisodeStore(dir string) (*EpisodeStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "transcripts"), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &EpisodeStore{dir: dir}, nil
}

func (s *EpisodeStore) episodesFile() string {
	return filepath.Join(s.dir, "episodes.json")
}

func (s *EpisodeStore) transcriptFile(episodeID string) string {
	return filepath.Join(s.dir, "transcripts", episodeID+".json")
}

// SaveEpisode adds or replaces one episode record (read-modify-write on the
// episodes file, under the store lock).
func (s *EpisodeStore) SaveEpisode(ep core.Episode) error {
	if ep.ID == "" {
		return fmt.Errorf("episode id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	episodes, err := s.loadLocked()
	if err != nil {
		return err
	}
	episodes[ep.ID] = ep
	if len(episodes) > MaxEpisodes {
		log.Warn().Int("episodes", len(episodes)).Msg("episode storage limit reached, consider clearing old episodes")
	}
	return core.SaveJSON(s.episodesFile(), episodes)
}

// ListEpisodes returns all persisted episode records keyed by id.
func (s *EpisodeStore) ListEpisodes() (map[string]core.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *EpisodeStore) loadLocked() (map[string]core.Episode, error) {
	data, err := os.ReadFile(s.episodesFile())
	if os.IsNotExist(err) {
		return map[string]core.Episode{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read episodes file: %w", err)
	}
	episodes := map[string]core.Episode{}
	if err := json.Unmarshal(data, &episodes); err != nil {
		return nil, fmt.Errorf("parse episodes file: %w", err)
	}
	return episodes, nil
}

func (s *EpisodeStore) SaveTranscript(episodeID string, tr *core.Transcript) error {
	if episodeID == "" {
		return fmt.Errorf("episode id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.SaveJSON(s.transcriptFile(episodeID), tr)
}

func (s *EpisodeStore) LoadTranscript(episodeID string) (*core.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.transcriptFile(episodeID))
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	var tr core.Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	return &tr, nil
}

// Stats aggregates the persisted episode records.
func (s *EpisodeStore) Stats() (core.StorageStats, error) {
	episodes, err := s.ListEpisodes()
	if err != nil {
		return core.StorageStats{}, err
	}

	stats := core.StorageStats{
		Episodes:    make([]core.Episode, 0, len(episodes)),
		MaxEpisodes: MaxEpisodes,
	}
	for _, ep := range episodes {
		stats.TotalEpisodes++
		stats.TotalDuration += ep.Duration
		stats.TotalChunks += ep.Chunks
		stats.Episodes = append(stats.Episodes, ep)
	}
	sort.Slice(stats.Episodes, func(i, j int) bool {
		return stats.Episodes[i].ProcessedAt.Before(stats.Episodes[j].ProcessedAt)
	})

	switch {
	case stats.TotalEpisodes == 0:
		stats.Capacity = "Ready for 3+ episodes"
	case stats.TotalEpisodes == 1:
		stats.Capacity = "Ready for 2nd and 3rd episodes"
	case stats.TotalEpisodes == 2:
		stats.Capacity = "Ready for 3rd episode"
	default:
		stats.Capacity = fmt.Sprintf("Successfully storing %d episodes", stats.TotalEpisodes)
	}
	return stats, nil
}

// Clear removes the episodes file and all transcripts.
func (s *EpisodeStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.episodesFile()); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.dir, "transcripts")); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(s.dir, "transcripts"), 0755)
}
