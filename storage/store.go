package storage

import (
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"podcastSearch/config"
	"podcastSearch/core"
)

// VectorStore abstracts the chunk index backend. Search is semantic:
// strategies layered on top live in search.go. episodeID narrows retrieval
// to one episode; empty means the whole corpus.
type VectorStore interface {
	Upsert(chunks []core.Chunk) int
	Search(query string, topK int, episodeID string) []core.Hit
	Count() int
	Reset() error
}

// NewVectorStore selects the backend from the STORE env var:
// "memory" (default), "pgvector" or "milvus". API or connection failures
// fall back to the memory store so the service stays usable.
func NewVectorStore() VectorStore {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load config, using memory store")
		return NewMemoryVectorStore()
	}

	kind := strings.ToLower(strings.TrimSpace(os.Getenv("STORE")))
	switch kind {
	case "milvus":
		if !cfg.HasValidAPI() {
			config.PrintConfigInstructions()
			log.Warn().Msg("API configuration required for milvus store, falling back to memory store")
			return NewMemoryVectorStore()
		}
		s, err := newMilvusVectorStore()
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize milvus store, falling back to memory store")
			return NewMemoryVectorStore()
		}
		return s
	case "pgvector":
		if !cfg.HasValidAPI() {
			config.PrintConfigInstructions()
			log.Warn().Msg("API configuration required for pgvector store, falling back to memory store")
			return NewMemoryVectorStore()
		}
		s, err := newPgVectorStore()
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize pgvector store, falling back to memory store")
			return NewMemoryVectorStore()
		}
		return s
	}
	return NewMemoryVectorStore()
}

// ---------------- Memory implementation ----------------

// MemoryVectorStore indexes chunks with term-frequency vectors and cosine
// similarity. It needs no external services and is the default backend.
type MemoryVectorStore struct {
	mu   sync.RWMutex
	docs []memoryDoc
}

type memoryDoc struct {
	chunk core.Chunk
	embed map[string]float64 // term -> weight
}

func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{}
}

func (s *MemoryVectorStore) Upsert(chunks []core.Chunk) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		s.docs = append(s.docs, memoryDoc{chunk: c, embed: embedText(strings.ToLower(c.Text))})
		n++
	}
	return n
}

func (s *MemoryVectorStore) Search(query string, topK int, episodeID string) []core.Hit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qv := embedText(strings.ToLower(query))
	type scored struct {
		i     int
		score float64
	}
	scores := make([]scored, 0, len(s.docs))
	for i, d := range s.docs {
		if episodeID != "" && d.chunk.EpisodeID != episodeID {
			continue
		}
		scores = append(scores, scored{i, cosine(qv, d.embed)})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK <= 0 {
		topK = 5
	}
	if topK > len(scores) {
		topK = len(scores)
	}
	hits := make([]core.Hit, 0, topK)
	for _, sc := range scores[:topK] {
		c := s.docs[sc.i].chunk
		hits = append(hits, core.Hit{
			Score:        sc.score,
			EpisodeID:    c.EpisodeID,
			EpisodeTitle: c.EpisodeTitle,
			Start:        c.Start,
			End:          c.End,
			Speaker:      c.Speaker,
			Text:         c.Text,
		})
	}
	return hits
}

func (s *MemoryVectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryVectorStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	return nil
}

func embedText(text string) map[string]float64 {
	toks := core.Tokenize(text)
	m := map[string]float64{}
	for _, t := range toks {
		m[t] += 1
	}
	// L2 normalize
	var sum float64
	for _, v := range m {
		sum += v * v
	}
	if sum == 0 {
		return m
	}
	norm := math.Sqrt(sum)
	for k, v := range m {
		m[k] = v / norm
	}
	return m
}

func cosine(a, b map[string]float64) float64 {
	var dot float64
	for k, va := range a {
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	return dot
}
