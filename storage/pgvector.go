package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"

	"podcastSearch/config"
	"podcastSearch/core"
)

// PgVectorStore keeps chunk embeddings in Postgres with the pgvector
// extension. One row per chunk, cosine distance, ivfflat index. A pool is
// required: handlers query the store concurrently.
type PgVectorStore struct {
	pool     *pgxpool.Pool
	embedder Embedder
	dim      int

	done      chan struct{}
	closeOnce sync.Once
}

func newPgVectorStore() (*PgVectorStore, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	emb, err := newOpenAIEmbedder()
	if err != nil {
		pool.Close()
		return nil, err
	}

	s := &PgVectorStore{pool: pool, embedder: emb, dim: cfg.EmbeddingDim, done: make(chan struct{})}
	if err := s.ensureTable(); err != nil {
		pool.Close()
		return nil, err
	}
	s.scheduleIndexMaintenance()
	return s, nil
}

func (s *PgVectorStore) ensureTable() error {
	ctx := context.Background()

	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	chunksQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS podcast_chunks (
			id SERIAL PRIMARY KEY,
			chunk_id VARCHAR(255) UNIQUE NOT NULL,
			episode_id VARCHAR(255) NOT NULL,
			episode_title VARCHAR(500),
			start_time FLOAT NOT NULL,
			end_time FLOAT NOT NULL,
			speaker VARCHAR(64),
			text TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`, s.dim)
	if _, err := s.pool.Exec(ctx, chunksQuery); err != nil {
		return fmt.Errorf("failed to create podcast_chunks table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_podcast_chunks_episode_id ON podcast_chunks(episode_id);",
	}
	for _, q := range indexes {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			log.Warn().Err(err).Msg("failed to create index")
		}
	}

	if err := s.createVectorIndex(); err != nil {
		log.Warn().Err(err).Msg("failed to create vector index")
	}
	return nil
}

// createVectorIndex (re)builds the ivfflat index, sizing the list count to
// the number of stored embeddings.
func (s *PgVectorStore) createVectorIndex() error {
	ctx := context.Background()

	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM podcast_chunks WHERE embedding IS NOT NULL").Scan(&count); err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}
	if count == 0 {
		return nil
	}

	lists := 100
	if count > 10000 {
		lists = count / 100
		if lists > 1000 {
			lists = 1000
		}
	} else if count < 1000 {
		lists = 10
	}

	if _, err := s.pool.Exec(ctx, "DROP INDEX IF EXISTS idx_podcast_chunks_embedding;"); err != nil {
		log.Warn().Err(err).Msg("failed to drop existing vector index")
	}
	q := fmt.Sprintf(`
		CREATE INDEX idx_podcast_chunks_embedding
		ON podcast_chunks
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = %d);
	`, lists)
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	log.Info().Int("lists", lists).Int("embeddings", count).Msg("created vector index")
	return nil
}

func (s *PgVectorStore) scheduleIndexMaintenance() {
	go s.maintenanceLoop(30 * time.Minute)
}

// maintenanceLoop runs until Close. It rebuilds the vector index when it has
// gone missing (for example after a Reset).
func (s *PgVectorStore) maintenanceLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.rebuildIndexIfNeeded(); err != nil {
				log.Warn().Err(err).Msg("index maintenance failed")
			}
		}
	}
}

func (s *PgVectorStore) rebuildIndexIfNeeded() error {
	ctx := context.Background()
	var indexExists bool
	q := `
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE tablename = 'podcast_chunks'
			AND indexname = 'idx_podcast_chunks_embedding'
		);
	`
	if err := s.pool.QueryRow(ctx, q).Scan(&indexExists); err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	if !indexExists {
		return s.createVectorIndex()
	}
	return nil
}

func (s *PgVectorStore) Upsert(chunks []core.Chunk) int {
	if len(chunks) == 0 {
		return 0
	}
	ctx := context.Background()
	successCount := 0

	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		embedding, err := s.embedder.Embed(ctx, strings.ToLower(c.Text))
		if err != nil {
			log.Warn().Err(err).Str("chunk", c.ID).Msg("embedding failed, skipping chunk")
			continue
		}
		vec := pgvector.NewVector(embedding)

		_, err = s.pool.Exec(ctx, `
			INSERT INTO podcast_chunks (chunk_id, episode_id, episode_title, start_time, end_time, speaker, text, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (chunk_id)
			DO UPDATE SET
				episode_title = EXCLUDED.episode_title,
				start_time = EXCLUDED.start_time,
				end_time = EXCLUDED.end_time,
				speaker = EXCLUDED.speaker,
				text = EXCLUDED.text,
				embedding = EXCLUDED.embedding
		`, c.ID, c.EpisodeID, c.EpisodeTitle, c.Start, c.End, c.Speaker, c.Text, vec)
		if err != nil {
			log.Warn().Err(err).Str("chunk", c.ID).Msg("insert failed, skipping chunk")
			continue
		}
		successCount++
	}
	return successCount
}

func (s *PgVectorStore) Search(query string, topK int, episodeID string) []core.Hit {
	if topK <= 0 {
		topK = 5
	}
	ctx := context.Background()

	queryEmbedding, err := s.embedder.Embed(ctx, strings.ToLower(query))
	if err != nil {
		log.Warn().Err(err).Msg("query embedding failed")
		return nil
	}
	vec := pgvector.NewVector(queryEmbedding)

	var rows pgx.Rows
	if episodeID != "" {
		rows, err = s.pool.Query(ctx, `
			SELECT episode_id, episode_title, start_time, end_time, speaker, text,
				   1 - (embedding <=> $1) as similarity
			FROM podcast_chunks
			WHERE episode_id = $2
			ORDER BY embedding <=> $1
			LIMIT $3
		`, vec, episodeID, topK)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT episode_id, episode_title, start_time, end_time, speaker, text,
				   1 - (embedding <=> $1) as similarity
			FROM podcast_chunks
			ORDER BY embedding <=> $1
			LIMIT $2
		`, vec, topK)
	}
	if err != nil {
		log.Warn().Err(err).Msg("pgvector search failed")
		return nil
	}
	defer rows.Close()

	var hits []core.Hit
	for rows.Next() {
		var h core.Hit
		if err := rows.Scan(&h.EpisodeID, &h.EpisodeTitle, &h.Start, &h.End, &h.Speaker, &h.Text, &h.Score); err != nil {
			continue
		}
		hits = append(hits, h)
	}
	return hits
}

func (s *PgVectorStore) Count() int {
	var count int
	if err := s.pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM podcast_chunks").Scan(&count); err != nil {
		return 0
	}
	return count
}

func (s *PgVectorStore) Reset() error {
	_, err := s.pool.Exec(context.Background(), "TRUNCATE podcast_chunks;")
	return err
}

// Close stops the maintenance goroutine and releases the pool. Safe to call
// more than once.
func (s *PgVectorStore) Close() error {
	s.closeOnce.Do(func() {
		if s.done != nil {
			close(s.done)
		}
	})
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
