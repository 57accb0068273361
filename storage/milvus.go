package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/rs/zerolog/log"

	"podcastSearch/config"
	"podcastSearch/core"
)

// MilvusVectorStore keeps chunk embeddings in a Milvus collection with an
// HNSW cosine index.
type MilvusVectorStore struct {
	mc       client.Client
	coll     string
	dim      int
	embedder Embedder
}

func newMilvusVectorStore() (*MilvusVectorStore, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	addr := cfg.MilvusAddr
	username := os.Getenv("MILVUS_USERNAME")
	password := os.Getenv("MILVUS_PASSWORD")
	apiKey := os.Getenv("MILVUS_API_KEY") // For Zilliz Cloud

	mc, err := client.NewClient(context.Background(), client.Config{Address: addr, Username: username, Password: password, APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}

	emb, err := newOpenAIEmbedder()
	if err != nil {
		return nil, err
	}

	s := &MilvusVectorStore{mc: mc, coll: cfg.MilvusCollection, dim: cfg.EmbeddingDim, embedder: emb}
	if err := s.ensureSchemaAndIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MilvusVectorStore) ensureSchemaAndIndex() error {
	ctx := context.Background()
	has, err := s.mc.HasCollection(ctx, s.coll)
	if err != nil {
		return err
	}
	if !has {
		schema := entity.NewSchema()
		schema.WithField(entity.NewField().WithName("id").WithIsAutoID(true).WithIsPrimaryKey(true).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("chunk_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(255))
		schema.WithField(entity.NewField().WithName("episode_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(255))
		schema.WithField(entity.NewField().WithName("episode_title").WithDataType(entity.FieldTypeVarChar).WithMaxLength(512))
		schema.WithField(entity.NewField().WithName("start").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("end").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("speaker").WithDataType(entity.FieldTypeVarChar).WithMaxLength(64))
		schema.WithField(entity.NewField().WithName("text").WithDataType(entity.FieldTypeVarChar).WithMaxLength(4096))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))

		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return fmt.Errorf("new hnsw index: %w", err)
	}
	if err := s.mc.CreateIndex(ctx, s.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := s.mc.LoadCollection(ctx, s.coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

func (s *MilvusVectorStore) Upsert(chunks []core.Chunk) int {
	if len(chunks) == 0 {
		return 0
	}
	ctx := context.Background()

	chunkIDs := make([]string, 0, len(chunks))
	episodeIDs := make([]string, 0, len(chunks))
	titles := make([]string, 0, len(chunks))
	starts := make([]float64, 0, len(chunks))
	ends := make([]float64, 0, len(chunks))
	speakers := make([]string, 0, len(chunks))
	texts := make([]string, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))

	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		v, err := s.embedder.Embed(ctx, strings.ToLower(c.Text))
		if err != nil {
			log.Warn().Err(err).Str("chunk", c.ID).Msg("embedding failed, skipping chunk")
			continue
		}
		chunkIDs = append(chunkIDs, c.ID)
		episodeIDs = append(episodeIDs, c.EpisodeID)
		titles = append(titles, c.EpisodeTitle)
		starts = append(starts, c.Start)
		ends = append(ends, c.End)
		speakers = append(speakers, c.Speaker)
		texts = append(texts, c.Text)
		vectors = append(vectors, v)
	}
	if len(vectors) == 0 {
		return 0
	}

	_, err := s.mc.Insert(ctx, s.coll, "",
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnVarChar("episode_id", episodeIDs),
		entity.NewColumnVarChar("episode_title", titles),
		entity.NewColumnDouble("start", starts),
		entity.NewColumnDouble("end", ends),
		entity.NewColumnVarChar("speaker", speakers),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnFloatVector("vector", s.dim, vectors),
	)
	if err != nil {
		log.Warn().Err(err).Msg("milvus insert failed")
		return 0
	}
	return len(vectors)
}

func (s *MilvusVectorStore) Search(query string, topK int, episodeID string) []core.Hit {
	v, err := s.embedder.Embed(context.Background(), strings.ToLower(query))
	if err != nil {
		log.Warn().Err(err).Msg("query embedding failed")
		return nil
	}
	if topK <= 0 {
		topK = 5
	}
	ctx := context.Background()
	sp, _ := entity.NewIndexHNSWSearchParam(74)
	filter := ""
	if episodeID != "" {
		filter = fmt.Sprintf("episode_id == \"%s\"", strings.ReplaceAll(episodeID, "\"", "\\\""))
	}
	res, err := s.mc.Search(ctx, s.coll, []string{}, filter,
		[]string{"episode_id", "episode_title", "start", "end", "speaker", "text"},
		[]entity.Vector{entity.FloatVector(v)}, "vector", entity.COSINE, topK, sp)
	if err != nil {
		log.Warn().Err(err).Msg("milvus search failed")
		return nil
	}

	var hits []core.Hit
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			var h core.Hit
			if c, ok := cols["episode_id"].(*entity.ColumnVarChar); ok {
				if data := c.Data(); i < len(data) {
					h.EpisodeID = data[i]
				}
			}
			if c, ok := cols["episode_title"].(*entity.ColumnVarChar); ok {
				if data := c.Data(); i < len(data) {
					h.EpisodeTitle = data[i]
				}
			}
			if c, ok := cols["start"].(*entity.ColumnDouble); ok {
				if data := c.Data(); i < len(data) {
					h.Start = data[i]
				}
			}
			if c, ok := cols["end"].(*entity.ColumnDouble); ok {
				if data := c.Data(); i < len(data) {
					h.End = data[i]
				}
			}
			if c, ok := cols["speaker"].(*entity.ColumnVarChar); ok {
				if data := c.Data(); i < len(data) {
					h.Speaker = data[i]
				}
			}
			if c, ok := cols["text"].(*entity.ColumnVarChar); ok {
				if data := c.Data(); i < len(data) {
					h.Text = data[i]
				}
			}
			h.Score = float64(r.Scores[i])
			hits = append(hits, h)
		}
	}
	return hits
}

func (s *MilvusVectorStore) Count() int {
	// Milvus row counts are approximate without a flush; good enough for stats.
	stats, err := s.mc.GetCollectionStatistics(context.Background(), s.coll)
	if err != nil {
		return 0
	}
	var n int
	fmt.Sscanf(stats["row_count"], "%d", &n)
	return n
}

func (s *MilvusVectorStore) Reset() error {
	ctx := context.Background()
	if err := s.mc.DropCollection(ctx, s.coll); err != nil {
		return err
	}
	return s.ensureSchemaAndIndex()
}
