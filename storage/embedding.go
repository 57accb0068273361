package storage

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"podcastSearch/config"
)

// Embedder produces a dense vector for a piece of chunk or query text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type openaiEmbedder struct {
	cli   *openai.Client
	model string
}

func newOpenAIEmbedder() (*openaiEmbedder, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &openaiEmbedder{
		cli:   openai.NewClientWithConfig(clientConfig),
		model: cfg.EmbeddingModel,
	}, nil
}

func (e *openaiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	}
	resp, err := e.cli.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embedding API failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return resp.Data[0].Embedding, nil
}
