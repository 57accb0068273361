package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"podcastSearch/config"
	"podcastSearch/core"
	"podcastSearch/storage"
)

// Engine answers natural-language questions over the indexed corpus:
// retrieve chunks from the vector store, format them as context, and ask an
// answer model. Falls back to a synthesized listing when no model is
// configured or the call fails.
type Engine struct {
	cfg   *config.Config
	store storage.VectorStore
}

func NewEngine(cfg *config.Config, store storage.VectorStore) *Engine {
	return &Engine{cfg: cfg, store: store}
}

// ModelInfo describes one answer model for the models endpoint.
type ModelInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"` // "available" or "no_api_key"
}

// Query runs the full retrieve-then-generate path.
func (e *Engine) Query(ctx context.Context, req core.QueryRequest) core.QueryResponse {
	topK := req.TopK
	if topK <= 0 {
		topK = e.cfg.DefaultTopK
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = storage.StrategySemantic
	}
	model := req.Model
	if model == "" {
		model = e.cfg.DefaultModel
	}

	hits := storage.SearchWithStrategy(e.store, req.Question, topK, strategy, req.EpisodeID)
	answer := e.Answer(ctx, model, req.Question, hits)

	return core.QueryResponse{
		Question: req.Question,
		Answer:   answer,
		Hits:     hits,
		SearchInfo: core.SearchInfo{
			Strategy:     strategy,
			Model:        model,
			ResultsCount: len(hits),
		},
	}
}

// Answer generates an answer for already-retrieved hits.
func (e *Engine) Answer(ctx context.Context, model, question string, hits []core.Hit) string {
	if len(hits) == 0 {
		return "No relevant content found in the indexed episodes."
	}
	if model != "openai" && model != "gemini" {
		return fmt.Sprintf("Error: Unknown model '%s'. Available models: gemini, openai", model)
	}

	cli, chatModel, err := e.clientFor(model)
	if err != nil {
		log.Warn().Err(err).Str("model", model).Msg("answer model unavailable, using simple synthesis")
		return synthesizeSimple(hits)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	resp, err := cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a helpful assistant that analyzes podcast content and provides accurate, timestamped responses.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(question, FormatContext(hits)),
			},
		},
		MaxTokens:   1000,
		Temperature: 0.3,
	})
	if err != nil {
		log.Warn().Err(err).Msg("answer generation failed, using simple synthesis")
		return synthesizeSimple(hits)
	}
	if len(resp.Choices) == 0 {
		return synthesizeSimple(hits)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

// clientFor returns a configured client and chat model name for "openai" or
// "gemini" (via its OpenAI-compatible endpoint).
func (e *Engine) clientFor(model string) (*openai.Client, string, error) {
	switch model {
	case "openai":
		if !e.cfg.HasValidAPI() {
			return nil, "", fmt.Errorf("openai API key not configured")
		}
		cc := openai.DefaultConfig(e.cfg.APIKey)
		if e.cfg.BaseURL != "" {
			cc.BaseURL = e.cfg.BaseURL
		}
		return openai.NewClientWithConfig(cc), e.cfg.ChatModel, nil
	case "gemini":
		if !e.cfg.HasGemini() {
			return nil, "", fmt.Errorf("gemini API key not configured")
		}
		cc := openai.DefaultConfig(e.cfg.GeminiAPIKey)
		cc.BaseURL = e.cfg.GeminiBaseURL
		return openai.NewClientWithConfig(cc), e.cfg.GeminiModel, nil
	default:
		return nil, "", fmt.Errorf("unknown model %q (available: openai, gemini)", model)
	}
}

// FormatContext renders retrieved chunks as the context block given to the
// answer model: episode title, MM:SS range, speaker, content.
func FormatContext(hits []core.Hit) string {
	if len(hits) == 0 {
		return "No relevant content found."
	}
	parts := make([]string, 0, len(hits))
	for i, h := range hits {
		title := h.EpisodeTitle
		if title == "" {
			title = "Unknown Episode"
		}
		speaker := h.Speaker
		if speaker == "" {
			speaker = "Unknown Speaker"
		}
		parts = append(parts, fmt.Sprintf("Source %d - %s (%s - %s)\nSpeaker: %s\nContent: %s",
			i+1, title, core.FormatTime(h.Start), core.FormatTime(h.End), speaker, h.Text))
	}
	return strings.Join(parts, "\n\n")
}

func buildPrompt(question, context string) string {
	return fmt.Sprintf(`You are an AI assistant that helps users find information from podcast transcripts.
Based on the provided context from podcast episodes, answer the user's question accurately and provide specific timestamps when possible.

Context from podcast transcripts:
%s

User Question: %s

Instructions:
1. Answer based only on the provided context
2. Include specific episode titles and timestamps in your response
3. If the context doesn't contain enough information, say so
4. Provide direct quotes when relevant
5. Format timestamps as MM:SS
6. Mention speakers when relevant
7. If searching across multiple episodes, highlight patterns or differences

Answer:`, context, question)
}

// synthesizeSimple is the no-model fallback: list timestamps and snippets.
func synthesizeSimple(hits []core.Hit) string {
	refs := make([]string, 0, len(hits))
	for _, h := range hits {
		title := h.EpisodeTitle
		if title == "" {
			title = "Unknown Episode"
		}
		snippet := h.Text
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		refs = append(refs, fmt.Sprintf("%s @ %s (%s): %s", title, core.FormatTime(h.Start), h.Speaker, snippet))
	}
	return "Relevant passages found:\n" + strings.Join(refs, "\n")
}

// AvailableModels reports the answer models and whether each is configured.
func (e *Engine) AvailableModels() map[string]ModelInfo {
	openaiStatus := "no_api_key"
	if e.cfg.HasValidAPI() {
		openaiStatus = "available"
	}
	geminiStatus := "no_api_key"
	if e.cfg.HasGemini() {
		geminiStatus = "available"
	}
	return map[string]ModelInfo{
		"openai": {
			Name:        "OpenAI GPT",
			Description: fmt.Sprintf("Chat completions via %s", e.cfg.ChatModel),
			Status:      openaiStatus,
		},
		"gemini": {
			Name:        "Google Gemini",
			Description: fmt.Sprintf("Chat completions via %s (OpenAI-compatible endpoint)", e.cfg.GeminiModel),
			Status:      geminiStatus,
		},
	}
}
