package rag

import (
	"context"
	"strings"
	"testing"

	"podcastSearch/config"
	"podcastSearch/core"
	"podcastSearch/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		ChatModel:    "gpt-3.5-turbo",
		GeminiModel:  "gemini-1.5-flash",
		DefaultModel: "openai",
		DefaultTopK:  5,
	}
}

func testEngine() *Engine {
	store := storage.NewMemoryVectorStore()
	store.Upsert([]core.Chunk{
		{ID: "ep1_chunk_0", EpisodeID: "ep1", EpisodeTitle: "Tech Talk", Start: 0, End: 30, Speaker: "Speaker_0", Text: "distributed systems and consensus protocols"},
		{ID: "ep1_chunk_1", EpisodeID: "ep1", EpisodeTitle: "Tech Talk", Start: 30, End: 60, Speaker: "Speaker_1", Text: "raft makes leader election understandable"},
	})
	return NewEngine(testConfig(), store)
}

func TestFormatContext(t *testing.T) {
	hits := []core.Hit{
		{EpisodeTitle: "Tech Talk", Start: 65, End: 95, Speaker: "Speaker_1", Text: "raft explained"},
		{Start: 0, End: 30, Text: "no metadata"},
	}
	out := FormatContext(hits)
	if !strings.Contains(out, "Source 1 - Tech Talk (01:05 - 01:35)") {
		t.Errorf("context missing formatted header:\n%s", out)
	}
	if !strings.Contains(out, "Speaker: Speaker_1") || !strings.Contains(out, "Content: raft explained") {
		t.Errorf("context missing speaker or content:\n%s", out)
	}
	if !strings.Contains(out, "Unknown Episode") || !strings.Contains(out, "Unknown Speaker") {
		t.Errorf("context should fall back for missing metadata:\n%s", out)
	}
}

func TestFormatContextEmpty(t *testing.T) {
	if out := FormatContext(nil); out != "No relevant content found." {
		t.Errorf("empty context: %q", out)
	}
}

func TestAnswerNoHits(t *testing.T) {
	e := testEngine()
	got := e.Answer(context.Background(), "openai", "anything", nil)
	if got != "No relevant content found in the indexed episodes." {
		t.Errorf("no-hits answer: %q", got)
	}
}

func TestAnswerFallsBackWithoutAPIKey(t *testing.T) {
	e := testEngine()
	hits := []core.Hit{{EpisodeTitle: "Tech Talk", Start: 10, Speaker: "Speaker_0", Text: "consensus needs a quorum"}}

	got := e.Answer(context.Background(), "openai", "what is consensus", hits)
	if !strings.Contains(got, "Relevant passages found:") {
		t.Errorf("expected synthesized fallback, got: %q", got)
	}
	if !strings.Contains(got, "Tech Talk @ 00:10") {
		t.Errorf("fallback should include title and timestamp: %q", got)
	}
}

func TestAnswerUnknownModel(t *testing.T) {
	e := testEngine()
	hits := []core.Hit{{EpisodeTitle: "Tech Talk", Text: "something"}}
	got := e.Answer(context.Background(), "llama", "q", hits)
	want := "Error: Unknown model 'llama'. Available models: gemini, openai"
	if got != want {
		t.Errorf("unknown model answer: %q, want %q", got, want)
	}
	// The error is not returned when there is nothing to answer over.
	if got := e.Answer(context.Background(), "llama", "q", nil); got != "No relevant content found in the indexed episodes." {
		t.Errorf("no-hits answer takes precedence: %q", got)
	}
}

func TestSynthesizeSimpleTruncates(t *testing.T) {
	long := strings.Repeat("x", 300)
	got := synthesizeSimple([]core.Hit{{EpisodeTitle: "Ep", Text: long}})
	if !strings.Contains(got, strings.Repeat("x", 200)+"...") {
		t.Errorf("long snippet not truncated: %q", got)
	}
	if strings.Contains(got, strings.Repeat("x", 201)) {
		t.Error("snippet longer than 200 chars")
	}
}

func TestQueryDefaults(t *testing.T) {
	e := testEngine()
	resp := e.Query(context.Background(), core.QueryRequest{Question: "how does raft work"})
	if resp.SearchInfo.Strategy != storage.StrategySemantic {
		t.Errorf("default strategy: %q", resp.SearchInfo.Strategy)
	}
	if resp.SearchInfo.Model != "openai" {
		t.Errorf("default model should come from config: %q", resp.SearchInfo.Model)
	}
	if resp.SearchInfo.ResultsCount != len(resp.Hits) {
		t.Errorf("results count %d != hits %d", resp.SearchInfo.ResultsCount, len(resp.Hits))
	}
	if resp.Answer == "" {
		t.Error("query should always produce an answer string")
	}
}

func TestAvailableModels(t *testing.T) {
	e := testEngine()
	models := e.AvailableModels()
	if models["openai"].Status != "no_api_key" || models["gemini"].Status != "no_api_key" {
		t.Errorf("unconfigured models should report no_api_key: %+v", models)
	}

	cfg := testConfig()
	cfg.APIKey = "sk-test"
	cfg.BaseURL = "https://api.openai.com/v1"
	cfg.GeminiAPIKey = "g-test"
	e = NewEngine(cfg, storage.NewMemoryVectorStore())
	models = e.AvailableModels()
	if models["openai"].Status != "available" || models["gemini"].Status != "available" {
		t.Errorf("configured models should report available: %+v", models)
	}
}

func TestBuildPromptIncludesQuestionAndContext(t *testing.T) {
	p := buildPrompt("what was said about raft", "Source 1 - Tech Talk")
	if !strings.Contains(p, "what was said about raft") || !strings.Contains(p, "Source 1 - Tech Talk") {
		t.Errorf("prompt missing question or context:\n%s", p)
	}
}
