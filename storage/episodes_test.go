package storage

import (
	"testing"
	"time"

	"podcastSearch/core"
)

func newTestEpisodeStore(t *testing.T) *EpisodeStore {
	t.Helper()
	s, err := NewEpisodeStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewEpisodeStore: %v", err)
	}
	return s
}

func TestEpisodeSaveAndList(t *testing.T) {
	s := newTestEpisodeStore(t)

	ep := core.Episode{
		ID:          "episode_a",
		Title:       "First Episode",
		FileName:    "first.mp3",
		Duration:    1800,
		Chunks:      42,
		Speakers:    2,
		ProcessedAt: time.Now(),
	}
	if err := s.SaveEpisode(ep); err != nil {
		t.Fatalf("SaveEpisode: %v", err)
	}

	episodes, err := s.ListEpisodes()
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	got, ok := episodes["episode_a"]
	if !ok {
		t.Fatal("saved episode missing from list")
	}
	if got.Title != "First Episode" || got.Chunks != 42 {
		t.Errorf("episode round-trip mismatch: %+v", got)
	}

	// Saving the same id again replaces, not duplicates.
	ep.Title = "First Episode (retitled)"
	if err := s.SaveEpisode(ep); err != nil {
		t.Fatalf("SaveEpisode replace: %v", err)
	}
	episodes, _ = s.ListEpisodes()
	if len(episodes) != 1 {
		t.Errorf("expected 1 episode after replace, got %d", len(episodes))
	}
	if episodes["episode_a"].Title != "First Episode (retitled)" {
		t.Errorf("replace did not update title: %q", episodes["episode_a"].Title)
	}
}

func TestEpisodeSaveRequiresID(t *testing.T) {
	s := newTestEpisodeStore(t)
	if err := s.SaveEpisode(core.Episode{Title: "no id"}); err == nil {
		t.Error("expected error for episode without id")
	}
}

func TestTranscriptRoundTrip(t *testing.T) {
	s := newTestEpisodeStore(t)

	tr := &core.Transcript{
		EpisodeID: "episode_b",
		Duration:  60,
		Text:      "hello world",
		Segments: []core.Segment{
			{Start: 0, End: 30, Text: "hello"},
			{Start: 30, End: 60, Text: "world"},
		},
	}
	if err := s.SaveTranscript("episode_b", tr); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	got, err := s.LoadTranscript("episode_b")
	if err != nil {
		t.Fatalf("LoadTranscript: %v", err)
	}
	if got.Text != "hello world" || len(got.Segments) != 2 {
		t.Errorf("transcript round-trip mismatch: %+v", got)
	}

	if _, err := s.LoadTranscript("missing"); err == nil {
		t.Error("expected error loading a transcript that was never saved")
	}
}

func TestStatsCapacity(t *testing.T) {
	s := newTestEpisodeStore(t)

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Capacity != "Ready for 3+ episodes" {
		t.Errorf("empty store capacity: %q", stats.Capacity)
	}

	base := time.Now()
	for i, want := range []string{
		"Ready for 2nd and 3rd episodes",
		"Ready for 3rd episode",
		"Successfully storing 3 episodes",
	} {
		ep := core.Episode{
			ID:          string(rune('a' + i)),
			Title:       "ep",
			Duration:    600,
			Chunks:      10,
			ProcessedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveEpisode(ep); err != nil {
			t.Fatalf("SaveEpisode %d: %v", i, err)
		}
		stats, err = s.Stats()
		if err != nil {
			t.Fatalf("Stats after %d saves: %v", i+1, err)
		}
		if stats.Capacity != want {
			t.Errorf("capacity after %d episodes: %q, want %q", i+1, stats.Capacity, want)
		}
	}

	if stats.TotalEpisodes != 3 || stats.TotalChunks != 30 || stats.TotalDuration != 1800 {
		t.Errorf("stats totals: %+v", stats)
	}
	for i := 1; i < len(stats.Episodes); i++ {
		if stats.Episodes[i].ProcessedAt.Before(stats.Episodes[i-1].ProcessedAt) {
			t.Error("episodes not sorted by processing time")
		}
	}
}

func TestClearRemovesEverything(t *testing.T) {
	s := newTestEpisodeStore(t)

	if err := s.SaveEpisode(core.Episode{ID: "x", Title: "t"}); err != nil {
		t.Fatalf("SaveEpisode: %v", err)
	}
	if err := s.SaveTranscript("x", &core.Transcript{EpisodeID: "x"}); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	episodes, err := s.ListEpisodes()
	if err != nil {
		t.Fatalf("ListEpisodes after clear: %v", err)
	}
	if len(episodes) != 0 {
		t.Errorf("expected no episodes after clear, got %d", len(episodes))
	}
	if _, err := s.LoadTranscript("x"); err == nil {
		t.Error("transcript should be gone after clear")
	}

	// Store stays usable after a clear.
	if err := s.SaveEpisode(core.Episode{ID: "y", Title: "t"}); err != nil {
		t.Errorf("SaveEpisode after clear: %v", err)
	}
}
