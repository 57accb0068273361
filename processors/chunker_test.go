package processors

import (
	"testing"

	"podcastSearch/core"
)

func TestChunkTranscriptByWindow(t *testing.T) {
	tr := &core.Transcript{
		Duration: 90,
		Segments: []core.Segment{
			{Start: 0, End: 15, Text: "first part"},
			{Start: 15, End: 30, Text: "second part"},
			{Start: 30, End: 45, Text: "third part"},
			{Start: 45, End: 60, Text: "fourth part"},
		},
	}
	speakers := map[int]string{0: "Speaker_0", 1: "Speaker_0", 2: "Speaker_0", 3: "Speaker_0"}

	chunks := ChunkTranscript(tr, speakers, 30, "ep1", "Test Episode")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Start != 0 || chunks[0].End != 30 {
		t.Errorf("first chunk spans %.0f-%.0f, want 0-30", chunks[0].Start, chunks[0].End)
	}
	if chunks[1].Start != 30 || chunks[1].End != 60 {
		t.Errorf("second chunk spans %.0f-%.0f, want 30-60", chunks[1].Start, chunks[1].End)
	}
	if chunks[0].Text != "first part second part" {
		t.Errorf("unexpected first chunk text: %q", chunks[0].Text)
	}
	if chunks[0].EpisodeID != "ep1" || chunks[0].EpisodeTitle != "Test Episode" {
		t.Errorf("chunk metadata not propagated: %+v", chunks[0])
	}
}

func TestChunkTranscriptSpeakerChange(t *testing.T) {
	tr := &core.Transcript{
		Duration: 30,
		Segments: []core.Segment{
			{Start: 0, End: 5, Text: "hello there"},
			{Start: 5, End: 10, Text: "welcome to the show"},
			{Start: 13, End: 20, Text: "thanks for having me"},
		},
	}
	speakers := map[int]string{0: "Speaker_0", 1: "Speaker_0", 2: "Speaker_1"}

	chunks := ChunkTranscript(tr, speakers, 30, "ep1", "Interview")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks (cut on speaker change), got %d", len(chunks))
	}
	if chunks[0].Speaker != "Speaker_0" || chunks[1].Speaker != "Speaker_1" {
		t.Errorf("speaker labels: got %q and %q", chunks[0].Speaker, chunks[1].Speaker)
	}
	// A chunk must never mix speakers: the second speaker's text starts a new chunk.
	if chunks[1].Text != "thanks for having me" {
		t.Errorf("second chunk text: %q", chunks[1].Text)
	}
	if chunks[0].End > chunks[1].Start {
		t.Errorf("chunks overlap: %.1f > %.1f", chunks[0].End, chunks[1].Start)
	}
}

func TestChunkTranscriptOrderedWithinDuration(t *testing.T) {
	tr := &core.Transcript{
		Duration: 100,
		Segments: []core.Segment{
			{Start: 0, End: 20, Text: "a"},
			{Start: 20, End: 50, Text: "b"},
			{Start: 50, End: 70, Text: "c"},
			{Start: 75, End: 100, Text: "d"},
		},
	}
	speakers := PauseDiarizer{Gap: 2.0}.AssignSpeakers(tr.Segments)
	chunks := ChunkTranscript(tr, speakers, 30, "ep2", "Long Episode")
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	prevEnd := 0.0
	for i, c := range chunks {
		if c.Start < prevEnd {
			t.Errorf("chunk %d starts before previous ends (%.1f < %.1f)", i, c.Start, prevEnd)
		}
		if c.Start < 0 || c.End > tr.Duration {
			t.Errorf("chunk %d outside [0, duration]: %.1f-%.1f", i, c.Start, c.End)
		}
		if c.End < c.Start {
			t.Errorf("chunk %d has end before start", i)
		}
		prevEnd = c.End
	}
}

func TestChunkTranscriptEmpty(t *testing.T) {
	if chunks := ChunkTranscript(nil, nil, 30, "ep", "t"); chunks != nil {
		t.Errorf("nil transcript should produce no chunks, got %d", len(chunks))
	}
	tr := &core.Transcript{Segments: []core.Segment{{Start: 0, End: 5, Text: "   "}}}
	if chunks := ChunkTranscript(tr, nil, 30, "ep", "t"); len(chunks) != 0 {
		t.Errorf("whitespace-only transcript should produce no chunks, got %d", len(chunks))
	}
}
