package processors

import (
	"fmt"

	"podcastSearch/core"
)

// Diarizer assigns a speaker label to each transcript segment, by index.
type Diarizer interface {
	AssignSpeakers(segments []core.Segment) map[int]string
}

// NoopDiarizer labels everything as a single unknown speaker.
type NoopDiarizer struct{}

func (NoopDiarizer) AssignSpeakers(segments []core.Segment) map[int]string {
	speakers := make(map[int]string, len(segments))
	for i := range segments {
		speakers[i] = "Speaker_0"
	}
	return speakers
}

// PauseDiarizer is a pause-gap heuristic: a new speaker is assumed whenever
// the silence between consecutive segments exceeds Gap seconds. It is not a
// real diarization model; a proper backend can replace it behind the same
// interface.
type PauseDiarizer struct {
	Gap float64 // seconds; <= 0 means the 2.0s default
}

func (d PauseDiarizer) AssignSpeakers(segments []core.Segment) map[int]string {
	gap := d.Gap
	if gap <= 0 {
		gap = 2.0
	}

	speakers := make(map[int]string, len(segments))
	speakerCount := 0
	for i, seg := range segments {
		if i == 0 {
			speakers[i] = speakerLabel(speakerCount)
			continue
		}
		pause := seg.Start - segments[i-1].End
		if pause > gap {
			speakerCount++
		}
		speakers[i] = speakerLabel(speakerCount)
	}
	return speakers
}

func speakerLabel(i int) string {
	return fmt.Sprintf("Speaker_%d", i)
}

// CountSpeakers returns the number of distinct labels in a speaker map.
func CountSpeakers(speakers map[int]string) int {
	seen := map[string]struct{}{}
	for _, s := range speakers {
		seen[s] = struct{}{}
	}
	return len(seen)
}
