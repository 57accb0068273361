package processors

import (
	"fmt"
	"strings"

	"podcastSearch/core"
)

// ChunkTranscript splits a transcript into temporal windows. A chunk is cut
// when the accumulated window reaches `window` seconds, and always before a
// speaker change, so no chunk mixes two speakers. Segments keep their order;
// chunks never overlap.
func ChunkTranscript(tr *core.Transcript, speakers map[int]string, window float64, episodeID, episodeTitle string) []core.Chunk {
	if tr == nil || len(tr.Segments) == 0 {
		return nil
	}
	if window <= 0 {
		window = 30.0
	}

	chunks := make([]core.Chunk, 0)
	var cur *core.Chunk
	var parts []string

	flush := func() {
		if cur == nil {
			return
		}
		text := strings.TrimSpace(strings.Join(parts, " "))
		if text != "" {
			cur.Text = text
			cur.ID = fmt.Sprintf("%s_chunk_%d", episodeID, len(chunks))
			chunks = append(chunks, *cur)
		}
		cur = nil
		parts = nil
	}

	for i, seg := range tr.Segments {
		speaker := "Speaker_0"
		if s, ok := speakers[i]; ok {
			speaker = s
		}

		if cur != nil && speaker != cur.Speaker {
			flush()
		}
		if cur == nil {
			cur = &core.Chunk{
				EpisodeID:    episodeID,
				EpisodeTitle: episodeTitle,
				Start:        seg.Start,
				Speaker:      speaker,
			}
		}

		cur.End = seg.End
		parts = append(parts, seg.Text)

		if cur.End-cur.Start >= window {
			flush()
		}
	}
	flush()

	return chunks
}
