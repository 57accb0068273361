package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"podcastSearch/core"
	"podcastSearch/processors"
)

// processEpisode runs the full pipeline for one audio file: preprocess,
// transcribe, diarize, chunk, index, persist. The step report mirrors what
// actually ran; indexing or persistence problems degrade to warnings where
// the episode is still usable.
func (s *Server) processEpisode(ctx context.Context, audioPath, title string) (*core.ProcessEpisodeResponse, error) {
	episodeID := core.NewEpisodeID()
	if title == "" {
		title = filepath.Base(audioPath)
	}
	resp := &core.ProcessEpisodeResponse{
		Steps:    make([]core.Step, 0, 5),
		Warnings: make([]string, 0),
	}
	plog := log.With().Str("component", "pipeline").Str("episode_id", episodeID).Logger()
	workDir := filepath.Join(s.cfg.DataDir, "work", episodeID)
	defer os.RemoveAll(workDir)

	// Step 1: preprocess to mono 16kHz WAV
	plog.Info().Str("file", audioPath).Msg("preprocessing audio")
	wavPath, err := s.pre.Prepare(audioPath, workDir)
	if err != nil {
		resp.Steps = append(resp.Steps, core.Step{Name: "preprocess", Status: "failed", Error: err.Error()})
		resp.Message = "audio preprocessing failed"
		return resp, err
	}
	resp.Steps = append(resp.Steps, core.Step{Name: "preprocess", Status: "completed"})

	// Step 2: transcribe
	plog.Info().Msg("transcribing audio")
	transcript, err := s.asr.Transcribe(ctx, wavPath)
	if err != nil {
		resp.Steps = append(resp.Steps, core.Step{Name: "transcribe", Status: "failed", Error: err.Error()})
		resp.Message = "transcription failed"
		return resp, err
	}
	if len(transcript.Segments) == 0 {
		err := fmt.Errorf("transcription returned no segments")
		resp.Steps = append(resp.Steps, core.Step{Name: "transcribe", Status: "failed", Error: err.Error()})
		resp.Message = "transcription failed"
		return resp, err
	}
	transcript.EpisodeID = episodeID
	resp.Steps = append(resp.Steps, core.Step{Name: "transcribe", Status: "completed"})

	// Step 3: diarize
	plog.Info().Int("segments", len(transcript.Segments)).Msg("identifying speakers")
	speakers := s.diarizer.AssignSpeakers(transcript.Segments)
	speakerCount := processors.CountSpeakers(speakers)
	resp.Steps = append(resp.Steps, core.Step{Name: "diarize", Status: "completed"})

	// Step 4: chunk
	chunks := processors.ChunkTranscript(transcript, speakers, s.cfg.ChunkWindow, episodeID, title)
	if len(chunks) == 0 {
		err := fmt.Errorf("transcript produced no indexable chunks")
		resp.Steps = append(resp.Steps, core.Step{Name: "chunk", Status: "failed", Error: err.Error()})
		resp.Message = "chunking failed"
		return resp, err
	}
	resp.Steps = append(resp.Steps, core.Step{Name: "chunk", Status: "completed"})

	// Step 5: index
	plog.Info().Int("chunks", len(chunks)).Msg("indexing chunks")
	indexed := s.store.Upsert(chunks)
	if indexed == 0 {
		resp.Steps = append(resp.Steps, core.Step{Name: "index", Status: "failed", Error: "no chunks indexed"})
		resp.Warnings = append(resp.Warnings, "no chunks were indexed; search will not find this episode")
	} else {
		if indexed < len(chunks) {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("indexed %d of %d chunks", indexed, len(chunks)))
		}
		resp.Steps = append(resp.Steps, core.Step{Name: "index", Status: "completed"})
	}

	// Step 6: persist episode record + transcript
	episode := core.Episode{
		ID:          episodeID,
		Title:       title,
		FileName:    filepath.Base(audioPath),
		Duration:    transcript.Duration,
		Chunks:      len(chunks),
		Speakers:    speakerCount,
		ProcessedAt: time.Now(),
	}
	if err := s.episodes.SaveEpisode(episode); err != nil {
		resp.Steps = append(resp.Steps, core.Step{Name: "persist", Status: "failed", Error: err.Error()})
		resp.Message = "failed to save episode data"
		return resp, err
	}
	if err := s.episodes.SaveTranscript(episodeID, transcript); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("failed to save transcript: %v", err))
	}
	resp.Steps = append(resp.Steps, core.Step{Name: "persist", Status: "completed"})

	plog.Info().Str("title", title).Int("chunks", len(chunks)).Int("speakers", speakerCount).Msg("episode processed")
	resp.Episode = &episode
	resp.Message = fmt.Sprintf("Successfully processed %q: %d searchable chunks, %d speakers", title, len(chunks), speakerCount)
	return resp, nil
}
