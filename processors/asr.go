package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"podcastSearch/config"
	"podcastSearch/core"
)

// ASRProvider turns an audio file into timed transcript segments.
type ASRProvider interface {
	Transcribe(ctx context.Context, audioPath string) (*core.Transcript, error)
}

type MockASR struct{}

type WhisperASR struct {
	cli *openai.Client
}

type LocalWhisperASR struct{}

// OpenAIClient builds a client against the configured OpenAI-compatible API.
func OpenAIClient() *openai.Client {
	cfg, err := config.LoadConfig()
	if err != nil {
		return openai.NewClient(os.Getenv("API_KEY"))
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

func (m MockASR) Transcribe(ctx context.Context, audioPath string) (*core.Transcript, error) {
	dur, err := ProbeDuration(audioPath)
	if err != nil || dur <= 0 {
		// ffprobe may be unavailable; the mock still has to produce something.
		dur = 60
	}
	segLen := 15.0
	segs := make([]core.Segment, 0)
	for start := 0.0; start < dur; start += segLen {
		end := start + segLen
		if end > dur {
			end = dur
		}
		segs = append(segs, core.Segment{Start: start, End: end, Text: fmt.Sprintf("Placeholder transcript from %.0fs to %.0fs", start, end)})
	}
	return &core.Transcript{Duration: dur, Segments: segs, Text: joinSegmentText(segs)}, nil
}

func (w WhisperASR) Transcribe(ctx context.Context, audioPath string) (*core.Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	resp, err := w.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, fmt.Errorf("empty transcription result")
	}

	segs := make([]core.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		t := strings.TrimSpace(s.Text)
		if t == "" {
			continue
		}
		segs = append(segs, core.Segment{Start: s.Start, End: s.End, Text: t})
	}
	dur := float64(resp.Duration)
	if dur == 0 {
		dur, _ = ProbeDuration(audioPath)
	}
	// Some OpenAI-compatible backends return plain text only.
	if len(segs) == 0 {
		segs = []core.Segment{{Start: 0, End: dur, Text: text}}
	}
	return &core.Transcript{Duration: dur, Segments: segs, Text: text}, nil
}

func (l LocalWhisperASR) Transcribe(ctx context.Context, audioPath string) (*core.Transcript, error) {
	scriptContent := `#!/usr/bin/env python3
import whisper
import sys
import json
import os

def transcribe_audio(audio_path):
    model_size = os.getenv("WHISPER_MODEL", "base")
    model = whisper.load_model(model_size)
    result = model.transcribe(audio_path, word_timestamps=True, verbose=False)
    segments = []
    for segment in result.get("segments", []):
        segments.append({
            "start": segment["start"],
            "end": segment["end"],
            "text": segment["text"].strip()
        })
    if not segments and result.get("text"):
        segments = [{"start": 0, "end": result.get("duration", 0), "text": result["text"].strip()}]
    return {"duration": result.get("duration", 0), "text": result.get("text", ""), "segments": segments}

if __name__ == "__main__":
    if len(sys.argv) != 2:
        print("Usage: python whisper_transcribe.py <audio_file>", file=sys.stderr)
        sys.exit(1)
    out = transcribe_audio(sys.argv[1])
    print(json.dumps(out, ensure_ascii=False))
`

	scriptPath := filepath.Join(os.TempDir(), "whisper_transcribe.py")
	if err := os.WriteFile(scriptPath, []byte(scriptContent), 0644); err != nil {
		return nil, fmt.Errorf("failed to create whisper script: %v", err)
	}
	defer os.Remove(scriptPath)

	cmd := exec.CommandContext(ctx, "python", scriptPath, audioPath)
	output, err := cmd.Output()
	if err != nil {
		log.Warn().Err(err).Msg("local whisper failed, falling back to mock transcription")
		return MockASR{}.Transcribe(ctx, audioPath)
	}

	var parsed struct {
		Duration float64        `json:"duration"`
		Text     string         `json:"text"`
		Segments []core.Segment `json:"segments"`
	}
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse whisper output: %v", err)
	}
	if len(parsed.Segments) == 0 {
		return nil, fmt.Errorf("whisper returned no segments")
	}
	dur := parsed.Duration
	if dur == 0 {
		dur = parsed.Segments[len(parsed.Segments)-1].End
	}
	text := parsed.Text
	if text == "" {
		text = joinSegmentText(parsed.Segments)
	}
	return &core.Transcript{Duration: dur, Segments: parsed.Segments, Text: text}, nil
}

// PickASRProvider selects the transcription backend from the ASR env var.
func PickASRProvider() ASRProvider {
	asr := strings.ToLower(strings.TrimSpace(os.Getenv("ASR")))

	if asr == "mock" {
		return MockASR{}
	}

	if asr == "whisper" || asr == "api-whisper" {
		cfg, err := config.LoadConfig()
		if err != nil || !cfg.HasValidAPI() {
			log.Warn().Msg("API configuration not found for whisper ASR, using local whisper")
			return LocalWhisperASR{}
		}
		return WhisperASR{cli: OpenAIClient()}
	}

	log.Info().Msg("using local whisper ASR (no API required)")
	return LocalWhisperASR{}
}

func joinSegmentText(segs []core.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}
