package processors

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Preprocessor normalizes an uploaded audio file into the format the ASR
// providers expect, returning the path of the converted file.
type Preprocessor interface {
	Prepare(inputPath, outDir string) (string, error)
}

// FFmpegPreprocessor shells out to ffmpeg for the conversion.
type FFmpegPreprocessor struct{}

func (FFmpegPreprocessor) Prepare(inputPath, outDir string) (string, error) {
	return PreprocessAudio(inputPath, outDir)
}

// SupportedAudioExts are the upload formats accepted for ingestion.
var SupportedAudioExts = map[string]struct{}{
	".mp3": {}, ".wav": {}, ".m4a": {}, ".flac": {}, ".ogg": {},
}

// ValidateAudioFile checks the filename extension against the supported set.
func ValidateAudioFile(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := SupportedAudioExts[ext]; !ok {
		return fmt.Errorf("unsupported audio format %q (supported: mp3, wav, m4a, flac, ogg)", ext)
	}
	return nil
}

func runFFmpeg(args []string) error {
	cmd := exec.Command("ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// PreprocessAudio converts any supported input into mono 16kHz WAV, the
// format the ASR providers expect. Returns the path of the converted file.
func PreprocessAudio(inputPath, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}
	outPath := filepath.Join(outDir, "audio.wav")
	args := []string{"-y", "-i", inputPath, "-vn", "-ac", "1", "-ar", "16000", "-f", "wav", outPath}
	if err := runFFmpeg(args); err != nil {
		return "", err
	}
	st, err := os.Stat(outPath)
	if err != nil {
		return "", err
	}
	if st.Size() == 0 {
		return "", fmt.Errorf("preprocessed audio is empty: %s", outPath)
	}
	return outPath, nil
}

// ProbeDuration returns the audio duration in seconds via ffprobe.
func ProbeDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return 0, err
	}
	s := strings.TrimSpace(out.String())
	return strconv.ParseFloat(s, 64)
}
