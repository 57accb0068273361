package core

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DataRoot is where uploads, transcripts and the episodes file live.
func DataRoot() string {
	if v := os.Getenv("DATA_DIR"); v != "" {
		return v
	}
	return filepath.Join(".", "data")
}

// NewEpisodeID returns a fresh episode identifier.
func NewEpisodeID() string {
	return "episode_" + uuid.NewString()
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "write json error: %v", err)
	}
}

func MustJSON(v any) []byte {
	b, _ := json.MarshalIndent(v, "", "  ")
	return b
}

func SaveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, MustJSON(v), 0644)
}

// FormatTime renders seconds as MM:SS for answers and source listings.
func FormatTime(sec float64) string {
	sec = math.Max(sec, 0)
	m := int(sec) / 60
	s := int(sec) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}

var nonLetter = regexp.MustCompile(`[^a-zA-Z0-9\p{Han}]+`)
var stops = map[string]struct{}{"the": {}, "and": {}, "a": {}, "an": {}, "of": {}, "to": {}, "in": {}, "is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "that": {}, "this": {}, "it": {}, "as": {}, "at": {}, "be": {}, "by": {}, "from": {}}

// Tokenize lowercases, strips punctuation and drops stopwords.
func Tokenize(s string) []string {
	s = strings.ToLower(s)
	s = nonLetter.ReplaceAllString(s, " ")
	parts := strings.Fields(s)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if _, ok := stops[p]; ok {
			continue
		}
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
