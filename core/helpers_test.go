package core

import (
	"encoding/json"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestFormatTime(t *testing.T) {
	cases := map[float64]string{
		0:    "00:00",
		65:   "01:05",
		59.9: "00:59",
		600:  "10:00",
		3725: "62:05",
		-3:   "00:00",
	}
	for in, want := range cases {
		if got := FormatTime(in); got != want {
			t.Errorf("FormatTime(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("The quick, brown FOX jumps over the lazy dog!")
	want := []string{"quick", "brown", "fox", "jumps", "over", "lazy", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize: got %v, want %v", got, want)
	}

	if got := Tokenize("the and of to"); len(got) != 0 {
		t.Errorf("stopwords only should tokenize to nothing, got %v", got)
	}

	got = Tokenize("机器学习 podcast")
	if len(got) != 2 || got[1] != "podcast" {
		t.Errorf("CJK text should survive tokenization, got %v", got)
	}
}

func TestWriteJSONNoHTMLEscape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, 200, map[string]string{"url": "https://example.com/feed?a=1&b=2"})
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type: %q", ct)
	}
	if strings.Contains(rec.Body.String(), `\u0026`) {
		t.Errorf("ampersand should stay literal, got: %s", rec.Body.String())
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("body not json: %v", err)
	}
	if got["url"] != "https://example.com/feed?a=1&b=2" {
		t.Errorf("url round-trip: %q", got["url"])
	}
}

func TestNewEpisodeID(t *testing.T) {
	a, b := NewEpisodeID(), NewEpisodeID()
	if !strings.HasPrefix(a, "episode_") {
		t.Errorf("id prefix: %q", a)
	}
	if a == b {
		t.Error("ids should be unique")
	}
}
