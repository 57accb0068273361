package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedItem is one podcast episode advertised in an RSS/Atom feed.
type FeedItem struct {
	Title     string
	AudioURL  string
	PageURL   string
	Published time.Time
}

// FeedIngestor pulls episodes from podcast RSS feeds: parse the feed, pick
// items with audio enclosures, download the enclosures for processing.
type FeedIngestor struct {
	parser *gofeed.Parser
	client *http.Client
}

func NewFeedIngestor() *FeedIngestor {
	return &FeedIngestor{
		parser: gofeed.NewParser(),
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Fetch parses the feed and returns up to limit items carrying an audio
// enclosure (limit <= 0 means all).
func (f *FeedIngestor) Fetch(ctx context.Context, feedURL string, limit int) ([]FeedItem, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}
	if feed == nil || len(feed.Items) == 0 {
		return nil, fmt.Errorf("feed contains no items")
	}

	items := make([]FeedItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		audioURL := enclosureAudioURL(item)
		if audioURL == "" {
			continue
		}
		fi := FeedItem{
			Title:    strings.TrimSpace(item.Title),
			AudioURL: audioURL,
			PageURL:  item.Link,
		}
		if item.PublishedParsed != nil {
			fi.Published = *item.PublishedParsed
		}
		items = append(items, fi)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no audio enclosures found in feed")
	}
	return items, nil
}

func enclosureAudioURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "audio/") || hasAudioExt(enc.URL) {
			return enc.URL
		}
	}
	return ""
}

func hasAudioExt(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".mp3", ".wav", ".m4a", ".flac", ".ogg":
		return true
	}
	return false
}

// Download fetches the enclosure into destDir and returns the local path.
func (f *FeedIngestor) Download(ctx context.Context, audioURL, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download enclosure: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download enclosure: http %d", resp.StatusCode)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}
	u, _ := url.Parse(audioURL)
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "episode.mp3"
	}
	dest := filepath.Join(destDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("write enclosure: %w", err)
	}
	return dest, nil
}
