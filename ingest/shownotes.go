package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// ShowNotes is the readable text extracted from an episode's web page.
type ShowNotes struct {
	Title string
	Text  string
}

// FetchShowNotes downloads an episode page and extracts its readable text
// with readability, falling back to goquery selectors for the title.
func FetchShowNotes(ctx context.Context, pageURL string) (*ShowNotes, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch episode page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch episode page: http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	return ExtractShowNotes(string(body))
}

// ExtractShowNotes pulls title and main text out of raw episode page HTML.
func ExtractShowNotes(htmlContent string) (*ShowNotes, error) {
	notes := &ShowNotes{}

	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		notes.Title = strings.TrimSpace(article.Title)
		notes.Text = strings.TrimSpace(article.TextContent)
	}

	if notes.Title == "" {
		if title, err := extractTitleFallback(htmlContent); err == nil {
			notes.Title = title
		}
	}
	if notes.Text == "" {
		return nil, fmt.Errorf("no readable text found in episode page")
	}
	return notes, nil
}

func extractTitleFallback(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title, nil
	}
	if title, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title), nil
	}
	return "", fmt.Errorf("no title found")
}
