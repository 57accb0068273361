package core

import "time"

// Segment is a single timed unit of ASR output.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the persisted transcription of one episode.
type Transcript struct {
	EpisodeID string    `json:"episode_id"`
	Duration  float64   `json:"duration"`
	Text      string    `json:"text"`
	Segments  []Segment `json:"segments"`
}

// Chunk is a temporal window of transcript text with speaker attribution.
// Chunks are the unit of embedding and retrieval.
type Chunk struct {
	ID           string  `json:"id"`
	EpisodeID    string  `json:"episode_id"`
	EpisodeTitle string  `json:"episode_title"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Speaker      string  `json:"speaker"`
	Text         string  `json:"text"`
}

// Episode is the persisted metadata record for one processed episode.
type Episode struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	FileName    string    `json:"file_name"`
	Duration    float64   `json:"duration"`
	Chunks      int       `json:"chunks"`
	Speakers    int       `json:"speakers"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Hit is one retrieval result.
type Hit struct {
	Score        float64 `json:"score"`
	EpisodeID    string  `json:"episode_id"`
	EpisodeTitle string  `json:"episode_title"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Speaker      string  `json:"speaker"`
	Text         string  `json:"text"`
}

type QueryRequest struct {
	Question  string `json:"question"`
	TopK      int    `json:"top_k"`
	Strategy  string `json:"strategy"`
	Model     string `json:"model"`
	EpisodeID string `json:"episode_id,omitempty"`
}

type SearchInfo struct {
	Strategy     string `json:"strategy"`
	Model        string `json:"model,omitempty"`
	ResultsCount int    `json:"results_count"`
}

type QueryResponse struct {
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Hits       []Hit      `json:"hits"`
	SearchInfo SearchInfo `json:"search_info"`
}

type SearchResponse struct {
	Query      string     `json:"query"`
	Hits       []Hit      `json:"hits"`
	SearchInfo SearchInfo `json:"search_info"`
}

type IngestFeedRequest struct {
	FeedURL string `json:"feed_url"`
	Limit   int    `json:"limit"`
}

// Step reports the outcome of one pipeline stage.
type Step struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "completed", "failed", "skipped"
	Error  string `json:"error,omitempty"`
}

type ProcessEpisodeResponse struct {
	Episode  *Episode `json:"episode,omitempty"`
	Message  string   `json:"message"`
	Steps    []Step   `json:"steps"`
	Warnings []string `json:"warnings,omitempty"`
}

// StorageStats summarizes the persisted corpus.
type StorageStats struct {
	TotalEpisodes int       `json:"total_episodes"`
	TotalDuration float64   `json:"total_duration"`
	TotalChunks   int       `json:"total_chunks"`
	Episodes      []Episode `json:"episodes"`
	Capacity      string    `json:"capacity"`
	MaxEpisodes   int       `json:"max_episodes"`
}
