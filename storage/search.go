package storage

import (
	"strings"

	"podcastSearch/core"
)

// Search strategies. Semantic is whatever the backend's vector search does;
// keyword over-fetches semantically and keeps only hits containing a query
// term; hybrid merges semantic-first with keyword fill.
const (
	StrategySemantic = "semantic"
	StrategyKeyword  = "keyword"
	StrategyHybrid   = "hybrid"
)

// StrategyDescriptions feed the search-strategies endpoint.
var StrategyDescriptions = map[string]string{
	StrategySemantic: "Best for conceptual questions and understanding context",
	StrategyKeyword:  "Best for finding specific terms and exact matches",
	StrategyHybrid:   "Combines semantic understanding with keyword precision",
}

// SearchWithStrategy runs retrieval with the named strategy. Unknown
// strategies fall back to semantic.
func SearchWithStrategy(s VectorStore, query string, topK int, strategy, episodeID string) []core.Hit {
	if topK <= 0 {
		topK = 5
	}
	switch strategy {
	case StrategyKeyword:
		return keywordSearch(s, query, topK, episodeID)
	case StrategyHybrid:
		return hybridSearch(s, query, topK, episodeID)
	default:
		return s.Search(query, topK, episodeID)
	}
}

func keywordSearch(s VectorStore, query string, topK int, episodeID string) []core.Hit {
	// Over-fetch, then keep only hits that contain at least one query term.
	candidates := s.Search(query, topK*2, episodeID)
	terms := strings.Fields(strings.ToLower(query))

	filtered := make([]core.Hit, 0, topK)
	for _, h := range candidates {
		lower := strings.ToLower(h.Text)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				filtered = append(filtered, h)
				break
			}
		}
		if len(filtered) >= topK {
			break
		}
	}
	return filtered
}

func hybridSearch(s VectorStore, query string, topK int, episodeID string) []core.Hit {
	semantic := s.Search(query, topK, episodeID)
	keyword := keywordSearch(s, query, topK, episodeID)

	seen := make(map[string]struct{}, topK)
	combined := make([]core.Hit, 0, topK)

	// Semantic hits first, keyword hits fill the remainder.
	for _, h := range semantic {
		k := hitKey(h)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		combined = append(combined, h)
	}
	for _, h := range keyword {
		if len(combined) >= topK {
			break
		}
		k := hitKey(h)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		combined = append(combined, h)
	}
	if len(combined) > topK {
		combined = combined[:topK]
	}
	return combined
}

func hitKey(h core.Hit) string {
	return h.EpisodeID + "|" + core.FormatTime(h.Start) + "|" + h.Speaker
}

// RecommendStrategy suggests a strategy for a query: question words lean
// semantic, exact-match words lean keyword, otherwise hybrid.
func RecommendStrategy(query string) string {
	lower := strings.ToLower(query)

	semanticKeywords := []string{"how", "why", "what", "explain", "describe", "discuss", "analyze"}
	keywordKeywords := []string{"specific", "exact", "precise", "term", "phrase"}

	semanticScore := 0
	for _, w := range semanticKeywords {
		if strings.Contains(lower, w) {
			semanticScore++
		}
	}
	keywordScore := 0
	for _, w := range keywordKeywords {
		if strings.Contains(lower, w) {
			keywordScore++
		}
	}

	switch {
	case semanticScore > keywordScore:
		return StrategySemantic
	case keywordScore > semanticScore:
		return StrategyKeyword
	default:
		return StrategyHybrid
	}
}
