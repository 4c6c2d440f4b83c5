package types

import "time"

// FAQRecord is one stored question/answer pair.
type FAQRecord struct {
	ID       int64  `json:"id,omitempty" yaml:"-"`
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// RankedResult is a scored FAQ entry produced for a single query.
type RankedResult struct {
	ID              int64   `json:"id,omitempty"`
	Question        string  `json:"question"`
	Answer          string  `json:"answer"`
	SimilarityScore float64 `json:"similarity_score"`
}

// SearchResponse is the JSON envelope printed by the CLI.
type SearchResponse struct {
	Query   string         `json:"query"`
	TopK    int            `json:"top_k"`
	Results []RankedResult `json:"results"`
}

// SearchLog captures one search handled by the service.
type SearchLog struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	TopK        int       `json:"top_k"`
	Results     int       `json:"results"`
	TopQuestion string    `json:"top_question,omitempty"`
	Success     bool      `json:"success"`
	ErrorText   string    `json:"error_text,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
