package types

import (
	"time"
)

// PostStub is a minimal listing-derived record identifying a thread
// before its content has been fetched.
type PostStub struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	TopicID string `json:"topic_id"`
	Author  string `json:"author"`
}

// UnknownAuthor is the sentinel used when no usable author name can be
// extracted from a listing row.
const UnknownAuthor = "未知用户"

// ClassificationResult is the normalized output of one classification call.
// After normalization Categories holds at most one element.
type ClassificationResult struct {
	Categories []string `json:"categories"`
	Keywords   []string `json:"keywords"`
	Confidence float64  `json:"confidence"`
}

// Category returns the single assigned category, or "" when unclassified.
func (r ClassificationResult) Category() string {
	if len(r.Categories) == 0 {
		return ""
	}
	return r.Categories[0]
}

// ClassifiedPost is a PostStub enriched with fetched content and a
// classification. Created once by the crawler, immutable afterwards.
type ClassifiedPost struct {
	PostStub
	Content        string               `json:"content"`
	Classification ClassificationResult `json:"classification"`
	ProcessedAt    time.Time            `json:"processed_at"`
	Error          string               `json:"error,omitempty"`
}

// Statistics is a pure reduction of a ClassifiedPost list. It carries no
// identity of its own and is recomputed from scratch each run.
type Statistics struct {
	TotalPosts int            `json:"total_posts"`
	Categories map[string]int `json:"categories"`
	Keywords   map[string]int `json:"keywords"`
	Authors    map[string]int `json:"authors"`
	Summary    Summary        `json:"summary"`
}

// Summary holds the headline figures derived from the count maps.
type Summary struct {
	MostCommonCategory string  `json:"most_common_category,omitempty"`
	MostCommonKeyword  string  `json:"most_common_keyword,omitempty"`
	MostActiveAuthor   string  `json:"most_active_author,omitempty"`
	ClassificationRate float64 `json:"classification_rate"`
}

// Report is the full run output handed to writers. Consumers must accept
// additive fields.
type Report struct {
	Posts       []ClassifiedPost `json:"posts"`
	Statistics  Statistics       `json:"statistics"`
	GeneratedAt time.Time        `json:"generated_at"`
}
