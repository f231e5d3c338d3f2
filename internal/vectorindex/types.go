package vectorindex

import (
	"time"
)

// Entry is the unit stored in the index: one summarized transaction
// with its embedding vector and the metadata needed to render context.
type Entry struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Embedding    []float32 `json:"embedding"`
	Amount       float64   `json:"amount"`
	Date         string    `json:"date"`
	Timestamp    time.Time `json:"timestamp"`
	Vendor       string    `json:"vendor"`
	Category     string    `json:"category"`
	Type         string    `json:"type"`
	LineItemsRaw string    `json:"line_items_raw"`
}

// Hit is one search result: a stored entry with its similarity score.
// Higher scores rank first.
type Hit struct {
	Entry Entry   `json:"entry"`
	Score float32 `json:"score"`
}

// timestampLayout is the persisted timestamp format
const timestampLayout = time.RFC3339

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}
