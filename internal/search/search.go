package search

import "context"

// ComplaintRecord is the data indexed per complaint.
type ComplaintRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	ZoneID      string `json:"zoneId"`
}

// Query describes a search request.
type Query struct {
	Text  string
	Limit int
}

// Fallback answers searches when the index is unavailable. Implementations
// return matching complaint IDs, newest first.
type Fallback interface {
	SearchIDs(ctx context.Context, text string, limit int) ([]string, error)
}
