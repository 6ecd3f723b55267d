package models

// Chunk is a retrieved unit of source text with an identity and a
// similarity score. SourceQuery records which facet query surfaced it.
type Chunk struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
	SourceQuery string  `json:"source_query,omitempty"`
}
