package model

// AnswerSource describes one retrieved excerpt that contributed to an answer.
type AnswerSource struct {
	// Text is a preview of the excerpt, truncated for transport.
	Text string `json:"text"`
	// Score is the similarity score of the excerpt.
	Score float32 `json:"score"`
	// HasImages reports whether the excerpt carried image payloads.
	HasImages bool `json:"has_images"`
}

// ContextSnippet is one retrieved chunk returned by the raw context endpoint.
type ContextSnippet struct {
	// Text is the full chunk content.
	Text string `json:"text"`
	// Score is the similarity score against the query.
	Score float32 `json:"score"`
	// Images carries the base64 image payloads stored with the chunk.
	Images []any `json:"images,omitempty"`
}

// QueryResult is the outcome of an agent query.
type QueryResult struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Sources lists the excerpts the answer was grounded on.
	Sources []AnswerSource `json:"sources,omitempty"`
	// Metadata carries agent and model attribution.
	Metadata map[string]any `json:"metadata,omitempty"`
}
