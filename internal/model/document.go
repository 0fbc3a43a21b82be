package model

import "time"

// Document is the immutable per-document context threaded through every
// pipeline stage. PrimaryCaseName is computed once (the caption of the
// document itself) and read-only afterward; it feeds the contamination
// filter that stops the engine from attributing the document's own caption
// to citations of other cases.
type Document struct {
	// Text is the whitespace-normalized document text. All span offsets
	// refer to this string.
	Text string

	// OffsetMap maps each index of Text back to the corresponding index in
	// the original (pre-normalization) input, for callers that need to point
	// at the raw source. len(OffsetMap) == len(Text).
	OffsetMap []int

	// PrimaryCaseName is the document's own caption ("" when none detected).
	PrimaryCaseName string
}

// ExtractionResult is what the pipeline hands back to the calling layer:
// a complete citation list and cluster list, populated with explicit
// sentinels even under partial internal failures.
type ExtractionResult struct {
	RunID     string     `json:"run_id"`
	Citations []Citation `json:"citations"`
	Clusters  []Cluster  `json:"clusters"`

	PrimaryCaseName string    `json:"primary_case_name,omitempty"`
	VerifiedCount   int       `json:"verified_count"`
	ProcessedAt     time.Time `json:"processed_at"`
	Duration        int64     `json:"duration_ms"`
}

// RunSummary is the list-view projection of a stored extraction run.
type RunSummary struct {
	RunID         string    `json:"run_id"`
	CitationCount int       `json:"citation_count"`
	ClusterCount  int       `json:"cluster_count"`
	VerifiedCount int       `json:"verified_count"`
	ProcessedAt   time.Time `json:"processed_at"`
}
