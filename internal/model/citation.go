// Package model defines the data types shared across the citation
// extraction pipeline.
package model

import "strings"

// NotAvailable is the explicit sentinel for "no value extracted". Extraction
// misses are expected outcomes, not errors, so every name/date field that
// came up empty carries this literal rather than an empty string.
const NotAvailable = "N/A"

// SourceMethod identifies which span-location strategy produced a span.
type SourceMethod string

const (
	SourcePatternLibrary SourceMethod = "pattern-library"
	SourceTokenizer      SourceMethod = "external-tokenizer"
	SourceBlockDerived   SourceMethod = "block-derived"
)

// AttributionMethod identifies which cascade strategy produced a case name.
type AttributionMethod string

const (
	MethodCommaAnchored  AttributionMethod = "comma-anchored"
	MethodPositionWindow AttributionMethod = "position-window"
	MethodContextPattern AttributionMethod = "context-pattern"
	MethodFallback       AttributionMethod = "fallback"
	MethodAssisted       AttributionMethod = "llm-assisted"
	MethodNone           AttributionMethod = "none"
)

// Verification states. Verified is deliberately a string, not a bool:
// members of a cluster that inherit canonical data from a verified sibling
// are marked "true_by_parallel" to distinguish them from independently
// confirmed citations.
const (
	VerifiedFalse      = "false"
	VerifiedTrue       = "true"
	VerifiedByParallel = "true_by_parallel"
)

// CitationSpan is a located citation candidate. Start and End are offsets
// into the whitespace-normalized document text and are immutable after
// location; everything else is filled in by later stages.
type CitationSpan struct {
	Text         string       `json:"text"`
	Start        int          `json:"start"`
	End          int          `json:"end"`
	SourceMethod SourceMethod `json:"source_method"`
	Confidence   float64      `json:"confidence"`

	// IsParallelGroup marks spans that themselves cover a comma-joined
	// run of parallel citations ("171 Wn.2d 486, 256 P.3d 321").
	IsParallelGroup bool `json:"is_parallel_group,omitempty"`
}

// Valid reports whether the span's offsets are coherent.
func (s CitationSpan) Valid() bool {
	return s.Start >= 0 && s.Start < s.End && s.Text != ""
}

// Attribution is the result of associating a span with a case name and year,
// derived only from document text — never from the verification service.
type Attribution struct {
	CaseName   string            `json:"extracted_case_name"`
	Year       string            `json:"extracted_date"`
	Method     AttributionMethod `json:"method"`
	Confidence float64           `json:"confidence"`
}

// EmptyAttribution returns the canonical miss: both fields N/A.
func EmptyAttribution() Attribution {
	return Attribution{CaseName: NotAvailable, Year: NotAvailable, Method: MethodNone}
}

// Found reports whether a case name was extracted.
func (a Attribution) Found() bool {
	return a.CaseName != "" && a.CaseName != NotAvailable
}

// CanonicalRecord holds externally verified case data. It is populated only
// when the lookup service explicitly reported success; never inferred from
// clustering alone, except via true_by_parallel propagation.
type CanonicalRecord struct {
	Name     string `json:"canonical_name,omitempty"`
	Date     string `json:"canonical_date,omitempty"`
	URL      string `json:"canonical_url,omitempty"`
	Verified string `json:"verified"`
	Source   string `json:"source,omitempty"`
}

// Confirmed reports whether the record was independently verified.
func (c CanonicalRecord) Confirmed() bool {
	return c.Verified == VerifiedTrue
}

// Usable reports whether canonical data may be displayed for this citation.
func (c CanonicalRecord) Usable() bool {
	return (c.Verified == VerifiedTrue || c.Verified == VerifiedByParallel) && c.Name != ""
}

// Citation is the assembled per-citation output record.
type Citation struct {
	Span        CitationSpan    `json:"span"`
	Attribution Attribution     `json:"attribution"`
	Canonical   CanonicalRecord `json:"canonical"`

	ClusterID      string   `json:"cluster_id,omitempty"`
	ClusterMembers []string `json:"cluster_members,omitempty"`
}

// DisplayName returns canonical name when verified (directly or by
// parallel propagation), else the extracted name, else N/A.
func (c Citation) DisplayName() string {
	if c.Canonical.Usable() {
		return c.Canonical.Name
	}
	if c.Attribution.Found() {
		return c.Attribution.CaseName
	}
	return NotAvailable
}

// DisplayDate mirrors DisplayName for the decision date.
func (c Citation) DisplayDate() string {
	if c.Canonical.Usable() && c.Canonical.Date != "" {
		return c.Canonical.Date
	}
	if c.Attribution.Year != "" && c.Attribution.Year != NotAvailable {
		return c.Attribution.Year
	}
	return NotAvailable
}

// Cluster is a set of citations believed to cite the same case in
// different reporters. Members are citation texts, not object references.
type Cluster struct {
	ID          string   `json:"cluster_id"`
	Members     []string `json:"members"`
	DisplayName string   `json:"display_name"`
	DisplayDate string   `json:"display_date"`
}

// Size returns the member count.
func (cl Cluster) Size() int { return len(cl.Members) }

// Contains reports whether the cluster holds the given citation text.
func (cl Cluster) Contains(text string) bool {
	for _, m := range cl.Members {
		if strings.EqualFold(m, text) {
			return true
		}
	}
	return false
}
