// Package cluster removes duplicate and overlapping citation spans, groups
// parallel citations of the same case, and finalizes cluster display data
// after verification.
package cluster

import (
	"sort"
	"strings"

	"github.com/lexlens/citelink/internal/model"
	"github.com/lexlens/citelink/internal/normalize"
)

// Key returns the normalized comparison form used for exact-duplicate
// detection: case-insensitive and space-free but reporter-preserving.
// "Wn.2d" and "Wash.2d" fold to different keys on purpose — they denote
// potentially distinct reporters in the verification index and must never
// merge with each other.
func Key(text string) string {
	return strings.ReplaceAll(strings.ToLower(normalize.Flatten(text)), " ", "")
}

// Dedupe removes overlapping and exactly-duplicated citations. Input must
// already be sorted by (start, -end), which is how the locator emits spans.
func Dedupe(citations []model.Citation) []model.Citation {
	citations = removeOverlaps(citations)
	return removeExactDuplicates(citations)
}

// removeOverlaps drops the weaker of two range-intersecting citations unless
// at least one of the pair is a multi-citation parallel grouping, which
// legitimately covers its members.
func removeOverlaps(citations []model.Citation) []model.Citation {
	sort.SliceStable(citations, func(i, j int) bool {
		if citations[i].Span.Start != citations[j].Span.Start {
			return citations[i].Span.Start < citations[j].Span.Start
		}
		return citations[i].Span.End > citations[j].Span.End
	})

	dropped := make([]bool, len(citations))
	for i := range citations {
		if dropped[i] {
			continue
		}
		for j := i + 1; j < len(citations); j++ {
			if dropped[j] {
				continue
			}
			if citations[j].Span.Start >= citations[i].Span.End {
				break
			}
			if isParallelGrouping(citations[i]) || isParallelGrouping(citations[j]) {
				continue
			}
			// Keep the higher-confidence span; ties go to the earlier
			// (higher-priority) one.
			if citations[j].Span.Confidence > citations[i].Span.Confidence {
				dropped[i] = true
				break
			}
			dropped[j] = true
		}
	}

	out := citations[:0]
	for i, c := range citations {
		if !dropped[i] {
			out = append(out, c)
		}
	}
	return out
}

func isParallelGrouping(c model.Citation) bool {
	return c.Span.IsParallelGroup || strings.Contains(c.Span.Text, ",")
}

// removeExactDuplicates keys citations by their comparison form and keeps
// the best representative: higher span confidence, then longer extracted
// name, then longer extracted date.
func removeExactDuplicates(citations []model.Citation) []model.Citation {
	best := make(map[string]int, len(citations))
	keep := make([]bool, len(citations))

	for i, c := range citations {
		k := Key(c.Span.Text)
		prev, seen := best[k]
		if !seen {
			best[k] = i
			keep[i] = true
			continue
		}
		if better(c, citations[prev]) {
			keep[prev] = false
			keep[i] = true
			best[k] = i
		}
	}

	out := citations[:0]
	for i, c := range citations {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

func better(a, b model.Citation) bool {
	if a.Span.Confidence != b.Span.Confidence {
		return a.Span.Confidence > b.Span.Confidence
	}
	an, bn := nameLen(a), nameLen(b)
	if an != bn {
		return an > bn
	}
	return dateLen(a) > dateLen(b)
}

func nameLen(c model.Citation) int {
	if !c.Attribution.Found() {
		return 0
	}
	return len(c.Attribution.CaseName)
}

func dateLen(c model.Citation) int {
	if c.Attribution.Year == model.NotAvailable {
		return 0
	}
	return len(c.Attribution.Year)
}
