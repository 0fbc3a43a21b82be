package cluster

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lexlens/citelink/internal/model"
)

const (
	// maxParallelGap is the widest comma-joined separation between two
	// citations still treated as parallel.
	maxParallelGap = 100

	// tightGap needs no comma: adjacency that close is parallel on its own.
	tightGap = 10
)

// Group assigns cluster IDs to adjacent parallel citations. Parallel
// grouping spans themselves are containers, not members; only individual
// citations join clusters. Cluster IDs are deterministic (text-order index)
// so repeated runs over identical input produce identical output.
func Group(text string, citations []model.Citation) []model.Cluster {
	members := make([]*model.Citation, 0, len(citations))
	for i := range citations {
		if !citations[i].Span.IsParallelGroup {
			members = append(members, &citations[i])
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Span.Start < members[j].Span.Start
	})

	var clusters []model.Cluster
	var current []*model.Citation

	flush := func() {
		if len(current) < 2 {
			current = nil
			return
		}
		id := fmt.Sprintf("cluster-%03d", len(clusters)+1)
		cl := model.Cluster{ID: id}
		for _, m := range current {
			cl.Members = append(cl.Members, m.Span.Text)
		}
		// Each member's list holds the other members, so membership is
		// bidirectional by construction.
		for _, m := range current {
			m.ClusterID = id
			m.ClusterMembers = others(cl.Members, m.Span.Text)
		}
		clusters = append(clusters, cl)
		current = nil
	}

	for _, m := range members {
		if len(current) == 0 {
			current = append(current, m)
			continue
		}
		prev := current[len(current)-1]
		if isParallel(text, prev.Span, m.Span) {
			current = append(current, m)
			continue
		}
		flush()
		current = append(current, m)
	}
	flush()

	return clusters
}

// isParallel reports whether next continues prev's parallel run: a gap of at
// most 100 characters containing a comma, or tight adjacency within 10.
func isParallel(text string, prev, next model.CitationSpan) bool {
	gap := next.Start - prev.End
	if gap < 0 || gap > maxParallelGap {
		return false
	}
	if gap <= tightGap {
		return true
	}
	between := text[prev.End:next.Start]
	if !strings.Contains(between, ",") {
		return false
	}
	// A sentence boundary in the gap means a new citation context, comma or
	// not.
	return !strings.ContainsAny(between, ".;")
}

func others(all []string, self string) []string {
	out := make([]string, 0, len(all)-1)
	for _, m := range all {
		if m != self {
			out = append(out, m)
		}
	}
	return out
}

// Finalize fixes cluster display fields and propagates canonical data to
// parallel siblings. It must run after verification so propagation uses
// post-verification values. Extracted names and dates are never propagated
// between members: a wrong guess on one citation must not overwrite a
// correct extraction on its sibling.
func Finalize(citations []model.Citation, clusters []model.Cluster) {
	byText := make(map[string]*model.Citation, len(citations))
	for i := range citations {
		byText[citations[i].Span.Text] = &citations[i]
	}

	for ci := range clusters {
		cl := &clusters[ci]

		// Find an independently verified member to donate canonical data.
		var donor *model.Citation
		for _, text := range cl.Members {
			c := byText[text]
			if c != nil && c.Canonical.Confirmed() && c.Canonical.Name != "" {
				donor = c
				break
			}
		}

		if donor != nil {
			for _, text := range cl.Members {
				c := byText[text]
				if c == nil || c.Canonical.Confirmed() {
					continue
				}
				c.Canonical = model.CanonicalRecord{
					Name:     donor.Canonical.Name,
					Date:     donor.Canonical.Date,
					URL:      donor.Canonical.URL,
					Verified: model.VerifiedByParallel,
					Source:   donor.Canonical.Source,
				}
			}
		}

		cl.DisplayName, cl.DisplayDate = displayValues(cl, byText)
	}
}

// displayValues picks canonical data when any member is verified, else the
// highest-confidence extracted name and date, else N/A.
func displayValues(cl *model.Cluster, byText map[string]*model.Citation) (string, string) {
	name, date := model.NotAvailable, model.NotAvailable
	bestConf := -1.0
	for _, text := range cl.Members {
		c := byText[text]
		if c == nil {
			continue
		}
		if c.Canonical.Usable() {
			d := c.Canonical.Date
			if d == "" {
				d = model.NotAvailable
			}
			return c.Canonical.Name, d
		}
		if c.Attribution.Found() && c.Attribution.Confidence > bestConf {
			bestConf = c.Attribution.Confidence
			name = c.Attribution.CaseName
			if c.Attribution.Year != model.NotAvailable {
				date = c.Attribution.Year
			}
		}
	}
	return name, date
}
