package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexlens/citelink/internal/attributor"
	"github.com/lexlens/citelink/internal/config"
	"github.com/lexlens/citelink/internal/locator"
	"github.com/lexlens/citelink/internal/model"
)

const sampleBrief = `IN THE SUPREME COURT OF WASHINGTON

GOPHER MEDIA LLC, Appellant, v. STEVEN MELONE, Respondent.

No. 84352-1

The standard of review is settled. State v. Smith, 148 Wn.2d
224, 59 P.3d 611 (2002). A trial court abuses its discretion when its
decision rests on untenable grounds. In re Marriage of Littlefield, 133
Wn.2d 39, 46 (1997). The earlier rule appears at Carlson v. Glanz, 142
Wash.2d 315, 8 P.2d 1094 (1932).`

func newTestPipeline() *Pipeline {
	cfg := &config.Config{}
	loc := locator.New(locator.MustDefaultPatterns(), nil)
	return New(cfg, loc, attributor.New(nil), nil, nil)
}

func TestProcessEndToEnd(t *testing.T) {
	p := newTestPipeline()

	result, err := p.Process(context.Background(), sampleBrief)
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)

	byText := map[string]model.Citation{}
	for _, c := range result.Citations {
		byText[c.Span.Text] = c
	}

	smith, ok := byText["148 Wn.2d 224"]
	require.True(t, ok, "found citations: %v", keys(byText))
	assert.Equal(t, "State v. Smith", smith.Attribution.CaseName)
	assert.Equal(t, "2002", smith.Attribution.Year)
	assert.Equal(t, model.VerifiedFalse, smith.Canonical.Verified)

	carlson, ok := byText["142 Wash.2d 315"]
	require.True(t, ok)
	assert.Equal(t, "Carlson v. Glanz", carlson.Attribution.CaseName)

	// The Washington and Pacific cites of Smith cluster together.
	require.NotEmpty(t, result.Clusters)
	assert.Equal(t, smith.ClusterID, byText["59 P.3d 611"].ClusterID)

	assert.Contains(t, result.PrimaryCaseName, "GOPHER MEDIA")
}

func TestProcessCommaAnchoredAbbreviatedParties(t *testing.T) {
	p := newTestPipeline()

	text := "Carlson v. Glob. Client Sols., LLC, 171 Wn.2d 486, 493, 256 P.3d 321 (2011)."
	result, err := p.Process(context.Background(), text)
	require.NoError(t, err)

	byText := map[string]model.Citation{}
	for _, c := range result.Citations {
		byText[c.Span.Text] = c
	}

	lead, ok := byText["171 Wn.2d 486"]
	require.True(t, ok, "found citations: %v", keys(byText))
	assert.Equal(t, "Carlson v. Glob. Client Sols., LLC", lead.Attribution.CaseName)
	assert.Equal(t, "2011", lead.Attribution.Year)

	pacific, ok := byText["256 P.3d 321"]
	require.True(t, ok)
	require.NotEmpty(t, lead.ClusterID)
	assert.Equal(t, lead.ClusterID, pacific.ClusterID)
}

func TestProcessHeaderLineBeforeCitation(t *testing.T) {
	p := newTestPipeline()

	text := "SUPREME COURT OF WASHINGTON\n148 Wn.2d 224 (2002)."
	result, err := p.Process(context.Background(), text)
	require.NoError(t, err)

	require.NotEmpty(t, result.Citations)
	for _, c := range result.Citations {
		assert.NotContains(t, c.Attribution.CaseName, "SUPREME")
		assert.NotContains(t, c.Attribution.CaseName, "WASHINGTON")
	}
}

func TestProcessRejectsEmptyDocument(t *testing.T) {
	p := newTestPipeline()
	_, err := p.Process(context.Background(), "")
	assert.Error(t, err)
}

func TestProcessDeterministicClusterIDs(t *testing.T) {
	p := newTestPipeline()

	first, err := p.Process(context.Background(), sampleBrief)
	require.NoError(t, err)
	second, err := p.Process(context.Background(), sampleBrief)
	require.NoError(t, err)

	require.Equal(t, len(first.Clusters), len(second.Clusters))
	for i := range first.Clusters {
		assert.Equal(t, first.Clusters[i].ID, second.Clusters[i].ID)
		assert.Equal(t, first.Clusters[i].Members, second.Clusters[i].Members)
	}

	// Citation lists are byte-for-byte stable too; only RunID differs.
	require.Equal(t, len(first.Citations), len(second.Citations))
	for i := range first.Citations {
		assert.Equal(t, first.Citations[i], second.Citations[i])
	}
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestProcessCaptionNeverAttributed(t *testing.T) {
	p := newTestPipeline()

	result, err := p.Process(context.Background(), sampleBrief)
	require.NoError(t, err)

	for _, c := range result.Citations {
		if c.Attribution.Found() {
			assert.NotContains(t, c.Attribution.CaseName, "GOPHER",
				"citation %s took the document's own caption", c.Span.Text)
		}
	}
}

func keys(m map[string]model.Citation) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
