package attributor

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const assistSystem = `You read an excerpt from a court document that ends just before a legal citation. Reply with only the case name of the decision being cited (for example "Carlson v. Global Client Solutions, LLC"), exactly as it appears in the excerpt. Reply with only "N/A" if no case name for that citation appears in the excerpt. Never invent a name.`

// Assist is the optional LLM-backed last-resort name extractor. It is off
// unless configured; when active it only runs after the regex cascade has
// returned N/A, and its output goes through the same validity and
// contamination gates as every other strategy.
type Assist struct {
	client sdk.Client
	model  string
}

// NewAssist creates the LLM assist stage.
func NewAssist(apiKey, modelID string) *Assist {
	return &Assist{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  modelID,
	}
}

// SuggestName implements Suggester.
func (a *Assist) SuggestName(ctx context.Context, contextText, citation string) (string, error) {
	prompt := "Excerpt:\n" + contextText + "\n\nCitation: " + citation

	msg, err := a.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(a.model),
		MaxTokens: 64,
		System:    []sdk.TextBlockParam{{Text: assistSystem}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	})
	if err != nil {
		return "", eris.Wrap(err, "assist: create message")
	}

	var out strings.Builder
	for _, block := range msg.Content {
		out.WriteString(block.Text)
	}
	return strings.TrimSpace(out.String()), nil
}
