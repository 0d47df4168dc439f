package interpret

import (
	"context"
	"encoding/json"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const systemPrompt = `You summarize municipal parking regulations for drivers.
Given the raw posted fields of one regulation, reply with a JSON object:
{"summary": "<one plain-English sentence>", "confidence": <0.0-1.0>}.
Reply with the JSON object only.`

// AnthropicAnnotator implements Annotator against the Anthropic API, rate
// limited so bulk cache warming stays inside API quotas.
type AnthropicAnnotator struct {
	client  sdk.Client
	model   string
	limiter *rate.Limiter
}

// NewAnthropicAnnotator creates an annotator using the given API key and
// model, limited to rps requests per second.
func NewAnthropicAnnotator(apiKey, model string, rps float64) *AnthropicAnnotator {
	if rps <= 0 {
		rps = 1
	}
	return &AnthropicAnnotator{
		client:  sdk.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Interpret implements Annotator.
func (a *AnthropicAnnotator) Interpret(ctx context.Context, req Request) (*Interpretation, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "interpret: rate limit wait")
	}

	var sb strings.Builder
	sb.WriteString("Regulation: " + req.Description)
	if req.Days != "" {
		sb.WriteString("\nDays: " + req.Days)
	}
	if req.Hours != "" {
		sb.WriteString("\nHours: " + req.Hours)
	}
	if req.PermitZone != "" {
		sb.WriteString("\nPermit zone: " + req.PermitZone)
	}

	msg, err := a.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(a.model),
		MaxTokens: 256,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(sb.String())),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "interpret: create message")
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	var in Interpretation
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &in); err != nil {
		return nil, eris.Wrapf(err, "interpret: parse annotator reply %q", text)
	}
	if in.Summary == "" {
		return nil, eris.New("interpret: empty summary")
	}
	return &in, nil
}
