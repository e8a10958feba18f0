// Package summarizer produces an optional AI digest of a run. Absence of
// the service is a configuration state: callers inject Nop when no API key
// is available.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const promptTemplate = `You are the "TrendWatch Sentinel," a quantitative trading assistant for a financial engineer.
Your goal is to strip away noise and deliver a high-signal, blunt summary of semiconductor and macro market changes.

**Rules:**
1. **Be Blunt:** No pleasantries. State the data.
2. **Focus on Change:** Only comment on indicators that have updated or breached a threshold.
3. **Format for Pushover:** Use concise bullet points, emojis for trend direction, and keep the total length under 150 words.

**Input Data:**
The following indicators have updated since the last run:

%s

**Triggered Signal Status:**
%s

**Task:**
Draft a push notification summary.
- If nothing significant changed, reply only with "No significant signal updates."
- If there are updates, lead with a 3-4 word headline summarizing the regime, then bullet the breaches and flows.`

// Summarizer condenses a run's updates and triggers into a short digest.
// An empty digest with a nil error means there was nothing to summarize.
type Summarizer interface {
	Summarize(ctx context.Context, updated, triggered []string) (string, error)
}

// Nop is the injected implementation when no AI service is configured.
type Nop struct{}

// Summarize always reports nothing to say.
func (Nop) Summarize(context.Context, []string, []string) (string, error) {
	return "", nil
}

// GeminiOptions parameterise the Gemini-backed summarizer.
type GeminiOptions struct {
	APIKey  string
	Models  []string
	Timeout time.Duration
}

// Gemini generates digests with the Gemini API, falling through an ordered
// model list when a model's quota is exhausted.
type Gemini struct {
	opts   GeminiOptions
	logger zerolog.Logger
	client *genai.Client
}

// NewGemini constructs the Gemini summarizer.
func NewGemini(ctx context.Context, opts GeminiOptions, logger zerolog.Logger) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if len(opts.Models) == 0 {
		opts.Models = []string{"gemini-2.0-flash", "gemini-2.0-flash-lite", "gemini-2.5-flash"}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize genai client: %w", err)
	}

	return &Gemini{
		opts:   opts,
		logger: logger.With().Str("component", "summarizer").Logger(),
		client: client,
	}, nil
}

// Summarize renders the prompt and walks the model list until one answers.
// Quota errors fall through to the next model; any other failure returns an
// error the caller is expected to log and ignore.
func (g *Gemini) Summarize(ctx context.Context, updated, triggered []string) (string, error) {
	if len(updated) == 0 && len(triggered) == 0 {
		return "", nil
	}

	prompt := fmt.Sprintf(promptTemplate, formatList(updated), formatList(triggered))
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	var lastErr error
	for _, model := range g.opts.Models {
		resp, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
		if err != nil {
			if isQuotaError(err) {
				g.logger.Warn().Str("model", model).Msg("model quota exceeded, trying next model")
				lastErr = err
				continue
			}
			return "", fmt.Errorf("generate summary with %s: %w", model, err)
		}

		text := extractText(resp)
		if text == "" {
			lastErr = fmt.Errorf("model %s returned no text", model)
			continue
		}

		g.logger.Info().Str("model", model).Msg("summary generated")
		return text, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("all summary models exhausted: %w", lastErr)
	}
	return "", nil
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, "\n")
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "quota")
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var out strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				out.WriteString(part.Text)
			}
		}
		if out.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(out.String())
}

var (
	_ Summarizer = (*Gemini)(nil)
	_ Summarizer = Nop{}
)
