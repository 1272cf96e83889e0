package echoes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pbaille/echoes/internal/domain"
	"github.com/pbaille/echoes/internal/ids"
	"github.com/pbaille/echoes/internal/logging"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "claude-sonnet-4-20250514"

type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, mostly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

// Anthropic asks a Claude model for echoes
type Anthropic struct {
	client anthropic.Client
	model  string
	seq    *ids.Sequence
	log    logging.Logger
}

// New creates an Anthropic provider. It returns ErrNoAPIKey when cfg has no key.
func New(cfg Config, log logging.Logger) (*Anthropic, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if log == nil {
		log = logging.Discard()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
		seq:    ids.NewSequence(time.Now),
		log:    log,
	}, nil
}

// Echoes analyzes entryText, using pastThemes to favor recurring threads.
func (a *Anthropic) Echoes(ctx context.Context, entryText, pastThemes string) ([]domain.Echo, error) {
	start := time.Now()
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(entryText, pastThemes))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response")
	}

	echoes, err := parseResponse(text.String())
	if err != nil {
		return nil, err
	}
	for i := range echoes {
		echoes[i].ID = a.seq.Next()
	}

	a.log.Debug(ctx, "found echoes", "count", len(echoes), "took", time.Since(start))
	return echoes, nil
}

func buildPrompt(entryText, pastThemes string) string {
	var sb strings.Builder

	sb.WriteString("You are a historical archivist connecting a person's life to the timeline of history.\n")
	sb.WriteString(fmt.Sprintf("Find up to %d historical echoes (diary entries, poems, events, quotes) ", MaxEchoes))
	sb.WriteString("that resonate with the new diary entry below. Make them diverse in era and culture.\n\n")

	if strings.TrimSpace(pastThemes) != "" {
		sb.WriteString("Themes from the writer's past entries (look for familiar moments that deepen a recurring theme):\n")
		sb.WriteString(pastThemes)
		sb.WriteString("\n\n")
	}

	sb.WriteString("New diary entry:\n")
	sb.WriteString(entryText)
	sb.WriteString("\n\n")

	sb.WriteString(`Return a JSON array with objects of this structure:
[
  {
    "type": "poetry | diary | event | quote",
    "era": "1690s Edo Period",
    "author": "person or group",
    "text": "short representative quote or summary",
    "context": "brief historical significance",
    "location": "where it took place",
    "theme": "the bittersweetness of memory",
    "icon": "a single emoji",
    "connection": "one sentence on why this echoes the entry",
    "triggeringKeywords": ["exact words", "from the entry"]
  }
]

Rules:
- "theme" is a 2-4 word phrase capturing the emotional core, never a single word
- "connection" must not be empty
- "triggeringKeywords" quote words or short phrases exactly as written in the entry
- Return an empty array when nothing resonates

Return ONLY the JSON, no other text.`)

	return sb.String()
}

func parseResponse(resp string) ([]domain.Echo, error) {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var echoes []domain.Echo
	if err := json.Unmarshal([]byte(resp), &echoes); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}
	if echoes == nil {
		echoes = []domain.Echo{}
	}
	if len(echoes) > MaxEchoes {
		echoes = echoes[:MaxEchoes]
	}
	return echoes, nil
}
