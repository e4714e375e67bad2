package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"localesync/internal/errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const claudeSystemPrompt = `You are a professional translator localizing UI strings for a software application.
- Translate for naturalness and fluency in the target language, not word for word.
- Keep placeholders such as {{name}}, {count}, %s and HTML tags exactly as they are.
- Keep leading and trailing whitespace and punctuation style.
- Return ONLY a JSON array of translated strings, one for each input entry, in the same order.`

// ClaudeConfig configures the Anthropic Messages API provider
type ClaudeConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"max_tokens"`
}

// Claude translates with an Anthropic model
type Claude struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewClaude(cfg ClaudeConfig) *Claude {
	opts := []option.RequestOption{option.WithMaxRetries(2)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &Claude{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *Claude) Name() string { return "claude" }

func (c *Claude) TranslateBatch(ctx context.Context, values []string, source, target string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: claudeSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(values, source, target))),
		},
	})
	if err != nil {
		return nil, errors.ProviderFailure(c.Name(), err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	out, err := parseTranslations(text.String())
	if err != nil {
		return nil, errors.ProviderFailure(c.Name(), err)
	}
	if err := checkCount(out, len(values)); err != nil {
		return nil, errors.ProviderFailure(c.Name(), err)
	}
	return out, nil
}

func userPrompt(values []string, source, target string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate these UI strings from %s to %s:\n\n", languageName(source), languageName(target))
	for i, v := range values {
		quoted, _ := json.Marshal(v)
		fmt.Fprintf(&b, "%d. %s\n", i+1, quoted)
	}
	fmt.Fprintf(&b, "\nReturn a JSON array with exactly %d translated strings.", len(values))
	return b.String()
}

// languageName renders a locale for a prompt, e.g. "French (fr)"
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return code
	}
	return fmt.Sprintf("%s (%s)", name, code)
}

// parseTranslations pulls the JSON array out of a model reply, tolerating
// code fences and surrounding prose.
func parseTranslations(content string) ([]string, error) {
	content = strings.TrimSpace(content)

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response: %.200s", content)
	}

	var out []string
	if err := json.Unmarshal([]byte(content[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("parsing translation response as JSON array: %w", err)
	}
	return out, nil
}
