package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"localesync/internal/errors"
	"localesync/internal/locale"
)

const defaultLibreURL = "http://localhost:5000"

// LibreConfig configures a LibreTranslate-compatible endpoint
type LibreConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Libre calls the LibreTranslate HTTP API
type Libre struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewLibre(cfg LibreConfig) *Libre {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultLibreURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Libre{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (l *Libre) Name() string { return "libre" }

type libreRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
	APIKey string   `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText []string `json:"translatedText"`
	Error          string   `json:"error"`
}

type libreLanguage struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Targets []string `json:"targets"`
}

func (l *Libre) TranslateBatch(ctx context.Context, values []string, source, target string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(libreRequest{
		Q:      values,
		Source: locale.Base(source),
		Target: locale.Base(target),
		Format: "text",
		APIKey: l.apiKey,
	})
	if err != nil {
		return nil, errors.ProviderFailure(l.Name(), fmt.Errorf("marshaling request: %w", err))
	}

	var resp libreResponse
	if err := l.do(ctx, http.MethodPost, "/translate", body, &resp); err != nil {
		return nil, errors.ProviderFailure(l.Name(), err)
	}
	if resp.Error != "" {
		return nil, errors.ProviderFailure(l.Name(), fmt.Errorf("%s", resp.Error))
	}
	if err := checkCount(resp.TranslatedText, len(values)); err != nil {
		return nil, errors.ProviderFailure(l.Name(), err)
	}
	return resp.TranslatedText, nil
}

// SupportedLanguages returns the language codes the server knows
func (l *Libre) SupportedLanguages(ctx context.Context) ([]string, error) {
	var langs []libreLanguage
	if err := l.do(ctx, http.MethodGet, "/languages", nil, &langs); err != nil {
		return nil, errors.ProviderFailure(l.Name(), err)
	}

	codes := make([]string, 0, len(langs))
	for _, lang := range langs {
		codes = append(codes, lang.Code)
	}
	return codes, nil
}

func (l *Libre) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, l.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr libreResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
