package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"localesync/internal/cache"
	"localesync/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLibreServer(t *testing.T, dict map[string]string) (*httptest.Server, *[]libreRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []libreRequest

	mux := http.NewServeMux()
	mux.HandleFunc("POST /translate", func(w http.ResponseWriter, r *http.Request) {
		var req libreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		if req.Target == "xx" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "xx is not supported"})
			return
		}

		out := make([]string, len(req.Q))
		for i, q := range req.Q {
			out[i] = dict[q]
		}
		json.NewEncoder(w).Encode(map[string]any{"translatedText": out})
	})
	mux.HandleFunc("GET /languages", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]libreLanguage{
			{Code: "en", Name: "English"},
			{Code: "fr", Name: "French"},
			{Code: "pt", Name: "Portuguese"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestLibre_TranslateBatch(t *testing.T) {
	srv, requests := newLibreServer(t, map[string]string{"Cancel": "Annuler", "Save": "Enregistrer"})
	p := NewLibre(LibreConfig{BaseURL: srv.URL + "/", APIKey: "secret"})

	out, err := p.TranslateBatch(context.Background(), []string{"Cancel", "Save"}, "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"Annuler", "Enregistrer"}, out)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "en", req.Source)
	assert.Equal(t, "fr", req.Target)
	assert.Equal(t, "text", req.Format)
	assert.Equal(t, "secret", req.APIKey)
}

func TestLibre_RegionalLocale(t *testing.T) {
	srv, requests := newLibreServer(t, map[string]string{"Save": "Salvar"})
	p := NewLibre(LibreConfig{BaseURL: srv.URL})

	out, err := p.TranslateBatch(context.Background(), []string{"Save"}, "en-US", "pt-BR")
	require.NoError(t, err)
	assert.Equal(t, []string{"Salvar"}, out)
	assert.Equal(t, "pt", (*requests)[0].Target)
}

func TestLibre_Failure(t *testing.T) {
	srv, _ := newLibreServer(t, nil)
	p := NewLibre(LibreConfig{BaseURL: srv.URL})

	_, err := p.TranslateBatch(context.Background(), []string{"Save"}, "en", "xx")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeProviderFailure))
	assert.Contains(t, err.Error(), "xx is not supported")
}

func TestLibre_SupportedLanguages(t *testing.T) {
	srv, _ := newLibreServer(t, nil)
	p := NewLibre(LibreConfig{BaseURL: srv.URL})

	codes, err := p.SupportedLanguages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "fr", "pt"}, codes)

	ok, err := Supports(context.Background(), p, "pt-BR")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Supports(context.Background(), p, "de")
	require.NoError(t, err)
	assert.False(t, ok)
}

func newClaudeServer(t *testing.T, reply string, status int) (*httptest.Server, *string) {
	t.Helper()
	var prompt string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body struct {
			Messages []struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		prompt = body.Messages[0].Content[0].Text

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{
				"type":  "error",
				"error": map[string]string{"type": "invalid_request_error", "message": "bad request"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_01",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-haiku-4-5",
			"content":       []map[string]string{{"type": "text", "text": reply}},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]int{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &prompt
}

func TestClaude_TranslateBatch(t *testing.T) {
	srv, prompt := newClaudeServer(t, "Here you go:\n```json\n[\"Annuler\", \"Enregistrer\"]\n```", http.StatusOK)
	p := NewClaude(ClaudeConfig{APIKey: "test-key", BaseURL: srv.URL})

	out, err := p.TranslateBatch(context.Background(), []string{"Cancel", "Save"}, "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"Annuler", "Enregistrer"}, out)

	assert.Contains(t, *prompt, "from English (en) to French (fr)")
	assert.Contains(t, *prompt, `1. "Cancel"`)
	assert.Contains(t, *prompt, "exactly 2 translated strings")
}

func TestClaude_CountMismatch(t *testing.T) {
	srv, _ := newClaudeServer(t, `["Annuler"]`, http.StatusOK)
	p := NewClaude(ClaudeConfig{APIKey: "test-key", BaseURL: srv.URL})

	_, err := p.TranslateBatch(context.Background(), []string{"Cancel", "Save"}, "en", "fr")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeProviderFailure))
}

func TestClaude_APIError(t *testing.T) {
	srv, _ := newClaudeServer(t, "", http.StatusBadRequest)
	p := NewClaude(ClaudeConfig{APIKey: "test-key", BaseURL: srv.URL})

	_, err := p.TranslateBatch(context.Background(), []string{"Cancel"}, "en", "fr")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeProviderFailure))
}

func TestParseTranslations(t *testing.T) {
	out, err := parseTranslations(`["a", "b"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)

	_, err = parseTranslations("I cannot help with that")
	assert.Error(t, err)
}

type countingProvider struct {
	calls [][]string
}

func (p *countingProvider) Name() string { return "fake" }

func (p *countingProvider) TranslateBatch(_ context.Context, values []string, _, target string) ([]string, error) {
	p.calls = append(p.calls, values)
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = target + ":" + v
	}
	return out, nil
}

func TestCached_TranslateBatch(t *testing.T) {
	inner := &countingProvider{}
	strs, err := cache.New[string](cache.Options{})
	require.NoError(t, err)
	langs, err := cache.New[[]string](cache.Options{})
	require.NoError(t, err)

	p := NewCached(inner, strs, langs, CachedOptions{StringTTL: time.Hour})

	out, err := p.TranslateBatch(context.Background(), []string{"Save", "Cancel", "Save"}, "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"fr:Save", "fr:Cancel", "fr:Save"}, out)
	require.Len(t, inner.calls, 1)
	assert.Equal(t, []string{"Save", "Cancel"}, inner.calls[0])

	// Only the new string goes to the provider
	out, err = p.TranslateBatch(context.Background(), []string{"Cancel", "Back"}, "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"fr:Cancel", "fr:Back"}, out)
	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"Back"}, inner.calls[1])

	// Other target, separate entries
	_, err = p.TranslateBatch(context.Background(), []string{"Cancel"}, "en", "de")
	require.NoError(t, err)
	assert.Len(t, inner.calls, 3)

	// Not a catalog publisher
	ok, err := Supports(context.Background(), p, "de")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCached_LanguageCatalog(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		json.NewEncoder(w).Encode([]libreLanguage{{Code: "en"}, {Code: "fr"}})
	}))
	defer srv.Close()

	strs, err := cache.New[string](cache.Options{})
	require.NoError(t, err)
	langs, err := cache.New[[]string](cache.Options{})
	require.NoError(t, err)
	p := NewCached(NewLibre(LibreConfig{BaseURL: srv.URL}), strs, langs, CachedOptions{LanguagesTTL: time.Hour})

	for i := 0; i < 3; i++ {
		ok, err := Supports(context.Background(), p, "fr")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, hits)
}
