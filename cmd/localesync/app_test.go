package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"localesync/internal/change"
	"localesync/internal/config"
	"localesync/internal/errors"
	"localesync/internal/logging"
	"localesync/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLibre(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /translate", func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req struct {
			Q      []string `json:"q"`
			Target string   `json:"target"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		out := make([]string, len(req.Q))
		for i, q := range req.Q {
			out[i] = req.Target + ":" + q
		}
		json.NewEncoder(w).Encode(map[string]any{"translatedText": out})
	})
	mux.HandleFunc("GET /languages", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{{"code": "en"}, {"code": "fr"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func setupWorkspace(t *testing.T, providerURL string) *config.Config {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"locales/en/common.json": "{\n  \"save\": \"Save\",\n  \"cancel\": \"Cancel\"\n}\n",
		"locales/fr/common.json": "{\n  \"save\": \"Enregistrer\"\n}\n",
		"locales/de/common.json": "{\n  \"save\": \"Speichern\"\n}\n",
	}
	for rel, data := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	}

	yaml := "root: " + root + "\n" +
		"provider:\n  libre:\n    base_url: " + providerURL + "\n" +
		"cache:\n  path: \"\"\n"
	cfgPath := filepath.Join(root, config.FileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	cfg, err := config.Load(cfgPath, nil)
	require.NoError(t, err)
	return cfg
}

func TestSyncFile(t *testing.T) {
	srv, calls := newLibre(t)
	cfg := setupWorkspace(t, srv.URL)

	a, err := newApp(cfg, logging.Nop(), workspace.Local{}, nil)
	require.NoError(t, err)
	defer a.Close()

	en := filepath.Join(cfg.Root, "locales", "en", "common.json")
	fr := filepath.Join(cfg.Root, "locales", "fr", "common.json")

	result, err := a.syncFile(context.Background(), en)
	require.NoError(t, err)
	require.NotNil(t, result)

	// de is not in the provider's language list
	assert.Equal(t, []string{fr}, result.Written)
	assert.Equal(t, "unsupported locale", result.Skipped[filepath.Join(cfg.Root, "locales", "de", "common.json")])
	assert.Equal(t, 1, *calls)

	data, err := os.ReadFile(fr)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"save\": \"Enregistrer\",\n  \"cancel\": \"fr:Cancel\"\n}\n", string(data))

	report, ok := a.coverage.Report("common")
	require.True(t, ok)
	assert.Equal(t, []string{"cancel"}, report.Missing["de"])
	assert.Empty(t, report.Missing["fr"])
}

func TestSyncFile_DryRun(t *testing.T) {
	srv, _ := newLibre(t)
	cfg := setupWorkspace(t, srv.URL)
	mem := workspace.NewMemory(workspace.Local{})

	a, err := newApp(cfg, logging.Nop(), mem, nil)
	require.NoError(t, err)
	defer a.Close()

	en := filepath.Join(cfg.Root, "locales", "en", "common.json")
	fr := filepath.Join(cfg.Root, "locales", "fr", "common.json")

	result, err := a.syncFile(context.Background(), en)
	require.NoError(t, err)
	assert.Equal(t, []string{fr}, result.Written)
	assert.Equal(t, []string{fr}, mem.Writes())

	// Nothing reached the disk
	data, err := os.ReadFile(fr)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"save\": \"Enregistrer\"\n}\n", string(data))
}

func TestSyncFile_NotALocaleFile(t *testing.T) {
	srv, _ := newLibre(t)
	cfg := setupWorkspace(t, srv.URL)

	a, err := newApp(cfg, logging.Nop(), workspace.Local{}, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.syncFile(context.Background(), filepath.Join(cfg.Root, config.FileName))
	assert.Error(t, err)
}

func TestSyncFile_ProviderDown(t *testing.T) {
	srv, _ := newLibre(t)
	cfg := setupWorkspace(t, srv.URL)
	srv.Close()

	a, err := newApp(cfg, logging.Nop(), workspace.Local{}, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.syncFile(context.Background(), filepath.Join(cfg.Root, "locales", "en", "common.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync failed")
}

func TestSyncFile_MalformedSource(t *testing.T) {
	srv, calls := newLibre(t)
	cfg := setupWorkspace(t, srv.URL)
	en := filepath.Join(cfg.Root, "locales", "en", "common.json")
	require.NoError(t, os.WriteFile(en, []byte(`{"save":`), 0o644))

	a, err := newApp(cfg, logging.Nop(), workspace.Local{}, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.syncFile(context.Background(), en)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedInput))
	assert.NotContains(t, err.Error(), "not a locale file")
	assert.Equal(t, 0, *calls)
}

// failingHandler stands in for a chain stage that fails without touching
// the status board
type failingHandler struct{}

func (failingHandler) Process(context.Context, *change.Context) (bool, error) {
	return false, stderrors.New("index unavailable")
}

func TestSyncFile_ChainErrorIsReturned(t *testing.T) {
	srv, _ := newLibre(t)
	cfg := setupWorkspace(t, srv.URL)

	a, err := newApp(cfg, logging.Nop(), workspace.Local{}, nil)
	require.NoError(t, err)
	defer a.Close()
	a.chains.Register(localeCategory, change.NewChain(nil, failingHandler{}))

	_, err = a.syncFile(context.Background(), filepath.Join(cfg.Root, "locales", "en", "common.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unavailable")
	assert.Empty(t, a.board.Snapshot().LastError)
}
