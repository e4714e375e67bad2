package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"localesync/internal/content"
	"localesync/internal/coverage"
	"localesync/internal/diff"
	"localesync/internal/locale"
	"localesync/internal/lock"
	"localesync/internal/status"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toggle struct {
	all        bool
	categories map[string]bool
}

func (t *toggle) SetDisabled(disabled bool) { t.all = disabled }

func (t *toggle) SetCategoryDisabled(category string, disabled bool) {
	if t.categories == nil {
		t.categories = map[string]bool{}
	}
	t.categories[category] = disabled
}

func newTestHandler(t *testing.T) (http.Handler, *toggle, *status.Board) {
	t.Helper()
	root := filepath.FromSlash("/w/locales")
	layout := locale.Layout{Root: root, Style: locale.StyleFile}
	store := content.NewStore(diff.NewEngine(), content.ResolverFunc(func(path string) content.Meta {
		loc, err := layout.Parse(path)
		if err != nil {
			return content.Meta{}
		}
		return content.Meta{Category: "locale", Locale: loc.Locale, Namespace: loc.Namespace}
	}), nil)

	require.NoError(t, store.Add(filepath.Join(root, "en.json"), []byte(`{"common":{"save":"Save","cancel":"Cancel"}}`)))
	require.NoError(t, store.Add(filepath.Join(root, "fr.json"), []byte(`{"common":{"save":"Enregistrer"}}`)))

	tracker := coverage.NewTracker(store, "locale", nil)
	tracker.Refresh()

	locks := lock.NewStore(lock.WithClock(clock.NewMock()))
	t.Cleanup(locks.Close)
	locks.Acquire(filepath.Join(root, "fr.json"))

	board := status.NewBoard(nil)
	tg := &toggle{}

	h := NewHandler(Deps{
		Board:    board,
		Content:  store,
		Locks:    locks,
		Coverage: tracker,
		Toggle:   tg,
	})
	return h.Routes(), tg, board
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := do(t, h, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestStatus(t *testing.T) {
	h, _, board := newTestHandler(t)
	board.SetState(status.Error, "provider down")

	rec := do(t, h, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, status.Error, resp.Status.State)
	assert.Equal(t, "provider down", resp.Status.LastError)
	assert.Equal(t, 2, resp.Files)
	assert.Equal(t, []string{"common"}, resp.Namespaces)
	require.Len(t, resp.Locks, 1)
	assert.Equal(t, filepath.Join(filepath.FromSlash("/w/locales"), "fr.json"), resp.Locks[0].Path)
}

func TestKey(t *testing.T) {
	h, _, _ := newTestHandler(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantValues map[string]any
	}{
		{
			name:       "defined everywhere",
			target:     "/api/keys/common/save",
			wantStatus: http.StatusOK,
			wantValues: map[string]any{"en": "Save", "fr": "Enregistrer"},
		},
		{
			name:       "defined in one locale",
			target:     "/api/keys/common/cancel",
			wantStatus: http.StatusOK,
			wantValues: map[string]any{"en": "Cancel"},
		},
		{
			name:       "unknown key",
			target:     "/api/keys/common/missing",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantValues == nil {
				return
			}
			var resp KeyResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "common", resp.Namespace)
			assert.Equal(t, tt.wantValues, resp.Values)
		})
	}
}

func TestCoverage(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/api/coverage/common", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report coverage.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, []string{"cancel"}, report.Missing["fr"])
	assert.False(t, report.Complete())

	rec = do(t, h, http.MethodGet, "/api/coverage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reports []coverage.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reports))
	assert.Len(t, reports, 1)

	rec = do(t, h, http.MethodGet, "/api/coverage/nav", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetDisabled(t *testing.T) {
	h, tg, _ := newTestHandler(t)

	rec := do(t, h, http.MethodPut, "/api/disabled", []byte(`{"disabled":true}`))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, tg.all)

	rec = do(t, h, http.MethodPut, "/api/disabled", []byte(`{"disabled":true,"category":"docs"}`))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, tg.categories["docs"])

	rec = do(t, h, http.MethodPut, "/api/disabled", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
