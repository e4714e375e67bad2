package locale

import (
	"path/filepath"
	"testing"

	"localesync/internal/diff"
	"localesync/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout_Parse(t *testing.T) {
	root := filepath.FromSlash("/w/locales")

	tests := []struct {
		name    string
		layout  Layout
		path    string
		want    Location
		wantErr bool
	}{
		{
			name:   "Directory style",
			layout: Layout{Root: root, Style: StyleDirectory},
			path:   filepath.FromSlash("/w/locales/en/common.json"),
			want:   Location{Locale: "en", Namespace: "common", Group: "common"},
		},
		{
			name:   "Directory style nested namespace",
			layout: Layout{Root: root, Style: StyleDirectory},
			path:   filepath.FromSlash("/w/locales/pt-BR/admin/users.json"),
			want:   Location{Locale: "pt-BR", Namespace: "admin/users", Group: "admin/users"},
		},
		{
			name:   "File style",
			layout: Layout{Root: root, Style: StyleFile},
			path:   filepath.FromSlash("/w/locales/fr.json"),
			want:   Location{Locale: "fr", Group: ""},
		},
		{
			name:   "File style in subdirectory",
			layout: Layout{Root: root, Style: StyleFile},
			path:   filepath.FromSlash("/w/locales/emails/de.json"),
			want:   Location{Locale: "de", Group: "emails"},
		},
		{
			name:    "Not JSON",
			layout:  Layout{Root: root, Style: StyleDirectory},
			path:    filepath.FromSlash("/w/locales/en/common.yaml"),
			wantErr: true,
		},
		{
			name:    "Outside root",
			layout:  Layout{Root: root, Style: StyleDirectory},
			path:    filepath.FromSlash("/w/src/en/common.json"),
			wantErr: true,
		},
		{
			name:    "Missing namespace",
			layout:  Layout{Root: root, Style: StyleDirectory},
			path:    filepath.FromSlash("/w/locales/en.json"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := tt.layout.Parse(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.path, loc.Path)
			assert.Equal(t, tt.want.Locale, loc.Locale)
			assert.Equal(t, tt.want.Namespace, loc.Namespace)
			assert.Equal(t, tt.want.Group, loc.Group)

			// Path is the inverse of Parse
			assert.Equal(t, tt.path, tt.layout.Path(loc.Group, loc.Locale))
		})
	}
}

func TestBase(t *testing.T) {
	assert.Equal(t, "pt", Base("pt-BR"))
	assert.Equal(t, "en", Base("en"))
	assert.Equal(t, "zh", Base("zh-Hant"))
}

func TestIndex(t *testing.T) {
	layout := Layout{Root: "/w/locales", Style: StyleDirectory}
	x := NewIndex()

	for _, p := range []string{
		"/w/locales/en/common.json",
		"/w/locales/fr/common.json",
		"/w/locales/de/common.json",
		"/w/locales/en/errors.json",
	} {
		loc, err := layout.Parse(filepath.FromSlash(p))
		require.NoError(t, err)
		x.Register(loc)
	}

	en := filepath.FromSlash("/w/locales/en/common.json")

	sibs := x.Siblings(en)
	require.Len(t, sibs, 2)
	assert.Equal(t, "de", sibs[0].Locale)
	assert.Equal(t, "fr", sibs[1].Locale)

	assert.Empty(t, x.Siblings(filepath.FromSlash("/w/locales/en/errors.json")))
	assert.Nil(t, x.Siblings("/unknown.json"))
	assert.Equal(t, []string{"common", "errors"}, x.Groups())

	x.Remove(filepath.FromSlash("/w/locales/de/common.json"))
	sibs = x.Siblings(en)
	require.Len(t, sibs, 1)
	assert.Equal(t, "fr", sibs[0].Locale)

	x.Remove(filepath.FromSlash("/w/locales/en/errors.json"))
	assert.Equal(t, []string{"common"}, x.Groups())
	assert.Len(t, x.Group("common"), 2)

	_, ok := x.Lookup(en)
	assert.True(t, ok)
}

func TestDetectFormat(t *testing.T) {
	fallback := Format{Indent: "    ", TrailingNewline: false}

	tests := []struct {
		name string
		raw  string
		want Format
	}{
		{"Two spaces with newline", "{\n  \"a\": \"b\"\n}\n", Format{Indent: "  ", TrailingNewline: true}},
		{"Tabs without newline", "{\n\t\"a\": \"b\"\n}", Format{Indent: "\t", TrailingNewline: false}},
		{"Compact", `{"a":"b"}`, Format{Indent: "    ", TrailingNewline: false}},
		{"Empty", "", fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat([]byte(tt.raw), fallback))
		})
	}
}

func TestDocument_SetPreservesOrderAndFormat(t *testing.T) {
	raw := "{\n    \"common\": {\n        \"save\": \"Enregistrer\",\n        \"back\": \"Retour\"\n    }\n}"
	doc, err := ParseDocument("fr.json", []byte(raw), DefaultFormat())
	require.NoError(t, err)

	require.NoError(t, doc.Set(diff.Keys("common", "cancel"), "Annuler"))

	want := "{\n    \"common\": {\n        \"save\": \"Enregistrer\",\n        \"back\": \"Retour\",\n        \"cancel\": \"Annuler\"\n    }\n}"
	assert.Equal(t, want, string(doc.Bytes()))
}

func TestDocument_SetCreatesParents(t *testing.T) {
	doc, err := ParseDocument("de.json", nil, DefaultFormat())
	require.NoError(t, err)

	require.NoError(t, doc.Set(diff.Keys("errors", "404"), "Nicht gefunden"))
	require.NoError(t, doc.Set(diff.Keys("a.b"), "dotted"))

	assert.Equal(t, "Nicht gefunden", doc.Get(diff.Keys("errors", "404")).String())
	assert.True(t, doc.Get(diff.Keys("errors")).IsObject())
	assert.Equal(t, "dotted", doc.Get(diff.Keys("a.b")).String())
	assert.False(t, doc.Get(diff.Keys("a")).Exists())

	want := "{\n  \"errors\": {\n    \"404\": \"Nicht gefunden\"\n  },\n  \"a.b\": \"dotted\"\n}\n"
	assert.Equal(t, want, string(doc.Bytes()))
}

func TestDocument_SetKeepsMarkup(t *testing.T) {
	doc, err := ParseDocument("fr.json", nil, DefaultFormat())
	require.NoError(t, err)

	require.NoError(t, doc.Set(diff.Keys("close"), "Fermer & <b>é</b>"))
	require.NoError(t, doc.Set(diff.Keys("open"), "Open & <b>now</b>"))

	want := "{\n  \"close\": \"Fermer & <b>é</b>\",\n  \"open\": \"Open & <b>now</b>\"\n}\n"
	assert.Equal(t, want, string(doc.Bytes()))
	assert.Equal(t, "Fermer & <b>é</b>", doc.Get(diff.Keys("close")).String())
}

func TestDocument_Delete(t *testing.T) {
	doc, err := ParseDocument("en.json", []byte(`{"common":{"save":"Save","cancel":"Cancel"}}`), DefaultFormat())
	require.NoError(t, err)

	require.NoError(t, doc.Delete(diff.Keys("common", "cancel")))
	require.NoError(t, doc.Delete(diff.Keys("common", "missing")))

	assert.False(t, doc.Get(diff.Keys("common", "cancel")).Exists())
	assert.Equal(t, "Save", doc.Get(diff.Keys("common", "save")).String())
}

func TestParseDocument_Malformed(t *testing.T) {
	_, err := ParseDocument("fr.json", []byte(`{"common":`), DefaultFormat())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedInput))
}
