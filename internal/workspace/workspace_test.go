package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, data := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(data), 0644))
	}
}

func newTestClassifier(t *testing.T, root string) *Classifier {
	t.Helper()
	c, err := NewClassifier(root,
		[]Rule{{Category: "locale", Pattern: "locales/**.json"}},
		[]string{"locales/**.draft.json"},
		DefaultIgnoreDirs,
	)
	require.NoError(t, err)
	return c
}

func TestClassifier_Classify(t *testing.T) {
	root := filepath.FromSlash("/w")
	c := newTestClassifier(t, root)

	tests := []struct {
		path     string
		category string
		ok       bool
	}{
		{"/w/locales/en/common.json", "locale", true},
		{"/w/locales/fr.json", "locale", true},
		{"/w/locales/en/common.draft.json", "", false},
		{"/w/locales/en/.common.json.123" + TempSuffix, "", false},
		{"/w/src/app.json", "", false},
		{"/w/node_modules/pkg/locales/en.json", "", false},
		{"/elsewhere/locales/en.json", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			cat, ok := c.Classify(filepath.FromSlash(tt.path))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.category, cat)
		})
	}
}

func TestClassifier_BadPattern(t *testing.T) {
	_, err := NewClassifier("/w", []Rule{{Category: "x", Pattern: "[a-"}}, nil, nil)
	assert.Error(t, err)
}

func TestClassifier_Scan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"locales/en/common.json":             `{}`,
		"locales/fr/common.json":             `{}`,
		"locales/fr/common.draft.json":       `{}`,
		"node_modules/lib/locales/en/x.json": `{}`,
		"README.md":                          "# hi",
	})
	c := newTestClassifier(t, root)

	var found []string
	require.NoError(t, c.Scan(func(path, category string) error {
		assert.Equal(t, "locale", category)
		rel, _ := filepath.Rel(root, path)
		found = append(found, filepath.ToSlash(rel))
		return nil
	}))
	assert.ElementsMatch(t, []string{"locales/en/common.json", "locales/fr/common.json"}, found)

	dirs, err := c.Dirs()
	require.NoError(t, err)
	for _, d := range dirs {
		assert.NotContains(t, d, "node_modules")
	}
	assert.Contains(t, dirs, root)
	assert.Contains(t, dirs, filepath.Join(root, "locales", "fr"))
}

func TestLocal_WriteFile(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "locales", "de", "common.json")

	var fs Local
	require.NoError(t, fs.WriteFile(p, []byte(`{"a":"b"}`)))

	data, err := fs.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"b"}`, string(data))

	_, err = fs.ReadFile(filepath.Join(root, "missing.json"))
	assert.True(t, IsNotExist(err))
}

func TestLocal_WriteFileReplaces(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"fr.json": `{"a":"old"}`})
	p := filepath.Join(root, "fr.json")
	require.NoError(t, os.Chmod(p, 0600))

	var fs Local
	require.NoError(t, fs.WriteFile(p, []byte(`{"a":"new"}`)))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"new"}`, string(data))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// No temporary file is left behind
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fr.json", entries[0].Name())
}

func TestMemory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"en.json": `{"x":"1"}`})
	base := filepath.Join(root, "en.json")

	m := NewMemory(Local{})
	data, err := m.ReadFile(base)
	require.NoError(t, err)
	assert.Equal(t, `{"x":"1"}`, string(data))

	require.NoError(t, m.WriteFile(base, []byte(`{"x":"2"}`)))
	data, err = m.ReadFile(base)
	require.NoError(t, err)
	assert.Equal(t, `{"x":"2"}`, string(data))

	// The disk copy is untouched
	onDisk, err := os.ReadFile(base)
	require.NoError(t, err)
	assert.Equal(t, `{"x":"1"}`, string(onDisk))
	assert.Equal(t, []string{base}, m.Writes())

	_, err = NewMemory(nil).ReadFile("/nope")
	assert.True(t, IsNotExist(err))
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{".localesync.yaml": "", "a/b/c.txt": ""})

	got, err := FindRoot(filepath.Join(root, "a", "b"), ".localesync.yaml")
	require.NoError(t, err)
	assert.Equal(t, root, got)

	_, err = FindRoot(filepath.Join(root, "a"), ".does-not-exist")
	assert.Error(t, err)
}
