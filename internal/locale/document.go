package locale

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"localesync/internal/diff"
	"localesync/internal/errors"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Format is the whitespace convention of a locale file
type Format struct {
	Indent          string `json:"indent" mapstructure:"indent"`
	TrailingNewline bool   `json:"trailing_newline" mapstructure:"trailing_newline"`
}

// DefaultFormat matches what most i18n tooling writes
func DefaultFormat() Format {
	return Format{Indent: "  ", TrailingNewline: true}
}

// DetectFormat reads the indentation and final newline of raw. Anything it
// cannot tell from the file comes from fallback.
func DetectFormat(raw []byte, fallback Format) Format {
	f := fallback
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return f
	}
	f.TrailingNewline = bytes.HasSuffix(raw, []byte("\n"))

	lines := bytes.Split(trimmed, []byte("\n"))
	for _, line := range lines[1:] {
		n := len(line) - len(bytes.TrimLeft(line, " \t"))
		if n == 0 || n == len(line) {
			continue
		}
		f.Indent = string(line[:n])
		break
	}
	return f
}

// Document is a locale file edited in place. Key order and formatting
// survive edits.
type Document struct {
	raw    []byte
	format Format
}

// ParseDocument validates raw and detects its format. Empty input is an
// empty object.
func ParseDocument(path string, raw []byte, fallback Format) (*Document, error) {
	format := DetectFormat(raw, fallback)
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	if !gjson.ValidBytes(raw) {
		return nil, errors.MalformedInput(path, fmt.Errorf("invalid JSON"))
	}
	return &Document{raw: append([]byte(nil), raw...), format: format}, nil
}

func (d *Document) Format() Format {
	return d.format
}

// Tree decodes the document into a JSON tree
func (d *Document) Tree() (any, error) {
	return diff.ParseJSON(d.raw)
}

// Get resolves path in the document
func (d *Document) Get(path diff.Path) gjson.Result {
	return gjson.GetBytes(d.raw, gjsonPath(path))
}

// Set writes value at path, creating missing objects on the way. Markup
// in values is written as is, not as \u003c escapes.
func (d *Document) Set(path diff.Path, value any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	out, err := sjson.SetRawBytes(d.raw, sjsonPath(path), bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	if err != nil {
		return fmt.Errorf("setting %s: %w", path, err)
	}
	d.raw = out
	return nil
}

// Delete removes path. Deleting a missing path is not an error.
func (d *Document) Delete(path diff.Path) error {
	out, err := sjson.DeleteBytes(d.raw, sjsonPath(path))
	if err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	d.raw = out
	return nil
}

// Bytes renders the document with its original indentation and final
// newline convention.
func (d *Document) Bytes() []byte {
	out := pretty.PrettyOptions(d.raw, &pretty.Options{
		Indent:   d.format.Indent,
		SortKeys: false,
	})
	if !d.format.TrailingNewline {
		out = bytes.TrimSuffix(out, []byte("\n"))
	}
	return out
}

const pathSpecial = `\.|#@*?:`

func escape(key string) string {
	if !strings.ContainsAny(key, pathSpecial) {
		return key
	}
	var b strings.Builder
	for _, r := range key {
		if strings.ContainsRune(pathSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// sjsonPath renders path for sjson. Numeric object keys get a ':' prefix so
// sjson creates objects rather than arrays for them.
func sjsonPath(path diff.Path) string {
	parts := make([]string, len(path))
	for i, seg := range path {
		switch {
		case seg.IsIndex:
			parts[i] = fmt.Sprint(seg.Index)
		case isDigits(seg.Key):
			parts[i] = ":" + seg.Key
		default:
			parts[i] = escape(seg.Key)
		}
	}
	return strings.Join(parts, ".")
}

func gjsonPath(path diff.Path) string {
	parts := make([]string, len(path))
	for i, seg := range path {
		if seg.IsIndex {
			parts[i] = fmt.Sprint(seg.Index)
			continue
		}
		parts[i] = escape(seg.Key)
	}
	return strings.Join(parts, ".")
}
