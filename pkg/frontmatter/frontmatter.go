// Package frontmatter serializes and parses markdown documents with a YAML
// frontmatter block:
//
//	---
//	id: abc-123
//	pinned: true
//	---
//	free-text body
//
// The metadata block is full YAML (maps, lists, scalars). The body is kept
// verbatim after the closing delimiter, minus the separating blank line.
package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Document is a parsed frontmatter file: structured metadata plus body.
type Document struct {
	Frontmatter map[string]any
	Content     string
}

// Deserialize parses raw file content into a Document.
//
// The content must start with an opening "---" delimiter and contain a
// closing one. Returns an error for missing or unclosed blocks and for
// invalid YAML in the metadata.
func Deserialize(raw string) (*Document, error) {
	if !strings.HasPrefix(raw, delimiter) {
		return nil, fmt.Errorf("frontmatter: missing opening delimiter")
	}

	rest := raw[len(delimiter):]

	idx := strings.Index(rest, "\n"+delimiter)
	if idx == -1 {
		return nil, fmt.Errorf("frontmatter: unclosed block")
	}

	yamlBlock := rest[:idx]

	body := rest[idx+len("\n"+delimiter):]
	if after, ok := strings.CutPrefix(body, "\n\n"); ok {
		body = after
	} else if after, ok := strings.CutPrefix(body, "\n"); ok {
		body = after
	}

	meta := make(map[string]any)

	err := yaml.Unmarshal([]byte(yamlBlock), &meta)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: parse metadata: %w", err)
	}

	return &Document{Frontmatter: meta, Content: body}, nil
}

// Serialize renders metadata and body into on-disk document content.
func Serialize(meta map[string]any, body string) (string, error) {
	if meta == nil {
		meta = map[string]any{}
	}

	yamlBytes, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("frontmatter: serialize metadata: %w", err)
	}

	var sb strings.Builder

	sb.WriteString(delimiter + "\n")
	sb.Write(yamlBytes)
	sb.WriteString(delimiter + "\n\n")
	sb.WriteString(body)

	return sb.String(), nil
}

// GetString reads a string field, tolerating absent or differently typed
// values by returning the empty string.
func (d *Document) GetString(key string) string {
	v, _ := d.Frontmatter[key].(string)

	return v
}

// GetBool reads a bool field, defaulting to false.
func (d *Document) GetBool(key string) bool {
	v, _ := d.Frontmatter[key].(bool)

	return v
}

// GetInt reads an integer field, defaulting to 0. yaml.v3 decodes YAML
// integers as int.
func (d *Document) GetInt(key string) int64 {
	switch v := d.Frontmatter[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// GetStringList reads a list-of-strings field. Non-string elements are
// stringified; absent fields yield nil.
func (d *Document) GetStringList(key string) []string {
	list, ok := d.Frontmatter[key].([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, fmt.Sprintf("%v", v))
	}

	return out
}
