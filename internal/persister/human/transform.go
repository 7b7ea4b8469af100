package human

import (
	"strings"

	"github.com/echonote/notedb/pkg/frontmatter"
	"github.com/echonote/notedb/pkg/store"
)

// The store keeps emails as one comma-joined cell; the document keeps
// them as a YAML list. Joining trims entries and drops empties, so the
// mapping normalizes rather than round-trips byte-for-byte.

func fromDocument(doc *frontmatter.Document) store.Row {
	return store.Row{
		"user_id":           doc.GetString("user_id"),
		"name":              doc.GetString("name"),
		"email":             emailsToCell(doc),
		"org_id":            doc.GetString("org_id"),
		"job_title":         doc.GetString("job_title"),
		"linkedin_username": doc.GetString("linkedin_username"),
		"pinned":            doc.GetBool("pinned"),
		"memo":              doc.Content,
	}
}

func toDocument(row store.Row) (map[string]any, string) {
	meta := map[string]any{
		"user_id":           row.String("user_id"),
		"name":              row.String("name"),
		"emails":            splitEmails(row.String("email")),
		"org_id":            row.String("org_id"),
		"job_title":         row.String("job_title"),
		"linkedin_username": row.String("linkedin_username"),
		"pinned":            row.Bool("pinned"),
	}

	return meta, row.String("memo")
}

// emailsToCell prefers the "emails" list; documents written before the
// list form carry a scalar "email" field instead.
func emailsToCell(doc *frontmatter.Document) string {
	list := doc.GetStringList("emails")
	if list == nil {
		return doc.GetString("email")
	}

	cleaned := make([]string, 0, len(list))

	for _, e := range list {
		e = strings.TrimSpace(e)
		if e != "" {
			cleaned = append(cleaned, e)
		}
	}

	return strings.Join(cleaned, ",")
}

func splitEmails(cell string) []string {
	if cell == "" {
		return []string{}
	}

	parts := strings.Split(cell, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
