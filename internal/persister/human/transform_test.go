package human

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echonote/notedb/pkg/frontmatter"
	"github.com/echonote/notedb/pkg/store"
)

func Test_FromDocument_Maps_Fields_And_Body(t *testing.T) {
	t.Parallel()

	doc, err := frontmatter.Deserialize(`---
user_id: u1
name: Ada Lovelace
emails:
  - ada@example.com
  - lovelace@example.com
org_id: org-1
job_title: Engineer
linkedin_username: ada
pinned: true
---

Met at the analytical engines conference.`)
	require.NoError(t, err)

	row := fromDocument(doc)

	want := store.Row{
		"user_id":           "u1",
		"name":              "Ada Lovelace",
		"email":             "ada@example.com,lovelace@example.com",
		"org_id":            "org-1",
		"job_title":         "Engineer",
		"linkedin_username": "ada",
		"pinned":            true,
		"memo":              "Met at the analytical engines conference.",
	}

	if diff := cmp.Diff(want, row); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
}

func Test_FromDocument_Falls_Back_To_Scalar_Email_Field(t *testing.T) {
	t.Parallel()

	doc, err := frontmatter.Deserialize("---\nname: Ben\nemail: ben@example.com\n---\n")
	require.NoError(t, err)

	row := fromDocument(doc)

	assert.Equal(t, "ben@example.com", row.String("email"))
}

func Test_FromDocument_Drops_Blank_Email_Entries(t *testing.T) {
	t.Parallel()

	doc, err := frontmatter.Deserialize("---\nemails:\n  - ' ada@example.com '\n  - ''\n---\n")
	require.NoError(t, err)

	row := fromDocument(doc)

	assert.Equal(t, "ada@example.com", row.String("email"))
}

func Test_Transform_Round_Trips_Through_A_Document(t *testing.T) {
	t.Parallel()

	row := store.Row{
		"user_id":           "u1",
		"name":              "Ada Lovelace",
		"email":             "ada@example.com,lovelace@example.com",
		"org_id":            "org-1",
		"job_title":         "Engineer",
		"linkedin_username": "ada",
		"pinned":            false,
		"memo":              "memo body",
	}

	meta, body := toDocument(row)

	raw, err := frontmatter.Serialize(meta, body)
	require.NoError(t, err)

	doc, err := frontmatter.Deserialize(raw)
	require.NoError(t, err)

	if diff := cmp.Diff(row, fromDocument(doc)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func Test_ToDocument_Empty_Email_Cell_Yields_Empty_List(t *testing.T) {
	t.Parallel()

	meta, _ := toDocument(store.Row{"email": ""})

	assert.Equal(t, []string{}, meta["emails"])
}
