package notedb_test

import (
	"strings"
	"testing"

	"github.com/echonote/notedb/pkg/notedb"
)

func Test_ParseEntityID_Round_Trips_Built_Paths(t *testing.T) {
	t.Parallel()

	ids := []string{
		"person-123",
		"550e8400-e29b-41d4-a716-446655440000",
		"john-doe_2024",
	}

	for _, id := range ids {
		p := notedb.EntityFilePath("/data/app", "humans", id, ".md")

		got, ok := notedb.ParseEntityID(p, "humans", ".md")
		if !ok || got != id {
			t.Fatalf("ParseEntityID(%q) = %q %v, want %q", p, got, ok, id)
		}
	}
}

func Test_ParseEntityID_Accepts_Relative_Notification_Paths(t *testing.T) {
	t.Parallel()

	got, ok := notedb.ParseEntityID("humans/person-123.md", "humans", ".md")
	if !ok || got != "person-123" {
		t.Fatalf("got %q %v", got, ok)
	}
}

func Test_ParseEntityID_Accepts_Absolute_Paths(t *testing.T) {
	t.Parallel()

	got, ok := notedb.ParseEntityID("/data/app/humans/person-123.md", "humans", ".md")
	if !ok || got != "person-123" {
		t.Fatalf("got %q %v", got, ok)
	}
}

func Test_ParseEntityID_Rejects_Non_Matching_Paths(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		path string
	}{
		{"wrong extension", "humans/person-123.json"},
		{"wrong directory", "organizations/org-123.md"},
		{"no filename", "humans/"},
		{"directory name only", "humans"},
		{"empty path", ""},
		{"extension only filename", "humans/.md"},
		{"nested below kind", "humans/sub/person-123.md"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := notedb.ParseEntityID(tc.path, "humans", ".md")
			if ok {
				t.Fatalf("ParseEntityID(%q) = %q, want no match", tc.path, got)
			}
		})
	}
}

func Test_ParseOwnerDirID_Extracts_Containing_Directory(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want string
	}{
		{"chats/group-1/messages.json", "group-1"},
		{"chats/group-1/any-file.txt", "group-1"},
		{"chats/550e8400-e29b-41d4-a716-446655440000/messages.json", "550e8400-e29b-41d4-a716-446655440000"},
		{"/Users/test/data/app/chats/abc-123/file", "abc-123"},
	}

	for _, tc := range cases {
		got, ok := notedb.ParseOwnerDirID(tc.path, "chats")
		if !ok || got != tc.want {
			t.Fatalf("ParseOwnerDirID(%q) = %q %v, want %q", tc.path, got, ok, tc.want)
		}
	}
}

func Test_ParseOwnerDirID_Handles_Folder_Nesting(t *testing.T) {
	t.Parallel()

	got, ok := notedb.ParseOwnerDirID("sessions/work/project-a/session-9/memo.md", "sessions")
	if !ok || got != "session-9" {
		t.Fatalf("got %q %v, want session-9", got, ok)
	}
}

func Test_ParseOwnerDirID_Rejects_Non_Matching_Paths(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"sessions/session-1/file", "chats", "chats/", ""} {
		if got, ok := notedb.ParseOwnerDirID(p, "chats"); ok {
			t.Fatalf("ParseOwnerDirID(%q) = %q, want no match", p, got)
		}
	}
}

func Test_EntityDirPath_Places_Folder_Between_Kind_And_ID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		folder string
		want   string
	}{
		{"", "/data/app/sessions/session-123"},
		{"work", "/data/app/sessions/work/session-123"},
		{"work/project-a", "/data/app/sessions/work/project-a/session-123"},
		{"work/project-a/meetings", "/data/app/sessions/work/project-a/meetings/session-123"},
	}

	for _, tc := range cases {
		got := notedb.EntityDirPath("/data/app", "sessions", tc.folder, "session-123")
		if got != tc.want {
			t.Fatalf("EntityDirPath(folder=%q) = %q, want %q", tc.folder, got, tc.want)
		}
	}
}

func Test_ParentFolderPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		folder string
		want   string
	}{
		{"a/b/c", "a/b"},
		{"a/b", "a"},
		{"a", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := notedb.ParentFolderPath(tc.folder); got != tc.want {
			t.Fatalf("ParentFolderPath(%q) = %q, want %q", tc.folder, got, tc.want)
		}
	}
}

func Test_SanitizeFilename_Replaces_Each_Illegal_Char_Independently(t *testing.T) {
	t.Parallel()

	got := notedb.SanitizeFilename(`file<>:"/\|?*name`)

	want := "file" + strings.Repeat("_", 9) + "name"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func Test_SanitizeFilename_Trims_Surrounding_Whitespace(t *testing.T) {
	t.Parallel()

	if got := notedb.SanitizeFilename("  team sync  "); got != "team sync" {
		t.Fatalf("got %q", got)
	}
}
