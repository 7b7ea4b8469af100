package notedb

import (
	"path"
	"strings"
)

// Path helpers map between entity identifiers and on-disk locations.
// Building is pure string assembly; parsing is deliberately defensive:
// notification payloads arrive both as data-dir-relative paths and as
// absolute paths, so parsers normalize first (strip everything before the
// last occurrence of the expected kind segment) and match the remainder.

// EntityDir returns the directory holding all entities of one kind.
func EntityDir(dataDir, kind string) string {
	return path.Join(dataDir, kind)
}

// EntityFilePath returns the single-file location of an entity.
func EntityFilePath(dataDir, kind, id, ext string) string {
	return path.Join(dataDir, kind, id+ext)
}

// EntityDirPath returns the per-entity subdirectory of an entity, with an
// optional hierarchical folder placement between kind and id.
func EntityDirPath(dataDir, kind, folder, id string) string {
	if folder == "" {
		return path.Join(dataDir, kind, id)
	}

	return path.Join(dataDir, kind, folder, id)
}

// ParentFolderPath returns the parent of a folder path: "a/b/c" -> "a/b".
// Single-segment and empty folders have no parent and yield "".
func ParentFolderPath(folder string) string {
	idx := strings.LastIndex(folder, "/")
	if idx <= 0 {
		return ""
	}

	return folder[:idx]
}

// illegal filename characters, each replaced independently.
const illegalFilenameChars = `<>:"/\|?*`

// SanitizeFilename replaces filesystem-unsafe characters with "_" and
// trims surrounding whitespace.
//
// The mapping is lossy and one-way; it is used only to derive
// human-meaningful file names and never for parsing ids back out.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalFilenameChars, r) {
			return '_'
		}

		return r
	}, strings.TrimSpace(name))
}

// ParseEntityID extracts an entity id from a changed path of the
// single-file shape: <...>/<kind>/<id><ext>.
//
// Accepts both relative notification paths ("humans/h1.md") and absolute
// paths ("/data/app/humans/h1.md"). Returns false when the path does not
// match: wrong kind segment, wrong extension, no filename, or nesting
// below the kind directory.
func ParseEntityID(p, kind, ext string) (string, bool) {
	segs := pathSegments(p)

	idx := lastIndexOf(segs, kind)
	if idx == -1 || idx != len(segs)-2 {
		return "", false
	}

	file := segs[len(segs)-1]
	if !strings.HasSuffix(file, ext) || len(file) == len(ext) {
		return "", false
	}

	return file[:len(file)-len(ext)], true
}

// ParseOwnerDirID extracts the owning entity id from a changed path of the
// directory-per-entity shape: <...>/<kind>/<folders...>/<id>/<file>.
//
// The id is the directory containing the changed file, regardless of
// folder depth. A path ending directly in a subdirectory of kind yields
// that directory name.
func ParseOwnerDirID(p, kind string) (string, bool) {
	segs := pathSegments(p)

	idx := lastIndexOf(segs, kind)
	if idx == -1 {
		return "", false
	}

	rest := segs[idx+1:]

	switch len(rest) {
	case 0:
		return "", false
	case 1:
		return rest[0], true
	default:
		return rest[len(rest)-2], true
	}
}

func pathSegments(p string) []string {
	p = strings.ReplaceAll(p, `\`, "/")

	parts := strings.Split(p, "/")

	segs := parts[:0]
	for _, s := range parts {
		if s != "" {
			segs = append(segs, s)
		}
	}

	return segs
}

func lastIndexOf(segs []string, want string) int {
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i] == want {
			return i
		}
	}

	return -1
}
