// Package notedb keeps an in-memory reactive table store consistent with
// an on-disk document tree.
//
// Entities live in per-kind directories under a data directory: either one
// frontmatter file per entity (humans, organizations, prompts) or one
// subdirectory per entity holding a metadata marker file plus auxiliary
// files (sessions, chats). Writes flow from the store to disk through
// persisters; external disk edits flow back through a debounced
// path-to-entity listener pipeline.
//
// Files are the source of truth for anything edited outside the process;
// the store is the system of record for the running application. The
// persister layer is the only authority translating between the two.
package notedb
