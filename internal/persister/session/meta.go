package session

import (
	"sort"

	"github.com/echonote/notedb/pkg/store"
)

// metaFile is the on-disk shape of meta.json. It carries everything about
// a session that is not a standalone document: the session row itself,
// the participant links, and the tags attached to it. The folder is
// deliberately absent; it is encoded by the directory's location.
type metaFile struct {
	Session      metaSession       `json:"session"`
	Participants []metaParticipant `json:"participants"`
	Tags         []metaTag         `json:"tags"`
	TagLinks     []metaTagLink     `json:"tag_links"`
}

type metaSession struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UserID    string `json:"user_id"`
	EventID   string `json:"event_id,omitempty"`
}

type metaParticipant struct {
	ID      string `json:"id"`
	HumanID string `json:"human_id"`
}

type metaTag struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"user_id,omitempty"`
}

type metaTagLink struct {
	ID    string `json:"id"`
	TagID string `json:"tag_id"`
}

// transcriptFile is the on-disk shape of transcript.json.
type transcriptFile struct {
	Transcripts []transcriptEntry `json:"transcripts"`
}

type transcriptEntry struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

func buildMeta(tables store.Tables, sessionID string, row store.Row) metaFile {
	meta := metaFile{
		Session: metaSession{
			ID:        sessionID,
			Title:     row.String("title"),
			CreatedAt: row.String("created_at"),
			UserID:    row.String("user_id"),
			EventID:   row.String("event_id"),
		},
		Participants: []metaParticipant{},
		Tags:         []metaTag{},
		TagLinks:     []metaTagLink{},
	}

	for id, p := range tables["mapping_session_participant"] {
		if p.String("session_id") != sessionID {
			continue
		}

		meta.Participants = append(meta.Participants, metaParticipant{
			ID:      id,
			HumanID: p.String("human_id"),
		})
	}

	for id, link := range tables["mapping_tag_session"] {
		if link.String("session_id") != sessionID {
			continue
		}

		tagID := link.String("tag_id")

		meta.TagLinks = append(meta.TagLinks, metaTagLink{ID: id, TagID: tagID})

		if tag, ok := tables["tags"][tagID]; ok {
			meta.Tags = append(meta.Tags, metaTag{
				ID:     tagID,
				Name:   tag.String("name"),
				UserID: tag.String("user_id"),
			})
		}
	}

	sort.Slice(meta.Participants, func(i, j int) bool { return meta.Participants[i].ID < meta.Participants[j].ID })
	sort.Slice(meta.Tags, func(i, j int) bool { return meta.Tags[i].ID < meta.Tags[j].ID })
	sort.Slice(meta.TagLinks, func(i, j int) bool { return meta.TagLinks[i].ID < meta.TagLinks[j].ID })

	return meta
}

func buildTranscript(tables store.Tables, sessionID string) (transcriptFile, bool) {
	var out transcriptFile

	for id, tr := range tables["transcripts"] {
		if tr.String("session_id") != sessionID {
			continue
		}

		out.Transcripts = append(out.Transcripts, transcriptEntry{
			ID:      id,
			Content: tr.String("content"),
		})
	}

	if len(out.Transcripts) == 0 {
		return out, false
	}

	sort.Slice(out.Transcripts, func(i, j int) bool { return out.Transcripts[i].ID < out.Transcripts[j].ID })

	return out, true
}
