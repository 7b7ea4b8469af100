package chat

import (
	"context"
	"errors"
	iofs "io/fs"
	"path/filepath"
	"sort"

	"github.com/echonote/notedb/pkg/notedb"
	"github.com/echonote/notedb/pkg/store"
)

// chatFile is the on-disk shape of messages.json.
type chatFile struct {
	ChatGroup chatGroup     `json:"chat_group"`
	Messages  []chatMessage `json:"messages"`
}

type chatGroup struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type chatMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func messagesPath(env notedb.Env, groupID string) string {
	return filepath.Join(notedb.EntityDir(env.DataDir, Dir), groupID, MessagesFile)
}

func emptyTables() store.Tables {
	return store.Tables{
		"chat_groups":   store.Table{},
		"chat_messages": store.Table{},
	}
}

func loadAll(ctx context.Context, env notedb.Env) (store.Tables, error) {
	out := emptyTables()

	entries, err := env.IO.FS().ReadDir(notedb.EntityDir(env.DataDir, Dir))
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return out, nil
		}

		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		groupID := entry.Name()

		err := loadGroup(env, groupID, out)

		switch {
		case errors.Is(err, iofs.ErrNotExist):
			// Not a chat directory; leave it alone.
		case err != nil:
			env.Log.Error("skipping unreadable chat group", "group", groupID, "err", err)
		}
	}

	return out, nil
}

func loadSingle(ctx context.Context, env notedb.Env, id string) (store.Tables, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	out := emptyTables()

	err := loadGroup(env, id, out)

	switch {
	case errors.Is(err, iofs.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	return out, true, nil
}

func loadGroup(env notedb.Env, groupID string, out store.Tables) error {
	var cf chatFile

	err := env.IO.ReadJSON(messagesPath(env, groupID), &cf)
	if err != nil {
		return err
	}

	out["chat_groups"][groupID] = store.Row{
		"user_id":    cf.ChatGroup.UserID,
		"title":      cf.ChatGroup.Title,
		"created_at": cf.ChatGroup.CreatedAt,
	}

	for _, m := range cf.Messages {
		if m.ID == "" {
			continue
		}

		out["chat_messages"][m.ID] = store.Row{
			"chat_group_id": groupID,
			"role":          m.Role,
			"content":       m.Content,
			"created_at":    m.CreatedAt,
		}
	}

	return nil
}

func buildSaveOps(env notedb.Env, tables store.Tables, scope map[string]struct{}) []notedb.Op {
	groups := tables["chat_groups"]

	ids := make([]string, 0, len(groups))

	for id := range groups {
		if scope != nil {
			if _, ok := scope[id]; !ok {
				continue
			}
		}

		ids = append(ids, id)
	}

	sort.Strings(ids)

	ops := make([]notedb.Op, 0, len(ids))

	for _, id := range ids {
		row := groups[id]

		cf := chatFile{
			ChatGroup: chatGroup{
				ID:        id,
				UserID:    row.String("user_id"),
				Title:     row.String("title"),
				CreatedAt: row.String("created_at"),
			},
			Messages: []chatMessage{},
		}

		for msgID, msg := range tables["chat_messages"] {
			if msg.String("chat_group_id") != id {
				continue
			}

			cf.Messages = append(cf.Messages, chatMessage{
				ID:        msgID,
				Role:      msg.String("role"),
				Content:   msg.String("content"),
				CreatedAt: msg.String("created_at"),
			})
		}

		// Conversation order, with the id as tiebreaker for equal stamps.
		sort.Slice(cf.Messages, func(i, j int) bool {
			if cf.Messages[i].CreatedAt != cf.Messages[j].CreatedAt {
				return cf.Messages[i].CreatedAt < cf.Messages[j].CreatedAt
			}

			return cf.Messages[i].ID < cf.Messages[j].ID
		})

		ops = append(ops, notedb.WriteJSON(messagesPath(env, id), cf))
	}

	return ops
}
