package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/echonote/notedb/pkg/store"
)

// Ops are the chat mutations exposed to the application.
type Ops struct {
	Store *store.Store

	// UserID stamps rows created through these ops.
	UserID string

	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// CreateGroup inserts a new empty chat group and returns its id.
func (o *Ops) CreateGroup(title string) string {
	id := uuid.NewString()

	o.Store.SetRow("chat_groups", id, store.Row{
		"user_id":    o.UserID,
		"title":      title,
		"created_at": o.now().UTC().Format(time.RFC3339),
	})

	return id
}

// AppendMessage adds a message to an existing group and returns its id.
func (o *Ops) AppendMessage(groupID, role, content string) (string, error) {
	if _, ok := o.Store.GetRow("chat_groups", groupID); !ok {
		return "", fmt.Errorf("append message: no such chat group %s", groupID)
	}

	id := uuid.NewString()

	o.Store.SetRow("chat_messages", id, store.Row{
		"chat_group_id": groupID,
		"role":          role,
		"content":       content,
		"created_at":    o.now().UTC().Format(time.RFC3339),
	})

	return id, nil
}

func (o *Ops) now() time.Time {
	if o.Clock == nil {
		return time.Now()
	}

	return o.Clock.Now()
}
