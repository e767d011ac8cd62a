// internal/domain/models/message.go
package models

import (
	"time"

	"github.com/dalemusser/greencrew/internal/app/store"
)

// Message is a per-user or per-team message document.
type Message struct {
	ID      string     `json:"id"`
	Text    string     `json:"text"`
	Sender  User       `json:"sender"`
	TeamID  string     `json:"teamId,omitempty"`
	UserID  string     `json:"userId,omitempty"`
	Type    string     `json:"type"`
	Read    bool       `json:"read"`
	Active  bool       `json:"active"`
	Link    string     `json:"link,omitempty"`
	Created *time.Time `json:"created,omitempty"`
}

// MessageFromDoc builds a Message from a raw message document. Read
// defaults to false and Active to true when absent or wrong-typed.
func MessageFromDoc(d store.Document) Message {
	if d == nil {
		return Message{}
	}
	return Message{
		ID:      docString(d, "id"),
		Text:    docString(d, "text"),
		Sender:  UserFromDoc(docMap(d, "sender")),
		TeamID:  docString(d, "teamId"),
		UserID:  docString(d, "userId"),
		Type:    docString(d, "type"),
		Read:    docBool(d, "read", false),
		Active:  docBool(d, "active", true),
		Link:    docString(d, "link"),
		Created: docTime(d, "created"),
	}
}
