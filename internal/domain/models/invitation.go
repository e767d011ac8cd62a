// internal/domain/models/invitation.go
package models

import (
	"time"

	"github.com/dalemusser/greencrew/internal/app/store"
)

// Invitation is stored at invitations/{email}/teams/{teamId}, keyed by the
// normalized (lower-cased) recipient email. Its id equals the team id.
type Invitation struct {
	ID         string     `json:"id"`
	Team       Team       `json:"team"`
	TeamMember TeamMember `json:"teamMember"`
	Sender     User       `json:"sender"`
	Created    *time.Time `json:"created,omitempty"`
}

// InvitationFromDoc builds an Invitation from a raw invitation document.
func InvitationFromDoc(d store.Document) Invitation {
	if d == nil {
		return Invitation{}
	}
	return Invitation{
		ID:         docString(d, "id"),
		Team:       TeamFromDoc(docMap(d, "team")),
		TeamMember: TeamMemberFromDoc(docMap(d, "teamMember")),
		Sender:     UserFromDoc(docMap(d, "sender")),
		Created:    docTime(d, "created"),
	}
}
