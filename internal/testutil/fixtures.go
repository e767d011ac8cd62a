package testutil

import (
	"time"

	"github.com/dalemusser/greencrew/internal/app/store"
)

// Fixture document builders. These mirror the denormalized shapes the
// remote collections actually hold.

// ProfileDoc builds a profiles/{uid} document.
func ProfileDoc(uid, email, displayName string, teams map[string]string) store.Document {
	teamsAny := make(map[string]any, len(teams))
	for k, v := range teams {
		teamsAny[k] = v
	}
	return store.Document{
		"uid":         uid,
		"email":       email,
		"displayName": displayName,
		"photoURL":    "",
		"teams":       teamsAny,
	}
}

// TeamDoc builds a teams/{teamId} document with an embedded owner copy.
func TeamDoc(id, name, ownerUID, ownerEmail string) store.Document {
	return store.Document{
		"id":   id,
		"name": name,
		"owner": map[string]any{
			"uid":         ownerUID,
			"email":       ownerEmail,
			"displayName": "Owner of " + name,
		},
	}
}

// MemberDoc builds a teamMembers/{teamId}/members/{uid} document.
func MemberDoc(uid, email, status string) store.Document {
	return store.Document{
		"uid":          uid,
		"email":        email,
		"displayName":  email,
		"memberStatus": status,
	}
}

// InvitationDoc builds an invitations/{email}/teams/{teamId} document.
func InvitationDoc(teamID, teamName, senderUID, senderName, recipientEmail string) store.Document {
	return store.Document{
		"id": teamID,
		"team": map[string]any{
			"id":   teamID,
			"name": teamName,
			"owner": map[string]any{
				"uid":         senderUID,
				"displayName": senderName,
			},
		},
		"teamMember": map[string]any{
			"email":        recipientEmail,
			"memberStatus": "PENDING",
		},
		"sender": map[string]any{
			"uid":         senderUID,
			"displayName": senderName,
		},
		"created": time.Date(2024, 4, 20, 9, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}
}

// MessageDoc builds a message document.
func MessageDoc(id, text, senderUID string) store.Document {
	return store.Document{
		"id":     id,
		"text":   text,
		"sender": map[string]any{"uid": senderUID},
		"type":   "NOTICE",
		"read":   false,
		"active": true,
	}
}
