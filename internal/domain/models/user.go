// internal/domain/models/user.go
package models

import "github.com/dalemusser/greencrew/internal/app/store"

// User is the profile document stored at profiles/{uid}.
//
// NOTE:
//   - Team membership is denormalized: the Teams map here duplicates what
//     the teamMembers/{teamId}/members subcollections and pending
//     invitations record. The sync layer keeps the three views converging;
//     transient disagreement between them is expected.
type User struct {
	UID         string            `json:"uid"`
	Email       string            `json:"email"`
	DisplayName string            `json:"displayName"`
	PhotoURL    string            `json:"photoURL"`
	Teams       map[string]string `json:"teams,omitempty"` // teamID -> membership status
}

// UserFromDoc builds a User from a raw profile document, defaulting absent
// or wrong-typed fields.
func UserFromDoc(d store.Document) User {
	if d == nil {
		return User{}
	}
	return User{
		UID:         docString(d, "uid"),
		Email:       docString(d, "email"),
		DisplayName: docString(d, "displayName"),
		PhotoURL:    docString(d, "photoURL"),
		Teams:       docStringMap(d, "teams"),
	}
}

// AcceptedTeamIDs returns the ids of teams where the user's status is
// ACCEPTED or OWNER.
func (u User) AcceptedTeamIDs() []string {
	var ids []string
	for id, status := range u.Teams {
		if status == StatusAccepted || status == StatusOwner {
			ids = append(ids, id)
		}
	}
	return ids
}

// TeamIDs returns every team id present in the profile regardless of status.
func (u User) TeamIDs() []string {
	ids := make([]string, 0, len(u.Teams))
	for id := range u.Teams {
		ids = append(ids, id)
	}
	return ids
}
