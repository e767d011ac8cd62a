// internal/domain/models/teammember.go
package models

import "github.com/dalemusser/greencrew/internal/app/store"

// TeamMember is a member record stored keyed by uid (or, for pending
// invitations, by normalized email) under teamMembers/{teamId}/members.
// It embeds a denormalized copy of the member's profile fields.
type TeamMember struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoURL"`
	MemberStatus string `json:"memberStatus"`
}

// TeamMemberFromDoc builds a TeamMember from a raw member document.
func TeamMemberFromDoc(d store.Document) TeamMember {
	if d == nil {
		return TeamMember{}
	}
	return TeamMember{
		UID:          docString(d, "uid"),
		Email:        docString(d, "email"),
		DisplayName:  docString(d, "displayName"),
		PhotoURL:     docString(d, "photoURL"),
		MemberStatus: docString(d, "memberStatus"),
	}
}

// TeamMemberFromUser derives a member record from a profile, which is how
// membership records stay in sync when a profile changes.
func TeamMemberFromUser(u User, status string) TeamMember {
	return TeamMember{
		UID:          u.UID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		PhotoURL:     u.PhotoURL,
		MemberStatus: status,
	}
}
