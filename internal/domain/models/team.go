// internal/domain/models/team.go
package models

import "github.com/dalemusser/greencrew/internal/app/store"

// Team is the document stored at teams/{teamId}. Owner is always an
// embedded copy of the owner's profile, not a reference.
type Team struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Town        string `json:"town"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	IsPublic    bool   `json:"isPublic"`
	Owner       User   `json:"owner"`
}

// TeamFromDoc builds a Team from a raw team document.
func TeamFromDoc(d store.Document) Team {
	if d == nil {
		return Team{}
	}
	return Team{
		ID:          docString(d, "id"),
		Name:        docString(d, "name"),
		Description: docString(d, "description"),
		Town:        docString(d, "town"),
		Email:       docString(d, "email"),
		Phone:       docString(d, "phone"),
		IsPublic:    docBool(d, "isPublic", false),
		Owner:       UserFromDoc(docMap(d, "owner")),
	}
}
