package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by UpdateDocument when the target is absent.
var ErrNotFound = errors.New("document not found")

// ErrBadPath is returned for empty or malformed paths.
var ErrBadPath = errors.New("malformed document path")

// Path builders for the fixed collection layout. Centralizing these keeps
// the wire layout in one place.

func ProfilePath(uid string) string { return "profiles/" + uid }

func TeamsPath() string             { return "teams" }
func TeamPath(teamID string) string { return "teams/" + teamID }

func TeamMembersPath(teamID string) string { return "teamMembers/" + teamID + "/members" }
func TeamMemberPath(teamID, memberID string) string {
	return "teamMembers/" + teamID + "/members/" + memberID
}
func TeamMembersContainerPath(teamID string) string { return "teamMembers/" + teamID }

func InvitationsPath(email string) string { return "invitations/" + email + "/teams" }
func InvitationPath(email, teamID string) string {
	return "invitations/" + email + "/teams/" + teamID
}

func UserMessagesPath(uid string) string { return "messages/" + uid + "/messages" }
func UserMessagePath(uid, messageID string) string {
	return "messages/" + uid + "/messages/" + messageID
}

func TeamMessagesPath(teamID string) string { return "teams/" + teamID + "/messages" }

func TeamLocationsPath(teamID string) string { return "teams/" + teamID + "/locations" }

func TrashDropsPath() string         { return "trashDrops" }
func TrashDropPath(id string) string { return "trashDrops/" + id }
func TownsPath() string              { return "towns" }

// SplitPath validates and splits a slash path into its segments.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrBadPath
	}
	segs := strings.Split(path, "/")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadPath, path)
		}
	}
	return segs, nil
}

// IsDocumentPath reports whether the path addresses a document (an even
// number of segments) rather than a collection.
func IsDocumentPath(path string) bool {
	segs := strings.Split(path, "/")
	return len(segs)%2 == 0
}
