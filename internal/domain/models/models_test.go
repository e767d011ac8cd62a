package models

import (
	"sort"
	"testing"
	"time"

	"github.com/dalemusser/greencrew/internal/app/store"
)

func TestUserFromDoc(t *testing.T) {
	tests := []struct {
		name string
		doc  store.Document
		want User
	}{
		{
			name: "nil document",
			doc:  nil,
			want: User{},
		},
		{
			name: "empty document",
			doc:  store.Document{},
			want: User{},
		},
		{
			name: "full document",
			doc: store.Document{
				"uid":         "u1",
				"email":       "a@b.com",
				"displayName": "Ada",
				"photoURL":    "http://x/p.png",
				"teams":       map[string]any{"t1": "OWNER", "t2": "PENDING"},
			},
			want: User{
				UID:         "u1",
				Email:       "a@b.com",
				DisplayName: "Ada",
				PhotoURL:    "http://x/p.png",
				Teams:       map[string]string{"t1": "OWNER", "t2": "PENDING"},
			},
		},
		{
			name: "wrong-typed fields default",
			doc: store.Document{
				"uid":   42,
				"email": nil,
				"teams": "not a map",
			},
			want: User{},
		},
		{
			name: "non-string team statuses dropped",
			doc: store.Document{
				"uid":   "u1",
				"teams": map[string]any{"t1": "ACCEPTED", "t2": 7},
			},
			want: User{UID: "u1", Teams: map[string]string{"t1": "ACCEPTED"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserFromDoc(tt.doc)
			if got.UID != tt.want.UID || got.Email != tt.want.Email ||
				got.DisplayName != tt.want.DisplayName || got.PhotoURL != tt.want.PhotoURL {
				t.Errorf("UserFromDoc() = %+v, want %+v", got, tt.want)
			}
			if len(got.Teams) != len(tt.want.Teams) {
				t.Fatalf("Teams = %v, want %v", got.Teams, tt.want.Teams)
			}
			for k, v := range tt.want.Teams {
				if got.Teams[k] != v {
					t.Errorf("Teams[%q] = %q, want %q", k, got.Teams[k], v)
				}
			}
		})
	}
}

func TestUserAcceptedTeamIDs(t *testing.T) {
	u := User{Teams: map[string]string{
		"a": StatusOwner,
		"b": StatusPending,
		"c": StatusAccepted,
		"d": "REJECTED",
	}}
	got := u.AcceptedTeamIDs()
	sort.Strings(got)
	want := []string{"a", "c"}
	if len(got) != len(want) {
		t.Fatalf("AcceptedTeamIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AcceptedTeamIDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLocationFromDoc_Defaults(t *testing.T) {
	tests := []struct {
		name       string
		doc        store.Document
		wantActive bool
		wantNilCr  bool
	}{
		{"nil doc", nil, true, true},
		{"empty doc", store.Document{}, true, true},
		{"active absent", store.Document{"name": "x"}, true, true},
		{"active non-boolean", store.Document{"active": "yes"}, true, true},
		{"active false preserved", store.Document{"active": false}, false, true},
		{"unparseable created", store.Document{"created": "not a date"}, true, true},
		{"valid created", store.Document{"created": "2019-05-04T09:00:00Z"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LocationFromDoc(tt.doc)
			if got.Active != tt.wantActive {
				t.Errorf("Active = %v, want %v", got.Active, tt.wantActive)
			}
			if (got.Created == nil) != tt.wantNilCr {
				t.Errorf("Created = %v, want nil: %v", got.Created, tt.wantNilCr)
			}
		})
	}
}

func TestCoordinatesFromDoc(t *testing.T) {
	tests := []struct {
		name   string
		doc    store.Document
		want   Coordinates
		wantOK bool
	}{
		{"nil", nil, Coordinates{}, false},
		{"long keys", store.Document{"latitude": 44.26, "longitude": -72.58}, Coordinates{44.26, -72.58}, true},
		{"short keys", store.Document{"lat": 1.0, "lng": 2.0}, Coordinates{1, 2}, true},
		{"integer values", store.Document{"lat": 4, "lng": 5}, Coordinates{4, 5}, true},
		{"missing lng", store.Document{"lat": 1.0}, Coordinates{}, false},
		{"wrong types", store.Document{"lat": "x", "lng": "y"}, Coordinates{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoordinatesFromDoc(tt.doc)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("CoordinatesFromDoc() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMessageFromDoc(t *testing.T) {
	created := time.Date(2019, 5, 4, 9, 0, 0, 0, time.UTC)

	doc := store.Document{
		"id":      "m1",
		"text":    "hello",
		"sender":  map[string]any{"uid": "u1", "displayName": "Ada"},
		"teamId":  "t1",
		"type":    MessageTypeTeamMessage,
		"read":    true,
		"active":  false,
		"created": created.Format(time.RFC3339),
	}
	got := MessageFromDoc(doc)
	if got.ID != "m1" || got.Text != "hello" || got.TeamID != "t1" {
		t.Errorf("MessageFromDoc() = %+v", got)
	}
	if got.Sender.UID != "u1" {
		t.Errorf("Sender.UID = %q, want u1", got.Sender.UID)
	}
	if !got.Read || got.Active {
		t.Errorf("Read = %v, Active = %v; want true, false", got.Read, got.Active)
	}
	if got.Created == nil || !got.Created.Equal(created) {
		t.Errorf("Created = %v, want %v", got.Created, created)
	}

	// Defaults on an empty document: unread, active, no timestamp.
	empty := MessageFromDoc(store.Document{})
	if empty.Read || !empty.Active || empty.Created != nil {
		t.Errorf("empty message = %+v, want unread/active/nil created", empty)
	}
}

func TestInvitationFromDoc(t *testing.T) {
	doc := store.Document{
		"id": "t1",
		"team": map[string]any{
			"id":    "t1",
			"name":  "River Crew",
			"owner": map[string]any{"uid": "u9"},
		},
		"teamMember": map[string]any{"email": "new@member.org", "memberStatus": StatusPending},
		"sender":     map[string]any{"uid": "u9", "displayName": "Olga"},
		"created":    "2020-01-02T10:00:00Z",
	}
	got := InvitationFromDoc(doc)
	if got.ID != "t1" || got.Team.Name != "River Crew" || got.Team.Owner.UID != "u9" {
		t.Errorf("InvitationFromDoc() = %+v", got)
	}
	if got.TeamMember.MemberStatus != StatusPending {
		t.Errorf("TeamMember.MemberStatus = %q", got.TeamMember.MemberStatus)
	}
	if got.Created == nil {
		t.Error("Created = nil, want parsed time")
	}

	// Malformed nested shapes never panic.
	_ = InvitationFromDoc(store.Document{"team": "oops", "sender": 3, "created": false})
}

func TestTownFromDoc(t *testing.T) {
	doc := store.Document{
		"name": "Montpelier",
		"pickupLocations": []any{
			map[string]any{"name": "Green 1", "coordinates": map[string]any{"lat": 1.0, "lng": 2.0}},
			"not a location",
			map[string]any{"name": "Green 2"},
		},
	}
	got := TownFromDoc(doc, "town-7")
	if got.ID != "town-7" || got.Name != "Montpelier" {
		t.Errorf("TownFromDoc() = %+v", got)
	}
	if len(got.PickupLocations) != 2 {
		t.Fatalf("PickupLocations = %d, want 2 (malformed entry dropped)", len(got.PickupLocations))
	}
	if got.PickupLocations[0].Coordinates == nil {
		t.Error("PickupLocations[0].Coordinates = nil, want parsed pair")
	}
}

func TestTeamMemberFromUser(t *testing.T) {
	u := User{UID: "u1", Email: "a@b.com", DisplayName: "Ada", PhotoURL: "p"}
	m := TeamMemberFromUser(u, StatusOwner)
	if m.UID != "u1" || m.Email != "a@b.com" || m.MemberStatus != StatusOwner {
		t.Errorf("TeamMemberFromUser() = %+v", m)
	}
}
