package sync_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/greencrew/internal/app/store"
	"github.com/dalemusser/greencrew/internal/app/sync"
	"github.com/dalemusser/greencrew/internal/domain/models"
	"github.com/dalemusser/greencrew/internal/testutil"
	"go.uber.org/zap"
)

func newMutations(t *testing.T) (*sync.Mutations, *testutil.FakeStore) {
	t.Helper()
	fs := testutil.NewFakeStore()
	return sync.NewMutations(fs, zap.NewNop()), fs
}

func TestCreateTeamChain(t *testing.T) {
	muts, fs := newMutations(t)
	ctx := context.Background()

	owner := models.User{UID: "u1", Email: "ada@crew.org", DisplayName: "Ada",
		Teams: map[string]string{"old": models.StatusAccepted}}
	fs.Seed("profiles/u1", testutil.ProfileDoc("u1", "ada@crew.org", "Ada",
		map[string]string{"old": models.StatusAccepted}))

	teamID, err := muts.CreateTeam(ctx, models.Team{Name: "Green Team", Owner: owner}, owner)
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if teamID == "" {
		t.Fatal("no generated team id")
	}

	if _, ok := fs.Doc("teams/" + teamID); !ok {
		t.Error("team document missing")
	}
	member, ok := fs.Doc("teamMembers/" + teamID + "/members/u1")
	if !ok {
		t.Fatal("owner member record missing")
	}
	if member["memberStatus"] != models.StatusOwner {
		t.Errorf("owner memberStatus = %v", member["memberStatus"])
	}
	profile, _ := fs.Doc("profiles/u1")
	teams := profile["teams"].(map[string]any)
	if teams[teamID] != models.StatusOwner || teams["old"] != models.StatusAccepted {
		t.Errorf("profile teams = %v", teams)
	}
}

// A later step failing leaves the earlier writes applied and surfaces
// the error — there is no rollback.
func TestCreateTeamPartialFailure(t *testing.T) {
	muts, fs := newMutations(t)
	ctx := context.Background()

	owner := models.User{UID: "u1", Email: "ada@crew.org"}
	fs.Fail("update", "profiles/u1", errTest)
	fs.Seed("profiles/u1", testutil.ProfileDoc("u1", "ada@crew.org", "Ada", nil))

	teamID, err := muts.CreateTeam(ctx, models.Team{Name: "Green Team", Owner: owner}, owner)
	if err == nil {
		t.Fatal("CreateTeam succeeded despite profile update failure")
	}
	if _, ok := fs.Doc("teams/" + teamID); !ok {
		t.Error("earlier team write was not applied")
	}
	if _, ok := fs.Doc("teamMembers/" + teamID + "/members/u1"); !ok {
		t.Error("earlier member write was not applied")
	}
}

// Best-effort add-member: if the profile update fails while the other
// three writes succeed, the call still resolves and the inconsistency
// (member record exists, profile not updated) is observable.
func TestAddTeamMemberBestEffort(t *testing.T) {
	muts, fs := newMutations(t)
	ctx := context.Background()

	user := models.User{UID: "u2", Email: "Bo@Crew.ORG", DisplayName: "Bo"}
	fs.Seed("profiles/u2", testutil.ProfileDoc("u2", "bo@crew.org", "Bo", nil))
	fs.Seed("invitations/bo@crew.org/teams/T1",
		testutil.InvitationDoc("T1", "Green Team", "u1", "Ada", "bo@crew.org"))
	fs.Fail("update", "profiles/u2", errTest)

	if err := muts.AddTeamMember(ctx, "T1", user, ""); err != nil {
		t.Fatalf("AddTeamMember rejected: %v", err)
	}

	if _, ok := fs.Doc("teamMembers/T1/members/u2"); !ok {
		t.Error("member record missing")
	}
	if _, ok := fs.Doc("teamMembers/T1/members/bo@crew.org"); !ok {
		t.Error("legacy email-keyed record missing")
	}
	if _, ok := fs.Doc("invitations/bo@crew.org/teams/T1"); ok {
		t.Error("invitation not deleted")
	}
	// The observable inconsistency: profile teams map unchanged.
	profile, _ := fs.Doc("profiles/u2")
	if teams, ok := profile["teams"].(map[string]any); ok {
		if _, has := teams["T1"]; has {
			t.Error("profile teams updated despite scripted failure")
		}
	}
}

func TestAddTeamMemberDefaultsToAccepted(t *testing.T) {
	muts, fs := newMutations(t)
	fs.Seed("profiles/u2", testutil.ProfileDoc("u2", "bo@crew.org", "Bo", nil))

	user := models.User{UID: "u2", Email: "bo@crew.org"}
	if err := muts.AddTeamMember(context.Background(), "T1", user, ""); err != nil {
		t.Fatal(err)
	}
	member, _ := fs.Doc("teamMembers/T1/members/u2")
	if member["memberStatus"] != models.StatusAccepted {
		t.Errorf("memberStatus = %v, want ACCEPTED", member["memberStatus"])
	}
	profile, _ := fs.Doc("profiles/u2")
	if profile["teams"].(map[string]any)["T1"] != models.StatusAccepted {
		t.Errorf("profile teams = %v", profile["teams"])
	}
}

// Invitation writes happen in order: invitation first, member stub second,
// both keyed by the normalized recipient email.
func TestInviteTeamMemberOrderAndNormalization(t *testing.T) {
	muts, fs := newMutations(t)

	inv := models.Invitation{
		Team:       models.Team{ID: "T1", Name: "Green Team"},
		TeamMember: models.TeamMember{Email: "  New@Member.ORG "},
		Sender:     models.User{UID: "u1", DisplayName: "Ada"},
	}
	if err := muts.InviteTeamMember(context.Background(), inv); err != nil {
		t.Fatalf("InviteTeamMember: %v", err)
	}

	writes := fs.Writes()
	if len(writes) != 2 {
		t.Fatalf("writes = %d, want 2", len(writes))
	}
	if writes[0].Path != "invitations/new@member.org/teams/T1" {
		t.Errorf("first write path = %q", writes[0].Path)
	}
	if writes[1].Path != "teamMembers/T1/members/new@member.org" {
		t.Errorf("second write path = %q", writes[1].Path)
	}
	if writes[1].Data["memberStatus"] != models.StatusPending {
		t.Errorf("stub status = %v, want PENDING", writes[1].Data["memberStatus"])
	}
	if _, ok := writes[0].Data["created"].(string); !ok {
		t.Errorf("invitation created = %T, want string", writes[0].Data["created"])
	}
}

func TestLeaveTeamSequence(t *testing.T) {
	muts, fs := newMutations(t)
	ctx := context.Background()

	user := models.User{UID: "u2", Email: "bo@crew.org",
		Teams: map[string]string{"T1": models.StatusAccepted, "T2": models.StatusOwner}}
	fs.Seed("profiles/u2", testutil.ProfileDoc("u2", "bo@crew.org", "Bo", user.Teams))
	fs.Seed("teamMembers/T1/members/u2", testutil.MemberDoc("u2", "bo@crew.org", models.StatusAccepted))

	if err := muts.LeaveTeam(ctx, "T1", user); err != nil {
		t.Fatalf("LeaveTeam: %v", err)
	}
	if _, ok := fs.Doc("teamMembers/T1/members/u2"); ok {
		t.Error("member record still present")
	}
	profile, _ := fs.Doc("profiles/u2")
	teams := profile["teams"].(map[string]any)
	if _, has := teams["T1"]; has {
		t.Error("T1 still on profile")
	}
	if teams["T2"] != models.StatusOwner {
		t.Errorf("unrelated membership lost: %v", teams)
	}
}

func TestLeaveTeamStopsOnFirstFailure(t *testing.T) {
	muts, fs := newMutations(t)
	user := models.User{UID: "u2", Email: "bo@crew.org", Teams: map[string]string{"T1": models.StatusAccepted}}
	fs.Seed("profiles/u2", testutil.ProfileDoc("u2", "bo@crew.org", "Bo", user.Teams))
	fs.Fail("delete", "teamMembers/T1/members/u2", errTest)

	if err := muts.LeaveTeam(context.Background(), "T1", user); err == nil {
		t.Fatal("LeaveTeam succeeded despite delete failure")
	}
	// Second step must not have run.
	if len(fs.WritesTo("profiles/u2")) != 0 {
		t.Error("profile updated although member delete failed")
	}
}

func TestRevokeInvitationSequence(t *testing.T) {
	muts, fs := newMutations(t)
	fs.Seed("teamMembers/T1/members/bo@crew.org", testutil.MemberDoc("", "bo@crew.org", models.StatusPending))
	fs.Seed("invitations/bo@crew.org/teams/T1",
		testutil.InvitationDoc("T1", "Green Team", "u1", "Ada", "bo@crew.org"))

	if err := muts.RevokeInvitation(context.Background(), "T1", "Bo@Crew.org"); err != nil {
		t.Fatalf("RevokeInvitation: %v", err)
	}
	if _, ok := fs.Doc("teamMembers/T1/members/bo@crew.org"); ok {
		t.Error("member stub still present")
	}
	if _, ok := fs.Doc("invitations/bo@crew.org/teams/T1"); ok {
		t.Error("invitation still present")
	}
}

func TestUpdateProfileFansOutToTeams(t *testing.T) {
	muts, fs := newMutations(t)
	ctx := context.Background()

	profile := models.User{UID: "u1", Email: "ada@crew.org", DisplayName: "Ada Renamed",
		Teams: map[string]string{"T1": models.StatusOwner, "T2": models.StatusAccepted}}
	members := map[string]map[string]models.TeamMember{
		"T1": {"u1": {UID: "u1", MemberStatus: models.StatusOwner}},
		"T2": {"u1": {UID: "u1", MemberStatus: models.StatusAccepted}},
	}

	if err := muts.UpdateProfile(ctx, profile, members); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	doc, _ := fs.Doc("profiles/u1")
	if doc["displayName"] != "Ada Renamed" {
		t.Errorf("profile displayName = %v", doc["displayName"])
	}
	if _, ok := doc["updated"].(string); !ok {
		t.Errorf("updated = %T, want string", doc["updated"])
	}
	for teamID, wantStatus := range map[string]string{"T1": models.StatusOwner, "T2": models.StatusAccepted} {
		member, ok := fs.Doc("teamMembers/" + teamID + "/members/u1")
		if !ok {
			t.Fatalf("member record for %s missing", teamID)
		}
		if member["displayName"] != "Ada Renamed" || member["memberStatus"] != wantStatus {
			t.Errorf("member %s = %v", teamID, member)
		}
	}
}

func TestUpdateProfileAggregatesFailures(t *testing.T) {
	muts, fs := newMutations(t)
	fs.Fail("set", "teamMembers/T1/members/u1", errTest)

	profile := models.User{UID: "u1", Email: "ada@crew.org", Teams: map[string]string{"T1": models.StatusOwner}}
	members := map[string]map[string]models.TeamMember{
		"T1": {"u1": {UID: "u1", MemberStatus: models.StatusOwner}},
	}
	err := muts.UpdateProfile(context.Background(), profile, members)
	if err == nil {
		t.Fatal("UpdateProfile resolved despite member write failure")
	}
	// The independent profile write still landed.
	if _, ok := fs.Doc("profiles/u1"); !ok {
		t.Error("profile write was not applied")
	}
}

func TestSendUserMessageSanitizesAndStamps(t *testing.T) {
	muts, fs := newMutations(t)

	id, err := muts.SendUserMessage(context.Background(), "u2", models.Message{
		Text:   `Cleanup <script>alert("x")</script> at noon`,
		Sender: models.User{UID: "u1"},
		Type:   models.MessageTypeNotice,
		Active: true,
	})
	if err != nil {
		t.Fatalf("SendUserMessage: %v", err)
	}
	doc, ok := fs.Doc("messages/u2/messages/" + id)
	if !ok {
		t.Fatal("message document missing")
	}
	if doc["text"] != "Cleanup  at noon" {
		t.Errorf("text = %q, markup not stripped", doc["text"])
	}
	created, ok := doc["created"].(string)
	if !ok {
		t.Fatalf("created = %T, want string", doc["created"])
	}
	if _, err := time.Parse(time.RFC3339Nano, created); err != nil {
		t.Errorf("created %q not RFC3339: %v", created, err)
	}
}

func TestSendGroupMessageFansOut(t *testing.T) {
	muts, fs := newMutations(t)

	muts.SendGroupMessage(context.Background(), []string{"u2", "u3"}, models.Message{
		Text: "meet at the bridge", Sender: models.User{UID: "u1"}, Active: true,
	})

	for _, uid := range []string{"u2", "u3"} {
		found := false
		for _, w := range fs.Writes() {
			if w.Op == "add" && strings.HasPrefix(w.Path, "messages/"+uid+"/messages/") {
				found = true
			}
		}
		if !found {
			t.Errorf("no message written for %s", uid)
		}
	}
}

func TestDeleteTeamRemovesSubcollections(t *testing.T) {
	muts, fs := newMutations(t)
	ctx := context.Background()

	fs.Seed("teams/T1", testutil.TeamDoc("T1", "Green Team", "u1", "ada@crew.org"))
	fs.Seed("teams/T1/messages/m1", testutil.MessageDoc("m1", "hi", "u1"))
	fs.Seed("teamMembers/T1/members/u1", testutil.MemberDoc("u1", "ada@crew.org", models.StatusOwner))

	if err := muts.DeleteTeam(ctx, "T1"); err != nil {
		t.Fatalf("DeleteTeam: %v", err)
	}
	for _, path := range []string{"teams/T1", "teams/T1/messages/m1", "teamMembers/T1/members/u1"} {
		if _, ok := fs.Doc(path); ok {
			t.Errorf("%s still present", path)
		}
	}
}

func TestDropTrashStringifiesDates(t *testing.T) {
	muts, fs := newMutations(t)

	when := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	id, err := muts.DropTrash(context.Background(), store.Document{
		"bagCount": 3,
		"location": map[string]any{"coordinates": map[string]any{"lat": 44.2, "lng": -72.5}},
		"created":  when,
	})
	if err != nil {
		t.Fatalf("DropTrash: %v", err)
	}
	doc, _ := fs.Doc("trashDrops/" + id)
	if _, ok := doc["created"].(string); !ok {
		t.Errorf("created = %T, want string", doc["created"])
	}
}

func TestUpdateTrashDropRequiresUID(t *testing.T) {
	muts, fs := newMutations(t)

	if err := muts.UpdateTrashDrop(context.Background(), store.Document{"bagCount": 1}); err == nil {
		t.Error("UpdateTrashDrop accepted a drop without uid")
	}
	if err := muts.UpdateTrashDrop(context.Background(), store.Document{"uid": "d1", "bagCount": 1}); err != nil {
		t.Fatalf("UpdateTrashDrop: %v", err)
	}
	if _, ok := fs.Doc("trashDrops/d1"); !ok {
		t.Error("trash drop not written")
	}
}
