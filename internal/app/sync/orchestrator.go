package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/greencrew/internal/app/store"
	"github.com/dalemusser/greencrew/internal/app/system/normalize"
	"github.com/dalemusser/greencrew/internal/app/system/timeouts"
	"github.com/dalemusser/greencrew/internal/domain/models"
	"go.uber.org/zap"
)

// Orchestrator establishes the baseline subscriptions for an
// authenticated session and cascades: profile data spawns per-team
// member and message subscriptions, invitation data spawns per-team
// member subscriptions. It is a reactive function from snapshot streams
// to sink emissions and registry mutations, so tests drive it with a
// fake store and synthetic snapshots.
type Orchestrator struct {
	store    store.DocumentStore
	registry *Registry
	muts     *Mutations
	sink     Sink
	log      *zap.Logger
}

// NewOrchestrator wires an orchestrator. The registry instance is shared
// with the session lifecycle controller, which owns full teardown.
func NewOrchestrator(st store.DocumentStore, reg *Registry, muts *Mutations, sink Sink, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:    st,
		registry: reg,
		muts:     muts,
		sink:     sink,
		log:      logger,
	}
}

// Begin establishes the baseline subscriptions for the session. The
// baseline keys are independent; setup failures are logged and joined
// into the returned error but do not stop the remaining subscriptions.
func (o *Orchestrator) Begin(user models.User) error {
	var errs []error
	for _, setup := range []func() error{
		func() error { return o.subscribeProfile(user) },
		func() error { return o.subscribeUserMessages(user.UID) },
		func() error { return o.subscribeTeams() },
		func() error { return o.subscribeTrashDrops() },
		func() error { return o.subscribeInvitations(user.Email) },
		func() error { return o.subscribeTowns() },
	} {
		if err := setup(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

/* ───────────────────────── baseline listeners ───────────────────────── */

func (o *Orchestrator) subscribeProfile(user models.User) error {
	key := "profile_" + user.UID
	return o.registry.Subscribe(key, func() (store.Unsubscribe, error) {
		return o.store.SubscribeToDocument(store.ProfilePath(user.UID), func(doc store.Doc, exists bool) {
			o.onProfileSnapshot(user, doc, exists)
		})
	})
}

// onProfileSnapshot runs on every profile fire. A missing profile means a
// fresh account: create it (write-through) instead of emitting sync
// events; the creation itself triggers the next fire.
func (o *Orchestrator) onProfileSnapshot(user models.User, doc store.Doc, exists bool) {
	if !exists {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
		defer cancel()
		if err := o.muts.CreateProfile(ctx, user); err != nil {
			o.log.Error("profile creation failed", zap.String("uid", user.UID), zap.Error(err))
			o.sink.Emit(Event{Type: EventProfileCreateFailed, Err: err})
		}
		return
	}

	profile := models.UserFromDoc(doc.Data)
	if profile.UID == "" {
		profile.UID = doc.ID
	}

	for _, teamID := range profile.AcceptedTeamIDs() {
		o.subscribeTeamMessages(teamID)
	}

	o.sink.Emit(Event{Type: EventProfileFetched, Profile: &profile})

	// Member lists are watched for every team on the profile regardless
	// of status, so pending memberships show up too.
	for _, teamID := range profile.TeamIDs() {
		o.subscribeTeamMembers(teamID)
	}
}

func (o *Orchestrator) subscribeUserMessages(uid string) error {
	key := "message_" + uid + "_messages"
	return o.registry.Subscribe(key, func() (store.Unsubscribe, error) {
		return o.store.SubscribeToCollection(store.UserMessagesPath(uid), func(docs []store.Doc) {
			o.sink.Emit(Event{
				Type:     EventMessageFetched,
				Scope:    uid,
				Messages: messagesByID(docs),
			})
		})
	})
}

func (o *Orchestrator) subscribeTeams() error {
	return o.registry.Subscribe("teams", func() (store.Unsubscribe, error) {
		return o.store.SubscribeToCollection(store.TeamsPath(), func(docs []store.Doc) {
			teams := make(map[string]models.Team, len(docs))
			for _, d := range docs {
				team := models.TeamFromDoc(d.Data)
				if team.ID == "" {
					team.ID = d.ID
				}
				teams[d.ID] = team
			}
			o.sink.Emit(Event{Type: EventTeamFetched, Teams: teams})
		})
	})
}

func (o *Orchestrator) subscribeTrashDrops() error {
	return o.registry.Subscribe("trashDrops", func() (store.Unsubscribe, error) {
		return o.store.SubscribeToCollection(store.TrashDropsPath(), func(docs []store.Doc) {
			drops := make([]store.Document, 0, len(docs))
			for _, d := range docs {
				drops = append(drops, withID(d))
			}
			o.sink.Emit(Event{Type: EventTrashDropFetched, TrashDrops: drops})
		})
	})
}

func (o *Orchestrator) subscribeTowns() error {
	return o.registry.Subscribe("towns", func() (store.Unsubscribe, error) {
		return o.store.SubscribeToCollection(store.TownsPath(), func(docs []store.Doc) {
			towns := make(map[string]models.Town, len(docs))
			for _, d := range docs {
				towns[d.ID] = models.TownFromDoc(d.Data, d.ID)
			}
			o.sink.Emit(Event{Type: EventTownDataFetched, Towns: towns})
		})
	})
}

func (o *Orchestrator) subscribeInvitations(email string) error {
	addr := normalize.Email(email)
	key := "invitations_" + addr + "_teams"
	return o.registry.Subscribe(key, func() (store.Unsubscribe, error) {
		return o.store.SubscribeToCollection(store.InvitationsPath(addr), o.onInvitationSnapshot)
	})
}

// onInvitationSnapshot maps the invitation set, synthesizes a "you were
// invited" message per invitation, and watches each inviting team's
// member list so the recipient sees roster changes before accepting.
func (o *Orchestrator) onInvitationSnapshot(docs []store.Doc) {
	invitations := make(map[string]models.Invitation, len(docs))
	messages := make(map[string]models.Message, len(docs))
	for _, d := range docs {
		inv := models.InvitationFromDoc(withID(d))
		invitations[inv.ID] = inv
		messages[inv.ID] = models.Message{
			ID:      inv.ID,
			Text:    fmt.Sprintf("%s has invited you to join team : %s", inv.Sender.DisplayName, inv.Team.Name),
			Sender:  inv.Sender,
			TeamID:  inv.Team.ID,
			Type:    models.MessageTypeInvitation,
			Read:    false,
			Active:  true,
			Created: inv.Created,
		}
	}

	for teamID := range invitations {
		o.subscribeInvitedTeamMembers(teamID)
	}

	o.sink.Emit(Event{Type: EventMessageFetched, Scope: "invitations", Messages: messages})
	o.sink.Emit(Event{Type: EventInvitationFetched, Invitations: invitations})
}

/* ───────────────────────── cascaded listeners ───────────────────────── */

func (o *Orchestrator) subscribeTeamMessages(teamID string) {
	key := "team_" + teamID + "_messages"
	err := o.registry.Subscribe(key, func() (store.Unsubscribe, error) {
		return o.store.SubscribeToCollection(store.TeamMessagesPath(teamID), func(docs []store.Doc) {
			o.sink.Emit(Event{
				Type:     EventMessageFetched,
				Scope:    teamID,
				Messages: messagesByID(docs),
			})
		})
	})
	if err != nil {
		o.log.Error("team message listener setup failed", zap.String("team_id", teamID), zap.Error(err))
	}
}

func (o *Orchestrator) subscribeTeamMembers(teamID string) {
	o.subscribeMembers("team_"+teamID+"_members", teamID)
}

func (o *Orchestrator) subscribeInvitedTeamMembers(teamID string) {
	o.subscribeMembers("teamMembers_"+teamID+"_members", teamID)
}

func (o *Orchestrator) subscribeMembers(key, teamID string) {
	err := o.registry.Subscribe(key, func() (store.Unsubscribe, error) {
		return o.store.SubscribeToCollection(store.TeamMembersPath(teamID), func(docs []store.Doc) {
			members := make(map[string]models.TeamMember, len(docs))
			for _, d := range docs {
				m := models.TeamMemberFromDoc(d.Data)
				if m.UID == "" {
					m.UID = d.ID
				}
				members[d.ID] = m
			}
			o.sink.Emit(Event{Type: EventTeamMemberFetched, TeamID: teamID, Members: members})
		})
	})
	if err != nil {
		o.log.Error("team member listener setup failed", zap.String("team_id", teamID), zap.Error(err))
	}
}

/* ───────────────────────── helpers ───────────────────────── */

// withID returns the document data with the remote document key injected
// under "id", the way every snapshot consumer expects it.
func withID(d store.Doc) store.Document {
	out := make(store.Document, len(d.Data)+1)
	for k, v := range d.Data {
		out[k] = v
	}
	out["id"] = d.ID
	return out
}

func messagesByID(docs []store.Doc) map[string]models.Message {
	messages := make(map[string]models.Message, len(docs))
	for _, d := range docs {
		messages[d.ID] = models.MessageFromDoc(withID(d))
	}
	return messages
}
