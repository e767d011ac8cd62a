package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/dalemusser/greencrew/internal/app/store"
	"github.com/dalemusser/greencrew/internal/app/system/mailer"
	"github.com/dalemusser/greencrew/internal/app/system/normalize"
	"github.com/dalemusser/greencrew/internal/domain/models"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Mutations is the write-side API over the remote document store. The
// store offers no multi-document transactions, so every multi-collection
// operation here is an ordered sequence (or concurrent set) of
// independent writes with no rollback; the per-operation doc comments
// state the partial-failure behavior.
type Mutations struct {
	store    store.DocumentStore
	log      *zap.Logger
	sanitize *bluemonday.Policy
	now      func() time.Time
	mail     *mailer.Mailer
	siteName string
}

// NewMutations creates the write-side API. Outbound message text is
// stripped of all markup before transmission.
func NewMutations(st store.DocumentStore, logger *zap.Logger) *Mutations {
	return &Mutations{
		store:    st,
		log:      logger,
		sanitize: bluemonday.StrictPolicy(),
		now:      time.Now,
	}
}

// SetMailer enables best-effort invitation notices. Without it (and in
// tests) invitations are written but no email goes out.
func (m *Mutations) SetMailer(mail *mailer.Mailer, siteName string) {
	m.mail = mail
	m.siteName = siteName
}

/* ───────────────────────── profiles ───────────────────────── */

// UpdateProfile writes the profile document and, for every team the
// caller belongs to, a derived member record embedding the updated
// profile fields. All writes run concurrently; the call returns only when
// all have settled, and any failure surfaces in the joined error. Writes
// that already landed are not rolled back.
func (m *Mutations) UpdateProfile(ctx context.Context, profile models.User, teamMembers map[string]map[string]models.TeamMember) error {
	doc, err := Deconstruct(profile)
	if err != nil {
		return err
	}
	doc["updated"] = m.now().Format(time.RFC3339Nano)

	var (
		wg   gosync.WaitGroup
		mu   gosync.Mutex
		errs []error
	)
	record := func(err error) {
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		record(m.store.SetDocument(ctx, store.ProfilePath(profile.UID), doc))
	}()

	for teamID, members := range teamMembers {
		status := members[profile.UID].MemberStatus
		member := models.TeamMemberFromUser(profile, status)
		wg.Add(1)
		go func(teamID string, member models.TeamMember) {
			defer wg.Done()
			memberDoc, err := Deconstruct(member)
			if err != nil {
				record(err)
				return
			}
			record(m.store.SetDocument(ctx, store.TeamMemberPath(teamID, profile.UID), memberDoc))
		}(teamID, member)
	}

	wg.Wait()
	return errors.Join(errs...)
}

// CreateProfile writes a fresh profile document with creation timestamps.
func (m *Mutations) CreateProfile(ctx context.Context, user models.User) error {
	doc, err := Deconstruct(user)
	if err != nil {
		return err
	}
	now := m.now().Format(time.RFC3339Nano)
	doc["created"] = now
	doc["updated"] = now
	return m.store.SetDocument(ctx, store.ProfilePath(user.UID), doc)
}

/* ───────────────────────── teams ───────────────────────── */

// CreateTeam writes the team document, then the owner's member record,
// then marks the owner's profile. Each step depends on the generated team
// id; a later failure leaves the earlier writes applied and is returned.
func (m *Mutations) CreateTeam(ctx context.Context, team models.Team, owner models.User) (string, error) {
	doc, err := Deconstruct(team)
	if err != nil {
		return "", err
	}
	teamID, err := m.store.AddDocument(ctx, store.TeamsPath(), doc)
	if err != nil {
		return "", err
	}

	member := models.TeamMemberFromUser(owner, models.StatusOwner)
	memberDoc, err := Deconstruct(member)
	if err != nil {
		return teamID, err
	}
	if err := m.store.SetDocument(ctx, store.TeamMemberPath(teamID, owner.UID), memberDoc); err != nil {
		return teamID, fmt.Errorf("owner member record: %w", err)
	}

	teams := make(map[string]any, len(owner.Teams)+1)
	for id, status := range owner.Teams {
		teams[id] = status
	}
	teams[teamID] = models.StatusOwner
	if err := m.store.UpdateDocument(ctx, store.ProfilePath(owner.UID), store.Document{"teams": teams}); err != nil {
		return teamID, fmt.Errorf("owner profile teams: %w", err)
	}
	return teamID, nil
}

// SaveTeam replaces the team document.
func (m *Mutations) SaveTeam(ctx context.Context, team models.Team) error {
	doc, err := Deconstruct(team)
	if err != nil {
		return err
	}
	return m.store.SetDocument(ctx, store.TeamPath(team.ID), doc)
}

// DeleteTeam removes the team's member subcollection container, then the
// team document itself (which takes its message subcollection with it).
func (m *Mutations) DeleteTeam(ctx context.Context, teamID string) error {
	if err := m.store.DeleteDocument(ctx, store.TeamMembersContainerPath(teamID)); err != nil {
		return fmt.Errorf("team members: %w", err)
	}
	return m.store.DeleteDocument(ctx, store.TeamPath(teamID))
}

// SaveLocations stores a team's cleanup locations on the team document.
func (m *Mutations) SaveLocations(ctx context.Context, teamID string, locations []models.Location) error {
	doc, err := Deconstruct(struct {
		Locations []models.Location `json:"locations"`
	}{locations})
	if err != nil {
		return err
	}
	return m.store.UpdateDocument(ctx, store.TeamPath(teamID), doc)
}

/* ───────────────────────── membership ───────────────────────── */

// InviteTeamMember writes the invitation keyed by the normalized
// recipient email, then the pending member stub, in that order.
func (m *Mutations) InviteTeamMember(ctx context.Context, inv models.Invitation) error {
	addr := normalize.Email(inv.TeamMember.Email)
	if addr == "" {
		return errors.New("invitation has no recipient email")
	}
	teamID := inv.Team.ID
	if inv.Created == nil {
		now := m.now()
		inv.Created = &now
	}
	if inv.TeamMember.MemberStatus == "" {
		inv.TeamMember.MemberStatus = models.StatusPending
	}
	inv.ID = teamID

	invDoc, err := Deconstruct(inv)
	if err != nil {
		return err
	}
	if err := m.store.SetDocument(ctx, store.InvitationPath(addr, teamID), invDoc); err != nil {
		return fmt.Errorf("invitation: %w", err)
	}

	stubDoc, err := Deconstruct(inv.TeamMember)
	if err != nil {
		return err
	}
	if err := m.store.SetDocument(ctx, store.TeamMemberPath(teamID, addr), stubDoc); err != nil {
		return err
	}

	if m.mail != nil {
		msg := mailer.BuildInvitationEmail(mailer.InvitationEmailData{
			SiteName:   m.siteName,
			TeamName:   inv.Team.Name,
			SenderName: inv.Sender.DisplayName,
		})
		msg.To = addr
		if err := m.mail.Send(msg); err != nil {
			m.log.Warn("invitation email failed", zap.String("to", addr), zap.Error(err))
		}
	}
	return nil
}

// AddTeamMember performs the four membership writes concurrently: delete
// the invitation, add the member record keyed by uid, update the
// profile's teams map, and write the legacy email-keyed record.
//
// Failures are logged and NOT returned: this boundary is deliberately
// best-effort, so a single failed write leaves an observable
// inconsistency between the membership views rather than failing the
// accept. The cascading listeners converge the views on the next writes.
func (m *Mutations) AddTeamMember(ctx context.Context, teamID string, user models.User, status string) error {
	if status == "" {
		status = models.StatusAccepted
	}
	addr := normalize.Email(user.Email)

	member := models.TeamMemberFromUser(user, status)
	memberDoc, err := Deconstruct(member)
	if err != nil {
		return err
	}

	teams := make(map[string]any, len(user.Teams)+1)
	for id, s := range user.Teams {
		teams[id] = s
	}
	teams[teamID] = status

	writes := []struct {
		name string
		run  func() error
	}{
		{"delete invitation", func() error {
			return m.store.DeleteDocument(ctx, store.InvitationPath(addr, teamID))
		}},
		{"add member record", func() error {
			return m.store.SetDocument(ctx, store.TeamMemberPath(teamID, user.UID), memberDoc)
		}},
		{"update profile teams", func() error {
			return m.store.UpdateDocument(ctx, store.ProfilePath(user.UID), store.Document{"teams": teams})
		}},
		{"legacy email record", func() error {
			return m.store.SetDocument(ctx, store.TeamMemberPath(teamID, addr), store.Document{"teamMember": memberDoc})
		}},
	}

	var wg gosync.WaitGroup
	for _, w := range writes {
		wg.Add(1)
		go func(name string, run func() error) {
			defer wg.Done()
			if err := run(); err != nil {
				m.log.Warn("add team member write failed",
					zap.String("write", name),
					zap.String("team_id", teamID),
					zap.String("uid", user.UID),
					zap.Error(err))
			}
		}(w.name, w.run)
	}
	wg.Wait()
	return nil
}

// UpdateTeamMember replaces a member record.
func (m *Mutations) UpdateTeamMember(ctx context.Context, teamID string, member models.TeamMember) error {
	doc, err := Deconstruct(member)
	if err != nil {
		return err
	}
	return m.store.SetDocument(ctx, store.TeamMemberPath(teamID, member.UID), doc)
}

// RemoveTeamMember deletes a member record.
func (m *Mutations) RemoveTeamMember(ctx context.Context, teamID string, member models.TeamMember) error {
	return m.store.DeleteDocument(ctx, store.TeamMemberPath(teamID, member.UID))
}

// LeaveTeam deletes the caller's member record, then removes the team
// from the profile's teams map. The second write depends on the first
// succeeding; its failure is returned with the member record already
// gone.
func (m *Mutations) LeaveTeam(ctx context.Context, teamID string, user models.User) error {
	if err := m.store.DeleteDocument(ctx, store.TeamMemberPath(teamID, user.UID)); err != nil {
		return fmt.Errorf("member record: %w", err)
	}
	teams := make(map[string]any, len(user.Teams))
	for id, status := range user.Teams {
		if id != teamID {
			teams[id] = status
		}
	}
	return m.store.UpdateDocument(ctx, store.ProfilePath(user.UID), store.Document{"teams": teams})
}

// RevokeInvitation deletes the pending member stub, then the invitation.
func (m *Mutations) RevokeInvitation(ctx context.Context, teamID, membershipID string) error {
	addr := normalize.Email(membershipID)
	if err := m.store.DeleteDocument(ctx, store.TeamMemberPath(teamID, addr)); err != nil {
		return fmt.Errorf("member stub: %w", err)
	}
	return m.store.DeleteDocument(ctx, store.InvitationPath(addr, teamID))
}

/* ───────────────────────── messaging ───────────────────────── */

// SendUserMessage writes one message document into the recipient's
// message subcollection and returns the generated id.
func (m *Mutations) SendUserMessage(ctx context.Context, userID string, msg models.Message) (string, error) {
	doc, err := m.outboundMessage(msg)
	if err != nil {
		return "", err
	}
	return m.store.AddDocument(ctx, store.UserMessagesPath(userID), doc)
}

// SendGroupMessage fans the message out to every member id. Sends run
// concurrently with no ordering guarantee; individual failures are
// logged, not aggregated.
func (m *Mutations) SendGroupMessage(ctx context.Context, memberIDs []string, msg models.Message) {
	var wg gosync.WaitGroup
	for _, uid := range memberIDs {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			if _, err := m.SendUserMessage(ctx, uid, msg); err != nil {
				m.log.Warn("group message send failed", zap.String("uid", uid), zap.Error(err))
			}
		}(uid)
	}
	wg.Wait()
}

// SendTeamMessage writes one message document into the team's message
// subcollection.
func (m *Mutations) SendTeamMessage(ctx context.Context, teamID string, msg models.Message) (string, error) {
	doc, err := m.outboundMessage(msg)
	if err != nil {
		return "", err
	}
	return m.store.AddDocument(ctx, store.TeamMessagesPath(teamID), doc)
}

// UpdateMessage replaces a message document (read/active flags).
func (m *Mutations) UpdateMessage(ctx context.Context, userID string, msg models.Message) error {
	doc, err := Deconstruct(msg)
	if err != nil {
		return err
	}
	return m.store.SetDocument(ctx, store.UserMessagePath(userID, msg.ID), doc)
}

// DeleteMessage removes a message document.
func (m *Mutations) DeleteMessage(ctx context.Context, userID, messageID string) error {
	return m.store.DeleteDocument(ctx, store.UserMessagePath(userID, messageID))
}

func (m *Mutations) outboundMessage(msg models.Message) (store.Document, error) {
	msg.Text = m.sanitize.Sanitize(msg.Text)
	if msg.Created == nil {
		now := m.now()
		msg.Created = &now
	}
	return Deconstruct(msg)
}

/* ───────────────────────── trash drops ───────────────────────── */

// DropTrash records a new trash drop and returns its generated id.
func (m *Mutations) DropTrash(ctx context.Context, drop store.Document) (string, error) {
	doc, err := Deconstruct(StringifyDates(drop))
	if err != nil {
		return "", err
	}
	return m.store.AddDocument(ctx, store.TrashDropsPath(), doc)
}

// UpdateTrashDrop replaces a trash drop document; the drop's "uid" field
// is its document key.
func (m *Mutations) UpdateTrashDrop(ctx context.Context, drop store.Document) error {
	id, _ := drop["uid"].(string)
	if id == "" {
		return errors.New("trash drop has no uid")
	}
	doc, err := Deconstruct(StringifyDates(drop))
	if err != nil {
		return err
	}
	return m.store.SetDocument(ctx, store.TrashDropPath(id), doc)
}
