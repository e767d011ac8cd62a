package sync

import (
	gosync "sync"

	"github.com/dalemusser/greencrew/internal/app/store"
	"github.com/dalemusser/greencrew/internal/domain/models"
	"go.uber.org/zap"
)

// EventType tags an event emitted into the sink.
type EventType string

const (
	EventProfileFetched      EventType = "profile-fetched"
	EventTeamFetched         EventType = "team-fetched"
	EventTeamMemberFetched   EventType = "team-member-fetched"
	EventMessageFetched      EventType = "message-fetched"
	EventInvitationFetched   EventType = "invitation-fetched"
	EventTownDataFetched     EventType = "town-data-fetched"
	EventTrashDropFetched    EventType = "trash-drop-fetched"
	EventUserAuthenticated   EventType = "user-authenticated"
	EventUserLoggedOut       EventType = "user-logged-out"
	EventInitialized         EventType = "initialization-successful"
	EventProfileCreateFailed EventType = "profile-create-failed"
)

// Event is a tagged record describing one snapshot delivery or lifecycle
// transition. Only the fields relevant to the Type are populated.
type Event struct {
	Type EventType

	TeamID string // team-member-fetched: which team's member list fired
	Scope  string // message-fetched: message scope key (uid, teamId, or "invitations")

	Profile     *models.User                 // profile-fetched
	User        *models.User                 // user-authenticated
	Teams       map[string]models.Team       // team-fetched
	Members     map[string]models.TeamMember // team-member-fetched
	Messages    map[string]models.Message    // message-fetched
	Invitations map[string]models.Invitation // invitation-fetched
	Towns       map[string]models.Town       // town-data-fetched
	TrashDrops  []store.Document             // trash-drop-fetched

	Err error // profile-create-failed
}

// Sink consumes emitted events. The surrounding application supplies one
// (typically bridging into its dispatch/store mechanics); the sync layer
// never interprets events after emitting them.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// MultiSink fans an event out to several sinks in order.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			s.Emit(e)
		}
	})
}

// LogSink logs each event at debug level. Used as the default sink in the
// service when no other consumer is attached.
func LogSink(logger *zap.Logger) Sink {
	return SinkFunc(func(e Event) {
		logger.Debug("sync event",
			zap.String("type", string(e.Type)),
			zap.String("team_id", e.TeamID),
			zap.String("scope", e.Scope),
			zap.Error(e.Err))
	})
}

// Recorder is a bounded, thread-safe event buffer. The status endpoint
// exposes its contents; tests use it to assert on emissions.
type Recorder struct {
	mu     gosync.Mutex
	events []Event
	limit  int
}

// NewRecorder creates a recorder keeping at most limit events (0 means
// unbounded).
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Emit implements Sink.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// CountOf returns how many recorded events carry the given type.
func (r *Recorder) CountOf(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Reset clears the buffer.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
