package sync

import (
	"github.com/dalemusser/greencrew/internal/app/store"
	"github.com/dalemusser/greencrew/internal/domain/models"
	"go.uber.org/zap"
)

// AuthSource delivers authentication-state transitions: a non-nil user on
// session start, nil on session end. The source must fire session-absent
// on logout before any new login's transition.
type AuthSource interface {
	OnAuthStateChanged(fn func(*models.User)) (cancel func())
}

// Controller is the session lifecycle controller: it reacts to auth
// transitions by orchestrating subscriptions on login and atomically
// resetting all derived state on logout.
type Controller struct {
	registry *Registry
	orch     *Orchestrator
	muts     *Mutations
	sink     Sink
	log      *zap.Logger
	cancel   func()
}

// NewController wires a controller with its own registry, orchestrator,
// and mutation API over the given store.
func NewController(st store.DocumentStore, sink Sink, logger *zap.Logger) *Controller {
	registry := NewRegistry(logger)
	muts := NewMutations(st, logger)
	return &Controller{
		registry: registry,
		orch:     NewOrchestrator(st, registry, muts, sink, logger),
		muts:     muts,
		sink:     sink,
		log:      logger,
	}
}

// Initialize begins reacting to auth transitions. It is the entry point
// the surrounding application calls once at startup.
func (c *Controller) Initialize(source AuthSource) {
	c.cancel = source.OnAuthStateChanged(c.HandleAuthChange)
}

// HandleAuthChange processes one auth transition. Exported so tests (and
// custom auth sources) can drive the lifecycle directly.
func (c *Controller) HandleAuthChange(user *models.User) {
	if user == nil {
		c.registry.UnsubscribeAll()
		c.sink.Emit(Event{Type: EventUserLoggedOut})
		return
	}

	if err := c.orch.Begin(*user); err != nil {
		// Listener setup failures are non-fatal: whatever subscribed
		// keeps flowing, and re-auth re-subscribes the rest.
		c.log.Error("subscription setup incomplete", zap.String("uid", user.UID), zap.Error(err))
	}
	c.sink.Emit(Event{Type: EventUserAuthenticated, User: user})
	c.sink.Emit(Event{Type: EventInitialized})
}

// Mutations exposes the write-side API bound to this controller's store.
func (c *Controller) Mutations() *Mutations { return c.muts }

// Registry exposes the listener registry (status surface and tests).
func (c *Controller) Registry() *Registry { return c.registry }

// Close detaches from the auth source and tears down all listeners.
func (c *Controller) Close() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.registry.UnsubscribeAll()
}
