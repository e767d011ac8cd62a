package syncstatus

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/greencrew/internal/app/sync"
	"go.uber.org/zap"
)

// Handler reports the live state of the sync layer: which listener keys
// are registered and what events were recently emitted.
type Handler struct {
	Ctrl     *sync.Controller
	Recorder *sync.Recorder
	Log      *zap.Logger
}

func NewHandler(ctrl *sync.Controller, rec *sync.Recorder, logger *zap.Logger) *Handler {
	return &Handler{Ctrl: ctrl, Recorder: rec, Log: logger}
}

type statusResponse struct {
	Listeners []string      `json:"listeners"`
	Events    []recentEvent `json:"events"`
}

type recentEvent struct {
	Type   string `json:"type"`
	Scope  string `json:"scope,omitempty"`
	TeamID string `json:"teamId,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Serve handles GET /sync/status.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Listeners: h.Ctrl.Registry().Keys(),
		Events:    []recentEvent{},
	}
	for _, e := range h.Recorder.Events() {
		ev := recentEvent{
			Type:   string(e.Type),
			Scope:  e.Scope,
			TeamID: e.TeamID,
		}
		if e.Err != nil {
			ev.Error = e.Err.Error()
		}
		resp.Events = append(resp.Events, ev)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
