package syncstatus_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/greencrew/internal/app/features/syncstatus"
	"github.com/dalemusser/greencrew/internal/app/sync"
	"github.com/dalemusser/greencrew/internal/domain/models"
	"github.com/dalemusser/greencrew/internal/testutil"
	"go.uber.org/zap"
)

func TestServeReportsListenersAndEvents(t *testing.T) {
	fs := testutil.NewFakeStore()
	fs.Seed("profiles/u1", testutil.ProfileDoc("u1", "ada@crew.org", "Ada", nil))

	rec := sync.NewRecorder(0)
	ctrl := sync.NewController(fs, rec, zap.NewNop())
	t.Cleanup(ctrl.Close)

	u := models.User{UID: "u1", Email: "ada@crew.org", DisplayName: "Ada"}
	ctrl.HandleAuthChange(&u)

	h := syncstatus.NewHandler(ctrl, rec, zap.NewNop())
	w := httptest.NewRecorder()
	h.Serve(w, httptest.NewRequest("GET", "/sync/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Listeners []string `json:"listeners"`
		Events    []struct {
			Type string `json:"type"`
		} `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Listeners) == 0 {
		t.Error("no listeners reported")
	}
	found := false
	for _, e := range resp.Events {
		if e.Type == string(sync.EventUserAuthenticated) {
			found = true
		}
	}
	if !found {
		t.Errorf("user-authenticated missing from events: %+v", resp.Events)
	}
}

func TestServeEmptyState(t *testing.T) {
	fs := testutil.NewFakeStore()
	rec := sync.NewRecorder(0)
	ctrl := sync.NewController(fs, rec, zap.NewNop())
	t.Cleanup(ctrl.Close)

	h := syncstatus.NewHandler(ctrl, rec, zap.NewNop())
	w := httptest.NewRecorder()
	h.Serve(w, httptest.NewRequest("GET", "/sync/status", nil))

	var resp struct {
		Listeners []string `json:"listeners"`
		Events    []any    `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Listeners) != 0 || len(resp.Events) != 0 {
		t.Errorf("expected empty state, got %+v", resp)
	}
}
