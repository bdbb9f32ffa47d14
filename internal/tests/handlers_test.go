package tests

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	httpapi "menuboard/internal/api/http"
	"menuboard/internal/domain"
	"menuboard/internal/service"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReconciler struct {
	view *service.DataView
}

func (s *stubReconciler) Resolve(ctx context.Context) *service.DataView { return s.view }
func (s *stubReconciler) CurrentView() *service.DataView               { return s.view }

type stubSync struct {
	res domain.SyncJobResult
}

func (s *stubSync) Push(ctx context.Context, class domain.EntityClass, snap *domain.LocalSnapshot) domain.SyncJobResult {
	return s.res
}

type stubLocal struct {
	snap *domain.LocalSnapshot
	err  error
}

func (s *stubLocal) LocalState() (*domain.LocalSnapshot, error) { return s.snap, s.err }

type stubHealth struct {
	online bool
}

func (s *stubHealth) Online() bool { return s.online }

func newTestRouter(handler *httpapi.Handler) *mux.Router {
	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func TestHealthCheckHandler(t *testing.T) {
	handler := httpapi.NewHandler(&stubReconciler{view: &service.DataView{}}, &stubSync{}, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	newTestRouter(handler).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "menuboard", body["service"])
}

func TestGetViewHandler(t *testing.T) {
	view := &service.DataView{
		Items:      []domain.CatalogItem{{ID: "d1", Name: "Soup", Price: 3}},
		Categories: []domain.Category{{ID: "c1", Name: "Mains"}},
		Freshness:  domain.FreshnessFresh,
		Online:     true,
	}
	handler := httpapi.NewHandler(&stubReconciler{view: view}, &stubSync{}, nil)

	req := httptest.NewRequest("GET", "/api/view", nil)
	w := httptest.NewRecorder()
	newTestRouter(handler).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got service.DataView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Len(t, got.Items, 1)
	assert.True(t, got.Online)
}

func TestGetViewHandlerReflectsSubscriptionHealth(t *testing.T) {
	view := &service.DataView{Online: true, Freshness: domain.FreshnessFresh}
	handler := httpapi.NewHandler(&stubReconciler{view: view}, &stubSync{}, nil)
	handler.Notifier = &stubHealth{online: false}

	req := httptest.NewRequest("GET", "/api/view", nil)
	w := httptest.NewRecorder()
	newTestRouter(handler).ServeHTTP(w, req)

	var got service.DataView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.False(t, got.Online)
}

func TestTriggerSyncHandler(t *testing.T) {
	tests := []struct {
		name     string
		sync     *stubSync
		local    service.LocalStateSource
		wantCode int
	}{
		{
			name:     "successful push",
			sync:     &stubSync{res: domain.SyncJobResult{Outcome: domain.OutcomeSucceeded, Accepted: 2}},
			local:    &stubLocal{snap: &domain.LocalSnapshot{}},
			wantCode: http.StatusOK,
		},
		{
			name: "already in progress",
			sync: &stubSync{res: domain.SyncJobResult{
				Outcome:  domain.OutcomeFailed,
				Rejected: []domain.RejectedRow{{Reason: domain.ReasonAlreadyInProgress}},
			}},
			local:    &stubLocal{snap: &domain.LocalSnapshot{}},
			wantCode: http.StatusConflict,
		},
		{
			name:     "no local state source",
			sync:     &stubSync{},
			local:    nil,
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "local state read error",
			sync:     &stubSync{},
			local:    &stubLocal{err: errors.New("runtime store locked")},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			handler := httpapi.NewHandler(&stubReconciler{view: &service.DataView{}}, testCase.sync, nil)
			if testCase.local != nil {
				handler.Local = testCase.local
			}

			req := httptest.NewRequest("POST", "/api/sync/catalog", nil)
			w := httptest.NewRecorder()
			newTestRouter(handler).ServeHTTP(w, req)

			assert.Equal(t, testCase.wantCode, w.Code)
		})
	}
}

func TestMenuQRCodeHandler(t *testing.T) {
	handler := httpapi.NewHandler(&stubReconciler{view: &service.DataView{}}, &stubSync{},
		service.DefaultQRGenerator{MenuURL: "http://menu.example/board"})

	req := httptest.NewRequest("GET", "/api/menu/qrcode", nil)
	w := httptest.NewRecorder()
	newTestRouter(handler).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}
