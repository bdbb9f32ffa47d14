package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"menuboard/internal/domain"
	"menuboard/internal/service"

	"github.com/gorilla/mux"
)

type Handler struct {
	Reconciler service.ReconcilerInterface
	Sync       service.SyncInterface
	QR         service.QRGenerator

	// optional collaborators, absent depending on source mode
	Notifier service.HealthReporter
	Local    service.LocalStateSource
}

func NewHandler(reconciler service.ReconcilerInterface, sync service.SyncInterface, qr service.QRGenerator) *Handler {
	return &Handler{
		Reconciler: reconciler,
		Sync:       sync,
		QR:         qr,
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.healthCheck).Methods("GET")
	r.HandleFunc("/api/view", h.getView).Methods("GET")
	r.HandleFunc("/api/view/refresh", h.refreshView).Methods("POST")
	r.HandleFunc("/api/sync/{class}", h.triggerSync).Methods("POST")
	r.HandleFunc("/api/menu/qrcode", h.getMenuQRCode).Methods("GET")
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "menuboard",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) getView(w http.ResponseWriter, r *http.Request) {
	view := h.Reconciler.CurrentView()
	if h.Notifier != nil && !h.Notifier.Online() {
		view.Online = false
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

func (h *Handler) refreshView(w http.ResponseWriter, r *http.Request) {
	view := h.Reconciler.Resolve(r.Context())
	if h.Notifier != nil && !h.Notifier.Online() {
		view.Online = false
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	class := domain.EntityClass(mux.Vars(r)["class"])

	if h.Local == nil {
		http.Error(w, "no local state source for this session", http.StatusServiceUnavailable)
		return
	}
	snap, err := h.Local.LocalState()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result := h.Sync.Push(r.Context(), class, snap)

	status := http.StatusOK
	if result.Outcome == domain.OutcomeFailed && hasReason(result.Rejected, domain.ReasonAlreadyInProgress) {
		status = http.StatusConflict
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(result)
}

func (h *Handler) getMenuQRCode(w http.ResponseWriter, r *http.Request) {
	if h.QR == nil {
		http.Error(w, "qr generator not configured", http.StatusServiceUnavailable)
		return
	}
	png, err := h.QR.Generate()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func hasReason(rejected []domain.RejectedRow, reason string) bool {
	for _, row := range rejected {
		if row.Reason == reason {
			return true
		}
	}
	return false
}
