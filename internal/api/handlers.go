// Package api exposes HTTP handlers for the family ledger.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kawadia/dad-son-fitness-challenge/internal/devicestate"
	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
	"github.com/kawadia/dad-son-fitness-challenge/internal/export"
	"github.com/kawadia/dad-son-fitness-challenge/internal/ledger"
	"github.com/kawadia/dad-son-fitness-challenge/internal/motivation"
	"github.com/kawadia/dad-son-fitness-challenge/internal/stats"
)

const defaultChartDays = 14

// Handler coordinates HTTP requests with the connected family stores.
type Handler struct {
	registry *ledger.Registry
	device   *devicestate.File
	quotes   *motivation.Client
	logger   *slog.Logger
}

// NewHandler builds a Handler. device may be nil when preferences are not persisted.
func NewHandler(registry *ledger.Registry, device *devicestate.File, quotes *motivation.Client, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		device:   device,
		quotes:   quotes,
		logger:   logger.With("component", "api"),
	}
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/device", h.getDevice)
		r.Put("/device/user", h.selectUser)

		r.Post("/families", h.connectFamily)
		r.Route("/families/{familyID}", func(r chi.Router) {
			r.Get("/", h.getFamily)
			r.Delete("/", h.disconnectFamily)
			r.Post("/users/{user}/sessions", h.addSession)
			r.Post("/users/{user}/undo", h.undoSession)
			r.Get("/users/{user}/progress", h.userProgress)
			r.Get("/goals/{date}", h.getGoal)
			r.Put("/goals/{date}", h.setGoal)
			r.Get("/chart", h.chart)
			r.Get("/export.csv", h.exportCSV)
			r.Get("/export.xlsx", h.exportXLSX)
			r.Get("/quote", h.quote)
			r.Get("/events", h.streamEvents)
		})
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) connectFamily(w http.ResponseWriter, r *http.Request) {
	var req ConnectFamilyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	store, err := h.registry.Connect(r.Context(), req.FamilyID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if h.device != nil {
		if err := h.device.SetFamily(store.FamilyID()); err != nil {
			h.logger.Warn("persist device family", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, toFamilyView(store.Snapshot()))
}

func (h *Handler) getFamily(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toFamilyView(store.Snapshot()))
}

func (h *Handler) disconnectFamily(w http.ResponseWriter, r *http.Request) {
	familyID := chi.URLParam(r, "familyID")
	if err := h.registry.Disconnect(familyID); err != nil {
		h.writeDomainError(w, err)
		return
	}

	if h.device != nil {
		st, err := h.device.Load()
		if err == nil {
			if key, _ := domain.NormalizeFamilyID(familyID); st.FamilyID == key {
				err = h.device.ClearFamily()
			}
		}
		if err != nil {
			h.logger.Warn("clear device family", "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addSession(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req AddSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	exercise, err := domain.ParseExercise(req.Exercise)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	session, err := store.AddSession(r.Context(), user, exercise, req.Reps)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, AddSessionResponse{
		Session:  session,
		Progress: toUserProgress(store.Snapshot(), user),
	})
}

func (h *Handler) undoSession(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	removed, err := store.UndoLastSession(r.Context(), user)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UndoResponse{
		Removed:  removed,
		Progress: toUserProgress(store.Snapshot(), user),
	})
}

func (h *Handler) userProgress(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUserProgress(store.Snapshot(), user))
}

func (h *Handler) getGoal(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	date, err := domain.ParseDateKey(chi.URLParam(r, "date"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GoalView{Date: date, Goal: store.GoalFor(date)})
}

func (h *Handler) setGoal(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req SetGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	date, err := domain.ParseDateKey(chi.URLParam(r, "date"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := store.SetGoal(r.Context(), date, req.Goal); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GoalView{Date: date, Goal: store.GoalFor(date)})
}

func (h *Handler) chart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	days := defaultChartDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 366 {
			writeError(w, http.StatusBadRequest, "validation_failed", "days must be between 1 and 366")
			return
		}
		days = parsed
	}

	view := store.Snapshot()
	writeJSON(w, http.StatusOK, ChartResponse{
		Days:   days,
		Points: stats.Series(view.Record, view.Today, days),
	})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeCSV)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(store.Now(), "csv")+`"`)
	if err := export.WriteCSV(w, store.Snapshot().Record); err != nil {
		h.logger.Error("write csv export", "family", store.FamilyID(), "error", err)
	}
}

func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(store.Now(), "xlsx")+`"`)
	if err := export.WriteXLSX(w, store.Snapshot().Record); err != nil {
		h.logger.Error("write xlsx export", "family", store.FamilyID(), "error", err)
	}
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	view := store.Snapshot()
	s := motivation.BuildStats(view.Record, view.Today, store.Now())
	writeJSON(w, http.StatusOK, QuoteResponse{Quote: h.quotes.Quote(r.Context(), s), Stats: s})
}

func (h *Handler) getDevice(w http.ResponseWriter, r *http.Request) {
	if h.device == nil {
		writeError(w, http.StatusNotFound, "not_found", "device state is not configured")
		return
	}
	st, err := h.device.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DeviceView{FamilyID: st.FamilyID, SelectedUser: st.SelectedUser})
}

func (h *Handler) selectUser(w http.ResponseWriter, r *http.Request) {
	if h.device == nil {
		writeError(w, http.StatusNotFound, "not_found", "device state is not configured")
		return
	}

	var req SelectUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if _, err := h.device.SelectUser(req.User); err != nil {
		h.writeDomainError(w, err)
		return
	}

	st, err := h.device.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DeviceView{FamilyID: st.FamilyID, SelectedUser: st.SelectedUser})
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*ledger.Store, bool) {
	store, err := h.registry.Get(chi.URLParam(r, "familyID"))
	if err != nil {
		h.writeDomainError(w, err)
		return nil, false
	}
	return store, true
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	u, err := domain.ParseUser(chi.URLParam(r, "user"))
	if err != nil {
		h.writeDomainError(w, err)
		return "", false
	}
	return u, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNotConnected):
		writeError(w, http.StatusNotFound, "not_connected", "family is not connected")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrTransport):
		writeError(w, http.StatusBadGateway, "sync_failed", err.Error())
	default:
		h.logger.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
