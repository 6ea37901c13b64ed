package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"innotour.org/internal/audit"
	"innotour.org/internal/auth"
	"innotour.org/internal/obs"
	"innotour.org/internal/scheduling"
)

// SchedulingAPI is the HTTP surface of the scheduling service.
type SchedulingAPI struct {
	svc           *scheduling.Service
	gate          *Gate
	internalToken string
	version       string
}

func NewSchedulingAPI(svc *scheduling.Service, gate *Gate, internalToken, version string) *SchedulingAPI {
	return &SchedulingAPI{
		svc:           svc,
		gate:          gate,
		internalToken: internalToken,
		version:       version,
	}
}

// Router wires the scheduling endpoints. Agency and category management
// is admin-only; slot info and booking require an agency manager; the
// internal agency lookup is keyed, not token-authenticated.
func (s *SchedulingAPI) Router() http.Handler {
	r := chi.NewRouter()

	r.With(RequireInternalKey(s.internalToken)).Get("/agency/get", s.handleGetAgency)

	r.Group(func(pr chi.Router) {
		pr.Use(s.gate.Authenticate)

		pr.Group(func(admin chi.Router) {
			admin.Use(RequireRole(auth.RoleCenterAdmin))
			admin.Post("/agency/register", s.handleRegisterAgency)
			admin.Post("/agency/update_info", s.handleUpdateAgency)
			admin.Delete("/agency/delete", s.handleDeleteAgency)
			admin.Post("/category/create", s.handleCreateCategory)
			admin.Post("/category/update_info", s.handleUpdateCategory)
		})

		pr.Group(func(mgr chi.Router) {
			mgr.Use(RequireRole(auth.RoleAgencyManager))
			mgr.Post("/time_slot/get_info", s.handleSlotInfo)
			mgr.Post("/time_slot/book", s.handleBook)
		})
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", obs.Handler())
	return r
}

func (s *SchedulingAPI) handleRegisterAgency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string                `json:"name"`
		Type scheduling.AgencyType `json:"agency_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "malformed request body")
		return
	}
	agency, err := s.svc.RegisterAgency(r.Context(), req.Name, req.Type)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "agency.register", zap.Int64("agency_id", agency.ID))
	writeJSON(w, http.StatusCreated, agency)
}

func (s *SchedulingAPI) handleUpdateAgency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   int64                 `json:"id"`
		Name string                `json:"name"`
		Type scheduling.AgencyType `json:"agency_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "malformed request body")
		return
	}
	agency, err := s.svc.UpdateAgency(r.Context(), req.ID, req.Name, req.Type)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agency)
}

func (s *SchedulingAPI) handleDeleteAgency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID int64 `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "malformed request body")
		return
	}
	if err := s.svc.DeleteAgency(r.Context(), req.ID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "agency.delete", zap.Int64("agency_id", req.ID))
	writeJSON(w, http.StatusOK, map[string]bool{"result": true})
}

// handleGetAgency serves the internal lookup used by authd to resolve a
// manager's agency.
func (s *SchedulingAPI) handleGetAgency(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "id must be a positive integer")
		return
	}
	agency, err := s.svc.GetAgency(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agency)
}

func (s *SchedulingAPI) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Capacity int    `json:"capacity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "malformed request body")
		return
	}
	category, err := s.svc.CreateCategory(r.Context(), req.Name, req.Capacity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (s *SchedulingAPI) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Capacity int    `json:"capacity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "malformed request body")
		return
	}
	category, err := s.svc.UpdateCategory(r.Context(), req.ID, req.Name, req.Capacity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (s *SchedulingAPI) handleSlotInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Day string `json:"day"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "malformed request body")
		return
	}
	day, err := time.Parse("2006-01-02", req.Day)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "day must be YYYY-MM-DD")
		return
	}
	slots, err := s.svc.DayInfo(r.Context(), day)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// handleBook books under the agency the manager's token names, so a
// manager can only ever create bookings for their own agency.
func (s *SchedulingAPI) handleBook(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "token_invalid", "authentication required")
		return
	}
	if user.AgencyID == nil {
		writeDomainError(w, r, auth.ErrPermissionRequired)
		return
	}
	var req struct {
		TimeSlotID        int64 `json:"time_slot_id"`
		ParticipantsCount int   `json:"participants_count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "malformed request body")
		return
	}
	booking, err := s.svc.Book(r.Context(), req.TimeSlotID, *user.AgencyID, req.ParticipantsCount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "slot.book",
		zap.Int64("time_slot_id", booking.TimeSlotID),
		zap.Int64("agency_id", booking.AgencyID),
		zap.Int("participants", booking.ParticipantsCount),
	)
	writeJSON(w, http.StatusCreated, booking)
}

func (s *SchedulingAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "schedulingd",
		"version": s.version,
	})
}
