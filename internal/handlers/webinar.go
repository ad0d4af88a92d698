package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alumni-connect/apiserver/internal/auth"
	"github.com/alumni-connect/apiserver/internal/services"
	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type WebinarHandler struct {
	webinarService *services.WebinarService
	log            logrus.FieldLogger
}

func NewWebinarHandler(webinarService *services.WebinarService, log logrus.FieldLogger) *WebinarHandler {
	return &WebinarHandler{webinarService: webinarService, log: log}
}

// WebinarRouter registers webinar routes on the given router.
func WebinarRouter(r chi.Router, webinarService *services.WebinarService, guard *auth.Guard, log logrus.FieldLogger) {
	handler := NewWebinarHandler(webinarService, log)
	hosts := guard.Roles(types.RoleAlumni, types.RoleMentor)

	r.Get("/", handler.ListWebinars)
	r.With(hosts).Post("/", handler.CreateWebinar)
	r.With(hosts).Get("/my-webinars", handler.ListHosted)
	r.With(guard.RequireIdentity).Get("/my-registrations", handler.ListRegistrations)
	r.Route("/{webinarID}", func(r chi.Router) {
		r.Get("/", handler.GetWebinar)
		r.With(guard.RequireIdentity).Post("/register", handler.Register)
		r.With(guard.RequireIdentity).Delete("/register", handler.Unregister)
	})
}

func (h *WebinarHandler) ListWebinars(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	upcoming := true
	if raw := query.Get("upcoming_only"); raw != "" {
		upcoming = parseBool(raw)
	}

	items, total, err := h.webinarService.List(r.Context(), upcoming, strings.TrimSpace(query.Get("search")), offset, limit)
	if err != nil {
		writeServiceError(w, h.log, err, "webinar not found")
		return
	}

	writeJSON(w, http.StatusOK, newList(items, page, limit, total))
}

func (h *WebinarHandler) ListHosted(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	items, err := h.webinarService.ListHosted(r.Context(), id.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "webinar not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *WebinarHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	items, err := h.webinarService.ListRegistrations(r.Context(), id.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "webinar not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *WebinarHandler) GetWebinar(w http.ResponseWriter, r *http.Request) {
	webinarID, err := parseID(r, "webinarID", "webinar")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	webinar, err := h.webinarService.Get(r.Context(), webinarID)
	if err != nil {
		writeServiceError(w, h.log, err, "webinar not found")
		return
	}

	writeJSON(w, http.StatusOK, webinar)
}

func (h *WebinarHandler) CreateWebinar(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req WebinarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	registrationRequired := true
	if req.RegistrationRequired != nil {
		registrationRequired = *req.RegistrationRequired
	}

	created, err := h.webinarService.Create(r.Context(), id.ID, types.Webinar{
		Title:                req.Title,
		Description:          req.Description,
		ScheduledDate:        req.ScheduledDate,
		DurationMinutes:      req.DurationMinutes,
		MaxParticipants:      req.MaxParticipants,
		MeetingLink:          req.MeetingLink,
		RegistrationRequired: registrationRequired,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "webinar not found")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *WebinarHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	webinarID, err := parseID(r, "webinarID", "webinar")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.webinarService.Register(r.Context(), id.ID, webinarID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "already registered")
			return
		}
		writeServiceError(w, h.log, err, "webinar not found")
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "registered"})
}

func (h *WebinarHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	webinarID, err := parseID(r, "webinarID", "webinar")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.webinarService.Unregister(r.Context(), id.ID, webinarID); err != nil {
		writeServiceError(w, h.log, err, "registration not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// WebinarRequest schedules a webinar. ScheduledDate is RFC 3339.
type WebinarRequest struct {
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	ScheduledDate        time.Time `json:"scheduled_date"`
	DurationMinutes      int       `json:"duration_minutes"`
	MaxParticipants      int       `json:"max_participants"`
	MeetingLink          string    `json:"meeting_link"`
	RegistrationRequired *bool     `json:"registration_required"`
}
