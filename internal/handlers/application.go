package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/alumni-connect/apiserver/internal/auth"
	"github.com/alumni-connect/apiserver/internal/services"
	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
	log                logrus.FieldLogger
}

func NewApplicationHandler(applicationService *services.ApplicationService, log logrus.FieldLogger) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService, log: log}
}

// ApplicationRouter registers application routes on the given router.
func ApplicationRouter(r chi.Router, applicationService *services.ApplicationService, guard *auth.Guard, log logrus.FieldLogger) {
	handler := NewApplicationHandler(applicationService, log)
	students := guard.Roles(types.RoleStudent)
	posters := guard.Roles(types.RoleAlumni, types.RoleMentor)

	r.With(students).Post("/", handler.SubmitApplication)
	r.With(students).Get("/my", handler.ListMine)
	r.With(posters).Get("/received", handler.ListReceived)
	r.With(guard.RequireIdentity).Get("/stats", handler.Stats)
	r.Route("/{applicationID}", func(r chi.Router) {
		r.With(guard.RequireIdentity).Get("/", handler.GetApplication)
		r.With(posters).Put("/status", handler.UpdateStatus)
	})
}

func (h *ApplicationHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req ApplicationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.applicationService.Submit(r.Context(), id.ID, types.Application{
		Type:          types.ApplicationType(strings.ToLower(strings.TrimSpace(req.ApplicationType))),
		OpportunityID: req.OpportunityID,
		ScholarshipID: req.ScholarshipID,
		CoverLetter:   req.CoverLetter,
		ResumeURL:     req.ResumeURL,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "you have already applied")
			return
		}
		writeServiceError(w, h.log, err, "posting not found")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ApplicationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	items, err := h.applicationService.ListMine(r.Context(), id.ID, applicationFilter(r))
	if err != nil {
		writeServiceError(w, h.log, err, "application not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

// ListReceived lists applications to postings owned by the caller.
func (h *ApplicationHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	items, err := h.applicationService.ListReceived(r.Context(), id.ID, applicationFilter(r))
	if err != nil {
		writeServiceError(w, h.log, err, "application not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *ApplicationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	stats, err := h.applicationService.Stats(r.Context(), id.ID, id.Role)
	if err != nil {
		writeServiceError(w, h.log, err, "application not found")
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse[types.ApplicationStats]{Stats: stats})
}

func (h *ApplicationHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	appID, err := parseID(r, "applicationID", "application")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	app, err := h.applicationService.Get(r.Context(), id.ID, appID)
	if err != nil {
		writeServiceError(w, h.log, err, "application not found")
		return
	}

	writeJSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	appID, err := parseID(r, "applicationID", "application")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := types.ApplicationStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	updated, err := h.applicationService.UpdateStatus(r.Context(), id.ID, appID, status)
	if err != nil {
		writeServiceError(w, h.log, err, "application not found")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func applicationFilter(r *http.Request) types.ApplicationFilter {
	query := r.URL.Query()
	return types.ApplicationFilter{
		Type:   types.ApplicationType(strings.ToLower(strings.TrimSpace(query.Get("type")))),
		Status: types.ApplicationStatus(strings.ToLower(strings.TrimSpace(query.Get("status")))),
	}
}

type ApplicationRequest struct {
	ApplicationType string `json:"application_type"`
	OpportunityID   *int64 `json:"opportunity_id"`
	ScholarshipID   *int64 `json:"scholarship_id"`
	CoverLetter     string `json:"cover_letter"`
	ResumeURL       string `json:"resume_url"`
}

// StatusRequest is shared by the endpoints that move a resource between states.
type StatusRequest struct {
	Status string `json:"status"`
}
