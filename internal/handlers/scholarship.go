package handlers

import (
	"net/http"
	"strings"

	"github.com/alumni-connect/apiserver/internal/auth"
	"github.com/alumni-connect/apiserver/internal/services"
	"github.com/alumni-connect/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type ScholarshipHandler struct {
	scholarshipService *services.ScholarshipService
	log                logrus.FieldLogger
}

func NewScholarshipHandler(scholarshipService *services.ScholarshipService, log logrus.FieldLogger) *ScholarshipHandler {
	return &ScholarshipHandler{scholarshipService: scholarshipService, log: log}
}

// ScholarshipRouter registers scholarship routes on the given router.
func ScholarshipRouter(r chi.Router, scholarshipService *services.ScholarshipService, guard *auth.Guard, log logrus.FieldLogger) {
	handler := NewScholarshipHandler(scholarshipService, log)
	posters := guard.Roles(types.RoleAlumni, types.RoleMentor)

	r.Get("/", handler.ListScholarships)
	r.With(posters).Post("/", handler.CreateScholarship)
	r.With(posters).Get("/my", handler.ListMine)
	r.With(guard.Roles(types.RoleStudent)).Get("/eligible", handler.ListEligible)
	r.Route("/{scholarshipID}", func(r chi.Router) {
		r.Get("/", handler.GetScholarship)
		r.With(guard.RequireIdentity).Put("/", handler.UpdateScholarship)
	})
}

func (h *ScholarshipHandler) ListScholarships(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.scholarshipService.List(r.Context(), types.PostingFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "scholarship not found")
		return
	}

	writeJSON(w, http.StatusOK, newList(items, page, limit, total))
}

func (h *ScholarshipHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	items, err := h.scholarshipService.ListMine(r.Context(), id.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "scholarship not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

// ListEligible shows open scholarships flagged with whether the student has applied.
func (h *ScholarshipHandler) ListEligible(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	items, err := h.scholarshipService.Eligible(r.Context(), id.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "scholarship not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *ScholarshipHandler) GetScholarship(w http.ResponseWriter, r *http.Request) {
	schID, err := parseID(r, "scholarshipID", "scholarship")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sch, err := h.scholarshipService.Get(r.Context(), schID)
	if err != nil {
		writeServiceError(w, h.log, err, "scholarship not found")
		return
	}

	writeJSON(w, http.StatusOK, sch)
}

func (h *ScholarshipHandler) CreateScholarship(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req ScholarshipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	deadline, err := parseDate(req.ApplicationDeadline, "application_deadline")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sch := types.Scholarship{
		Title:               req.Title,
		Organization:        req.Organization,
		Amount:              req.Amount,
		Description:         req.Description,
		EligibilityCriteria: req.EligibilityCriteria,
		ApplicationURL:      strings.TrimSpace(req.ApplicationURL),
	}
	if deadline != nil {
		sch.ApplicationDeadline = *deadline
	}

	created, err := h.scholarshipService.Create(r.Context(), id.ID, sch)
	if err != nil {
		writeServiceError(w, h.log, err, "scholarship not found")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ScholarshipHandler) UpdateScholarship(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	schID, err := parseID(r, "scholarshipID", "scholarship")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ScholarshipUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	update := types.ScholarshipUpdate{
		Title:               req.Title,
		Organization:        req.Organization,
		Amount:              req.Amount,
		Description:         req.Description,
		EligibilityCriteria: req.EligibilityCriteria,
		ApplicationURL:      req.ApplicationURL,
	}
	if req.ApplicationDeadline != nil {
		deadline, err := parseDate(*req.ApplicationDeadline, "application_deadline")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		update.ApplicationDeadline = deadline
	}

	updated, err := h.scholarshipService.Update(r.Context(), id.ID, schID, update)
	if err != nil {
		writeServiceError(w, h.log, err, "scholarship not found")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

type ScholarshipRequest struct {
	Title               string   `json:"title"`
	Organization        string   `json:"organization"`
	Amount              *float64 `json:"amount"`
	Description         string   `json:"description"`
	EligibilityCriteria string   `json:"eligibility_criteria"`
	ApplicationDeadline string   `json:"application_deadline"`
	ApplicationURL      string   `json:"application_url"`
}

type ScholarshipUpdateRequest struct {
	Title               *string  `json:"title"`
	Organization        *string  `json:"organization"`
	Amount              *float64 `json:"amount"`
	Description         *string  `json:"description"`
	EligibilityCriteria *string  `json:"eligibility_criteria"`
	ApplicationDeadline *string  `json:"application_deadline"`
	ApplicationURL      *string  `json:"application_url"`
}
