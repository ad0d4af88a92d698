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

// OpportunityHandler provides HTTP handlers for job and internship postings.
type OpportunityHandler struct {
	opportunityService *services.OpportunityService
	log                logrus.FieldLogger
}

func NewOpportunityHandler(opportunityService *services.OpportunityService, log logrus.FieldLogger) *OpportunityHandler {
	return &OpportunityHandler{opportunityService: opportunityService, log: log}
}

// OpportunityRouter registers opportunity routes on the given router.
func OpportunityRouter(r chi.Router, opportunityService *services.OpportunityService, guard *auth.Guard, log logrus.FieldLogger) {
	handler := NewOpportunityHandler(opportunityService, log)
	posters := guard.Roles(types.RoleAlumni, types.RoleMentor)

	r.Get("/", handler.ListOpportunities)
	r.With(posters).Post("/", handler.CreateOpportunity)
	r.With(posters).Get("/my", handler.ListMine)
	r.Route("/{opportunityID}", func(r chi.Router) {
		r.Get("/", handler.GetOpportunity)
		r.With(guard.RequireIdentity).Put("/", handler.UpdateOpportunity)
		r.With(guard.RequireIdentity).Delete("/", handler.DeleteOpportunity)
	})
}

func (h *OpportunityHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	items, total, err := h.opportunityService.List(r.Context(), types.PostingFilter{
		Search: strings.TrimSpace(query.Get("search")),
		Type:   types.OpportunityType(strings.ToLower(strings.TrimSpace(query.Get("type")))),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "opportunity not found")
		return
	}

	writeJSON(w, http.StatusOK, newList(items, page, limit, total))
}

func (h *OpportunityHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	items, err := h.opportunityService.ListMine(r.Context(), id.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "opportunity not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *OpportunityHandler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	oppID, err := parseID(r, "opportunityID", "opportunity")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opp, err := h.opportunityService.Get(r.Context(), oppID)
	if err != nil {
		writeServiceError(w, h.log, err, "opportunity not found")
		return
	}

	writeJSON(w, http.StatusOK, opp)
}

func (h *OpportunityHandler) CreateOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req OpportunityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	deadline, err := parseDate(req.ApplicationDeadline, "application_deadline")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.opportunityService.Create(r.Context(), id.ID, types.Opportunity{
		Title:               req.Title,
		Company:             req.Company,
		Type:                types.OpportunityType(strings.ToLower(strings.TrimSpace(req.Type))),
		Description:         req.Description,
		Requirements:        strings.TrimSpace(req.Requirements),
		Location:            strings.TrimSpace(req.Location),
		SalaryRange:         strings.TrimSpace(req.SalaryRange),
		ApplicationDeadline: deadline,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "opportunity not found")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *OpportunityHandler) UpdateOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	oppID, err := parseID(r, "opportunityID", "opportunity")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req OpportunityUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	update := types.OpportunityUpdate{
		Title:        req.Title,
		Company:      req.Company,
		Description:  req.Description,
		Requirements: req.Requirements,
		Location:     req.Location,
		SalaryRange:  req.SalaryRange,
	}
	if req.Type != nil {
		oppType := types.OpportunityType(strings.ToLower(strings.TrimSpace(*req.Type)))
		update.Type = &oppType
	}
	if req.ApplicationDeadline != nil {
		deadline, err := parseDate(*req.ApplicationDeadline, "application_deadline")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		update.ApplicationDeadline = deadline
	}

	updated, err := h.opportunityService.Update(r.Context(), id.ID, oppID, update)
	if err != nil {
		writeServiceError(w, h.log, err, "opportunity not found")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *OpportunityHandler) DeleteOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	oppID, err := parseID(r, "opportunityID", "opportunity")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.opportunityService.Delete(r.Context(), id.ID, oppID); err != nil {
		writeServiceError(w, h.log, err, "opportunity not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// OpportunityRequest is the create payload. Deadlines are YYYY-MM-DD.
type OpportunityRequest struct {
	Title               string `json:"title"`
	Company             string `json:"company"`
	Type                string `json:"type"`
	Description         string `json:"description"`
	Requirements        string `json:"requirements"`
	Location            string `json:"location"`
	SalaryRange         string `json:"salary_range"`
	ApplicationDeadline string `json:"application_deadline"`
}

type OpportunityUpdateRequest struct {
	Title               *string `json:"title"`
	Company             *string `json:"company"`
	Type                *string `json:"type"`
	Description         *string `json:"description"`
	Requirements        *string `json:"requirements"`
	Location            *string `json:"location"`
	SalaryRange         *string `json:"salary_range"`
	ApplicationDeadline *string `json:"application_deadline"`
}
