package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/alumni-connect/apiserver/internal/auth"
	"github.com/alumni-connect/apiserver/internal/services"
	"github.com/alumni-connect/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type MentorshipHandler struct {
	mentorshipService *services.MentorshipService
	log               logrus.FieldLogger
}

func NewMentorshipHandler(mentorshipService *services.MentorshipService, log logrus.FieldLogger) *MentorshipHandler {
	return &MentorshipHandler{mentorshipService: mentorshipService, log: log}
}

// MentorshipRouter registers mentorship routes on the given router.
func MentorshipRouter(r chi.Router, mentorshipService *services.MentorshipService, guard *auth.Guard, log logrus.FieldLogger) {
	handler := NewMentorshipHandler(mentorshipService, log)

	r.Get("/programs", handler.ListPrograms)
	r.With(guard.Roles(types.RoleAlumni, types.RoleMentor)).Post("/programs", handler.CreateProgram)
	r.Get("/mentors", handler.ListMentors)
	r.With(guard.Roles(types.RoleStudent)).Post("/request", handler.RequestSession)
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireIdentity)
		r.Get("/sessions", handler.ListSessions)
		r.Put("/sessions/{sessionID}", handler.UpdateSession)
		r.Post("/sessions/{sessionID}/feedback", handler.LeaveFeedback)
	})
}

func (h *MentorshipHandler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	search := strings.TrimSpace(r.URL.Query().Get("search"))
	items, total, err := h.mentorshipService.ListPrograms(r.Context(), search, offset, limit)
	if err != nil {
		writeServiceError(w, h.log, err, "program not found")
		return
	}

	writeJSON(w, http.StatusOK, newList(items, page, limit, total))
}

func (h *MentorshipHandler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req ProgramRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.mentorshipService.CreateProgram(r.Context(), id.ID, types.MentorshipProgram{
		Title:          req.Title,
		Description:    req.Description,
		ExpertiseAreas: req.ExpertiseAreas,
		MaxMentees:     req.MaxMentees,
		DurationWeeks:  req.DurationWeeks,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "program not found")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *MentorshipHandler) ListMentors(w http.ResponseWriter, r *http.Request) {
	items, err := h.mentorshipService.ListMentors(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")))
	if err != nil {
		writeServiceError(w, h.log, err, "mentor not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *MentorshipHandler) RequestSession(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req SessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.mentorshipService.RequestSession(r.Context(), id.ID, types.MentorshipSession{
		MentorID:        req.MentorID,
		ProgramID:       req.ProgramID,
		Title:           req.Title,
		Description:     strings.TrimSpace(req.Description),
		SessionType:     types.SessionType(strings.ToLower(strings.TrimSpace(req.SessionType))),
		ScheduledDate:   req.ScheduledDate,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "mentor not found")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// ListSessions shows a student's requests, or the sessions an alumnus or
// mentor has been asked to run.
func (h *MentorshipHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	status := types.SessionStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))
	items, err := h.mentorshipService.ListSessions(r.Context(), id.ID, id.Role, status)
	if err != nil {
		writeServiceError(w, h.log, err, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *MentorshipHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	sessionID, err := parseID(r, "sessionID", "session")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var update types.SessionUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.mentorshipService.UpdateSession(r.Context(), id.ID, sessionID, update)
	if err != nil {
		writeServiceError(w, h.log, err, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *MentorshipHandler) LeaveFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	sessionID, err := parseID(r, "sessionID", "session")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req FeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.mentorshipService.LeaveFeedback(r.Context(), id.ID, sessionID, req.Rating, req.Comment)
	if err != nil {
		writeServiceError(w, h.log, err, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

type ProgramRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	ExpertiseAreas []string `json:"expertise_areas"`
	MaxMentees     int      `json:"max_mentees"`
	DurationWeeks  int      `json:"duration_weeks"`
}

// SessionRequest asks a mentor for a session. ScheduledDate is RFC 3339.
type SessionRequest struct {
	MentorID        int64      `json:"mentor_id"`
	ProgramID       *int64     `json:"program_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	SessionType     string     `json:"session_type"`
	ScheduledDate   *time.Time `json:"scheduled_date"`
	DurationMinutes int        `json:"duration_minutes"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}
