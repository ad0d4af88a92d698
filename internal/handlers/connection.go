package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/alumni-connect/apiserver/internal/auth"
	"github.com/alumni-connect/apiserver/internal/services"
	"github.com/alumni-connect/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type ConnectionHandler struct {
	connectionService *services.ConnectionService
	log               logrus.FieldLogger
}

func NewConnectionHandler(connectionService *services.ConnectionService, log logrus.FieldLogger) *ConnectionHandler {
	return &ConnectionHandler{connectionService: connectionService, log: log}
}

// ConnectionRouter registers connection routes. Every route needs an identity.
func ConnectionRouter(r chi.Router, connectionService *services.ConnectionService, guard *auth.Guard, log logrus.FieldLogger) {
	handler := NewConnectionHandler(connectionService, log)

	r.Use(guard.RequireIdentity)
	r.Get("/", handler.ListConnections)
	r.Get("/pending", handler.ListPending)
	r.Get("/stats", handler.Stats)
	r.Get("/suggestions", handler.Suggestions)
	r.Post("/request", handler.RequestConnection)
	r.Route("/{connectionID}", func(r chi.Router) {
		r.Put("/respond", handler.Respond)
		r.Delete("/", handler.RemoveConnection)
	})
}

// ListConnections defaults to accepted connections. ?status and ?type=sent|received narrow it.
func (h *ConnectionHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := types.ConnectionFilter{
		Status:    types.ConnectionStatus(strings.ToLower(strings.TrimSpace(query.Get("status")))),
		Direction: strings.ToLower(strings.TrimSpace(query.Get("type"))),
	}
	if filter.Status == "" {
		filter.Status = types.ConnectionAccepted
	}

	items, err := h.connectionService.List(r.Context(), id.ID, filter)
	if err != nil {
		writeServiceError(w, h.log, err, "connection not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *ConnectionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	items, err := h.connectionService.Pending(r.Context(), id.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "connection not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *ConnectionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	stats, err := h.connectionService.Stats(r.Context(), id.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "connection not found")
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse[types.ConnectionStats]{Stats: stats})
}

// Suggestions takes an optional ?limit, default 10.
func (h *ConnectionHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var limit int
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	items, err := h.connectionService.Suggestions(r.Context(), id.ID, limit)
	if err != nil {
		writeServiceError(w, h.log, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *ConnectionHandler) RequestConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req ConnectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.connectionService.Request(r.Context(), id.ID, req.RecipientID, req.Message)
	if err != nil {
		writeServiceError(w, h.log, err, "user not found")
		return
	}

	writeJSON(w, http.StatusCreated, conn)
}

func (h *ConnectionHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	connID, err := parseID(r, "connectionID", "connection")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := types.ConnectionStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	conn, err := h.connectionService.Respond(r.Context(), id.ID, connID, status)
	if err != nil {
		writeServiceError(w, h.log, err, "connection not found")
		return
	}

	writeJSON(w, http.StatusOK, conn)
}

func (h *ConnectionHandler) RemoveConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	connID, err := parseID(r, "connectionID", "connection")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.connectionService.Remove(r.Context(), id.ID, connID); err != nil {
		writeServiceError(w, h.log, err, "connection not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type ConnectionRequest struct {
	RecipientID int64  `json:"recipient_id"`
	Message     string `json:"message"`
}
