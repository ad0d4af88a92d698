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

type MessageHandler struct {
	messageService *services.MessageService
	log            logrus.FieldLogger
}

func NewMessageHandler(messageService *services.MessageService, log logrus.FieldLogger) *MessageHandler {
	return &MessageHandler{messageService: messageService, log: log}
}

// MessageRouter registers message routes. Every route needs an identity.
func MessageRouter(r chi.Router, messageService *services.MessageService, guard *auth.Guard, log logrus.FieldLogger) {
	handler := NewMessageHandler(messageService, log)

	r.Use(guard.RequireIdentity)
	r.Get("/", handler.ListMessages)
	r.Post("/", handler.SendMessage)
	r.Get("/unread-count", handler.UnreadCount)
	r.Get("/conversations", handler.Conversations)
	r.Get("/conversation/{userID}", handler.Conversation)
	r.Route("/{messageID}", func(r chi.Router) {
		r.Get("/", handler.GetMessage)
		r.Put("/read", handler.MarkRead)
	})
}

// ListMessages returns the inbox, or the sent folder for ?type=sent.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var sent bool
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))) {
	case "", "received":
	case "sent":
		sent = true
	default:
		writeError(w, http.StatusBadRequest, "type must be sent or received")
		return
	}

	items, total, err := h.messageService.List(r.Context(), id.ID, sent, offset, limit)
	if err != nil {
		writeServiceError(w, h.log, err, "message not found")
		return
	}

	writeJSON(w, http.StatusOK, newList(items, page, limit, total))
}

// Conversations lists one entry per correspondent, newest first.
func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	items, err := h.messageService.Conversations(r.Context(), id.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "message not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.messageService.Send(r.Context(), id.ID, types.Message{
		RecipientID: req.RecipientID,
		Subject:     req.Subject,
		Content:     req.Content,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "recipient not found")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *MessageHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	messageID, err := parseID(r, "messageID", "message")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.messageService.Get(r.Context(), id.ID, messageID)
	if err != nil {
		writeServiceError(w, h.log, err, "message not found")
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	messageID, err := parseID(r, "messageID", "message")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.messageService.MarkRead(r.Context(), id.ID, messageID); err != nil {
		writeServiceError(w, h.log, err, "message not found")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "message marked as read"})
}

func (h *MessageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	otherID, err := parseID(r, "userID", "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.messageService.Conversation(r.Context(), id.ID, otherID)
	if err != nil {
		writeServiceError(w, h.log, err, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	count, err := h.messageService.UnreadCount(r.Context(), id.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "message not found")
		return
	}

	writeJSON(w, http.StatusOK, UnreadCountResponse{UnreadCount: count})
}

type MessageRequest struct {
	RecipientID int64  `json:"recipient_id"`
	Subject     string `json:"subject"`
	Content     string `json:"content"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}
