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

type StoryHandler struct {
	storyService *services.StoryService
	log          logrus.FieldLogger
}

func NewStoryHandler(storyService *services.StoryService, log logrus.FieldLogger) *StoryHandler {
	return &StoryHandler{storyService: storyService, log: log}
}

// StoryRouter registers success story routes on the given router.
func StoryRouter(r chi.Router, storyService *services.StoryService, guard *auth.Guard, log logrus.FieldLogger) {
	handler := NewStoryHandler(storyService, log)

	r.Get("/", handler.ListStories)
	r.Get("/categories", handler.ListCategories)
	r.With(guard.RequireIdentity).Post("/", handler.CreateStory)
	r.With(guard.RequireIdentity).Get("/my-stories", handler.ListMine)
	r.Route("/{storyID}", func(r chi.Router) {
		r.Get("/", handler.GetStory)
		r.With(guard.RequireIdentity).Put("/", handler.UpdateStory)
		r.With(guard.RequireIdentity).Post("/like", handler.LikeStory)
		r.With(guard.RequireIdentity).Delete("/like", handler.UnlikeStory)
	})
}

func (h *StoryHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	category := types.StoryCategory(strings.ToLower(strings.TrimSpace(query.Get("category"))))
	items, total, err := h.storyService.List(r.Context(), category, strings.TrimSpace(query.Get("search")), offset, limit)
	if err != nil {
		writeServiceError(w, h.log, err, "story not found")
		return
	}

	writeJSON(w, http.StatusOK, newList(items, page, limit, total))
}

func (h *StoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newItems(h.storyService.Categories()))
}

func (h *StoryHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	items, err := h.storyService.ListMine(r.Context(), id.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "story not found")
		return
	}

	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *StoryHandler) GetStory(w http.ResponseWriter, r *http.Request) {
	storyID, err := parseID(r, "storyID", "story")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	story, err := h.storyService.Get(r.Context(), storyID)
	if err != nil {
		writeServiceError(w, h.log, err, "story not found")
		return
	}

	writeJSON(w, http.StatusOK, story)
}

func (h *StoryHandler) CreateStory(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req StoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	published := true
	if req.IsPublished != nil {
		published = *req.IsPublished
	}

	created, err := h.storyService.Create(r.Context(), id.ID, types.Story{
		Title:       req.Title,
		Content:     req.Content,
		Category:    types.StoryCategory(strings.ToLower(strings.TrimSpace(req.Category))),
		Tags:        req.Tags,
		IsPublished: published,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "story not found")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *StoryHandler) UpdateStory(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	storyID, err := parseID(r, "storyID", "story")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var update types.StoryUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.storyService.Update(r.Context(), id.ID, storyID, update)
	if err != nil {
		writeServiceError(w, h.log, err, "story not found")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *StoryHandler) LikeStory(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	storyID, err := parseID(r, "storyID", "story")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.storyService.Like(r.Context(), id.ID, storyID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "story already liked")
			return
		}
		writeServiceError(w, h.log, err, "story not found")
		return
	}

	writeJSON(w, http.StatusOK, LikesResponse{LikesCount: count})
}

func (h *StoryHandler) UnlikeStory(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	storyID, err := parseID(r, "storyID", "story")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.storyService.Unlike(r.Context(), id.ID, storyID)
	if err != nil {
		writeServiceError(w, h.log, err, "like not found")
		return
	}

	writeJSON(w, http.StatusOK, LikesResponse{LikesCount: count})
}

// StoryRequest creates a story. Stories are published unless is_published is false.
type StoryRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	IsPublished *bool    `json:"is_published"`
}

type LikesResponse struct {
	LikesCount int `json:"likes_count"`
}
