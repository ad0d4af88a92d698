package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/alumni-connect/apiserver/internal/auth"
	"github.com/alumni-connect/apiserver/internal/services"
	"github.com/alumni-connect/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const (
	maxImageBytes    = 5 << 20
	formFieldImage   = "image"
	sniffLength      = 512
	imageCacheMaxAge = "public, max-age=300"
)

// UserHandler serves profiles, avatars and the member directory.
type UserHandler struct {
	profileService *services.ProfileService
	log            logrus.FieldLogger
}

func NewUserHandler(profileService *services.ProfileService, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{profileService: profileService, log: log}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, profileService *services.ProfileService, guard *auth.Guard, log logrus.FieldLogger) {
	handler := NewUserHandler(profileService, log)

	r.Get("/alumni", handler.directory(services.DirectoryAlumni))
	r.Get("/students", handler.directory(services.DirectoryStudents))
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireIdentity)
		r.Get("/profile", handler.GetProfile)
		r.Put("/profile", handler.UpdateProfile)
		r.Delete("/profile", handler.Deactivate)
		r.Post("/profile/image", handler.UploadImage)
	})
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Get("/image", handler.GetImage)
	})
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	profile, err := h.profileService.Profile(r.Context(), id.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var update types.ProfileUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.profileService.UpdateProfile(r.Context(), id.ID, update)
	if err != nil {
		writeServiceError(w, h.log, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.profileService.Deactivate(r.Context(), id.ID); err != nil {
		writeServiceError(w, h.log, err, "user not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadImage accepts a multipart "image" field. The content type is sniffed
// from the bytes, not taken from the client.
func (h *UserHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image exceeds 5 MiB")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image exceeds 5 MiB")
		return
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)

	body := io.MultiReader(bytes.NewReader(head), file)
	user, err := h.profileService.UploadImage(r.Context(), id.ID, body, header.Size, contentType)
	if err != nil {
		writeServiceError(w, h.log, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "userID", "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.profileService.PublicProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "userID", "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc, contentType, err := h.profileService.ProfileImage(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "image not found")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", imageCacheMaxAge)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.log.WithError(err).WithField("user_id", userID).Warn("profile image stream interrupted")
	}
}

func (h *UserHandler) directory(dir services.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit, offset, err := parsePagination(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		search := strings.TrimSpace(r.URL.Query().Get("search"))
		items, total, err := h.profileService.Directory(r.Context(), dir, search, offset, limit)
		if err != nil {
			writeServiceError(w, h.log, err, "directory not found")
			return
		}

		writeJSON(w, http.StatusOK, newList(items, page, limit, total))
	}
}
