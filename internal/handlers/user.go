package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/userdesk/apiserver/internal/services"
	"github.com/userdesk/apiserver/internal/storage"
	"github.com/userdesk/apiserver/types"
)

// maxAvatarSize caps avatar uploads at 5 MiB.
const maxAvatarSize = 5 << 20

// UserHandler provides user listing and mutation endpoints.
type UserHandler struct {
	userService *services.UserService
	avatars     *storage.AvatarStore
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
// avatars may be nil when no object-storage backend is configured.
func NewUserHandler(userService *services.UserService, avatars *storage.AvatarStore) *UserHandler {
	return &UserHandler{userService: userService, avatars: avatars}
}

// UserRouter registers user routes on the given router. All routes require
// a valid session.
func UserRouter(r chi.Router, userService *services.UserService, avatars *storage.AvatarStore, requireAuth func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService, avatars)

	r.Use(requireAuth)
	r.Get("/", handler.List)
	r.Get("/{id}", handler.Get)
	r.Put("/{id}", handler.Update)
	r.Delete("/{id}", handler.Delete)
	if avatars != nil {
		r.Put("/{id}/avatar", handler.UploadAvatar)
		r.Get("/{id}/avatar", handler.GetAvatar)
	}
}

// List returns all users in creation order.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []types.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// Get returns a single user by id.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Update applies a partial update and returns the refreshed user.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var patch types.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.Update(r.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, services.ErrConflict):
			writeError(w, http.StatusConflict, "email, national id, or nickname already in use")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Delete removes a user by id.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if _, err := h.userService.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadAvatar stores the request body as the user's avatar image and
// records its object key on the user record.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if _, err := h.userService.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxAvatarSize)
	defer body.Close()

	key, err := h.avatars.Put(r.Context(), id, body, r.ContentLength, r.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedContentType) {
			writeError(w, http.StatusUnsupportedMediaType, "avatar must be an image")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	user, err := h.userService.Update(r.Context(), id, types.UserPatch{Image: &key})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// GetAvatar streams the user's avatar image.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user.Image == "" {
		writeError(w, http.StatusNotFound, "user has no avatar")
		return
	}

	reader, err := h.avatars.Get(r.Context(), user.Image)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load avatar")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}
