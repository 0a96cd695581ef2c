package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/qazaqstudy/lesson-studio/internal/models"
	"github.com/qazaqstudy/lesson-studio/internal/services"
)

// AuthoringService is the interface that wraps methods for lesson editing sessions
type AuthoringService interface {
	// Open returns the editing session for a lesson, loading it on first access
	//
	// "ctx" parameter is the context for the request.
	// "lessonID" parameter is used to identify the lesson.
	//
	// If the lesson cannot be loaded, the error will be returned together with "nil" value.
	Open(ctx context.Context, lessonID int) (*services.AuthoringSession, error)
	// Get returns an already-open editing session
	//
	// "lessonID" parameter is used to identify the lesson.
	//
	// If no session is open for the lesson, the error will be returned together with "nil" value.
	Get(lessonID int) (*services.AuthoringSession, error)
	// Close flushes remaining changes and discards the session
	//
	// "ctx" parameter is the context for the request.
	// "lessonID" parameter is used to identify the lesson.
	//
	// If the final save fails, the error will be returned.
	Close(ctx context.Context, lessonID int) error
	// Publish flushes pending edits and publishes the lesson
	//
	// "ctx" parameter is the context for the request.
	// "lessonID" parameter is used to identify the lesson.
	//
	// If some error occurs during publication, the error will be returned.
	Publish(ctx context.Context, lessonID int) error
	// Unpublish reverts a lesson to draft status
	//
	// "ctx" parameter is the context for the request.
	// "lessonID" parameter is used to identify the lesson.
	//
	// If some error occurs during unpublication, the error will be returned.
	Unpublish(ctx context.Context, lessonID int) error
}

// MediaAPI is the interface that wraps the media upload pass-through
type MediaAPI interface {
	// Upload sends a media file to the core API and returns its URL
	//
	// "ctx" parameter is the context for the request.
	// "kind" parameter is the media kind: image, audio or video.
	// "filename" parameter names the uploaded file.
	// "file" parameter streams the file bytes.
	//
	// If the upload fails, the error will be returned together with "nil" value.
	Upload(ctx context.Context, kind, filename string, file io.Reader) (*models.UploadResult, error)
}

// AuthoringHandler handles lesson authoring HTTP requests
type AuthoringHandler struct {
	BaseHandler
	authoring AuthoringService
	media     MediaAPI
}

// NewAuthoringHandler creates a new instance of AuthoringHandler
func NewAuthoringHandler(authoring AuthoringService, media MediaAPI, logger *zap.Logger) *AuthoringHandler {
	return &AuthoringHandler{
		BaseHandler: BaseHandler{Logger: logger},
		authoring:   authoring,
		media:       media,
	}
}

// RegisterRoutes registers all authoring handler routes
func (h *AuthoringHandler) RegisterRoutes(r chi.Router) {
	r.Route("/studio/lessons/{lessonID}", func(r chi.Router) {
		r.Post("/session", h.OpenSession)
		r.Get("/session", h.GetSession)
		r.Delete("/session", h.CloseSession)
		r.Patch("/meta", h.PatchMeta)
		r.Post("/blocks", h.AddBlock)
		r.Patch("/blocks/{blockID}", h.PatchBlock)
		r.Delete("/blocks/{blockID}", h.DeleteBlock)
		r.Post("/blocks/{blockID}/duplicate", h.DuplicateBlock)
		r.Post("/blocks/{blockID}/select", h.SelectBlock)
		r.Post("/reorder", h.Reorder)
		r.Post("/undo", h.Undo)
		r.Post("/redo", h.Redo)
		r.Post("/save", h.SaveNow)
		r.Post("/publish", h.Publish)
		r.Post("/unpublish", h.Unpublish)
	})
	r.Post("/studio/upload/{kind}", h.Upload)
}

// OpenSession opens (or resumes) the editing session for a lesson
// @Summary Open an editing session
// @Description Loads the lesson, normalizes its block structure and returns the editing state
// @Tags studio
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Success 200 {object} services.SessionState "Editing state"
// @Failure 400 {object} map[string]string "Bad request - invalid lesson id"
// @Failure 401 {object} map[string]string "Unauthorized - authentication required"
// @Failure 502 {object} map[string]string "Core API failure"
// @Router /studio/lessons/{lessonID}/session [post]
func (h *AuthoringHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := h.lessonID(w, r)
	if !ok {
		return
	}

	session, err := h.authoring.Open(r.Context(), lessonID)
	if err != nil {
		h.RespondServiceError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, session.State())
}

// GetSession returns the current editing state
// @Summary Get the editing state
// @Tags studio
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Success 200 {object} services.SessionState "Editing state"
// @Failure 404 {object} map[string]string "No open session"
// @Router /studio/lessons/{lessonID}/session [get]
func (h *AuthoringHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.RespondJSON(w, http.StatusOK, session.State())
}

// CloseSession saves and discards the editing session
// @Summary Close the editing session
// @Tags studio
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Success 204 "No Content"
// @Failure 502 {object} map[string]string "Final save failed"
// @Router /studio/lessons/{lessonID}/session [delete]
func (h *AuthoringHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := h.lessonID(w, r)
	if !ok {
		return
	}

	if err := h.authoring.Close(r.Context(), lessonID); err != nil {
		h.RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PatchMeta applies a lesson metadata patch
// @Summary Patch lesson metadata
// @Tags studio
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param patch body models.LessonMetaPatch true "Fields to change"
// @Success 200 {object} services.SessionState "Editing state"
// @Failure 400 {object} map[string]string "Bad request - invalid request body"
// @Router /studio/lessons/{lessonID}/meta [patch]
func (h *AuthoringHandler) PatchMeta(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var patch models.LessonMetaPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session.PatchMeta(patch)
	h.RespondJSON(w, http.StatusOK, session.State())
}

// AddBlock creates a new block of the requested type
// @Summary Add a block
// @Tags studio
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param block body models.CreateBlockRequest true "Block type"
// @Success 201 {object} services.AuthoredBlock "Created block"
// @Failure 400 {object} map[string]string "Bad request - invalid request body"
// @Failure 502 {object} map[string]string "Core API failure"
// @Router /studio/lessons/{lessonID}/blocks [post]
func (h *AuthoringHandler) AddBlock(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.CreateBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type == "" {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	block, err := session.AddBlock(r.Context(), req.Type)
	if err != nil {
		h.RespondServiceError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusCreated, block)
}

// PatchBlock replaces a block's content
// @Summary Patch block content
// @Description The raw payload is normalized through the content schema; editing the flashcards block re-derives the pronunciation drill
// @Tags studio
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param blockID path int true "Block ID"
// @Param content body object true "Block content"
// @Success 200 {object} services.SessionState "Editing state"
// @Failure 400 {object} map[string]string "Bad request - unknown block or invalid body"
// @Router /studio/lessons/{lessonID}/blocks/{blockID} [patch]
func (h *AuthoringHandler) PatchBlock(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	blockID, ok := h.blockID(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := session.PatchBlockContent(blockID, raw); err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.RespondJSON(w, http.StatusOK, session.State())
}

// DeleteBlock removes a block from the lesson
// @Summary Delete a block
// @Tags studio
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param blockID path int true "Block ID"
// @Success 200 {object} services.SessionState "Editing state"
// @Failure 502 {object} map[string]string "Core API failure"
// @Router /studio/lessons/{lessonID}/blocks/{blockID} [delete]
func (h *AuthoringHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	blockID, ok := h.blockID(w, r)
	if !ok {
		return
	}

	if err := session.DeleteBlock(r.Context(), blockID); err != nil {
		h.RespondServiceError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, session.State())
}

// DuplicateBlock clones a block right after its source
// @Summary Duplicate a block
// @Tags studio
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param blockID path int true "Block ID"
// @Success 201 {object} services.AuthoredBlock "Clone"
// @Failure 502 {object} map[string]string "Core API failure"
// @Router /studio/lessons/{lessonID}/blocks/{blockID}/duplicate [post]
func (h *AuthoringHandler) DuplicateBlock(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	blockID, ok := h.blockID(w, r)
	if !ok {
		return
	}

	block, err := session.DuplicateBlock(r.Context(), blockID)
	if err != nil {
		h.RespondServiceError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusCreated, block)
}

// SelectBlock remembers which block the author is editing
// @Summary Select a block
// @Tags studio
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param blockID path int true "Block ID"
// @Success 204 "No Content"
// @Router /studio/lessons/{lessonID}/blocks/{blockID}/select [post]
func (h *AuthoringHandler) SelectBlock(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	blockID, ok := h.blockID(w, r)
	if !ok {
		return
	}

	session.Select(blockID)
	w.WriteHeader(http.StatusNoContent)
}

// reorderRequest moves a block between positions
type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Reorder moves a block to a new position
// @Summary Reorder blocks
// @Tags studio
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param move body reorderRequest true "From and to indexes"
// @Success 200 {object} services.SessionState "Editing state"
// @Failure 400 {object} map[string]string "Bad request - indexes out of range"
// @Router /studio/lessons/{lessonID}/reorder [post]
func (h *AuthoringHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := session.Reorder(req.From, req.To); err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.RespondJSON(w, http.StatusOK, session.State())
}

// Undo reverts the most recent change
// @Summary Undo
// @Tags studio
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Success 200 {object} services.SessionState "Editing state"
// @Router /studio/lessons/{lessonID}/undo [post]
func (h *AuthoringHandler) Undo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.Undo()
	h.RespondJSON(w, http.StatusOK, session.State())
}

// Redo re-applies the most recently undone change
// @Summary Redo
// @Tags studio
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Success 200 {object} services.SessionState "Editing state"
// @Router /studio/lessons/{lessonID}/redo [post]
func (h *AuthoringHandler) Redo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.Redo()
	h.RespondJSON(w, http.StatusOK, session.State())
}

// SaveNow bypasses the autosave debounce and flushes immediately
// @Summary Save now
// @Tags studio
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Success 200 {object} services.SessionState "Editing state"
// @Failure 502 {object} map[string]string "Save failed; changes stay pending"
// @Router /studio/lessons/{lessonID}/save [post]
func (h *AuthoringHandler) SaveNow(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := session.SaveNow(r.Context()); err != nil {
		h.RespondServiceError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, session.State())
}

// Publish saves pending edits and publishes the lesson
// @Summary Publish a lesson
// @Tags studio
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Success 204 "No Content"
// @Failure 502 {object} map[string]string "Publish failed"
// @Router /studio/lessons/{lessonID}/publish [post]
func (h *AuthoringHandler) Publish(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := h.lessonID(w, r)
	if !ok {
		return
	}

	if err := h.authoring.Publish(r.Context(), lessonID); err != nil {
		h.RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unpublish reverts a lesson to draft
// @Summary Unpublish a lesson
// @Tags studio
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Success 204 "No Content"
// @Failure 502 {object} map[string]string "Unpublish failed"
// @Router /studio/lessons/{lessonID}/unpublish [post]
func (h *AuthoringHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := h.lessonID(w, r)
	if !ok {
		return
	}

	if err := h.authoring.Unpublish(r.Context(), lessonID); err != nil {
		h.RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload passes a media file through to the core API
// @Summary Upload media
// @Tags studio
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param kind path string true "Media kind" Enums(image, audio, video)
// @Param file formData file true "Media file"
// @Success 200 {object} models.UploadResult "Stored file URL"
// @Failure 400 {object} map[string]string "Bad request - missing file or unknown kind"
// @Failure 502 {object} map[string]string "Upload failed"
// @Router /studio/upload/{kind} [post]
func (h *AuthoringHandler) Upload(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if kind != "image" && kind != "audio" && kind != "video" {
		h.RespondError(w, http.StatusBadRequest, "unknown media kind")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	result, err := h.media.Upload(r.Context(), kind, header.Filename, file)
	if err != nil {
		h.RespondServiceError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, result)
}

// lessonID parses the lesson id path parameter
func (h *AuthoringHandler) lessonID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "lessonID"))
	if err != nil || id <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid lesson id")
		return 0, false
	}
	return id, true
}

// blockID parses the block id path parameter
func (h *AuthoringHandler) blockID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "blockID"))
	if err != nil || id <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid block id")
		return 0, false
	}
	return id, true
}

// session resolves the open editing session for the lesson in the path
func (h *AuthoringHandler) session(w http.ResponseWriter, r *http.Request) (*services.AuthoringSession, bool) {
	lessonID, ok := h.lessonID(w, r)
	if !ok {
		return nil, false
	}
	session, err := h.authoring.Get(lessonID)
	if err != nil {
		h.RespondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return session, true
}
