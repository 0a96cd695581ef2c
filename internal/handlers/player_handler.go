package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/qazaqstudy/lesson-studio/internal/models"
	"github.com/qazaqstudy/lesson-studio/internal/player"
	"github.com/qazaqstudy/lesson-studio/internal/services"
)

// PlayerService is the interface that wraps methods for lesson play sessions
type PlayerService interface {
	// Open starts (or restarts) a play session for a lesson
	//
	// "ctx" parameter is the context for the request.
	// "lessonID" parameter is used to identify the lesson.
	// "preview" parameter switches the session into authoring preview mode.
	//
	// If the lesson cannot be loaded, the error will be returned together with "nil" value.
	Open(ctx context.Context, lessonID int, preview bool) (*services.PlayerSession, error)
	// Get returns an already-open play session
	//
	// "lessonID" parameter is used to identify the lesson.
	//
	// If no session is open for the lesson, the error will be returned together with "nil" value.
	Get(lessonID int) (*services.PlayerSession, error)
	// Close forgets a play session
	//
	// "lessonID" parameter is used to identify the lesson.
	Close(lessonID int)
}

// PlayerHandler handles lesson playback HTTP requests
type PlayerHandler struct {
	BaseHandler
	players PlayerService
}

// NewPlayerHandler creates a new instance of PlayerHandler
func NewPlayerHandler(players PlayerService, logger *zap.Logger) *PlayerHandler {
	return &PlayerHandler{
		BaseHandler: BaseHandler{Logger: logger},
		players:     players,
	}
}

// RegisterRoutes registers all player handler routes
func (h *PlayerHandler) RegisterRoutes(r chi.Router) {
	r.Route("/player/lessons/{lessonID}", func(r chi.Router) {
		r.Post("/", h.OpenLesson)
		r.Get("/", h.View)
		r.Delete("/", h.CloseLesson)
		r.Post("/goto", h.GoTo)
		r.Post("/progress", h.SaveProgress)
		r.Route("/blocks/{blockID}", func(r chi.Router) {
			r.Post("/continue", h.ContinueBlock)
			r.Post("/flashcards", h.FlashcardAction)
			r.Post("/answers", h.AnswerQuiz)
			r.Post("/pronunciation", h.RecordPronunciation)
			r.Post("/audio-answer", h.AnswerAudioTask)
			r.Post("/writing", h.SubmitWriting)
		})
	})
}

// OpenLesson starts playing a lesson
// @Summary Open a lesson for playback
// @Tags player
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param preview query bool false "Authoring preview mode"
// @Success 200 {object} services.PlayerView "Player state"
// @Failure 401 {object} map[string]string "Unauthorized - authentication required"
// @Failure 502 {object} map[string]string "Core API failure"
// @Router /player/lessons/{lessonID} [post]
func (h *PlayerHandler) OpenLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := h.lessonID(w, r)
	if !ok {
		return
	}
	preview := r.URL.Query().Get("preview") == "true"

	session, err := h.players.Open(r.Context(), lessonID, preview)
	if err != nil {
		h.RespondServiceError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, session.View(r.Context()))
}

// View returns the current player state
// @Summary Get the player state
// @Tags player
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Success 200 {object} services.PlayerView "Player state"
// @Failure 404 {object} map[string]string "No open session"
// @Router /player/lessons/{lessonID} [get]
func (h *PlayerHandler) View(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.RespondJSON(w, http.StatusOK, session.View(r.Context()))
}

// CloseLesson forgets the play session
// @Summary Close the play session
// @Tags player
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Success 204 "No Content"
// @Router /player/lessons/{lessonID} [delete]
func (h *PlayerHandler) CloseLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := h.lessonID(w, r)
	if !ok {
		return
	}
	h.players.Close(lessonID)
	w.WriteHeader(http.StatusNoContent)
}

// ContinueBlock completes the current block and advances
// @Summary Continue past a block
// @Tags player
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param blockID path int true "Block ID"
// @Success 200 {object} services.PlayerView "Player state"
// @Failure 409 {object} map[string]string "The block's completion gate is not satisfied"
// @Router /player/lessons/{lessonID}/blocks/{blockID}/continue [post]
func (h *PlayerHandler) ContinueBlock(w http.ResponseWriter, r *http.Request) {
	session, blockID, ok := h.sessionAndBlock(w, r)
	if !ok {
		return
	}

	if err := session.ContinueBlock(r.Context(), blockID); err != nil {
		h.RespondError(w, http.StatusConflict, err.Error())
		return
	}
	h.RespondJSON(w, http.StatusOK, session.View(r.Context()))
}

// flashcardActionRequest pages the card deck
type flashcardActionRequest struct {
	Action string `json:"action"`
}

// FlashcardAction pages the flashcard deck: next, prev or skip
// @Summary Flashcard deck action
// @Tags player
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param blockID path int true "Block ID"
// @Param action body flashcardActionRequest true "next, prev or skip"
// @Success 200 {object} services.PlayerView "Player state"
// @Failure 400 {object} map[string]string "Bad request - unknown action or block"
// @Router /player/lessons/{lessonID}/blocks/{blockID}/flashcards [post]
func (h *PlayerHandler) FlashcardAction(w http.ResponseWriter, r *http.Request) {
	session, blockID, ok := h.sessionAndBlock(w, r)
	if !ok {
		return
	}

	var req flashcardActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := session.FlashcardAction(blockID, req.Action); err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.RespondJSON(w, http.StatusOK, session.View(r.Context()))
}

// AnswerQuiz records one quiz answer
// @Summary Answer a quiz question
// @Description Answers are collected for submission; nothing is graded here
// @Tags player
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param blockID path int true "Block ID"
// @Param answer body models.QuizAnswer true "The learner's answer"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Bad request - unknown question or block"
// @Router /player/lessons/{lessonID}/blocks/{blockID}/answers [post]
func (h *PlayerHandler) AnswerQuiz(w http.ResponseWriter, r *http.Request) {
	session, blockID, ok := h.sessionAndBlock(w, r)
	if !ok {
		return
	}

	var answer models.QuizAnswer
	if err := json.NewDecoder(r.Body).Decode(&answer); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := session.AnswerQuiz(blockID, answer); err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordPronunciation scores a recorded pronunciation attempt
// @Summary Record a pronunciation attempt
// @Tags player
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param blockID path int true "Block ID"
// @Param audio formData file true "Recorded audio"
// @Param itemId formData int false "Drill item ID, must match the current item"
// @Success 200 {object} models.PronunciationScore "Score"
// @Failure 400 {object} map[string]string "Bad request - missing audio or wrong item"
// @Failure 502 {object} map[string]string "Scoring failed"
// @Router /player/lessons/{lessonID}/blocks/{blockID}/pronunciation [post]
func (h *PlayerHandler) RecordPronunciation(w http.ResponseWriter, r *http.Request) {
	session, blockID, ok := h.sessionAndBlock(w, r)
	if !ok {
		return
	}

	audio, header, err := r.FormFile("audio")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer audio.Close()

	itemID, _ := strconv.Atoi(r.FormValue("itemId"))

	score, err := session.RecordPronunciation(r.Context(), blockID, itemID, header.Filename, audio)
	if err != nil {
		h.RespondServiceError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, score)
}

// audioAnswerRequest carries an audio task answer
type audioAnswerRequest struct {
	Answer string `json:"answer"`
}

// AnswerAudioTask scores the learner's audio task answer
// @Summary Answer an audio task
// @Tags player
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param blockID path int true "Block ID"
// @Param answer body audioAnswerRequest true "The learner's answer"
// @Success 200 {object} player.AudioTaskResult "Correctness and feedback"
// @Failure 502 {object} map[string]string "Scoring failed"
// @Router /player/lessons/{lessonID}/blocks/{blockID}/audio-answer [post]
func (h *PlayerHandler) AnswerAudioTask(w http.ResponseWriter, r *http.Request) {
	session, blockID, ok := h.sessionAndBlock(w, r)
	if !ok {
		return
	}

	var req audioAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := session.AnswerAudioTask(r.Context(), blockID, req.Answer)
	if err != nil {
		h.RespondServiceError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, result)
}

// writingRequest carries a free writing submission
type writingRequest struct {
	Text string `json:"text"`
}

// SubmitWriting reviews a free writing submission
// @Summary Submit free writing
// @Tags player
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param blockID path int true "Block ID"
// @Param text body writingRequest true "The learner's text"
// @Success 200 {object} models.WritingReview "AI review"
// @Failure 502 {object} map[string]string "Checker failed; progression is not blocked"
// @Router /player/lessons/{lessonID}/blocks/{blockID}/writing [post]
func (h *PlayerHandler) SubmitWriting(w http.ResponseWriter, r *http.Request) {
	session, blockID, ok := h.sessionAndBlock(w, r)
	if !ok {
		return
	}

	var req writingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	review, err := session.SubmitWriting(r.Context(), blockID, req.Text)
	if err != nil {
		h.RespondServiceError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, review)
}

// goToRequest jumps to a block index or step tab
type goToRequest struct {
	Index *int        `json:"index,omitempty"`
	Step  player.Step `json:"step,omitempty"`
}

// GoTo jumps to a block index or the first block of a step
// @Summary Navigate within the lesson
// @Tags player
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param target body goToRequest true "Block index or step name"
// @Success 200 {object} services.PlayerView "Player state"
// @Failure 400 {object} map[string]string "Bad request - index out of range or unknown step"
// @Router /player/lessons/{lessonID}/goto [post]
func (h *PlayerHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req goToRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var err error
	switch {
	case req.Index != nil:
		err = session.GoToBlock(*req.Index)
	case req.Step != "":
		err = session.GoToStep(req.Step)
	default:
		h.RespondError(w, http.StatusBadRequest, "index or step is required")
		return
	}
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.RespondJSON(w, http.StatusOK, session.View(r.Context()))
}

// progressRequest carries a whole-lesson progress report
type progressRequest struct {
	Status string `json:"status"`
}

// SaveProgress reports whole-lesson progress
// @Summary Save lesson progress
// @Tags player
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lessonID path int true "Lesson ID"
// @Param progress body progressRequest true "Lesson status"
// @Success 204 "No Content"
// @Failure 502 {object} map[string]string "Core API failure"
// @Router /player/lessons/{lessonID}/progress [post]
func (h *PlayerHandler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := session.SaveProgress(r.Context(), req.Status); err != nil {
		h.RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lessonID parses the lesson id path parameter
func (h *PlayerHandler) lessonID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "lessonID"))
	if err != nil || id <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid lesson id")
		return 0, false
	}
	return id, true
}

// session resolves the open play session for the lesson in the path
func (h *PlayerHandler) session(w http.ResponseWriter, r *http.Request) (*services.PlayerSession, bool) {
	lessonID, ok := h.lessonID(w, r)
	if !ok {
		return nil, false
	}
	session, err := h.players.Get(lessonID)
	if err != nil {
		h.RespondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return session, true
}

// sessionAndBlock resolves the session plus the block id path parameter
func (h *PlayerHandler) sessionAndBlock(w http.ResponseWriter, r *http.Request) (*services.PlayerSession, int, bool) {
	session, ok := h.session(w, r)
	if !ok {
		return nil, 0, false
	}
	blockID, err := strconv.Atoi(chi.URLParam(r, "blockID"))
	if err != nil || blockID <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid block id")
		return nil, 0, false
	}
	return session, blockID, true
}
