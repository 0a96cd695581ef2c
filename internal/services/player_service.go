package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/qazaqstudy/lesson-studio/internal/models"
	"github.com/qazaqstudy/lesson-studio/internal/player"
)

// ProgressAPI defines the progression persistence operations the player
// needs from the core API
type ProgressAPI interface {
	// BlockFinished reports a single finished block
	//
	// "ctx" is the context for the request.
	// "update" carries the lesson, block and elapsed time.
	//
	// Returns an error if any.
	BlockFinished(ctx context.Context, update models.ProgressUpdate) error
	// SaveProgress reports whole-lesson progress
	//
	// "ctx" is the context for the request.
	// "update" carries the lesson status and elapsed time.
	//
	// Returns an error if any.
	SaveProgress(ctx context.Context, update models.ProgressUpdate) error
	// CompleteLesson reports lesson completion
	//
	// "ctx" is the context for the request.
	// "lessonID" is the ID of the finished lesson.
	// "update" carries the final elapsed time.
	//
	// Returns the completion verdict and an error if any.
	CompleteLesson(ctx context.Context, lessonID int, update models.ProgressUpdate) (*models.CompleteLessonResult, error)
}

// ScoringAPI defines the external scoring collaborators the player widgets
// submit learner attempts to
type ScoringAPI interface {
	// CheckPronunciation submits a recorded attempt for scoring
	//
	// "ctx" is the context for the request.
	// "word" is the target word.
	// "filename" names the uploaded recording.
	// "audio" streams the recording bytes.
	//
	// Returns the score and an error if any.
	CheckPronunciation(ctx context.Context, word, filename string, audio io.Reader) (*models.PronunciationScore, error)
	// CheckFreeWriting submits a free-writing answer to the AI checker
	//
	// "ctx" is the context for the request.
	// "question" is the writing prompt.
	// "answer" is the learner's text.
	// "language" is the lesson language.
	//
	// Returns the review and an error if any.
	CheckFreeWriting(ctx context.Context, question, answer, language string) (*models.WritingReview, error)
	// CheckText submits arbitrary learner text to the AI checker
	//
	// "ctx" is the context for the request.
	// "text" is the learner's text.
	// "language" is the lesson language.
	//
	// Returns the review and an error if any.
	CheckText(ctx context.Context, text, language string) (*models.WritingReview, error)
}

// audioTaskPassScore is the checker score from which an audio task answer
// counts as correct
const audioTaskPassScore = 0.5

// PlayerSession is one learner's run through a lesson
type PlayerSession struct {
	lessonID    int
	preview     bool
	lesson      models.Lesson
	progression *player.Progression
	renderer    *player.Renderer
	progressAPI ProgressAPI
	scoring     ScoringAPI
	logger      *zap.Logger

	mu     sync.Mutex
	queue  []int
	result *models.CompleteLessonResult
}

// onBlockComplete is the renderer's completion callback. It advances the
// progression immediately and queues the block for persistence, which
// happens on the next call that carries a context.
func (s *PlayerSession) onBlockComplete(blockID int) {
	s.progression.MarkComplete(blockID, nil)
	s.queue = append(s.queue, blockID)
}

// drainLocked persists queued block completions and, once the last block is
// done, reports lesson completion. Persistence failures are logged and
// dropped; they never interrupt the learner.
func (s *PlayerSession) drainLocked(ctx context.Context) {
	if s.preview {
		s.queue = nil
		return
	}

	for _, blockID := range s.queue {
		update := models.ProgressUpdate{
			LessonID:    s.lessonID,
			BlockID:     blockID,
			Status:      "completed",
			ElapsedSecs: s.progression.ElapsedSeconds(),
		}
		if err := s.progressAPI.BlockFinished(ctx, update); err != nil {
			s.logger.Warn("failed to report finished block",
				zap.Int("lesson_id", s.lessonID),
				zap.Int("block_id", blockID),
				zap.Error(err),
			)
		}
	}
	s.queue = nil

	if s.result == nil && s.progression.Finished() {
		update := models.ProgressUpdate{
			LessonID:    s.lessonID,
			Status:      "completed",
			ElapsedSecs: s.progression.ElapsedSeconds(),
		}
		result, err := s.progressAPI.CompleteLesson(ctx, s.lessonID, update)
		if err != nil {
			s.logger.Error("failed to complete lesson", zap.Int("lesson_id", s.lessonID), zap.Error(err))
			return
		}
		s.result = result
	}
}

// renderCurrentLocked renders the block at the learner's position. Blocks
// the renderer skips (unsupported types outside preview) advance the
// position, so rendering continues until a real widget comes up or the
// position stops moving.
func (s *PlayerSession) renderCurrentLocked() player.Widget {
	prev := -1
	for {
		index := s.progression.CurrentIndex()
		block, ok := s.progression.Current()
		if !ok || index == prev {
			return nil
		}
		prev = index
		if widget := s.renderer.Render(block); widget != nil {
			return widget
		}
	}
}

// WidgetView is the serializable summary of the current widget
type WidgetView struct {
	Type models.BlockType `json:"type"`
	Done bool             `json:"done"`
}

// PlayerView is the player state returned to the client after every action
type PlayerView struct {
	Lesson         models.Lesson                `json:"lesson"`
	CurrentIndex   int                          `json:"currentIndex"`
	CurrentBlockID int                          `json:"currentBlockId,omitempty"`
	Widget         player.Widget                `json:"-"`
	WidgetView     *WidgetView                  `json:"widget,omitempty"`
	Steps          []player.StepTab             `json:"steps"`
	CompletedCount int                          `json:"completedCount"`
	TotalBlocks    int                          `json:"totalBlocks"`
	Preview        bool                         `json:"preview"`
	Finished       bool                         `json:"finished"`
	Result         *models.CompleteLessonResult `json:"result,omitempty"`
}

// View renders the current block and returns the full player state
func (s *PlayerSession) View(ctx context.Context) PlayerView {
	s.mu.Lock()
	defer s.mu.Unlock()

	widget := s.renderCurrentLocked()
	s.drainLocked(ctx)

	view := PlayerView{
		Lesson:         s.lesson,
		CurrentIndex:   s.progression.CurrentIndex(),
		Widget:         widget,
		Steps:          s.progression.Steps(),
		CompletedCount: s.progression.CompletedCount(),
		TotalBlocks:    len(s.progression.Blocks()),
		Preview:        s.preview,
		Finished:       s.progression.Finished(),
		Result:         s.result,
	}
	if block, ok := s.progression.Current(); ok {
		view.CurrentBlockID = block.ID
	}
	if widget != nil {
		view.WidgetView = &WidgetView{Type: widget.Type(), Done: widget.Done()}
	}
	return view
}

// ContinueBlock performs the block's continue action and reports it
// complete. The widget's own gate decides whether the learner may advance.
func (s *PlayerSession) ContinueBlock(ctx context.Context, blockID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	widget, ok := s.renderer.Widget(blockID)
	if !ok {
		return fmt.Errorf("block %d is not rendered", blockID)
	}

	switch w := widget.(type) {
	case *player.ContinueWidget:
		w.Continue()
	case *player.FlashcardsWidget:
		if err := w.Continue(); err != nil {
			return err
		}
	case *player.QuizWidget:
		w.Submit()
	case *player.AudioTaskWidget:
		w.Finish()
	case *player.FreeWritingWidget:
		// Free writing never gates progression.
	case *player.PronunciationWidget:
		// No action; the gate below decides.
	}

	if !s.renderer.Complete(blockID) && !s.renderer.Completed(blockID) {
		return fmt.Errorf("block %d is not finished yet", blockID)
	}
	s.drainLocked(ctx)
	return nil
}

// FlashcardAction pages the card deck: "next", "prev" or "skip"
func (s *PlayerSession) FlashcardAction(blockID int, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	widget, err := s.flashcardsWidgetLocked(blockID)
	if err != nil {
		return err
	}
	switch action {
	case "next":
		widget.Next()
	case "prev":
		widget.Prev()
	case "skip":
		widget.Skip()
	default:
		return fmt.Errorf("unknown flashcard action %q", action)
	}
	return nil
}

// AnswerQuiz records one answer on a quiz-family block
func (s *PlayerSession) AnswerQuiz(blockID int, answer models.QuizAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	widget, ok := s.renderer.Widget(blockID)
	if !ok {
		return fmt.Errorf("block %d is not rendered", blockID)
	}
	quiz, ok := widget.(*player.QuizWidget)
	if !ok {
		return fmt.Errorf("block %d is not a quiz block", blockID)
	}
	return quiz.Answer(answer)
}

// RecordPronunciation scores a recorded attempt for the drill's current item
// and advances the drill
func (s *PlayerSession) RecordPronunciation(ctx context.Context, blockID, itemID int, filename string, audio io.Reader) (*models.PronunciationScore, error) {
	s.mu.Lock()
	widget, ok := s.renderer.Widget(blockID)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("block %d is not rendered", blockID)
	}
	drill, ok := widget.(*player.PronunciationWidget)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("block %d is not a pronunciation block", blockID)
	}
	item, ok := drill.Current()
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("all items already have a recorded attempt")
	}
	if itemID != 0 && item.ID != itemID {
		s.mu.Unlock()
		return nil, fmt.Errorf("item %d is not the current drill item", itemID)
	}
	s.mu.Unlock()

	score, err := s.scoring.CheckPronunciation(ctx, item.Word, filename, audio)
	if err != nil {
		return nil, fmt.Errorf("failed to score pronunciation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := drill.RecordScore(*score); err != nil {
		return nil, err
	}
	return score, nil
}

// AnswerAudioTask scores the learner's answer through the text checker.
// The result is attached to the widget; finishing stays available either way.
func (s *PlayerSession) AnswerAudioTask(ctx context.Context, blockID int, answer string) (*player.AudioTaskResult, error) {
	s.mu.Lock()
	widget, ok := s.renderer.Widget(blockID)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("block %d is not rendered", blockID)
	}
	task, ok := widget.(*player.AudioTaskWidget)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("block %d is not an audio task block", blockID)
	}
	task.SetAnswer(answer)
	language := s.lesson.Language
	s.mu.Unlock()

	review, err := s.scoring.CheckText(ctx, answer, language)
	if err != nil {
		return nil, fmt.Errorf("failed to score answer: %w", err)
	}

	result := player.AudioTaskResult{
		Correct:  review.Score >= audioTaskPassScore,
		Feedback: review.Feedback,
	}
	s.mu.Lock()
	task.SetResult(result)
	s.mu.Unlock()
	return &result, nil
}

// SubmitWriting sends the learner's text to the AI checker. A checker
// failure is recorded on the widget for the error banner and returned; the
// lesson is never blocked by it.
func (s *PlayerSession) SubmitWriting(ctx context.Context, blockID int, text string) (*models.WritingReview, error) {
	s.mu.Lock()
	widget, ok := s.renderer.Widget(blockID)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("block %d is not rendered", blockID)
	}
	writing, ok := widget.(*player.FreeWritingWidget)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("block %d is not a free writing block", blockID)
	}
	writing.SetAnswer(text)
	question := writing.Content().Question
	language := writing.Content().Language
	if language == "" {
		language = s.lesson.Language
	}
	s.mu.Unlock()

	review, err := s.scoring.CheckFreeWriting(ctx, question, text, language)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		writing.SetError(err.Error())
		return nil, fmt.Errorf("failed to review writing: %w", err)
	}
	writing.SetReview(*review)
	return review, nil
}

// Widget returns the live widget for a rendered block
func (s *PlayerSession) Widget(blockID int) (player.Widget, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.Widget(blockID)
}

// GoToBlock jumps to a block index directly
func (s *PlayerSession) GoToBlock(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progression.GoToBlock(index)
}

// GoToStep jumps to the first block of a step tab
func (s *PlayerSession) GoToStep(step player.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progression.GoToStep(step)
}

// SaveProgress reports whole-lesson progress, typically on leave or pause
func (s *PlayerSession) SaveProgress(ctx context.Context, status string) error {
	s.mu.Lock()
	update := models.ProgressUpdate{
		LessonID:    s.lessonID,
		Status:      status,
		ElapsedSecs: s.progression.ElapsedSeconds(),
	}
	preview := s.preview
	s.mu.Unlock()

	if preview {
		return nil
	}
	return s.progressAPI.SaveProgress(ctx, update)
}

// playerService manages one PlayerSession per lesson being played
type playerService struct {
	lessonAPI   LessonAPI
	progressAPI ProgressAPI
	scoring     ScoringAPI
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[int]*PlayerSession
}

// NewPlayerService creates a new instance of playerService
func NewPlayerService(lessonAPI LessonAPI, progressAPI ProgressAPI, scoring ScoringAPI, logger *zap.Logger) *playerService {
	return &playerService{
		lessonAPI:   lessonAPI,
		progressAPI: progressAPI,
		scoring:     scoring,
		logger:      logger,
		sessions:    map[int]*PlayerSession{},
	}
}

// Open starts (or restarts) a play session for a lesson. Blocks arrive in
// the stored order the authoring side established; the player takes them
// as-is.
func (s *playerService) Open(ctx context.Context, lessonID int, preview bool) (*PlayerSession, error) {
	lesson, blocks, err := s.lessonAPI.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lesson for playback: %w", err)
	}

	session := &PlayerSession{
		lessonID:    lessonID,
		preview:     preview,
		lesson:      *lesson,
		progression: player.NewProgression(),
		progressAPI: s.progressAPI,
		scoring:     s.scoring,
		logger:      s.logger,
	}
	session.renderer = player.NewRenderer(preview, session.onBlockComplete, s.logger)
	session.progression.SetLesson(lessonID, blocks)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[lessonID] = session
	return session, nil
}

// Get returns an already-open play session or an error
func (s *playerService) Get(lessonID int) (*PlayerSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[lessonID]
	if !ok {
		return nil, fmt.Errorf("no play session open for lesson %d", lessonID)
	}
	return session, nil
}

// Close forgets a play session
func (s *playerService) Close(lessonID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, lessonID)
}

func (s *PlayerSession) flashcardsWidgetLocked(blockID int) (*player.FlashcardsWidget, error) {
	widget, ok := s.renderer.Widget(blockID)
	if !ok {
		return nil, fmt.Errorf("block %d is not rendered", blockID)
	}
	cards, ok := widget.(*player.FlashcardsWidget)
	if !ok {
		return nil, fmt.Errorf("block %d is not a flashcards block", blockID)
	}
	return cards, nil
}
