// Package player drives the student-side lesson experience: it turns blocks
// into interactive widget state machines, tracks completion and owns the
// learner's position within the lesson.
package player

import (
	"fmt"

	"github.com/qazaqstudy/lesson-studio/internal/models"
)

// Widget holds the interactive state of one rendered block
type Widget interface {
	// Type returns the block type the widget renders
	Type() models.BlockType
	// Done reports whether the learner may advance past the block
	Done() bool
}

// ContinueWidget backs the passive block types (theory, video, audio theory,
// plain audio, image). A single continue action completes it; there is no
// validation gate.
type ContinueWidget struct {
	kind      models.BlockType
	continued bool
}

// NewContinueWidget creates a widget for a passive block
func NewContinueWidget(kind models.BlockType) *ContinueWidget {
	return &ContinueWidget{kind: kind}
}

func (w *ContinueWidget) Type() models.BlockType { return w.kind }

func (w *ContinueWidget) Done() bool { return w.continued }

// Continue marks the block as viewed
func (w *ContinueWidget) Continue() { w.continued = true }

// FlashcardsWidget pages through the card deck. The learner completes it by
// reaching the last card and continuing, or skips the whole deck at once.
type FlashcardsWidget struct {
	cards    []models.FlashcardItem
	index    int
	finished bool
}

// NewFlashcardsWidget creates a widget over a card deck
func NewFlashcardsWidget(cards []models.FlashcardItem) *FlashcardsWidget {
	return &FlashcardsWidget{cards: cards}
}

func (w *FlashcardsWidget) Type() models.BlockType { return models.BlockTypeFlashcards }

func (w *FlashcardsWidget) Done() bool { return w.finished || len(w.cards) == 0 }

// Card returns the card currently shown
func (w *FlashcardsWidget) Card() (models.FlashcardItem, bool) {
	if len(w.cards) == 0 {
		return models.FlashcardItem{}, false
	}
	return w.cards[w.index], true
}

// Index returns the current card position
func (w *FlashcardsWidget) Index() int { return w.index }

// Next advances to the following card, stopping at the last one
func (w *FlashcardsWidget) Next() {
	if w.index < len(w.cards)-1 {
		w.index++
	}
}

// Prev steps back to the previous card, stopping at the first one
func (w *FlashcardsWidget) Prev() {
	if w.index > 0 {
		w.index--
	}
}

// OnLastCard reports whether the learner has paged to the end of the deck
func (w *FlashcardsWidget) OnLastCard() bool {
	return len(w.cards) == 0 || w.index == len(w.cards)-1
}

// Continue completes the deck; only allowed from the last card
func (w *FlashcardsWidget) Continue() error {
	if !w.OnLastCard() {
		return fmt.Errorf("cannot continue before the last card")
	}
	w.finished = true
	return nil
}

// Skip completes the deck immediately from any card
func (w *FlashcardsWidget) Skip() { w.finished = true }

// PronunciationWidget iterates the drill items. Each item needs a recorded
// attempt with a score before the next one opens; advancing past the block
// requires a score for every item. Preview mode disables recording and lifts
// the gate entirely.
type PronunciationWidget struct {
	items   []models.PronunciationItem
	preview bool
	current int
	scores  map[int]models.PronunciationScore
}

// NewPronunciationWidget creates a widget over the drill items
func NewPronunciationWidget(items []models.PronunciationItem, preview bool) *PronunciationWidget {
	return &PronunciationWidget{
		items:   items,
		preview: preview,
		scores:  map[int]models.PronunciationScore{},
	}
}

func (w *PronunciationWidget) Type() models.BlockType { return models.BlockTypePronunciation }

func (w *PronunciationWidget) Done() bool {
	return w.preview || len(w.scores) == len(w.items)
}

// Current returns the item awaiting an attempt
func (w *PronunciationWidget) Current() (models.PronunciationItem, bool) {
	if w.current >= len(w.items) {
		return models.PronunciationItem{}, false
	}
	return w.items[w.current], true
}

// RecordScore stores the verdict for the current item and advances to the
// next one
func (w *PronunciationWidget) RecordScore(score models.PronunciationScore) error {
	if w.preview {
		return fmt.Errorf("recording is disabled in preview mode")
	}
	if w.current >= len(w.items) {
		return fmt.Errorf("all items already have a recorded attempt")
	}
	w.scores[w.current] = score
	w.current++
	return nil
}

// Score returns the recorded verdict for an item, if any
func (w *PronunciationWidget) Score(itemIndex int) (models.PronunciationScore, bool) {
	score, ok := w.scores[itemIndex]
	return score, ok
}

// QuizWidget collects answers for a quiz-family block. Answers are gathered
// for submission to the core API; nothing is graded here.
type QuizWidget struct {
	kind      models.BlockType
	questions []models.TaskQuestion
	answers   map[int]models.QuizAnswer
	submitted bool
}

// NewQuizWidget creates a widget over the question list
func NewQuizWidget(kind models.BlockType, questions []models.TaskQuestion) *QuizWidget {
	return &QuizWidget{
		kind:      kind,
		questions: questions,
		answers:   map[int]models.QuizAnswer{},
	}
}

func (w *QuizWidget) Type() models.BlockType { return w.kind }

func (w *QuizWidget) Done() bool { return w.submitted }

// Questions returns the questions to render
func (w *QuizWidget) Questions() []models.TaskQuestion { return w.questions }

// Answer records the learner's answer for one question, replacing any
// earlier answer
func (w *QuizWidget) Answer(answer models.QuizAnswer) error {
	for _, q := range w.questions {
		if q.ID == answer.QuestionID {
			w.answers[answer.QuestionID] = answer
			return nil
		}
	}
	return fmt.Errorf("question %d not in this block", answer.QuestionID)
}

// Submit completes the block and returns the collected answers in question
// order. Unanswered questions are simply absent.
func (w *QuizWidget) Submit() []models.QuizAnswer {
	w.submitted = true
	collected := make([]models.QuizAnswer, 0, len(w.answers))
	for _, q := range w.questions {
		if a, ok := w.answers[q.ID]; ok {
			collected = append(collected, a)
		}
	}
	return collected
}

// AudioTaskResult is the scoring verdict for an audio task answer
type AudioTaskResult struct {
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback,omitempty"`
}

// AudioTaskWidget runs the two sub-states of an audio task: listening, then
// answering. Finishing is available regardless of the scoring outcome.
type AudioTaskWidget struct {
	content  models.AudioTaskContent
	listened bool
	answer   string
	result   *AudioTaskResult
	finished bool
}

// NewAudioTaskWidget creates a widget for an audio task block
func NewAudioTaskWidget(content models.AudioTaskContent) *AudioTaskWidget {
	return &AudioTaskWidget{content: content}
}

func (w *AudioTaskWidget) Type() models.BlockType { return models.BlockTypeAudioTask }

func (w *AudioTaskWidget) Done() bool { return w.finished }

// Content returns the task definition
func (w *AudioTaskWidget) Content() models.AudioTaskContent { return w.content }

// Listen records that the learner played the audio
func (w *AudioTaskWidget) Listen() { w.listened = true }

// SetAnswer stores the learner's answer text or chosen option
func (w *AudioTaskWidget) SetAnswer(answer string) { w.answer = answer }

// Answer returns the stored answer
func (w *AudioTaskWidget) Answer() string { return w.answer }

// SetResult stores the scoring verdict for display
func (w *AudioTaskWidget) SetResult(result AudioTaskResult) { w.result = &result }

// Result returns the scoring verdict, if one arrived
func (w *AudioTaskWidget) Result() (AudioTaskResult, bool) {
	if w.result == nil {
		return AudioTaskResult{}, false
	}
	return *w.result, true
}

// Finish completes the task independent of the scoring result
func (w *AudioTaskWidget) Finish() { w.finished = true }

// FreeWritingWidget holds one free-text submission and its AI review. It
// never blocks lesson progression; a failed review only shows an error.
type FreeWritingWidget struct {
	content   models.FreeWritingContent
	answer    string
	review    *models.WritingReview
	lastError string
}

// NewFreeWritingWidget creates a widget for a free writing block
func NewFreeWritingWidget(content models.FreeWritingContent) *FreeWritingWidget {
	return &FreeWritingWidget{content: content}
}

func (w *FreeWritingWidget) Type() models.BlockType { return models.BlockTypeFreeWriting }

func (w *FreeWritingWidget) Done() bool { return true }

// Content returns the writing prompt
func (w *FreeWritingWidget) Content() models.FreeWritingContent { return w.content }

// SetAnswer stores the learner's text
func (w *FreeWritingWidget) SetAnswer(answer string) { w.answer = answer }

// Answer returns the stored text
func (w *FreeWritingWidget) Answer() string { return w.answer }

// SetReview stores a successful AI review and clears any earlier error
func (w *FreeWritingWidget) SetReview(review models.WritingReview) {
	w.review = &review
	w.lastError = ""
}

// Review returns the AI review, if one arrived
func (w *FreeWritingWidget) Review() (models.WritingReview, bool) {
	if w.review == nil {
		return models.WritingReview{}, false
	}
	return *w.review, true
}

// SetError records a failed review attempt for the error banner
func (w *FreeWritingWidget) SetError(message string) { w.lastError = message }

// LastError returns the message of the most recent failed review
func (w *FreeWritingWidget) LastError() string { return w.lastError }

// UnsupportedWidget is the preview-mode diagnostic for a block type the
// player cannot render. It dumps the raw content for authoring QA and never
// completes on its own.
type UnsupportedWidget struct {
	kind   models.BlockType
	fields map[string]any
}

// NewUnsupportedWidget creates the diagnostic widget
func NewUnsupportedWidget(kind models.BlockType, fields map[string]any) *UnsupportedWidget {
	return &UnsupportedWidget{kind: kind, fields: fields}
}

func (w *UnsupportedWidget) Type() models.BlockType { return w.kind }

func (w *UnsupportedWidget) Done() bool { return false }

// Fields returns the raw content for the diagnostic dump
func (w *UnsupportedWidget) Fields() map[string]any { return w.fields }
