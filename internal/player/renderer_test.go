package player

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/qazaqstudy/lesson-studio/internal/models"
)

func TestRenderer_UnsupportedTypeSkipsExactlyOnce(t *testing.T) {
	var fired []int
	renderer := NewRenderer(false, func(blockID int) { fired = append(fired, blockID) }, zap.NewNop())

	block := models.Block{ID: 9, Type: "nonexistent_type", Content: json.RawMessage(`{"anything":"goes"}`)}

	widget := renderer.Render(block)

	assert.Nil(t, widget, "no interactive widget for an unsupported type")
	assert.Equal(t, []int{9}, fired, "completion fires without user action")

	// Re-rendering or re-completing must not fire again.
	renderer.Render(block)
	renderer.Complete(9)
	assert.Equal(t, []int{9}, fired)
}

func TestRenderer_UnsupportedTypeInPreviewShowsDiagnostic(t *testing.T) {
	var fired []int
	renderer := NewRenderer(true, func(blockID int) { fired = append(fired, blockID) }, zap.NewNop())

	widget := renderer.Render(models.Block{ID: 9, Type: "nonexistent_type", Content: json.RawMessage(`{"anything":"goes"}`)})

	diagnostic, ok := widget.(*UnsupportedWidget)
	assert.True(t, ok)
	assert.Equal(t, "goes", diagnostic.Fields()["anything"], "raw content is dumped for QA")
	assert.Empty(t, fired, "preview never auto-completes")
	assert.False(t, renderer.Complete(9), "the diagnostic widget has no completion gate to satisfy")
}

func TestRenderer_CompletionFiresExactlyOnce(t *testing.T) {
	count := 0
	renderer := NewRenderer(false, func(int) { count++ }, zap.NewNop())

	widget := renderer.Render(models.Block{ID: 1, Type: models.BlockTypeTheory, Content: json.RawMessage(`{"markdown":"# Hi"}`)})
	widget.(*ContinueWidget).Continue()

	assert.True(t, renderer.Complete(1))
	assert.False(t, renderer.Complete(1), "a second continue tap is a no-op")
	assert.Equal(t, 1, count)
	assert.True(t, renderer.Completed(1))
}

func TestRenderer_ContinueGateBlocksEarlyCompletion(t *testing.T) {
	renderer := NewRenderer(false, nil, zap.NewNop())

	renderer.Render(models.Block{ID: 1, Type: models.BlockTypeVideo, Content: json.RawMessage(`{"video_url":"v.mp4"}`)})

	assert.False(t, renderer.Complete(1), "completion requires the continue action first")
}

func TestRenderer_DispatchesByEffectiveType(t *testing.T) {
	renderer := NewRenderer(false, nil, zap.NewNop())

	// Legacy tag field, no explicit type.
	widget := renderer.Render(models.Block{
		ID:              2,
		LegacyBlockType: models.BlockTypeFlashcards,
		Content:         json.RawMessage(`{"cards":[{"word":"су","translation":"вода"}]}`),
	})

	cards, ok := widget.(*FlashcardsWidget)
	assert.True(t, ok)
	card, _ := cards.Card()
	assert.Equal(t, "су", card.Word)
}

func TestFlashcardsWidget_PagingAndSkip(t *testing.T) {
	cards := []models.FlashcardItem{{Word: "су"}, {Word: "нан"}, {Word: "шай"}}

	w := NewFlashcardsWidget(cards)
	assert.Error(t, w.Continue(), "cannot continue before the last card")

	w.Prev()
	assert.Equal(t, 0, w.Index(), "prev clamps at the first card")
	w.Next()
	w.Next()
	w.Next()
	assert.Equal(t, 2, w.Index(), "next clamps at the last card")
	assert.True(t, w.OnLastCard())
	assert.NoError(t, w.Continue())
	assert.True(t, w.Done())

	skipper := NewFlashcardsWidget(cards)
	skipper.Skip()
	assert.True(t, skipper.Done(), "skip completes from any card")
}

func TestPronunciationWidget_GatesUntilAllScored(t *testing.T) {
	items := []models.PronunciationItem{{Word: "су"}, {Word: "нан"}}

	w := NewPronunciationWidget(items, false)
	assert.False(t, w.Done())

	current, ok := w.Current()
	assert.True(t, ok)
	assert.Equal(t, "су", current.Word)

	assert.NoError(t, w.RecordScore(models.PronunciationScore{Score: 0.9, Status: "good"}))
	assert.False(t, w.Done(), "one unscored item still gates the continue action")

	current, _ = w.Current()
	assert.Equal(t, "нан", current.Word, "recording advances to the next item")

	assert.NoError(t, w.RecordScore(models.PronunciationScore{Score: 0.4, Status: "retry"}))
	assert.True(t, w.Done(), "any recorded attempt counts, regardless of score")
	assert.Error(t, w.RecordScore(models.PronunciationScore{}))
}

func TestPronunciationWidget_PreviewBypassesGate(t *testing.T) {
	w := NewPronunciationWidget([]models.PronunciationItem{{Word: "су"}}, true)

	assert.True(t, w.Done(), "preview allows free advancement")
	assert.Error(t, w.RecordScore(models.PronunciationScore{}), "preview disables recording")
}

func TestQuizWidget_CollectsAnswersWithoutGrading(t *testing.T) {
	idx := 1
	questions := []models.TaskQuestion{
		{ID: 10, Question: "Су деген не?", Type: models.QuestionTypeSingle, Options: []string{"хлеб", "вода"}},
		{ID: 11, Question: "Аудар: нан", Type: models.QuestionTypeOpen},
	}

	w := NewQuizWidget(models.BlockTypeQuiz, questions)
	assert.NoError(t, w.Answer(models.QuizAnswer{QuestionID: 11, Text: "хлеб"}))
	assert.NoError(t, w.Answer(models.QuizAnswer{QuestionID: 10, Index: &idx}))
	assert.Error(t, w.Answer(models.QuizAnswer{QuestionID: 99}))
	assert.False(t, w.Done())

	answers := w.Submit()

	assert.True(t, w.Done(), "submission completes regardless of correctness")
	assert.Len(t, answers, 2)
	assert.Equal(t, 10, answers[0].QuestionID, "answers come back in question order")
	assert.Equal(t, 11, answers[1].QuestionID)
}

func TestAudioTaskWidget_FinishIndependentOfScore(t *testing.T) {
	w := NewAudioTaskWidget(models.AudioTaskContent{AudioURL: "task.mp3", Options: []string{"су", "нан"}})

	w.Listen()
	w.SetAnswer("су")
	assert.False(t, w.Done())

	w.Finish()
	assert.True(t, w.Done(), "finishing does not wait for the scoring result")

	w.SetResult(AudioTaskResult{Correct: true, Feedback: "Дұрыс!"})
	result, ok := w.Result()
	assert.True(t, ok)
	assert.True(t, result.Correct)
}

func TestFreeWritingWidget_NeverBlocksProgression(t *testing.T) {
	w := NewFreeWritingWidget(models.FreeWritingContent{Question: "Өзің туралы жаз"})

	assert.True(t, w.Done(), "free writing never gates the lesson")

	w.SetError("checker unavailable")
	assert.Equal(t, "checker unavailable", w.LastError())

	w.SetReview(models.WritingReview{Score: 0.8, Feedback: "Жақсы"})
	assert.Empty(t, w.LastError(), "a successful review clears the error banner")
	review, ok := w.Review()
	assert.True(t, ok)
	assert.InDelta(t, 0.8, review.Score, 0.0001)
}
