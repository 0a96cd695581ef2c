package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qazaqstudy/lesson-studio/internal/models"
)

func playableBlocks() []models.Block {
	return []models.Block{
		{ID: 1, Type: models.BlockTypeTheory, Order: 1},
		{ID: 2, Type: models.BlockTypeFlashcards, Order: 2},
		{ID: 3, Type: models.BlockTypePronunciation, Order: 3},
		{ID: 4, Type: models.BlockTypeQuiz, Order: 4},
		{ID: 5, Type: models.BlockTypeFreeWriting, Order: 5},
	}
}

func TestProgression_SetLessonFollowsStoredOrder(t *testing.T) {
	p := NewProgression()

	// Delivered out of slice order; the stored order field decides.
	blocks := []models.Block{
		{ID: 4, Type: models.BlockTypeQuiz, Order: 4},
		{ID: 1, Type: models.BlockTypeTheory, Order: 1},
		{ID: 2, Type: models.BlockTypeFlashcards, Order: 2},
	}
	p.SetLesson(7, blocks)

	assert.Equal(t, 7, p.LessonID())
	assert.Equal(t, 0, p.CurrentIndex())
	current, ok := p.Current()
	assert.True(t, ok)
	assert.Equal(t, 1, current.ID)
}

func TestProgression_MarkCompleteAdvancesClamped(t *testing.T) {
	p := NewProgression()
	p.SetLesson(7, playableBlocks())

	p.MarkComplete(1, nil)
	assert.Equal(t, 1, p.CurrentIndex())
	assert.True(t, p.Completed(1))

	// Override jumps anywhere in range.
	jump := 4
	p.MarkComplete(2, &jump)
	assert.Equal(t, 4, p.CurrentIndex())

	// Advancing past the end stays on the last block.
	p.MarkComplete(5, nil)
	assert.Equal(t, 4, p.CurrentIndex())

	// An out-of-range override clamps too.
	wild := 99
	p.MarkComplete(3, &wild)
	assert.Equal(t, 4, p.CurrentIndex())
	assert.Equal(t, 4, p.CompletedCount())
}

func TestProgression_FinishedOnLastBlockCompletion(t *testing.T) {
	p := NewProgression()
	p.SetLesson(7, playableBlocks())

	assert.False(t, p.Finished())
	p.MarkComplete(5, nil)
	assert.True(t, p.Finished(), "completing the last block triggers lesson completion")
}

func TestProgression_GoToBlockValidatesRange(t *testing.T) {
	p := NewProgression()
	p.SetLesson(7, playableBlocks())

	assert.NoError(t, p.GoToBlock(3))
	assert.Equal(t, 3, p.CurrentIndex())
	assert.Error(t, p.GoToBlock(5))
	assert.Error(t, p.GoToBlock(-1))
	assert.Equal(t, 3, p.CurrentIndex(), "a rejected jump leaves the position unchanged")
}

func TestProgression_StepsMapToFirstMatchingBlock(t *testing.T) {
	p := NewProgression()
	p.SetLesson(7, []models.Block{
		{ID: 1, Type: models.BlockTypeTheory, Order: 1},
		{ID: 2, Type: models.BlockTypeVideo, Order: 2},
		{ID: 3, Type: models.BlockTypeFlashcards, Order: 3},
		{ID: 4, Type: models.BlockTypeQuiz, Order: 4},
		{ID: 5, Type: models.BlockTypeAudioTask, Order: 5},
		{ID: 6, Type: models.BlockTypeFreeWriting, Order: 6},
		{ID: 7, Type: models.BlockTypeMascotTip, Order: 7},
	})

	assert.Equal(t, []StepTab{
		{Step: StepTheory, Index: 0},
		{Step: StepFlashcards, Index: 2},
		{Step: StepTasks, Index: 3},
		{Step: StepWriting, Index: 5},
	}, p.Steps(), "one tab per step, pointing at its first block; untabbed types are absent")

	assert.NoError(t, p.GoToStep(StepTasks))
	assert.Equal(t, 3, p.CurrentIndex())
	assert.Error(t, p.GoToStep(StepPronunciation), "the lesson has no pronunciation block")
}

func TestProgression_SessionTimer(t *testing.T) {
	p := NewProgression()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return start }
	p.SetLesson(7, playableBlocks())

	p.now = func() time.Time { return start.Add(95 * time.Second) }
	assert.Equal(t, 95, p.ElapsedSeconds())
}

func TestProgression_SetLessonResetsEverything(t *testing.T) {
	p := NewProgression()
	p.SetLesson(7, playableBlocks())
	p.MarkComplete(1, nil)
	p.MarkComplete(2, nil)

	p.SetLesson(8, playableBlocks())

	assert.Equal(t, 0, p.CurrentIndex())
	assert.Equal(t, 0, p.CompletedCount())
	assert.False(t, p.Completed(1))
}
