package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/qazaqstudy/lesson-studio/internal/models"
	"github.com/qazaqstudy/lesson-studio/internal/player"
)

// progressAPIMock is a mock implementation of the ProgressAPI interface
type progressAPIMock struct {
	blockFinished  []models.ProgressUpdate
	progress       []models.ProgressUpdate
	completeCalls  int
	completeResult models.CompleteLessonResult
	completeError  error
}

func (m *progressAPIMock) BlockFinished(_ context.Context, update models.ProgressUpdate) error {
	m.blockFinished = append(m.blockFinished, update)
	return nil
}

func (m *progressAPIMock) SaveProgress(_ context.Context, update models.ProgressUpdate) error {
	m.progress = append(m.progress, update)
	return nil
}

func (m *progressAPIMock) CompleteLesson(_ context.Context, _ int, _ models.ProgressUpdate) (*models.CompleteLessonResult, error) {
	m.completeCalls++
	if m.completeError != nil {
		return nil, m.completeError
	}
	result := m.completeResult
	return &result, nil
}

// scoringAPIMock is a mock implementation of the ScoringAPI interface
type scoringAPIMock struct {
	pronunciationScore models.PronunciationScore
	pronunciationError error
	writingReview      models.WritingReview
	writingError       error
	textReview         models.WritingReview
	textError          error
	checkedWords       []string
}

func (m *scoringAPIMock) CheckPronunciation(_ context.Context, word, _ string, _ io.Reader) (*models.PronunciationScore, error) {
	if m.pronunciationError != nil {
		return nil, m.pronunciationError
	}
	m.checkedWords = append(m.checkedWords, word)
	score := m.pronunciationScore
	return &score, nil
}

func (m *scoringAPIMock) CheckFreeWriting(_ context.Context, _, _, _ string) (*models.WritingReview, error) {
	if m.writingError != nil {
		return nil, m.writingError
	}
	review := m.writingReview
	return &review, nil
}

func (m *scoringAPIMock) CheckText(_ context.Context, _, _ string) (*models.WritingReview, error) {
	if m.textError != nil {
		return nil, m.textError
	}
	review := m.textReview
	return &review, nil
}

func shortLesson() *lessonAPIMock {
	return &lessonAPIMock{
		lesson: models.Lesson{ID: 7, Title: "Сәлемдесу", Language: "kk", Status: models.LessonStatusPublished},
		blocks: []models.Block{
			{ID: 1, Type: models.BlockTypeTheory, Order: 1, Content: json.RawMessage(`{"markdown":"# Сәлем"}`)},
			{ID: 2, Type: models.BlockTypeFreeWriting, Order: 2, Content: json.RawMessage(`{"question":"Өзің туралы жаз"}`)},
		},
	}
}

func TestPlayerSession_FullPlaythrough(t *testing.T) {
	progressMock := &progressAPIMock{completeResult: models.CompleteLessonResult{NextLessonID: 8, Passed: true}}
	svc := NewPlayerService(shortLesson(), progressMock, &scoringAPIMock{}, zap.NewNop())

	session, err := svc.Open(context.Background(), 7, false)
	assert.NoError(t, err)

	view := session.View(context.Background())
	assert.Equal(t, 0, view.CurrentIndex)
	assert.Equal(t, 2, view.TotalBlocks)
	theory, ok := view.Widget.(*player.ContinueWidget)
	assert.True(t, ok)

	theory.Continue()
	assert.NoError(t, session.ContinueBlock(context.Background(), 1))
	assert.Len(t, progressMock.blockFinished, 1)
	assert.Equal(t, 1, progressMock.blockFinished[0].BlockID)

	view = session.View(context.Background())
	assert.Equal(t, 1, view.CurrentIndex)
	assert.False(t, view.Finished)

	assert.NoError(t, session.ContinueBlock(context.Background(), 2))

	view = session.View(context.Background())
	assert.True(t, view.Finished)
	assert.Equal(t, 1, progressMock.completeCalls)
	assert.Equal(t, 8, view.Result.NextLessonID)
	assert.True(t, view.Result.Passed)

	// Completing again must not re-trigger anything.
	assert.NoError(t, session.ContinueBlock(context.Background(), 2))
	assert.Equal(t, 1, progressMock.completeCalls)
	assert.Len(t, progressMock.blockFinished, 2)
}

func TestPlayerSession_ContinueBlockedByWidgetGate(t *testing.T) {
	progressMock := &progressAPIMock{}
	svc := NewPlayerService(shortLesson(), progressMock, &scoringAPIMock{}, zap.NewNop())

	session, _ := svc.Open(context.Background(), 7, false)
	session.View(context.Background())

	// The theory widget has not been continued yet.
	err := session.ContinueBlock(context.Background(), 1)

	assert.Error(t, err)
	assert.Empty(t, progressMock.blockFinished)
}

func TestPlayerSession_UnsupportedBlockSkippedTransparently(t *testing.T) {
	lessonMock := &lessonAPIMock{
		lesson: models.Lesson{ID: 7},
		blocks: []models.Block{
			{ID: 1, Type: "hologram", Order: 1, Content: json.RawMessage(`{"beam":"up"}`)},
			{ID: 2, Type: models.BlockTypeTheory, Order: 2, Content: json.RawMessage(`{"markdown":"# Hi"}`)},
		},
	}
	progressMock := &progressAPIMock{}
	svc := NewPlayerService(lessonMock, progressMock, &scoringAPIMock{}, zap.NewNop())

	session, _ := svc.Open(context.Background(), 7, false)
	view := session.View(context.Background())

	// The learner lands directly on the theory block; the unknown block is
	// reported finished without any interaction.
	assert.Equal(t, 1, view.CurrentIndex)
	assert.Equal(t, 2, view.CurrentBlockID)
	assert.IsType(t, &player.ContinueWidget{}, view.Widget)
	assert.Len(t, progressMock.blockFinished, 1)
	assert.Equal(t, 1, progressMock.blockFinished[0].BlockID)
}

func TestPlayerSession_PreviewPersistsNothing(t *testing.T) {
	progressMock := &progressAPIMock{}
	svc := NewPlayerService(shortLesson(), progressMock, &scoringAPIMock{}, zap.NewNop())

	session, _ := svc.Open(context.Background(), 7, true)
	view := session.View(context.Background())
	view.Widget.(*player.ContinueWidget).Continue()
	assert.NoError(t, session.ContinueBlock(context.Background(), 1))
	session.View(context.Background())
	assert.NoError(t, session.ContinueBlock(context.Background(), 2))
	assert.NoError(t, session.SaveProgress(context.Background(), "in_progress"))

	assert.Empty(t, progressMock.blockFinished)
	assert.Empty(t, progressMock.progress)
	assert.Zero(t, progressMock.completeCalls)
}

func TestPlayerSession_RecordPronunciation(t *testing.T) {
	lessonMock := &lessonAPIMock{
		lesson: models.Lesson{ID: 7, Language: "kk"},
		blocks: []models.Block{
			{ID: 1, Type: models.BlockTypePronunciation, Order: 1, Content: json.RawMessage(`{"items":[{"id":1,"word":"су"},{"id":2,"word":"нан"}]}`)},
		},
	}
	scoringMock := &scoringAPIMock{pronunciationScore: models.PronunciationScore{Score: 0.9, Status: "good"}}
	svc := NewPlayerService(lessonMock, &progressAPIMock{}, scoringMock, zap.NewNop())

	session, _ := svc.Open(context.Background(), 7, false)
	session.View(context.Background())

	// Continue is gated until every item has an attempt.
	assert.Error(t, session.ContinueBlock(context.Background(), 1))

	score, err := session.RecordPronunciation(context.Background(), 1, 1, "a.webm", strings.NewReader("x"))
	assert.NoError(t, err)
	assert.InDelta(t, 0.9, score.Score, 0.0001)

	// The drill moved on; the first item cannot be re-recorded by id.
	_, err = session.RecordPronunciation(context.Background(), 1, 1, "a.webm", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = session.RecordPronunciation(context.Background(), 1, 2, "b.webm", strings.NewReader("x"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"су", "нан"}, scoringMock.checkedWords)

	assert.NoError(t, session.ContinueBlock(context.Background(), 1))
}

func TestPlayerSession_SubmitWritingFailureDoesNotBlock(t *testing.T) {
	scoringMock := &scoringAPIMock{writingError: errors.New("checker down")}
	svc := NewPlayerService(shortLesson(), &progressAPIMock{}, scoringMock, zap.NewNop())

	session, _ := svc.Open(context.Background(), 7, false)
	session.View(context.Background())
	assert.NoError(t, session.GoToBlock(1))
	session.View(context.Background())

	_, err := session.SubmitWriting(context.Background(), 2, "Менің атым Айдар")
	assert.Error(t, err)

	widget, _ := session.Widget(2)
	writing := widget.(*player.FreeWritingWidget)
	assert.Equal(t, "checker down", writing.LastError())

	// The learner can still finish the lesson.
	assert.NoError(t, session.ContinueBlock(context.Background(), 2))
}

func TestPlayerSession_AnswerAudioTaskScoredExternally(t *testing.T) {
	lessonMock := &lessonAPIMock{
		lesson: models.Lesson{ID: 7, Language: "kk"},
		blocks: []models.Block{
			{ID: 1, Type: models.BlockTypeAudioTask, Order: 1, Content: json.RawMessage(`{"audio_url":"t.mp3","options":["су","нан"]}`)},
		},
	}
	scoringMock := &scoringAPIMock{textReview: models.WritingReview{Score: 0.8, Feedback: "Дұрыс"}}
	svc := NewPlayerService(lessonMock, &progressAPIMock{}, scoringMock, zap.NewNop())

	session, _ := svc.Open(context.Background(), 7, false)
	session.View(context.Background())

	result, err := session.AnswerAudioTask(context.Background(), 1, "су")

	assert.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, "Дұрыс", result.Feedback)

	// Finishing never waited for the score anyway.
	assert.NoError(t, session.ContinueBlock(context.Background(), 1))
}
