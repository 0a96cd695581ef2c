package content

import (
	"github.com/samber/lo"

	"github.com/qazaqstudy/lesson-studio/internal/models"
)

// ProjectPronunciation derives a pronunciation item list from a flashcard
// list. The projection is 1:1 and deterministic: word, translation, example,
// image and audio are copied verbatim so the drill always mirrors the
// current vocabulary.
func ProjectPronunciation(cards []models.FlashcardItem) []models.PronunciationItem {
	return lo.Map(cards, func(c models.FlashcardItem, i int) models.PronunciationItem {
		return models.PronunciationItem{
			ID:          i + 1,
			Word:        c.Word,
			Translation: c.Translation,
			Example:     c.ExampleSentence,
			ImageURL:    c.ImageURL,
			AudioURL:    c.AudioURL,
		}
	})
}

// ApplyProjection recomputes a pronunciation content's items from flashcards
// and reports whether the content actually changed, so an unchanged
// projection never triggers a redundant save.
func ApplyProjection(pron *models.PronunciationContent, cards []models.FlashcardItem) bool {
	projected := ProjectPronunciation(cards)
	updated := &models.PronunciationContent{Items: projected, SampleAudioURL: pron.SampleAudioURL}
	if Equal(pron, updated) {
		return false
	}
	pron.Items = projected
	return true
}
