package content

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qazaqstudy/lesson-studio/internal/models"
)

func TestSortBlocks_CanonicalSequence(t *testing.T) {
	blocks := []models.Block{
		{ID: 1, Type: models.BlockTypeFreeWriting, Order: 1},
		{ID: 2, Type: models.BlockTypeMascotTip, Order: 2},
		{ID: 3, Type: models.BlockTypeQuiz, Order: 3},
		{ID: 4, Type: models.BlockTypeTheory, Order: 4},
		{ID: 5, Type: models.BlockTypePronunciation, Order: 5},
		{ID: 6, Type: models.BlockTypeFlashcards, Order: 6},
	}

	sorted := SortBlocks(blocks)

	types := make([]models.BlockType, len(sorted))
	for i, b := range sorted {
		types[i] = b.Type
	}
	assert.Equal(t, []models.BlockType{
		models.BlockTypeTheory,
		models.BlockTypeFlashcards,
		models.BlockTypePronunciation,
		models.BlockTypeQuiz,
		models.BlockTypeFreeWriting,
		models.BlockTypeMascotTip,
	}, types, "canonical types first in fixed sequence, others after")
}

func TestSortBlocks_TiesBrokenByStoredOrder(t *testing.T) {
	blocks := []models.Block{
		{ID: 1, Type: models.BlockTypeExample, Order: 9},
		{ID: 2, Type: models.BlockTypeExample, Order: 2},
		{ID: 3, Type: models.BlockTypeExample, Order: 5},
	}

	sorted := SortBlocks(blocks)

	assert.Equal(t, []int{2, 3, 1}, []int{sorted[0].ID, sorted[1].ID, sorted[2].ID})
}

func TestNormalize_Idempotent(t *testing.T) {
	blocks := []models.Block{
		{ID: 10, Type: models.BlockTypeQuiz, Order: 3},
		{ID: 11, Type: models.BlockTypeTheory, Order: 1},
		{ID: 12, Type: models.BlockTypeFlashcards, Order: 7},
		{ID: 13, Type: models.BlockTypePronunciation, Order: 4},
		{ID: 14, Type: models.BlockTypeFreeWriting, Order: 6},
	}

	once := Normalize(blocks)
	twice := Normalize(once)

	assert.Equal(t, once, twice, "re-running normalization must change nothing")
	for i, b := range twice {
		assert.Equal(t, i+1, b.Order, "order values must be dense and 1-based")
	}
	assert.Empty(t, MissingCanonical(twice))
}

func TestMissingCanonical(t *testing.T) {
	tests := []struct {
		name     string
		blocks   []models.Block
		expected []models.BlockType
	}{
		{
			name: "theory and quiz present",
			blocks: []models.Block{
				{Type: models.BlockTypeTheory, Order: 1},
				{Type: models.BlockTypeQuiz, Order: 3},
			},
			expected: []models.BlockType{
				models.BlockTypeFlashcards,
				models.BlockTypePronunciation,
				models.BlockTypeFreeWriting,
			},
		},
		{
			name: "lesson_test satisfies the quiz slot",
			blocks: []models.Block{
				{Type: models.BlockTypeTheory, Order: 1},
				{Type: models.BlockTypeFlashcards, Order: 2},
				{Type: models.BlockTypePronunciation, Order: 3},
				{Type: models.BlockTypeLessonTest, Order: 4},
				{Type: models.BlockTypeFreeWriting, Order: 5},
			},
			expected: []models.BlockType{},
		},
		{
			name:   "empty lesson misses everything",
			blocks: nil,
			expected: []models.BlockType{
				models.BlockTypeTheory,
				models.BlockTypeFlashcards,
				models.BlockTypePronunciation,
				models.BlockTypeQuiz,
				models.BlockTypeFreeWriting,
			},
		},
		{
			name: "legacy tag fields still count as present",
			blocks: []models.Block{
				{LegacyBlockType: models.BlockTypeTheory, Order: 1},
				{Type: models.BlockTypeFlashcards, Order: 2},
				{Type: models.BlockTypePronunciation, Order: 3},
				{Type: models.BlockTypeQuiz, Order: 4},
				{Type: models.BlockTypeFreeWriting, Order: 5},
			},
			expected: []models.BlockType{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MissingCanonical(tt.blocks))
		})
	}
}

func TestNormalize_FillsGapsAfterDeletion(t *testing.T) {
	blocks := []models.Block{
		{ID: 1, Type: models.BlockTypeTheory, Order: 1},
		{ID: 3, Type: models.BlockTypePronunciation, Order: 5},
		{ID: 4, Type: models.BlockTypeQuiz, Order: 9},
	}

	normalized := Normalize(blocks)

	orders := make([]int, len(normalized))
	for i, b := range normalized {
		orders[i] = b.Order
	}
	assert.Equal(t, []int{1, 2, 3}, orders)
}
