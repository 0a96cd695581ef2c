package content

import (
	"sort"

	"github.com/samber/lo"

	"github.com/qazaqstudy/lesson-studio/internal/models"
)

// canonicalSequence is the fixed pedagogical order of block types.
// Types outside the sequence sort after all canonical ones.
var canonicalSequence = []models.BlockType{
	models.BlockTypeTheory,
	models.BlockTypeFlashcards,
	models.BlockTypePronunciation,
	models.BlockTypeQuiz,
	models.BlockTypeTheoryQuiz,
	models.BlockTypeLessonTest,
	models.BlockTypeFreeWriting,
}

// requiredCanonical lists the block types every normalized lesson must carry.
// The quiz entry is satisfied by any quiz-family block.
var requiredCanonical = []models.BlockType{
	models.BlockTypeTheory,
	models.BlockTypeFlashcards,
	models.BlockTypePronunciation,
	models.BlockTypeQuiz,
	models.BlockTypeFreeWriting,
}

// canonicalRank returns a block type's position in the pedagogical sequence
func canonicalRank(t models.BlockType) int {
	if i := lo.IndexOf(canonicalSequence, t); i >= 0 {
		return i
	}
	return len(canonicalSequence)
}

// SortBlocks arranges blocks into the canonical pedagogical sequence, placing
// non-canonical types last and breaking ties by the stored order field.
// The input slice is not modified.
func SortBlocks(blocks []models.Block) []models.Block {
	sorted := make([]models.Block, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := canonicalRank(EffectiveType(sorted[i])), canonicalRank(EffectiveType(sorted[j]))
		if ri != rj {
			return ri < rj
		}
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}

// MissingCanonical reports which required canonical block types have no block
// in the lesson yet. Matching is by type only, so re-running on a normalized
// lesson reports nothing.
func MissingCanonical(blocks []models.Block) []models.BlockType {
	present := lo.SliceToMap(blocks, func(b models.Block) (models.BlockType, bool) {
		return EffectiveType(b), true
	})
	return lo.Filter(requiredCanonical, func(t models.BlockType, _ int) bool {
		if t == models.BlockTypeQuiz {
			return !present[models.BlockTypeQuiz] && !present[models.BlockTypeTheoryQuiz] && !present[models.BlockTypeLessonTest]
		}
		return !present[t]
	})
}

// Resequence rewrites the order fields densely, 1-based, in slice position
func Resequence(blocks []models.Block) {
	for i := range blocks {
		blocks[i].Order = i + 1
	}
}

// Normalize sorts blocks canonically and resequences their order fields.
// It is idempotent: a second pass produces an identical result.
func Normalize(blocks []models.Block) []models.Block {
	sorted := SortBlocks(blocks)
	Resequence(sorted)
	return sorted
}
