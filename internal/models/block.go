package models

import "encoding/json"

// BlockType represents the type of a lesson block
type BlockType string

const (
	BlockTypeVideo         BlockType = "video"
	BlockTypeTheory        BlockType = "theory"
	BlockTypeAudioTheory   BlockType = "audio_theory"
	BlockTypeImage         BlockType = "image"
	BlockTypeAudio         BlockType = "audio"
	BlockTypeFlashcards    BlockType = "flashcards"
	BlockTypePronunciation BlockType = "pronunciation"
	BlockTypeAudioTask     BlockType = "audio_task"
	BlockTypeTheoryQuiz    BlockType = "theory_quiz"
	BlockTypeQuiz          BlockType = "quiz"
	BlockTypeLessonTest    BlockType = "lesson_test"
	BlockTypeFreeWriting   BlockType = "free_writing"

	// Legacy types kept for older lessons; never auto-created.
	BlockTypeExample    BlockType = "example"
	BlockTypeAssignment BlockType = "assignment"
	BlockTypeMascotTip  BlockType = "mascot_tip"
)

// IsQuizFamily reports whether the type is one of the quiz variants
func (t BlockType) IsQuizFamily() bool {
	return t == BlockTypeQuiz || t == BlockTypeTheoryQuiz || t == BlockTypeLessonTest
}

// Block represents a block within a lesson as delivered by the core API.
// Content stays raw JSON at the wire boundary; the content package turns it
// into a canonical BlockContent value.
type Block struct {
	ID       int             `json:"id"`
	LessonID int             `json:"lessonId"`
	Type     BlockType       `json:"type"`
	Order    int             `json:"order"`
	Content  json.RawMessage `json:"content"`

	// Legacy tag fields still present on older rows. Type wins when set.
	LegacyBlockType BlockType `json:"block_type,omitempty"`
	LegacyCamelType BlockType `json:"blockType,omitempty"`
	LegacyKind      BlockType `json:"kind,omitempty"`
}

// CreateBlockRequest represents a request to create a lesson block
type CreateBlockRequest struct {
	Type    BlockType       `json:"type" example:"theory"`
	Content json.RawMessage `json:"content"`
}

// UpdateBlockRequest represents a request to update a lesson block (partial update)
type UpdateBlockRequest struct {
	Content json.RawMessage `json:"content,omitempty"`
	Order   *int            `json:"order,omitempty"`
}

// ReorderBlocksRequest carries the full ordered block id list for a lesson
type ReorderBlocksRequest struct {
	Order []int `json:"order"`
}
