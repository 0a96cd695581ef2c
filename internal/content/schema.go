// Package content defines the canonical shape of lesson block content and
// the rules that keep historical payload variants readable. Raw JSON enters
// through Parse and leaves through Marshal; nothing outside this package
// should touch untyped content.
package content

import (
	"bytes"
	"encoding/json"

	"github.com/qazaqstudy/lesson-studio/internal/models"
)

// Parsed is the result of normalizing one block's raw content
type Parsed struct {
	Type  models.BlockType
	Valid bool
	Value models.BlockContent
}

// Default returns the template content used when a block of the given type
// is created
func Default(t models.BlockType) models.BlockContent {
	switch t {
	case models.BlockTypeTheory:
		return &models.TheoryContent{}
	case models.BlockTypeFlashcards:
		return &models.FlashcardsContent{Cards: []models.FlashcardItem{}}
	case models.BlockTypePronunciation:
		return &models.PronunciationContent{Items: []models.PronunciationItem{}}
	case models.BlockTypeQuiz, models.BlockTypeTheoryQuiz, models.BlockTypeLessonTest:
		return &models.QuizContent{Kind: t, Questions: []models.TaskQuestion{}}
	case models.BlockTypeVideo:
		return &models.VideoContent{}
	case models.BlockTypeAudio, models.BlockTypeAudioTheory:
		return &models.AudioContent{Kind: t}
	case models.BlockTypeImage:
		return &models.ImageContent{}
	case models.BlockTypeAudioTask:
		return &models.AudioTaskContent{}
	case models.BlockTypeFreeWriting:
		return &models.FreeWritingContent{}
	default:
		return &models.RawContent{Kind: t, Fields: map[string]any{}}
	}
}

// Parse normalizes raw block content into its canonical shape.
// It never fails: unreadable input degrades to the type's default content
// with Valid set to false where the type has a validity rule.
func Parse(t models.BlockType, raw json.RawMessage) Parsed {
	m := decode(raw)

	switch t {
	case models.BlockTypeTheory:
		c := &models.TheoryContent{
			Title:        str(m, "title"),
			Markdown:     str(m, "markdown", "rich_text", "text"),
			VideoURL:     str(m, "video_url"),
			ThumbnailURL: str(m, "thumbnail_url"),
		}
		return Parsed{Type: t, Valid: c.Markdown != "" || c.VideoURL != "", Value: c}

	case models.BlockTypeFlashcards:
		c := &models.FlashcardsContent{Cards: parseFlashcards(list(m, "cards", "items"))}
		return Parsed{Type: t, Valid: len(c.Cards) > 0, Value: c}

	case models.BlockTypePronunciation:
		c := &models.PronunciationContent{
			Items:          parsePronunciationItems(list(m, "items", "cards", "words")),
			SampleAudioURL: str(m, "sample_audio_url"),
		}
		return Parsed{Type: t, Valid: len(c.Items) > 0, Value: c}

	case models.BlockTypeQuiz, models.BlockTypeTheoryQuiz, models.BlockTypeLessonTest:
		c := &models.QuizContent{Kind: t, Questions: parseQuestions(list(m, "questions", "tasks"))}
		return Parsed{Type: t, Valid: len(c.Questions) > 0, Value: c}

	case models.BlockTypeVideo:
		c := &models.VideoContent{
			VideoURL:     str(m, "video_url", "url"),
			ThumbnailURL: str(m, "thumbnail_url"),
			Caption:      str(m, "caption"),
		}
		return Parsed{Type: t, Valid: true, Value: c}

	case models.BlockTypeAudio, models.BlockTypeAudioTheory:
		c := &models.AudioContent{
			Kind:        t,
			AudioPath:   str(m, "audio_path"),
			AudioURL:    str(m, "audio_url"),
			Transcript:  str(m, "transcript"),
			Translation: str(m, "translation"),
			Markdown:    str(m, "markdown"),
		}
		return Parsed{Type: t, Valid: true, Value: c}

	case models.BlockTypeImage:
		c := &models.ImageContent{
			ImageURL:    str(m, "image_url"),
			Explanation: str(m, "explanation", "caption"),
			Keywords:    strList(m, "keywords"),
		}
		return Parsed{Type: t, Valid: true, Value: c}

	case models.BlockTypeAudioTask:
		c := &models.AudioTaskContent{
			AudioPath:     str(m, "audio_path"),
			AudioURL:      str(m, "audio_url"),
			Transcript:    str(m, "transcript"),
			Options:       strList(m, "options"),
			CorrectAnswer: str(m, "correct_answer"),
			AnswerType:    str(m, "answer_type"),
			Feedback:      str(m, "feedback"),
		}
		return Parsed{Type: t, Valid: true, Value: c}

	case models.BlockTypeFreeWriting:
		c := &models.FreeWritingContent{
			Question: str(m, "question"),
			Rubric:   str(m, "rubric"),
			Language: str(m, "language"),
		}
		return Parsed{Type: t, Valid: true, Value: c}

	default:
		return Parsed{Type: t, Valid: true, Value: &models.RawContent{Kind: t, Fields: m}}
	}
}

// Marshal serializes canonical content back to wire JSON
func Marshal(c models.BlockContent) json.RawMessage {
	if c == nil {
		return json.RawMessage(`{}`)
	}
	if raw, ok := c.(*models.RawContent); ok {
		data, err := json.Marshal(raw.Fields)
		if err != nil {
			return json.RawMessage(`{}`)
		}
		return data
	}
	data, err := json.Marshal(c)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}

// Clone deep-copies canonical content via a wire round trip
func Clone(c models.BlockContent) models.BlockContent {
	if c == nil {
		return nil
	}
	return Parse(c.ContentType(), Marshal(c)).Value
}

// Equal reports structural equality of two content values
func Equal(a, b models.BlockContent) bool {
	return bytes.Equal(Marshal(a), Marshal(b))
}

// EffectiveType resolves the type a block should be rendered as, tolerating
// the historical tag field variants: the explicit type wins, then the legacy
// block_type/blockType/kind fields, then a "type" hint inside the content
// itself.
func EffectiveType(b models.Block) models.BlockType {
	if b.Type != "" {
		return b.Type
	}
	for _, t := range []models.BlockType{b.LegacyBlockType, b.LegacyCamelType, b.LegacyKind} {
		if t != "" {
			return t
		}
	}
	if hint := str(decode(b.Content), "type"); hint != "" {
		return models.BlockType(hint)
	}
	return ""
}

func parseFlashcards(items []any) []models.FlashcardItem {
	cards := make([]models.FlashcardItem, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		card := models.FlashcardItem{
			ID:              intVal(m, i+1, "id"),
			Word:            str(m, "word", "front"),
			Translation:     str(m, "translation", "back"),
			ExampleSentence: str(m, "example_sentence", "example"),
			ImageURL:        str(m, "image_url", "image"),
			AudioURL:        str(m, "audio_url"),
			Order:           intVal(m, i+1, "order"),
		}
		if card.Word == "" && card.Translation == "" {
			continue
		}
		cards = append(cards, card)
	}
	return cards
}

func parsePronunciationItems(items []any) []models.PronunciationItem {
	out := make([]models.PronunciationItem, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		item := models.PronunciationItem{
			ID:          intVal(m, i+1, "id"),
			Word:        str(m, "word", "front"),
			Translation: str(m, "translation", "back"),
			Example:     str(m, "example", "example_sentence"),
			ImageURL:    str(m, "image_url", "image"),
			AudioURL:    str(m, "audio_url"),
		}
		if item.Word == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func parseQuestions(items []any) []models.TaskQuestion {
	out := make([]models.TaskQuestion, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		q := models.TaskQuestion{
			ID:          intVal(m, i+1, "id"),
			Question:    str(m, "question", "text"),
			Type:        questionType(m),
			Options:     strList(m, "options"),
			AudioURL:    str(m, "audio_url"),
			Placeholder: str(m, "placeholder", "hint"),
		}
		fillAnswer(&q, m)
		if q.Question == "" && q.AudioURL == "" {
			continue
		}
		out = append(out, q)
	}
	return out
}

// questionType normalizes the declared question type, falling back on the
// payload shape when the declaration is missing or unknown
func questionType(m map[string]any) models.QuestionType {
	switch t := models.QuestionType(str(m, "type")); t {
	case models.QuestionTypeSingle, models.QuestionTypeMultiple,
		models.QuestionTypeFillIn, models.QuestionTypeOpen,
		models.QuestionTypeAudioRepeat:
		return t
	}
	if len(strList(m, "options")) > 0 {
		return models.QuestionTypeSingle
	}
	return models.QuestionTypeOpen
}

// fillAnswer extracts the correct answer, whose historical encodings vary
// between a dedicated field and a generic "answer"/"correct_answer" whose
// JSON type implies the question type
func fillAnswer(q *models.TaskQuestion, m map[string]any) {
	candidates := []any{m["correct_index"], m["correct_indexes"], m["correct_text"], m["correct_answer"], m["answer"]}
	for _, v := range candidates {
		switch val := v.(type) {
		case float64:
			idx := int(val)
			if q.Type == models.QuestionTypeMultiple {
				q.CorrectIndexes = []int{idx}
				return
			}
			if q.Type == models.QuestionTypeSingle {
				q.CorrectIndex = &idx
				return
			}
		case []any:
			indexes := make([]int, 0, len(val))
			for _, e := range val {
				if f, ok := e.(float64); ok {
					indexes = append(indexes, int(f))
				}
			}
			if len(indexes) > 0 {
				q.CorrectIndexes = indexes
				return
			}
		case string:
			if val != "" {
				q.CorrectText = val
				return
			}
		}
	}
}

// decode reads raw JSON into a generic map; unreadable input yields an
// empty map so parsing can proceed with defaults
func decode(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// str returns the first non-empty string among the given keys
func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// intVal returns the first numeric value among the given keys, or fallback
func intVal(m map[string]any, fallback int, keys ...string) int {
	for _, k := range keys {
		if f, ok := m[k].(float64); ok {
			return int(f)
		}
	}
	return fallback
}

// list returns the first array value among the given keys
func list(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		if l, ok := m[k].([]any); ok {
			return l
		}
	}
	return nil
}

// strList returns the first array value among the given keys, keeping only
// its string elements
func strList(m map[string]any, keys ...string) []string {
	var out []string
	for _, v := range list(m, keys...) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
