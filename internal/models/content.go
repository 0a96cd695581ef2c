package models

// BlockContent is the canonical, fully-typed content of a lesson block.
// Values are produced by the content package; raw JSON from the wire never
// travels past that boundary.
type BlockContent interface {
	// ContentType returns the block type this content belongs to
	ContentType() BlockType
}

// FlashcardItem is a single vocabulary card inside a flashcards block
type FlashcardItem struct {
	ID              int    `json:"id"`
	Word            string `json:"word"`
	Translation     string `json:"translation"`
	ExampleSentence string `json:"example_sentence,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
	AudioURL        string `json:"audio_url,omitempty"`
	Order           int    `json:"order"`
}

// PronunciationItem is a single drill item inside a pronunciation block
type PronunciationItem struct {
	ID          int    `json:"id"`
	Word        string `json:"word"`
	Translation string `json:"translation"`
	Example     string `json:"example,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	AudioURL    string `json:"audio_url,omitempty"`
}

// QuestionType represents the answer mode of a task question
type QuestionType string

const (
	QuestionTypeSingle      QuestionType = "single"
	QuestionTypeMultiple    QuestionType = "multiple"
	QuestionTypeFillIn      QuestionType = "fill-in"
	QuestionTypeOpen        QuestionType = "open"
	QuestionTypeAudioRepeat QuestionType = "audio_repeat"
)

// TaskQuestion is a question inside a quiz-family block.
// Exactly one of the correct-answer fields is meaningful, depending on Type:
// CorrectIndex for single, CorrectIndexes for multiple, CorrectText for
// fill-in/open/audio_repeat.
type TaskQuestion struct {
	ID             int          `json:"id"`
	Question       string       `json:"question"`
	Type           QuestionType `json:"type"`
	Options        []string     `json:"options,omitempty"`
	CorrectIndex   *int         `json:"correct_index,omitempty"`
	CorrectIndexes []int        `json:"correct_indexes,omitempty"`
	CorrectText    string       `json:"correct_text,omitempty"`
	AudioURL       string       `json:"audio_url,omitempty"`
	Placeholder    string       `json:"placeholder,omitempty"`
}

// TheoryContent is the content of a theory block
type TheoryContent struct {
	Title        string `json:"title,omitempty"`
	Markdown     string `json:"markdown"`
	VideoURL     string `json:"video_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

func (*TheoryContent) ContentType() BlockType { return BlockTypeTheory }

// FlashcardsContent is the content of a flashcards block
type FlashcardsContent struct {
	Cards []FlashcardItem `json:"cards"`
}

func (*FlashcardsContent) ContentType() BlockType { return BlockTypeFlashcards }

// PronunciationContent is the content of a pronunciation block
type PronunciationContent struct {
	Items          []PronunciationItem `json:"items"`
	SampleAudioURL string              `json:"sample_audio_url,omitempty"`
}

func (*PronunciationContent) ContentType() BlockType { return BlockTypePronunciation }

// QuizContent is the content of a quiz, theory_quiz or lesson_test block.
// Kind records which quiz variant the content belongs to.
type QuizContent struct {
	Kind      BlockType      `json:"-"`
	Questions []TaskQuestion `json:"questions"`
}

func (c *QuizContent) ContentType() BlockType {
	if c.Kind.IsQuizFamily() {
		return c.Kind
	}
	return BlockTypeQuiz
}

// VideoContent is the content of a standalone video block
type VideoContent struct {
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Caption      string `json:"caption,omitempty"`
}

func (*VideoContent) ContentType() BlockType { return BlockTypeVideo }

// AudioContent is the content of an audio or audio_theory block
type AudioContent struct {
	Kind        BlockType `json:"-"`
	AudioPath   string    `json:"audio_path,omitempty"`
	AudioURL    string    `json:"audio_url,omitempty"`
	Transcript  string    `json:"transcript,omitempty"`
	Translation string    `json:"translation,omitempty"`
	Markdown    string    `json:"markdown,omitempty"`
}

func (c *AudioContent) ContentType() BlockType {
	if c.Kind == BlockTypeAudioTheory {
		return BlockTypeAudioTheory
	}
	return BlockTypeAudio
}

// ImageContent is the content of an image block
type ImageContent struct {
	ImageURL    string   `json:"image_url"`
	Explanation string   `json:"explanation,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

func (*ImageContent) ContentType() BlockType { return BlockTypeImage }

// AudioTaskContent is the content of an audio_task block
type AudioTaskContent struct {
	AudioPath     string   `json:"audio_path,omitempty"`
	AudioURL      string   `json:"audio_url,omitempty"`
	Transcript    string   `json:"transcript,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	AnswerType    string   `json:"answer_type,omitempty"`
	Feedback      string   `json:"feedback,omitempty"`
}

func (*AudioTaskContent) ContentType() BlockType { return BlockTypeAudioTask }

// FreeWritingContent is the content of a free_writing block
type FreeWritingContent struct {
	Question string `json:"question"`
	Rubric   string `json:"rubric,omitempty"`
	Language string `json:"language,omitempty"`
}

func (*FreeWritingContent) ContentType() BlockType { return BlockTypeFreeWriting }

// RawContent holds the untouched payload of a block whose type has no
// canonical shape (legacy and unknown types). It exists so the authoring
// surface can still round-trip such blocks without understanding them.
type RawContent struct {
	Kind   BlockType      `json:"-"`
	Fields map[string]any `json:"-"`
}

func (c *RawContent) ContentType() BlockType { return c.Kind }
