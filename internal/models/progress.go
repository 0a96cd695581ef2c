package models

// ProgressUpdate is sent to the core API while a learner works through a lesson
type ProgressUpdate struct {
	LessonID    int    `json:"lessonId"`
	BlockID     int    `json:"blockId,omitempty"`
	Status      string `json:"status"`
	ElapsedSecs int    `json:"elapsedSecs"`
}

// CompleteLessonResult is returned by the core API when a lesson is finished
type CompleteLessonResult struct {
	NextLessonID int     `json:"nextLessonId,omitempty"`
	Passed       bool    `json:"passed"`
	Score        float64 `json:"score,omitempty"`
}

// PronunciationScore is the verdict of the pronunciation-check collaborator
type PronunciationScore struct {
	Score    float64 `json:"score"`
	Status   string  `json:"status"`
	Feedback string  `json:"feedback,omitempty"`
}

// WritingReview is the verdict of the AI writing checker
type WritingReview struct {
	Score       float64  `json:"score"`
	Level       string   `json:"level,omitempty"`
	Feedback    string   `json:"feedback,omitempty"`
	Corrections []string `json:"corrections,omitempty"`
}

// UploadResult is returned by the media upload endpoint
type UploadResult struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// QuizAnswer is a learner's collected answer for one task question.
// Answers are gathered for submission to the core API; the client never
// grades them.
type QuizAnswer struct {
	QuestionID int    `json:"questionId"`
	Index      *int   `json:"index,omitempty"`
	Indexes    []int  `json:"indexes,omitempty"`
	Text       string `json:"text,omitempty"`
}
