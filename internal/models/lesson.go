package models

// LessonStatus represents the publication status of a lesson
type LessonStatus string

const (
	LessonStatusDraft     LessonStatus = "draft"
	LessonStatusPublished LessonStatus = "published"
	LessonStatusArchived  LessonStatus = "archived"
)

// Lesson represents a lesson with its ordered blocks
type Lesson struct {
	ID            int          `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Status        LessonStatus `json:"status"`
	Language      string       `json:"language"`
	Difficulty    string       `json:"difficulty"`
	EstimatedTime int          `json:"estimatedTime"`
	HeroVideoURL  string       `json:"heroVideoUrl,omitempty"`
}

// LessonMetaPatch represents a partial update of lesson metadata.
// Nil fields are left untouched.
type LessonMetaPatch struct {
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	Language      *string `json:"language,omitempty"`
	Difficulty    *string `json:"difficulty,omitempty"`
	EstimatedTime *int    `json:"estimatedTime,omitempty"`
	HeroVideoURL  *string `json:"heroVideoUrl,omitempty"`
}

// IsEmpty reports whether the patch carries no changes
func (p LessonMetaPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Language == nil &&
		p.Difficulty == nil && p.EstimatedTime == nil && p.HeroVideoURL == nil
}

// Apply merges the patch into a lesson
func (p LessonMetaPatch) Apply(l *Lesson) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Language != nil {
		l.Language = *p.Language
	}
	if p.Difficulty != nil {
		l.Difficulty = *p.Difficulty
	}
	if p.EstimatedTime != nil {
		l.EstimatedTime = *p.EstimatedTime
	}
	if p.HeroVideoURL != nil {
		l.HeroVideoURL = *p.HeroVideoURL
	}
}

// DiffLessonMeta builds the patch that turns "from" into "to"
func DiffLessonMeta(from, to Lesson) LessonMetaPatch {
	var p LessonMetaPatch
	if from.Title != to.Title {
		p.Title = &to.Title
	}
	if from.Description != to.Description {
		p.Description = &to.Description
	}
	if from.Language != to.Language {
		p.Language = &to.Language
	}
	if from.Difficulty != to.Difficulty {
		p.Difficulty = &to.Difficulty
	}
	if from.EstimatedTime != to.EstimatedTime {
		p.EstimatedTime = &to.EstimatedTime
	}
	if from.HeroVideoURL != to.HeroVideoURL {
		p.HeroVideoURL = &to.HeroVideoURL
	}
	return p
}
