package player

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/qazaqstudy/lesson-studio/internal/content"
	"github.com/qazaqstudy/lesson-studio/internal/models"
)

// Step is one tab in the lesson player's step bar
type Step string

const (
	StepTheory        Step = "theory"
	StepFlashcards    Step = "flashcards"
	StepPronunciation Step = "pronunciation"
	StepTasks         Step = "tasks"
	StepWriting       Step = "writing"
)

// stepOf maps a block type to its step tab. Types without a tab (legacy,
// unknown) belong to no step.
func stepOf(t models.BlockType) (Step, bool) {
	switch t {
	case models.BlockTypeTheory, models.BlockTypeVideo, models.BlockTypeAudioTheory,
		models.BlockTypeAudio, models.BlockTypeImage:
		return StepTheory, true
	case models.BlockTypeFlashcards:
		return StepFlashcards, true
	case models.BlockTypePronunciation:
		return StepPronunciation, true
	case models.BlockTypeQuiz, models.BlockTypeTheoryQuiz, models.BlockTypeLessonTest,
		models.BlockTypeAudioTask:
		return StepTasks, true
	case models.BlockTypeFreeWriting:
		return StepWriting, true
	}
	return "", false
}

// StepTab is one entry of the step bar: the step and the index of its first
// block
type StepTab struct {
	Step  Step `json:"step"`
	Index int  `json:"index"`
}

// Progression owns the learner's position in a lesson: the current index
// into the ordered block list, the set of completed block ids and the
// session timer.
type Progression struct {
	lessonID  int
	blocks    []models.Block
	current   int
	completed map[int]bool
	startedAt time.Time
	now       func() time.Time
}

// NewProgression creates an empty controller
func NewProgression() *Progression {
	return &Progression{
		completed: map[int]bool{},
		now:       time.Now,
	}
}

// SetLesson resets all state for a new lesson and starts the session timer.
// Blocks are taken in ascending stored order; the controller never reorders
// beyond that.
func (p *Progression) SetLesson(lessonID int, blocks []models.Block) {
	ordered := make([]models.Block, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	p.lessonID = lessonID
	p.blocks = ordered
	p.current = 0
	p.completed = map[int]bool{}
	p.startedAt = p.now()
}

// LessonID returns the lesson being played
func (p *Progression) LessonID() int { return p.lessonID }

// Blocks returns the ordered block list
func (p *Progression) Blocks() []models.Block { return p.blocks }

// CurrentIndex returns the learner's position
func (p *Progression) CurrentIndex() int { return p.current }

// Current returns the block at the learner's position
func (p *Progression) Current() (models.Block, bool) {
	if p.current < 0 || p.current >= len(p.blocks) {
		return models.Block{}, false
	}
	return p.blocks[p.current], true
}

// MarkComplete records a block as completed and advances. The next position
// is the override when given, otherwise the following index; either way it
// is clamped to the valid range.
func (p *Progression) MarkComplete(blockID int, nextIndexOverride *int) {
	p.completed[blockID] = true

	next := p.current + 1
	if nextIndexOverride != nil {
		next = *nextIndexOverride
	}
	p.current = clamp(next, 0, len(p.blocks)-1)
}

// GoToBlock jumps directly to an index, used by the step bar and the back
// affordance
func (p *Progression) GoToBlock(index int) error {
	if index < 0 || index >= len(p.blocks) {
		return fmt.Errorf("block index %d out of range", index)
	}
	p.current = index
	return nil
}

// GoToStep jumps to the first block of a step
func (p *Progression) GoToStep(step Step) error {
	for _, tab := range p.Steps() {
		if tab.Step == step {
			return p.GoToBlock(tab.Index)
		}
	}
	return fmt.Errorf("lesson has no %s step", step)
}

// Steps returns the step bar: each step present in the lesson mapped to the
// index of its first block, in block order
func (p *Progression) Steps() []StepTab {
	seen := map[Step]bool{}
	var tabs []StepTab
	for i, b := range p.blocks {
		step, ok := stepOf(content.EffectiveType(b))
		if !ok || seen[step] {
			continue
		}
		seen[step] = true
		tabs = append(tabs, StepTab{Step: step, Index: i})
	}
	return tabs
}

// Completed reports whether a block has been completed
func (p *Progression) Completed(blockID int) bool { return p.completed[blockID] }

// CompletedCount returns how many lesson blocks are completed
func (p *Progression) CompletedCount() int {
	return lo.CountBy(p.blocks, func(b models.Block) bool { return p.completed[b.ID] })
}

// Finished reports whether the last block has been completed, which is the
// lesson-completion trigger
func (p *Progression) Finished() bool {
	if len(p.blocks) == 0 {
		return false
	}
	return p.completed[p.blocks[len(p.blocks)-1].ID]
}

// ElapsedSeconds returns the session timer value
func (p *Progression) ElapsedSeconds() int {
	if p.startedAt.IsZero() {
		return 0
	}
	return int(p.now().Sub(p.startedAt) / time.Second)
}

func clamp(v, low, high int) int {
	if high < low {
		return low
	}
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
