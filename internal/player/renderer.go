package player

import (
	"go.uber.org/zap"

	"github.com/qazaqstudy/lesson-studio/internal/content"
	"github.com/qazaqstudy/lesson-studio/internal/models"
)

// Renderer turns blocks into widgets and guards completion. The completion
// callback fires exactly once per block, no matter how often the learner (or
// an auto-skip) triggers it.
type Renderer struct {
	preview    bool
	onComplete func(blockID int)
	logger     *zap.Logger
	widgets    map[int]Widget
	completed  map[int]bool
}

// NewRenderer creates a renderer. In preview mode unsupported blocks show a
// diagnostic instead of being skipped, and recording gates are lifted.
func NewRenderer(preview bool, onComplete func(blockID int), logger *zap.Logger) *Renderer {
	return &Renderer{
		preview:    preview,
		onComplete: onComplete,
		logger:     logger,
		widgets:    map[int]Widget{},
		completed:  map[int]bool{},
	}
}

// Render resolves the block's effective type, parses its content and builds
// the matching widget. An unsupported or legacy type yields no widget: in
// normal mode the block is transparently skipped so it never strands a
// learner, in preview mode a diagnostic widget is shown instead.
func (r *Renderer) Render(block models.Block) Widget {
	if w, ok := r.widgets[block.ID]; ok {
		return w
	}

	effective := content.EffectiveType(block)
	parsed := content.Parse(effective, block.Content)

	var widget Widget
	switch value := parsed.Value.(type) {
	case *models.TheoryContent, *models.VideoContent, *models.ImageContent, *models.AudioContent:
		widget = NewContinueWidget(effective)
	case *models.FlashcardsContent:
		widget = NewFlashcardsWidget(value.Cards)
	case *models.PronunciationContent:
		widget = NewPronunciationWidget(value.Items, r.preview)
	case *models.QuizContent:
		widget = NewQuizWidget(effective, value.Questions)
	case *models.AudioTaskContent:
		widget = NewAudioTaskWidget(*value)
	case *models.FreeWritingContent:
		widget = NewFreeWritingWidget(*value)
	case *models.RawContent:
		if r.preview {
			widget = NewUnsupportedWidget(effective, value.Fields)
			break
		}
		r.logger.Warn("skipping unsupported block type",
			zap.Int("block_id", block.ID),
			zap.String("block_type", string(effective)),
		)
		r.fireComplete(block.ID)
		return nil
	}

	r.widgets[block.ID] = widget
	return widget
}

// Widget returns the live widget for a block, if it has been rendered
func (r *Renderer) Widget(blockID int) (Widget, bool) {
	w, ok := r.widgets[blockID]
	return w, ok
}

// Complete reports a block finished. It refuses while the widget's gate is
// unsatisfied and fires the callback at most once per block.
func (r *Renderer) Complete(blockID int) bool {
	if w, ok := r.widgets[blockID]; ok && !w.Done() {
		return false
	}
	return r.fireComplete(blockID)
}

// Completed reports whether a block's completion has already fired
func (r *Renderer) Completed(blockID int) bool {
	return r.completed[blockID]
}

func (r *Renderer) fireComplete(blockID int) bool {
	if r.completed[blockID] {
		return false
	}
	r.completed[blockID] = true
	if r.onComplete != nil {
		r.onComplete(blockID)
	}
	return true
}
