package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/qazaqstudy/lesson-studio/internal/content"
	"github.com/qazaqstudy/lesson-studio/internal/models"
)

// LessonAPI defines the lesson-level operations the session needs from the
// core API
type LessonAPI interface {
	// GetLesson retrieves a lesson together with its ordered blocks
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the lesson.
	//
	// Returns the lesson, its blocks and an error if any.
	GetLesson(ctx context.Context, id int) (*models.Lesson, []models.Block, error)
	// PatchLesson applies a metadata patch to a lesson
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the lesson.
	// "patch" carries only the fields to change.
	//
	// Returns an error if any.
	PatchLesson(ctx context.Context, id int, patch models.LessonMetaPatch) error
}

// BlockAPI defines the block-level operations the session needs from the
// core API
type BlockAPI interface {
	// CreateBlock creates a block in a lesson and returns the stored block
	//
	// "ctx" is the context for the request.
	// "lessonID" is the ID of the owning lesson.
	// "req" carries the block type and initial content.
	//
	// Returns the created block and an error if any.
	CreateBlock(ctx context.Context, lessonID int, req models.CreateBlockRequest) (*models.Block, error)
	// UpdateBlock applies a partial update to a block
	//
	// "ctx" is the context for the request.
	// "blockID" is the ID of the block.
	// "req" carries the content and/or order to change.
	//
	// Returns an error if any.
	UpdateBlock(ctx context.Context, blockID int, req models.UpdateBlockRequest) error
	// DeleteBlock deletes a block
	//
	// "ctx" is the context for the request.
	// "blockID" is the ID of the block.
	//
	// Returns an error if any.
	DeleteBlock(ctx context.Context, blockID int) error
	// DuplicateBlock clones a block server-side and returns the clone
	//
	// "ctx" is the context for the request.
	// "blockID" is the ID of the block to clone.
	//
	// Returns the clone and an error if any.
	DuplicateBlock(ctx context.Context, blockID int) (*models.Block, error)
	// ReorderBlocks persists the full ordered block id list for a lesson
	//
	// "ctx" is the context for the request.
	// "lessonID" is the ID of the lesson.
	// "ids" is the complete ordered list of block IDs.
	//
	// Returns an error if any.
	ReorderBlocks(ctx context.Context, lessonID int, ids []int) error
}

// AuthoredBlock is one lesson block in authoring state, with parsed content
type AuthoredBlock struct {
	ID      int                 `json:"id"`
	Type    models.BlockType    `json:"type"`
	Order   int                 `json:"order"`
	Content models.BlockContent `json:"content"`
	Valid   bool                `json:"valid"`
}

// authoringSnapshot is an immutable copy of the editable state, used for
// undo/redo and for diffing against the last state the core API has seen
type authoringSnapshot struct {
	lesson models.Lesson
	blocks []AuthoredBlock
}

// maxUndoDepth caps the undo stack; the oldest snapshot is dropped beyond it
const maxUndoDepth = 20

// AuthoringSession is the in-memory source of truth for one lesson being
// edited. All mutations go through it: local state updates synchronously,
// persistence happens through a debounced, serialized flush of the pending
// change set.
type AuthoringSession struct {
	lessonID  int
	lessonAPI LessonAPI
	blockAPI  BlockAPI
	logger    *zap.Logger
	debounce  time.Duration

	mu       sync.Mutex
	lesson   models.Lesson
	blocks   []AuthoredBlock
	selected int

	// Pending change set. Block patches and the metadata patch carry a
	// revision so a flush only clears what it actually sent.
	pendingMeta   bool
	metaRev       int
	pendingBlocks map[int]int // block id -> revision at last edit
	orderPending  bool
	dirty         bool
	saveError     string

	synced authoringSnapshot
	undo   []authoringSnapshot
	redo   []authoringSnapshot

	timer   *time.Timer
	flushMu sync.Mutex
	closed  bool
}

// NewAuthoringSession creates an unloaded session for one lesson
func NewAuthoringSession(lessonID int, lessonAPI LessonAPI, blockAPI BlockAPI, debounce time.Duration, logger *zap.Logger) *AuthoringSession {
	return &AuthoringSession{
		lessonID:      lessonID,
		lessonAPI:     lessonAPI,
		blockAPI:      blockAPI,
		logger:        logger,
		debounce:      debounce,
		pendingBlocks: map[int]int{},
	}
}

// Load fetches the lesson, normalizes its block structure and resets all
// editing state. Missing canonical blocks are created through the core API;
// creation failures are warnings, not fatal errors.
func (s *AuthoringSession) Load(ctx context.Context) error {
	lesson, blocks, err := s.lessonAPI.GetLesson(ctx, s.lessonID)
	if err != nil {
		return fmt.Errorf("failed to load lesson: %w", err)
	}

	for _, missing := range content.MissingCanonical(blocks) {
		created, err := s.blockAPI.CreateBlock(ctx, s.lessonID, models.CreateBlockRequest{
			Type:    missing,
			Content: content.Marshal(content.Default(missing)),
		})
		if err != nil {
			s.logger.Warn("failed to create canonical block",
				zap.Int("lesson_id", s.lessonID),
				zap.String("block_type", string(missing)),
				zap.Error(err),
			)
			continue
		}
		blocks = append(blocks, *created)
	}

	normalized := content.Normalize(blocks)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lesson = *lesson
	s.blocks = lo.Map(normalized, func(b models.Block, _ int) AuthoredBlock {
		parsed := content.Parse(content.EffectiveType(b), b.Content)
		return AuthoredBlock{
			ID:      b.ID,
			Type:    parsed.Type,
			Order:   b.Order,
			Content: parsed.Value,
			Valid:   parsed.Valid,
		}
	})
	if len(s.blocks) > 0 {
		s.selected = s.blocks[0].ID
	}
	s.pendingMeta = false
	s.pendingBlocks = map[int]int{}
	s.orderPending = false
	s.dirty = false
	s.saveError = ""
	s.undo = nil
	s.redo = nil
	s.synced = s.snapshotLocked()
	return nil
}

// PatchMeta merges a metadata patch into the local lesson state and marks it
// pending. A snapshot is taken before the change so it can be undone.
func (s *AuthoringSession) PatchMeta(patch models.LessonMetaPatch) {
	if patch.IsEmpty() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pushUndoLocked()
	patch.Apply(&s.lesson)
	s.pendingMeta = true
	s.metaRev++
	s.markDirtyLocked()
}

// PatchBlockContent replaces a block's content with the canonical parse of
// the given raw payload. Editing the flashcards block also re-derives the
// pronunciation drill from the new card list.
func (s *AuthoringSession) PatchBlockContent(blockID int, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(blockID)
	if idx < 0 {
		return fmt.Errorf("block %d not found in lesson %d", blockID, s.lessonID)
	}

	s.pushUndoLocked()
	parsed := content.Parse(s.blocks[idx].Type, raw)
	s.blocks[idx].Content = parsed.Value
	s.blocks[idx].Valid = parsed.Valid
	s.pendingBlocks[blockID] = s.nextRevLocked(blockID)

	if cards, ok := parsed.Value.(*models.FlashcardsContent); ok {
		s.projectPronunciationLocked(cards.Cards)
	}

	s.markDirtyLocked()
	return nil
}

// projectPronunciationLocked mirrors the flashcard list into the
// pronunciation block. An unchanged projection does not flag a save.
func (s *AuthoringSession) projectPronunciationLocked(cards []models.FlashcardItem) {
	for i := range s.blocks {
		pron, ok := s.blocks[i].Content.(*models.PronunciationContent)
		if !ok {
			continue
		}
		if content.ApplyProjection(pron, cards) {
			s.blocks[i].Valid = len(pron.Items) > 0
			s.pendingBlocks[s.blocks[i].ID] = s.nextRevLocked(s.blocks[i].ID)
		}
		return
	}
}

// Reorder moves a block from one position to another and re-assigns dense
// order values. Out-of-range indexes are rejected; equal indexes are a no-op.
func (s *AuthoringSession) Reorder(fromIndex, toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fromIndex < 0 || fromIndex >= len(s.blocks) || toIndex < 0 || toIndex >= len(s.blocks) {
		return fmt.Errorf("reorder indexes out of range")
	}
	if fromIndex == toIndex {
		return nil
	}

	s.pushUndoLocked()
	moved := s.blocks[fromIndex]
	rest := append(s.blocks[:fromIndex:fromIndex], s.blocks[fromIndex+1:]...)
	s.blocks = append(rest[:toIndex:toIndex], append([]AuthoredBlock{moved}, rest[toIndex:]...)...)
	s.resequenceLocked()
	s.orderPending = true
	s.markDirtyLocked()
	return nil
}

// AddBlock creates a block of the given type with its default content and
// appends it to the lesson, selecting it for editing
func (s *AuthoringSession) AddBlock(ctx context.Context, blockType models.BlockType) (*AuthoredBlock, error) {
	created, err := s.blockAPI.CreateBlock(ctx, s.lessonID, models.CreateBlockRequest{
		Type:    blockType,
		Content: content.Marshal(content.Default(blockType)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add block: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parsed := content.Parse(blockType, created.Content)
	block := AuthoredBlock{
		ID:      created.ID,
		Type:    blockType,
		Order:   len(s.blocks) + 1,
		Content: parsed.Value,
		Valid:   parsed.Valid,
	}
	s.blocks = append(s.blocks, block)
	s.selected = block.ID
	s.syncedAppendLocked(block)
	return &block, nil
}

// DeleteBlock removes a block through the core API and locally. The dense
// order is re-assigned and flagged for persistence.
func (s *AuthoringSession) DeleteBlock(ctx context.Context, blockID int) error {
	if err := s.blockAPI.DeleteBlock(ctx, blockID); err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(blockID)
	if idx < 0 {
		return nil
	}
	s.blocks = append(s.blocks[:idx], s.blocks[idx+1:]...)
	s.resequenceLocked()
	delete(s.pendingBlocks, blockID)
	s.syncedRemoveLocked(blockID)
	s.orderPending = true
	s.markDirtyLocked()
	return nil
}

// DuplicateBlock clones a block server-side and inserts the clone right
// after its source
func (s *AuthoringSession) DuplicateBlock(ctx context.Context, blockID int) (*AuthoredBlock, error) {
	clone, err := s.blockAPI.DuplicateBlock(ctx, blockID)
	if err != nil {
		return nil, fmt.Errorf("failed to duplicate block: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(blockID)
	if idx < 0 {
		idx = len(s.blocks) - 1
	}
	parsed := content.Parse(content.EffectiveType(*clone), clone.Content)
	block := AuthoredBlock{
		ID:      clone.ID,
		Type:    parsed.Type,
		Content: parsed.Value,
		Valid:   parsed.Valid,
	}
	s.blocks = append(s.blocks[:idx+1:idx+1], append([]AuthoredBlock{block}, s.blocks[idx+1:]...)...)
	s.resequenceLocked()
	s.syncedAppendLocked(block)
	s.orderPending = true
	s.markDirtyLocked()
	return &block, nil
}

// Select remembers which block the author is editing
func (s *AuthoringSession) Select(blockID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOfLocked(blockID) >= 0 {
		s.selected = blockID
	}
}

// Undo swaps the current state with the most recent snapshot. The pending
// change set is re-derived against the last-synced state so the next flush
// persists the reverted values.
func (s *AuthoringSession) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undo) == 0 {
		return false
	}
	current := s.snapshotLocked()
	top := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, current)
	s.restoreLocked(top)
	return true
}

// Redo re-applies the most recently undone change
func (s *AuthoringSession) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.redo) == 0 {
		return false
	}
	current := s.snapshotLocked()
	top := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, current)
	s.restoreLocked(top)
	return true
}

// Flush persists the pending change set: the metadata patch first, then each
// pending block's content, then the reorder if flagged. Flushes are
// serialized; edits arriving mid-flight stay pending for the next one. Only
// the portions that succeed are cleared.
func (s *AuthoringSession) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	lesson := s.lesson
	metaPending := s.pendingMeta
	metaRev := s.metaRev
	metaPatch := models.DiffLessonMeta(s.synced.lesson, s.lesson)
	type blockPayload struct {
		id      int
		rev     int
		content json.RawMessage
	}
	var payloads []blockPayload
	for id, rev := range s.pendingBlocks {
		if idx := s.indexOfLocked(id); idx >= 0 {
			payloads = append(payloads, blockPayload{id: id, rev: rev, content: content.Marshal(s.blocks[idx].Content)})
		}
	}
	orderPending := s.orderPending
	orderIDs := lo.Map(s.blocks, func(b AuthoredBlock, _ int) int { return b.ID })
	s.mu.Unlock()

	var firstErr error

	if metaPending && !metaPatch.IsEmpty() {
		if err := s.lessonAPI.PatchLesson(ctx, s.lessonID, metaPatch); err != nil {
			firstErr = err
			s.logger.Error("failed to save lesson metadata", zap.Int("lesson_id", s.lessonID), zap.Error(err))
		} else {
			s.mu.Lock()
			if s.metaRev == metaRev {
				s.pendingMeta = false
			}
			s.synced.lesson = lesson
			s.mu.Unlock()
		}
	} else if metaPending {
		// Edits cancelled each other out; nothing to send.
		s.mu.Lock()
		if s.metaRev == metaRev {
			s.pendingMeta = false
		}
		s.mu.Unlock()
	}

	for _, p := range payloads {
		if err := s.blockAPI.UpdateBlock(ctx, p.id, models.UpdateBlockRequest{Content: p.content}); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Error("failed to save block content",
				zap.Int("lesson_id", s.lessonID),
				zap.Int("block_id", p.id),
				zap.Error(err),
			)
			continue
		}
		s.mu.Lock()
		if s.pendingBlocks[p.id] == p.rev {
			delete(s.pendingBlocks, p.id)
		}
		s.syncedSetContentLocked(p.id, p.content)
		s.mu.Unlock()
	}

	if orderPending {
		if err := s.blockAPI.ReorderBlocks(ctx, s.lessonID, orderIDs); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Error("failed to save block order", zap.Int("lesson_id", s.lessonID), zap.Error(err))
		} else {
			s.mu.Lock()
			currentIDs := lo.Map(s.blocks, func(b AuthoredBlock, _ int) int { return b.ID })
			if equalIDs(currentIDs, orderIDs) {
				s.orderPending = false
			}
			s.syncedSetOrderLocked(orderIDs)
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	if firstErr != nil {
		s.saveError = firstErr.Error()
	} else {
		s.saveError = ""
		if !s.pendingMeta && len(s.pendingBlocks) == 0 && !s.orderPending {
			s.dirty = false
		}
	}
	s.mu.Unlock()

	if firstErr != nil {
		return fmt.Errorf("failed to save changes: %w", firstErr)
	}
	return nil
}

// SaveNow bypasses the debounce and flushes immediately
func (s *AuthoringSession) SaveNow(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.Flush(ctx)
}

// Close stops the autosave timer; pending state is discarded with the session
func (s *AuthoringSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// SessionState is a read-only view of the session for the HTTP surface
type SessionState struct {
	Lesson    models.Lesson   `json:"lesson"`
	Blocks    []AuthoredBlock `json:"blocks"`
	Selected  int             `json:"selected"`
	Dirty     bool            `json:"dirty"`
	CanUndo   bool            `json:"canUndo"`
	CanRedo   bool            `json:"canRedo"`
	SaveError string          `json:"saveError,omitempty"`
}

// State returns a copy of the current editing state
func (s *AuthoringSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	return SessionState{
		Lesson:    snap.lesson,
		Blocks:    snap.blocks,
		Selected:  s.selected,
		Dirty:     s.dirty,
		CanUndo:   len(s.undo) > 0,
		CanRedo:   len(s.redo) > 0,
		SaveError: s.saveError,
	}
}

// --- internal helpers (callers hold s.mu) ---

func (s *AuthoringSession) indexOfLocked(blockID int) int {
	return lo.IndexOf(lo.Map(s.blocks, func(b AuthoredBlock, _ int) int { return b.ID }), blockID)
}

func (s *AuthoringSession) nextRevLocked(blockID int) int {
	return s.pendingBlocks[blockID] + 1
}

func (s *AuthoringSession) resequenceLocked() {
	for i := range s.blocks {
		s.blocks[i].Order = i + 1
	}
}

func (s *AuthoringSession) snapshotLocked() authoringSnapshot {
	blocks := make([]AuthoredBlock, len(s.blocks))
	for i, b := range s.blocks {
		b.Content = content.Clone(b.Content)
		blocks[i] = b
	}
	return authoringSnapshot{lesson: s.lesson, blocks: blocks}
}

// pushUndoLocked records the current state before a mutation. New mutations
// invalidate the redo stack.
func (s *AuthoringSession) pushUndoLocked() {
	s.undo = append(s.undo, s.snapshotLocked())
	if len(s.undo) > maxUndoDepth {
		s.undo = s.undo[1:]
	}
	s.redo = nil
}

// restoreLocked swaps in a snapshot and re-derives the pending change set by
// diffing against the last-synced state
func (s *AuthoringSession) restoreLocked(snap authoringSnapshot) {
	s.lesson = snap.lesson

	// Blocks missing from the synced snapshot were deleted server-side after
	// this snapshot was taken. They must not come back: flushing a restored
	// ghost would patch and reorder an id the core API no longer knows.
	syncedByID := lo.SliceToMap(s.synced.blocks, func(b AuthoredBlock) (int, AuthoredBlock) { return b.ID, b })
	s.blocks = make([]AuthoredBlock, 0, len(snap.blocks))
	for _, b := range snap.blocks {
		if _, ok := syncedByID[b.ID]; !ok {
			continue
		}
		b.Content = content.Clone(b.Content)
		s.blocks = append(s.blocks, b)
	}
	s.resequenceLocked()

	s.pendingMeta = !models.DiffLessonMeta(s.synced.lesson, s.lesson).IsEmpty()
	if s.pendingMeta {
		s.metaRev++
	}

	s.pendingBlocks = map[int]int{}
	for _, b := range s.blocks {
		if prev, ok := syncedByID[b.ID]; !ok || !content.Equal(prev.Content, b.Content) {
			s.pendingBlocks[b.ID] = 1
		}
	}

	syncedIDs := lo.Map(s.synced.blocks, func(b AuthoredBlock, _ int) int { return b.ID })
	currentIDs := lo.Map(s.blocks, func(b AuthoredBlock, _ int) int { return b.ID })
	s.orderPending = !equalIDs(syncedIDs, currentIDs)

	s.markDirtyLocked()
}

// markDirtyLocked flags unsaved changes and (re)arms the autosave debounce
func (s *AuthoringSession) markDirtyLocked() {
	s.dirty = true
	if s.closed || s.debounce <= 0 {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		shouldFlush := s.dirty && !s.closed
		s.mu.Unlock()
		if shouldFlush {
			if err := s.Flush(context.Background()); err != nil {
				s.logger.Warn("autosave failed, changes kept pending", zap.Int("lesson_id", s.lessonID), zap.Error(err))
			}
		}
	})
}

func (s *AuthoringSession) syncedAppendLocked(block AuthoredBlock) {
	block.Content = content.Clone(block.Content)
	s.synced.blocks = append(s.synced.blocks, block)
}

func (s *AuthoringSession) syncedRemoveLocked(blockID int) {
	s.synced.blocks = lo.Filter(s.synced.blocks, func(b AuthoredBlock, _ int) bool { return b.ID != blockID })
}

func (s *AuthoringSession) syncedSetContentLocked(blockID int, raw json.RawMessage) {
	for i := range s.synced.blocks {
		if s.synced.blocks[i].ID == blockID {
			parsed := content.Parse(s.synced.blocks[i].Type, raw)
			s.synced.blocks[i].Content = parsed.Value
			s.synced.blocks[i].Valid = parsed.Valid
			return
		}
	}
}

func (s *AuthoringSession) syncedSetOrderLocked(ids []int) {
	byID := lo.SliceToMap(s.synced.blocks, func(b AuthoredBlock) (int, AuthoredBlock) { return b.ID, b })
	reordered := make([]AuthoredBlock, 0, len(s.synced.blocks))
	for i, id := range ids {
		if b, ok := byID[id]; ok {
			b.Order = i + 1
			reordered = append(reordered, b)
			delete(byID, id)
		}
	}
	for _, b := range s.synced.blocks {
		if _, left := byID[b.ID]; left {
			reordered = append(reordered, b)
		}
	}
	s.synced.blocks = reordered
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
