// Package undo keeps the bounded product edit history and knows how to
// reverse and replay each kind of action against a ledger.
package undo

import "eventcontrol/backend/internal/domain"

const DefaultCapacity = 10

// History is a linear undo/redo log. Both stacks keep their newest entry
// last. Recording a new action drops the redo stack.
type History struct {
	capacity int
	undo     []domain.UndoAction
	redo     []domain.UndoAction
}

func New(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &History{
		capacity: capacity,
		undo:     make([]domain.UndoAction, 0, capacity),
		redo:     make([]domain.UndoAction, 0, capacity),
	}
}

// Restore rebuilds a history from persisted actions ordered newest first.
// The redo stack always starts empty.
func Restore(capacity int, newestFirst []domain.UndoAction) *History {
	h := New(capacity)
	start := 0
	if len(newestFirst) > h.capacity {
		start = len(newestFirst) - h.capacity
	}
	kept := newestFirst[:len(newestFirst)-start]
	for i := len(kept) - 1; i >= 0; i-- {
		h.undo = append(h.undo, kept[i].Clone())
	}
	return h
}

func (h *History) Capacity() int {
	return h.capacity
}

func (h *History) CanUndo() bool {
	return len(h.undo) > 0
}

func (h *History) CanRedo() bool {
	return len(h.redo) > 0
}

// Record pushes action, evicting the oldest entry past capacity.
func (h *History) Record(action domain.UndoAction) {
	h.undo = append(h.undo, action.Clone())
	if over := len(h.undo) - h.capacity; over > 0 {
		h.undo = append(h.undo[:0], h.undo[over:]...)
	}
	h.redo = h.redo[:0]
}

// Undo reverses the newest action on l. It reports false on an empty stack.
func (h *History) Undo(l *domain.Ledger) (domain.UndoAction, bool) {
	if len(h.undo) == 0 {
		return domain.UndoAction{}, false
	}
	action := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]

	Revert(l, action)
	h.redo = append(h.redo, action)
	return action.Clone(), true
}

// Redo replays the most recently undone action on l.
func (h *History) Redo(l *domain.Ledger) (domain.UndoAction, bool) {
	if len(h.redo) == 0 {
		return domain.UndoAction{}, false
	}
	action := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]

	Apply(l, action)
	h.undo = append(h.undo, action)
	return action.Clone(), true
}

// UndoActions lists the undo stack newest first.
func (h *History) UndoActions() []domain.UndoAction {
	return newestFirst(h.undo)
}

// RedoActions lists the redo stack newest first.
func (h *History) RedoActions() []domain.UndoAction {
	return newestFirst(h.redo)
}

func newestFirst(stack []domain.UndoAction) []domain.UndoAction {
	out := make([]domain.UndoAction, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		out = append(out, stack[i].Clone())
	}
	return out
}
