package edit

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrRedoUnsupported is returned by History.Redo.
var ErrRedoUnsupported = errors.New("redo is not supported; re-run the prompt instead")

// Entry records one applied action. Entries are never modified after they
// are recorded.
type Entry struct {
	ID         string
	ActionName string
	Label      string
	// TargetItems lists only the items that were edited successfully.
	TargetItems   []ItemRef
	PreviousState map[ItemRef]Snapshot
	Parameters    map[string]any
	AppliedAt     time.Time
}

// NewEntry builds a history entry from a dispatch outcome. It reports false
// when no item succeeded, in which case nothing should be recorded.
func NewEntry(out Outcome, params map[string]any, at time.Time) (Entry, bool) {
	if out.SuccessCount() == 0 {
		return Entry{}, false
	}
	prev := make(map[ItemRef]Snapshot, len(out.Successful))
	for _, ref := range out.Successful {
		prev[ref] = out.Snapshots[ref]
	}
	return Entry{
		ID:            uuid.NewString(),
		ActionName:    out.Action,
		Label:         out.Label,
		TargetItems:   append([]ItemRef(nil), out.Successful...),
		PreviousState: prev,
		Parameters:    maps.Clone(params),
		AppliedAt:     at,
	}, true
}

// History is an append-only list of entries with an undo cursor counting
// the trailing undone entries. It is not safe for concurrent use; the owner
// serializes access.
type History struct {
	entries []Entry
	cursor  int
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Record discards undone entries and appends e.
func (h *History) Record(e Entry) {
	h.entries = append(h.entries[:len(h.entries)-h.cursor], e)
	h.cursor = 0
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Cursor returns the number of trailing undone entries.
func (h *History) Cursor() int { return h.cursor }

// CanUndo reports whether an applied entry remains.
func (h *History) CanUndo() bool { return h.cursor < len(h.entries) }

// Entries returns a copy of all entries, oldest first.
func (h *History) Entries() []Entry {
	return append([]Entry(nil), h.entries...)
}

// UndoOutcome describes an undo attempt.
type UndoOutcome struct {
	// NothingToUndo is set when every entry is already undone.
	NothingToUndo bool
	Entry         Entry
	Successful    []ItemRef
	Failed        []Failure
}

// Undone reports whether the cursor moved.
func (u UndoOutcome) Undone() bool { return !u.NothingToUndo && len(u.Successful) > 0 }

// Undo restores the most recent applied entry, one host transaction per
// item. The cursor advances when at least one item was restored.
func (h *History) Undo(ctx context.Context, host Host) UndoOutcome {
	if !h.CanUndo() {
		return UndoOutcome{NothingToUndo: true}
	}
	entry := h.entries[len(h.entries)-h.cursor-1]
	out := UndoOutcome{Entry: entry}

	for _, ref := range entry.TargetItems {
		snap, ok := entry.PreviousState[ref]
		if !ok || snap == nil {
			out.Failed = append(out.Failed, Failure{Item: ref, Err: fmt.Errorf("no saved state for %s", ref)})
			continue
		}
		err := host.Transaction(ctx, TransactionPrefix+"Undo "+entry.Label, func() error {
			return snap.Restore(ctx, host, ref)
		})
		if err != nil {
			log.Warn().Err(err).Str("item", string(ref)).Str("entry", entry.ID).Msg("Undo failed on item")
			out.Failed = append(out.Failed, Failure{Item: ref, Err: err})
			continue
		}
		out.Successful = append(out.Successful, ref)
	}

	if len(out.Successful) > 0 {
		h.cursor++
	}
	log.Info().
		Str("entry", entry.ID).
		Str("action", entry.ActionName).
		Int("restored", len(out.Successful)).
		Int("failed", len(out.Failed)).
		Int("cursor", h.cursor).
		Msg("Undo finished")
	return out
}

// Redo is not supported.
func (h *History) Redo() error {
	return ErrRedoUnsupported
}
