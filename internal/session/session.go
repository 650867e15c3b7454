// Package session owns one editing conversation: the chat log, the edit
// history and its undo cursor. A turn sends the user's text to a Prompter,
// applies the returned actions to the selected clips and records them.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/edit"
	"github.com/chatcut/chatcut/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Prompter turns text into an action result. Implemented by
// *service.Service in-process and by *client.Client over HTTP.
type Prompter interface {
	ProcessPrompt(ctx context.Context, text string, contextParams map[string]any) action.Result
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat line.
type Message struct {
	ID   string    `json:"id"`
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
	// Error is the result code when the line reports a failure.
	Error string `json:"error,omitempty"`
}

// Session serializes every turn behind one mutex.
type Session struct {
	mu         sync.Mutex
	id         string
	prompter   Prompter
	host       edit.Host
	dispatcher *edit.Dispatcher
	history    *edit.History
	chat       []Message
	now        func() time.Time
}

// New creates a session bound to a prompter and an editing host.
func New(prompter Prompter, host edit.Host) *Session {
	return &Session{
		id:         uuid.NewString(),
		prompter:   prompter,
		host:       host,
		dispatcher: edit.NewDispatcher(host),
		history:    edit.NewHistory(),
		now:        time.Now,
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Submit runs one turn and returns the chat lines it added. "undo" and
// "redo" are handled locally without calling the prompter.
func (s *Session) Submit(ctx context.Context, text string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	start := len(s.chat)
	s.say(RoleUser, text, "")

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("session", s.id).Interface("panic", r).Msg("Recovered panic during turn")
				s.say(RoleAssistant, fmt.Sprintf("Something went wrong while handling that request: %v", r), "INTERNAL_ERROR")
			}
		}()
		switch strings.ToLower(strings.TrimPrefix(text, "/")) {
		case "undo":
			s.undo(ctx)
		case "redo":
			s.redo()
		default:
			s.turn(ctx, text)
		}
	}()

	return append([]Message(nil), s.chat[start:]...)
}

// Undo reverses the most recent applied edit.
func (s *Session) Undo(ctx context.Context) edit.UndoOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undo(ctx)
}

// Redo always reports that redo is unsupported.
func (s *Session) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redo()
}

// Messages returns a copy of the chat log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.chat...)
}

// History returns a copy of the recorded entries, oldest first.
func (s *Session) History() []edit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// UndoCursor returns the number of trailing undone entries.
func (s *Session) UndoCursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Cursor()
}

// CanUndo reports whether an applied edit remains.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) say(role, text, code string) {
	s.chat = append(s.chat, Message{
		ID:    uuid.NewString(),
		Role:  role,
		Text:  text,
		At:    s.now(),
		Error: code,
	})
}

func (s *Session) turn(ctx context.Context, text string) {
	res := s.prompter.ProcessPrompt(ctx, text, nil)
	if res.IsError() {
		s.say(RoleAssistant, errorMessage(res), res.Error)
		return
	}

	var steps []action.Step
	for _, st := range res.Steps() {
		if st.Action == action.ObjectTracking {
			s.tracking(res)
			continue
		}
		steps = append(steps, st)
	}
	if len(steps) == 0 {
		return
	}

	items, err := s.host.SelectedItems(ctx)
	if err != nil {
		s.say(RoleAssistant, "Could not read the timeline selection: "+err.Error(), "")
		return
	}
	if len(items) == 0 {
		s.say(RoleAssistant, "Select one or more clips on the timeline first, then try again.", action.CodeNeedsSelection)
		return
	}

	for _, st := range steps {
		s.apply(ctx, st, items)
	}
}

func (s *Session) apply(ctx context.Context, st action.Step, items []edit.ItemRef) {
	if !s.dispatcher.Supports(st.Action) {
		s.say(RoleAssistant, fmt.Sprintf("I don't know how to %q yet.", st.Action), action.CodeInvalidResponse)
		return
	}
	out := s.dispatcher.Dispatch(ctx, st.Action, st.Parameters, items)
	metrics.New(metrics.Namespace).
		Dimension("Action", st.Action).
		Metric("EditItemsApplied", float64(out.SuccessCount()), metrics.UnitCount).
		Metric("EditItemsFailed", float64(out.FailureCount()), metrics.UnitCount).
		Flush()
	entry, ok := edit.NewEntry(out, st.Parameters, s.now())
	if !ok {
		s.say(RoleAssistant, fmt.Sprintf("Could not apply %s: %v", out.Label, out.FirstError()), "")
		return
	}
	s.history.Record(entry)

	msg := fmt.Sprintf("Applied %s to %s.", out.Label, clips(out.SuccessCount()))
	if out.FailureCount() > 0 {
		msg += fmt.Sprintf(" %s failed: %v", clips(out.FailureCount()), out.FirstError())
	}
	s.say(RoleAssistant, msg, "")
	log.Info().
		Str("session", s.id).
		Str("entry", entry.ID).
		Str("action", entry.ActionName).
		Int("history", s.history.Len()).
		Msg("Edit recorded")
}

func (s *Session) undo(ctx context.Context) edit.UndoOutcome {
	u := s.history.Undo(ctx, s.host)
	if !u.NothingToUndo {
		metrics.New(metrics.Namespace).
			Dimension("Action", u.Entry.ActionName).
			Count("Undos").
			Metric("UndoItemsFailed", float64(len(u.Failed)), metrics.UnitCount).
			Flush()
	}
	switch {
	case u.NothingToUndo:
		s.say(RoleAssistant, "Nothing to undo.", "")
	case u.Undone():
		msg := fmt.Sprintf("Undid %s on %s.", u.Entry.Label, clips(len(u.Successful)))
		if len(u.Failed) > 0 {
			msg += fmt.Sprintf(" %s could not be restored: %v", clips(len(u.Failed)), u.Failed[0].Err)
		}
		s.say(RoleAssistant, msg, "")
	default:
		msg := "Could not undo " + u.Entry.Label
		if len(u.Failed) > 0 {
			msg += ": " + u.Failed[0].Err.Error()
		}
		s.say(RoleAssistant, msg, "")
	}
	return u
}

func (s *Session) redo() error {
	err := s.history.Redo()
	s.say(RoleAssistant, "Redo is not supported. Re-run the prompt to apply the edit again.", "")
	return err
}

func clips(n int) string {
	if n == 1 {
		return "1 clip"
	}
	return fmt.Sprintf("%d clips", n)
}

func errorMessage(res action.Result) string {
	if res.Message != "" {
		return res.Message
	}
	switch res.Error {
	case action.CodeAPIKeyMissing:
		return "No API key is configured for the AI provider. Add one to the backend's environment."
	case action.CodeNetworkError:
		return "Could not reach the backend. Make sure the backend is running."
	case action.CodeTimeout:
		return "The request timed out. Try again."
	case action.CodeNeedsSpecification:
		return "Could you be more specific about the edit you want?"
	default:
		return "The request could not be completed (" + res.Error + ")."
	}
}

// tracking reports an objectTracking step. Only the video-processing
// provider renders one; any other prompter leaves no output to point at.
func (s *Session) tracking(res action.Result) {
	if res.OutputPath == "" {
		s.say(RoleAssistant,
			"Object tracking needs the video-processing provider (AI_PROVIDER=colab). Send the clip with `chatcut media` instead.",
			action.CodeNeedsVideoProvider)
		return
	}
	s.say(RoleAssistant, "Processed video saved to "+res.OutputPath+".", "")
}
