// Package edit replays structured actions against a video-editing host and
// records what it changed so the change can be undone.
//
// The host is reached only through the Host interface. Every mutation runs
// inside a named host transaction, and every mutated item has a snapshot of
// its prior state captured before the mutation.
package edit

import (
	"context"
	"errors"
)

// ItemRef is an opaque reference to a timeline item.
type ItemRef string

// ItemKind distinguishes video from audio track items.
type ItemKind string

const (
	KindVideo ItemKind = "video"
	KindAudio ItemKind = "audio"
)

// ItemInfo describes a track item's placement on the timeline, in seconds.
type ItemInfo struct {
	Ref   ItemRef
	Name  string
	Kind  ItemKind
	Start float64
	End   float64
}

// Duration returns End - Start.
func (i ItemInfo) Duration() float64 { return i.End - i.Start }

// Keyframe is one time/value pair on a parameter, with Time relative to the
// item start.
type Keyframe struct {
	Time  float64
	Value float64
}

// ParamState is the full state of one effect parameter.
type ParamState struct {
	Value     float64
	Keyframes []Keyframe
}

// Clone returns a deep copy. A nil keyframe slice stays nil.
func (p ParamState) Clone() ParamState {
	if p.Keyframes != nil {
		p.Keyframes = append([]Keyframe(nil), p.Keyframes...)
	}
	return p
}

// Transition describes a transition on one edge of an item.
type Transition struct {
	Name string
	// Duration in seconds.
	Duration float64
	// Alignment: 0 start, 0.5 center, 1 end of the cut.
	Alignment float64
	AtStart   bool
}

// ErrItemNotFound is returned by hosts for dangling item references.
var ErrItemNotFound = errors.New("timeline item not found")

// ErrComponentNotFound is returned by hosts when an effect component is
// missing from an item.
var ErrComponentNotFound = errors.New("effect component not found")

// Host is the capability surface of the editing application.
type Host interface {
	SelectedItems(ctx context.Context) ([]ItemRef, error)
	ItemInfo(ctx context.Context, ref ItemRef) (ItemInfo, error)

	ParamState(ctx context.Context, ref ItemRef, component, param string) (ParamState, error)
	ApplyKeyframe(ctx context.Context, ref ItemRef, component, param string, kf Keyframe) error
	SetParamState(ctx context.Context, ref ItemRef, component, param string, state ParamState) error
	SetParameterValue(ctx context.Context, ref ItemRef, component, param string, value float64) error

	HasEffectComponent(ctx context.Context, ref ItemRef, name string) (bool, error)
	AppendEffectComponent(ctx context.Context, ref ItemRef, name string) error
	RemoveEffectComponent(ctx context.Context, ref ItemRef, name string) error

	// TransitionAt returns the transition on the given edge, if any.
	TransitionAt(ctx context.Context, ref ItemRef, atStart bool) (Transition, bool, error)
	AddTransition(ctx context.Context, ref ItemRef, t Transition) error
	RemoveTransition(ctx context.Context, ref ItemRef, atStart bool) error

	// Transaction groups the mutations made by fn under one undoable label
	// in the host.
	Transaction(ctx context.Context, label string, fn func() error) error
}

// Effect component and parameter names used by the dispatcher.
const (
	ComponentMotion   = "Motion"
	ParamScale        = "Scale"
	ComponentBlur     = "Gaussian Blur"
	ParamBlurriness   = "Blurriness"
	ComponentVolume   = "Volume"
	ParamLevel        = "Level"
	DefaultTransition = "Cross Dissolve"
)
