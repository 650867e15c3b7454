// Package timeline is an in-memory editing host. It backs the interactive
// CLI and the tests for dispatch, undo and sessions.
package timeline

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/chatcut/chatcut/internal/edit"
)

// Clip is one track item.
type Clip struct {
	Ref   edit.ItemRef
	Name  string
	Kind  edit.ItemKind
	Start float64
	End   float64

	// Components holds each effect's parameters, keyed by component name.
	Components  map[string]map[string]edit.ParamState
	Transitions map[bool]edit.Transition
}

func (c *Clip) clone() *Clip {
	cp := *c
	cp.Components = make(map[string]map[string]edit.ParamState, len(c.Components))
	for name, params := range c.Components {
		ps := make(map[string]edit.ParamState, len(params))
		for k, v := range params {
			ps[k] = v.Clone()
		}
		cp.Components[name] = ps
	}
	cp.Transitions = make(map[bool]edit.Transition, len(c.Transitions))
	for k, v := range c.Transitions {
		cp.Transitions[k] = v
	}
	return &cp
}

// Timeline is a fake edit.Host. All methods are safe for concurrent use.
type Timeline struct {
	mu           sync.Mutex
	clips        map[edit.ItemRef]*Clip
	order        []edit.ItemRef
	selection    []edit.ItemRef
	failOn       map[edit.ItemRef]error
	transactions []string
	inTx         bool
}

// New returns an empty timeline.
func New() *Timeline {
	return &Timeline{
		clips:  map[edit.ItemRef]*Clip{},
		failOn: map[edit.ItemRef]error{},
	}
}

// NewDemo returns a timeline with three video clips and one audio clip, all
// selected.
func NewDemo() *Timeline {
	t := New()
	t.AddClip("v1", "Intro.mp4", edit.KindVideo, 0, 5)
	t.AddClip("v2", "Interview.mp4", edit.KindVideo, 5, 20)
	t.AddClip("v3", "Outro.mp4", edit.KindVideo, 20, 24)
	t.AddClip("a1", "Music.wav", edit.KindAudio, 0, 24)
	t.Select("v1", "v2", "v3", "a1")
	return t
}

// AddClip appends a clip. Video clips get a Motion component with Scale 100;
// audio clips get a Volume component with Level 0.
func (t *Timeline) AddClip(ref edit.ItemRef, name string, kind edit.ItemKind, start, end float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := &Clip{
		Ref:         ref,
		Name:        name,
		Kind:        kind,
		Start:       start,
		End:         end,
		Components:  map[string]map[string]edit.ParamState{},
		Transitions: map[bool]edit.Transition{},
	}
	switch kind {
	case edit.KindAudio:
		c.Components[edit.ComponentVolume] = map[string]edit.ParamState{edit.ParamLevel: {Value: 0}}
	default:
		c.Components[edit.ComponentMotion] = map[string]edit.ParamState{edit.ParamScale: {Value: 100}}
	}
	if _, exists := t.clips[ref]; !exists {
		t.order = append(t.order, ref)
	}
	t.clips[ref] = c
}

// RemoveClip deletes a clip, leaving any references to it dangling.
func (t *Timeline) RemoveClip(ref edit.ItemRef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.clips, ref)
	t.order = slices.DeleteFunc(t.order, func(r edit.ItemRef) bool { return r == ref })
}

// Select replaces the selection. Unknown refs are kept so dangling
// selections can be exercised.
func (t *Timeline) Select(refs ...edit.ItemRef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selection = append([]edit.ItemRef(nil), refs...)
}

// FailOn makes every mutation of ref return err. A nil err clears it.
func (t *Timeline) FailOn(ref edit.ItemRef, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.failOn, ref)
		return
	}
	t.failOn[ref] = err
}

// Clips returns copies of all clips in insertion order.
func (t *Timeline) Clips() []Clip {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Clip, 0, len(t.order))
	for _, ref := range t.order {
		out = append(out, *t.clips[ref].clone())
	}
	return out
}

// Clip returns a copy of one clip.
func (t *Timeline) Clip(ref edit.ItemRef) (Clip, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.clips[ref]
	if !ok {
		return Clip{}, false
	}
	return *c.clone(), true
}

// Transactions returns the labels of committed transactions, oldest first.
func (t *Timeline) Transactions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.transactions...)
}

// ComponentNames returns a clip's effect names, sorted.
func (c Clip) ComponentNames() []string {
	names := make([]string, 0, len(c.Components))
	for name := range c.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *Timeline) clip(ref edit.ItemRef) (*Clip, error) {
	c, ok := t.clips[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", edit.ErrItemNotFound, ref)
	}
	return c, nil
}

// mutable returns the clip for a mutation, honoring injected failures.
func (t *Timeline) mutable(ref edit.ItemRef) (*Clip, error) {
	if err, ok := t.failOn[ref]; ok {
		return nil, err
	}
	return t.clip(ref)
}

func (t *Timeline) SelectedItems(ctx context.Context) ([]edit.ItemRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]edit.ItemRef(nil), t.selection...), nil
}

func (t *Timeline) ItemInfo(ctx context.Context, ref edit.ItemRef) (edit.ItemInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, err := t.clip(ref)
	if err != nil {
		return edit.ItemInfo{}, err
	}
	return edit.ItemInfo{Ref: c.Ref, Name: c.Name, Kind: c.Kind, Start: c.Start, End: c.End}, nil
}

func (t *Timeline) ParamState(ctx context.Context, ref edit.ItemRef, component, param string) (edit.ParamState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, err := t.clip(ref)
	if err != nil {
		return edit.ParamState{}, err
	}
	params, ok := c.Components[component]
	if !ok {
		return edit.ParamState{}, fmt.Errorf("%w: %s on %s", edit.ErrComponentNotFound, component, ref)
	}
	return params[param].Clone(), nil
}

func (t *Timeline) ApplyKeyframe(ctx context.Context, ref edit.ItemRef, component, param string, kf edit.Keyframe) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	params, err := t.component(ref, component)
	if err != nil {
		return err
	}
	state := params[param]
	replaced := false
	for i, existing := range state.Keyframes {
		if existing.Time == kf.Time {
			state.Keyframes[i] = kf
			replaced = true
		}
	}
	if !replaced {
		state.Keyframes = append(state.Keyframes, kf)
		sort.Slice(state.Keyframes, func(i, j int) bool { return state.Keyframes[i].Time < state.Keyframes[j].Time })
	}
	params[param] = state
	return nil
}

func (t *Timeline) SetParamState(ctx context.Context, ref edit.ItemRef, component, param string, state edit.ParamState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	params, err := t.component(ref, component)
	if err != nil {
		return err
	}
	params[param] = state.Clone()
	return nil
}

func (t *Timeline) SetParameterValue(ctx context.Context, ref edit.ItemRef, component, param string, value float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	params, err := t.component(ref, component)
	if err != nil {
		return err
	}
	state := params[param]
	state.Value = value
	params[param] = state
	return nil
}

func (t *Timeline) component(ref edit.ItemRef, component string) (map[string]edit.ParamState, error) {
	c, err := t.mutable(ref)
	if err != nil {
		return nil, err
	}
	params, ok := c.Components[component]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", edit.ErrComponentNotFound, component, ref)
	}
	return params, nil
}

func (t *Timeline) HasEffectComponent(ctx context.Context, ref edit.ItemRef, name string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, err := t.clip(ref)
	if err != nil {
		return false, err
	}
	_, ok := c.Components[name]
	return ok, nil
}

func (t *Timeline) AppendEffectComponent(ctx context.Context, ref edit.ItemRef, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, err := t.mutable(ref)
	if err != nil {
		return err
	}
	if _, ok := c.Components[name]; !ok {
		c.Components[name] = map[string]edit.ParamState{}
	}
	return nil
}

func (t *Timeline) RemoveEffectComponent(ctx context.Context, ref edit.ItemRef, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, err := t.mutable(ref)
	if err != nil {
		return err
	}
	if _, ok := c.Components[name]; !ok {
		return fmt.Errorf("%w: %s on %s", edit.ErrComponentNotFound, name, ref)
	}
	delete(c.Components, name)
	return nil
}

func (t *Timeline) TransitionAt(ctx context.Context, ref edit.ItemRef, atStart bool) (edit.Transition, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, err := t.clip(ref)
	if err != nil {
		return edit.Transition{}, false, err
	}
	tr, ok := c.Transitions[atStart]
	return tr, ok, nil
}

func (t *Timeline) AddTransition(ctx context.Context, ref edit.ItemRef, tr edit.Transition) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, err := t.mutable(ref)
	if err != nil {
		return err
	}
	if tr.Duration > c.End-c.Start {
		return fmt.Errorf("transition of %.1fs is longer than clip %s", tr.Duration, ref)
	}
	c.Transitions[tr.AtStart] = tr
	return nil
}

func (t *Timeline) RemoveTransition(ctx context.Context, ref edit.ItemRef, atStart bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, err := t.mutable(ref)
	if err != nil {
		return err
	}
	delete(c.Transitions, atStart)
	return nil
}

// Transaction runs fn and rolls every clip back if fn fails. Nested
// transactions join the outer one.
func (t *Timeline) Transaction(ctx context.Context, label string, fn func() error) error {
	t.mu.Lock()
	if t.inTx {
		t.mu.Unlock()
		return fn()
	}
	t.inTx = true
	saved := make(map[edit.ItemRef]*Clip, len(t.clips))
	for ref, c := range t.clips {
		saved[ref] = c.clone()
	}
	t.mu.Unlock()

	err := fn()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.inTx = false
	if err != nil {
		t.clips = saved
		return err
	}
	t.transactions = append(t.transactions, label)
	return nil
}
