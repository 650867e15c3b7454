package edit

import (
	"context"
	"fmt"
)

// Snapshot is the pre-mutation state of one item, sufficient to reverse the
// mutation.
type Snapshot interface {
	Restore(ctx context.Context, host Host, ref ItemRef) error
}

// KeyframeSnapshot holds a parameter's value and keyframes. Used for zoom.
type KeyframeSnapshot struct {
	Component string
	Param     string
	State     ParamState
}

func (s KeyframeSnapshot) Restore(ctx context.Context, host Host, ref ItemRef) error {
	return host.SetParamState(ctx, ref, s.Component, s.Param, s.State.Clone())
}

// ParamSnapshot holds a parameter value on a component that may have been
// added by the mutation. Used for blur and volume.
type ParamSnapshot struct {
	Component        string
	Param            string
	ComponentExisted bool
	State            ParamState
}

func (s ParamSnapshot) Restore(ctx context.Context, host Host, ref ItemRef) error {
	if !s.ComponentExisted {
		return host.RemoveEffectComponent(ctx, ref, s.Component)
	}
	return host.SetParamState(ctx, ref, s.Component, s.Param, s.State.Clone())
}

// ComponentSnapshot records whether a named effect was already present.
// Used for video and audio filters.
type ComponentSnapshot struct {
	Component string
	Existed   bool
}

func (s ComponentSnapshot) Restore(ctx context.Context, host Host, ref ItemRef) error {
	if s.Existed {
		return nil
	}
	return host.RemoveEffectComponent(ctx, ref, s.Component)
}

// TransitionSnapshot holds the transition previously on an edge, if any.
type TransitionSnapshot struct {
	AtStart  bool
	Previous *Transition
}

func (s TransitionSnapshot) Restore(ctx context.Context, host Host, ref ItemRef) error {
	if err := host.RemoveTransition(ctx, ref, s.AtStart); err != nil {
		return err
	}
	if s.Previous != nil {
		return host.AddTransition(ctx, ref, *s.Previous)
	}
	return nil
}

func captureKeyframes(ctx context.Context, host Host, ref ItemRef, component, param string) (Snapshot, error) {
	state, err := host.ParamState(ctx, ref, component, param)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", component, param, err)
	}
	return KeyframeSnapshot{Component: component, Param: param, State: state.Clone()}, nil
}

func captureParam(ctx context.Context, host Host, ref ItemRef, component, param string) (Snapshot, error) {
	existed, err := host.HasEffectComponent(ctx, ref, component)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", component, err)
	}
	snap := ParamSnapshot{Component: component, Param: param, ComponentExisted: existed}
	if existed {
		state, err := host.ParamState(ctx, ref, component, param)
		if err != nil {
			return nil, fmt.Errorf("read %s/%s: %w", component, param, err)
		}
		snap.State = state.Clone()
	}
	return snap, nil
}

func captureComponent(ctx context.Context, host Host, ref ItemRef, component string) (Snapshot, error) {
	existed, err := host.HasEffectComponent(ctx, ref, component)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", component, err)
	}
	return ComponentSnapshot{Component: component, Existed: existed}, nil
}

func captureTransition(ctx context.Context, host Host, ref ItemRef, atStart bool) (Snapshot, error) {
	prev, ok, err := host.TransitionAt(ctx, ref, atStart)
	if err != nil {
		return nil, fmt.Errorf("read transition: %w", err)
	}
	snap := TransitionSnapshot{AtStart: atStart}
	if ok {
		snap.Previous = &prev
	}
	return snap, nil
}
