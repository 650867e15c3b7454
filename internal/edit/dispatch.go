package edit

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/rs/zerolog/log"
)

// TransactionPrefix labels every host transaction opened by the dispatcher.
const TransactionPrefix = "ChatCut: "

// ErrUnknownAction is reported per item for names outside the action table.
var ErrUnknownAction = errors.New("unknown action")

// ErrMissingParameter is reported when a required parameter is absent.
var ErrMissingParameter = errors.New("missing required parameter")

// Failure is one item that could not be edited.
type Failure struct {
	Item ItemRef
	Err  error
}

// Outcome is the per-item result of one dispatch.
type Outcome struct {
	Action     string
	Label      string
	Successful []ItemRef
	Failed     []Failure
	// Snapshots holds the pre-mutation state of every successful item.
	Snapshots map[ItemRef]Snapshot
}

// SuccessCount returns the number of items edited.
func (o Outcome) SuccessCount() int { return len(o.Successful) }

// FailureCount returns the number of items that failed.
func (o Outcome) FailureCount() int { return len(o.Failed) }

// FirstError returns the first per-item error, or nil.
func (o Outcome) FirstError() error {
	if len(o.Failed) == 0 {
		return nil
	}
	return o.Failed[0].Err
}

type handler struct {
	label    func(params map[string]any) string
	validate func(params map[string]any) error
	capture  func(ctx context.Context, host Host, ref ItemRef, params map[string]any) (Snapshot, error)
	apply    func(ctx context.Context, host Host, info ItemInfo, params map[string]any) error
}

// Dispatcher applies actions to host items.
type Dispatcher struct {
	host     Host
	handlers map[string]handler
}

// NewDispatcher creates a dispatcher bound to host.
func NewDispatcher(host Host) *Dispatcher {
	return &Dispatcher{host: host, handlers: handlers()}
}

// Supports reports whether name is in the action table.
func (d *Dispatcher) Supports(name string) bool {
	_, ok := d.handlers[name]
	return ok
}

// Label returns the human-readable name used for transactions and history.
func (d *Dispatcher) Label(name string, params map[string]any) string {
	if h, ok := d.handlers[name]; ok {
		return h.label(params)
	}
	return name
}

// Dispatch applies action name to each item in order. A failure on one item
// never stops the others. An unknown action fails every item (at least one)
// without touching the host.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params map[string]any, items []ItemRef) Outcome {
	if params == nil {
		params = map[string]any{}
	}
	out := Outcome{Action: name, Snapshots: map[ItemRef]Snapshot{}}

	h, ok := d.handlers[name]
	if !ok {
		out.Label = name
		err := fmt.Errorf("%w: %q", ErrUnknownAction, name)
		if len(items) == 0 {
			out.Failed = append(out.Failed, Failure{Err: err})
		}
		for _, ref := range items {
			out.Failed = append(out.Failed, Failure{Item: ref, Err: err})
		}
		log.Warn().Str("action", name).Int("items", len(items)).Msg("Dispatch of unknown action")
		return out
	}
	out.Label = h.label(params)

	for _, ref := range items {
		snap, err := d.applyOne(ctx, h, out.Label, ref, params)
		if err != nil {
			log.Warn().Err(err).Str("action", name).Str("item", string(ref)).Msg("Action failed on item")
			out.Failed = append(out.Failed, Failure{Item: ref, Err: err})
			continue
		}
		out.Successful = append(out.Successful, ref)
		out.Snapshots[ref] = snap
	}

	log.Info().
		Str("action", name).
		Int("successful", out.SuccessCount()).
		Int("failed", out.FailureCount()).
		Msg("Action dispatched")
	return out
}

func (d *Dispatcher) applyOne(ctx context.Context, h handler, label string, ref ItemRef, params map[string]any) (Snapshot, error) {
	info, err := d.host.ItemInfo(ctx, ref)
	if err != nil {
		return nil, err
	}
	info.Ref = ref
	if h.validate != nil {
		if err := h.validate(params); err != nil {
			return nil, err
		}
	}
	snap, err := h.capture(ctx, d.host, ref, params)
	if err != nil {
		return nil, fmt.Errorf("capture previous state: %w", err)
	}
	err = d.host.Transaction(ctx, TransactionPrefix+label, func() error {
		return h.apply(ctx, d.host, info, params)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func handlers() map[string]handler {
	return map[string]handler{
		action.ZoomIn:           zoomHandler("Zoom In", 100, 150),
		action.ZoomOut:          zoomHandler("Zoom Out", 150, 100),
		action.ApplyFilter:      filterHandler("Apply Filter"),
		action.ApplyAudioFilter: filterHandler("Apply Audio Filter"),
		action.ApplyTransition:  transitionHandler(),
		action.ApplyBlur:        blurHandler(),
		action.AdjustVolume:     volumeHandler(),
	}
}

func fixedLabel(s string) func(map[string]any) string {
	return func(map[string]any) string { return s }
}

func zoomHandler(label string, defStart, defEnd float64) handler {
	return handler{
		label: fixedLabel(label),
		validate: func(params map[string]any) error {
			if action.Float(params, "startScale", defStart) <= 0 || action.Float(params, "endScale", defEnd) <= 0 {
				return errors.New("scale must be positive")
			}
			return nil
		},
		capture: func(ctx context.Context, host Host, ref ItemRef, _ map[string]any) (Snapshot, error) {
			return captureKeyframes(ctx, host, ref, ComponentMotion, ParamScale)
		},
		apply: func(ctx context.Context, host Host, info ItemInfo, params map[string]any) error {
			start := action.Float(params, "startScale", defStart)
			end := action.Float(params, "endScale", defEnd)
			if !action.Bool(params, "animated", false) {
				start = end
			}
			if err := host.ApplyKeyframe(ctx, info.Ref, ComponentMotion, ParamScale, Keyframe{Time: 0, Value: start}); err != nil {
				return err
			}
			return host.ApplyKeyframe(ctx, info.Ref, ComponentMotion, ParamScale, Keyframe{Time: info.Duration(), Value: end})
		},
	}
}

func filterHandler(label string) handler {
	return handler{
		label: func(params map[string]any) string {
			if name := action.String(params, "filterDisplayName", ""); name != "" {
				return label + " (" + name + ")"
			}
			return label
		},
		validate: func(params map[string]any) error {
			if action.String(params, "filterDisplayName", "") == "" {
				return fmt.Errorf("%w: filterDisplayName", ErrMissingParameter)
			}
			return nil
		},
		capture: func(ctx context.Context, host Host, ref ItemRef, params map[string]any) (Snapshot, error) {
			return captureComponent(ctx, host, ref, action.String(params, "filterDisplayName", ""))
		},
		apply: func(ctx context.Context, host Host, info ItemInfo, params map[string]any) error {
			name := action.String(params, "filterDisplayName", "")
			exists, err := host.HasEffectComponent(ctx, info.Ref, name)
			if err != nil || exists {
				return err
			}
			return host.AppendEffectComponent(ctx, info.Ref, name)
		},
	}
}

func transitionHandler() handler {
	return handler{
		label: func(params map[string]any) string {
			return "Apply Transition (" + action.String(params, "transitionName", DefaultTransition) + ")"
		},
		validate: func(params map[string]any) error {
			if action.Float(params, "duration", 1.0) <= 0 {
				return errors.New("transition duration must be positive")
			}
			return nil
		},
		capture: func(ctx context.Context, host Host, ref ItemRef, params map[string]any) (Snapshot, error) {
			return captureTransition(ctx, host, ref, action.Bool(params, "applyToStart", true))
		},
		apply: func(ctx context.Context, host Host, info ItemInfo, params map[string]any) error {
			alignment := action.Float(params, "alignment", 0.5)
			alignment = min(max(alignment, 0), 1)
			return host.AddTransition(ctx, info.Ref, Transition{
				Name:      action.String(params, "transitionName", DefaultTransition),
				Duration:  action.Float(params, "duration", 1.0),
				Alignment: alignment,
				AtStart:   action.Bool(params, "applyToStart", true),
			})
		},
	}
}

// ensureComponent appends component when missing and reports whether it
// was already present.
func ensureComponent(ctx context.Context, host Host, ref ItemRef, component string) (bool, error) {
	exists, err := host.HasEffectComponent(ctx, ref, component)
	if err != nil {
		return false, err
	}
	if !exists {
		if err := host.AppendEffectComponent(ctx, ref, component); err != nil {
			return false, err
		}
	}
	return exists, nil
}

func blurHandler() handler {
	return handler{
		label: fixedLabel("Apply Blur"),
		validate: func(params map[string]any) error {
			if action.Float(params, "blurriness", 50) < 0 {
				return errors.New("blurriness must not be negative")
			}
			return nil
		},
		capture: func(ctx context.Context, host Host, ref ItemRef, _ map[string]any) (Snapshot, error) {
			return captureParam(ctx, host, ref, ComponentBlur, ParamBlurriness)
		},
		apply: func(ctx context.Context, host Host, info ItemInfo, params map[string]any) error {
			if _, err := ensureComponent(ctx, host, info.Ref, ComponentBlur); err != nil {
				return err
			}
			return host.SetParameterValue(ctx, info.Ref, ComponentBlur, ParamBlurriness, action.Float(params, "blurriness", 50))
		},
	}
}

func volumeHandler() handler {
	return handler{
		label: func(params map[string]any) string {
			db := action.Float(params, "volumeDb", 3)
			return fmt.Sprintf("Adjust Volume (%+g dB)", db)
		},
		capture: func(ctx context.Context, host Host, ref ItemRef, _ map[string]any) (Snapshot, error) {
			return captureParam(ctx, host, ref, ComponentVolume, ParamLevel)
		},
		apply: func(ctx context.Context, host Host, info ItemInfo, params map[string]any) error {
			existed, err := ensureComponent(ctx, host, info.Ref, ComponentVolume)
			if err != nil {
				return err
			}
			current := 0.0
			if existed {
				state, err := host.ParamState(ctx, info.Ref, ComponentVolume, ParamLevel)
				if err != nil {
					return err
				}
				current = state.Value
			}
			return host.SetParameterValue(ctx, info.Ref, ComponentVolume, ParamLevel, current+action.Float(params, "volumeDb", 3))
		},
	}
}
