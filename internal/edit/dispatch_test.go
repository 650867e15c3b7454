package edit_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/edit"
	"github.com/chatcut/chatcut/internal/timeline"
)

func newVideoTimeline(refs ...edit.ItemRef) *timeline.Timeline {
	tl := timeline.New()
	for i, ref := range refs {
		start := float64(i * 10)
		tl.AddClip(ref, string(ref)+".mp4", edit.KindVideo, start, start+10)
	}
	tl.Select(refs...)
	return tl
}

func scaleState(t *testing.T, tl *timeline.Timeline, ref edit.ItemRef) edit.ParamState {
	t.Helper()
	clip, ok := tl.Clip(ref)
	if !ok {
		t.Fatalf("clip %s missing", ref)
	}
	return clip.Components[edit.ComponentMotion][edit.ParamScale]
}

func TestDispatchBatchContinuesPastFailures(t *testing.T) {
	refs := []edit.ItemRef{"c1", "c2", "c3", "c4", "c5"}
	tl := newVideoTimeline(refs...)
	boom := errors.New("host refused")
	tl.FailOn("c2", boom)
	tl.FailOn("c4", boom)

	d := edit.NewDispatcher(tl)
	out := d.Dispatch(context.Background(), action.ZoomIn, map[string]any{"endScale": 120.0}, refs)

	if out.SuccessCount() != 3 || out.FailureCount() != 2 {
		t.Fatalf("got %d successful / %d failed, want 3 / 2", out.SuccessCount(), out.FailureCount())
	}
	wantOK := []edit.ItemRef{"c1", "c3", "c5"}
	if !reflect.DeepEqual(out.Successful, wantOK) {
		t.Errorf("Successful = %v, want %v", out.Successful, wantOK)
	}
	for _, f := range out.Failed {
		if !errors.Is(f.Err, boom) {
			t.Errorf("failure on %s: %v, want %v", f.Item, f.Err, boom)
		}
	}
	if !errors.Is(out.FirstError(), boom) {
		t.Errorf("FirstError = %v", out.FirstError())
	}
	for _, ref := range wantOK {
		if _, ok := out.Snapshots[ref]; !ok {
			t.Errorf("no snapshot for %s", ref)
		}
	}
	if _, ok := out.Snapshots["c2"]; ok {
		t.Error("failed item has a snapshot")
	}

	// Failed items are rolled back by the host transaction.
	if got := scaleState(t, tl, "c2"); len(got.Keyframes) != 0 {
		t.Errorf("c2 keyframes = %v, want none", got.Keyframes)
	}
	if got := len(tl.Transactions()); got != 3 {
		t.Errorf("committed transactions = %d, want 3", got)
	}
	for _, label := range tl.Transactions() {
		if label != edit.TransactionPrefix+"Zoom In" {
			t.Errorf("transaction label = %q", label)
		}
	}
}

func TestDispatchUnknownAction(t *testing.T) {
	tl := newVideoTimeline("c1", "c2")
	d := edit.NewDispatcher(tl)

	out := d.Dispatch(context.Background(), "teleport", nil, []edit.ItemRef{"c1", "c2"})
	if out.SuccessCount() != 0 || out.FailureCount() != 2 {
		t.Fatalf("got %d / %d", out.SuccessCount(), out.FailureCount())
	}
	if !errors.Is(out.FirstError(), edit.ErrUnknownAction) {
		t.Errorf("err = %v", out.FirstError())
	}
	if len(tl.Transactions()) != 0 {
		t.Error("unknown action touched the host")
	}

	out = d.Dispatch(context.Background(), "teleport", nil, nil)
	if out.FailureCount() != 1 {
		t.Errorf("empty item list: failures = %d, want 1", out.FailureCount())
	}
	if d.Supports("teleport") {
		t.Error("Supports(teleport) = true")
	}
	if !d.Supports(action.ApplyBlur) {
		t.Error("Supports(applyBlur) = false")
	}
}

func TestDispatchFilterRequiresName(t *testing.T) {
	tl := newVideoTimeline("c1")
	d := edit.NewDispatcher(tl)

	for _, name := range []string{action.ApplyFilter, action.ApplyAudioFilter} {
		out := d.Dispatch(context.Background(), name, map[string]any{}, []edit.ItemRef{"c1"})
		if !errors.Is(out.FirstError(), edit.ErrMissingParameter) {
			t.Errorf("%s: err = %v, want missing parameter", name, out.FirstError())
		}
	}
}

func TestDispatchZoom(t *testing.T) {
	tests := []struct {
		name   string
		action string
		params map[string]any
		want   []edit.Keyframe
	}{
		{
			name:   "zoom in defaults",
			action: action.ZoomIn,
			want:   []edit.Keyframe{{Time: 0, Value: 150}, {Time: 10, Value: 150}},
		},
		{
			name:   "zoom in animated",
			action: action.ZoomIn,
			params: map[string]any{"animated": true},
			want:   []edit.Keyframe{{Time: 0, Value: 100}, {Time: 10, Value: 150}},
		},
		{
			name:   "zoom out animated custom",
			action: action.ZoomOut,
			params: map[string]any{"animated": true, "startScale": 200.0, "endScale": 110.0},
			want:   []edit.Keyframe{{Time: 0, Value: 200}, {Time: 10, Value: 110}},
		},
		{
			name:   "zoom out defaults",
			action: action.ZoomOut,
			want:   []edit.Keyframe{{Time: 0, Value: 100}, {Time: 10, Value: 100}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newVideoTimeline("c1")
			out := edit.NewDispatcher(tl).Dispatch(context.Background(), tt.action, tt.params, []edit.ItemRef{"c1"})
			if out.FailureCount() != 0 {
				t.Fatalf("unexpected failure: %v", out.FirstError())
			}
			if got := scaleState(t, tl, "c1").Keyframes; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("keyframes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDispatchEffects(t *testing.T) {
	ctx := context.Background()
	tl := timeline.New()
	tl.AddClip("v", "v.mp4", edit.KindVideo, 0, 8)
	tl.AddClip("a", "a.wav", edit.KindAudio, 0, 8)
	d := edit.NewDispatcher(tl)

	out := d.Dispatch(ctx, action.ApplyFilter, map[string]any{"filterDisplayName": "Black & White"}, []edit.ItemRef{"v"})
	if out.FailureCount() != 0 {
		t.Fatalf("filter: %v", out.FirstError())
	}
	if out.Label != "Apply Filter (Black & White)" {
		t.Errorf("label = %q", out.Label)
	}

	if out := d.Dispatch(ctx, action.ApplyBlur, map[string]any{"blurriness": 30.0}, []edit.ItemRef{"v"}); out.FailureCount() != 0 {
		t.Fatalf("blur: %v", out.FirstError())
	}
	if out := d.Dispatch(ctx, action.AdjustVolume, map[string]any{"volumeDb": -6.0}, []edit.ItemRef{"a"}); out.FailureCount() != 0 {
		t.Fatalf("volume: %v", out.FirstError())
	}
	out = d.Dispatch(ctx, action.ApplyTransition, map[string]any{"transitionName": "Dip to Black", "duration": 2.0, "alignment": 7.0}, []edit.ItemRef{"v"})
	if out.FailureCount() != 0 {
		t.Fatalf("transition: %v", out.FirstError())
	}

	v, _ := tl.Clip("v")
	want := []string{"Black & White", edit.ComponentBlur, edit.ComponentMotion}
	if got := v.ComponentNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("components = %v, want %v", got, want)
	}
	if got := v.Components[edit.ComponentBlur][edit.ParamBlurriness].Value; got != 30 {
		t.Errorf("blurriness = %v, want 30", got)
	}
	tr := v.Transitions[true]
	if tr.Name != "Dip to Black" || tr.Duration != 2 || tr.Alignment != 1 {
		t.Errorf("transition = %+v", tr)
	}

	a, _ := tl.Clip("a")
	if got := a.Components[edit.ComponentVolume][edit.ParamLevel].Value; got != -6 {
		t.Errorf("level = %v, want -6", got)
	}
}

func TestDispatchRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name   string
		action string
		params map[string]any
		want   string
	}{
		{"negative scale", action.ZoomIn, map[string]any{"endScale": -5.0}, "scale"},
		{"zero duration", action.ApplyTransition, map[string]any{"duration": 0.0}, "duration"},
		{"negative blur", action.ApplyBlur, map[string]any{"blurriness": -1.0}, "blurriness"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newVideoTimeline("c1")
			out := edit.NewDispatcher(tl).Dispatch(context.Background(), tt.action, tt.params, []edit.ItemRef{"c1"})
			err := out.FirstError()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestDispatchDanglingItem(t *testing.T) {
	tl := newVideoTimeline("c1")
	out := edit.NewDispatcher(tl).Dispatch(context.Background(), action.ZoomIn, nil, []edit.ItemRef{"c1", "gone"})
	if out.SuccessCount() != 1 || !errors.Is(out.FirstError(), edit.ErrItemNotFound) {
		t.Errorf("got %d successful, err %v", out.SuccessCount(), out.FirstError())
	}
}
