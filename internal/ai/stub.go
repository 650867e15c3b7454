package ai

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// Stub is a deterministic provider that recognizes a fixed set of phrasings
// with regular expressions. It needs no credentials and makes no network
// calls.
type Stub struct{}

// NewStub returns the stub provider.
func NewStub() *Stub { return &Stub{} }

// Name returns "stub".
func (s *Stub) Name() string { return "stub" }

// IsConfigured always reports true.
func (s *Stub) IsConfigured() bool { return true }

// Ping always succeeds.
func (s *Stub) Ping(ctx context.Context) error { return nil }

const blackWhiteToken = "blackwhite"

var (
	clauseSplit = regexp.MustCompile(`\s*(?:,|;|\band then\b|\bthen\b|\band\b)\s*`)
	blackWhite  = regexp.MustCompile(`black\s*(?:and|&)\s*white|\bb\s*&\s*w\b|grayscale|greyscale|monochrome`)

	zoomRe     = regexp.MustCompile(`\b(?:zoom|scale|punch)\s*(in|out|up|down)\b`)
	percentRe  = regexp.MustCompile(`(?:by|to)\s+(\d+(?:\.\d+)?)\s*(?:%|percent)?`)
	animatedRe = regexp.MustCompile(`\b(?:slow(?:ly)?|gradual(?:ly)?|animat\w*|smooth(?:ly)?|over time)\b`)

	blurRe   = regexp.MustCompile(`\bblur\w*\b`)
	numberRe = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

	transitionRe = regexp.MustCompile(`\b(cross\s*dissolve|dissolve|dip to black|dip to white|fade)\b`)
	secondsRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:s|sec|secs|second|seconds)\b`)
	atEndRe      = regexp.MustCompile(`\b(?:at|to) the end\b|\bend of\b|\bfade out\b`)

	louderRe  = regexp.MustCompile(`\b(?:louder|boost|turn up|increase (?:the )?volume|raise (?:the )?volume|volume up)\b`)
	quieterRe = regexp.MustCompile(`\b(?:quieter|softer|turn down|decrease (?:the )?volume|lower (?:the )?volume|reduce (?:the )?volume|volume down)\b`)
	dbRe      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*db\b`)

	trackRe = regexp.MustCompile(`\b(?:track|follow)(?:ing)?\b(?:\s+(?:the\s+)?([a-z][a-z ]*))?`)

	namedFilterRe = regexp.MustCompile(`\b(?:add|apply|use|put)\s+([a-z][a-z0-9 ]*?)\s*\b(?:filter|effect)\b`)
	articleRe     = regexp.MustCompile(`^(?:(?:a|an|the|some|on)\s+)+`)
)

// audioFilters maps keywords to audio effect display names. Checked in order.
var audioFilters = []struct {
	re   *regexp.Regexp
	name string
}{
	{regexp.MustCompile(`\breverb\b`), "Reverb"},
	{regexp.MustCompile(`\b(?:denoise|de-noise|noise reduction|remove (?:the )?noise|background noise)\b`), "DeNoise"},
	{regexp.MustCompile(`\b(?:echo|delay)\b`), "Delay"},
	{regexp.MustCompile(`\b(?:eq|equali[sz]er|equali[sz]e)\b`), "Parametric Equalizer"},
}

// ProcessPrompt parses prompt clause by clause. Clauses joined by "and",
// "then" or commas become a multi-action result.
func (s *Stub) ProcessPrompt(ctx context.Context, prompt string, catalog action.Catalog, media []*filehandler.MediaFile) action.Result {
	return guard(s.Name(), func() action.Result {
		text := strings.ToLower(strings.TrimSpace(prompt))
		text = blackWhite.ReplaceAllString(text, blackWhiteToken)

		var steps []action.Step
		for _, clause := range clauseSplit.Split(text, -1) {
			clause = strings.TrimSpace(clause)
			if clause == "" {
				continue
			}
			st, ok := parseClause(clause)
			if !ok {
				log.Debug().Str("clause", clause).Msg("Stub provider ignored clause")
				continue
			}
			if !catalog.Has(st.Action) {
				continue
			}
			steps = append(steps, st)
		}

		switch len(steps) {
		case 0:
			return action.Failure(action.CodeNeedsSpecification,
				"I couldn't tell which edit you want. Try something like \"zoom in by 120%\" or \"add reverb\".")
		case 1:
			return action.Success(steps[0].Action, steps[0].Parameters, describeSteps(steps))
		default:
			return action.Result{Actions: steps, Message: describeSteps(steps)}
		}
	})
}

func parseClause(c string) (action.Step, bool) {
	for _, af := range audioFilters {
		if af.re.MatchString(c) {
			return step(action.ApplyAudioFilter, map[string]any{"filterDisplayName": af.name}), true
		}
	}

	if strings.Contains(c, blackWhiteToken) {
		return step(action.ApplyFilter, map[string]any{"filterDisplayName": "Black & White"}), true
	}

	if m := zoomRe.FindStringSubmatch(c); m != nil {
		name := action.ZoomIn
		if m[1] == "out" || m[1] == "down" {
			name = action.ZoomOut
		}
		params := map[string]any{}
		if p := percentRe.FindStringSubmatch(c); p != nil {
			params["endScale"] = mustFloat(p[1])
		}
		if animatedRe.MatchString(c) {
			params["animated"] = true
		}
		return step(name, params), true
	}

	if blurRe.MatchString(c) {
		params := map[string]any{}
		if n := numberRe.FindStringSubmatch(c); n != nil {
			params["blurriness"] = mustFloat(n[1])
		}
		return step(action.ApplyBlur, params), true
	}

	if m := transitionRe.FindStringSubmatch(c); m != nil {
		params := map[string]any{"transitionName": transitionName(m[1])}
		if d := secondsRe.FindStringSubmatch(c); d != nil {
			params["duration"] = mustFloat(d[1])
		}
		if atEndRe.MatchString(c) {
			params["applyToStart"] = false
		}
		return step(action.ApplyTransition, params), true
	}

	louder, quieter := louderRe.MatchString(c), quieterRe.MatchString(c)
	if louder || quieter {
		db := 3.0
		if m := dbRe.FindStringSubmatch(c); m != nil {
			db = mustFloat(m[1])
		}
		if quieter {
			db = -db
		}
		return step(action.AdjustVolume, map[string]any{"volumeDb": db}), true
	}

	if m := trackRe.FindStringSubmatch(c); m != nil {
		params := map[string]any{}
		if subject := strings.TrimSpace(m[1]); subject != "" {
			params["subject"] = subject
		}
		return step(action.ObjectTracking, params), true
	}

	// A filter with no name is left unmatched.
	if m := namedFilterRe.FindStringSubmatch(c); m != nil {
		name := strings.TrimSpace(articleRe.ReplaceAllString(m[1]+" ", ""))
		switch name {
		case "", "a", "an", "the", "some":
			return action.Step{}, false
		}
		return step(action.ApplyFilter, map[string]any{"filterDisplayName": titleCase(name)}), true
	}
	return action.Step{}, false
}

func step(name string, params map[string]any) action.Step {
	return action.Step{Action: name, Parameters: params}
}

func transitionName(match string) string {
	switch {
	case strings.HasPrefix(match, "dip to white"):
		return "Dip to White"
	case strings.HasPrefix(match, "dip to black"), match == "fade":
		return "Dip to Black"
	default:
		return "Cross Dissolve"
	}
}

func mustFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Answer replies with the first matching canned tip.
func (s *Stub) Answer(ctx context.Context, system string, history []Message) (string, error) {
	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			last = strings.ToLower(history[i].Content)
			break
		}
	}
	switch {
	case strings.Contains(last, "undo"):
		return "Type \"undo\" to reverse the most recent ChatCut edit. Each undo steps one edit further back.", nil
	case strings.Contains(last, "zoom"):
		return "Select clips on the timeline, then ask something like \"zoom in by 120%\" or \"slowly zoom out\".", nil
	case strings.Contains(last, "transition"):
		return "Ask for \"add a cross dissolve\" or \"dip to black at the end for 2 seconds\" with a clip selected.", nil
	default:
		return "Select one or more clips and describe the edit, for example \"add reverb\" or \"blur by 30\".", nil
	}
}
