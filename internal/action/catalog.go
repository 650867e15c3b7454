package action

import (
	"fmt"
	"strings"
)

// Recognized action names.
const (
	ZoomIn           = "zoomIn"
	ZoomOut          = "zoomOut"
	ApplyFilter      = "applyFilter"
	ApplyTransition  = "applyTransition"
	ApplyBlur        = "applyBlur"
	AdjustVolume     = "adjustVolume"
	ApplyAudioFilter = "applyAudioFilter"
	ObjectTracking   = "objectTracking"
)

// Param describes one parameter an action accepts.
type Param struct {
	Name        string
	Type        string
	Description string
}

// Definition describes one recognized action.
type Definition struct {
	Name        string
	Description string
	Params      []Param
}

// Catalog is the ordered set of actions a provider may return.
type Catalog []Definition

// DefaultCatalog returns the actions the editing host understands.
func DefaultCatalog() Catalog {
	return Catalog{
		{
			Name:        ZoomIn,
			Description: "Scale the selected clips up (punch in).",
			Params: []Param{
				{"startScale", "number", "scale percent at clip start (default 100)"},
				{"endScale", "number", "scale percent at clip end (default 150)"},
				{"animated", "boolean", "animate from startScale to endScale (default false)"},
			},
		},
		{
			Name:        ZoomOut,
			Description: "Scale the selected clips down (pull out).",
			Params: []Param{
				{"startScale", "number", "scale percent at clip start (default 150)"},
				{"endScale", "number", "scale percent at clip end (default 100)"},
				{"animated", "boolean", "animate from startScale to endScale (default false)"},
			},
		},
		{
			Name:        ApplyFilter,
			Description: "Add a video effect such as Black & White or Lumetri Color.",
			Params: []Param{
				{"filterDisplayName", "string", "effect name as shown in the Effects panel"},
			},
		},
		{
			Name:        ApplyTransition,
			Description: "Add a video transition to the clip edge.",
			Params: []Param{
				{"transitionName", "string", "transition name (default Cross Dissolve)"},
				{"duration", "number", "seconds (default 1.0)"},
				{"alignment", "number", "0 start, 0.5 center, 1 end (default 0.5)"},
				{"applyToStart", "boolean", "true for the clip start, false for the end (default true)"},
			},
		},
		{
			Name:        ApplyBlur,
			Description: "Blur the selected clips with Gaussian Blur.",
			Params: []Param{
				{"blurriness", "number", "blur amount (default 50)"},
			},
		},
		{
			Name:        AdjustVolume,
			Description: "Raise or lower clip volume.",
			Params: []Param{
				{"volumeDb", "number", "change in decibels, negative to lower (default 3)"},
			},
		},
		{
			Name:        ApplyAudioFilter,
			Description: "Add an audio effect such as Reverb, DeNoise or Parametric Equalizer.",
			Params: []Param{
				{"filterDisplayName", "string", "audio effect name as shown in the Effects panel"},
			},
		},
		{
			Name:        ObjectTracking,
			Description: "Track and zoom on a subject in the source video (processed remotely).",
			Params: []Param{
				{"subject", "string", "what to track, e.g. the person"},
			},
		},
	}
}

// Names returns the action names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, d := range c {
		names[i] = d.Name
	}
	return names
}

// Has reports whether name is in the catalog.
func (c Catalog) Has(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Lookup returns the definition for name.
func (c Catalog) Lookup(name string) (Definition, bool) {
	for _, d := range c {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Describe renders the catalog as a bullet list for prompt templates.
func (c Catalog) Describe() string {
	var sb strings.Builder
	for _, d := range c {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", d.Name, d.Description))
		for _, p := range d.Params {
			sb.WriteString(fmt.Sprintf("    - %s (%s): %s\n", p.Name, p.Type, p.Description))
		}
	}
	return sb.String()
}
