// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time so the server binary is self-contained.
package assets

import (
	"bytes"
	_ "embed"
	"text/template"
)

// HelpSystemPrompt frames the editing-help question answering flow.
//
//go:embed prompts/help-system.txt
var HelpSystemPrompt string

//go:embed prompts/action-system.txt
var actionSystemTemplate string

//go:embed prompts/media-context.txt
var mediaContextTemplate string

// template.Must panics on malformed templates, surfacing mistakes at startup.
var (
	actionSystemTmpl = template.Must(template.New("action-system").Parse(actionSystemTemplate))
	mediaContextTmpl = template.Must(template.New("media-context").Parse(mediaContextTemplate))
)

// ActionPromptData is injected into the action system prompt.
type ActionPromptData struct {
	// Catalog is the rendered list of actions the provider may choose from.
	Catalog string
}

// MediaFileData describes one attached file in the media context block.
type MediaFileData struct {
	Name     string
	MIMEType string
	SizeMB   string
	Metadata string
}

// MediaContextData is injected into the media context template.
type MediaContextData struct {
	Count int
	Files []MediaFileData
}

// RenderActionSystemPrompt renders the system instruction that constrains
// a provider to the given action catalog.
func RenderActionSystemPrompt(catalog string) string {
	return render(actionSystemTmpl, ActionPromptData{Catalog: catalog})
}

// RenderMediaContext renders the block describing attached media files.
func RenderMediaContext(files []MediaFileData) string {
	return render(mediaContextTmpl, MediaContextData{Count: len(files), Files: files})
}

func render(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	// Execution errors are not expected with these templates; return
	// whatever was rendered.
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}
