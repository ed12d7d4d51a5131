package service

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"
)

//go:embed guidelines.md.tmpl
var defaultGuidelines string

// GuidelineData is what a comment template can reference.
type GuidelineData struct {
	Number     int
	Title      string
	User       string
	Repository string
	URL        string
}

type GuidelineRenderer interface {
	Render(data GuidelineData) (string, error)
}

type templateRenderer struct {
	tmpl *template.Template
}

// NewGuidelineRenderer parses the template at path, or the built-in PR
// guidelines when path is empty.
func NewGuidelineRenderer(path string) (GuidelineRenderer, error) {
	if path == "" {
		return DefaultGuidelineRenderer(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading comment template: %w", err)
	}
	return ParseGuidelineTemplate(string(raw))
}

func ParseGuidelineTemplate(text string) (GuidelineRenderer, error) {
	tmpl, err := template.New("guidelines").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing comment template: %w", err)
	}
	return &templateRenderer{tmpl: tmpl}, nil
}

func DefaultGuidelineRenderer() GuidelineRenderer {
	return &templateRenderer{
		tmpl: template.Must(template.New("guidelines").Parse(defaultGuidelines)),
	}
}

func (r *templateRenderer) Render(data GuidelineData) (string, error) {
	var b strings.Builder
	if err := r.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering comment: %w", err)
	}
	return b.String(), nil
}
