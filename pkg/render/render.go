package render

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/messages.yaml
var templatesFS embed.FS

// MessageData is the value every catalog template is executed with.
type MessageData struct {
	ActorName    string
	SessionTitle string
	StartsAt     string
	Link         string
}

// Engine renders notification messages from the embedded catalog.
type Engine struct {
	templates *template.Template
}

// New initialises an Engine by parsing the embedded catalog.
func New() (*Engine, error) {
	raw, err := templatesFS.ReadFile("templates/messages.yaml")
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse builds an Engine from a YAML catalog mapping names to templates.
func Parse(catalog []byte) (*Engine, error) {
	var entries map[string]string
	if err := yaml.Unmarshal(catalog, &entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("empty catalog")
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	root := template.New("render").Option("missingkey=error")
	for _, name := range names {
		if _, err := root.New(name).Parse(entries[name]); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
	}
	return &Engine{templates: root}, nil
}

// Render executes the named template with the provided data and returns the rendered string.
func (e *Engine) Render(name string, data MessageData) (string, error) {
	if e == nil || e.templates == nil {
		return "", fmt.Errorf("nil engine")
	}
	if e.templates.Lookup(name) == nil {
		return "", fmt.Errorf("unknown message %q", name)
	}

	buf := bytes.NewBuffer(nil)
	if err := e.templates.ExecuteTemplate(buf, name, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
