package message

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	xmessage "golang.org/x/text/message"
)

//go:embed templates/event.tmpl
var templates embed.FS

// Message is a rendered notification ready for delivery.
type Message struct {
	MessageID string
	Content   string
	Username  string
	AvatarURL string
}

// Renderer renders notifications with a text template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the template at path, or the built-in one when path is empty.
// The template gets a Notification and the functions t (translate) and join.
func NewRenderer(path string, printer *xmessage.Printer) (*Renderer, error) {
	funcs := template.FuncMap{
		"t":    func(key string) string { return printer.Sprintf(key) },
		"join": strings.Join,
	}

	var (
		name string
		text []byte
		err  error
	)
	if path == "" {
		name = "event.tmpl"
		text, err = templates.ReadFile("templates/event.tmpl")
	} else {
		name = filepath.Base(path)
		text, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(text))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render formats n into a message posted as its persona.
func (r *Renderer) Render(n Notification) (Message, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, n); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", n.Event.MessageID, err)
	}
	return Message{
		MessageID: n.Event.MessageID,
		Content:   strings.TrimSpace(buf.String()),
		Username:  n.Persona.Name,
		AvatarURL: n.Persona.Avatar,
	}, nil
}
