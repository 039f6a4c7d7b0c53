// Package view renders the activity board.
//
// Templates and static assets are embedded in the binary. All dynamic text goes
// through html/template, so activity names, descriptions, schedules, emails and
// server messages are always escaped.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/nomis52/activityboard/board"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// FormValues are the signup form fields echoed back into the page.
type FormValues struct {
	Email    string
	Activity string
}

// MessageView is a status message ready to render.
type MessageView struct {
	Text        string
	Kind        board.Kind
	RemainingMS int64
}

// NewMessageView returns the view of m at now, or nil when there is nothing to show.
func NewMessageView(m board.Message, now time.Time) *MessageView {
	if m.IsZero() || m.Expired(now) {
		return nil
	}
	return &MessageView{
		Text:        m.Text,
		Kind:        m.Kind,
		RemainingMS: m.Remaining(now).Milliseconds(),
	}
}

// PageData is the input of the board page and the activities fragment.
type PageData struct {
	Listing   board.Listing
	Form      FormValues
	Message   *MessageView
	CSRFField template.HTML
}

// ConfirmData is the input of the removal confirmation page.
type ConfirmData struct {
	Activity  string
	Email     string
	Prompt    string
	CSRFField template.HTML
}

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"placeholder": func() string { return board.PlaceholderOption },
	}).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Page renders the full board page.
func (r *Renderer) Page(w io.Writer, data PageData) error {
	return r.execute(w, "page", data)
}

// Activities renders only the contents of the activities list.
func (r *Renderer) Activities(w io.Writer, data PageData) error {
	return r.execute(w, "activities", data)
}

// Confirm renders the page asking whether to remove a participant.
func (r *Renderer) Confirm(w io.Writer, data ConfirmData) error {
	return r.execute(w, "confirm", data)
}

// execute renders into a buffer first so a failing template never leaves a
// partial page on w.
func (r *Renderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded stylesheet and script.
func Static() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// The directory is embedded, fs.Sub only fails on an invalid path.
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
