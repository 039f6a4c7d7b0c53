package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"github.com/nomis52/activityboard/board"
	"github.com/nomis52/activityboard/view"
)

const (
	formEmail     = "email"
	formActivity  = "activity"
	formConfirmed = "confirmed"
	confirmedYes  = "yes"
)

// PageHandler renders the board page with the pending status message.
type PageHandler struct {
	logger   *slog.Logger
	provider BoardProvider
	renderer *view.Renderer
	flashes  *FlashStore
	now      func() time.Time
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(logger *slog.Logger, provider BoardProvider, renderer *view.Renderer, flashes *FlashStore) *PageHandler {
	return &PageHandler{
		logger:   logger,
		provider: provider,
		renderer: renderer,
		flashes:  flashes,
		now:      time.Now,
	}
}

// ServeHTTP implements http.Handler.
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flash, ok, err := h.flashes.Pop(w, r)
	if err != nil {
		h.logger.Warn("failed to read status message", "error", err)
	}

	data := view.PageData{
		Listing:   h.provider.Board().Load(r.Context()),
		CSRFField: csrf.TemplateField(r),
	}
	if ok {
		data.Message = view.NewMessageView(flash.Message, h.now())
		data.Form = flash.Form
	}

	setHTMLHeaders(w)
	if err := h.renderer.Page(w, data); err != nil {
		h.logger.Error("failed to render page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// FragmentHandler renders only the activities list, for partial refreshes.
type FragmentHandler struct {
	logger   *slog.Logger
	provider BoardProvider
	renderer *view.Renderer
}

// NewFragmentHandler creates a new FragmentHandler.
func NewFragmentHandler(logger *slog.Logger, provider BoardProvider, renderer *view.Renderer) *FragmentHandler {
	return &FragmentHandler{
		logger:   logger,
		provider: provider,
		renderer: renderer,
	}
}

// ServeHTTP implements http.Handler.
func (h *FragmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data := view.PageData{
		Listing:   h.provider.Board().Load(r.Context()),
		CSRFField: csrf.TemplateField(r),
	}

	setHTMLHeaders(w)
	if err := h.renderer.Activities(w, data); err != nil {
		h.logger.Error("failed to render activities", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// SignupHandler submits the signup form and redirects back to the page.
type SignupHandler struct {
	logger   *slog.Logger
	provider BoardProvider
	flashes  *FlashStore
}

// NewSignupHandler creates a new SignupHandler.
func NewSignupHandler(logger *slog.Logger, provider BoardProvider, flashes *FlashStore) *SignupHandler {
	return &SignupHandler{
		logger:   logger,
		provider: provider,
		flashes:  flashes,
	}
}

// ServeHTTP implements http.Handler.
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue(formEmail))
	name := r.PostFormValue(formActivity)

	msg := h.provider.Board().SubmitSignup(r.Context(), email, name)

	flash := Flash{Message: msg}
	if msg.Kind == board.KindError {
		flash.Form = view.FormValues{Email: email, Activity: name}
	}
	if err := h.flashes.Add(w, r, flash); err != nil {
		h.logger.Error("failed to store status message", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// UnregisterHandler removes a participant once the removal is confirmed.
// Without confirmed=yes it renders a confirmation page instead.
type UnregisterHandler struct {
	logger   *slog.Logger
	provider BoardProvider
	renderer *view.Renderer
	flashes  *FlashStore
}

// NewUnregisterHandler creates a new UnregisterHandler.
func NewUnregisterHandler(logger *slog.Logger, provider BoardProvider, renderer *view.Renderer, flashes *FlashStore) *UnregisterHandler {
	return &UnregisterHandler{
		logger:   logger,
		provider: provider,
		renderer: renderer,
		flashes:  flashes,
	}
}

// ServeHTTP implements http.Handler.
func (h *UnregisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	name := r.PostFormValue(formActivity)
	email := r.PostFormValue(formEmail)

	if name == "" || email == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if r.PostFormValue(formConfirmed) != confirmedYes {
		setHTMLHeaders(w)
		err := h.renderer.Confirm(w, view.ConfirmData{
			Activity:  name,
			Email:     email,
			Prompt:    board.ConfirmPrompt(name, email),
			CSRFField: csrf.TemplateField(r),
		})
		if err != nil {
			h.logger.Error("failed to render confirmation", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	msg := h.provider.Board().RemoveParticipant(r.Context(), name, email)
	if err := h.flashes.Add(w, r, Flash{Message: msg}); err != nil {
		h.logger.Error("failed to store status message", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func setHTMLHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
}
