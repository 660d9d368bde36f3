// Package chat holds the per-visitor chat view model: the transcript, the
// pending input and the loading flag. A Session renders itself through a
// Renderer after every change and reports failures through a Notifier.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"devchat/internal/domain"
	"devchat/internal/usecase"
)

const (
	GreetingID      = "greeting"
	GreetingMessage = "Hello! Ask me anything about my skills and projects."

	FailureTitle       = "Uh oh! Something went wrong."
	FailureDescription = "There was an error generating a response. Please try again."
)

// ErrBusy is returned by Submit while an earlier submission is in flight.
var ErrBusy = errors.New("chat: a response is already being generated")

// Flow is the response flow the session forwards questions to.
type Flow interface {
	GenerateResponse(ctx context.Context, in usecase.GenerateResponseInput) (usecase.GenerateResponseOutput, error)
}

// Notification is a transient, non-blocking message for the visitor.
type Notification struct {
	Title       string
	Description string
	Destructive bool
}

type Notifier interface {
	Notify(n Notification)
}

// View is a snapshot of the session handed to the Renderer. ScrollTo names
// the message that must be visible after rendering.
type View struct {
	Messages []domain.Message
	Input    string
	Loading  bool
	ScrollTo string
}

type Renderer interface {
	Render(v View)
}

type Session struct {
	flow     Flow
	notifier Notifier
	renderer Renderer
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex
	messages []domain.Message
	input    string
	loading  bool
}

type Option func(*Session)

func WithRenderer(r Renderer) Option {
	return func(s *Session) { s.renderer = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func withClock(now func() time.Time, newID func() string) Option {
	return func(s *Session) {
		s.now = now
		s.newID = newID
	}
}

// NewSession returns a session seeded with the greeting message.
func NewSession(flow Flow, notifier Notifier, opts ...Option) (*Session, error) {
	if flow == nil {
		return nil, errors.New("chat: flow must not be nil")
	}
	if notifier == nil {
		return nil, errors.New("chat: notifier must not be nil")
	}
	s := &Session{
		flow:     flow,
		notifier: notifier,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    newMessageID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.messages = []domain.Message{{
		ID:        GreetingID,
		Text:      GreetingMessage,
		IsUser:    false,
		CreatedAt: s.now(),
	}}
	return s, nil
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages...)
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetInput updates the pending input. It is ignored while loading, matching
// a disabled input field.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return
	}
	s.input = text
	view := s.viewLocked()
	s.mu.Unlock()
	s.render(view)
}

// Submit sends text to the flow. Blank text is a no-op. A failure is turned
// into a notification and never reaches the transcript; the loading flag is
// cleared on every path.
func (s *Session) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.appendLocked(text, true)
	s.input = ""
	s.loading = true
	view := s.viewLocked()
	s.mu.Unlock()
	s.render(view)

	out, err := s.ask(ctx, text)

	s.mu.Lock()
	if err == nil {
		s.appendLocked(out.Response, false)
	}
	s.loading = false
	view = s.viewLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("error generating response", "err", err, "code", usecase.CodeOf(err))
		s.notifier.Notify(Notification{
			Title:       FailureTitle,
			Description: FailureDescription,
			Destructive: true,
		})
	}
	s.render(view)
	return nil
}

// ask calls the flow and converts a panic into an error so the loading flag
// is always released.
func (s *Session) ask(ctx context.Context, question string) (out usecase.GenerateResponseOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("chat: flow panicked")
			s.logger.Error("flow panicked", "panic", r)
		}
	}()
	return s.flow.GenerateResponse(ctx, usecase.GenerateResponseInput{Question: question})
}

func (s *Session) appendLocked(text string, isUser bool) {
	s.messages = append(s.messages, domain.Message{
		ID:        s.newID(),
		Text:      text,
		IsUser:    isUser,
		CreatedAt: s.now(),
	})
}

func (s *Session) viewLocked() View {
	msgs := append([]domain.Message(nil), s.messages...)
	var scrollTo string
	if len(msgs) > 0 {
		scrollTo = msgs[len(msgs)-1].ID
	}
	return View{
		Messages: msgs,
		Input:    s.input,
		Loading:  s.loading,
		ScrollTo: scrollTo,
	}
}

func (s *Session) render(v View) {
	if s.renderer != nil {
		s.renderer.Render(v)
	}
}

// newMessageID returns a time-ordered UUIDv7 so ids follow creation order.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
