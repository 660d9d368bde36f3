package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"devchat/internal/domain"
	"devchat/internal/usecase"
)

type stubFlow struct {
	out     usecase.GenerateResponseOutput
	err     error
	panics  bool
	calls   []usecase.GenerateResponseInput
	release chan struct{}
	entered chan struct{}
}

func (f *stubFlow) GenerateResponse(_ context.Context, in usecase.GenerateResponseInput) (usecase.GenerateResponseOutput, error) {
	f.calls = append(f.calls, in)
	if f.entered != nil {
		close(f.entered)
	}
	if f.release != nil {
		<-f.release
	}
	if f.panics {
		panic("boom")
	}
	return f.out, f.err
}

type recordingNotifier struct {
	got []Notification
}

func (n *recordingNotifier) Notify(x Notification) { n.got = append(n.got, x) }

type recordingRenderer struct {
	mu    sync.Mutex
	views []View
}

func (r *recordingRenderer) Render(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recordingRenderer) last() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views[len(r.views)-1]
}

func fixedClock() Option {
	n := 0
	return withClock(
		func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
		func() string { n++; return fmt.Sprintf("msg-%d", n) },
	)
}

func quietLogger() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestSession(t *testing.T, flow Flow, opts ...Option) (*Session, *recordingNotifier, *recordingRenderer) {
	t.Helper()
	n := &recordingNotifier{}
	r := &recordingRenderer{}
	s, err := NewSession(flow, n, append([]Option{WithRenderer(r), fixedClock(), quietLogger()}, opts...)...)
	require.NoError(t, err)
	return s, n, r
}

func TestNewSession_ValidatesDependencies(t *testing.T) {
	_, err := NewSession(nil, &recordingNotifier{})
	require.Error(t, err)

	_, err = NewSession(&stubFlow{}, nil)
	require.Error(t, err)
}

func TestNewSession_SeedsGreeting(t *testing.T) {
	s, _, _ := newTestSession(t, &stubFlow{})
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, GreetingID, msgs[0].ID)
	require.Equal(t, GreetingMessage, msgs[0].Text)
	require.False(t, msgs[0].IsUser)
	require.False(t, s.Loading())
}

func TestSubmit_BlankIsNoop(t *testing.T) {
	flow := &stubFlow{}
	s, n, r := newTestSession(t, flow)

	for _, text := range []string{"", "   ", "\n\t "} {
		require.NoError(t, s.Submit(context.Background(), text))
	}
	require.Len(t, s.Messages(), 1)
	require.False(t, s.Loading())
	require.Empty(t, flow.calls)
	require.Empty(t, n.got)
	require.Empty(t, r.views)
}

func TestSubmit_Success(t *testing.T) {
	flow := &stubFlow{out: usecase.GenerateResponseOutput{Response: "I've built a Quran Education LMS..."}}
	s, n, r := newTestSession(t, flow)
	s.SetInput("What projects have you built?")

	require.NoError(t, s.Submit(context.Background(), "What projects have you built?"))

	require.Equal(t, []usecase.GenerateResponseInput{{Question: "What projects have you built?"}}, flow.calls)
	msgs := s.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, domain.Message{ID: "msg-1", Text: "What projects have you built?", IsUser: true, CreatedAt: msgs[1].CreatedAt}, msgs[1])
	require.Equal(t, domain.Message{ID: "msg-2", Text: "I've built a Quran Education LMS...", IsUser: false, CreatedAt: msgs[2].CreatedAt}, msgs[2])
	require.False(t, s.Loading())
	require.Empty(t, s.Input())
	require.Empty(t, n.got)

	last := r.last()
	require.False(t, last.Loading)
	require.Equal(t, "msg-2", last.ScrollTo)
}

func TestSubmit_KeepsRawText(t *testing.T) {
	flow := &stubFlow{out: usecase.GenerateResponseOutput{Response: "ok"}}
	s, _, _ := newTestSession(t, flow)

	require.NoError(t, s.Submit(context.Background(), "  padded question  "))
	require.Equal(t, "  padded question  ", flow.calls[0].Question)
	require.Equal(t, "  padded question  ", s.Messages()[1].Text)
}

func TestSubmit_Failure(t *testing.T) {
	flow := &stubFlow{err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "backend_error", Err: errors.New("network down")}}
	s, n, r := newTestSession(t, flow)

	require.NoError(t, s.Submit(context.Background(), "What do you do?"))

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	require.True(t, msgs[1].IsUser)
	require.Equal(t, "What do you do?", msgs[1].Text)
	require.False(t, s.Loading())
	require.Equal(t, []Notification{{Title: FailureTitle, Description: FailureDescription, Destructive: true}}, n.got)
	require.False(t, r.last().Loading)
	require.Equal(t, "msg-1", r.last().ScrollTo)
}

func TestSubmit_FlowPanicStillClearsLoading(t *testing.T) {
	s, n, _ := newTestSession(t, &stubFlow{panics: true})

	require.NoError(t, s.Submit(context.Background(), "Hi"))
	require.False(t, s.Loading())
	require.Len(t, s.Messages(), 2)
	require.Len(t, n.got, 1)
}

func TestSubmit_LoadingStateVisibleAndReentryRejected(t *testing.T) {
	flow := &stubFlow{
		out:     usecase.GenerateResponseOutput{Response: "done"},
		release: make(chan struct{}),
		entered: make(chan struct{}),
	}
	s, _, r := newTestSession(t, flow)
	s.SetInput("first")

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), "first") }()
	<-flow.entered

	require.True(t, s.Loading())
	require.Empty(t, s.Input())
	loadingView := r.last()
	require.True(t, loadingView.Loading)
	require.Len(t, loadingView.Messages, 2)

	require.ErrorIs(t, s.Submit(context.Background(), "second"), ErrBusy)
	s.SetInput("typed while loading")
	require.Empty(t, s.Input())

	close(flow.release)
	require.NoError(t, <-done)

	require.False(t, s.Loading())
	msgs := s.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, "done", msgs[2].Text)
	require.Len(t, flow.calls, 1)
}

func TestSubmit_SequentialTurnsKeepOrder(t *testing.T) {
	flow := &stubFlow{out: usecase.GenerateResponseOutput{Response: "answer"}}
	s, _, _ := newTestSession(t, flow)

	require.NoError(t, s.Submit(context.Background(), "one"))
	require.NoError(t, s.Submit(context.Background(), "two"))

	var texts []string
	for _, m := range s.Messages() {
		texts = append(texts, m.Text)
	}
	require.Equal(t, []string{GreetingMessage, "one", "answer", "two", "answer"}, texts)
}

func TestMessages_ReturnsCopy(t *testing.T) {
	s, _, _ := newTestSession(t, &stubFlow{})
	msgs := s.Messages()
	msgs[0].Text = "mutated"
	require.Equal(t, GreetingMessage, s.Messages()[0].Text)
}

func TestNewMessageID_IsTimeOrdered(t *testing.T) {
	a := newMessageID()
	time.Sleep(2 * time.Millisecond)
	b := newMessageID()
	require.Less(t, a, b)
}
