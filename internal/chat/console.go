package chat

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// spinnerFrames follows the dot spinner used by bubbles.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const clearLine = "\r\x1b[2K"

type consoleStyles struct {
	userPrompt string
	botPrompt  string
	failMark   string
	infoMark   string
	title      lipgloss.Style
	dim        lipgloss.Style
	spinner    lipgloss.Style
}

func newConsoleStyles(r *lipgloss.Renderer) consoleStyles {
	return consoleStyles{
		userPrompt: r.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> "),
		botPrompt:  r.NewStyle().Foreground(lipgloss.Color("245")).Render("bot> "),
		failMark:   r.NewStyle().Foreground(lipgloss.Color("196")).Render("✗"),
		infoMark:   r.NewStyle().Foreground(lipgloss.Color("82")).Render("●"),
		title:      r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		dim:        r.NewStyle().Foreground(lipgloss.Color("245")),
		spinner:    r.NewStyle().Foreground(lipgloss.Color("82")),
	}
}

// Console renders a session as an append-only terminal transcript. Only
// messages not printed yet are written, so the newest entry is always the
// last line on screen. Replies are rendered as markdown and a spinner runs
// while a response is pending.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	printed  map[string]bool
	profile  *termenv.Profile
	styles   consoleStyles
	markdown *glamour.TermRenderer
	interval time.Duration
	spinning chan struct{}
}

type ConsoleOption func(*Console)

// WithColorProfile forces the color profile instead of detecting it from
// the writer.
func WithColorProfile(p termenv.Profile) ConsoleOption {
	return func(c *Console) { c.profile = &p }
}

func withSpinnerInterval(d time.Duration) ConsoleOption {
	return func(c *Console) { c.interval = d }
}

func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{
		w:        w,
		printed:  make(map[string]bool),
		interval: 80 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}

	r := lipgloss.NewRenderer(w)
	if c.profile != nil {
		r.SetColorProfile(*c.profile)
	}
	c.styles = newConsoleStyles(r)

	// Without a markdown renderer replies are printed as plain text.
	if tr, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80)); err == nil {
		c.markdown = tr
	}
	return c
}

// Prompt is the styled input prompt.
func (c *Console) Prompt() string {
	return c.styles.userPrompt
}

// Hint prints a dimmed line, used for usage hints.
func (c *Console) Hint(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, c.styles.dim.Render(text))
}

func (c *Console) Render(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range v.Messages {
		if c.printed[m.ID] {
			continue
		}
		c.printed[m.ID] = true
		if m.IsUser {
			// The terminal already echoed what the visitor typed.
			continue
		}
		c.stopSpinnerLocked()
		fmt.Fprintf(c.w, "%s%s\n", c.styles.botPrompt, c.renderMarkdown(m.Text))
	}

	if !v.Loading {
		c.stopSpinnerLocked()
		return
	}
	if c.spinning == nil {
		c.spinning = make(chan struct{})
		c.writeFrameLocked(0)
		go c.spin(c.spinning)
	}
}

func (c *Console) Notify(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopSpinnerLocked()

	if n.Destructive {
		fmt.Fprintf(c.w, "%s %s %s\n", c.styles.failMark, c.styles.title.Render(n.Title), n.Description)
		return
	}
	fmt.Fprintf(c.w, "%s %s %s\n", c.styles.infoMark, n.Title, c.styles.dim.Render(n.Description))
}

// Close stops a running spinner.
func (c *Console) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopSpinnerLocked()
}

func (c *Console) spin(done <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for frame := 1; ; frame++ {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		select {
		case <-done:
		default:
			c.writeFrameLocked(frame)
		}
		c.mu.Unlock()
	}
}

func (c *Console) writeFrameLocked(frame int) {
	fmt.Fprintf(c.w, "\r%s%s %s",
		c.styles.botPrompt,
		c.styles.spinner.Render(spinnerFrames[frame%len(spinnerFrames)]),
		c.styles.dim.Render("Typing..."),
	)
}

func (c *Console) stopSpinnerLocked() {
	if c.spinning == nil {
		return
	}
	close(c.spinning)
	c.spinning = nil
	fmt.Fprint(c.w, clearLine)
}

// renderMarkdown renders text with glamour and falls back to the raw text,
// indented under the prompt, when rendering fails.
func (c *Console) renderMarkdown(text string) string {
	if c.markdown != nil {
		if out, err := c.markdown.Render(text); err == nil {
			return "\n" + strings.Trim(out, "\n")
		}
	}
	return indent(text)
}

func indent(s string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n     ")
}
