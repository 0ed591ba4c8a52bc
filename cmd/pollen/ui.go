package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/germanamz/pollen/pkg/modeladapter/usage"
)

// Terminal palette.
var (
	colorMuted   = lipgloss.AdaptiveColor{Light: "#656d76", Dark: "#8b949e"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#58a6ff"}
	colorReply   = lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"}
	colorError   = lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"}
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	replyStyle  = lipgloss.NewStyle().Foreground(colorReply)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)
	dimStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	visionStyle = lipgloss.NewStyle().Foreground(colorSuccess).Padding(0, 1)
)

// defaultWidth caps markdown word wrapping.
const defaultWidth = 100

// ui writes prompts and replies to the terminal. Replies are rendered as
// markdown only when the output is a terminal.
type ui struct {
	out io.Writer
	md  *glamour.TermRenderer
}

func newUI(out io.Writer, plain bool) *ui {
	u := &ui{out: out}
	if plain {
		return u
	}

	width, ok := terminalWidth(out)
	if !ok {
		return u
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		u.md = r
	}

	return u
}

// terminalWidth reports the width of w when w is a terminal.
func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return 0, false
	}

	fd := int(f.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return 0, false
	}

	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultWidth, true
	}

	return min(width, defaultWidth), true
}

func (u *ui) println(s string) {
	fmt.Fprintln(u.out, s)
}

func (u *ui) notice(s string) {
	u.println(dimStyle.Render(s))
}

func (u *ui) prompt() {
	fmt.Fprint(u.out, promptStyle.Render("Prompt:")+" ")
}

func (u *ui) reply(text string) {
	if u.md != nil {
		if out, err := u.md.Render(text); err == nil {
			u.println(strings.TrimRight(out, "\n"))
			u.println("")
			return
		}
	}

	u.println(replyStyle.Render("Response: " + text))
	u.println("")
}

func (u *ui) failure(msg string) {
	u.println(errorStyle.Render(msg))
	u.println("")
}

func (u *ui) usage(t *usage.Tracker) {
	if t.Requests() == 0 {
		return
	}

	total := t.Total()
	u.notice(fmt.Sprintf("%d requests, %s tokens (%s prompt, %s completion)",
		t.Requests(),
		fmtTokens(total.Total()),
		fmtTokens(total.PromptTokens),
		fmtTokens(total.CompletionTokens),
	))

	models := t.Models()
	if len(models) < 2 {
		return
	}
	for _, name := range models {
		u.notice(fmt.Sprintf("  %s: %s tokens", name, fmtTokens(t.Model(name).Total())))
	}
}

// fmtTokens formats a token count for display, using k/M suffixes.
func fmtTokens(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// isExit reports whether a line asks to leave the prompt loop.
func isExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit":
		return true
	}
	return false
}
