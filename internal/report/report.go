// Package report buffers backup and clean outcomes per output directory and
// glob set, and renders them as one boxed summary when the builds of a glob
// set complete.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/outputkeeper/internal/registry"
)

// DefaultTitle heads every rendered report.
const DefaultTitle = "Backup Output Report"

var symbols = map[registry.State]string{
	registry.StateSuccess: "✔",
	registry.StateEmpty:   "○",
	registry.StateFailed:  "✘",
}

var stateLabels = titleLabels(registry.StateNotStarted, registry.StateEmpty, registry.StateSuccess, registry.StateFailed)

func titleLabels(states ...registry.State) map[registry.State]string {
	caser := cases.Title(language.English)
	labels := make(map[registry.State]string, len(states))
	for _, st := range states {
		labels[st] = caser.String(st.String())
	}
	return labels
}

type blockID struct {
	key   string
	group string
}

type block struct {
	backup *registry.Outcome
	clean  *registry.Outcome
}

// Sink implements registry.Sink. It is safe for concurrent use.
type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	title  string
	styles styles
	blocks map[blockID]*block
}

type styles struct {
	box     lipgloss.Style
	title   lipgloss.Style
	path    lipgloss.Style
	label   lipgloss.Style
	success lipgloss.Style
	empty   lipgloss.Style
	failed  lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	yellow := lipgloss.Color("3")
	return styles{
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(yellow).
			Padding(1).
			Margin(1),
		title:   r.NewStyle().Bold(true).Foreground(yellow),
		path:    r.NewStyle().Underline(true),
		label:   r.NewStyle().Foreground(yellow),
		success: r.NewStyle().Foreground(lipgloss.Color("2")),
		empty:   r.NewStyle().Foreground(lipgloss.Color("8")),
		failed:  r.NewStyle().Foreground(lipgloss.Color("1")),
		muted:   r.NewStyle().Faint(true),
	}
}

// Option configures a Sink.
type Option func(*Sink)

// WithTitle overrides the report title.
func WithTitle(title string) Option {
	return func(s *Sink) { s.title = title }
}

// New creates a sink writing to w. Colors follow the terminal capabilities of w.
func New(w io.Writer, opts ...Option) *Sink {
	s := &Sink{
		w:      w,
		title:  DefaultTitle,
		styles: newStyles(lipgloss.NewRenderer(w)),
		blocks: make(map[blockID]*block),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record buffers the outcome of one track for an output path and glob set.
func (s *Sink) Record(key, group string, track registry.Track, o registry.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := blockID{key: key, group: group}
	b, ok := s.blocks[id]
	if !ok {
		b = &block{}
		s.blocks[id] = b
	}
	switch track {
	case registry.TrackBackup:
		b.backup = &o
	case registry.TrackClean:
		b.clean = &o
	}
}

// Flush writes the buffered blocks of keys under group, in the given order, as
// one box and drops them from the buffer. Blocks of other glob sets are left
// alone. Nothing is written when none of the keys has buffered lines.
func (s *Sink) Flush(group string, keys []string) {
	s.mu.Lock()
	var sections []string
	for _, key := range keys {
		id := blockID{key: key, group: group}
		b, ok := s.blocks[id]
		if !ok {
			continue
		}
		delete(s.blocks, id)
		sections = append(sections, s.renderBlock(id, b))
	}
	s.mu.Unlock()

	if len(sections) == 0 {
		return
	}
	body := s.styles.title.Render(s.title) + "\n\n" + strings.Join(sections, "\n\n")
	_, _ = fmt.Fprintln(s.w, s.styles.box.Render(body))
}

// Pending returns the number of (output path, glob set) pairs with buffered lines.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

func (s *Sink) renderBlock(id blockID, b *block) string {
	head := s.styles.path.Render(id.key)
	if id.group != "" {
		head += " " + s.styles.muted.Render("["+strings.ReplaceAll(id.group, "\n", ", ")+"]")
	}
	lines := []string{head}
	if b.backup != nil {
		lines = append(lines, s.renderLine("Backup", *b.backup, true)...)
	}
	if b.clean != nil {
		lines = append(lines, s.renderLine("Clean", *b.clean, false)...)
	}
	return strings.Join(lines, "\n")
}

func (s *Sink) renderLine(label string, o registry.Outcome, withDest bool) []string {
	line := s.styles.label.Render(label+":") + " " + s.stateStyle(o.State).Render(symbols[o.State]+" "+stateLabel(o.State))
	if withDest && o.State == registry.StateSuccess && o.Destination != "" {
		line += " " + s.styles.muted.Render("("+o.Destination+")")
	}
	out := []string{line}
	if o.State == registry.StateFailed && o.Err != nil {
		out = append(out, "  "+s.styles.failed.Render(o.Err.Error()))
	}
	if n := len(o.Failures); n > 0 && o.State != registry.StateFailed {
		out = append(out, "  "+s.styles.muted.Render(fmt.Sprintf("%d file(s) could not be processed", n)))
	}
	return out
}

func (s *Sink) stateStyle(state registry.State) lipgloss.Style {
	switch state {
	case registry.StateSuccess:
		return s.styles.success
	case registry.StateFailed:
		return s.styles.failed
	default:
		return s.styles.empty
	}
}

func stateLabel(state registry.State) string {
	if label, ok := stateLabels[state]; ok {
		return label
	}
	return state.String()
}
