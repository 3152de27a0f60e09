// Package console renders run progress for the command line.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/sumzero/internal/arc"
	"github.com/dgallion1/sumzero/internal/chunker"
	"github.com/dgallion1/sumzero/internal/pipeline"
	"github.com/dgallion1/sumzero/internal/summarize"
)

var (
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAFF"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

const defaultWidth = 80

// Console prints status lines and implements pipeline.Observer.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	width   int
	bar     progress.Model

	parts map[string]*partCount
}

type partCount struct{ done, total int }

// New creates a console writing to out. Verbose adds per-block detail and
// the synopsis text.
func New(out io.Writer, verbose bool) *Console {
	return &Console{
		out:     out,
		verbose: verbose,
		width:   defaultWidth,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		parts:   make(map[string]*partCount),
	}
}

// SetWidth sets the line width used for rules and centering.
func (c *Console) SetWidth(w int) {
	if w > 0 {
		c.mu.Lock()
		c.width = w
		c.mu.Unlock()
	}
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

// Info prints a pending step.
func (c *Console) Info(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.println(infoStyle.Render("[-] " + fmt.Sprintf(format, args...)))
}

// Success prints a finished step.
func (c *Console) Success(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.println(successStyle.Render("[✓] " + fmt.Sprintf(format, args...)))
}

// Warn prints a non-fatal problem.
func (c *Console) Warn(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.println(infoStyle.Render("[!] " + fmt.Sprintf(format, args...)))
}

// Error prints a failure.
func (c *Console) Error(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.println(errorStyle.Render("[✗] " + fmt.Sprintf(format, args...)))
}

// HighCapacityWarning reminds the user that the large tier is expensive.
func (c *Console) HighCapacityWarning(model string) {
	c.Warn("High-capacity mode uses %s for large parts. Be warned that this is very expensive.", model)
}

func (c *Console) rule() string {
	return mutedStyle.Render(strings.Repeat("-", c.width))
}

func (c *Console) center(s string) string {
	return lipgloss.NewStyle().Width(c.width).Align(lipgloss.Center).Render(s)
}

func (c *Console) ChapterStarted(chapterID string, blocks int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parts[chapterID] = &partCount{total: blocks}
	c.println(c.rule())
	c.println(infoStyle.Render(fmt.Sprintf("[-] Processing chapter %s (%d part(s))...", chapterID, blocks)))
}

func (c *Console) BlockPlanned(b arc.Block, plan chunker.Plan) {
	if !c.verbose {
		return
	}
	total := b.Text() + summarize.InstructionSuffix
	c.mu.Lock()
	defer c.mu.Unlock()
	c.println("")
	c.println(detailStyle.Render(c.center(b.HeaderLine)))
	c.println(detailStyle.Render(c.center(fmt.Sprintf("Index: %d | Model: %s | Tokens: %d | Words: %d | Characters: %d",
		b.Ordinal, plan.Model, plan.TokenCount, len(strings.Fields(total)), len([]rune(total))))))
}

func (c *Console) BlockDone(b arc.Block, syn summarize.Synopsis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.verbose {
		label := "Summary"
		if syn.Cached {
			label = "Summary (cached)"
		}
		c.println(successStyle.Render(c.center(label)))
		c.println(syn.Text)
		c.println(detailStyle.Render(c.center(fmt.Sprintf("Words: %d | Characters: %d",
			len(strings.Fields(syn.Text)), len([]rune(syn.Text))))))
		c.println(c.rule())
	}
	if syn.Warning != nil {
		c.println(infoStyle.Render("[!] " + syn.Warning.Error()))
	}
	c.advance(b.ChapterID)
}

func (c *Console) BlockSkipped(b arc.Block, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.println(infoStyle.Render(fmt.Sprintf("[!] Skipping %s: %v", b.HeaderLine, err)))
	c.advance(b.ChapterID)
}

// advance prints the chapter progress bar. Callers hold c.mu.
func (c *Console) advance(chapterID string) {
	p, ok := c.parts[chapterID]
	if !ok || p.total == 0 {
		return
	}
	p.done++
	pct := float64(p.done) / float64(p.total)
	c.println(fmt.Sprintf("Chapter %s %s %d/%d", chapterID, c.bar.ViewAs(pct), p.done, p.total))
}

func (c *Console) ChapterDone(res pipeline.ChapterResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.parts, res.ChapterID)
	if res.Err != nil {
		c.println(errorStyle.Render(fmt.Sprintf("[✗] Chapter %s failed: %v", res.ChapterID, res.Err)))
		return
	}
	c.println(successStyle.Render(fmt.Sprintf("[✓] Processed chapter %s!", res.ChapterID)))
}
