package pipeline

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/sumzero/internal/arc"
	"github.com/dgallion1/sumzero/internal/artifact"
	"github.com/dgallion1/sumzero/internal/chunker"
	"github.com/dgallion1/sumzero/internal/summarize"
)

const sampleArc = "Arc 7 Chapter 1 – Initiation\nHello.\n△▼△▼△▼△\nWorld.\nArc 7 Chapter 2 – Next\nBye."

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock advances only when Sleep is called.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}

// fakeCompleter answers "Synopsis of <first prompt line>" unless fail
// matches the prompt.
type fakeCompleter struct {
	mu    sync.Mutex
	calls []summarize.CompletionRequest
	fail  func(prompt string) error
}

func (f *fakeCompleter) Complete(_ context.Context, req summarize.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(req.Prompt); err != nil {
			return "", err
		}
	}
	first, _, _ := strings.Cut(req.Prompt, "\n")
	return "Synopsis of " + first, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fixedTokenizer reports huge counts for text containing "HUGE".
type fixedTokenizer struct{}

func (fixedTokenizer) Count(text string) int {
	if strings.Contains(text, "HUGE") {
		return 20000
	}
	return 100
}

// recordingObserver keeps an event log.
type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) add(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, s)
}

func (o *recordingObserver) ChapterStarted(id string, blocks int) {
	o.add("start " + id)
}
func (o *recordingObserver) BlockPlanned(b arc.Block, plan chunker.Plan) {
	o.add("plan " + b.HeaderLine)
}
func (o *recordingObserver) BlockDone(b arc.Block, s summarize.Synopsis) {
	o.add("done " + b.HeaderLine)
}
func (o *recordingObserver) BlockSkipped(b arc.Block, err error) {
	o.add("skip " + b.HeaderLine)
}
func (o *recordingObserver) ChapterDone(res ChapterResult) {
	o.add("end " + res.ChapterID)
}

type runnerFixture struct {
	dir       string
	completer *fakeCompleter
	clock     *fakeClock
}

func newRunner(t *testing.T, f *runnerFixture, dispatch summarize.Options, run RunOptions, obs Observer, mode artifact.Mode) *Runner {
	t.Helper()
	if f.dir == "" {
		f.dir = t.TempDir()
	}
	if f.completer == nil {
		f.completer = &fakeCompleter{}
	}
	if f.clock == nil {
		f.clock = newFakeClock()
	}
	return NewRunner(Deps{
		Sizer:      chunker.NewSizer(fixedTokenizer{}, summarize.InstructionSuffix, chunker.DefaultTiers("std-model", "large-model"), false),
		Dispatcher: summarize.NewDispatcher(f.completer, dispatch, discardLogger(), summarize.WithClock(f.clock)),
		Writer:     &artifact.Writer{Dir: f.dir, Mode: mode},
		Log:        discardLogger(),
	}, run, obs)
}

func mustParse(t *testing.T, raw string) *arc.Document {
	t.Helper()
	doc, err := arc.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}
