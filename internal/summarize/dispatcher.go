package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dgallion1/sumzero/internal/arc"
	"github.com/dgallion1/sumzero/internal/chunker"
)

// Synopsis is the model output for one block.
type Synopsis struct {
	BlockOrdinal int    `json:"block"`
	HeaderLine   string `json:"header"`
	Text         string `json:"text"`
	Model        string `json:"model"`
	Cached       bool   `json:"cached,omitempty"`
	DryRun       bool   `json:"dry_run,omitempty"`
	Warning      error  `json:"-"`
}

// DispatchError means a block could not be summarized within the retry
// budget.
type DispatchError struct {
	Ordinal  int
	Attempts int
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch block %d failed after %d attempt(s): %v", e.Ordinal, e.Attempts, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// EmptyResultWarning is attached to a synopsis whose text came back empty.
type EmptyResultWarning struct {
	Ordinal    int
	HeaderLine string
}

func (w *EmptyResultWarning) Error() string {
	return fmt.Sprintf("empty synopsis for block %d (%s)", w.Ordinal, w.HeaderLine)
}

// Clock is the time source for backoff and dry-run delays.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Options controls a Dispatcher.
type Options struct {
	Temperature    float64
	DryRun         bool
	RetryBudget    time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	DryRunDelay    time.Duration
}

func (o *Options) applyDefaults() {
	if o.RetryBudget <= 0 {
		o.RetryBudget = 300 * time.Second
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 10 * time.Second
	}
	if o.DryRunDelay <= 0 {
		o.DryRunDelay = time.Second
	}
}

// Dispatcher sends one completion request per block.
type Dispatcher struct {
	client Completer
	opts   Options
	clock  Clock
	log    *slog.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

func NewDispatcher(client Completer, opts Options, log *slog.Logger, options ...Option) *Dispatcher {
	opts.applyDefaults()
	d := &Dispatcher{client: client, opts: opts, clock: SystemClock, log: log}
	for _, o := range options {
		o(d)
	}
	return d
}

// DryRun reports whether requests are skipped.
func (d *Dispatcher) DryRun() bool { return d.opts.DryRun }

// Temperature is the sampling temperature used for every request.
func (d *Dispatcher) Temperature() float64 { return d.opts.Temperature }

// Request builds the completion request for a planned block.
func (d *Dispatcher) Request(b arc.Block, plan chunker.Plan) CompletionRequest {
	return CompletionRequest{
		Model:       plan.Model,
		Prompt:      BuildPrompt(b.Text()),
		MaxTokens:   plan.MaxOutputTokens,
		Temperature: d.opts.Temperature,
	}
}

// Dispatch summarizes one block. Failures are retried with randomized
// exponential backoff until the retry budget is spent; the last error is
// returned inside a *DispatchError.
func (d *Dispatcher) Dispatch(ctx context.Context, b arc.Block, plan chunker.Plan) (Synopsis, error) {
	syn := Synopsis{BlockOrdinal: b.Ordinal, HeaderLine: b.HeaderLine, Model: plan.Model}
	log := d.log.With("block", b.Ordinal, "header", b.HeaderLine, "model", plan.Model)

	if d.opts.DryRun {
		if err := d.clock.Sleep(ctx, d.opts.DryRunDelay); err != nil {
			return syn, &DispatchError{Ordinal: b.Ordinal, Err: err}
		}
		syn.Text = DryRunText
		syn.DryRun = true
		return syn, nil
	}

	text, attempts, err := d.complete(ctx, log, d.Request(b, plan))
	if err != nil {
		return syn, &DispatchError{Ordinal: b.Ordinal, Attempts: attempts, Err: err}
	}
	syn.Text = text

	if strings.TrimSpace(text) == "" {
		syn.Warning = &EmptyResultWarning{Ordinal: b.Ordinal, HeaderLine: b.HeaderLine}
		log.Warn("empty synopsis returned", "attempts", attempts)
	}
	return syn, nil
}

func (d *Dispatcher) complete(ctx context.Context, log *slog.Logger, req CompletionRequest) (string, int, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.opts.InitialBackoff
	b.MaxInterval = d.opts.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = d.opts.RetryBudget
	b.Clock = d.clock
	b.Reset()

	attempts := 0
	for {
		attempts++
		text, err := d.client.Complete(ctx, req)
		if err == nil {
			return text, attempts, nil
		}
		if ctx.Err() != nil {
			return "", attempts, ctx.Err()
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			log.Error("retry budget exhausted", "attempts", attempts, "error", err)
			return "", attempts, err
		}
		wait = min(wait, d.opts.MaxBackoff)
		log.Warn("completion failed, retrying", "attempt", attempts, "wait", wait, "error", err)
		if serr := d.clock.Sleep(ctx, wait); serr != nil {
			return "", attempts, serr
		}
	}
}
