package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dgallion1/sumzero/internal/arc"
	"github.com/dgallion1/sumzero/internal/artifact"
	"github.com/dgallion1/sumzero/internal/chunker"
	"github.com/dgallion1/sumzero/internal/config"
	"github.com/dgallion1/sumzero/internal/storage"
	"github.com/dgallion1/sumzero/internal/summarize"
)

// Worker processes a single summary job.
type Worker struct {
	cfg    config.Config
	client summarize.Completer
	cache  storage.SynopsisStore
	tok    chunker.Tokenizer
	log    *slog.Logger
	clock  summarize.Clock
}

func NewWorker(cfg config.Config, client summarize.Completer, cache storage.SynopsisStore, tok chunker.Tokenizer, log *slog.Logger) *Worker {
	return &Worker{
		cfg:    cfg,
		client: client,
		cache:  cache,
		tok:    tok,
		log:    log,
		clock:  summarize.SystemClock,
	}
}

// JobDir is where a job's chapter artifacts are written.
func JobDir(outputDir, jobID string) string {
	return filepath.Join(outputDir, "jobs", jobID)
}

// Process runs the selected chapters of a job through a Runner.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "arc_id", job.ArcID, "arc", job.Arc)
	job.SetStatus(StatusRunning, "summarizing")

	opts := job.Options
	sizer := chunker.NewSizer(w.tok, summarize.InstructionSuffix,
		chunker.DefaultTiers(w.cfg.StandardModel, w.cfg.LargeModel), opts.HighCapacity)
	dispatcher := summarize.NewDispatcher(w.client, summarize.Options{
		Temperature: opts.Temperature,
		DryRun:      opts.DryRun,
		RetryBudget: w.cfg.RetryBudget,
	}, log, summarize.WithClock(w.clock))

	mode := artifact.ModeBatched
	if w.cfg.Incremental {
		mode = artifact.ModeIncremental
	}
	runner := NewRunner(Deps{
		Sizer:      sizer,
		Dispatcher: dispatcher,
		Writer:     &artifact.Writer{Dir: job.OutputDir, Mode: mode},
		Cache:      w.cache,
		Log:        log,
	}, RunOptions{Strict: opts.Strict, Workers: w.cfg.ChapterWorkers}, jobObserver{job})

	report, err := runner.Run(ctx, job.Document(), job.Chapters)
	if report != nil {
		if rerr := report.Err(); rerr != nil {
			job.AddError(rerr.Error())
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		log.Warn("job cancelled")
		job.SetStatus(StatusCancelled, "cancelled")
	case err != nil:
		log.Error("job failed", "error", err)
		job.AddError(fmt.Sprintf("dispatch: %s", err))
		job.SetStatus(StatusFailed, "summarizing")
	case len(report.Completed()) == 0:
		job.SetStatus(StatusFailed, "done")
	case report.Err() != nil:
		job.SetStatus(StatusPartial, "done")
	default:
		log.Info("job complete", "chapters", len(report.Chapters))
		job.SetStatus(StatusCompleted, "done")
	}
}

// jobObserver feeds runner progress into a Job.
type jobObserver struct {
	job *Job
}

func (o jobObserver) ChapterStarted(_ string, blocks int) { o.job.AddTotalBlocks(blocks) }
func (o jobObserver) BlockPlanned(arc.Block, chunker.Plan) {}
func (o jobObserver) BlockDone(_ arc.Block, s summarize.Synopsis) { o.job.IncrBlocksDone(s.Cached) }
func (o jobObserver) BlockSkipped(arc.Block, error) { o.job.IncrBlocksSkipped() }
func (o jobObserver) ChapterDone(res ChapterResult) { o.job.FinishChapter(res) }
