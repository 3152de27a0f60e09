package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/sumzero/internal/arc"
	"github.com/dgallion1/sumzero/internal/artifact"
	"github.com/dgallion1/sumzero/internal/chunker"
	"github.com/dgallion1/sumzero/internal/storage"
	"github.com/dgallion1/sumzero/internal/summarize"
)

// Observer receives progress callbacks from a Runner. With more than one
// worker the callbacks arrive concurrently from different chapters.
type Observer interface {
	ChapterStarted(chapterID string, blocks int)
	BlockPlanned(b arc.Block, plan chunker.Plan)
	BlockDone(b arc.Block, syn summarize.Synopsis)
	BlockSkipped(b arc.Block, err error)
	ChapterDone(res ChapterResult)
}

// NopObserver ignores all callbacks.
type NopObserver struct{}

func (NopObserver) ChapterStarted(string, int) {}
func (NopObserver) BlockPlanned(arc.Block, chunker.Plan) {}
func (NopObserver) BlockDone(arc.Block, summarize.Synopsis) {}
func (NopObserver) BlockSkipped(arc.Block, error) {}
func (NopObserver) ChapterDone(ChapterResult) {}

// ChapterResult is the outcome of one chapter.
type ChapterResult struct {
	ChapterID string `json:"chapter_id"`
	Path      string `json:"path,omitempty"`
	Blocks    int    `json:"blocks"`
	Written   int    `json:"written"`
	Skipped   int    `json:"skipped"`
	Cached    int    `json:"cached"`
	Err       error  `json:"-"`
}

// Report collects chapter results in chapter order.
type Report struct {
	Arc      int
	Chapters []ChapterResult
}

// Err joins the chapter-level errors, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, c := range r.Chapters {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("chapter %s: %w", c.ChapterID, c.Err))
		}
	}
	return errors.Join(errs...)
}

// Completed returns the ids of chapters whose artifact was finished.
func (r *Report) Completed() []string {
	var ids []string
	for _, c := range r.Chapters {
		if c.Err == nil {
			ids = append(ids, c.ChapterID)
		}
	}
	return ids
}

// Deps are the components a Runner drives.
type Deps struct {
	Sizer      *chunker.Sizer
	Dispatcher *summarize.Dispatcher
	Writer     *artifact.Writer
	Cache      storage.SynopsisStore // optional
	Log        *slog.Logger
}

// RunOptions controls error policy and concurrency.
type RunOptions struct {
	// Strict aborts a chapter on an oversized block instead of skipping it.
	Strict bool
	// Workers is the number of chapters processed at once.
	Workers int
}

// Runner summarizes selected chapters of a document. Blocks within a
// chapter are always processed one at a time in document order.
type Runner struct {
	deps Deps
	opts RunOptions
	obs  Observer
}

func NewRunner(deps Deps, opts RunOptions, obs Observer) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if obs == nil {
		obs = NopObserver{}
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &Runner{deps: deps, opts: opts, obs: obs}
}

// Run processes the chapters in ascending order. A missing chapter or an
// oversized block in strict mode fails only that chapter and is reported in
// the Report. A dispatch failure or cancellation stops the run and is
// returned as the error alongside the partial report.
func (r *Runner) Run(ctx context.Context, doc *arc.Document, chapterIDs []string) (*Report, error) {
	ids := SortChapterIDs(chapterIDs)
	results := make([]ChapterResult, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res, err := r.runChapter(gctx, doc, id)
			results[i] = res
			return err
		})
	}
	err := g.Wait()

	report := &Report{Arc: doc.Arc}
	for _, res := range results {
		if res.ChapterID != "" {
			report.Chapters = append(report.Chapters, res)
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	return report, err
}

func (r *Runner) runChapter(ctx context.Context, doc *arc.Document, id string) (ChapterResult, error) {
	res := ChapterResult{ChapterID: id}
	log := r.deps.Log.With("arc", doc.Arc, "chapter", id)

	ordinals, err := arc.ChapterIndex(doc.Blocks, id)
	if err != nil {
		log.Warn("chapter not found")
		res.Err = err
		r.obs.ChapterDone(res)
		return res, nil
	}
	res.Blocks = len(ordinals)
	r.obs.ChapterStarted(id, len(ordinals))

	sink, err := r.deps.Writer.Open(doc.Arc, id)
	if err != nil {
		res.Err = err
		r.obs.ChapterDone(res)
		return res, nil
	}
	res.Path = sink.Path()

	abort := func(cause error) {
		if aerr := sink.Abort(); aerr != nil {
			log.Error("abort artifact", "error", aerr)
		}
		res.Err = cause
		r.obs.ChapterDone(res)
	}

	for _, ord := range ordinals {
		b := doc.Blocks[ord]
		plan, err := r.deps.Sizer.Plan(b)
		if err != nil {
			if r.opts.Strict {
				log.Error("block too large, aborting chapter", "block", b.Ordinal, "error", err)
				abort(err)
				return res, nil
			}
			log.Warn("block too large, skipping", "block", b.Ordinal, "error", err)
			res.Skipped++
			r.obs.BlockSkipped(b, err)
			continue
		}
		r.obs.BlockPlanned(b, plan)

		syn, err := r.summarize(ctx, log, doc.Arc, b, plan)
		if err != nil {
			abort(err)
			return res, err
		}
		if syn.Cached {
			res.Cached++
		}
		if err := sink.Append(syn); err != nil {
			abort(err)
			return res, nil
		}
		res.Written++
		r.obs.BlockDone(b, syn)
	}

	if err := sink.Close(); err != nil {
		res.Err = err
	}
	log.Info("chapter done", "written", res.Written, "skipped", res.Skipped, "cached", res.Cached)
	r.obs.ChapterDone(res)
	return res, nil
}

// summarize returns a cached synopsis when one matches the exact request,
// otherwise dispatches and caches the result. Dry runs bypass the cache.
func (r *Runner) summarize(ctx context.Context, log *slog.Logger, arcNumber int, b arc.Block, plan chunker.Plan) (summarize.Synopsis, error) {
	d := r.deps.Dispatcher
	if r.deps.Cache == nil || d.DryRun() {
		return d.Dispatch(ctx, b, plan)
	}

	req := d.Request(b, plan)
	key := storage.CacheKey(req.Model, req.MaxTokens, req.Temperature, req.Prompt)
	rec, err := r.deps.Cache.Get(ctx, key)
	switch {
	case err == nil:
		log.Debug("synopsis cache hit", "block", b.Ordinal)
		return summarize.Synopsis{
			BlockOrdinal: b.Ordinal,
			HeaderLine:   b.HeaderLine,
			Text:         rec.Text,
			Model:        rec.Model,
			Cached:       true,
		}, nil
	case !errors.Is(err, storage.ErrNotFound):
		log.Warn("synopsis cache lookup failed", "block", b.Ordinal, "error", err)
	}

	syn, err := d.Dispatch(ctx, b, plan)
	if err != nil || syn.Warning != nil {
		return syn, err
	}
	if perr := r.deps.Cache.Put(ctx, &storage.SynopsisRecord{
		Key:        key,
		Arc:        arcNumber,
		ChapterID:  b.ChapterID,
		Part:       b.Part,
		HeaderLine: b.HeaderLine,
		Model:      plan.Model,
		TokenCount: plan.TokenCount,
		Text:       syn.Text,
	}); perr != nil {
		log.Warn("synopsis cache write failed", "block", b.Ordinal, "error", perr)
	}
	return syn, nil
}

// SortChapterIDs de-duplicates ids and orders them numerically, with
// non-numeric ids sorted lexically after the numeric ones.
func SortChapterIDs(ids []string) []string {
	out := slices.Clone(ids)
	slices.SortFunc(out, compareChapterIDs)
	return slices.Compact(out)
}

func compareChapterIDs(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		if c := cmp.Compare(na, nb); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return cmp.Compare(a, b)
}
