package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/sumzero/internal/artifact"
	"github.com/dgallion1/sumzero/internal/chunker"
	"github.com/dgallion1/sumzero/internal/config"
	"github.com/dgallion1/sumzero/internal/console"
	"github.com/dgallion1/sumzero/internal/picker"
	"github.com/dgallion1/sumzero/internal/pipeline"
	"github.com/dgallion1/sumzero/internal/storage"
	"github.com/dgallion1/sumzero/internal/summarize"
)

type summarizeOptions struct {
	input        string
	chapters     string
	merge        bool
	output       string
	dryRun       bool
	apiKey       string
	org          string
	temperature  float64
	highCapacity bool
	gpt4         bool
	strict       bool
	incremental  bool
	cache        string
	workers      int
	open         bool
}

func newSummarizeCommand(a *app) *cobra.Command {
	o := &summarizeOptions{}
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize selected chapters of an arc",
		Long: `Summarize selected chapters of an arc.

Each chapter is written to "Arc N Chapter X Summary.txt" in the output
directory. Without --chapter an interactive picker is shown. With --merge
the chapter files are combined into one "Arc N Chapter(s) A-B Summary.txt".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSummarize(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "arc source file (txt, md, html, epub, pdf, docx)")
	f.StringVarP(&o.chapters, "chapter", "c", "", `chapters to summarize, e.g. "1, 2,3"`)
	f.BoolVarP(&o.merge, "merge", "m", false, "merge chapter summaries into one file")
	f.StringVarP(&o.output, "output", "o", "", "output directory (default SUMZERO_OUTPUT_DIR)")
	f.BoolVar(&o.dryRun, "dry-run", false, "skip the model and write placeholder summaries")
	f.StringVar(&o.apiKey, "api-key", "", "OpenAI API key (default OPENAI_API_KEY)")
	f.StringVar(&o.org, "org", "", "OpenAI organization (default OPENAI_ORG)")
	f.Float64VarP(&o.temperature, "temperature", "t", 0, "sampling temperature, 0 to 2")
	f.BoolVar(&o.highCapacity, "high-capacity", false, "allow the large model for parts that do not fit the standard one")
	f.BoolVar(&o.gpt4, "gpt4", false, "alias for --high-capacity")
	f.BoolVar(&o.strict, "strict", false, "fail a chapter instead of skipping an oversized part")
	f.BoolVar(&o.incremental, "incremental", true, "write each part as soon as it is summarized")
	f.StringVar(&o.cache, "cache", "", "SQLite synopsis cache path (default SUMZERO_CACHE_PATH)")
	f.IntVar(&o.workers, "workers", 1, "chapters summarized concurrently")
	f.BoolVar(&o.open, "open", false, "open the result when done")
	_ = f.MarkHidden("gpt4")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// apply overrides cfg with the flags that were set explicitly.
func (o *summarizeOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("output") {
		cfg.OutputDir = o.output
	}
	if f.Changed("dry-run") {
		cfg.DryRun = o.dryRun
	}
	if f.Changed("api-key") {
		cfg.OpenAIAPIKey = o.apiKey
	}
	if f.Changed("org") {
		cfg.OpenAIOrg = o.org
	}
	if f.Changed("temperature") {
		cfg.Temperature = o.temperature
	}
	if o.highCapacity || o.gpt4 {
		cfg.HighCapacity = true
	}
	if f.Changed("strict") {
		cfg.Strict = o.strict
	}
	if f.Changed("incremental") {
		cfg.Incremental = o.incremental
	}
	if f.Changed("cache") {
		cfg.CachePath = o.cache
	}
	if f.Changed("workers") {
		cfg.ChapterWorkers = o.workers
	}
}

func (a *app) runSummarize(cmd *cobra.Command, o *summarizeOptions) error {
	cfg := config.Load()
	o.apply(cmd, &cfg)
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return &ConfigError{Err: fmt.Errorf("temperature must be between 0 and 2, got %v", cfg.Temperature)}
	}
	if cfg.ChapterWorkers < 1 {
		return &ConfigError{Err: fmt.Errorf("--workers must be at least 1")}
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Err: err}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	con := console.New(cmd.OutOrStdout(), a.verbose)
	doc, err := loadArc(o.input, cfg)
	if err != nil {
		return err
	}

	var sel picker.Selector = picker.Interactive{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
	if o.chapters != "" {
		sel = picker.Static{IDs: picker.ParseIDs(o.chapters)}
	}
	ids, err := sel.Select(ctx, picker.ListChoices(doc))
	if err != nil {
		return err
	}
	ids = pipeline.SortChapterIDs(ids)

	if cfg.HighCapacity {
		con.HighCapacityWarning(cfg.LargeModel)
	}

	var cache storage.SynopsisStore
	if cfg.CachePath != "" {
		db, err := storage.New(cfg.CachePath)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer db.Close()
		if err := storage.Migrate(db); err != nil {
			return fmt.Errorf("migrate cache: %w", err)
		}
		cache = storage.NewSynopsisRepo(db)
	}

	log := a.log.With("arc", doc.Arc)
	client := summarize.NewOpenAIClient(summarize.ClientConfig{
		APIKey:       cfg.OpenAIAPIKey,
		Organization: cfg.OpenAIOrg,
		BaseURL:      cfg.OpenAIBaseURL,
		Timeout:      cfg.RequestTimeout,
	})
	sizer := chunker.NewSizer(newTokenizer(log), summarize.InstructionSuffix,
		chunker.DefaultTiers(cfg.StandardModel, cfg.LargeModel), cfg.HighCapacity)
	dispatcher := summarize.NewDispatcher(client, summarize.Options{
		Temperature: cfg.Temperature,
		DryRun:      cfg.DryRun,
		RetryBudget: cfg.RetryBudget,
	}, log)

	chapterDir := cfg.OutputDir
	if o.merge {
		chapterDir = filepath.Join(cfg.OutputDir, "temp")
		if err := os.RemoveAll(chapterDir); err != nil {
			return fmt.Errorf("reset temp dir: %w", err)
		}
	}
	mode := artifact.ModeBatched
	if cfg.Incremental {
		mode = artifact.ModeIncremental
	}

	runner := pipeline.NewRunner(pipeline.Deps{
		Sizer:      sizer,
		Dispatcher: dispatcher,
		Writer:     &artifact.Writer{Dir: chapterDir, Mode: mode},
		Cache:      cache,
		Log:        log,
	}, pipeline.RunOptions{Strict: cfg.Strict, Workers: cfg.ChapterWorkers}, con)

	con.Info("Handling chapter(s): %s", strings.Join(ids, ", "))
	report, err := runner.Run(ctx, doc, ids)
	if err != nil {
		return err
	}

	result := cfg.OutputDir
	if o.merge {
		completed := report.Completed()
		if len(completed) > 0 {
			con.Info("Merging files...")
			path, err := artifact.Merge(chapterDir, cfg.OutputDir, doc.Arc, completed)
			if err != nil {
				return err
			}
			if err := os.RemoveAll(chapterDir); err != nil {
				log.Warn("remove temp dir", "error", err)
			}
			con.Success("Merged files!")
			result = path
		}
	} else if len(ids) == 1 && report.Err() == nil {
		result = filepath.Join(cfg.OutputDir, artifact.ChapterFilename(doc.Arc, ids[0]))
	}

	if stats := client.Stats.Snapshot(); stats.All.Count > 0 {
		log.Debug("completion latency", "calls", stats.All.Count, "p50_ms", stats.All.P50Ms, "p95_ms", stats.All.P95Ms)
	}

	if err := report.Err(); err != nil {
		return err
	}
	con.Success("Done!")
	if o.open {
		if err := openFunc(result); err != nil {
			con.Warn("%v", err)
		}
	}
	return nil
}
