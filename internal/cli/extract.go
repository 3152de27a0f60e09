package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/sumzero/internal/config"
	"github.com/dgallion1/sumzero/internal/console"
	"github.com/dgallion1/sumzero/internal/parser"
)

func newExtractCommand(a *app) *cobra.Command {
	var (
		dir          string
		deleteSource bool
		dryRun       bool
	)
	cmd := &cobra.Command{
		Use:   "extract FILE...",
		Short: "Convert epub, pdf, docx, html or markdown files to plain text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			opts := parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext}
			con := console.New(cmd.OutOrStdout(), a.verbose)
			failed := 0
			for _, path := range args {
				if dryRun {
					if _, err := parser.ReadFile(path, opts); err != nil {
						con.Error("%v", err)
						failed++
						continue
					}
					target := dir
					if target == "" {
						target = filepath.Dir(path)
					}
					con.Info("Would write %s", filepath.Join(target, parser.TextFilename(path)))
					continue
				}
				out, err := parser.ExtractFile(path, dir, deleteSource, opts)
				if err != nil {
					con.Error("%v", err)
					failed++
					continue
				}
				con.Success("Extracted %s", out)
			}
			if failed > 0 {
				return &extractError{failed: failed, total: len(args)}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "output directory (default next to each source)")
	cmd.Flags().BoolVarP(&deleteSource, "clean", "c", false, "delete each source after a successful extraction")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse only, write nothing")
	return cmd
}

type extractError struct {
	failed, total int
}

func (e *extractError) Error() string {
	return fmt.Sprintf("extract: %d of %d file(s) failed", e.failed, e.total)
}
