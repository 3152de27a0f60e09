package cli

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/sumzero/internal/artifact"
	"github.com/dgallion1/sumzero/internal/config"
	"github.com/dgallion1/sumzero/internal/console"
)

func newDumpCommand(a *app) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the processed arc text, one block per paragraph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if output != "" {
				cfg.OutputDir = output
			}
			doc, err := loadArc(input, cfg)
			if err != nil {
				return err
			}
			path, err := artifact.Dump(cfg.OutputDir, doc.Arc, doc.Text())
			if err != nil {
				return err
			}
			a.log.Debug("processed text written", "path", path, "blocks", len(doc.Blocks))
			console.New(cmd.OutOrStdout(), a.verbose).Success("Wrote %s", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "arc source file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (default SUMZERO_OUTPUT_DIR)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
