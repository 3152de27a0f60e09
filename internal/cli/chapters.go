package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/sumzero/internal/config"
)

func newChaptersCommand(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "chapters",
		Short: "List the chapter headers of an arc",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadArc(input, config.Load())
			if err != nil {
				return err
			}
			for _, ch := range doc.Chapters() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t(%d part(s))\n", ch.ID, ch.Header, ch.Parts)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "arc source file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
