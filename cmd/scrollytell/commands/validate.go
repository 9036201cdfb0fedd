package commands

import (
	"fmt"

	"github.com/livetemplate/scrollytell/internal/config"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate [directory]",
		Short: "Check the article, its datasets and step counts",
		Long: "validate parses the article, runs every visualization setup and compares\n" +
			"the steps they produce with the article's step blocks.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(args)
			if err != nil {
				return err
			}
			p, err := openProject(cmd, dir, config.Overrides{})
			if err != nil {
				return err
			}
			defer p.Close()

			set, err := p.Vizzes.Load(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			warnings := p.Check(set)
			for _, w := range warnings {
				fmt.Fprintf(out, "⚠️  %s\n", w)
			}
			if strict && len(warnings) > 0 {
				return fmt.Errorf("%d warning(s)", len(warnings))
			}
			fmt.Fprintf(out, "✅ %s: %d visualizations, %d steps\n", p.Article.Title, len(set.IDs()), set.StepCount())
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on warnings")
	return cmd
}
