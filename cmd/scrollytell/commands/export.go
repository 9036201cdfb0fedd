package commands

import (
	"fmt"

	"github.com/livetemplate/scrollytell/internal/config"
	"github.com/livetemplate/scrollytell/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		out    string
		minify bool
	)
	cmd := &cobra.Command{
		Use:   "export [directory]",
		Short: "Render every step to a standalone SVG file",
		Args:  cobra.MaximumNArgs(1),
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
			if !cmd.Flags().Changed("minify") {
				minify = p.Config.Features.IsMinify()
			}
			idx, err := export.Export(set, export.Options{
				Dir:    out,
				Title:  p.Article.Title,
				Lang:   p.Article.Lang,
				Minify: minify,
				Logger: logger.With().Str("component", "export").Logger(),
			})
			if err != nil {
				return err
			}
			for _, msg := range idx.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "⚠️  %s\n", msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d steps to %s\n", len(idx.Steps), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "export", "output directory")
	cmd.Flags().BoolVar(&minify, "minify", false, "minify the SVG files (default from features.minify)")
	return cmd
}
