package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/livetemplate/scrollytell/internal/config"
	"github.com/spf13/cobra"
)

const tabPadding = 2

func newStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps [directory]",
		Short: "List every step in scroll order",
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

			lines := make(map[string]int, len(p.Article.Steps))
			for _, sb := range p.Article.Steps {
				lines[sb.Key()] = sb.Line
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
			fmt.Fprintln(w, "STEP\tKEY\tVIZ\tLINE")
			for _, st := range set.Steps() {
				line := "-"
				if n, ok := lines[st.Key]; ok {
					line = fmt.Sprint(n)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.Global, st.Key, st.Viz, line)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d steps across %s\n", set.StepCount(), strings.Join(set.IDs(), ", "))
			return nil
		},
	}
}
