// Package commands implements the scrollytell subcommands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/livetemplate/scrollytell"
	"github.com/livetemplate/scrollytell/internal/config"
	"github.com/livetemplate/scrollytell/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// logger is set up by the root command before any subcommand runs.
var logger = zerolog.Nop()

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd(ver string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scrollytell",
		Short:         "Scrollytelling articles with server-rendered charts",
		Long:          "scrollytell serves markdown articles whose charts redraw step by step as the reader scrolls.",
		Version:       ver,
		Example:       rootExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			level, _ := cmd.Flags().GetString("log-level")
			jsonLogs, _ := cmd.Flags().GetBool("log-json")
			logger = logging.New(logging.Options{
				Level: level,
				Debug: debug,
				JSON:  jsonLogs,
				Out:   cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("log-json", false, "write logs as JSON lines")
	cmd.PersistentFlags().StringP("config", "c", "", "configuration file (default <dir>/"+config.FileName+")")

	cmd.AddCommand(newServeCmd(), newValidateCmd(), newStepsCmd(), newExportCmd(), newVersionCmd(ver))
	return cmd
}

const rootExample = `  # Serve the article in the current directory
  scrollytell serve

  # Serve with live reload on another port
  scrollytell serve ./article --watch --port 9000

  # Check the article, datasets and step counts
  scrollytell validate ./article

  # List every step in scroll order
  scrollytell steps ./article

  # Write one SVG per step
  scrollytell export ./article --out ./svg`

// PrintError writes err to w. Parse errors keep their own layout with the
// surrounding article lines.
func PrintError(w io.Writer, err error) {
	var pe *scrollytell.ParseError
	if errors.As(err, &pe) {
		fmt.Fprint(w, pe.Format())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// projectDir returns the directory argument, defaulting to ".".
func projectDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", dir)
	}
	return dir, nil
}

// openProject opens dir with the shared --config flag and the given
// overrides.
func openProject(cmd *cobra.Command, dir string, o config.Overrides) (*scrollytell.Project, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	return scrollytell.Open(dir, scrollytell.Options{
		ConfigFile: cfgFile,
		Overrides:  o,
		Logger:     logger,
	})
}

func newVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scrollytell version %s\n", ver)
		},
	}
}
