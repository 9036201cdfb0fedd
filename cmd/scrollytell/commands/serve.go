package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/livetemplate/scrollytell"
	"github.com/livetemplate/scrollytell/internal/config"
	"github.com/livetemplate/scrollytell/internal/server"
	"github.com/spf13/cobra"
)

type serveFlags struct {
	port  int
	host  string
	watch bool
}

func newServeCmd() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve [directory]",
		Short: "Start the article server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(args)
			if err != nil {
				return err
			}
			o := config.Overrides{Port: flags.port, Host: flags.host}
			o.Debug, _ = cmd.Flags().GetBool("debug")
			if cmd.Flags().Changed("watch") {
				o.Watch = &flags.watch
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd, dir, o)
		},
	}
	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().StringVar(&flags.host, "host", "", "host to bind (overrides config)")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "reload when the article, config or data change")
	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, dir string, o config.Overrides) error {
	load := func() (*scrollytell.Project, error) {
		return openProject(cmd, dir, o)
	}
	srv, err := server.New(ctx, load, server.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer srv.Close()

	cfg := srv.Project().Config
	if cfg.Features.HotReload {
		if err := srv.EnableWatch(); err != nil {
			return err
		}
	}
	if !srv.Active() {
		logger.Warn().Msg("serving without scrolling scenes; fix the error above and save to retry")
	}

	err = srv.Serve(ctx, cfg.Server.Addr())
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
