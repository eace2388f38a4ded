package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/cling/internal/config"
	"github.com/mesh-intelligence/cling/internal/logging"
	"github.com/mesh-intelligence/cling/internal/paths"
	"github.com/mesh-intelligence/cling/internal/remote"
)

const shutdownTimeout = 5 * time.Second

func newRemoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Run a sync authority",
	}
	cmd.AddCommand(newRemoteServeCmd())
	return cmd
}

func newRemoteServeCmd() *cobra.Command {
	var (
		addr string
		key  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an in-memory sync authority over HTTP",
		Long: `Serve the sync wire protocol from memory, for development and tests.
Clients authenticate with --key (default: CLING_REMOTE_KEY). The data is
lost when the server stops.

Example:
  CLING_REMOTE_KEY=dev cling remote serve --addr 127.0.0.1:8787
  CLING_REMOTE_URL=http://127.0.0.1:8787 CLING_REMOTE_KEY=dev cling sync run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = os.Getenv("CLING_REMOTE_KEY")
			}
			if key == "" {
				return errors.New("remote serve: an API key is required (--key or CLING_REMOTE_KEY)")
			}
			configDir, err := paths.ResolveConfigDir(flags.configDir)
			if err != nil {
				return &sysError{err}
			}
			cfg, err := config.Load(configDir)
			if err != nil {
				return &sysError{err}
			}
			logger, closer, err := logging.New(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return &sysError{err}
			}
			defer closer.Close()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return &sysError{fmt.Errorf("listen %s: %w", addr, err)}
			}
			srv := &http.Server{
				Handler:           remote.NewHandler(remote.NewMemory(), key, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info("remote listening", "addr", ln.Addr().String())
				if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	cmd.Flags().StringVar(&key, "key", "", "API key clients must present")
	return cmd
}
