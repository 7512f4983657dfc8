package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sessiond/internal/config"
	"sessiond/internal/notify"
)

type options struct {
	logLevel string
	timeout  time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "benchctl",
		Short:         "Controller side of unattended benchmark runs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("BENCHCTL_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Give up after this long (0 = wait forever)")
	root.AddCommand(newAwaitCmd(opts), newContinueCmd(opts))
	return root
}

func newAwaitCmd(opts *options) *cobra.Command {
	addr := net.JoinHostPort("", strconv.Itoa(config.DefaultControllerPort))
	cmd := &cobra.Command{
		Use:     "await",
		Short:   "Serve GET /continue and exit once a benchmark run reports completion",
		Example: "  benchctl await --addr :5100 --timeout 2h",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := opts.logger()
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()
			c := notify.NewController(log)
			if err := c.Await(ctx, addr); err != nil {
				return err
			}
			log.Info().Int64("hits", c.Hits()).Msg("run completed")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", addr, "Listen address")
	return cmd
}

// newContinueCmd sends the completion call by hand, e.g. to release a
// controller whose run was aborted.
func newContinueCmd(opts *options) *cobra.Command {
	host := config.DefaultControllerHost
	port := config.DefaultControllerPort
	cmd := &cobra.Command{
		Use:   "continue",
		Short: "Send GET /continue to a waiting controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()
			client := notify.NewClient(host, port, opts.timeout)
			body, err := client.Continue(ctx)
			if err != nil {
				return errors.Wrap(err, "continue")
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", host, "Controller host")
	cmd.Flags().IntVar(&port, "port", port, "Controller port")
	return cmd
}

func (o *options) logger() zerolog.Logger {
	lvl, err := zerolog.ParseLevel(o.logLevel)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
}

// context is canceled on SIGINT/SIGTERM and after the timeout, if any.
func (o *options) context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if o.timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, o.timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
