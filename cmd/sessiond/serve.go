package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sessiond/internal/bench"
	"sessiond/internal/config"
	"sessiond/internal/httpapi"
	"sessiond/internal/notify"
	"sessiond/internal/session"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	var preload bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session control API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, preload, !opts.noNotify)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (default "+config.DefaultAddr+")")
	cmd.Flags().BoolVar(&preload, "preload", true, "Load the default model on startup")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger, preload, notifyOn bool) error {
	reg, err := loadRegistry(cfg, log)
	if err != nil {
		return err
	}
	bcfg, err := benchConfig(cfg, log, notifyOn)
	if err != nil {
		return err
	}

	bus := session.NewEventBus(log)
	defer bus.Close()
	pub := session.NewWatermillPublisher(bus, session.EventsTopic, log)
	defer pub.Close()
	s := session.New(newEngine(cfg), session.Config{
		Logger:    log,
		Publisher: pub,
	})
	defer s.Close()

	svc := httpapi.NewSessionService(s, reg, httpapi.SessionOptions{
		DefaultModel: cfg.DefaultModel,
		Bench:        bcfg,
		InputPath:    cfg.Bench.Input,
	})
	if preload && cfg.DefaultModel != "" {
		if _, err := svc.Reload(""); err != nil {
			log.Warn().Err(err).Str("model", cfg.DefaultModel).Msg("preload skipped")
		}
	}

	httpapi.SetLogger(log)
	httpapi.SetCORSOptions(len(cfg.CORSOrigins) > 0, cfg.CORSOrigins, nil, nil)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(svc, bus),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("engine", cfg.Engine).Str("models_dir", cfg.ModelsDir).Msg("sessiond listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown")
		}
		return nil
	})
	err = g.Wait()
	log.Info().Msg("sessiond stopped")
	return err
}

// benchConfig maps the bench section onto a harness config. With notifyOn
// unset, runs finish without calling the controller.
func benchConfig(cfg config.Config, log zerolog.Logger, notifyOn bool) (bench.Config, error) {
	dir, err := measurementsDir(cfg)
	if err != nil {
		return bench.Config{}, err
	}
	b := cfg.Bench
	bc := bench.Config{
		Logger:               log,
		MeasurementsDir:      dir,
		FileName:             b.FileName,
		QuestionCooldown:     b.QuestionCooldown.Duration,
		ConversationCooldown: b.ConversationCooldown.Duration,
		NotifyTimeout:        b.NotifyTimeout.Duration,
	}
	if notifyOn && b.ControllerHost != "" && b.ControllerPort > 0 {
		bc.Notifier = notify.NewClient(b.ControllerHost, b.ControllerPort, b.NotifyTimeout.Duration)
	}
	return bc, nil
}
