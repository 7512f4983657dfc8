package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sessiond/internal/bench"
	"sessiond/internal/config"
	"sessiond/internal/session"
)

func newBenchCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench [model-id]",
		Short: "Run the benchmark conversations once and exit",
		Long: "Loads the model, drives every conversation of the input file through the session,\n" +
			"writes the measurements and notifies the controller. Interrupt to stop early; the\n" +
			"partial run is still written.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.DefaultModel = args[0]
			}
			log := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := runBench(ctx, cfg, log, !opts.noNotify)
			if err != nil {
				return err
			}
			log.Info().
				Int("conversations", res.Conversations).
				Int("questions", res.Questions).
				Int("skipped", res.SkippedQuestions).
				Bool("interrupted", res.Interrupted).
				Bool("notified", res.Notified).
				Str("path", res.Path).
				Msg("benchmark finished")
			// give the controller time to act on the notification
			time.Sleep(cfg.Bench.ExitDelay.Duration)
			return nil
		},
	}
	cmd.Flags().DurationVar(&opts.exitDelay, "exit-delay", 0, "Pause before exiting after the run completes")
	return cmd
}

// runBench loads the model, runs the harness to completion and returns its
// result. A save failure is logged by the harness and is not an error here.
func runBench(ctx context.Context, cfg config.Config, log zerolog.Logger, notifyOn bool) (bench.Result, error) {
	if cfg.DefaultModel == "" {
		return bench.Result{}, errors.New("no model: pass a model id or set default_model")
	}
	input, err := bench.ReadInput(cfg.Bench.Input)
	if err != nil {
		return bench.Result{}, err
	}
	reg, err := loadRegistry(cfg, log)
	if err != nil {
		return bench.Result{}, err
	}
	m, ok := reg.Lookup(cfg.DefaultModel)
	if !ok {
		return bench.Result{}, errors.Errorf("model not found: %s", cfg.DefaultModel)
	}
	bcfg, err := benchConfig(cfg, log, notifyOn)
	if err != nil {
		return bench.Result{}, err
	}

	s := session.New(newEngine(cfg), session.Config{Logger: log})
	defer s.Close()

	s.RequestReload(session.Model{
		ID:             m.ID,
		Lib:            m.Lib,
		Path:           m.Path,
		DisplayName:    m.Name,
		EstimatedBytes: m.EstimatedBytes,
	})
	st, err := s.Settle(ctx)
	if err != nil {
		return bench.Result{}, errors.Wrap(err, "load model")
	}
	switch st {
	case session.StateReady:
	case session.StateFailed:
		return bench.Result{}, errors.Errorf("load model %s: %s", m.ID, lastMessage(s))
	default:
		return bench.Result{}, errors.Errorf("model %s is not chattable after load (state %s)", m.ID, st)
	}

	h := bench.New(input, bcfg)
	h.Start(ctx, s)
	<-h.Done()
	if _, err := s.Settle(context.WithoutCancel(ctx)); err != nil {
		log.Warn().Err(err).Msg("session did not settle")
	}
	return h.Result(), nil
}

func lastMessage(s *session.Session) string {
	msgs := s.Messages()
	if len(msgs) == 0 {
		return "unknown error"
	}
	return msgs[len(msgs)-1].Text
}
