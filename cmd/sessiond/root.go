package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sessiond/internal/bench"
	"sessiond/internal/common/fsutil"
	"sessiond/internal/config"
	"sessiond/internal/engine"
	"sessiond/internal/registry"
)

// options mirrors the command-line flags. Only flags the user actually set
// override the config file and the environment.
type options struct {
	configPath   string
	addr         string
	modelsDir    string
	defaultModel string
	engine       string
	llamaCtx     int
	llamaThreads int
	logLevel     string
	logFormat    string

	input                string
	measurementsDir      string
	fileName             string
	controllerHost       string
	controllerPort       int
	questionCooldown     time.Duration
	conversationCooldown time.Duration
	exitDelay            time.Duration
	noNotify             bool
}

func newRootCmd() *cobra.Command { return newRootCmdWith(&options{}) }

func newRootCmdWith(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "sessiond",
		Short:         "Chat session daemon and benchmark runner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", os.Getenv(config.EnvPrefix+"CONFIG"), "Config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&opts.modelsDir, "models-dir", "", "Directory to scan for *.gguf model files (default "+config.DefaultModelsDir+")")
	pf.StringVar(&opts.defaultModel, "default-model", "", "Model id loaded when none is given")
	pf.StringVar(&opts.engine, "engine", "", "Inference engine: echo|llama (default "+config.DefaultEngine+")")
	pf.IntVar(&opts.llamaCtx, "llama-ctx", 0, "llama context size in tokens")
	pf.IntVar(&opts.llamaThreads, "llama-threads", 0, "llama threads (0 = runtime default)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: console|json")
	pf.StringVar(&opts.input, "input", "", "Benchmark conversations file (default <measurements-dir>/input.json)")
	pf.StringVar(&opts.measurementsDir, "measurements-dir", "", "Directory for benchmark results (default "+config.DefaultMeasurementsDir+")")
	pf.StringVar(&opts.fileName, "file-name", "", "Base name of the benchmark results file")
	pf.StringVar(&opts.controllerHost, "controller-host", "", "Host of the controller notified when a run completes")
	pf.IntVar(&opts.controllerPort, "controller-port", 0, "Port of the controller notified when a run completes")
	pf.DurationVar(&opts.questionCooldown, "question-cooldown", 0, "Pause between questions")
	pf.DurationVar(&opts.conversationCooldown, "conversation-cooldown", 0, "Pause between conversations")
	pf.BoolVar(&opts.noNotify, "no-notify", false, "Do not notify the controller when a run completes")

	root.AddCommand(newServeCmd(opts), newBenchCmd(opts))
	return root
}

// resolve builds the effective configuration: config file, then SESSIOND_*
// environment, then built-in defaults, then explicitly set flags.
func (o *options) resolve(flags *pflag.FlagSet) (config.Config, error) {
	var cfg config.Config
	if o.configPath != "" {
		c, err := config.Load(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	cfg = cfg.ApplyEnv(os.Getenv)
	derivedInput := cfg.Bench.Input == ""
	cfg = cfg.WithDefaults()

	changed := flags.Changed
	if changed("addr") {
		cfg.Addr = o.addr
	}
	if changed("models-dir") {
		cfg.ModelsDir = o.modelsDir
	}
	if changed("default-model") {
		cfg.DefaultModel = o.defaultModel
	}
	if changed("engine") {
		cfg.Engine = o.engine
	}
	if changed("llama-ctx") {
		cfg.LlamaCtx = o.llamaCtx
	}
	if changed("llama-threads") {
		cfg.LlamaThreads = o.llamaThreads
	}
	if changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	b := &cfg.Bench
	if changed("input") {
		b.Input = o.input
	}
	if changed("measurements-dir") {
		b.MeasurementsDir = o.measurementsDir
	}
	if changed("file-name") {
		b.FileName = o.fileName
	}
	if changed("controller-host") {
		b.ControllerHost = o.controllerHost
	}
	if changed("controller-port") {
		b.ControllerPort = o.controllerPort
	}
	if changed("question-cooldown") {
		b.QuestionCooldown.Duration = o.questionCooldown
	}
	if changed("conversation-cooldown") {
		b.ConversationCooldown.Duration = o.conversationCooldown
	}
	if changed("exit-delay") {
		b.ExitDelay.Duration = o.exitDelay
	}
	if derivedInput && !changed("input") {
		b.Input = filepath.Join(b.MeasurementsDir, bench.DefaultInputName)
	}

	if cfg.Engine != "echo" && cfg.Engine != "llama" {
		return cfg, errors.Errorf("unknown engine %q (want echo or llama)", cfg.Engine)
	}
	return cfg, nil
}

// newLogger builds the process logger from the resolved level and format.
func newLogger(level, format string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func newEngine(cfg config.Config) engine.Engine {
	if cfg.Engine == "llama" {
		return engine.NewLlama(cfg.LlamaCtx, cfg.LlamaThreads)
	}
	return engine.NewEcho()
}

// loadRegistry merges configured models with the ones found in the models
// dir. A missing models dir is not fatal when models are configured.
func loadRegistry(cfg config.Config, log zerolog.Logger) (*registry.Registry, error) {
	scanned, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		if len(cfg.Models) == 0 && cfg.Engine == "llama" {
			return nil, err
		}
		log.Warn().Err(err).Str("dir", cfg.ModelsDir).Msg("models dir not scanned")
	}
	reg := registry.New(cfg.ToModels(), scanned)
	log.Info().Int("models", reg.Len()).Str("dir", cfg.ModelsDir).Msg("model registry loaded")
	return reg, nil
}

func measurementsDir(cfg config.Config) (string, error) {
	dir, err := fsutil.ExpandHome(cfg.Bench.MeasurementsDir)
	if err != nil {
		return "", errors.Wrap(err, "measurements dir")
	}
	return dir, nil
}
