package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Built-in defaults, lowest precedence.
const (
	DefaultAddr                 = ":8080"
	DefaultModelsDir            = "~/models/llm"
	DefaultEngine               = "echo"
	DefaultLlamaCtx             = 2048
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "console"
	DefaultMeasurementsDir      = "~/Documents/melt_measurements"
	DefaultFileName             = "measurements"
	DefaultControllerHost       = "127.0.0.1"
	DefaultControllerPort       = 5100
	DefaultQuestionCooldown     = 5 * time.Second
	DefaultConversationCooldown = 60 * time.Second
	DefaultExitDelay            = 1500 * time.Millisecond
	DefaultNotifyTimeout        = 10 * time.Second

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SESSIOND_"
)

// WithDefaults fills unset fields with the built-in defaults.
func (c Config) WithDefaults() Config {
	setStr(&c.Addr, DefaultAddr)
	setStr(&c.ModelsDir, DefaultModelsDir)
	setStr(&c.Engine, DefaultEngine)
	setStr(&c.LogLevel, DefaultLogLevel)
	setStr(&c.LogFormat, DefaultLogFormat)
	if c.LlamaCtx <= 0 {
		c.LlamaCtx = DefaultLlamaCtx
	}
	b := &c.Bench
	setStr(&b.MeasurementsDir, DefaultMeasurementsDir)
	setStr(&b.FileName, DefaultFileName)
	setStr(&b.ControllerHost, DefaultControllerHost)
	if b.ControllerPort <= 0 {
		b.ControllerPort = DefaultControllerPort
	}
	if b.Input == "" {
		b.Input = filepath.Join(b.MeasurementsDir, "input.json")
	}
	setDur(&b.QuestionCooldown, DefaultQuestionCooldown)
	setDur(&b.ConversationCooldown, DefaultConversationCooldown)
	setDur(&b.ExitDelay, DefaultExitDelay)
	setDur(&b.NotifyTimeout, DefaultNotifyTimeout)
	return c
}

// ApplyEnv overrides fields from SESSIOND_* variables looked up with getenv.
// Malformed numeric or duration values are ignored.
func (c Config) ApplyEnv(getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	env := func(k string) string { return getenv(EnvPrefix + k) }
	envStr(&c.Addr, env("ADDR"))
	envStr(&c.ModelsDir, env("MODELS_DIR"))
	envStr(&c.DefaultModel, env("DEFAULT_MODEL"))
	envStr(&c.Engine, env("ENGINE"))
	envInt(&c.LlamaCtx, env("LLAMA_CTX"))
	envInt(&c.LlamaThreads, env("LLAMA_THREADS"))
	envStr(&c.LogLevel, env("LOG_LEVEL"))
	envStr(&c.LogFormat, env("LOG_FORMAT"))
	b := &c.Bench
	envStr(&b.Input, env("BENCH_INPUT"))
	envStr(&b.MeasurementsDir, env("MEASUREMENTS_DIR"))
	envStr(&b.FileName, env("BENCH_FILE_NAME"))
	envStr(&b.ControllerHost, env("CONTROLLER_HOST"))
	envInt(&b.ControllerPort, env("CONTROLLER_PORT"))
	envDur(&b.QuestionCooldown, env("QUESTION_COOLDOWN"))
	envDur(&b.ConversationCooldown, env("CONVERSATION_COOLDOWN"))
	envDur(&b.ExitDelay, env("EXIT_DELAY"))
	envDur(&b.NotifyTimeout, env("NOTIFY_TIMEOUT"))
	return c
}

func setStr(p *string, def string) {
	if *p == "" {
		*p = def
	}
}

func setDur(p *Duration, def time.Duration) {
	if p.Duration <= 0 {
		p.Duration = def
	}
}

func envStr(p *string, v string) {
	if v != "" {
		*p = v
	}
}

func envInt(p *int, v string) {
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*p = n
	}
}

func envDur(p *Duration, v string) {
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		p.Duration = d
	}
}
