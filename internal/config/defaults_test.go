package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestWithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	if cfg.Addr != DefaultAddr || cfg.Engine != "echo" || cfg.LlamaCtx != DefaultLlamaCtx {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	b := cfg.Bench
	if b.ControllerPort != 5100 || b.QuestionCooldown.Duration != 5*time.Second || b.ConversationCooldown.Duration != time.Minute || b.ExitDelay.Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected bench defaults: %+v", b)
	}
	if b.Input != filepath.Join(DefaultMeasurementsDir, "input.json") {
		t.Fatalf("input should default next to measurements, got %q", b.Input)
	}

	kept := Config{Addr: ":1", Bench: Bench{MeasurementsDir: "/data", QuestionCooldown: Duration{time.Second}}}.WithDefaults()
	if kept.Addr != ":1" || kept.Bench.QuestionCooldown.Duration != time.Second || kept.Bench.Input != "/data/input.json" {
		t.Fatalf("explicit values must survive: %+v", kept)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SESSIOND_ADDR":              ":9090",
		"SESSIOND_ENGINE":            "llama",
		"SESSIOND_LLAMA_CTX":         "4096",
		"SESSIOND_CONTROLLER_PORT":   "not-a-number",
		"SESSIOND_QUESTION_COOLDOWN": "100ms",
		"SESSIOND_EXIT_DELAY":        "garbage",
	}
	base := Config{Addr: ":8000", Bench: Bench{ControllerPort: 7000, ExitDelay: Duration{time.Second}}}
	cfg := base.ApplyEnv(func(k string) string { return env[k] })
	if cfg.Addr != ":9090" || cfg.Engine != "llama" || cfg.LlamaCtx != 4096 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Bench.ControllerPort != 7000 || cfg.Bench.ExitDelay.Duration != time.Second {
		t.Fatalf("malformed env must be ignored: %+v", cfg.Bench)
	}
	if cfg.Bench.QuestionCooldown.Duration != 100*time.Millisecond {
		t.Fatalf("duration env not applied: %+v", cfg.Bench)
	}
}
