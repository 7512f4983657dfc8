package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"sessiond/pkg/types"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by defaults via WithDefaults.
type Config struct {
	Addr         string       `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string       `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	Models       []ModelEntry `json:"models" yaml:"models" toml:"models"`
	DefaultModel string       `json:"default_model" yaml:"default_model" toml:"default_model"`
	// Engine selects the inference backend: echo or llama.
	Engine       string   `json:"engine" yaml:"engine" toml:"engine"`
	LlamaCtx     int      `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads int      `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	LogLevel     string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat    string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	Bench        Bench    `json:"bench" yaml:"bench" toml:"bench"`
}

// ModelEntry declares a model explicitly, in addition to the ones found in ModelsDir.
type ModelEntry struct {
	ID             string `json:"id" yaml:"id" toml:"id"`
	Lib            string `json:"lib" yaml:"lib" toml:"lib"`
	Path           string `json:"path" yaml:"path" toml:"path"`
	DisplayName    string `json:"display_name" yaml:"display_name" toml:"display_name"`
	EstimatedBytes int64  `json:"estimated_bytes" yaml:"estimated_bytes" toml:"estimated_bytes"`
}

// Bench configures unattended benchmark runs.
type Bench struct {
	// Input defaults to input.json inside MeasurementsDir.
	Input                string   `json:"input" yaml:"input" toml:"input"`
	MeasurementsDir      string   `json:"measurements_dir" yaml:"measurements_dir" toml:"measurements_dir"`
	FileName             string   `json:"file_name" yaml:"file_name" toml:"file_name"`
	ControllerHost       string   `json:"controller_host" yaml:"controller_host" toml:"controller_host"`
	ControllerPort       int      `json:"controller_port" yaml:"controller_port" toml:"controller_port"`
	QuestionCooldown     Duration `json:"question_cooldown" yaml:"question_cooldown" toml:"question_cooldown"`
	ConversationCooldown Duration `json:"conversation_cooldown" yaml:"conversation_cooldown" toml:"conversation_cooldown"`
	ExitDelay            Duration `json:"exit_delay" yaml:"exit_delay" toml:"exit_delay"`
	NotifyTimeout        Duration `json:"notify_timeout" yaml:"notify_timeout" toml:"notify_timeout"`
}

// Duration decodes from strings like "1.5s" or "1m" in every supported format.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.Duration.String()), nil }

// ToModels converts the declared entries to registry models.
func (c Config) ToModels() []types.Model {
	out := make([]types.Model, 0, len(c.Models))
	for _, m := range c.Models {
		out = append(out, types.Model{
			ID:             m.ID,
			Name:           m.DisplayName,
			Lib:            m.Lib,
			Path:           m.Path,
			EstimatedBytes: m.EstimatedBytes,
		})
	}
	return out
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, errors.Wrap(err, "decode yaml config")
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, errors.Wrap(err, "decode json config")
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, errors.Wrap(err, "decode toml config")
		}
	default:
		return cfg, errors.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
