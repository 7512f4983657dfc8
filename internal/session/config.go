package session

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultWorkerDepth  = 256
	defaultVisionPrefix = "minigpt"
	defaultAuxModelLib  = "vicuna-7b-v1.3-q3f16_0"
	defaultAuxConfig    = `{"conv_template":"minigpt"}`
	defaultImageSize    = 112
	defaultImagePrefix  = "<Img>"
	defaultImageSuffix  = "</Img> "
)

// Config encapsulates the tunables for Session construction.
type Config struct {
	Logger    zerolog.Logger
	Publisher EventPublisher
	// WorkerDepth bounds the number of queued worker tasks.
	WorkerDepth int
	// VisionPrefix marks display names of vision-enabled models.
	VisionPrefix string
	// AuxModelLib is the language model loaded next to a vision adapter. It is
	// looked up in the directory of the adapter's model path.
	AuxModelLib string
	// AuxAppConfig is passed to the engine when loading AuxModelLib.
	AuxAppConfig string
	// ImageSize is the square edge images are resized to before prefill.
	ImageSize   int
	ImagePrefix string
	ImageSuffix string
	// Now is the clock used for load timings.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	if c.WorkerDepth <= 0 {
		c.WorkerDepth = defaultWorkerDepth
	}
	if c.VisionPrefix == "" {
		c.VisionPrefix = defaultVisionPrefix
	}
	if c.AuxModelLib == "" {
		c.AuxModelLib = defaultAuxModelLib
	}
	if c.AuxAppConfig == "" {
		c.AuxAppConfig = defaultAuxConfig
	}
	if c.ImageSize <= 0 {
		c.ImageSize = defaultImageSize
	}
	if c.ImagePrefix == "" {
		c.ImagePrefix = defaultImagePrefix
	}
	if c.ImageSuffix == "" {
		c.ImageSuffix = defaultImageSuffix
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Model describes the model set a session loads on reload. It is replaced
// wholesale on reload and cleared on terminate.
type Model struct {
	ID          string
	Lib         string
	Path        string
	DisplayName string
	// UseVision is derived from DisplayName when the session stores the model.
	UseVision bool
	// EstimatedBytes is the memory the model needs; reload fails if the
	// engine reports less available.
	EstimatedBytes int64
}

func (c Config) usesVision(displayName string) bool {
	return strings.HasPrefix(displayName, c.VisionPrefix)
}

// LoadTiming records when the last successful model load started and how long it took.
type LoadTiming struct {
	Start    time.Time
	Duration time.Duration
}
