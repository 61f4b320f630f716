package core

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const envPrefix = "EMBER_"

// Duration lets durations be written as strings ("250ms", "2s") in the config file.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type ApplicationSection struct {
	Name   string `toml:"name"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererSection struct {
	// Number of frames that may be in flight at once.
	FrameSlots uint32 `toml:"frame_slots"`
	// Zero waits forever.
	FenceTimeout Duration `toml:"fence_timeout"`
	// Consecutive fence timeouts tolerated before the device is declared lost.
	MaxFenceTimeouts uint32     `toml:"max_fence_timeouts"`
	PresentMode      string     `toml:"present_mode"`
	Validation       bool       `toml:"validation"`
	DeviceExtensions []string   `toml:"device_extensions"`
	ClearColor       [4]float32 `toml:"clear_color"`
}

type AssetsSection struct {
	ShaderDir string `toml:"shader_dir"`
	ShaderSet string `toml:"shader_set"`
	Watch     bool   `toml:"watch"`
}

type LogSection struct {
	Level LogLevel `toml:"level"`
}

type Config struct {
	Application ApplicationSection `toml:"application"`
	Renderer    RendererSection    `toml:"renderer"`
	Assets      AssetsSection      `toml:"assets"`
	Log         LogSection         `toml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationSection{
			Name:   "Ember",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererSection{
			FrameSlots:       2,
			FenceTimeout:     Duration{time.Second},
			MaxFenceTimeouts: 3,
			PresentMode:      "mailbox",
			Validation:       false,
			ClearColor:       [4]float32{0.0, 0.0, 0.2, 1.0},
		},
		Assets: AssetsSection{
			ShaderDir: "assets/shaders",
			ShaderSet: "builtin.world",
			Watch:     true,
		},
		Log: LogSection{
			Level: LogLevelInfo,
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults. A missing file is not an error.
// Values from a .env file and from EMBER_* environment variables win over the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to decode config %s", path)
		}
	case errors.Is(err, os.ErrNotExist):
		LogDebug("config file %s not found, using defaults", path)
	default:
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	u32 := func(key string, dst *uint32) error {
		v, ok := lookup(envPrefix + key)
		if !ok {
			return nil
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return errors.Wrapf(err, "invalid %s%s", envPrefix, key)
		}
		*dst = uint32(n)
		return nil
	}

	str("APP_NAME", &c.Application.Name)
	if err := u32("WIDTH", &c.Application.Width); err != nil {
		return err
	}
	if err := u32("HEIGHT", &c.Application.Height); err != nil {
		return err
	}
	if err := u32("FRAME_SLOTS", &c.Renderer.FrameSlots); err != nil {
		return err
	}
	if err := u32("MAX_FENCE_TIMEOUTS", &c.Renderer.MaxFenceTimeouts); err != nil {
		return err
	}
	if v, ok := lookup(envPrefix + "FENCE_TIMEOUT"); ok {
		if err := c.Renderer.FenceTimeout.UnmarshalText([]byte(v)); err != nil {
			return err
		}
	}
	if v, ok := lookup(envPrefix + "VALIDATION"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %sVALIDATION", envPrefix)
		}
		c.Renderer.Validation = b
	}
	str("PRESENT_MODE", &c.Renderer.PresentMode)
	str("SHADER_DIR", &c.Assets.ShaderDir)
	if v, ok := lookup(envPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = LogLevel(v)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Renderer.FrameSlots < 1 {
		return errors.Newf("renderer.frame_slots must be at least 1, got %d", c.Renderer.FrameSlots)
	}
	if c.Renderer.FenceTimeout.Duration < 0 {
		return errors.Newf("renderer.fence_timeout must not be negative, got %s", c.Renderer.FenceTimeout)
	}
	c.Renderer.PresentMode = strings.ToLower(c.Renderer.PresentMode)
	switch c.Renderer.PresentMode {
	case "mailbox", "fifo", "immediate", "fifo_relaxed":
	default:
		return errors.Newf("renderer.present_mode %q is not one of mailbox, fifo, immediate, fifo_relaxed", c.Renderer.PresentMode)
	}
	return nil
}
