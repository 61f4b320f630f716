package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ember.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
[application]
name = "Testbed"
width = 800
height = 600

[renderer]
frame_slots = 3
fence_timeout = "250ms"
present_mode = "FIFO"
clear_color = [0.1, 0.2, 0.3, 1.0]

[assets]
shader_dir = "shaders"
watch = false
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Application.Name != "Testbed" || cfg.Application.Width != 800 || cfg.Application.Height != 600 {
		t.Fatalf("application section %+v", cfg.Application)
	}
	if cfg.Renderer.FrameSlots != 3 || cfg.Renderer.FenceTimeout.Duration != 250*time.Millisecond {
		t.Fatalf("renderer section %+v", cfg.Renderer)
	}
	if cfg.Renderer.PresentMode != "fifo" {
		t.Fatalf("present mode %q was not normalized", cfg.Renderer.PresentMode)
	}
	if cfg.Renderer.ClearColor != [4]float32{0.1, 0.2, 0.3, 1.0} {
		t.Fatalf("clear color %v", cfg.Renderer.ClearColor)
	}
	// untouched keys keep their defaults
	if cfg.Renderer.MaxFenceTimeouts != 3 || cfg.Assets.ShaderSet != "builtin.world" || cfg.Application.X != 100 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.Assets.Watch {
		t.Fatal("watch not disabled")
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultConfig()
	if cfg.Renderer.FrameSlots != def.Renderer.FrameSlots || cfg.Application.Name != def.Application.Name {
		t.Fatalf("got %+v", cfg)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"zero slots":       "[renderer]\nframe_slots = 0\n",
		"present mode":     "[renderer]\npresent_mode = \"vsync\"\n",
		"negative timeout": "[renderer]\nfence_timeout = \"-1s\"\n",
		"bad duration":     "[renderer]\nfence_timeout = \"soon\"\n",
		"bad toml":         "[renderer\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("EMBER_FRAME_SLOTS", "4")
	t.Setenv("EMBER_FENCE_TIMEOUT", "2s")
	t.Setenv("EMBER_VALIDATION", "true")
	t.Setenv("EMBER_PRESENT_MODE", "immediate")
	t.Setenv("EMBER_WIDTH", "1920")

	cfg, err := LoadConfig(writeConfig(t, "[renderer]\nframe_slots = 2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Renderer.FrameSlots != 4 || cfg.Renderer.FenceTimeout.Duration != 2*time.Second {
		t.Fatalf("renderer %+v", cfg.Renderer)
	}
	if !cfg.Renderer.Validation || cfg.Renderer.PresentMode != "immediate" || cfg.Application.Width != 1920 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	for key, value := range map[string]string{
		"EMBER_FRAME_SLOTS":   "many",
		"EMBER_VALIDATION":    "sometimes",
		"EMBER_FENCE_TIMEOUT": "later",
		"EMBER_HEIGHT":        "-1",
	} {
		cfg := DefaultConfig()
		lookup := func(k string) (string, bool) {
			if k == key {
				return value, true
			}
			return "", false
		}
		if err := cfg.applyEnv(lookup); err == nil {
			t.Errorf("%s=%s accepted", key, value)
		}
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatal(err)
	}
	out, err := d.MarshalText()
	if err != nil || string(out) != "1m30s" {
		t.Fatalf("marshal gave %q, %v", out, err)
	}
}
