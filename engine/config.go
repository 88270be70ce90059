package engine

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/reverie/engine/core"
)

// ApplicationConfig is read from reverie.toml next to the binary.
// Command-line flags override the headless fields after load.
type ApplicationConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting width.
	Width uint32 `toml:"width"`
	// Window starting height.
	Height uint32 `toml:"height"`
	// Prefer the MAILBOX present mode when the surface offers it.
	// FIFO otherwise.
	Mailbox bool `toml:"mailbox"`
	// Request Vulkan validation layers when available.
	Validation bool `toml:"validation"`
	// Directory holding the game dynamic library.
	GameDir string `toml:"game_dir"`
	// Directory holding the compiled SPIR-V shaders.
	ShaderDir string `toml:"shader_dir"`

	// Headless export settings, normally set via flags.
	Headless  bool   `toml:"headless"`
	Frames    int    `toml:"frames"`
	OutputDir string `toml:"output_dir"`
}

func DefaultConfig() ApplicationConfig {
	return ApplicationConfig{
		Name:      "Reverie",
		Width:     1280,
		Height:    720,
		Mailbox:   true,
		GameDir:   "testbed",
		ShaderDir: "assets/shaders",
		Frames:    120,
		OutputDir: "frames",
	}
}

// LoadConfig reads path and overlays it on the defaults. A missing
// file is not an error.
func LoadConfig(path string) ApplicationConfig {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		core.LogDebug("no config at %s, using defaults", path)
		return cfg
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		core.LogWarn("config %s is invalid, using defaults: %s", path, err)
		return DefaultConfig()
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		core.LogWarn("config window size %dx%d is invalid, using defaults", cfg.Width, cfg.Height)
		cfg.Width = 1280
		cfg.Height = 720
	}
	return cfg
}
