package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	want := DefaultConfig()
	if cfg != want {
		t.Errorf("missing file gave %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reverie.toml")
	data := []byte("name = \"Demo\"\nwidth = 800\nheight = 600\nmailbox = false\nvalidation = true\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadConfig(path)
	if cfg.Name != "Demo" {
		t.Errorf("Name = %q, want Demo", cfg.Name)
	}
	if cfg.Width != 800 || cfg.Height != 600 {
		t.Errorf("size = %dx%d, want 800x600", cfg.Width, cfg.Height)
	}
	if cfg.Mailbox {
		t.Error("Mailbox not overridden to false")
	}
	if !cfg.Validation {
		t.Error("Validation not overridden to true")
	}
	// Fields absent from the file keep their defaults.
	if cfg.GameDir != "testbed" || cfg.ShaderDir != "assets/shaders" {
		t.Errorf("unset fields lost defaults: %+v", cfg)
	}
}

func TestLoadConfigInvalidToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("width = = 12"), 0o644); err != nil {
		t.Fatal(err)
	}
	if cfg := LoadConfig(path); cfg != DefaultConfig() {
		t.Errorf("invalid toml gave %+v, want defaults", cfg)
	}
}

func TestLoadConfigZeroSizeFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zero.toml")
	if err := os.WriteFile(path, []byte("width = 0\nheight = 0"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := LoadConfig(path)
	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("zero size fell back to %dx%d, want 1280x720", cfg.Width, cfg.Height)
	}
}
