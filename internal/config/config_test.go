package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/lyapsim/internal/lyapunov"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.System != "logistic" {
		t.Errorf("expected system logistic, got %s", cfg.System)
	}
	p, err := cfg.Params()
	if err != nil {
		t.Fatal(err)
	}
	if p != lyapunov.DefaultLogisticParams() {
		t.Errorf("default config should round to the default params, got %+v", p)
	}
}

func TestPendulumConfigParams(t *testing.T) {
	cfg := FromParams(lyapunov.DefaultPendulumParams())
	p, err := cfg.Params()
	if err != nil {
		t.Fatal(err)
	}
	if p != lyapunov.DefaultPendulumParams() {
		t.Errorf("got %+v", p)
	}
}

func TestParamsUnknownSystem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.System = "lorenz"
	if _, err := cfg.Params(); err == nil {
		t.Error("expected error for unknown system")
	}
}

func TestParamsAreSanitized(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logistic.R = 12
	cfg.Run.ChunkSize = 1

	p, err := cfg.Params()
	if err != nil {
		t.Fatal(err)
	}
	if p.R != lyapunov.MaxR || p.ChunkSize != lyapunov.MinChunkSize {
		t.Errorf("expected clamped values, got r=%v chunk=%d", p.R, p.ChunkSize)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("logistic", "stable")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Logistic.R != 2.5 {
		t.Errorf("expected r 2.5, got %f", cfg.Logistic.R)
	}

	cfg.Logistic.R = 1
	if Presets["logistic"]["stable"].Logistic.R != 2.5 {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("logistic", "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "stable") != nil {
		t.Error("expected nil for nonexistent system")
	}
}

func TestListPresets(t *testing.T) {
	got := ListPresets("logistic")
	want := []string{"chaotic", "full", "onset", "period2", "stable"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("presets[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent system")
	}
}

func TestPresetsProduceValidParams(t *testing.T) {
	for system, presets := range Presets {
		for name, cfg := range presets {
			p, err := cfg.Params()
			if err != nil {
				t.Errorf("%s/%s: %v", system, name, err)
				continue
			}
			if string(p.System) != system {
				t.Errorf("%s/%s: system %s", system, name, p.System)
			}
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := GetPreset("pendulum", "chaotic")
	cfg.Run.TotalSteps = 12345
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded config differs:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("logistic:\n  r: 3.3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logistic.R != 3.3 {
		t.Errorf("r: got %v", cfg.Logistic.R)
	}
	if cfg.Run.ChunkSize != DefaultConfig().Run.ChunkSize {
		t.Errorf("chunk size should keep its default, got %d", cfg.Run.ChunkSize)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LYAPSIM_LOGISTIC_R", "3.9")
	t.Setenv("LYAPSIM_RUN_TOTAL_STEPS", "777")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logistic.R != 3.9 || cfg.Run.TotalSteps != 777 {
		t.Errorf("env overrides not applied: r=%v steps=%d", cfg.Logistic.R, cfg.Run.TotalSteps)
	}
}

func TestLoadOverBase(t *testing.T) {
	cfg, err := LoadOver("", GetPreset("pendulum", "damped"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.System != "pendulum" || cfg.Pendulum.DriveAmplitude != 0 {
		t.Errorf("expected the base preset, got %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}
