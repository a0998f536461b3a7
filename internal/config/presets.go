package config

import (
	"maps"
	"slices"

	"github.com/san-kum/lyapsim/internal/lyapunov"
)

var Presets = map[string]map[string]*Config{
	"logistic": {
		"stable":  logisticPreset(2.5),
		"period2": logisticPreset(3.2),
		"onset":   logisticPreset(3.5699456),
		"chaotic": logisticPreset(3.8),
		"full":    logisticPreset(4.0),
	},
	"pendulum": {
		"damped":   pendulumPreset(0, 2.0/3.0),
		"periodic": pendulumPreset(0.9, 2.0/3.0),
		"chaotic":  pendulumPreset(1.5, 2.0/3.0),
	},
}

func logisticPreset(r float64) *Config {
	p := lyapunov.DefaultLogisticParams()
	p.R = r
	return FromParams(p)
}

func pendulumPreset(drive, freq float64) *Config {
	p := lyapunov.DefaultPendulumParams()
	p.DriveAmplitude = drive
	p.DriveFrequency = freq
	return FromParams(p)
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(system, preset string) *Config {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	cfg, ok := systemPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(system string) []string {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(systemPresets))
}
