package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/lyapsim/internal/lyapunov"
)

// EnvPrefix prefixes environment overrides, e.g. LYAPSIM_LOGISTIC_R=3.9.
const EnvPrefix = "LYAPSIM"

type Config struct {
	System   string         `yaml:"system" mapstructure:"system"`
	Logistic LogisticConfig `yaml:"logistic" mapstructure:"logistic"`
	Pendulum PendulumConfig `yaml:"pendulum" mapstructure:"pendulum"`
	Run      RunConfig      `yaml:"run" mapstructure:"run"`
}

type LogisticConfig struct {
	R  float64 `yaml:"r" mapstructure:"r"`
	X0 float64 `yaml:"x0" mapstructure:"x0"`
}

type PendulumConfig struct {
	Gravity        float64 `yaml:"gravity" mapstructure:"gravity"`
	Length         float64 `yaml:"length" mapstructure:"length"`
	Damping        float64 `yaml:"damping" mapstructure:"damping"`
	DriveAmplitude float64 `yaml:"drive_amplitude" mapstructure:"drive_amplitude"`
	DriveFrequency float64 `yaml:"drive_frequency" mapstructure:"drive_frequency"`
	Theta0         float64 `yaml:"theta0" mapstructure:"theta0"`
	Omega0         float64 `yaml:"omega0" mapstructure:"omega0"`
	Dt             float64 `yaml:"dt" mapstructure:"dt"`
}

type RunConfig struct {
	Delta0         float64 `yaml:"delta0" mapstructure:"delta0"`
	TotalSteps     int     `yaml:"total_steps" mapstructure:"total_steps"`
	Transient      int     `yaml:"transient" mapstructure:"transient"`
	RenormSteps    int     `yaml:"renorm_steps" mapstructure:"renorm_steps"`
	RenormInterval float64 `yaml:"renorm_interval" mapstructure:"renorm_interval"`
	SampleEvery    int     `yaml:"sample_every" mapstructure:"sample_every"`
	ChunkSize      int     `yaml:"chunk_size" mapstructure:"chunk_size"`
}

func DefaultConfig() *Config {
	return FromParams(lyapunov.DefaultLogisticParams())
}

// FromParams builds a config holding p. Fields of the other system take
// their defaults.
func FromParams(p lyapunov.Params) *Config {
	pend := lyapunov.DefaultPendulumParams()
	logi := lyapunov.DefaultLogisticParams()
	if p.System == lyapunov.SystemPendulum {
		pend = p
	} else {
		logi = p
	}
	return &Config{
		System: string(p.System),
		Logistic: LogisticConfig{
			R:  logi.R,
			X0: logi.X0,
		},
		Pendulum: PendulumConfig{
			Gravity:        pend.Gravity,
			Length:         pend.Length,
			Damping:        pend.Damping,
			DriveAmplitude: pend.DriveAmplitude,
			DriveFrequency: pend.DriveFrequency,
			Theta0:         pend.Theta0,
			Omega0:         pend.Omega0,
			Dt:             pend.Dt,
		},
		Run: RunConfig{
			Delta0:         p.Delta0,
			TotalSteps:     p.TotalSteps,
			Transient:      p.Transient,
			RenormSteps:    p.RenormSteps,
			RenormInterval: pend.RenormInterval,
			SampleEvery:    p.SampleEvery,
			ChunkSize:      p.ChunkSize,
		},
	}
}

// Params converts the config into sanitized run parameters. Only the fields
// of the selected system are carried over.
func (c *Config) Params() (lyapunov.Params, error) {
	sys, err := lyapunov.ParseSystem(c.System)
	if err != nil {
		return lyapunov.Params{}, err
	}
	p := lyapunov.Params{
		System:      sys,
		Delta0:      c.Run.Delta0,
		TotalSteps:  c.Run.TotalSteps,
		Transient:   c.Run.Transient,
		RenormSteps: c.Run.RenormSteps,
		SampleEvery: c.Run.SampleEvery,
		ChunkSize:   c.Run.ChunkSize,
	}
	switch sys {
	case lyapunov.SystemPendulum:
		p.Gravity = c.Pendulum.Gravity
		p.Length = c.Pendulum.Length
		p.Damping = c.Pendulum.Damping
		p.DriveAmplitude = c.Pendulum.DriveAmplitude
		p.DriveFrequency = c.Pendulum.DriveFrequency
		p.Theta0 = c.Pendulum.Theta0
		p.Omega0 = c.Pendulum.Omega0
		p.Dt = c.Pendulum.Dt
		p.RenormInterval = c.Run.RenormInterval
	default:
		p.R = c.Logistic.R
		p.X0 = c.Logistic.X0
	}
	return p.Sanitize(), nil
}

// Load reads a yaml config over the defaults. See LoadOver.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver layers, from lowest to highest priority: base, the yaml file at
// path (skipped when path is empty), LYAPSIM_* environment variables.
func LoadOver(path string, base *Config) (*Config, error) {
	v := viper.New()
	setDefaults(v, base)

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config %s: %w", path, os.ErrNotExist)
			}
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("system", c.System)

	v.SetDefault("logistic.r", c.Logistic.R)
	v.SetDefault("logistic.x0", c.Logistic.X0)

	v.SetDefault("pendulum.gravity", c.Pendulum.Gravity)
	v.SetDefault("pendulum.length", c.Pendulum.Length)
	v.SetDefault("pendulum.damping", c.Pendulum.Damping)
	v.SetDefault("pendulum.drive_amplitude", c.Pendulum.DriveAmplitude)
	v.SetDefault("pendulum.drive_frequency", c.Pendulum.DriveFrequency)
	v.SetDefault("pendulum.theta0", c.Pendulum.Theta0)
	v.SetDefault("pendulum.omega0", c.Pendulum.Omega0)
	v.SetDefault("pendulum.dt", c.Pendulum.Dt)

	v.SetDefault("run.delta0", c.Run.Delta0)
	v.SetDefault("run.total_steps", c.Run.TotalSteps)
	v.SetDefault("run.transient", c.Run.Transient)
	v.SetDefault("run.renorm_steps", c.Run.RenormSteps)
	v.SetDefault("run.renorm_interval", c.Run.RenormInterval)
	v.SetDefault("run.sample_every", c.Run.SampleEvery)
	v.SetDefault("run.chunk_size", c.Run.ChunkSize)
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
