// Package config loads roundtrip settings from defaults, an optional
// roundtrip.yaml, ROUNDTRIP_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gogpu/roundtrip"
)

// EnvPrefix prefixes every environment variable, e.g. ROUNDTRIP_ENTRIES.
const EnvPrefix = "ROUNDTRIP"

// Keys shared by flags, environment and config file.
const (
	KeyIterations = "iterations"
	KeyEntries    = "entries"
	KeySync       = "sync"
	KeyBackend    = "backend"
	KeyPower      = "power"
	KeyTimeout    = "timeout"
	KeyVerify     = "verify"
	KeySPIRV      = "spirv"
	KeyRepeat     = "repeat"
	KeyLogLevel   = "log-level"
)

// Settings is the flat configuration of one roundtrip invocation.
type Settings struct {
	Iterations int           `mapstructure:"iterations"`
	Entries    int           `mapstructure:"entries"`
	Sync       string        `mapstructure:"sync"`
	Backend    string        `mapstructure:"backend"`
	Power      string        `mapstructure:"power"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Verify     bool          `mapstructure:"verify"`
	SPIRV      string        `mapstructure:"spirv"`
	Repeat     int           `mapstructure:"repeat"`
	LogLevel   string        `mapstructure:"log-level"`
}

// Default returns the settings used when nothing else is configured.
func Default() Settings {
	d := roundtrip.DefaultConfig()
	return Settings{
		Iterations: d.Iterations,
		Entries:    d.Entries,
		Sync:       d.Sync.String(),
		Backend:    d.Backend,
		Power:      d.PowerPreference.String(),
		Timeout:    d.Timeout,
		Repeat:     1,
		LogLevel:   "warn",
	}
}

// RegisterFlags defines the run flags on fs with their default values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Int(KeyIterations, d.Iterations, "number of compute dispatches")
	fs.Int(KeyEntries, d.Entries, "number of 32-bit words in the buffer")
	fs.String(KeySync, d.Sync, "completion waits in the dispatch loop: none, each, every:N")
	fs.String(KeyBackend, d.Backend, "backend: "+strings.Join(roundtrip.Backends(), ", "))
	fs.String(KeyPower, d.Power, "adapter preference: default, low-power, high-performance")
	fs.Duration(KeyTimeout, d.Timeout, "bound on the whole run (0 disables)")
	fs.Bool(KeyVerify, d.Verify, "check every returned word against the expected value")
	fs.String(KeySPIRV, d.SPIRV, "precompiled SPIR-V kernel instead of the embedded one")
	fs.Int(KeyRepeat, d.Repeat, "run the round trip this many times and compare byte counts")
}

// Load reads settings. cfgFile names an explicit config file; when empty,
// roundtrip.yaml is looked up in the working directory and is optional.
// Flags that were set on the command line override everything else.
func Load(cfgFile string, flags ...*pflag.FlagSet) (Settings, error) {
	v := viper.New()

	setDefaults(v, Default())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("roundtrip")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for _, fs := range flags {
		if fs == nil {
			continue
		}
		if err := v.BindPFlags(fs); err != nil {
			return Settings{}, fmt.Errorf("binding flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("reading config: %w", err)
		}
		// No config file is fine.
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return s, nil
}

func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault(KeyIterations, d.Iterations)
	v.SetDefault(KeyEntries, d.Entries)
	v.SetDefault(KeySync, d.Sync)
	v.SetDefault(KeyBackend, d.Backend)
	v.SetDefault(KeyPower, d.Power)
	v.SetDefault(KeyTimeout, d.Timeout)
	v.SetDefault(KeyVerify, d.Verify)
	v.SetDefault(KeySPIRV, d.SPIRV)
	v.SetDefault(KeyRepeat, d.Repeat)
	v.SetDefault(KeyLogLevel, d.LogLevel)
}

// RunConfig converts s into a validated run configuration.
func (s Settings) RunConfig() (roundtrip.Config, error) {
	sync, err := roundtrip.ParseSyncPolicy(s.Sync)
	if err != nil {
		return roundtrip.Config{}, err
	}
	power, err := roundtrip.ParsePowerPreference(s.Power)
	if err != nil {
		return roundtrip.Config{}, err
	}

	cfg := roundtrip.Config{
		Iterations:      s.Iterations,
		Entries:         s.Entries,
		Sync:            sync,
		Backend:         s.Backend,
		PowerPreference: power,
		Timeout:         s.Timeout,
		Verify:          s.Verify,
		ShaderPath:      s.SPIRV,
	}
	if err := cfg.Validate(); err != nil {
		return roundtrip.Config{}, err
	}
	if s.Repeat < 1 {
		return roundtrip.Config{}, fmt.Errorf("%w: repeat must be at least 1, got %d", roundtrip.ErrInvalidConfig, s.Repeat)
	}
	return cfg, nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (s Settings) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s.LogLevel, err)
	}
	return l, nil
}
