package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	yml "gopkg.in/yaml.v2"

	"jog-pendant/pkg/grbl"
	"jog-pendant/pkg/input"
	"jog-pendant/pkg/jog"
	"jog-pendant/pkg/logging"
)

const (
	// SettingsFileName is the settings file looked up in the config directory.
	SettingsFileName = "pendant.yml"
	// EnvPrefix prefixes environment overrides. A double underscore separates
	// nested keys, JOGPENDANT_TUNING__FEED_FACTOR sets tuning.feed_factor.
	EnvPrefix = "JOGPENDANT_"
)

// AxisLetters are the axis names a pendant can drive.
const AxisLetters = "XYZABC"

// Settings are the pendant's tunables.
type Settings struct {
	Axes           string         `koanf:"axes"`
	Inches         bool           `koanf:"inches"`
	Tuning         jog.Tuning     `koanf:"tuning"`
	StatusInterval time.Duration  `koanf:"status_interval"`
	HoldDelay      time.Duration  `koanf:"hold_delay"`
	KeyRelease     time.Duration  `koanf:"key_release"`
	Log            logging.Config `koanf:"log"`
}

// DefaultSettings returns the settings used when nothing overrides them.
func DefaultSettings() Settings {
	return Settings{
		Axes:           jog.DefaultLabels,
		Tuning:         jog.DefaultTuning(),
		StatusInterval: grbl.DefaultStatusInterval,
		HoldDelay:      input.DefaultHoldDelay,
		KeyRelease:     input.DefaultKeyRelease,
		Log:            logging.DefaultConfig(),
	}
}

// DefaultSettingsPath returns pendant.yml in the per-user config directory.
func DefaultSettingsPath() string {
	return filepath.Join(DefaultDir(), SettingsFileName)
}

// Validate checks the axis letters, the tuning constants and the timings.
func (s Settings) Validate() error {
	if err := ValidateAxes(s.Axes); err != nil {
		return err
	}

	tuning := []struct {
		key   string
		value int
	}{
		{"tuning.tick_feed_inch", s.Tuning.TickFeedInch},
		{"tuning.tick_feed_metric", s.Tuning.TickFeedMetric},
		{"tuning.hold_distance_inch", s.Tuning.HoldDistanceInch},
		{"tuning.hold_distance_metric", s.Tuning.HoldDistanceMetric},
		{"tuning.feed_factor", s.Tuning.FeedFactor},
		{"tuning.multi_axis_factor", s.Tuning.MultiAxisFactor},
	}
	for _, t := range tuning {
		if t.value <= 0 {
			return fmt.Errorf("%s must be positive, got: %d", t.key, t.value)
		}
	}

	if s.StatusInterval <= 0 {
		return fmt.Errorf("status_interval must be positive, got: %v", s.StatusInterval)
	}
	if s.HoldDelay <= 0 {
		return fmt.Errorf("hold_delay must be positive, got: %v", s.HoldDelay)
	}
	if s.KeyRelease <= 0 {
		return fmt.Errorf("key_release must be positive, got: %v", s.KeyRelease)
	}

	if err := s.Log.Validate(); err != nil {
		return fmt.Errorf("invalid log settings: %w", err)
	}
	return nil
}

// ValidateAxes checks that axes names one to six distinct axis letters.
func ValidateAxes(axes string) error {
	if len(axes) == 0 || len(axes) > jog.MaxAxes {
		return fmt.Errorf("axes must name 1 to %d axes, got: %q", jog.MaxAxes, axes)
	}
	for i, r := range axes {
		if !strings.ContainsRune(AxisLetters, r) {
			return fmt.Errorf("invalid axis letter %q in %q", r, axes)
		}
		if strings.ContainsRune(axes[:i], r) {
			return fmt.Errorf("duplicate axis letter %q in %q", r, axes)
		}
	}
	return nil
}

// LoadSettings layers, lowest first: the defaults, the YAML file at path when
// it exists, JOGPENDANT_ environment variables and finally flags, a map of
// explicitly set keys such as {"axes": "XYZA"}.
func LoadSettings(path string, flags map[string]interface{}) (Settings, error) {
	k, err := loadKoanf(path, flags)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.Axes = strings.ToUpper(s.Axes)

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func loadKoanf(path string, flags map[string]interface{}) (*koanf.Koanf, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultSettings(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load default settings: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load settings file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment settings: %w", err)
	}

	if len(flags) > 0 {
		if err := k.Load(confmap.Provider(flags, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load flag settings: %w", err)
		}
	}
	return k, nil
}

// envKey maps JOGPENDANT_TUNING__FEED_FACTOR to tuning.feed_factor.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// WriteSettings encodes s as YAML using the same keys LoadSettings reads.
func WriteSettings(w io.Writer, s Settings) error {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(s, "koanf"), nil); err != nil {
		return fmt.Errorf("failed to flatten settings: %w", err)
	}
	return yml.NewEncoder(w).Encode(k.Raw())
}
