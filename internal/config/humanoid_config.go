// File: internal/config/humanoid_config.go
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// HumanoidConfig tunes the pause between characters during keystroke
// injection.
type HumanoidConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// KeyHoldMeanMs is the mean pause between two typed characters.
	KeyHoldMeanMs float64 `mapstructure:"key_hold_mean_ms" yaml:"key_hold_mean_ms"`
	// KeyHoldStdDevMs spreads the pause around the mean (normal distribution).
	KeyHoldStdDevMs float64 `mapstructure:"key_hold_std_dev_ms" yaml:"key_hold_std_dev_ms"`
	// KeyHoldMinMs floors every pause.
	KeyHoldMinMs float64 `mapstructure:"key_hold_min_ms" yaml:"key_hold_min_ms"`
	// Seed makes the cadence reproducible; 0 seeds from the clock.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

func setHumanoidDefaults(v *viper.Viper) {
	v.SetDefault("browser.humanoid.enabled", false)
	v.SetDefault("browser.humanoid.key_hold_mean_ms", 55.0)
	v.SetDefault("browser.humanoid.key_hold_std_dev_ms", 18.0)
	v.SetDefault("browser.humanoid.key_hold_min_ms", 12.0)
	v.SetDefault("browser.humanoid.seed", 0)
}

// Validate checks the cadence parameters when the simulation is enabled.
func (h *HumanoidConfig) Validate() error {
	if !h.Enabled {
		return nil
	}
	if h.KeyHoldMeanMs <= 0 {
		return fmt.Errorf("humanoid.key_hold_mean_ms must be positive")
	}
	if h.KeyHoldStdDevMs < 0 || h.KeyHoldMinMs < 0 {
		return fmt.Errorf("humanoid.key_hold_std_dev_ms and key_hold_min_ms must not be negative")
	}
	return nil
}
