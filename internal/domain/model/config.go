package model

import (
	"fmt"
	"time"
)

const (
	DefaultStepDurationMs = 500
	MinStepDurationMs     = 100
	MaxStepDurationMs     = 10000
)

// VirtualDevice exposes one hub channel as a Hue light.
type VirtualDevice struct {
	HueID   string `json:"hue_id"` // Stable Hue identifier, e.g., "1"
	Name    string `json:"name"`   // Displayed to Hue clients
	Channel int    `json:"channel"`

	// Conversion between Hue brightness (x in 1..254) and dim level (1..100); dimmers only
	ToLevelFormula string `json:"to_level_formula,omitempty"`
	ToHueFormula   string `json:"to_hue_formula,omitempty"`

	// Swap open and close for covers mounted the other way round
	Inverted bool `json:"inverted,omitempty"`
}

// Config is the persisted bridge configuration.
type Config struct {
	HubHost        string           `json:"hub_host"`
	StepDurationMs int              `json:"step_duration_ms"`
	LocalIP        string           `json:"local_ip"`
	VirtualDevices []*VirtualDevice `json:"virtual_devices"` // Ordered slice, empty exposes every channel
}

// StepDuration returns the configured step pulse, falling back to the default when unset.
func (c *Config) StepDuration() time.Duration {
	ms := c.StepDurationMs
	if ms == 0 {
		ms = DefaultStepDurationMs
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Config) Validate() error {
	if c.StepDurationMs != 0 && (c.StepDurationMs < MinStepDurationMs || c.StepDurationMs > MaxStepDurationMs) {
		return fmt.Errorf("step_duration_ms must be between %d and %d, got %d", MinStepDurationMs, MaxStepDurationMs, c.StepDurationMs)
	}
	seen := make(map[string]bool)
	for _, vd := range c.VirtualDevices {
		if vd.Channel <= 0 {
			return fmt.Errorf("virtual device %q: channel must be positive", vd.Name)
		}
		if vd.HueID != "" {
			if seen[vd.HueID] {
				return fmt.Errorf("duplicate hue_id %q", vd.HueID)
			}
			seen[vd.HueID] = true
		}
	}
	return nil
}
