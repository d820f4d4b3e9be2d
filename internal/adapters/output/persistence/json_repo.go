package persistence

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"zeptrion-bridge/internal/domain/model"
	"zeptrion-bridge/internal/ports"
)

type JSONConfigRepository struct {
	filepath string
	mu       sync.RWMutex
}

// legacyConfig is the flat entry layout of the home-automation integration this bridge
// replaces ("hostname" + "step_duration_ms").
type legacyConfig struct {
	Hostname       string `json:"hostname"`
	StepDurationMs int    `json:"step_duration_ms"`
}

func NewJSONConfigRepository(filepath string) *JSONConfigRepository {
	return &JSONConfigRepository{filepath: filepath}
}

func (r *JSONConfigRepository) Get(ctx context.Context) (*model.Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.Config{VirtualDevices: []*model.VirtualDevice{}}, nil
		}
		return nil, err
	}

	var cfg model.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Migration check: no hub_host but a legacy hostname
	if cfg.HubHost == "" {
		migrate(data, &cfg)
	}
	if cfg.VirtualDevices == nil {
		cfg.VirtualDevices = []*model.VirtualDevice{}
	}
	return &cfg, nil
}

func migrate(data []byte, cfg *model.Config) {
	var legacy legacyConfig
	if err := json.Unmarshal(data, &legacy); err != nil {
		return
	}
	cfg.HubHost = legacy.Hostname
	if cfg.StepDurationMs == 0 {
		cfg.StepDurationMs = legacy.StepDurationMs
	}
}

// Save writes the file atomically through a temporary sibling.
func (r *JSONConfigRepository) Save(ctx context.Context, config *model.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(r.filepath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := r.filepath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, r.filepath)
}

var _ ports.ConfigRepository = (*JSONConfigRepository)(nil)
