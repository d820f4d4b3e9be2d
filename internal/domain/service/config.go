package service

import (
	"context"
	"fmt"
	"zeptrion-bridge/internal/domain/model"
	"zeptrion-bridge/internal/ports"
)

// TransportFactory opens a transport to the hub at host.
type TransportFactory func(host string) ports.HubTransport

type ConfigService struct {
	repo        ports.ConfigRepository
	coordinator *Coordinator
	dial        TransportFactory
}

func NewConfigService(repo ports.ConfigRepository, coordinator *Coordinator, dial TransportFactory) *ConfigService {
	return &ConfigService{
		repo:        repo,
		coordinator: coordinator,
		dial:        dial,
	}
}

func (s *ConfigService) GetConfig(ctx context.Context) (*model.Config, error) {
	return s.repo.Get(ctx)
}

// UpdateConfig validates and persists cfg, applies the step duration and re-runs setup
// against the configured hub.
func (s *ConfigService) UpdateConfig(ctx context.Context, cfg *model.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := s.repo.Save(ctx, cfg); err != nil {
		return err
	}
	if err := s.coordinator.SetStepDuration(cfg.StepDuration()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.HubHost == "" {
		return nil
	}
	_, err := s.coordinator.Setup(ctx, s.dial(cfg.HubHost))
	return err
}

var _ ports.ConfigPort = (*ConfigService)(nil)
