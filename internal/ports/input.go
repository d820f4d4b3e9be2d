package ports

import (
	"context"
	"time"
	"zeptrion-bridge/internal/domain/model"
)

// CoordinatorPort is what input adapters (REST, Hue emulation, MCP) drive.
type CoordinatorPort interface {
	Identity() (model.HubIdentity, error)
	Channels() []model.Channel
	Channel(id int) (model.Channel, error)
	Dispatch(ctx context.Context, channelID int, cmd model.Command) (model.Ack, error)
	StatusOf(channelID int) (model.MotionSnapshot, error)
	Scan(ctx context.Context, channelID int) (string, error)
	SignalStrength(ctx context.Context) (int, error)
	StepDuration() time.Duration
}

// ConfigPort manages the persisted bridge configuration.
type ConfigPort interface {
	GetConfig(ctx context.Context) (*model.Config, error)
	UpdateConfig(ctx context.Context, cfg *model.Config) error
}
