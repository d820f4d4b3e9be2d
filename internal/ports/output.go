package ports

import (
	"context"
	"zeptrion-bridge/internal/domain/model"
)

// HubTransport is the raw request/response link to one hub. Implementations must be safe
// for concurrent use and must not retry.
type HubTransport interface {
	Identity(ctx context.Context) (model.HubIdentity, error)
	ChannelDescriptors(ctx context.Context) ([]model.RawDescriptor, error)
	SendCommand(ctx context.Context, channel int, cmd model.WireCommand) error
	ChannelScan(ctx context.Context, channel int) (string, error)
	RSSI(ctx context.Context) (int, error)
}

// StateObserver is told about every tracker change caused by an accepted command.
type StateObserver interface {
	OnStateChange(ctx context.Context, hub model.HubIdentity, channel model.Channel, state model.MotionSnapshot)
}

// HubEventSink receives push events from the hub.
type HubEventSink interface {
	OnHubEvent(ctx context.Context, event model.HubEvent)
}
