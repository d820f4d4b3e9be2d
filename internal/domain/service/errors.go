package service

import (
	"errors"
	"fmt"
	"zeptrion-bridge/internal/domain/model"
)

var (
	ErrNotSetUp        = errors.New("coordinator is not set up")
	ErrChannelNotFound = errors.New("channel not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// SetupError tells which discovery stage failed: "identity", "channels" or "catalog".
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

type Layer string

const (
	LayerChannel     Layer = "channel"
	LayerTranslation Layer = "translation"
	LayerTransport   Layer = "transport"
)

// DispatchError keeps which layer rejected a command so callers can tell an invalid request
// from an unreachable hub.
type DispatchError struct {
	ChannelID int
	Command   model.Command
	Layer     Layer
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("channel %d: %s: %s: %v", e.ChannelID, e.Command, e.Layer, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
