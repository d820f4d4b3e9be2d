package model

import (
	"fmt"
	"time"
)

// Phase is the optimistic motion phase of a cover channel.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseOpening
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseOpening:
		return "opening"
	case PhaseClosing:
		return "closing"
	default:
		return "idle"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*p = PhaseIdle
	case "opening":
		*p = PhaseOpening
	case "closing":
		*p = PhaseClosing
	default:
		return fmt.Errorf("unknown phase %q", b)
	}
	return nil
}

// PowerState is the optimistic on/off state of a light channel.
type PowerState int

const (
	PowerUnknown PowerState = iota
	PowerOn
	PowerOff
)

func (p PowerState) String() string {
	switch p {
	case PowerOn:
		return "on"
	case PowerOff:
		return "off"
	default:
		return "unknown"
	}
}

func (p PowerState) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PowerState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "unknown":
		*p = PowerUnknown
	case "on":
		*p = PowerOn
	case "off":
		*p = PowerOff
	default:
		return fmt.Errorf("unknown power state %q", b)
	}
	return nil
}

// MotionSnapshot is a read-only copy of a channel's tracked state. It is a best-effort
// annotation derived from accepted commands, never a measurement.
type MotionSnapshot struct {
	ChannelID           int        `json:"channel_id"`
	Phase               Phase      `json:"phase"`
	LastCommand         string     `json:"last_command,omitempty"`
	LastCommandIssuedAt time.Time  `json:"last_command_issued_at"`
	ExpectedEndAt       *time.Time `json:"expected_end_at,omitempty"`
	Power               PowerState `json:"power"`
	Level               int        `json:"level,omitempty"`
}

func (s MotionSnapshot) Moving() bool {
	return s.Phase != PhaseIdle
}

// Ack confirms that the hub accepted a command.
type Ack struct {
	ChannelID  int       `json:"channel_id"`
	Command    string    `json:"command"`
	Wire       string    `json:"wire"`
	AcceptedAt time.Time `json:"accepted_at"`
}
