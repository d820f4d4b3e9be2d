package model

import "time"

type HubEventType string

const (
	HubEventValueUpdate HubEventType = "value_update"
	HubEventButton      HubEventType = "button_event"
)

// HubEvent is a push notification from the hub's websocket. Events are informational only;
// they do not drive the motion tracker.
type HubEvent struct {
	Type     HubEventType `json:"type"`
	Host     string       `json:"host"`
	At       time.Time    `json:"at"`
	Channel  int          `json:"channel,omitempty"`
	Value    string       `json:"value,omitempty"`
	Buttons  []string     `json:"buttons,omitempty"`
	Pressed  int          `json:"pressed"`
	RawEvent string       `json:"raw,omitempty"`
}
