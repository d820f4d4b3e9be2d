package model

import (
	"fmt"
	"strings"
)

// Category is the hub's device type code for a channel.
type Category int

const (
	CategoryUnknown    Category = 0
	CategoryOnOffLight Category = 1
	CategoryDimmer     Category = 3
	CategoryBlind      Category = 5
	CategoryMarkise    Category = 6
)

// CategoryFromCode maps a raw hub code onto the closed set; anything else is CategoryUnknown.
func CategoryFromCode(code int) Category {
	switch Category(code) {
	case CategoryOnOffLight, CategoryDimmer, CategoryBlind, CategoryMarkise:
		return Category(code)
	default:
		return CategoryUnknown
	}
}

func (c Category) String() string {
	switch c {
	case CategoryOnOffLight:
		return "on_off_light"
	case CategoryDimmer:
		return "dimmer"
	case CategoryBlind:
		return "blind"
	case CategoryMarkise:
		return "markise"
	default:
		return "unknown"
	}
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText. Unrecognised names decode as
// CategoryUnknown, mirroring CategoryFromCode.
func (c *Category) UnmarshalText(b []byte) error {
	switch string(b) {
	case "on_off_light":
		*c = CategoryOnOffLight
	case "dimmer":
		*c = CategoryDimmer
	case "blind":
		*c = CategoryBlind
	case "markise":
		*c = CategoryMarkise
	default:
		*c = CategoryUnknown
	}
	return nil
}

func (c Category) IsCover() bool {
	return c == CategoryBlind || c == CategoryMarkise
}

func (c Category) IsLight() bool {
	return c == CategoryOnOffLight || c == CategoryDimmer
}

// Channel is one output of the hub. Channels never change after discovery.
type Channel struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Group    string   `json:"group"`
	Icon     string   `json:"icon"`
	Category Category `json:"category"`
	// Code is the category code as reported, kept for channels tagged CategoryUnknown.
	Code int `json:"code"`
}

// Label is the display name: "group - name", group, name or "Channel N".
func (c Channel) Label() string {
	group := strings.TrimSpace(c.Group)
	name := strings.TrimSpace(c.Name)
	switch {
	case group != "" && name != "":
		return group + " - " + name
	case group != "":
		return group
	case name != "":
		return name
	default:
		return fmt.Sprintf("Channel %d", c.ID)
	}
}

// Controllable reports whether any command can be dispatched to the channel.
func (c Channel) Controllable() bool {
	return c.Category != CategoryUnknown
}
