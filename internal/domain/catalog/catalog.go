package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"zeptrion-bridge/internal/domain/model"
)

// Catalog is the immutable set of channels a hub reported at setup.
type Catalog struct {
	identity model.HubIdentity
	channels []model.Channel
	index    map[int]int
}

// Build parses raw descriptors into a catalog. Channel order follows the source order.
func Build(identity model.HubIdentity, raw []model.RawDescriptor) (*Catalog, error) {
	if strings.TrimSpace(identity.SerialNumber) == "" {
		return nil, &CatalogError{Kind: InvalidIdentity, Reason: "hub reported no serial number"}
	}

	c := &Catalog{
		identity: identity,
		channels: make([]model.Channel, 0, len(raw)),
		index:    make(map[int]int, len(raw)),
	}
	for _, d := range raw {
		ch, err := parseChannel(d)
		if err != nil {
			return nil, err
		}
		if _, dup := c.index[ch.ID]; dup {
			return nil, &CatalogError{Kind: InvalidDescriptor, Key: d.Key, Field: "id", Reason: fmt.Sprintf("duplicate channel %d", ch.ID)}
		}
		c.index[ch.ID] = len(c.channels)
		c.channels = append(c.channels, ch)
	}
	return c, nil
}

func parseChannel(d model.RawDescriptor) (model.Channel, error) {
	id, err := channelID(d)
	if err != nil {
		return model.Channel{}, err
	}

	catStr, ok := d.Field("cat")
	if !ok || catStr == "" {
		return model.Channel{}, &CatalogError{Kind: InvalidDescriptor, Key: d.Key, Field: "cat", Reason: "missing"}
	}
	code, err := strconv.Atoi(catStr)
	if err != nil {
		return model.Channel{}, &CatalogError{Kind: InvalidDescriptor, Key: d.Key, Field: "cat", Reason: fmt.Sprintf("not a number: %q", catStr)}
	}

	name, _ := d.Field("name")
	group, _ := d.Field("group")
	icon, _ := d.Field("icon")
	return model.Channel{
		ID:       id,
		Name:     name,
		Group:    group,
		Icon:     icon,
		Category: model.CategoryFromCode(code),
		Code:     code,
	}, nil
}

// channelID prefers an explicit id field and falls back to the record key ("ch3" or "3").
func channelID(d model.RawDescriptor) (int, error) {
	raw, ok := d.Field("id")
	if !ok || raw == "" {
		raw = strings.TrimPrefix(strings.TrimSpace(d.Key), "ch")
	}
	if raw == "" {
		return 0, &CatalogError{Kind: InvalidDescriptor, Key: d.Key, Field: "id", Reason: "missing"}
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, &CatalogError{Kind: InvalidDescriptor, Key: d.Key, Field: "id", Reason: fmt.Sprintf("not a positive number: %q", raw)}
	}
	return id, nil
}

func (c *Catalog) Identity() model.HubIdentity {
	return c.identity
}

// Channels returns a copy of all channels in source order.
func (c *Catalog) Channels() []model.Channel {
	out := make([]model.Channel, len(c.channels))
	copy(out, c.channels)
	return out
}

// Controllable returns the channels that accept at least one command.
func (c *Catalog) Controllable() []model.Channel {
	var out []model.Channel
	for _, ch := range c.channels {
		if ch.Controllable() {
			out = append(out, ch)
		}
	}
	return out
}

func (c *Catalog) Lookup(id int) (model.Channel, bool) {
	i, ok := c.index[id]
	if !ok {
		return model.Channel{}, false
	}
	return c.channels[i], true
}

func (c *Catalog) Len() int {
	return len(c.channels)
}
