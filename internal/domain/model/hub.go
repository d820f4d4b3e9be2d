package model

import "strings"

// HubIdentity is what /zrap/id reports about the hub itself.
type HubIdentity struct {
	HardwareVersion string `json:"hardware_version"`
	SerialNumber    string `json:"serial_number"`
	SystemType      string `json:"system_type"`
	FirmwareVersion string `json:"firmware_version"`
	Model           string `json:"model,omitempty"`
}

// Title is the name shown for a hub reached at host, e.g. "zapp-1234" for "zapp-1234.local".
func Title(host string) string {
	host = strings.TrimSuffix(host, ".")
	return strings.TrimSuffix(host, ".local")
}

// RawDescriptor is one unparsed channel record from /zrap/chdes, in response order.
type RawDescriptor struct {
	// Key is the element name or id attribute the record was found under ("1", "ch1", ...).
	Key    string
	Fields map[string]string
}

// Field returns a trimmed field value and whether it was present.
func (d RawDescriptor) Field(name string) (string, bool) {
	v, ok := d.Fields[name]
	return strings.TrimSpace(v), ok
}
