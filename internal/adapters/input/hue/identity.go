package hue

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/zeptrion-bridge"))

// BridgeUUID is the stable UPnP identity of the emulated bridge. seed is the hub serial when
// known, otherwise the advertised IP.
func BridgeUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(seed))
}

// BridgeID renders the 16 hex digit id Hue clients expect, e.g. "A1B2C3FFFED4E5F6".
func BridgeID(u uuid.UUID) string {
	return strings.ToUpper(hex.EncodeToString(u[10:13]) + "fffe" + hex.EncodeToString(u[13:16]))
}

// SerialNumber is the lower-case 12 digit serial used in description.xml.
func SerialNumber(u uuid.UUID) string {
	return hex.EncodeToString(u[10:16])
}

// MAC formats the serial as a MAC address for the /config resource.
func MAC(u uuid.UUID) string {
	parts := make([]string, 6)
	for i := range parts {
		parts[i] = hex.EncodeToString(u[10+i : 11+i])
	}
	return strings.Join(parts, ":")
}
