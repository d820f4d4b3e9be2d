package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHostname(t *testing.T) {
	cases := map[string]struct {
		serial string
		ok     bool
	}{
		"zapp-1234567.local.": {"1234567", true},
		"zapp-1234567.local":  {"1234567", true},
		"zapp-1234567":        {"1234567", true},
		"ZAPP-ab12.local":     {"ab12", true},
		"zapp-.local":         {"", false},
		"shelly-1234.local":   {"", false},
		"zapp-12.34.local":    {"", false},
		"":                    {"", false},
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			serial, ok := ParseHostname(in)
			assert.Equal(t, want.ok, ok)
			assert.Equal(t, want.serial, serial)
		})
	}
}

func TestHubFromEntry(t *testing.T) {
	entry := zeroconf.NewServiceEntry("zeptrion Air", DefaultService, DefaultDomain)
	entry.HostName = "zapp-1234567.local."
	entry.Port = 80
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}

	hub, ok := hubFromEntry(entry)
	require.True(t, ok)
	assert.Equal(t, Hub{Host: "zapp-1234567.local", Serial: "1234567", Addr: "192.168.1.20:80"}, hub)

	byInstance := zeroconf.NewServiceEntry("zapp-7654321", DefaultService, DefaultDomain)
	byInstance.HostName = "esp.local."
	hub, ok = hubFromEntry(byInstance)
	require.True(t, ok)
	assert.Equal(t, "zapp-7654321.local", hub.Host)
	assert.Empty(t, hub.Addr)

	other := zeroconf.NewServiceEntry("printer", DefaultService, DefaultDomain)
	other.HostName = "printer.local."
	_, ok = hubFromEntry(other)
	assert.False(t, ok)
}
