package discovery

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"
)

const (
	DefaultService = "_http._tcp"
	DefaultDomain  = "local."
)

var hostnamePattern = regexp.MustCompile(`(?i)^zapp-([0-9a-z]+)(\.local)?\.?$`)

// ParseHostname extracts the serial number from a hub hostname such as "zapp-1234567.local.".
func ParseHostname(hostname string) (string, bool) {
	m := hostnamePattern.FindStringSubmatch(strings.TrimSpace(hostname))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Hub is a zapp hub seen on the local network.
type Hub struct {
	Host   string `json:"host"`
	Serial string `json:"serial"`
	Addr   string `json:"addr,omitempty"`
}

type Browser struct {
	service string
	domain  string
	logger  zerolog.Logger
}

func NewBrowser(logger zerolog.Logger) *Browser {
	return &Browser{
		service: DefaultService,
		domain:  DefaultDomain,
		logger:  logger.With().Str("component", "discovery").Logger(),
	}
}

// Discover browses mDNS for the given duration and returns the hubs found, sorted by serial.
func (b *Browser) Discover(ctx context.Context, wait time.Duration) ([]Hub, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("zeroconf resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(map[string]Hub)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				hub, ok := hubFromEntry(entry)
				if !ok {
					continue
				}
				if _, seen := found[hub.Serial]; !seen {
					b.logger.Info().Str("host", hub.Host).Str("addr", hub.Addr).Msg("Found hub")
				}
				found[hub.Serial] = hub
			}
		}
	}()

	if err := resolver.Browse(ctx, b.service, b.domain, entries); err != nil {
		return nil, fmt.Errorf("browse %s: %w", b.service, err)
	}
	<-ctx.Done()
	<-collected

	hubs := make([]Hub, 0, len(found))
	for _, h := range found {
		hubs = append(hubs, h)
	}
	sort.Slice(hubs, func(i, j int) bool { return hubs[i].Serial < hubs[j].Serial })
	return hubs, nil
}

func hubFromEntry(entry *zeroconf.ServiceEntry) (Hub, bool) {
	if entry == nil {
		return Hub{}, false
	}
	host := strings.TrimSuffix(entry.HostName, ".")
	serial, ok := ParseHostname(host)
	if !ok {
		// Some responders only carry the hub name in the instance.
		serial, ok = ParseHostname(entry.Instance)
		if !ok {
			return Hub{}, false
		}
		host = strings.ToLower(entry.Instance) + ".local"
	}
	hub := Hub{Host: host, Serial: serial}
	if len(entry.AddrIPv4) > 0 {
		hub.Addr = net.JoinHostPort(entry.AddrIPv4[0].String(), strconv.Itoa(entry.Port))
	}
	return hub, true
}
