package ssdp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const multicastAddr = "239.255.255.250:1900"

// Server answers SSDP M-SEARCH requests so Hue clients find the emulated bridge.
type Server struct {
	ip     string
	port   int
	uuid   func() uuid.UUID
	logger zerolog.Logger
}

// NewServer builds a responder advertising http://ip:port/description.xml. bridgeUUID is
// called per response since the bridge identity changes once the hub is known.
func NewServer(ip string, port int, bridgeUUID func() uuid.UUID, logger zerolog.Logger) *Server {
	return &Server{ip: ip, port: port, uuid: bridgeUUID, logger: logger}
}

// Start listens until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp4", multicastAddr)
	if err != nil {
		return err
	}

	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return fmt.Errorf("ssdp listen: %w", err)
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	s.logger.Info().Str("addr", multicastAddr).Msg("SSDP responder listening")

	buf := make([]byte, 2048)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}

		if !matches(string(buf[:n])) {
			continue
		}
		s.logger.Debug().Str("from", src.String()).Msg("M-SEARCH")
		if err := s.respond(src); err != nil {
			s.logger.Warn().Err(err).Str("to", src.String()).Msg("SSDP response failed")
		}
	}
}

// matches reports whether msg is an M-SEARCH a Hue client would send. Echo devices search for
// the basic device type or the root device.
func matches(msg string) bool {
	if !strings.HasPrefix(msg, "M-SEARCH") {
		return false
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "urn:schemas-upnp-org:device:basic:1") ||
		strings.Contains(lower, "upnp:rootdevice") ||
		strings.Contains(lower, "ssdp:all")
}

func response(ip string, port int, u uuid.UUID) string {
	return fmt.Sprintf("HTTP/1.1 200 OK\r\n"+
		"CACHE-CONTROL: max-age=100\r\n"+
		"EXT:\r\n"+
		"LOCATION: http://%s:%d/description.xml\r\n"+
		"SERVER: FreeRTOS/6.0.5, UPnP/1.1, IpBridge/1.17.0\r\n"+
		"ST: urn:schemas-upnp-org:device:basic:1\r\n"+
		"USN: uuid:%s::urn:schemas-upnp-org:device:basic:1\r\n\r\n", ip, port, u)
}

func (s *Server) respond(dest *net.UDPAddr) error {
	conn, err := net.DialUDP("udp4", nil, dest)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Write([]byte(response(s.ip, s.port, s.uuid())))
	return err
}
