package zrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"zeptrion-bridge/internal/domain/model"
	"zeptrion-bridge/internal/ports"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 16
)

// Client talks to one hub over its /zrap REST API. One request per call, never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithClientLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for host, e.g. "zapp-1234567.local" or "192.168.1.20:80". A host
// that already carries a scheme is used as is. A timeout <= 0 selects DefaultTimeout.
func NewClient(host string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    BaseURL(host),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "zrap").Str("hub", c.baseURL).Logger()
	return c
}

func BaseURL(host string) string {
	host = strings.TrimSuffix(host, "/")
	if strings.Contains(host, "://") {
		return host
	}
	return "http://" + host
}

func (c *Client) Identity(ctx context.Context) (model.HubIdentity, error) {
	const op = "GET /zrap/id"
	body, err := c.get(ctx, "/zrap/id")
	if err != nil {
		return model.HubIdentity{}, err
	}
	id, err := decodeIdentity(body)
	if err != nil {
		return model.HubIdentity{}, malformed(op, err)
	}
	return id, nil
}

func (c *Client) ChannelDescriptors(ctx context.Context) ([]model.RawDescriptor, error) {
	const op = "GET /zrap/chdes"
	body, err := c.get(ctx, "/zrap/chdes")
	if err != nil {
		return nil, err
	}
	raw, err := decodeDescriptors(body)
	if err != nil {
		return nil, malformed(op, err)
	}
	return raw, nil
}

func (c *Client) SendCommand(ctx context.Context, channel int, cmd model.WireCommand) error {
	path := fmt.Sprintf("/zrap/chctrl/ch%d", channel)
	op := "POST " + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(cmd.Form().Encode()))
	if err != nil {
		return &ports.TransportError{Kind: ports.Unreachable, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err = c.do(req, op)
	if err == nil {
		c.logger.Debug().Int("channel", channel).Str("cmd", cmd.String()).Msg("Command sent")
	}
	return err
}

// ChannelScan reads /zrap/chscan/ch{n}. Covers usually answer -1.
func (c *Client) ChannelScan(ctx context.Context, channel int) (string, error) {
	path := fmt.Sprintf("/zrap/chscan/ch%d", channel)
	body, err := c.get(ctx, path)
	if err != nil {
		return "", err
	}
	v, err := decodeScan(body)
	if err != nil {
		return "", malformed("GET "+path, err)
	}
	return v, nil
}

func (c *Client) RSSI(ctx context.Context) (int, error) {
	const op = "GET /zrap/rssi"
	body, err := c.get(ctx, "/zrap/rssi")
	if err != nil {
		return 0, err
	}
	s, err := decodeRSSI(body)
	if err != nil {
		return 0, malformed(op, err)
	}
	dbm, err := strconv.Atoi(s)
	if err != nil {
		return 0, malformed(op, err)
	}
	return dbm, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	op := "GET " + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &ports.TransportError{Kind: ports.Unreachable, Op: op, Err: err}
	}
	return c.do(req, op)
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		terr := classify(op, err)
		c.logger.Debug().Err(err).Str("op", op).Str("kind", string(terr.Kind)).Msg("Request failed")
		return nil, terr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classify(op, err)
	}
	c.logger.Trace().Str("op", op).Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Msg("Request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ports.TransportError{Kind: ports.HTTPStatus, Op: op, Status: resp.StatusCode}
	}
	return body, nil
}

func classify(op string, err error) *ports.TransportError {
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return &ports.TransportError{Kind: ports.Timeout, Op: op, Err: err}
	}
	return &ports.TransportError{Kind: ports.Unreachable, Op: op, Err: err}
}

func malformed(op string, err error) *ports.TransportError {
	return &ports.TransportError{Kind: ports.MalformedResponse, Op: op, Err: err}
}

var _ ports.HubTransport = (*Client)(nil)
