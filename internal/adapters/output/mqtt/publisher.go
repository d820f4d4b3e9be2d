package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
	"zeptrion-bridge/internal/domain/model"
	"zeptrion-bridge/internal/ports"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/rs/zerolog"
)

const (
	DefaultPrefix  = "zeptrion"
	publishTimeout = 2 * time.Second
)

type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	Prefix    string
}

// publisher is the part of autopaho.ConnectionManager used here.
type publisher interface {
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
}

// Publisher mirrors tracked channel state and hub push events onto MQTT topics:
//
//	<prefix>/<serial>/ch<N>/state   retained JSON snapshot
//	<prefix>/<hub>/event            JSON push event
type Publisher struct {
	client publisher
	prefix string
	logger zerolog.Logger
}

func newPublisher(client publisher, prefix string, logger zerolog.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		logger: logger.With().Str("component", "mqtt").Logger(),
	}
}

// Connect starts an autopaho connection manager that keeps reconnecting until ctx ends. It
// does not wait for the broker; publishes made while it is down are dropped and logged.
func Connect(ctx context.Context, cfg Config, logger zerolog.Logger) (*Publisher, error) {
	u, err := url.Parse(cfg.BrokerURL)
	if err != nil {
		return nil, fmt.Errorf("broker url: %w", err)
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "zeptrion-bridge"
	}

	p := newPublisher(nil, cfg.Prefix, logger)
	cliCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{u},
		ConnectUsername:               cfg.Username,
		ConnectPassword:               []byte(cfg.Password),
		KeepAlive:                     30,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         60,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
			p.logger.Info().Str("broker", u.Host).Msg("MQTT connection up")
		},
		OnConnectError: func(err error) {
			p.logger.Warn().Err(err).Str("broker", u.Host).Msg("MQTT connection failed")
		},
		ClientConfig: paho.ClientConfig{
			ClientID:      clientID,
			OnClientError: func(err error) { p.logger.Error().Err(err).Msg("MQTT client error") },
			OnServerDisconnect: func(d *paho.Disconnect) {
				if d.Properties != nil {
					p.logger.Warn().Str("reason", d.Properties.ReasonString).Msg("MQTT server disconnect")
				} else {
					p.logger.Warn().Uint8("code", d.ReasonCode).Msg("MQTT server disconnect")
				}
			},
		},
	}

	cm, err := autopaho.NewConnection(ctx, cliCfg)
	if err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	p.client = cm
	return p, nil
}

type stateMessage struct {
	Hub      string               `json:"hub"`
	Channel  int                  `json:"channel"`
	Label    string               `json:"label"`
	Category string               `json:"category"`
	State    model.MotionSnapshot `json:"state"`
}

func (p *Publisher) StateTopic(serial string, channel int) string {
	return fmt.Sprintf("%s/%s/ch%d/state", p.prefix, serial, channel)
}

func (p *Publisher) EventTopic(host string) string {
	return fmt.Sprintf("%s/%s/event", p.prefix, model.Title(host))
}

func (p *Publisher) OnStateChange(ctx context.Context, hub model.HubIdentity, channel model.Channel, state model.MotionSnapshot) {
	payload, err := json.Marshal(stateMessage{
		Hub:      hub.SerialNumber,
		Channel:  channel.ID,
		Label:    channel.Label(),
		Category: channel.Category.String(),
		State:    state,
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("Encoding state")
		return
	}
	p.publish(ctx, &paho.Publish{QoS: 1, Retain: true, Topic: p.StateTopic(hub.SerialNumber, channel.ID), Payload: payload})
}

func (p *Publisher) OnHubEvent(ctx context.Context, event model.HubEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Msg("Encoding event")
		return
	}
	p.publish(ctx, &paho.Publish{QoS: 0, Topic: p.EventTopic(event.Host), Payload: payload})
}

func (p *Publisher) publish(ctx context.Context, msg *paho.Publish) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if _, err := p.client.Publish(ctx, msg); err != nil {
		p.logger.Warn().Err(err).Str("topic", msg.Topic).Msg("Publish failed")
		return
	}
	p.logger.Trace().Str("topic", msg.Topic).Msg("Published")
}

var (
	_ ports.StateObserver = (*Publisher)(nil)
	_ ports.HubEventSink  = (*Publisher)(nil)
)
