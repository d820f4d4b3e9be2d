package service

import (
	"context"
	"fmt"
	"sync"
	"time"
	"zeptrion-bridge/internal/domain/catalog"
	"zeptrion-bridge/internal/domain/model"
	"zeptrion-bridge/internal/domain/tracker"
	"zeptrion-bridge/internal/domain/translator"
	"zeptrion-bridge/internal/ports"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Coordinator owns the transport, catalog and tracker of one hub and is the single entry
// point for input adapters.
type Coordinator struct {
	logger    zerolog.Logger
	tracker   *tracker.Tracker
	observers []ports.StateObserver
	sinks     []ports.HubEventSink

	mu           sync.RWMutex
	transport    ports.HubTransport
	catalog      *catalog.Catalog
	lanes        map[int]*sync.Mutex
	stepDuration time.Duration

	// afterFunc schedules the Idle notification of a timed movement.
	afterFunc func(time.Duration, func())
}

type coordinatorOptions struct {
	logger       zerolog.Logger
	clock        func() time.Time
	sceneGrace   time.Duration
	travelTime   time.Duration
	stepDuration time.Duration
	observers    []ports.StateObserver
	sinks        []ports.HubEventSink
}

type Option func(*coordinatorOptions)

func WithLogger(l zerolog.Logger) Option {
	return func(o *coordinatorOptions) { o.logger = l }
}

func WithClock(clock func() time.Time) Option {
	return func(o *coordinatorOptions) { o.clock = clock }
}

func WithSceneGrace(d time.Duration) Option {
	return func(o *coordinatorOptions) { o.sceneGrace = d }
}

func WithTravelTime(d time.Duration) Option {
	return func(o *coordinatorOptions) { o.travelTime = d }
}

func WithStepDuration(d time.Duration) Option {
	return func(o *coordinatorOptions) { o.stepDuration = d }
}

// WithObserver registers an observer called after every command applied to the tracker.
func WithObserver(obs ports.StateObserver) Option {
	return func(o *coordinatorOptions) { o.observers = append(o.observers, obs) }
}

// WithEventSink registers a sink the coordinator forwards hub push events to.
func WithEventSink(sink ports.HubEventSink) Option {
	return func(o *coordinatorOptions) { o.sinks = append(o.sinks, sink) }
}

func NewCoordinator(opts ...Option) *Coordinator {
	o := coordinatorOptions{
		logger:       log.Logger,
		stepDuration: time.Duration(model.DefaultStepDurationMs) * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Coordinator{
		logger:       o.logger.With().Str("component", "coordinator").Logger(),
		tracker:      tracker.New(tracker.Options{SceneGrace: o.sceneGrace, TravelTime: o.travelTime, Clock: o.clock}),
		observers:    o.observers,
		sinks:        o.sinks,
		lanes:        make(map[int]*sync.Mutex),
		stepDuration: o.stepDuration,
		afterFunc:    func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Setup fetches identity and channel descriptors once and rebuilds the catalog. Calling it
// again performs rediscovery and resets every channel to Idle. Lanes of channels that survive
// rediscovery are kept so in-flight dispatches stay serialized with new ones.
func (c *Coordinator) Setup(ctx context.Context, transport ports.HubTransport) (*catalog.Catalog, error) {
	identity, err := transport.Identity(ctx)
	if err != nil {
		return nil, &SetupError{Stage: "identity", Err: err}
	}
	raw, err := transport.ChannelDescriptors(ctx)
	if err != nil {
		return nil, &SetupError{Stage: "channels", Err: err}
	}
	cat, err := catalog.Build(identity, raw)
	if err != nil {
		return nil, &SetupError{Stage: "catalog", Err: err}
	}

	ids := make([]int, 0, cat.Len())
	for _, ch := range cat.Channels() {
		ids = append(ids, ch.ID)
	}

	c.mu.Lock()
	lanes := make(map[int]*sync.Mutex, len(ids))
	for _, id := range ids {
		if l, ok := c.lanes[id]; ok {
			lanes[id] = l
		} else {
			lanes[id] = &sync.Mutex{}
		}
	}
	c.transport = transport
	c.catalog = cat
	c.lanes = lanes
	c.tracker.Reset(ids)
	c.mu.Unlock()

	c.logger.Info().
		Str("serial", identity.SerialNumber).
		Str("firmware", identity.FirmwareVersion).
		Int("channels", cat.Len()).
		Int("controllable", len(cat.Controllable())).
		Msg("Hub set up")
	return cat, nil
}

func (c *Coordinator) current() (ports.HubTransport, *catalog.Catalog, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.catalog == nil {
		return nil, nil, ErrNotSetUp
	}
	return c.transport, c.catalog, nil
}

// Dispatch validates, translates and sends a command, then applies it to the tracker. Commands
// for the same channel are serialized from send until observers have been notified, so
// observers see states of one channel in apply order.
func (c *Coordinator) Dispatch(ctx context.Context, channelID int, cmd model.Command) (model.Ack, error) {
	transport, cat, err := c.current()
	if err != nil {
		return model.Ack{}, &DispatchError{ChannelID: channelID, Command: cmd, Layer: LayerChannel, Err: err}
	}
	ch, ok := cat.Lookup(channelID)
	if !ok {
		return model.Ack{}, &DispatchError{ChannelID: channelID, Command: cmd, Layer: LayerChannel, Err: ErrChannelNotFound}
	}
	wire, err := translator.Translate(ch.Category, cmd)
	if err != nil {
		return model.Ack{}, &DispatchError{ChannelID: channelID, Command: cmd, Layer: LayerTranslation, Err: err}
	}

	lane := c.lane(channelID)
	lane.Lock()
	defer lane.Unlock()
	if err := transport.SendCommand(ctx, channelID, wire); err != nil {
		c.logger.Warn().Err(err).Int("channel", channelID).Str("command", wire.String()).Msg("Command rejected")
		return model.Ack{}, &DispatchError{ChannelID: channelID, Command: cmd, Layer: LayerTransport, Err: err}
	}
	state, err := c.tracker.Apply(channelID, cmd)
	if err != nil {
		// Only reachable when a rediscovery dropped the channel between send and apply.
		return model.Ack{}, &DispatchError{ChannelID: channelID, Command: cmd, Layer: LayerChannel, Err: ErrChannelNotFound}
	}

	c.logger.Debug().
		Int("channel", channelID).
		Str("command", wire.String()).
		Stringer("phase", state.Phase).
		Msg("Command accepted")

	c.notify(ctx, cat.Identity(), ch, state)
	if state.ExpectedEndAt != nil {
		c.scheduleIdle(cat.Identity(), ch, state)
	}
	return model.Ack{
		ChannelID:  channelID,
		Command:    cmd.String(),
		Wire:       wire.String(),
		AcceptedAt: state.LastCommandIssuedAt,
	}, nil
}

func (c *Coordinator) notify(ctx context.Context, identity model.HubIdentity, ch model.Channel, state model.MotionSnapshot) {
	for _, obs := range c.observers {
		obs.OnStateChange(ctx, identity, ch, state)
	}
}

// scheduleIdle notifies observers once a timed movement has run out, provided no later
// command or rediscovery touched the channel meanwhile.
func (c *Coordinator) scheduleIdle(identity model.HubIdentity, ch model.Channel, moving model.MotionSnapshot) {
	if len(c.observers) == 0 || moving.ExpectedEndAt == nil {
		return
	}
	c.afterFunc(moving.ExpectedEndAt.Sub(c.tracker.Now()), func() {
		lane := c.lane(ch.ID)
		lane.Lock()
		defer lane.Unlock()

		state, err := c.tracker.Snapshot(ch.ID)
		if err != nil || state.LastCommand != moving.LastCommand || !state.LastCommandIssuedAt.Equal(moving.LastCommandIssuedAt) {
			return
		}
		if state.Moving() {
			// Timer fired ahead of the tracker clock.
			c.scheduleIdle(identity, ch, state)
			return
		}
		c.logger.Debug().Int("channel", ch.ID).Msg("Timed movement ended")
		c.notify(context.Background(), identity, ch, state)
	})
}

func (c *Coordinator) lane(channelID int) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lanes[channelID]
	if !ok {
		l = &sync.Mutex{}
		c.lanes[channelID] = l
	}
	return l
}

// StepUp opens the channel for the configured step duration.
func (c *Coordinator) StepUp(ctx context.Context, channelID int) (model.Ack, error) {
	return c.Dispatch(ctx, channelID, model.StepUp(int(c.StepDuration().Milliseconds())))
}

// StepDown closes the channel for the configured step duration.
func (c *Coordinator) StepDown(ctx context.Context, channelID int) (model.Ack, error) {
	return c.Dispatch(ctx, channelID, model.StepDown(int(c.StepDuration().Milliseconds())))
}

func (c *Coordinator) StatusOf(channelID int) (model.MotionSnapshot, error) {
	if _, _, err := c.current(); err != nil {
		return model.MotionSnapshot{}, err
	}
	s, err := c.tracker.Snapshot(channelID)
	if err != nil {
		return model.MotionSnapshot{}, fmt.Errorf("channel %d: %w", channelID, ErrChannelNotFound)
	}
	return s, nil
}

func (c *Coordinator) Identity() (model.HubIdentity, error) {
	_, cat, err := c.current()
	if err != nil {
		return model.HubIdentity{}, err
	}
	return cat.Identity(), nil
}

// Channels returns every catalogued channel in hub order, or nil before setup.
func (c *Coordinator) Channels() []model.Channel {
	_, cat, err := c.current()
	if err != nil {
		return nil
	}
	return cat.Channels()
}

func (c *Coordinator) Channel(id int) (model.Channel, error) {
	_, cat, err := c.current()
	if err != nil {
		return model.Channel{}, err
	}
	ch, ok := cat.Lookup(id)
	if !ok {
		return model.Channel{}, fmt.Errorf("channel %d: %w", id, ErrChannelNotFound)
	}
	return ch, nil
}

// Scan reads the hub's channel scan value. It is informational and never touches the tracker.
func (c *Coordinator) Scan(ctx context.Context, channelID int) (string, error) {
	transport, cat, err := c.current()
	if err != nil {
		return "", err
	}
	if _, ok := cat.Lookup(channelID); !ok {
		return "", fmt.Errorf("channel %d: %w", channelID, ErrChannelNotFound)
	}
	return transport.ChannelScan(ctx, channelID)
}

func (c *Coordinator) SignalStrength(ctx context.Context) (int, error) {
	transport, _, err := c.current()
	if err != nil {
		return 0, err
	}
	return transport.RSSI(ctx)
}

func (c *Coordinator) StepDuration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stepDuration
}

func (c *Coordinator) SetStepDuration(d time.Duration) error {
	ms := d.Milliseconds()
	if ms < model.MinStepDurationMs || ms > model.MaxStepDurationMs {
		return fmt.Errorf("step duration %s outside %dms..%dms", d, model.MinStepDurationMs, model.MaxStepDurationMs)
	}
	c.mu.Lock()
	c.stepDuration = d
	c.mu.Unlock()
	return nil
}

// OnHubEvent logs a push event and hands it to the registered sinks. Events never change
// tracked state.
func (c *Coordinator) OnHubEvent(ctx context.Context, event model.HubEvent) {
	c.logger.Debug().
		Str("type", string(event.Type)).
		Int("channel", event.Channel).
		Str("value", event.Value).
		Int("pressed", event.Pressed).
		Msg("Hub event")
	for _, sink := range c.sinks {
		sink.OnHubEvent(ctx, event)
	}
}

var (
	_ ports.CoordinatorPort = (*Coordinator)(nil)
	_ ports.HubEventSink    = (*Coordinator)(nil)
)
