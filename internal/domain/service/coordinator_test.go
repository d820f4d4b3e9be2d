package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"zeptrion-bridge/internal/domain/catalog"
	"zeptrion-bridge/internal/domain/model"
	"zeptrion-bridge/internal/domain/translator"
	"zeptrion-bridge/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Identity(ctx context.Context) (model.HubIdentity, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.HubIdentity), args.Error(1)
}

func (m *MockTransport) ChannelDescriptors(ctx context.Context) ([]model.RawDescriptor, error) {
	args := m.Called(ctx)
	raw, _ := args.Get(0).([]model.RawDescriptor)
	return raw, args.Error(1)
}

func (m *MockTransport) SendCommand(ctx context.Context, channel int, cmd model.WireCommand) error {
	args := m.Called(ctx, channel, cmd)
	return args.Error(0)
}

func (m *MockTransport) ChannelScan(ctx context.Context, channel int) (string, error) {
	args := m.Called(ctx, channel)
	return args.String(0), args.Error(1)
}

func (m *MockTransport) RSSI(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) OnStateChange(ctx context.Context, hub model.HubIdentity, channel model.Channel, state model.MotionSnapshot) {
	m.Called(ctx, hub, channel, state)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) OnHubEvent(ctx context.Context, event model.HubEvent) {
	m.Called(ctx, event)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testHub = model.HubIdentity{HardwareVersion: "1.0", SerialNumber: "1234567", SystemType: "zapp", FirmwareVersion: "01.05.10"}

func testDescriptors() []model.RawDescriptor {
	return []model.RawDescriptor{
		{Key: "ch1", Fields: map[string]string{"name": "Ceiling", "group": "Kitchen", "cat": "1"}},
		{Key: "ch2", Fields: map[string]string{"name": "Table", "cat": "3"}},
		{Key: "ch3", Fields: map[string]string{"name": "West", "group": "Living", "cat": "5"}},
		{Key: "ch4", Fields: map[string]string{"name": "Terrace", "cat": "6"}},
		{Key: "ch5", Fields: map[string]string{"cat": "-1"}},
	}
}

func wire(cmd string) model.WireCommand {
	return model.WireCommand{Cmd: cmd}
}

func newSetUp(t *testing.T, opts ...Option) (*Coordinator, *MockTransport, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	transport := new(MockTransport)
	transport.On("Identity", mock.Anything).Return(testHub, nil)
	transport.On("ChannelDescriptors", mock.Anything).Return(testDescriptors(), nil)

	opts = append([]Option{WithClock(clock.Now), WithLogger(zerolog.Nop())}, opts...)
	c := NewCoordinator(opts...)
	c.afterFunc = func(time.Duration, func()) {}
	_, err := c.Setup(context.Background(), transport)
	require.NoError(t, err)
	return c, transport, clock
}

func TestCoordinator_Setup(t *testing.T) {
	c, _, _ := newSetUp(t)

	id, err := c.Identity()
	require.NoError(t, err)
	assert.Equal(t, "1234567", id.SerialNumber)

	chs := c.Channels()
	require.Len(t, chs, 5)
	assert.Equal(t, model.CategoryBlind, chs[2].Category)

	for _, ch := range chs {
		s, err := c.StatusOf(ch.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PhaseIdle, s.Phase)
	}
}

func TestCoordinator_SetupErrors(t *testing.T) {
	hubDown := &ports.TransportError{Kind: ports.Unreachable, Op: "GET /zrap/id"}

	t.Run("identity", func(t *testing.T) {
		transport := new(MockTransport)
		transport.On("Identity", mock.Anything).Return(model.HubIdentity{}, hubDown)

		_, err := NewCoordinator(WithLogger(zerolog.Nop())).Setup(context.Background(), transport)
		var serr *SetupError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "identity", serr.Stage)
		assert.True(t, ports.Transient(err))
	})

	t.Run("catalog", func(t *testing.T) {
		transport := new(MockTransport)
		transport.On("Identity", mock.Anything).Return(testHub, nil)
		transport.On("ChannelDescriptors", mock.Anything).Return([]model.RawDescriptor{
			{Key: "ch1", Fields: map[string]string{"name": "x"}},
		}, nil)

		_, err := NewCoordinator(WithLogger(zerolog.Nop())).Setup(context.Background(), transport)
		var serr *SetupError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "catalog", serr.Stage)
		assert.ErrorIs(t, err, &catalog.CatalogError{Kind: catalog.InvalidDescriptor})
		assert.False(t, ports.Transient(err))
	})
}

func TestCoordinator_NotSetUp(t *testing.T) {
	c := NewCoordinator(WithLogger(zerolog.Nop()))

	_, err := c.Dispatch(context.Background(), 3, model.Open())
	assert.ErrorIs(t, err, ErrNotSetUp)
	_, err = c.StatusOf(3)
	assert.ErrorIs(t, err, ErrNotSetUp)
	_, err = c.Identity()
	assert.ErrorIs(t, err, ErrNotSetUp)
	assert.Nil(t, c.Channels())
}

func TestCoordinator_DispatchOpen(t *testing.T) {
	c, transport, clock := newSetUp(t)
	transport.On("SendCommand", mock.Anything, 3, wire("open")).Return(nil).Once()

	ack, err := c.Dispatch(context.Background(), 3, model.Open())
	require.NoError(t, err)
	assert.Equal(t, 3, ack.ChannelID)
	assert.Equal(t, "open", ack.Wire)
	assert.Equal(t, clock.Now(), ack.AcceptedAt)

	s, err := c.StatusOf(3)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseOpening, s.Phase)
	transport.AssertExpectations(t)
}

func TestCoordinator_StepDownExpires(t *testing.T) {
	c, transport, clock := newSetUp(t)
	require.NoError(t, c.SetStepDuration(1500*time.Millisecond))
	transport.On("SendCommand", mock.Anything, 3, wire("move_close_1500")).Return(nil).Once()

	_, err := c.StepDown(context.Background(), 3)
	require.NoError(t, err)

	s, _ := c.StatusOf(3)
	assert.Equal(t, model.PhaseClosing, s.Phase)
	require.NotNil(t, s.ExpectedEndAt)
	assert.WithinDuration(t, clock.Now().Add(1500*time.Millisecond), *s.ExpectedEndAt, time.Millisecond)

	clock.Advance(1500 * time.Millisecond)
	s, _ = c.StatusOf(3)
	assert.Equal(t, model.PhaseIdle, s.Phase)
	transport.AssertExpectations(t)
}

func TestCoordinator_StopAfterMovement(t *testing.T) {
	for _, ch := range []int{3, 4} {
		for _, move := range []model.Command{model.Open(), model.Close(), model.StepUp(5000), model.StepDown(5000)} {
			c, transport, _ := newSetUp(t)
			transport.On("SendCommand", mock.Anything, ch, mock.Anything).Return(nil)

			_, err := c.Dispatch(context.Background(), ch, move)
			require.NoError(t, err)
			s, _ := c.StatusOf(ch)
			require.True(t, s.Moving())

			_, err = c.Dispatch(context.Background(), ch, model.Stop())
			require.NoError(t, err)
			s, _ = c.StatusOf(ch)
			assert.Equal(t, model.PhaseIdle, s.Phase, "channel %d after %s", ch, move)
			assert.Nil(t, s.ExpectedEndAt)
		}
	}
}

func TestCoordinator_TransportFailureLeavesState(t *testing.T) {
	c, transport, _ := newSetUp(t)
	transport.On("SendCommand", mock.Anything, 3, wire("open")).Return(nil).Once()
	transport.On("SendCommand", mock.Anything, 3, wire("close")).
		Return(&ports.TransportError{Kind: ports.HTTPStatus, Status: 500, Op: "POST /zrap/chctrl/ch3"}).Once()

	_, err := c.Dispatch(context.Background(), 3, model.Open())
	require.NoError(t, err)
	before, _ := c.StatusOf(3)

	_, err = c.Dispatch(context.Background(), 3, model.Close())
	var derr *DispatchError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, LayerTransport, derr.Layer)
	assert.Equal(t, 3, derr.ChannelID)

	var terr *ports.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ports.HTTPStatus, terr.Kind)
	assert.Equal(t, 500, terr.Status)
	assert.ErrorIs(t, err, &ports.TransportError{Kind: ports.HTTPStatus, Status: 500})

	after, _ := c.StatusOf(3)
	assert.Equal(t, before, after)
	transport.AssertExpectations(t)
}

func TestCoordinator_TranslationErrors(t *testing.T) {
	c, transport, _ := newSetUp(t)

	_, err := c.Dispatch(context.Background(), 1, model.RecallScene(1))
	var derr *DispatchError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, LayerTranslation, derr.Layer)
	assert.ErrorIs(t, err, &translator.TranslationError{Kind: translator.UnsupportedForCategory})

	_, err = c.Dispatch(context.Background(), 3, model.RecallScene(5))
	assert.ErrorIs(t, err, &translator.TranslationError{Kind: translator.InvalidParameter})

	_, err = c.Dispatch(context.Background(), 5, model.Open())
	assert.ErrorIs(t, err, &translator.TranslationError{Kind: translator.UnsupportedForCategory})

	transport.AssertNotCalled(t, "SendCommand", mock.Anything, mock.Anything, mock.Anything)
}

func TestCoordinator_UnknownChannel(t *testing.T) {
	c, _, _ := newSetUp(t)

	_, err := c.Dispatch(context.Background(), 42, model.Open())
	var derr *DispatchError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, LayerChannel, derr.Layer)
	assert.ErrorIs(t, err, ErrChannelNotFound)

	_, err = c.StatusOf(42)
	assert.ErrorIs(t, err, ErrChannelNotFound)
	_, err = c.Channel(42)
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestCoordinator_SceneGrace(t *testing.T) {
	c, transport, clock := newSetUp(t, WithSceneGrace(2*time.Second))
	transport.On("SendCommand", mock.Anything, 4, wire("recall_s3")).Return(nil).Once()

	_, err := c.Dispatch(context.Background(), 4, model.RecallScene(3))
	require.NoError(t, err)
	s, _ := c.StatusOf(4)
	assert.Equal(t, model.PhaseOpening, s.Phase)

	clock.Advance(2 * time.Second)
	s, _ = c.StatusOf(4)
	assert.Equal(t, model.PhaseIdle, s.Phase)
}

func TestCoordinator_Lights(t *testing.T) {
	c, transport, _ := newSetUp(t)
	level := 40
	transport.On("SendCommand", mock.Anything, 1, wire("on")).Return(nil).Once()
	transport.On("SendCommand", mock.Anything, 2, model.WireCommand{Cmd: "dim", Val: &level}).Return(nil).Once()

	_, err := c.Dispatch(context.Background(), 1, model.On())
	require.NoError(t, err)
	ack, err := c.Dispatch(context.Background(), 2, model.Dim(40))
	require.NoError(t, err)
	assert.Equal(t, "dim val=40", ack.Wire)

	s, _ := c.StatusOf(1)
	assert.Equal(t, model.PowerOn, s.Power)
	s, _ = c.StatusOf(2)
	assert.Equal(t, 40, s.Level)
	assert.Equal(t, model.PhaseIdle, s.Phase)
}

func TestCoordinator_NotifiesObservers(t *testing.T) {
	obs := new(MockObserver)
	c, transport, _ := newSetUp(t, WithObserver(obs))
	transport.On("SendCommand", mock.Anything, 3, wire("close")).Return(nil).Once()
	transport.On("SendCommand", mock.Anything, 3, wire("open")).Return(errors.New("boom")).Once()
	obs.On("OnStateChange", mock.Anything, testHub, mock.MatchedBy(func(ch model.Channel) bool { return ch.ID == 3 }),
		mock.MatchedBy(func(s model.MotionSnapshot) bool { return s.Phase == model.PhaseClosing })).Once()

	_, err := c.Dispatch(context.Background(), 3, model.Close())
	require.NoError(t, err)
	_, err = c.Dispatch(context.Background(), 3, model.Open())
	require.Error(t, err)

	obs.AssertExpectations(t)
}

// blockingTransport holds "open" until released so a stop can be issued while it is in flight.
type blockingTransport struct {
	*MockTransport
	entered chan struct{}
	release chan struct{}

	mu   sync.Mutex
	sent []string
}

func (b *blockingTransport) SendCommand(ctx context.Context, channel int, cmd model.WireCommand) error {
	if cmd.Cmd == "open" {
		close(b.entered)
		<-b.release
	}
	b.mu.Lock()
	b.sent = append(b.sent, cmd.Cmd)
	b.mu.Unlock()
	return nil
}

func TestCoordinator_SameChannelSerialized(t *testing.T) {
	inner := new(MockTransport)
	inner.On("Identity", mock.Anything).Return(testHub, nil)
	inner.On("ChannelDescriptors", mock.Anything).Return(testDescriptors(), nil)
	transport := &blockingTransport{MockTransport: inner, entered: make(chan struct{}), release: make(chan struct{})}

	c := NewCoordinator(WithLogger(zerolog.Nop()))
	_, err := c.Setup(context.Background(), transport)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = c.Dispatch(context.Background(), 3, model.Open())
	}()
	<-transport.entered

	stopped := make(chan struct{})
	go func() {
		defer wg.Done()
		_, _ = c.Dispatch(context.Background(), 3, model.Stop())
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("stop completed while open was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	// Another channel is not held up by channel 3.
	_, err = c.Dispatch(context.Background(), 4, model.Close())
	require.NoError(t, err)

	close(transport.release)
	wg.Wait()

	s, _ := c.StatusOf(3)
	assert.Equal(t, model.PhaseIdle, s.Phase)
	assert.Equal(t, []string{"close", "open", "stop"}, transport.sent)
}

// gatedObserver records phases and holds the notification for "open" until released.
type gatedObserver struct {
	entered chan struct{}
	release chan struct{}

	mu   sync.Mutex
	seen []model.Phase
}

func (g *gatedObserver) OnStateChange(ctx context.Context, hub model.HubIdentity, channel model.Channel, state model.MotionSnapshot) {
	if state.LastCommand == "open" {
		close(g.entered)
		<-g.release
	}
	g.mu.Lock()
	g.seen = append(g.seen, state.Phase)
	g.mu.Unlock()
}

func TestCoordinator_ObserversFollowApplyOrder(t *testing.T) {
	obs := &gatedObserver{entered: make(chan struct{}), release: make(chan struct{})}
	c, transport, _ := newSetUp(t, WithObserver(obs))
	transport.On("SendCommand", mock.Anything, 3, wire("open")).Return(nil)
	transport.On("SendCommand", mock.Anything, 3, wire("stop")).Return(nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = c.Dispatch(context.Background(), 3, model.Open())
	}()
	<-obs.entered

	stopped := make(chan struct{})
	go func() {
		defer wg.Done()
		_, _ = c.Dispatch(context.Background(), 3, model.Stop())
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("stop completed while the open notification was pending")
	case <-time.After(50 * time.Millisecond):
	}

	close(obs.release)
	wg.Wait()

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []model.Phase{model.PhaseOpening, model.PhaseIdle}, obs.seen)
	s, _ := c.StatusOf(3)
	assert.Equal(t, model.PhaseIdle, s.Phase)
}

func TestCoordinator_NotifiesWhenTimedMovementEnds(t *testing.T) {
	obs := new(MockObserver)
	c, transport, clock := newSetUp(t, WithObserver(obs))
	var fire func()
	var delay time.Duration
	c.afterFunc = func(d time.Duration, f func()) { delay, fire = d, f }
	transport.On("SendCommand", mock.Anything, 3, wire("move_close_1500")).Return(nil)

	isCh3 := mock.MatchedBy(func(ch model.Channel) bool { return ch.ID == 3 })
	obs.On("OnStateChange", mock.Anything, testHub, isCh3,
		mock.MatchedBy(func(s model.MotionSnapshot) bool { return s.Phase == model.PhaseClosing })).Once()
	obs.On("OnStateChange", mock.Anything, testHub, isCh3,
		mock.MatchedBy(func(s model.MotionSnapshot) bool { return s.Phase == model.PhaseIdle && s.LastCommand != "" })).Once()

	_, err := c.Dispatch(context.Background(), 3, model.StepDown(1500))
	require.NoError(t, err)
	require.NotNil(t, fire)
	assert.Equal(t, 1500*time.Millisecond, delay)

	clock.Advance(1500 * time.Millisecond)
	fire()
	obs.AssertExpectations(t)
}

func TestCoordinator_TimedMovementSupersededIsSilent(t *testing.T) {
	obs := new(MockObserver)
	c, transport, clock := newSetUp(t, WithObserver(obs))
	var fire func()
	c.afterFunc = func(_ time.Duration, f func()) {
		if fire == nil {
			fire = f
		}
	}
	transport.On("SendCommand", mock.Anything, 3, mock.Anything).Return(nil)
	obs.On("OnStateChange", mock.Anything, testHub, mock.Anything, mock.Anything).Twice()

	_, err := c.Dispatch(context.Background(), 3, model.StepDown(1500))
	require.NoError(t, err)
	clock.Advance(500 * time.Millisecond)
	_, err = c.Dispatch(context.Background(), 3, model.Stop())
	require.NoError(t, err)

	clock.Advance(time.Second)
	require.NotNil(t, fire)
	fire()
	obs.AssertExpectations(t)
}

func TestCoordinator_RediscoveryKeepsLanes(t *testing.T) {
	c, transport, _ := newSetUp(t)
	l := c.lane(3)

	_, err := c.Setup(context.Background(), transport)
	require.NoError(t, err)
	assert.Same(t, l, c.lane(3))
}

func TestCoordinator_Rediscovery(t *testing.T) {
	c, transport, _ := newSetUp(t)
	transport.On("SendCommand", mock.Anything, 3, wire("open")).Return(nil)
	_, err := c.Dispatch(context.Background(), 3, model.Open())
	require.NoError(t, err)

	_, err = c.Setup(context.Background(), transport)
	require.NoError(t, err)
	s, _ := c.StatusOf(3)
	assert.Equal(t, model.PhaseIdle, s.Phase)
}

func TestCoordinator_ScanAndSignal(t *testing.T) {
	c, transport, _ := newSetUp(t)
	transport.On("ChannelScan", mock.Anything, 1).Return("100", nil)
	transport.On("RSSI", mock.Anything).Return(-62, nil)

	v, err := c.Scan(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "100", v)

	_, err = c.Scan(context.Background(), 42)
	assert.ErrorIs(t, err, ErrChannelNotFound)

	dbm, err := c.SignalStrength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -62, dbm)
}

func TestCoordinator_StepDuration(t *testing.T) {
	c := NewCoordinator(WithLogger(zerolog.Nop()))
	assert.Equal(t, 500*time.Millisecond, c.StepDuration())

	assert.Error(t, c.SetStepDuration(50*time.Millisecond))
	assert.Error(t, c.SetStepDuration(11*time.Second))
	require.NoError(t, c.SetStepDuration(2*time.Second))
	assert.Equal(t, 2*time.Second, c.StepDuration())
}

func TestCoordinator_StepUp(t *testing.T) {
	c, transport, _ := newSetUp(t, WithStepDuration(800*time.Millisecond))
	transport.On("SendCommand", mock.Anything, 4, wire("move_open_800")).Return(nil).Once()

	_, err := c.StepUp(context.Background(), 4)
	require.NoError(t, err)
	transport.AssertExpectations(t)
}

func TestCoordinator_ForwardsHubEvents(t *testing.T) {
	sink := new(MockSink)
	c, _, _ := newSetUp(t, WithEventSink(sink))
	event := model.HubEvent{Type: model.HubEventValueUpdate, Channel: 3, Value: "100"}
	sink.On("OnHubEvent", mock.Anything, event).Once()

	c.OnHubEvent(context.Background(), event)

	sink.AssertExpectations(t)
	s, _ := c.StatusOf(3)
	assert.Equal(t, model.PhaseIdle, s.Phase)
}
