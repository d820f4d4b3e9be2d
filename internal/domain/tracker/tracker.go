package tracker

import (
	"errors"
	"sync"
	"time"
	"zeptrion-bridge/internal/domain/model"
)

// DefaultSceneGrace is how long a recalled scene is reported as Opening. The hub gives no
// feedback about the scene's target position, so this is a display policy only.
const DefaultSceneGrace = 3 * time.Second

var ErrUnknownChannel = errors.New("tracker: unknown channel")

type Options struct {
	SceneGrace time.Duration
	// TravelTime, when set, also ends open/close after that long; zero keeps them moving
	// until a stop or another command.
	TravelTime time.Duration
	Clock      func() time.Time
}

// Tracker keeps the optimistic state of every registered channel. Mutations of one channel
// are serialized; different channels never contend beyond the map lookup.
type Tracker struct {
	mu         sync.RWMutex
	entries    map[int]*entry
	sceneGrace time.Duration
	travelTime time.Duration
	now        func() time.Time
}

type entry struct {
	mu    sync.Mutex
	state model.MotionSnapshot
}

func New(opts Options) *Tracker {
	t := &Tracker{
		entries:    make(map[int]*entry),
		sceneGrace: opts.SceneGrace,
		travelTime: opts.TravelTime,
		now:        opts.Clock,
	}
	if t.sceneGrace <= 0 {
		t.sceneGrace = DefaultSceneGrace
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

func (t *Tracker) Now() time.Time {
	return t.now()
}

// Register creates an Idle state for a channel. Registering a known channel keeps its state.
func (t *Tracker) Register(channelID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[channelID]; ok {
		return
	}
	t.entries[channelID] = &entry{state: model.MotionSnapshot{ChannelID: channelID}}
}

// Reset drops every state and registers the given channels afresh, as after rediscovery.
func (t *Tracker) Reset(channelIDs []int) {
	entries := make(map[int]*entry, len(channelIDs))
	for _, id := range channelIDs {
		entries[id] = &entry{state: model.MotionSnapshot{ChannelID: id}}
	}
	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
}

func (t *Tracker) lookup(channelID int) (*entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[channelID]
	return e, ok
}

// Apply records a command the hub has accepted, stamped with the current time.
func (t *Tracker) Apply(channelID int, cmd model.Command) (model.MotionSnapshot, error) {
	e, ok := t.lookup(channelID)
	if !ok {
		return model.MotionSnapshot{}, ErrUnknownChannel
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	at := t.now()
	s := &e.state
	s.LastCommand = cmd.String()
	s.LastCommandIssuedAt = at

	switch cmd.Kind {
	case model.CommandOpen:
		s.Phase = model.PhaseOpening
		s.ExpectedEndAt = t.after(at, t.travelTime)
	case model.CommandClose:
		s.Phase = model.PhaseClosing
		s.ExpectedEndAt = t.after(at, t.travelTime)
	case model.CommandStop:
		s.Phase = model.PhaseIdle
		s.ExpectedEndAt = nil
	case model.CommandStepUp:
		s.Phase = model.PhaseOpening
		s.ExpectedEndAt = t.after(at, time.Duration(cmd.Arg)*time.Millisecond)
	case model.CommandStepDown:
		s.Phase = model.PhaseClosing
		s.ExpectedEndAt = t.after(at, time.Duration(cmd.Arg)*time.Millisecond)
	case model.CommandRecallScene:
		s.Phase = model.PhaseOpening
		s.ExpectedEndAt = t.after(at, t.sceneGrace)
	case model.CommandOn:
		s.Power = model.PowerOn
	case model.CommandOff:
		s.Power = model.PowerOff
	case model.CommandDim:
		s.Power = model.PowerOn
		s.Level = cmd.Arg
	}
	return copyState(*s), nil
}

// after returns at+d, or nil when d is not positive.
func (t *Tracker) after(at time.Time, d time.Duration) *time.Time {
	if d <= 0 {
		return nil
	}
	end := at.Add(d)
	return &end
}

// Snapshot reads a channel's state. A timed move whose end has passed reads as Idle.
func (t *Tracker) Snapshot(channelID int) (model.MotionSnapshot, error) {
	e, ok := t.lookup(channelID)
	if !ok {
		return model.MotionSnapshot{}, ErrUnknownChannel
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s := &e.state
	if s.ExpectedEndAt != nil && !t.now().Before(*s.ExpectedEndAt) {
		s.Phase = model.PhaseIdle
		s.ExpectedEndAt = nil
	}
	return copyState(*s), nil
}

func copyState(s model.MotionSnapshot) model.MotionSnapshot {
	if s.ExpectedEndAt != nil {
		end := *s.ExpectedEndAt
		s.ExpectedEndAt = &end
	}
	return s
}
