package hue

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"zeptrion-bridge/internal/domain/model"
	"zeptrion-bridge/internal/domain/translator"

	"github.com/amimof/huego"
)

// Light is one hub channel exposed through the Hue API.
type Light struct {
	HueID    string
	Name     string
	Channel  model.Channel
	Inverted bool

	toLevel *Formula
	toHue   *Formula
}

// Change is the subset of a Hue state update the bridge acts on.
type Change struct {
	On  *bool
	Bri *float64
}

// Resolve builds the exposed lights. Without virtual devices every controllable channel is
// exposed under its own index; otherwise the configured list is used in order and entries
// pointing at channels the hub does not report (or cannot control) are skipped.
func Resolve(devices []*model.VirtualDevice, channels []model.Channel) ([]Light, error) {
	byID := make(map[int]model.Channel, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}

	if len(devices) == 0 {
		lights := make([]Light, 0, len(channels))
		for _, ch := range channels {
			if !ch.Controllable() {
				continue
			}
			l, err := newLight(strconv.Itoa(ch.ID), ch.Label(), ch, &model.VirtualDevice{})
			if err != nil {
				return nil, err
			}
			lights = append(lights, l)
		}
		return lights, nil
	}

	lights := make([]Light, 0, len(devices))
	for _, vd := range devices {
		ch, ok := byID[vd.Channel]
		if !ok || !ch.Controllable() {
			continue
		}
		id := vd.HueID
		if id == "" {
			id = strconv.Itoa(vd.Channel)
		}
		name := vd.Name
		if name == "" {
			name = ch.Label()
		}
		l, err := newLight(id, name, ch, vd)
		if err != nil {
			return nil, err
		}
		lights = append(lights, l)
	}
	return lights, nil
}

func newLight(id, name string, ch model.Channel, vd *model.VirtualDevice) (Light, error) {
	toLevel, err := compileOr(vd.ToLevelFormula, DefaultToLevel)
	if err != nil {
		return Light{}, err
	}
	toHue, err := compileOr(vd.ToHueFormula, DefaultToHue)
	if err != nil {
		return Light{}, err
	}
	return Light{HueID: id, Name: name, Channel: ch, Inverted: vd.Inverted, toLevel: toLevel, toHue: toHue}, nil
}

// Find returns the light with the given Hue id.
func Find(lights []Light, id string) (Light, bool) {
	for _, l := range lights {
		if l.HueID == id {
			return l, true
		}
	}
	return Light{}, false
}

func (l Light) lightType() string {
	if l.Channel.Category == model.CategoryOnOffLight {
		return "On/off light"
	}
	return "Dimmable light"
}

func (l Light) modelID() string {
	if l.Channel.Category == model.CategoryOnOffLight {
		return "LOM001"
	}
	return "LWB010"
}

// State renders the tracked snapshot as Hue state. A cover reads as on while it is opening or
// after its last command moved it up.
func (l Light) State(s model.MotionSnapshot) *huego.State {
	st := &huego.State{Reachable: true, Alert: "none"}
	switch {
	case l.Channel.Category.IsCover():
		st.On = coverUp(s) != l.Inverted
		st.Bri = 254
		if !st.On {
			st.Bri = 1
		}
	case l.Channel.Category == model.CategoryDimmer:
		st.On = s.Power == model.PowerOn
		st.Bri = 254
		if s.Level > 0 {
			if v, err := l.toHue.Eval(float64(s.Level)); err == nil {
				st.Bri = uint8(clamp(v, 1, 254))
			}
		}
	default:
		st.On = s.Power == model.PowerOn
		st.Bri = 254
	}
	return st
}

func coverUp(s model.MotionSnapshot) bool {
	if s.Phase != model.PhaseIdle {
		return s.Phase == model.PhaseOpening
	}
	return strings.HasPrefix(s.LastCommand, "open") ||
		strings.HasPrefix(s.LastCommand, "step_up") ||
		strings.HasPrefix(s.LastCommand, "recall_scene")
}

func (l Light) Huego(s model.MotionSnapshot) *huego.Light {
	return &huego.Light{
		Name:             l.Name,
		Type:             l.lightType(),
		State:            l.State(s),
		ModelID:          l.modelID(),
		UniqueID:         fmt.Sprintf("zapp-%02d-%s", l.Channel.ID, l.HueID),
		ManufacturerName: "zeptrion",
		SwVersion:        "1.0.0",
	}
}

// Commands maps a Hue state change onto hub commands. Brightness is only honoured for
// dimmers; the resulting level is clamped into the dimmer's range.
func (l Light) Commands(c Change) ([]model.Command, error) {
	switch {
	case l.Channel.Category.IsCover():
		if c.On == nil {
			return nil, nil
		}
		if *c.On != l.Inverted {
			return []model.Command{model.Open()}, nil
		}
		return []model.Command{model.Close()}, nil

	case l.Channel.Category == model.CategoryDimmer:
		if c.On != nil && !*c.On {
			return []model.Command{model.Off()}, nil
		}
		if c.Bri != nil {
			v, err := l.toLevel.Eval(*c.Bri)
			if err != nil {
				return nil, err
			}
			level := int(clamp(v, translator.MinDimLevel, translator.MaxDimLevel))
			return []model.Command{model.Dim(level)}, nil
		}
		if c.On != nil {
			return []model.Command{model.On()}, nil
		}
		return nil, nil

	case l.Channel.Category == model.CategoryOnOffLight:
		if c.On == nil {
			return nil, nil
		}
		if *c.On {
			return []model.Command{model.On()}, nil
		}
		return []model.Command{model.Off()}, nil
	}
	return nil, fmt.Errorf("channel %d cannot be controlled", l.Channel.ID)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, math.Round(v)))
}
