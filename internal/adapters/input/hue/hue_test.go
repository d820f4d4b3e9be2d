package hue

import (
	"testing"
	"zeptrion-bridge/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var channels = []model.Channel{
	{ID: 1, Name: "Ceiling", Category: model.CategoryOnOffLight, Code: 1},
	{ID: 2, Name: "Table", Category: model.CategoryDimmer, Code: 3},
	{ID: 3, Name: "West", Group: "Living", Category: model.CategoryBlind, Code: 5},
	{ID: 4, Category: model.CategoryUnknown, Code: -1},
}

func boolPtr(b bool) *bool { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestBridgeIdentity(t *testing.T) {
	a := BridgeUUID("1234567")
	assert.Equal(t, a, BridgeUUID("1234567"))
	assert.NotEqual(t, a, BridgeUUID("7654321"))

	id := BridgeID(a)
	assert.Len(t, id, 16)
	assert.Equal(t, "FFFE", id[6:10])
	assert.Len(t, SerialNumber(a), 12)
	assert.Len(t, MAC(a), 17)
}

func TestFormula(t *testing.T) {
	f, err := Compile(DefaultToLevel)
	require.NoError(t, err)
	v, err := f.Eval(254)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	f, err = Compile("max(1, min(100, x / 2))")
	require.NoError(t, err)
	v, err = f.Eval(500)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	_, err = Compile("x +")
	assert.Error(t, err)

	f, err = Compile("x > 3")
	require.NoError(t, err)
	_, err = f.Eval(1)
	assert.Error(t, err)
}

func TestResolve_AllControllable(t *testing.T) {
	lights, err := Resolve(nil, channels)
	require.NoError(t, err)
	require.Len(t, lights, 3)
	assert.Equal(t, "1", lights[0].HueID)
	assert.Equal(t, "Living - West", lights[2].Name)

	_, ok := Find(lights, "4")
	assert.False(t, ok)
}

func TestResolve_VirtualDevices(t *testing.T) {
	lights, err := Resolve([]*model.VirtualDevice{
		{HueID: "10", Name: "Living blind", Channel: 3, Inverted: true},
		{Channel: 2},
		{HueID: "11", Channel: 9},
		{HueID: "12", Channel: 4},
	}, channels)
	require.NoError(t, err)
	require.Len(t, lights, 2)
	assert.Equal(t, "10", lights[0].HueID)
	assert.True(t, lights[0].Inverted)
	assert.Equal(t, "2", lights[1].HueID)
	assert.Equal(t, "Table", lights[1].Name)

	_, err = Resolve([]*model.VirtualDevice{{Channel: 2, ToLevelFormula: "x +"}}, channels)
	assert.Error(t, err)
}

func TestCommands(t *testing.T) {
	lights, err := Resolve(nil, channels)
	require.NoError(t, err)
	light, dimmer, blind := lights[0], lights[1], lights[2]

	cmds, err := blind.Commands(Change{On: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, []model.Command{model.Open()}, cmds)
	cmds, _ = blind.Commands(Change{On: boolPtr(false), Bri: floatPtr(100)})
	assert.Equal(t, []model.Command{model.Close()}, cmds)

	blind.Inverted = true
	cmds, _ = blind.Commands(Change{On: boolPtr(true)})
	assert.Equal(t, []model.Command{model.Close()}, cmds)

	cmds, _ = light.Commands(Change{On: boolPtr(false)})
	assert.Equal(t, []model.Command{model.Off()}, cmds)

	cmds, _ = dimmer.Commands(Change{On: boolPtr(true), Bri: floatPtr(127)})
	assert.Equal(t, []model.Command{model.Dim(50)}, cmds)
	cmds, _ = dimmer.Commands(Change{Bri: floatPtr(1)})
	assert.Equal(t, []model.Command{model.Dim(1)}, cmds)
	cmds, _ = dimmer.Commands(Change{On: boolPtr(true)})
	assert.Equal(t, []model.Command{model.On()}, cmds)
	cmds, _ = dimmer.Commands(Change{On: boolPtr(false), Bri: floatPtr(200)})
	assert.Equal(t, []model.Command{model.Off()}, cmds)

	cmds, err = light.Commands(Change{})
	require.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestState(t *testing.T) {
	lights, err := Resolve(nil, channels)
	require.NoError(t, err)
	light, dimmer, blind := lights[0], lights[1], lights[2]

	assert.True(t, blind.State(model.MotionSnapshot{Phase: model.PhaseOpening}).On)
	assert.False(t, blind.State(model.MotionSnapshot{Phase: model.PhaseClosing}).On)
	assert.True(t, blind.State(model.MotionSnapshot{LastCommand: "step_up(500ms)"}).On)
	assert.False(t, blind.State(model.MotionSnapshot{LastCommand: "stop"}).On)

	st := dimmer.State(model.MotionSnapshot{Power: model.PowerOn, Level: 50})
	assert.True(t, st.On)
	assert.Equal(t, uint8(127), st.Bri)
	assert.True(t, st.Reachable)

	assert.False(t, light.State(model.MotionSnapshot{Power: model.PowerOff}).On)

	hl := dimmer.Huego(model.MotionSnapshot{})
	assert.Equal(t, "Dimmable light", hl.Type)
	assert.Equal(t, "Table", hl.Name)
	assert.Equal(t, "On/off light", light.Huego(model.MotionSnapshot{}).Type)
}
