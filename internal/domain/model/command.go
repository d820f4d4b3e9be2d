package model

import (
	"fmt"
	"net/url"
	"strconv"
)

// CommandKind enumerates the abstract commands a channel can be asked to perform.
type CommandKind int

const (
	CommandOpen CommandKind = iota + 1
	CommandClose
	CommandStop
	CommandStepUp
	CommandStepDown
	CommandRecallScene
	CommandOn
	CommandOff
	CommandDim
)

var commandNames = map[CommandKind]string{
	CommandOpen:        "open",
	CommandClose:       "close",
	CommandStop:        "stop",
	CommandStepUp:      "step_up",
	CommandStepDown:    "step_down",
	CommandRecallScene: "recall_scene",
	CommandOn:          "on",
	CommandOff:         "off",
	CommandDim:         "dim",
}

func (k CommandKind) String() string {
	if n, ok := commandNames[k]; ok {
		return n
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// ParseCommandKind is the inverse of CommandKind.String.
func ParseCommandKind(s string) (CommandKind, bool) {
	for k, n := range commandNames {
		if n == s {
			return k, true
		}
	}
	return 0, false
}

// Command is an abstract, hub-independent request. Arg carries the step duration in
// milliseconds, the scene number or the dim level depending on Kind.
type Command struct {
	Kind CommandKind `json:"kind"`
	Arg  int         `json:"arg,omitempty"`
}

func Open() Command { return Command{Kind: CommandOpen} }
func Close() Command { return Command{Kind: CommandClose} }
func Stop() Command { return Command{Kind: CommandStop} }
func StepUp(durationMs int) Command { return Command{Kind: CommandStepUp, Arg: durationMs} }
func StepDown(durationMs int) Command { return Command{Kind: CommandStepDown, Arg: durationMs} }
func RecallScene(scene int) Command { return Command{Kind: CommandRecallScene, Arg: scene} }
func On() Command { return Command{Kind: CommandOn} }
func Off() Command { return Command{Kind: CommandOff} }
func Dim(level int) Command { return Command{Kind: CommandDim, Arg: level} }

func (c Command) String() string {
	switch c.Kind {
	case CommandStepUp, CommandStepDown:
		return fmt.Sprintf("%s(%dms)", c.Kind, c.Arg)
	case CommandRecallScene, CommandDim:
		return fmt.Sprintf("%s(%d)", c.Kind, c.Arg)
	default:
		return c.Kind.String()
	}
}

// WireCommand is a command in the hub's grammar, posted to /zrap/chctrl/ch{n}.
type WireCommand struct {
	Cmd string
	// Val is only sent by commands that take a value (dim).
	Val *int
}

// String renders the command the way it is documented for the hub, e.g. "move_open_2500"
// or "dim val=40".
func (w WireCommand) String() string {
	if w.Val == nil {
		return w.Cmd
	}
	return fmt.Sprintf("%s val=%d", w.Cmd, *w.Val)
}

// Form is the url-encoded POST body.
func (w WireCommand) Form() url.Values {
	v := url.Values{}
	v.Set("cmd", w.Cmd)
	if w.Val != nil {
		v.Set("val", strconv.Itoa(*w.Val))
	}
	return v
}
