package translator

import (
	"errors"
	"zeptrion-bridge/internal/domain/model"
)

// Strategy translates abstract commands for one family of categories.
type Strategy interface {
	Translate(cmd model.Command) (model.WireCommand, error)
	Supports(kind model.CommandKind) bool
}

const (
	MinMoveDurationMs = 1
	MaxMoveDurationMs = 30000
	MinDimLevel       = 1
	MaxDimLevel       = 100
	MinScene          = 1
	MaxScene          = 4
)

var defaultFactory = NewFactory()

// Translate maps a command onto the hub's command grammar for the given category.
// It is pure: equal inputs always give equal outputs.
func Translate(category model.Category, cmd model.Command) (model.WireCommand, error) {
	s, ok := defaultFactory.GetTranslator(category)
	if !ok || !s.Supports(cmd.Kind) {
		return model.WireCommand{}, &TranslationError{Kind: UnsupportedForCategory, Category: category, Command: cmd}
	}
	w, err := s.Translate(cmd)
	var terr *TranslationError
	if errors.As(err, &terr) {
		terr.Category = category
	}
	return w, err
}

// Supported lists the command kinds a category accepts, in declaration order.
func Supported(category model.Category) []model.CommandKind {
	s, ok := defaultFactory.GetTranslator(category)
	if !ok {
		return nil
	}
	var kinds []model.CommandKind
	for k := model.CommandOpen; k <= model.CommandDim; k++ {
		if s.Supports(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func plain(cmd string) model.WireCommand {
	return model.WireCommand{Cmd: cmd}
}

func checkRange(cmd model.Command, lo, hi int) error {
	if cmd.Arg < lo || cmd.Arg > hi {
		return &TranslationError{Kind: InvalidParameter, Command: cmd, Reason: rangeReason(cmd.Arg, lo, hi)}
	}
	return nil
}
