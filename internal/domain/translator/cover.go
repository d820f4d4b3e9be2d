package translator

import (
	"fmt"
	"zeptrion-bridge/internal/domain/model"
)

// CoverStrategy serves blinds and awnings (Markise).
type CoverStrategy struct{}

func (s *CoverStrategy) Supports(kind model.CommandKind) bool {
	switch kind {
	case model.CommandOpen, model.CommandClose, model.CommandStop,
		model.CommandStepUp, model.CommandStepDown, model.CommandRecallScene:
		return true
	}
	return false
}

func (s *CoverStrategy) Translate(cmd model.Command) (model.WireCommand, error) {
	switch cmd.Kind {
	case model.CommandOpen:
		return plain("open"), nil
	case model.CommandClose:
		return plain("close"), nil
	case model.CommandStop:
		return plain("stop"), nil
	case model.CommandStepUp:
		if err := checkRange(cmd, MinMoveDurationMs, MaxMoveDurationMs); err != nil {
			return model.WireCommand{}, err
		}
		return plain(fmt.Sprintf("move_open_%d", cmd.Arg)), nil
	case model.CommandStepDown:
		if err := checkRange(cmd, MinMoveDurationMs, MaxMoveDurationMs); err != nil {
			return model.WireCommand{}, err
		}
		return plain(fmt.Sprintf("move_close_%d", cmd.Arg)), nil
	case model.CommandRecallScene:
		if err := checkRange(cmd, MinScene, MaxScene); err != nil {
			return model.WireCommand{}, err
		}
		return plain(fmt.Sprintf("recall_s%d", cmd.Arg)), nil
	}
	return model.WireCommand{}, &TranslationError{Kind: UnsupportedForCategory, Category: model.CategoryBlind, Command: cmd}
}
