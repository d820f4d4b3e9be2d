package translator

import "zeptrion-bridge/internal/domain/model"

// LightStrategy serves plain on/off light channels.
type LightStrategy struct{}

func (s *LightStrategy) Supports(kind model.CommandKind) bool {
	return kind == model.CommandOn || kind == model.CommandOff
}

func (s *LightStrategy) Translate(cmd model.Command) (model.WireCommand, error) {
	switch cmd.Kind {
	case model.CommandOn:
		return plain("on"), nil
	case model.CommandOff:
		return plain("off"), nil
	}
	return model.WireCommand{}, &TranslationError{Kind: UnsupportedForCategory, Category: model.CategoryOnOffLight, Command: cmd}
}
