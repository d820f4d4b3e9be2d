package translator

import "zeptrion-bridge/internal/domain/model"

// DimmerStrategy switches like a light and additionally accepts a dim level in percent.
type DimmerStrategy struct {
	LightStrategy
}

func (s *DimmerStrategy) Supports(kind model.CommandKind) bool {
	return kind == model.CommandDim || s.LightStrategy.Supports(kind)
}

func (s *DimmerStrategy) Translate(cmd model.Command) (model.WireCommand, error) {
	if cmd.Kind != model.CommandDim {
		return s.LightStrategy.Translate(cmd)
	}
	if err := checkRange(cmd, MinDimLevel, MaxDimLevel); err != nil {
		return model.WireCommand{}, err
	}
	level := cmd.Arg
	return model.WireCommand{Cmd: "dim", Val: &level}, nil
}
