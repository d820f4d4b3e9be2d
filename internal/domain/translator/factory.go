package translator

import (
	"zeptrion-bridge/internal/domain/model"
)

type Factory struct {
	cover  Strategy
	light  Strategy
	dimmer Strategy
}

func NewFactory() *Factory {
	return &Factory{
		cover:  &CoverStrategy{},
		light:  &LightStrategy{},
		dimmer: &DimmerStrategy{},
	}
}

// GetTranslator returns the strategy for a category. Unknown categories have none: their
// commands are rejected rather than guessed.
func (f *Factory) GetTranslator(category model.Category) (Strategy, bool) {
	switch category {
	case model.CategoryBlind, model.CategoryMarkise:
		return f.cover, true
	case model.CategoryOnOffLight:
		return f.light, true
	case model.CategoryDimmer:
		return f.dimmer, true
	case model.CategoryUnknown:
		return nil, false
	}
	return nil, false
}
