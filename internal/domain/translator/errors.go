package translator

import (
	"fmt"
	"zeptrion-bridge/internal/domain/model"
)

type ErrorKind string

const (
	UnsupportedForCategory ErrorKind = "unsupported_for_category"
	InvalidParameter       ErrorKind = "invalid_parameter"
)

// TranslationError is caller misuse. It is never transient and must not be retried.
type TranslationError struct {
	Kind     ErrorKind
	Category model.Category
	Command  model.Command
	Reason   string
}

func (e *TranslationError) Error() string {
	if e.Kind == UnsupportedForCategory {
		return fmt.Sprintf("command %s is not supported for category %s", e.Command, e.Category)
	}
	return fmt.Sprintf("invalid parameter for %s: %s", e.Command.Kind, e.Reason)
}

func (e *TranslationError) Is(target error) bool {
	t, ok := target.(*TranslationError)
	return ok && t.Kind == e.Kind
}

func rangeReason(v, lo, hi int) string {
	return fmt.Sprintf("%d is outside %d..%d", v, lo, hi)
}
