package catalog

import "fmt"

type ErrorKind string

const (
	InvalidDescriptor ErrorKind = "invalid_descriptor"
	InvalidIdentity   ErrorKind = "invalid_identity"
)

// CatalogError reports discovery data that cannot be turned into a catalog. It is permanent
// until the hub is rediscovered.
type CatalogError struct {
	Kind   ErrorKind
	Key    string
	Field  string
	Reason string
}

func (e *CatalogError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("catalog: %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("catalog: %s %q: field %q: %s", e.Kind, e.Key, e.Field, e.Reason)
}

// Is matches any CatalogError of the same kind, so errors.Is(err, &CatalogError{Kind: InvalidDescriptor}) works.
func (e *CatalogError) Is(target error) bool {
	t, ok := target.(*CatalogError)
	return ok && t.Kind == e.Kind
}
