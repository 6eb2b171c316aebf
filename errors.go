package maitre

import "fmt"

// ErrValidation reports structurally invalid input caught before any
// processing work: bad boundary construction, malformed export data.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ErrFormat reports an unsupported export format with no custom serializer
// supplied.
type ErrFormat struct {
	Format string
}

func (e *ErrFormat) Error() string {
	return fmt.Sprintf("unsupported format %q", e.Format)
}
