package appointment

import "fmt"

// Kind classifies scheduling failures so callers can map them to HTTP
// statuses or form messages without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindSlotUnavailable
	KindOutsideWorkingHours
	KindNotEditable
	KindNotCancellable
	KindForbidden
	KindInvalidTransition
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindSlotUnavailable:
		return "slot_unavailable"
	case KindOutsideWorkingHours:
		return "outside_working_hours"
	case KindNotEditable:
		return "not_editable"
	case KindNotCancellable:
		return "not_cancellable"
	case KindForbidden:
		return "forbidden"
	case KindInvalidTransition:
		return "invalid_transition"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from an error, or KindUnknown for errors that did
// not originate in this package.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}
