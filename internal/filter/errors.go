package filter

import "fmt"

// ErrorCode classifies why a strategy attempt was skipped.
type ErrorCode string

const (
	ErrorConfiguration ErrorCode = "CONFIGURATION"
	ErrorImageLoad     ErrorCode = "IMAGE_LOAD"
	ErrorEngine        ErrorCode = "ENGINE"
)

// Error is a per-strategy failure. It never aborts a cascade.
type Error struct {
	Code     ErrorCode
	Strategy Strategy
	Path     string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: strategy %s on %s (caused by: %v)", e.Code, e.Strategy, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s: strategy %s on %s", e.Code, e.Strategy, e.Path)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func errUnknownProfile(s Strategy, okProfile, okCriteria bool) error {
	switch {
	case !okProfile && !okCriteria:
		return fmt.Errorf("unknown preprocessing profile %q and criteria %q", s.Preprocessing, s.Criteria)
	case !okProfile:
		return fmt.Errorf("unknown preprocessing profile %q", s.Preprocessing)
	default:
		return fmt.Errorf("unknown criteria %q", s.Criteria)
	}
}
