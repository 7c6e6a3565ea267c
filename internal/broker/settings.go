package broker

import (
	"errors"
	"fmt"
)

// Settings is the flat string-keyed, string-valued configuration an
// adapter is constructed from. The value type makes "all values are
// strings" a compile-time guarantee; Require covers the rest of the
// construction-time checks.
type Settings map[string]string

// Require reports a configuration error when the settings map is nil or
// any of the named keys is missing or empty. Adapters call it in their
// constructors so a misconfigured adapter fails before its first vendor
// call.
func (s Settings) Require(keys ...string) error {
	if s == nil {
		return errors.New("settings must be a non-nil map")
	}
	for _, k := range keys {
		if s[k] == "" {
			return fmt.Errorf("settings: required key %q is missing or empty", k)
		}
	}
	return nil
}

// ErrNotSupported marks an operation a broker cannot serve. Match it
// with errors.Is.
var ErrNotSupported = errors.New("operation not supported")

// NotSupportedError identifies which broker refused which operation, so
// an unsupported capability is never mistaken for a legitimate empty
// answer.
type NotSupportedError struct {
	Broker string
	Op     string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Broker, e.Op, ErrNotSupported)
}

// Unwrap makes errors.Is(err, ErrNotSupported) hold.
func (e *NotSupportedError) Unwrap() error {
	return ErrNotSupported
}
