// Package mapper defines the translation contract between vendor
// response shapes and domain entities, together with the shared
// coercion helpers every concrete mapper uses.
//
// A mapper is total over well-formed vendor input and fails loudly on
// malformed input: required fields and enumerated values produce a
// *mapper.Error naming the entity and field, while optional fields
// follow one uniform copy-if-present rule and never raise.
package mapper

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Mapper converts one vendor response shape S into one domain entity T.
// Each implementation is fixed over its (source, target) pair; adapters
// select the mapper statically, there is no runtime dispatch across
// mapper types.
type Mapper[S, T any] interface {
	Map(src S) (T, error)
}

// Error is a fatal mapping failure: a required field was absent or a
// value could not be resolved. It names exactly what failed so callers
// never have to guess.
type Error struct {
	Entity string
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("mapping %s.%s: %s", e.Entity, e.Field, e.Reason)
}

// Errorf builds a mapping Error for the given entity and field.
func Errorf(entity, field, format string, args ...any) *Error {
	return &Error{Entity: entity, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Missing builds a mapping Error for an absent required field.
func Missing(entity, field string) *Error {
	return &Error{Entity: entity, Field: field, Reason: "required field is absent"}
}

// ---------------------------------------------------------------------------
// Coercion helpers
// ---------------------------------------------------------------------------

// Float coerces a vendor decimal into a float64.
func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// OptFloat is the uniform copy-if-present rule for optional decimal
// fields: present becomes a fresh *float64, absent stays nil. All
// optional valuation fields go through this one helper so the policy
// cannot drift between fields.
func OptFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

// ParseFloat coerces a vendor string into a float64, reporting the
// entity and field on failure.
func ParseFloat(entity, field, s string) (float64, error) {
	if s == "" {
		return 0, Missing(entity, field)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, Errorf(entity, field, "cannot parse %q as number", s)
	}
	return f, nil
}

// ParseInt coerces a vendor string into an int, reporting the entity
// and field on failure.
func ParseInt(entity, field, s string) (int, error) {
	if s == "" {
		return 0, Missing(entity, field)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, Errorf(entity, field, "cannot parse %q as integer", s)
	}
	return n, nil
}

// OptParseFloat is the copy-if-present rule for optional string-typed
// numeric fields: empty or unparseable input stays nil, anything else
// becomes a fresh *float64. Optional fields never raise.
func OptParseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Ptr returns a pointer to v. Mappers use it when a vendor value is
// unconditionally present but the domain field is optional.
func Ptr[T any](v T) *T {
	return &v
}
