package value

import "fmt"

// MissingKey determines how a resolution miss is handled at runtime.
type MissingKey int

const (
	// MissingDefault renders a miss as the empty string and treats it as
	// false in conditions.
	MissingDefault MissingKey = iota

	// MissingZero is accepted for compatibility and behaves like
	// MissingDefault, since a miss has no static type to take a zero value
	// from.
	MissingZero

	// MissingError turns a miss in a rendered path into an error.
	MissingError
)

// ParseMissingKey parses the value of a `missingkey=` option.
func ParseMissingKey(s string) (MissingKey, error) {
	switch s {
	case "default", "invalid":
		return MissingDefault, nil
	case "zero":
		return MissingZero, nil
	case "error":
		return MissingError, nil
	}
	return MissingDefault, fmt.Errorf("unrecognized missingkey value %q", s)
}

func (m MissingKey) String() string {
	switch m {
	case MissingZero:
		return "zero"
	case MissingError:
		return "error"
	}
	return "default"
}
