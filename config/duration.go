package config

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/uistream/errors"
)

// Duration is a time.Duration that decodes from YAML duration strings
// ("30s", "1m30s") as well as integer nanoseconds.
type Duration time.Duration

// Std returns the standard library duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return errors.WrapInvalid(perr, "config", "UnmarshalYAML", "parse duration "+s)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := node.Decode(&n); err != nil {
		return errors.WrapInvalid(err, "config", "UnmarshalYAML", "decode duration")
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}
