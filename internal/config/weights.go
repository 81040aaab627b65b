// Package config holds scheduler settings: weight class selection and the
// optional per-directory configuration file.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// WeightClass is a coarse duration category for a unit.
type WeightClass string

const (
	Short        WeightClass = "short"
	Intermediate WeightClass = "intermediate"
	Long         WeightClass = "long"
)

// WeightClasses lists the classes from the lowest mask bit up.
var WeightClasses = []WeightClass{Short, Intermediate, Long}

// ParseWeightClass validates a weight class name.
func ParseWeightClass(s string) (WeightClass, error) {
	for _, c := range WeightClasses {
		if string(c) == s {
			return c, nil
		}
	}
	return "", &ConfigurationError{Setting: "weight_class", Value: s, Reason: "must be one of short, intermediate, long"}
}

// WeightMask selects weight classes: bit 0 short, bit 1 intermediate, bit 2 long.
type WeightMask uint8

const (
	MaskShort WeightMask = 1 << iota
	MaskIntermediate
	MaskLong

	MaskNone WeightMask = 0
	MaskAll             = MaskShort | MaskIntermediate | MaskLong
)

// DecodeWeightMask converts the 0-7 command line value into a mask.
func DecodeWeightMask(n int) (WeightMask, error) {
	if n < 0 || n > int(MaskAll) {
		return 0, &ConfigurationError{Setting: "weights", Value: n, Reason: "must be between 0 and 7"}
	}
	return WeightMask(n), nil
}

func (m WeightMask) bit(c WeightClass) WeightMask {
	switch c {
	case Short:
		return MaskShort
	case Intermediate:
		return MaskIntermediate
	case Long:
		return MaskLong
	}
	return 0
}

// Allows reports whether units of class c are selected.
func (m WeightMask) Allows(c WeightClass) bool {
	b := m.bit(c)
	return b != 0 && m&b != 0
}

// Classes returns the selected classes, long first.
func (m WeightMask) Classes() []WeightClass {
	var out []WeightClass
	for i := len(WeightClasses) - 1; i >= 0; i-- {
		if m.Allows(WeightClasses[i]) {
			out = append(out, WeightClasses[i])
		}
	}
	return out
}

// String renders the mask as "long+short", or "none".
func (m WeightMask) String() string {
	classes := m.Classes()
	if len(classes) == 0 {
		return "none"
	}
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = string(c)
	}
	return strings.Join(names, "+")
}

// WeightsHelp describes the mask values for the command line.
const WeightsHelp = "weight classes to run: 0=none 1=short 2=intermediate 3=short+intermediate 4=long 5=long+short 6=long+intermediate 7=all"

// ConfigurationError reports an out-of-range or malformed scheduler setting.
type ConfigurationError struct {
	Setting string
	Value   any
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Setting, e.Value, e.Reason)
}

// IsConfigurationError returns true if err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
