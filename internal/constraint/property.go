// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package constraint implements the typed-input Constraint model: a
// named check (expression or expiry) over a set of declared Property
// inputs, producing satisfied/unsatisfied/failed outcomes as data
// rather than as exceptions (spec §4.2, §9).
package constraint

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jitaccess/jitaccess/internal/jiterrors"
)

// Type enumerates the typed inputs a Property may declare.
type Type int

const (
	TypeString Type = iota
	TypeBool
	TypeLong
	TypeDuration
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeLong:
		return "long"
	case TypeDuration:
		return "duration"
	default:
		return "unknown"
	}
}

// Property is a single typed input a Constraint declares. A Property
// value created from a Constraint's declaration is a template; Check
// clones it per-evaluation and calls Set to bind a value.
type Property struct {
	Name        string
	DisplayName string
	Required    bool
	Type        Type

	// MinInclusive/MaxInclusive bound range-typed properties (Long and
	// Duration). Both nil means unbounded.
	MinInclusive *int64
	MaxInclusive *int64

	value    any
	hasValue bool
}

// Clone returns a copy of the property template with no bound value.
func (p Property) Clone() Property {
	p.value = nil
	p.hasValue = false
	return p
}

// Set parses value according to the property's declared Type and
// binds it. Parse failure or an out-of-range value both fail with
// jiterrors.ErrInvalidInput (spec §4.2).
func (p *Property) Set(value string) error {
	switch p.Type {
	case TypeString:
		p.value = value
	case TypeBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return jiterrors.InvalidInput(p.Name, "not a boolean: "+value)
		}
		p.value = b
	case TypeLong:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return jiterrors.InvalidInput(p.Name, "not an integer: "+value)
		}
		if err := p.checkRange(n); err != nil {
			return err
		}
		p.value = n
	case TypeDuration:
		seconds, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return jiterrors.InvalidInput(p.Name, "not a duration in seconds: "+value)
		}
		if err := p.checkRange(seconds); err != nil {
			return err
		}
		p.value = time.Duration(seconds) * time.Second
	default:
		return jiterrors.InvalidInput(p.Name, "unsupported property type")
	}
	p.hasValue = true
	return nil
}

func (p Property) checkRange(v int64) error {
	if p.MinInclusive != nil && v < *p.MinInclusive {
		return jiterrors.InvalidInput(p.Name, fmt.Sprintf("%d is below the minimum %d", v, *p.MinInclusive))
	}
	if p.MaxInclusive != nil && v > *p.MaxInclusive {
		return jiterrors.InvalidInput(p.Name, fmt.Sprintf("%d is above the maximum %d", v, *p.MaxInclusive))
	}
	return nil
}

// HasValue reports whether Set has bound a value to this property.
func (p Property) HasValue() bool { return p.hasValue }

// Value returns the bound value, or nil if unset.
func (p Property) Value() any { return p.value }

// BoolValue returns the bound value as a bool, or false if unset or
// of a different type.
func (p Property) BoolValue() bool {
	b, _ := p.value.(bool)
	return b
}

// DurationValue returns the bound value as a time.Duration, or zero
// if unset or of a different type.
func (p Property) DurationValue() time.Duration {
	d, _ := p.value.(time.Duration)
	return d
}

// StringValue returns the bound value as a string, or "" if unset or
// of a different type.
func (p Property) StringValue() string {
	s, _ := p.value.(string)
	return s
}
