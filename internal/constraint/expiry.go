// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package constraint

import "time"

// expiryPropertyName is the Property name used for the user-supplied
// duration input on a user-defined ExpiryConstraint.
const expiryPropertyName = "expiry"

// ExpiryConstraint is either fixed (Min == Max, always satisfied with
// that duration) or a user-defined range, in which case it exposes a
// Duration-typed "expiry" Property and is satisfied iff the caller
// supplied a value within [Min, Max] (spec §3, §4.2).
type ExpiryConstraint struct {
	name  string
	class Class
	min   time.Duration
	max   time.Duration
}

// NewExpiryConstraint builds an expiry constraint bounded by
// [min, max]. Pass min == max for a fixed expiry.
func NewExpiryConstraint(name string, class Class, min, max time.Duration) *ExpiryConstraint {
	return &ExpiryConstraint{name: name, class: class, min: min, max: max}
}

func (e *ExpiryConstraint) Name() string { return e.name }
func (e *ExpiryConstraint) Class() Class { return e.class }

// Fixed reports whether this constraint has a single fixed duration.
func (e *ExpiryConstraint) Fixed() bool { return e.min == e.max }

// Min returns the minimum allowed duration.
func (e *ExpiryConstraint) Min() time.Duration { return e.min }

// Max returns the maximum allowed duration.
func (e *ExpiryConstraint) Max() time.Duration { return e.max }

func (e *ExpiryConstraint) Properties() []Property {
	if e.Fixed() {
		return nil
	}
	min := int64(e.min / time.Second)
	max := int64(e.max / time.Second)
	return []Property{{
		Name:         expiryPropertyName,
		DisplayName:  "Expiry",
		Required:     true,
		Type:         TypeDuration,
		MinInclusive: &min,
		MaxInclusive: &max,
	}}
}

func (e *ExpiryConstraint) NewCheck(subject SubjectAttrs) *Check {
	return newCheck(e, subject, e.execute)
}

func (e *ExpiryConstraint) execute(check *Check) (bool, error) {
	if e.Fixed() {
		return true, nil
	}
	p, ok := check.Input(expiryPropertyName)
	if !ok || !p.HasValue() {
		return false, nil
	}
	d := p.DurationValue()
	return d >= e.min && d <= e.max, nil
}

// Duration implements Expirer: it returns the fixed duration, or the
// bound user-supplied duration, provided the check is satisfied.
func (e *ExpiryConstraint) Duration(check *Check) (time.Duration, bool) {
	if e.Fixed() {
		return e.min, true
	}
	p, ok := check.Input(expiryPropertyName)
	if !ok || !p.HasValue() {
		return 0, false
	}
	d := p.DurationValue()
	if d < e.min || d > e.max {
		return 0, false
	}
	return d, true
}
