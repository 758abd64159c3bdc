// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package constraint

import "time"

// Class is the constraint class a constraint applies to: a group's
// join path evaluates JOIN constraints, a self-approve or delegated
// approve path additionally evaluates APPROVE constraints (spec §4.3).
type Class string

const (
	ClassJoin    Class = "JOIN"
	ClassApprove Class = "APPROVE"
)

// SubjectAttrs carries the subject.<attr> values an expression
// constraint may reference. Built by the caller (analysis package)
// from a resolved principal.Subject; kept decoupled from the
// principal package so constraint has no dependency on it.
type SubjectAttrs map[string]any

// Constraint is a named check with zero or more typed Property
// inputs. Concrete kinds (expression, expiry) implement this
// interface; new kinds are added by extending the variant set, not by
// open-ended subclassing (spec §9).
type Constraint interface {
	// Name uniquely identifies this constraint within its owning
	// policy node's constraint list for a given Class.
	Name() string

	// Class reports which constraint class this constraint belongs to.
	Class() Class

	// Properties returns the declared input templates; callers clone
	// them via NewCheck before binding values.
	Properties() []Property

	// NewCheck starts a fresh evaluation bound to subject.
	NewCheck(subject SubjectAttrs) *Check
}

// Check holds per-evaluation mutable state: cloned Property inputs
// and a free-form context map, plus the logic to execute the owning
// constraint against them.
type Check struct {
	constraint Constraint
	subject    SubjectAttrs
	inputs     []Property
	context    map[string]any

	exec func(*Check) (bool, error)
}

func newCheck(c Constraint, subject SubjectAttrs, exec func(*Check) (bool, error)) *Check {
	templates := c.Properties()
	inputs := make([]Property, len(templates))
	for i, t := range templates {
		inputs[i] = t.Clone()
	}
	return &Check{
		constraint: c,
		subject:    subject,
		inputs:     inputs,
		context:    make(map[string]any),
		exec:       exec,
	}
}

// Constraint returns the constraint this check evaluates.
func (c *Check) Constraint() Constraint { return c.constraint }

// Inputs returns the bound (or still-unbound) property instances.
func (c *Check) Inputs() []Property { return c.inputs }

// Input returns the named input property, if declared.
func (c *Check) Input(name string) (*Property, bool) {
	for i := range c.inputs {
		if c.inputs[i].Name == name {
			return &c.inputs[i], true
		}
	}
	return nil, false
}

// Set parses value into the named input property. Returns
// jiterrors.ErrInvalidInput if name is undeclared, or (via
// Property.Set) if parsing fails.
func (c *Check) Set(name, value string) error {
	p, ok := c.Input(name)
	if !ok {
		return errUndeclaredProperty(name)
	}
	return p.Set(value)
}

// ContextValue stores an arbitrary key/value pair in the check's
// context map, readable through Context. The expression and expiry
// kinds do not read it.
func (c *Check) ContextValue(key string, value any) {
	c.context[key] = value
}

// Context returns the free-form context map.
func (c *Check) Context() map[string]any { return c.context }

// Execute runs the constraint's evaluation logic. It returns
// (true, nil) when satisfied, (false, nil) when unsatisfied, and
// (false, err) when the constraint failed to evaluate (distinct from
// unsatisfied, spec §4.2).
func (c *Check) Execute() (bool, error) {
	return c.exec(c)
}

// Expirer is implemented by constraints that can hand the Join
// Operation a concrete membership duration once satisfied (the
// expiry constraint kind).
type Expirer interface {
	// Duration returns the duration a satisfied check bound, and
	// whether the check has in fact been satisfied.
	Duration(check *Check) (time.Duration, bool)
}
