// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package analysis combines ACL evaluation, constraint checks, and
// user-supplied inputs into a single decision for a (subject,
// requested permissions) pair (spec §4.3).
package analysis

import (
	"time"

	"github.com/jitaccess/jitaccess/internal/constraint"
	"github.com/jitaccess/jitaccess/internal/jiterrors"
	"github.com/jitaccess/jitaccess/internal/policy"
	"github.com/jitaccess/jitaccess/internal/principal"
)

// AccessOptions controls how Result.Allowed interprets constraint
// state (spec §4.3).
type AccessOptions int

const (
	// Default requires the ACL check to pass and every applied
	// constraint to be satisfied with none failed.
	Default AccessOptions = iota
	// IgnoreConstraints requires only the ACL check to pass.
	IgnoreConstraints
)

// Result is the outcome of one Analysis.Execute call.
type Result struct {
	AccessAllowed bool

	Satisfied   []constraint.Constraint
	Unsatisfied []constraint.Constraint
	Failed      map[constraint.Constraint]error

	// Input is the union of inputs from every applied constraint,
	// deduplicated by name across constraints within one class
	// (spec §4.3).
	Input []constraint.Property

	// ActiveMembership is the subject's currently active membership
	// of the target group, if any.
	ActiveMembership *principal.Principal

	checks []*constraint.Check
}

// Allowed reports whether access is granted under the given options.
func (r *Result) Allowed(opts AccessOptions) bool {
	if !r.AccessAllowed {
		return false
	}
	if opts == IgnoreConstraints {
		return true
	}
	return len(r.Unsatisfied) == 0 && len(r.Failed) == 0
}

// VerifyAccessAllowed returns jiterrors.ErrAccessDenied (aggregating
// reasons) unless Allowed(opts) is true.
func (r *Result) VerifyAccessAllowed(opts AccessOptions) error {
	if r.Allowed(opts) {
		return nil
	}
	var reasons []string
	if !r.AccessAllowed {
		reasons = append(reasons, "the ACL does not grant the requested permissions")
	}
	if opts == Default {
		for _, c := range r.Unsatisfied {
			reasons = append(reasons, "constraint \""+c.Name()+"\" is not satisfied")
		}
		for c, err := range r.Failed {
			reasons = append(reasons, "constraint \""+c.Name()+"\" failed: "+err.Error())
		}
	}
	return jiterrors.AccessDenied(reasons...)
}

// MissingRequiredInput returns the required properties that were
// never bound to a value, for the API layer to render as a 400.
func (r *Result) MissingRequiredInput() []constraint.Property {
	var missing []constraint.Property
	for _, p := range r.Input {
		if p.Required && !p.HasValue() {
			missing = append(missing, p)
		}
	}
	return missing
}

// Checks returns the underlying constraint checks that were executed,
// in the order the constraints were applied. Join operations use this
// to locate a satisfied expiry constraint.
func (r *Result) Checks() []*constraint.Check { return r.checks }

// groupNode is the subset of *policy.JitGroupPolicy an Analysis
// needs; satisfied by *policy.JitGroupPolicy directly.
type groupNode interface {
	IsAllowedByAcl(subject principal.Subject, mask policy.Permission) bool
	EffectiveConstraints(class constraint.Class) []constraint.Constraint
}

// Analysis evaluates one (subject, requestedPermissions) pair against
// a target group, optionally scoped to one or more constraint
// classes, with user-supplied raw input values bound by property
// name across every constraint that declares it.
type Analysis struct {
	group     groupNode
	subject   principal.Subject
	requested policy.Permission
	classes   []constraint.Class
	now       time.Time
	groupID   string
	attrs     constraint.SubjectAttrs
	rawInputs map[string]string
}

// New builds an Analysis for subject requesting requested permissions
// on group, identified by groupID for active-membership lookup. attrs
// supplies the subject.<attr> values expression constraints may
// reference.
func New(group groupNode, subject principal.Subject, requested policy.Permission, groupID string, attrs constraint.SubjectAttrs, now time.Time) *Analysis {
	return &Analysis{
		group:     group,
		subject:   subject,
		requested: requested,
		groupID:   groupID,
		attrs:     attrs,
		now:       now,
		rawInputs: make(map[string]string),
	}
}

// ApplyConstraints scopes the analysis to the given constraint
// classes; calling it multiple times accumulates classes. With no
// calls, Execute checks the ACL only.
func (a *Analysis) ApplyConstraints(classes ...constraint.Class) *Analysis {
	a.classes = append(a.classes, classes...)
	return a
}

// WithInput records a raw user-supplied value for the named property.
// Any constraint (within an applied class) declaring a property of
// this name receives the same raw value at Execute time, approximating
// the spec's "duplicate names share the same Property instance" via
// value equality rather than object identity.
func (a *Analysis) WithInput(name, value string) *Analysis {
	a.rawInputs[name] = value
	return a
}

// Execute runs the ACL check and every applied constraint class,
// returning the combined Result. Binding an explicitly user-supplied
// value that fails to parse or falls outside its declared range is an
// infrastructure-level InvalidInput failure, returned as an error
// rather than folded into Result (spec §6: "invalid/missing input ⇒
// 400-class with property name"). A required property that was never
// supplied is left unbound: the owning constraint's own Execute then
// naturally reports it unsatisfied, since the state-determination
// analysis (run under IgnoreConstraints, before any input exists) must
// not fail outright just because inputs have not been collected yet
// (spec §4.4). Constraint evaluation failures never escape as errors
// either: they are data, carried in Result.Failed (spec §9).
func (a *Analysis) Execute() (*Result, error) {
	result := &Result{
		AccessAllowed: a.group.IsAllowedByAcl(a.subject, a.requested),
		Failed:        make(map[constraint.Constraint]error),
	}

	if membership, ok := a.subject.Principals().ActiveMembership(a.groupID, a.now); ok {
		result.ActiveMembership = &membership
	}

	seenInputNames := make(map[string]bool)

	for _, class := range a.classes {
		for _, c := range a.group.EffectiveConstraints(class) {
			check := c.NewCheck(a.attrs)
			result.checks = append(result.checks, check)

			inputs := check.Inputs()
			for i := range inputs {
				p := &inputs[i]
				if raw, ok := a.rawInputs[p.Name]; ok {
					if err := p.Set(raw); err != nil {
						return nil, err
					}
				}
				if !seenInputNames[p.Name] {
					seenInputNames[p.Name] = true
					result.Input = append(result.Input, *p)
				}
			}

			satisfied, err := check.Execute()
			switch {
			case err != nil:
				result.Failed[c] = err
			case satisfied:
				result.Satisfied = append(result.Satisfied, c)
			default:
				result.Unsatisfied = append(result.Unsatisfied, c)
			}
		}
	}

	return result, nil
}
