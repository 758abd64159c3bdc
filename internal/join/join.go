// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package join implements the Join Operation state machine: Proposed,
// SelfApprovable, ApprovalRequired, Executed, Deferred (spec §4.4).
package join

import (
	"context"
	"time"

	"github.com/jitaccess/jitaccess/internal/analysis"
	"github.com/jitaccess/jitaccess/internal/catalog"
	"github.com/jitaccess/jitaccess/internal/constraint"
	"github.com/jitaccess/jitaccess/internal/jiterrors"
	"github.com/jitaccess/jitaccess/internal/policy"
	"github.com/jitaccess/jitaccess/internal/principal"
)

// State is the Join Operation's current lifecycle state.
type State int

const (
	// Proposed is the initial state, immediately before the
	// self-approve/approval-required branch is determined.
	Proposed State = iota
	// SelfApprovable means the subject holds both JOIN and
	// APPROVE_SELF, and the combined analysis succeeds under
	// IgnoreConstraints.
	SelfApprovable
	// ApprovalRequired means the subject holds JOIN but not
	// APPROVE_SELF, or the self-approve analysis failed.
	ApprovalRequired
	// Executed means provisioning has completed.
	Executed
	// Deferred means the operation was handed off to approvers via a
	// signed token.
	Deferred
)

func (s State) String() string {
	switch s {
	case Proposed:
		return "PROPOSED"
	case SelfApprovable:
		return "SELF_APPROVABLE"
	case ApprovalRequired:
		return "APPROVAL_REQUIRED"
	case Executed:
		return "EXECUTED"
	case Deferred:
		return "DEFERRED"
	default:
		return "UNKNOWN"
	}
}

// Operation is one subject's attempt to join a JitGroup, carrying the
// accumulated input across dryRun/execute calls within one request
// (spec §5 "dryRun ≼ execute in the same request").
type Operation struct {
	view  *catalog.JitGroupView
	now   time.Time
	state State

	inputs map[string]string
}

// New constructs an Operation for view, determining whether the
// subject's path is self-approvable without requiring any input
// (spec §4.4 "On creation, the system attempts the self-approve
// branch first ... under IGNORE_CONSTRAINTS").
func New(view *catalog.JitGroupView, now time.Time) (*Operation, error) {
	op := &Operation{view: view, now: now, inputs: make(map[string]string)}

	selfApproveMask := policy.PermissionJoin | policy.PermissionApproveSelf
	result, err := op.analyze(selfApproveMask, constraint.ClassJoin, constraint.ClassApprove)
	if err != nil {
		return nil, err
	}
	if result.Allowed(analysis.IgnoreConstraints) {
		op.state = SelfApprovable
		return op, nil
	}
	op.state = ApprovalRequired
	return op, nil
}

// State returns the operation's current state.
func (op *Operation) State() State { return op.state }

// SetInput records a raw user-supplied value for the named input
// property, applied to every subsequent dryRun/execute (spec §5).
func (op *Operation) SetInput(name, value string) {
	op.inputs[name] = value
}

func (op *Operation) subjectAttrs() constraint.SubjectAttrs {
	return constraint.SubjectAttrs{
		"email": op.view.Subject().User().Email(),
	}
}

func (op *Operation) analyze(requested policy.Permission, classes ...constraint.Class) (*analysis.Result, error) {
	a := analysis.New(op.view.Policy(), op.view.Subject(), requested, op.view.ID().String(), op.subjectAttrs(), op.now)
	a.ApplyConstraints(classes...)
	for name, value := range op.inputs {
		a.WithInput(name, value)
	}
	return a.Execute()
}

// classesForState returns the constraint classes the operation's
// current state evaluates.
func (op *Operation) classesForState() []constraint.Class {
	if op.state == SelfApprovable {
		return []constraint.Class{constraint.ClassJoin, constraint.ClassApprove}
	}
	return []constraint.Class{constraint.ClassJoin}
}

func (op *Operation) requestedMask() policy.Permission {
	if op.state == SelfApprovable {
		return policy.PermissionJoin | policy.PermissionApproveSelf
	}
	return policy.PermissionJoin
}

// DryRun re-executes the analysis with the operation's currently
// bound inputs, side-effect-free and idempotent (spec §4.4).
func (op *Operation) DryRun() (*analysis.Result, error) {
	return op.analyze(op.requestedMask(), op.classesForState()...)
}

// Execute provisions access. Valid only from SelfApprovable
// (spec §4.4 step "execute() is valid only from SelfApprovable").
func (op *Operation) Execute(ctx context.Context) (principal.Principal, error) {
	if op.state == ApprovalRequired || op.state == Deferred {
		return principal.Principal{}, jiterrors.AccessDenied("joining this group requires approval")
	}
	if op.state != SelfApprovable {
		return principal.Principal{}, jiterrors.ErrUnsupported
	}

	result, err := op.analyze(op.requestedMask(), op.classesForState()...)
	if err != nil {
		return principal.Principal{}, err
	}
	if err := result.VerifyAccessAllowed(analysis.Default); err != nil {
		return principal.Principal{}, err
	}

	duration, check, ok := firstSatisfiedExpiry(result)
	if !ok {
		return principal.Principal{}, jiterrors.ErrUnsupported
	}
	_ = check

	expiry := op.now.Add(duration)
	id := op.view.ID()
	if err := op.view.Provisioner().Provision(ctx, id, op.view.Subject().User().Email(), expiry); err != nil {
		return principal.Principal{}, err
	}
	if err := op.view.Provisioner().ProvisionAccess(ctx, id, op.view.Policy().Privileges()); err != nil {
		return principal.Principal{}, err
	}

	op.state = Executed
	return principal.JitGroupMembership(id.String(), expiry), nil
}

// DelegateForApproval verifies the JOIN-only analysis under Default
// and transitions to Deferred. Valid only from ApprovalRequired
// (spec §4.4 "delegateForApproval() is valid only from
// ApprovalRequired"). The caller is responsible for handing the
// operation to the Deferral component (internal/deferral) to mint the
// signed token; this method only performs the state transition and
// its precondition check.
func (op *Operation) DelegateForApproval() error {
	if op.state != ApprovalRequired {
		return jiterrors.ErrUnsupported
	}

	result, err := op.analyze(policy.PermissionJoin, constraint.ClassJoin)
	if err != nil {
		return err
	}
	if err := result.VerifyAccessAllowed(analysis.Default); err != nil {
		return err
	}

	op.state = Deferred
	return nil
}

// View returns the JitGroupView this operation targets.
func (op *Operation) View() *catalog.JitGroupView { return op.view }

// Inputs returns the raw input values bound so far, for the Deferral
// component to serialize in canonical order.
func (op *Operation) Inputs() map[string]string {
	out := make(map[string]string, len(op.inputs))
	for k, v := range op.inputs {
		out[k] = v
	}
	return out
}

// firstSatisfiedExpiry locates the first satisfied constraint (in
// declaration order) that implements constraint.Expirer and reports a
// bound duration, per the spec's deterministic tie-break (§4.4).
func firstSatisfiedExpiry(result *analysis.Result) (time.Duration, *constraint.Check, bool) {
	satisfied := make(map[constraint.Constraint]bool, len(result.Satisfied))
	for _, c := range result.Satisfied {
		satisfied[c] = true
	}

	for _, check := range result.Checks() {
		if !satisfied[check.Constraint()] {
			continue
		}
		expirer, ok := check.Constraint().(constraint.Expirer)
		if !ok {
			continue
		}
		duration, ok := expirer.Duration(check)
		if !ok {
			continue
		}
		return duration, check, true
	}
	return 0, nil, false
}
