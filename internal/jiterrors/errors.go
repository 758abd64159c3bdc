// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package jiterrors defines the error taxonomy shared across the join
// pipeline: sentinel kinds checked with errors.Is, wrapped with %w the
// way the rest of the service wraps collaborator failures.
package jiterrors

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers compare with errors.Is; do not compare
// error strings.
var (
	// ErrAccessDenied covers ACL denial, an execute() attempted on a
	// join that requires approval, or an entity hidden from the subject.
	ErrAccessDenied = errors.New("access is denied")

	// ErrInvalidInput covers property parse failure, an out-of-range
	// value, or a missing required input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConstraintUnsatisfied means one or more constraints evaluated
	// to false.
	ErrConstraintUnsatisfied = errors.New("constraint unsatisfied")

	// ErrConstraintFailed means a constraint threw while evaluating.
	ErrConstraintFailed = errors.New("constraint evaluation failed")

	// ErrResourceNotFound means an IdP/resource lookup missed.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrConflict means optimistic concurrency was exhausted.
	ErrConflict = errors.New("conflict")

	// ErrTransport covers a collaborator I/O failure.
	ErrTransport = errors.New("transport error")

	// ErrTokenVerification covers deferral token signature/parse failure.
	ErrTokenVerification = errors.New("token verification failed")

	// ErrUnsupported covers an operation that cannot proceed given the
	// current state (e.g. execute() with no satisfied expiry constraint).
	ErrUnsupported = errors.New("unsupported operation")
)

// AccessDenied wraps ErrAccessDenied with the reasons that were
// aggregated while verifying access.
func AccessDenied(reasons ...string) error {
	if len(reasons) == 0 {
		return ErrAccessDenied
	}
	return fmt.Errorf("%w: %s", ErrAccessDenied, joinReasons(reasons))
}

// InvalidInput wraps ErrInvalidInput with the offending property name.
func InvalidInput(property, reason string) error {
	return fmt.Errorf("%w: property %q: %s", ErrInvalidInput, property, reason)
}

// NotFound wraps ErrResourceNotFound with the resource identifier.
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrResourceNotFound, kind, id)
}

// Transport wraps ErrTransport around a collaborator error.
func Transport(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, cause)
}

func joinReasons(reasons []string) string {
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}

// CollapsedMessage is the user-visible message AccessDenied and
// ResourceNotFound collapse to at the API boundary, to avoid probing
// for the existence of resources the subject cannot see (spec §7).
const CollapsedMessage = "does not exist or access is denied"

// IsCollapsible reports whether err should be rendered as
// CollapsedMessage at the API boundary.
func IsCollapsible(err error) bool {
	return errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrResourceNotFound)
}
