// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package idp

import (
	"context"

	"github.com/jitaccess/jitaccess/internal/policy"
)

// Binding is a single IAM role binding as held by the resource
// manager, with an optional condition expression.
type Binding struct {
	Principal string
	Role      string
	Condition string
}

// Policy is the resource manager's view of one resource's IAM policy:
// the full set of bindings currently in effect.
type Policy struct {
	Bindings []Binding
}

// Mutator transforms a resource's current IAM policy into its desired
// state. Returning the same value signals no change is needed.
type Mutator func(current Policy) (Policy, error)

// ResourceManagerClient is the resource-manager contract (spec §6):
// read-modify-write semantics with atomic per-resource replacement,
// driven by the caller's Mutator.
type ResourceManagerClient interface {
	// ModifyIamPolicy applies mutator to resource's current IAM
	// policy, atomically. rationale is an audit-log annotation.
	ModifyIamPolicy(ctx context.Context, resource policy.Resource, mutator Mutator, rationale string) error
}
