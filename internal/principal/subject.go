// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package principal

// Subject is the authenticated user plus every principal they carry
// into policy evaluation for the lifetime of one request.
//
// Invariant: User() is always a member of Principals().
type Subject struct {
	user       Principal
	principals Set
}

// NewSubject builds a Subject from the resolved principal set,
// enforcing the user ∈ principals invariant.
func NewSubject(user Principal, principals Set) Subject {
	if !principals.Contains(user) {
		principals = append(append(Set{}, principals...), user)
	}
	return Subject{user: user, principals: principals}
}

// User returns the authenticated user principal.
func (s Subject) User() Principal { return s.user }

// Principals returns every principal the subject carries, including
// the user itself, group memberships, and active JIT memberships.
func (s Subject) Principals() Set { return s.principals }
