// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package idp declares the identity-provider client contract the
// Subject Resolver and Provisioner depend on. The concrete client
// (e.g. a Google Workspace Admin SDK wrapper) is an external
// collaborator out of scope for this spec (spec §1, §6); this package
// only carries the interface and the shared wire types.
package idp

import (
	"context"
	"time"
)

// GroupType distinguishes the kind of group created in the IdP.
type GroupType int

const (
	// GroupTypeSecurity is the only group type the Provisioner
	// creates (spec §4.6).
	GroupTypeSecurity GroupType = iota
)

// GroupKey identifies a group in the external IdP, typically its
// email address.
type GroupKey struct {
	Email string
}

// Group is the IdP's view of a group.
type Group struct {
	Key         GroupKey
	DisplayName string
	Description string
}

// MembershipRef is a lightweight reference to one of a user's group
// memberships, as returned by listing.
type MembershipRef struct {
	// ID opaquely identifies this membership for a follow-up
	// GetMembership call.
	ID string
	// GroupKey is the group this membership belongs to.
	GroupKey GroupKey
}

// MembershipDetails carries the role expiries attached to a
// membership. A JIT membership has at least one role with an expiry;
// a membership with no expiring roles is not a JIT membership
// (spec §4.5).
type MembershipDetails struct {
	RoleExpiries []time.Time
}

// EarliestExpiry returns the earliest of the membership's role
// expiries, and whether any were present.
func (d MembershipDetails) EarliestExpiry() (time.Time, bool) {
	if len(d.RoleExpiries) == 0 {
		return time.Time{}, false
	}
	earliest := d.RoleExpiries[0]
	for _, t := range d.RoleExpiries[1:] {
		if t.Before(earliest) {
			earliest = t
		}
	}
	return earliest, true
}

// Client is the identity-provider contract (spec §6). Implementations
// are external collaborators; this interface only fixes the shape the
// core depends on.
type Client interface {
	// ListMembershipsByUser lists every group the user directly
	// belongs to.
	ListMembershipsByUser(ctx context.Context, userEmail string) ([]MembershipRef, error)

	// GetMembership fetches membership details by the opaque id
	// returned from ListMembershipsByUser.
	GetMembership(ctx context.Context, id string) (MembershipDetails, error)

	// CreateGroup creates a group if it does not already exist.
	CreateGroup(ctx context.Context, key GroupKey, groupType GroupType, displayName, description string) error

	// AddMembership adds or updates user's membership of the group
	// identified by key, with the given expiry.
	AddMembership(ctx context.Context, key GroupKey, userEmail string, expiry time.Time) error

	// GetGroup fetches a group's current state, including its
	// description (which the Provisioner uses to carry the checksum
	// tag, spec §4.6).
	GetGroup(ctx context.Context, key GroupKey) (Group, error)

	// PatchGroup rewrites a group's description.
	PatchGroup(ctx context.Context, key GroupKey, description string) error
}
