// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"hash/fnv"
	"sort"
)

// Resource is opaque to the core policy engine beyond its Type, which
// the Provisioner uses to group bindings for atomic per-resource
// replacement (spec §3, §4.6).
type Resource struct {
	// Type names the kind of external resource (e.g. "project",
	// "folder"); the core never interprets it further.
	Type string

	// ID is the resource's identifier in the external resource
	// manager, opaque to the core.
	ID string
}

// Privilege is a tagged variant; IamRoleBinding is the only variant
// the core requires (spec §3).
type Privilege struct {
	kind privilegeKind
	iam  IamRoleBinding
}

type privilegeKind int

const privilegeKindIamRoleBinding privilegeKind = iota

// IamRoleBinding binds a role on a resource, with an optional
// description and an optional condition expression evaluated by the
// resource manager (opaque to the core).
type IamRoleBinding struct {
	Resource    Resource
	Role        string
	Description string
	Condition   string
}

// NewIamRoleBindingPrivilege wraps an IamRoleBinding as a Privilege.
func NewIamRoleBindingPrivilege(b IamRoleBinding) Privilege {
	return Privilege{kind: privilegeKindIamRoleBinding, iam: b}
}

// IamRoleBinding returns the wrapped binding and whether this
// privilege is in fact an IamRoleBinding variant.
func (p Privilege) IamRoleBinding() (IamRoleBinding, bool) {
	return p.iam, p.kind == privilegeKindIamRoleBinding
}

// Equal compares two privileges by all fields.
func (p Privilege) Equal(other Privilege) bool {
	if p.kind != other.kind {
		return false
	}
	return p.iam == other.iam
}

// Checksum produces a stable 32-bit checksum of this privilege,
// used by the Provisioner for idempotent reconciliation (spec §3,
// §8 invariant 4).
func (p Privilege) Checksum() uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(p.iam.Resource.Type))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(p.iam.Resource.ID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(p.iam.Role))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(p.iam.Description))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(p.iam.Condition))
	return h.Sum32()
}

// ChecksumSet computes the order-independent XOR checksum of a set
// of privileges (spec §4.6, §8 invariant 5).
func ChecksumSet(privileges []Privilege) uint32 {
	var checksum uint32
	for _, p := range privileges {
		checksum ^= p.Checksum()
	}
	return checksum
}

// SortedByResource groups privileges by resource, returning resources
// in a stable (type, id) order for deterministic iteration during
// reconciliation.
func SortedByResource(privileges []Privilege) []Resource {
	seen := make(map[Resource]bool)
	var resources []Resource
	for _, p := range privileges {
		b, ok := p.IamRoleBinding()
		if !ok {
			continue
		}
		if !seen[b.Resource] {
			seen[b.Resource] = true
			resources = append(resources, b.Resource)
		}
	}
	sort.Slice(resources, func(i, j int) bool {
		if resources[i].Type != resources[j].Type {
			return resources[i].Type < resources[j].Type
		}
		return resources[i].ID < resources[j].ID
	})
	return resources
}
