// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"

	"github.com/jitaccess/jitaccess/internal/constraint"
	"github.com/jitaccess/jitaccess/internal/principal"
)

// node holds the fields and inheritance logic shared by every level
// of the Environment → System → JitGroup tree (spec §3, §4.1).
// Parent links are write-once; a parent owns its children exclusively
// and children hold only a non-owning back-reference for inheritance
// lookup (spec §9).
type node struct {
	name        string
	description string
	acl         *ACL
	constraints map[constraint.Class][]constraint.Constraint
	metadata    map[string]string

	parent    *node
	parentSet bool
}

func newNode(name, description string, acl *ACL, constraints map[constraint.Class][]constraint.Constraint, metadata map[string]string) node {
	if constraints == nil {
		constraints = make(map[constraint.Class][]constraint.Constraint)
	}
	return node{
		name:        name,
		description: description,
		acl:         acl,
		constraints: constraints,
		metadata:    metadata,
	}
}

// setParent assigns the parent link exactly once. It fails if already
// set, or if parent is the node itself.
func (n *node) setParent(parent *node) error {
	if n.parentSet {
		return fmt.Errorf("parent of %q is already set", n.name)
	}
	if parent == n {
		return fmt.Errorf("node %q cannot be its own parent", n.name)
	}
	n.parent = parent
	n.parentSet = true
	return nil
}

// Name returns the node's own name.
func (n *node) Name() string { return n.name }

// Description returns the node's own description.
func (n *node) Description() string { return n.description }

// Metadata returns this node's metadata, defaulting to the parent's
// if this node declared none.
func (n *node) Metadata() map[string]string {
	if len(n.metadata) > 0 {
		return n.metadata
	}
	if n.parent != nil {
		return n.parent.Metadata()
	}
	return nil
}

// isAllowedByAcl is true iff this node's ACL allows mask for subject
// AND every ancestor's ACL allows mask too (independent AND;
// spec §4.1, §8 invariant 1).
func (n *node) isAllowedByAcl(subject principal.Subject, mask Permission) bool {
	if !n.acl.allows(subject, mask) {
		return false
	}
	if n.parent != nil {
		return n.parent.isAllowedByAcl(subject, mask)
	}
	return true
}

// effectiveConstraints returns this node's constraints of the given
// class, with this node's entries shadowing an ancestor's entry of
// the same name, ordered child-first (spec §4.1, §8 invariant 2).
func (n *node) effectiveConstraints(class constraint.Class) []constraint.Constraint {
	own := n.constraints[class]
	result := make([]constraint.Constraint, 0, len(own))
	shadowed := make(map[string]bool, len(own))
	for _, c := range own {
		result = append(result, c)
		shadowed[c.Name()] = true
	}
	if n.parent != nil {
		for _, c := range n.parent.effectiveConstraints(class) {
			if !shadowed[c.Name()] {
				result = append(result, c)
			}
		}
	}
	return result
}
