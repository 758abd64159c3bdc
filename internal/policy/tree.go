// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"

	"github.com/jitaccess/jitaccess/internal/constraint"
	"github.com/jitaccess/jitaccess/internal/principal"
)

// EnvironmentPolicy is the root of one environment's policy tree.
type EnvironmentPolicy struct {
	node
	systems []*SystemPolicy
}

// NewEnvironmentPolicy constructs a root environment policy node. The
// name must satisfy ValidateEnvironmentName.
func NewEnvironmentPolicy(name, description string, acl *ACL, constraints map[constraint.Class][]constraint.Constraint, metadata map[string]string) (*EnvironmentPolicy, error) {
	if err := ValidateEnvironmentName(name); err != nil {
		return nil, err
	}
	return &EnvironmentPolicy{node: newNode(name, description, acl, constraints, metadata)}, nil
}

// AddSystem attaches sys as a child, assigning its parent link. It
// fails if a sibling with the same name already exists.
func (e *EnvironmentPolicy) AddSystem(sys *SystemPolicy) error {
	for _, existing := range e.systems {
		if existing.name == sys.name {
			return fmt.Errorf("system %q already exists in environment %q", sys.name, e.name)
		}
	}
	if err := sys.setParent(&e.node); err != nil {
		return err
	}
	sys.env = e
	e.systems = append(e.systems, sys)
	return nil
}

// Systems returns the direct child systems, in insertion order.
func (e *EnvironmentPolicy) Systems() []*SystemPolicy { return append([]*SystemPolicy(nil), e.systems...) }

// System looks up a direct child system by name, case-sensitively
// (names are restricted to a conservative charset so case sensitivity
// here does not affect JitGroupId's case-insensitive equality).
func (e *EnvironmentPolicy) System(name string) (*SystemPolicy, bool) {
	for _, sys := range e.systems {
		if sys.name == name {
			return sys, true
		}
	}
	return nil, false
}

// IsAllowedByAcl reports whether subject is granted mask at this
// environment node (it has no ancestors).
func (e *EnvironmentPolicy) IsAllowedByAcl(subject principal.Subject, mask Permission) bool {
	return e.isAllowedByAcl(subject, mask)
}

// EffectiveConstraints returns this environment's effective
// constraints for class.
func (e *EnvironmentPolicy) EffectiveConstraints(class constraint.Class) []constraint.Constraint {
	return e.effectiveConstraints(class)
}

// SystemPolicy is one system within an environment.
type SystemPolicy struct {
	node
	groups []*JitGroupPolicy
	env    *EnvironmentPolicy
}

// NewSystemPolicy constructs a system policy node, not yet attached
// to an environment. The name must satisfy ValidateNodeName.
func NewSystemPolicy(name, description string, acl *ACL, constraints map[constraint.Class][]constraint.Constraint, metadata map[string]string) (*SystemPolicy, error) {
	if err := ValidateNodeName(name); err != nil {
		return nil, err
	}
	return &SystemPolicy{node: newNode(name, description, acl, constraints, metadata)}, nil
}

// AddGroup attaches grp as a child, assigning its parent link. It
// fails if a sibling with the same name already exists.
func (s *SystemPolicy) AddGroup(grp *JitGroupPolicy) error {
	for _, existing := range s.groups {
		if existing.name == grp.name {
			return fmt.Errorf("group %q already exists in system %q", grp.name, s.name)
		}
	}
	if err := grp.setParent(&s.node); err != nil {
		return err
	}
	grp.sys = s
	s.groups = append(s.groups, grp)
	return nil
}

// Groups returns the direct child groups, in insertion order.
func (s *SystemPolicy) Groups() []*JitGroupPolicy { return append([]*JitGroupPolicy(nil), s.groups...) }

// Group looks up a direct child group by name.
func (s *SystemPolicy) Group(name string) (*JitGroupPolicy, bool) {
	for _, grp := range s.groups {
		if grp.name == name {
			return grp, true
		}
	}
	return nil, false
}

// IsAllowedByAcl reports whether subject is granted mask at this
// system node and every ancestor.
func (s *SystemPolicy) IsAllowedByAcl(subject principal.Subject, mask Permission) bool {
	return s.isAllowedByAcl(subject, mask)
}

// EffectiveConstraints returns this system's effective constraints
// for class.
func (s *SystemPolicy) EffectiveConstraints(class constraint.Class) []constraint.Constraint {
	return s.effectiveConstraints(class)
}

// Environment returns the owning environment, if attached.
func (s *SystemPolicy) Environment() *EnvironmentPolicy {
	return s.env
}

// JitGroupPolicy is the unit a subject joins: a leaf node carrying
// the privileges a membership confers.
type JitGroupPolicy struct {
	node
	privileges []Privilege
	sys        *SystemPolicy
}

// NewJitGroupPolicy constructs a group policy node, not yet attached
// to a system. The name must satisfy ValidateNodeName.
func NewJitGroupPolicy(name, description string, acl *ACL, constraints map[constraint.Class][]constraint.Constraint, metadata map[string]string, privileges []Privilege) (*JitGroupPolicy, error) {
	if err := ValidateNodeName(name); err != nil {
		return nil, err
	}
	return &JitGroupPolicy{node: newNode(name, description, acl, constraints, metadata), privileges: privileges}, nil
}

// Privileges returns the privileges a membership of this group
// confers.
func (g *JitGroupPolicy) Privileges() []Privilege { return append([]Privilege(nil), g.privileges...) }

// IsAllowedByAcl reports whether subject is granted mask at this
// group node and every ancestor.
func (g *JitGroupPolicy) IsAllowedByAcl(subject principal.Subject, mask Permission) bool {
	return g.isAllowedByAcl(subject, mask)
}

// EffectiveConstraints returns this group's effective constraints for
// class.
func (g *JitGroupPolicy) EffectiveConstraints(class constraint.Class) []constraint.Constraint {
	return g.effectiveConstraints(class)
}

// System returns the owning system, if attached.
func (g *JitGroupPolicy) System() *SystemPolicy {
	return g.sys
}

// ID returns the canonical JitGroupId for this group, walking up to
// its environment and system ancestors. If the group is not yet
// attached to a system, or the system not to an environment, the
// missing parts of the id are left empty.
func (g *JitGroupPolicy) ID() JitGroupId {
	sys := g.System()
	if sys == nil {
		return JitGroupId{Name: g.name}
	}
	env := sys.Environment()
	envName := ""
	if env != nil {
		envName = env.name
	}
	return JitGroupId{Environment: envName, System: sys.name, Name: g.name}
}
