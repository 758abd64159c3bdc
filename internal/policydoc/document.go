// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package policydoc parses the YAML policy document format into a
// policy.EnvironmentPolicy tree, collecting validation issues rather
// than failing on the first one (spec §6 "Policy document loader").
package policydoc

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jitaccess/jitaccess/internal/constraint"
	"github.com/jitaccess/jitaccess/internal/policy"
	"github.com/jitaccess/jitaccess/internal/principal"
)

// Issue is one validation problem found while building the policy
// tree from a parsed document. A document with issues still yields a
// best-effort tree; callers decide whether issues are fatal.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string { return i.Path + ": " + i.Message }

// document mirrors the YAML wire shape.
type document struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	ACL         []aclEntryDoc     `yaml:"acl"`
	Constraints []constraintDoc   `yaml:"constraints"`
	Metadata    map[string]string `yaml:"metadata"`
	Systems     []systemDoc       `yaml:"systems"`
}

type systemDoc struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	ACL         []aclEntryDoc     `yaml:"acl"`
	Constraints []constraintDoc   `yaml:"constraints"`
	Metadata    map[string]string `yaml:"metadata"`
	Groups      []groupDoc        `yaml:"groups"`
}

type groupDoc struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	ACL         []aclEntryDoc     `yaml:"acl"`
	Constraints []constraintDoc   `yaml:"constraints"`
	Metadata    map[string]string `yaml:"metadata"`
	Privileges  []privilegeDoc    `yaml:"privileges"`
}

type aclEntryDoc struct {
	Effect      string `yaml:"effect"` // "allow" | "deny"
	Principal   string `yaml:"principal"`
	Permissions []string `yaml:"permissions"`
}

type constraintDoc struct {
	Name  string `yaml:"name"`
	Class string `yaml:"class"` // "JOIN" | "APPROVE"
	Kind  string `yaml:"kind"`  // "expression" | "expiry"

	// expression
	Expression string         `yaml:"expression"`
	Properties []propertyDoc  `yaml:"properties"`

	// expiry
	MinSeconds *int64 `yaml:"minSeconds"`
	MaxSeconds *int64 `yaml:"maxSeconds"`
}

type propertyDoc struct {
	Name         string `yaml:"name"`
	DisplayName  string `yaml:"displayName"`
	Required     bool   `yaml:"required"`
	Type         string `yaml:"type"` // string|bool|long|duration
	MinInclusive *int64 `yaml:"minInclusive"`
	MaxInclusive *int64 `yaml:"maxInclusive"`
}

type privilegeDoc struct {
	ResourceType string `yaml:"resourceType"`
	ResourceID   string `yaml:"resourceId"`
	Role         string `yaml:"role"`
	Description  string `yaml:"description"`
	Condition    string `yaml:"condition"`
}

// FromString parses text as a YAML policy document and assembles an
// EnvironmentPolicy, along with any validation issues encountered.
// metadata seeds additional key/value pairs merged beneath any the
// document itself declares at the environment level (e.g. source
// locator, load timestamp), the way a caller records provenance.
func FromString(text string, metadata map[string]string) (*policy.EnvironmentPolicy, []Issue, error) {
	var doc document
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing policy document: %w", err)
	}

	var issues []Issue
	addIssue := func(path, format string, args ...any) {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	envMetadata := mergeMetadata(doc.Metadata, metadata)

	acl, err := buildACL(doc.ACL)
	if err != nil {
		addIssue(doc.Name, "acl: %s", err)
		acl = policy.NewACL()
	}
	constraints, err := buildConstraints(doc.Constraints)
	if err != nil {
		addIssue(doc.Name, "constraints: %s", err)
	}

	env, err := policy.NewEnvironmentPolicy(doc.Name, doc.Description, acl, constraints, envMetadata)
	if err != nil {
		return nil, append(issues, Issue{Path: doc.Name, Message: err.Error()}), err
	}

	for _, sysDoc := range doc.Systems {
		sysACL, err := buildACL(sysDoc.ACL)
		if err != nil {
			addIssue(doc.Name+"/"+sysDoc.Name, "acl: %s", err)
			sysACL = policy.NewACL()
		}
		sysConstraints, err := buildConstraints(sysDoc.Constraints)
		if err != nil {
			addIssue(doc.Name+"/"+sysDoc.Name, "constraints: %s", err)
		}
		sys, err := policy.NewSystemPolicy(sysDoc.Name, sysDoc.Description, sysACL, sysConstraints, sysDoc.Metadata)
		if err != nil {
			addIssue(doc.Name+"/"+sysDoc.Name, "%s", err)
			continue
		}

		for _, grpDoc := range sysDoc.Groups {
			path := doc.Name + "/" + sysDoc.Name + "/" + grpDoc.Name
			grpACL, err := buildACL(grpDoc.ACL)
			if err != nil {
				addIssue(path, "acl: %s", err)
				grpACL = policy.NewACL()
			}
			grpConstraints, err := buildConstraints(grpDoc.Constraints)
			if err != nil {
				addIssue(path, "constraints: %s", err)
			}
			privileges, err := buildPrivileges(grpDoc.Privileges)
			if err != nil {
				addIssue(path, "privileges: %s", err)
			}
			grp, err := policy.NewJitGroupPolicy(grpDoc.Name, grpDoc.Description, grpACL, grpConstraints, grpDoc.Metadata, privileges)
			if err != nil {
				addIssue(path, "%s", err)
				continue
			}
			if err := sys.AddGroup(grp); err != nil {
				addIssue(path, "%s", err)
			}
		}

		if err := env.AddSystem(sys); err != nil {
			addIssue(doc.Name+"/"+sysDoc.Name, "%s", err)
		}
	}

	return env, issues, nil
}

func mergeMetadata(declared, extra map[string]string) map[string]string {
	if len(declared) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]string, len(declared)+len(extra))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range declared {
		merged[k] = v
	}
	return merged
}

// buildACL returns nil for an omitted "acl:" key, so the node falls
// back to policy's allow-all default for an absent ACL (spec §3)
// rather than the present-but-empty deny-all NewACL() produces.
func buildACL(entries []aclEntryDoc) (*policy.ACL, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	built := make([]policy.Entry, 0, len(entries))
	for _, e := range entries {
		p, err := parsePrincipal(e.Principal)
		if err != nil {
			return nil, err
		}
		mask, err := parsePermissions(e.Permissions)
		if err != nil {
			return nil, err
		}
		switch e.Effect {
		case "allow", "Allow", "ALLOW":
			built = append(built, policy.Allow(p, mask))
		case "deny", "Deny", "DENY":
			built = append(built, policy.Deny(p, mask))
		default:
			return nil, fmt.Errorf("unknown acl effect %q", e.Effect)
		}
	}
	return policy.NewACL(built...), nil
}

// parsePrincipal accepts "user:email", "group:email",
// "class:AuthenticatedUsers".
func parsePrincipal(s string) (principal.Principal, error) {
	kind, value, ok := splitOnce(s, ':')
	if !ok {
		return principal.Principal{}, fmt.Errorf("invalid principal %q: expected kind:value", s)
	}
	switch kind {
	case "user":
		return principal.User(value), nil
	case "group":
		return principal.Group(value), nil
	case "class":
		if value != string(principal.ClassAuthenticatedUsers) {
			return principal.Principal{}, fmt.Errorf("unknown principal class %q", value)
		}
		return principal.AuthenticatedUsers(), nil
	default:
		return principal.Principal{}, fmt.Errorf("unknown principal kind %q", kind)
	}
}

func splitOnce(s string, sep byte) (before, after string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

var permissionsByName = map[string]policy.Permission{
	"VIEW":           policy.PermissionView,
	"JOIN":           policy.PermissionJoin,
	"APPROVE_SELF":   policy.PermissionApproveSelf,
	"APPROVE_OTHERS": policy.PermissionApproveOthers,
	"EXPORT":         policy.PermissionExport,
	"RECONCILE":      policy.PermissionReconcile,
}

func parsePermissions(names []string) (policy.Permission, error) {
	var mask policy.Permission
	for _, name := range names {
		bit, ok := permissionsByName[name]
		if !ok {
			return 0, fmt.Errorf("unknown permission %q", name)
		}
		mask |= bit
	}
	return mask, nil
}

func buildConstraints(docs []constraintDoc) (map[constraint.Class][]constraint.Constraint, error) {
	result := make(map[constraint.Class][]constraint.Constraint)
	for _, d := range docs {
		class := constraint.Class(d.Class)
		if class != constraint.ClassJoin && class != constraint.ClassApprove {
			return nil, fmt.Errorf("constraint %q: unknown class %q", d.Name, d.Class)
		}
		switch d.Kind {
		case "expression":
			props, err := buildProperties(d.Properties)
			if err != nil {
				return nil, fmt.Errorf("constraint %q: %w", d.Name, err)
			}
			result[class] = append(result[class], constraint.NewExpressionConstraint(d.Name, class, d.Expression, props))
		case "expiry":
			min, max, err := expiryBounds(d)
			if err != nil {
				return nil, fmt.Errorf("constraint %q: %w", d.Name, err)
			}
			result[class] = append(result[class], constraint.NewExpiryConstraint(d.Name, class, min, max))
		default:
			return nil, fmt.Errorf("constraint %q: unknown kind %q", d.Name, d.Kind)
		}
	}
	return result, nil
}

func expiryBounds(d constraintDoc) (min, max time.Duration, err error) {
	if d.MinSeconds == nil || d.MaxSeconds == nil {
		return 0, 0, fmt.Errorf("expiry constraint requires minSeconds and maxSeconds")
	}
	if *d.MaxSeconds < *d.MinSeconds {
		return 0, 0, fmt.Errorf("maxSeconds (%d) below minSeconds (%d)", *d.MaxSeconds, *d.MinSeconds)
	}
	return time.Duration(*d.MinSeconds) * time.Second, time.Duration(*d.MaxSeconds) * time.Second, nil
}

func buildProperties(docs []propertyDoc) ([]constraint.Property, error) {
	props := make([]constraint.Property, 0, len(docs))
	for _, d := range docs {
		var t constraint.Type
		switch d.Type {
		case "string":
			t = constraint.TypeString
		case "bool":
			t = constraint.TypeBool
		case "long":
			t = constraint.TypeLong
		case "duration":
			t = constraint.TypeDuration
		default:
			return nil, fmt.Errorf("property %q: unknown type %q", d.Name, d.Type)
		}
		props = append(props, constraint.Property{
			Name:         d.Name,
			DisplayName:  d.DisplayName,
			Required:     d.Required,
			Type:         t,
			MinInclusive: d.MinInclusive,
			MaxInclusive: d.MaxInclusive,
		})
	}
	return props, nil
}

func buildPrivileges(docs []privilegeDoc) ([]policy.Privilege, error) {
	privileges := make([]policy.Privilege, 0, len(docs))
	for _, d := range docs {
		if d.ResourceType == "" || d.ResourceID == "" || d.Role == "" {
			return nil, fmt.Errorf("privilege missing resourceType/resourceId/role")
		}
		privileges = append(privileges, policy.NewIamRoleBindingPrivilege(policy.IamRoleBinding{
			Resource:    policy.Resource{Type: d.ResourceType, ID: d.ResourceID},
			Role:        d.Role,
			Description: d.Description,
			Condition:   d.Condition,
		}))
	}
	return privileges, nil
}
