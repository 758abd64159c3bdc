// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jitaccess/jitaccess/internal/principal"
)

func subjectOf(p principal.Principal) principal.Subject {
	return principal.NewSubject(p, principal.Set{p})
}

func TestACLNilAllowsAll(t *testing.T) {
	var acl *ACL
	assert.True(t, acl.allows(subjectOf(principal.User("a@b.com")), PermissionView))
}

func TestACLEmptyDeniesAll(t *testing.T) {
	acl := NewACL()
	assert.False(t, acl.allows(subjectOf(principal.User("a@b.com")), PermissionView))
}

func TestACLDenyWinsOverAllow(t *testing.T) {
	user := principal.User("a@b.com")
	acl := NewACL(
		Allow(user, PermissionView|PermissionJoin),
		Deny(user, PermissionJoin),
	)
	assert.True(t, acl.allows(subjectOf(user), PermissionView))
	assert.False(t, acl.allows(subjectOf(user), PermissionJoin))
}

func TestACLUnionsMultipleAllows(t *testing.T) {
	user := principal.User("a@b.com")
	acl := NewACL(
		Allow(user, PermissionView),
		Allow(user, PermissionJoin),
	)
	assert.True(t, acl.allows(subjectOf(user), PermissionView|PermissionJoin))
}

func TestInheritanceIsIndependentAnd(t *testing.T) {
	user := principal.User("a@b.com")
	subject := subjectOf(user)

	env, err := NewEnvironmentPolicy("prod", "", NewACL(Allow(user, PermissionView)), nil, nil)
	require.NoError(t, err)

	sys, err := NewSystemPolicy("billing", "", NewACL(Deny(user, PermissionView)), nil, nil)
	require.NoError(t, err)
	require.NoError(t, env.AddSystem(sys))

	assert.True(t, env.IsAllowedByAcl(subject, PermissionView))
	assert.False(t, sys.IsAllowedByAcl(subject, PermissionView))
}

func TestInheritanceAllowAtEveryLevelGrants(t *testing.T) {
	user := principal.User("a@b.com")
	subject := subjectOf(user)

	env, err := NewEnvironmentPolicy("prod", "", NewACL(Allow(user, PermissionView)), nil, nil)
	require.NoError(t, err)
	sys, err := NewSystemPolicy("billing", "", NewACL(Allow(user, PermissionView)), nil, nil)
	require.NoError(t, err)
	require.NoError(t, env.AddSystem(sys))
	grp, err := NewJitGroupPolicy("admins", "", NewACL(Allow(user, PermissionView|PermissionJoin)), nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, sys.AddGroup(grp))

	assert.True(t, grp.IsAllowedByAcl(subject, PermissionView))
	assert.True(t, grp.IsAllowedByAcl(subject, PermissionJoin))
}

func TestJitGroupIdRoundTrip(t *testing.T) {
	id := JitGroupId{Environment: "Prod", System: "Billing", Name: "Admins"}
	parsed, err := ParseJitGroupId(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equal(parsed))
	assert.Equal(t, "prod.billing.admins", id.String())
}

func TestParseJitGroupIdRejectsMalformed(t *testing.T) {
	_, err := ParseJitGroupId("onlyonepart")
	assert.Error(t, err)
}

func TestGroupIDWalksTree(t *testing.T) {
	env, err := NewEnvironmentPolicy("prod", "", nil, nil, nil)
	require.NoError(t, err)
	sys, err := NewSystemPolicy("billing", "", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, env.AddSystem(sys))
	grp, err := NewJitGroupPolicy("admins", "", nil, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, sys.AddGroup(grp))

	assert.Equal(t, "prod.billing.admins", grp.ID().String())
}

func TestAddSystemRejectsDuplicateName(t *testing.T) {
	env, err := NewEnvironmentPolicy("prod", "", nil, nil, nil)
	require.NoError(t, err)
	sys1, err := NewSystemPolicy("billing", "", nil, nil, nil)
	require.NoError(t, err)
	sys2, err := NewSystemPolicy("billing", "", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, env.AddSystem(sys1))
	assert.Error(t, env.AddSystem(sys2))
}

func TestPermissionString(t *testing.T) {
	assert.Equal(t, "NONE", permissionNone.String())
	assert.Equal(t, "VIEW|JOIN", (PermissionView | PermissionJoin).String())
}
