// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jitaccess/jitaccess/internal/constraint"
	"github.com/jitaccess/jitaccess/internal/policy"
	"github.com/jitaccess/jitaccess/internal/principal"
)

type fakeGroup struct {
	allowed     bool
	constraints map[constraint.Class][]constraint.Constraint
}

func (g fakeGroup) IsAllowedByAcl(principal.Subject, policy.Permission) bool { return g.allowed }
func (g fakeGroup) EffectiveConstraints(class constraint.Class) []constraint.Constraint {
	return g.constraints[class]
}

func subject() principal.Subject {
	user := principal.User("a@b.com")
	return principal.NewSubject(user, principal.Set{user})
}

func TestAnalysisDeniedByAcl(t *testing.T) {
	group := fakeGroup{allowed: false}
	result, err := New(group, subject(), policy.PermissionJoin, "env.sys.grp", nil, time.Now()).
		ApplyConstraints(constraint.ClassJoin).
		Execute()
	require.NoError(t, err)
	assert.False(t, result.Allowed(Default))
	assert.False(t, result.AccessAllowed)
}

func TestAnalysisAllowedWithNoConstraints(t *testing.T) {
	group := fakeGroup{allowed: true}
	result, err := New(group, subject(), policy.PermissionJoin, "env.sys.grp", nil, time.Now()).
		Execute()
	require.NoError(t, err)
	assert.True(t, result.Allowed(Default))
}

func TestAnalysisUnsatisfiedConstraintBlocksDefaultButNotIgnore(t *testing.T) {
	c := constraint.NewExpiryConstraint("ranged", constraint.ClassJoin, time.Hour, 8*time.Hour)
	group := fakeGroup{allowed: true, constraints: map[constraint.Class][]constraint.Constraint{
		constraint.ClassJoin: {c},
	}}

	result, err := New(group, subject(), policy.PermissionJoin, "env.sys.grp", nil, time.Now()).
		ApplyConstraints(constraint.ClassJoin).
		Execute()
	require.NoError(t, err)

	assert.False(t, result.Allowed(Default))
	assert.True(t, result.Allowed(IgnoreConstraints))
	assert.Len(t, result.Unsatisfied, 1)
	assert.Len(t, result.MissingRequiredInput(), 1, "ranged expiry's input is Required and was never supplied")
}

func TestAnalysisSatisfiedConstraintWithInput(t *testing.T) {
	c := constraint.NewExpiryConstraint("ranged", constraint.ClassJoin, time.Hour, 8*time.Hour)
	group := fakeGroup{allowed: true, constraints: map[constraint.Class][]constraint.Constraint{
		constraint.ClassJoin: {c},
	}}

	result, err := New(group, subject(), policy.PermissionJoin, "env.sys.grp", nil, time.Now()).
		ApplyConstraints(constraint.ClassJoin).
		WithInput("expiry", "7200").
		Execute()
	require.NoError(t, err)

	assert.True(t, result.Allowed(Default))
	assert.Len(t, result.Satisfied, 1)
}

func TestAnalysisFailedConstraintIsNotUnsatisfied(t *testing.T) {
	c := constraint.NewExpressionConstraint("broken", constraint.ClassJoin, `1 / 0 == 1`, nil)
	group := fakeGroup{allowed: true, constraints: map[constraint.Class][]constraint.Constraint{
		constraint.ClassJoin: {c},
	}}

	result, err := New(group, subject(), policy.PermissionJoin, "env.sys.grp", nil, time.Now()).
		ApplyConstraints(constraint.ClassJoin).
		Execute()
	require.NoError(t, err)

	assert.False(t, result.Allowed(Default))
	assert.Len(t, result.Failed, 1)
	assert.Len(t, result.Unsatisfied, 0)
}

func TestAnalysisActiveMembership(t *testing.T) {
	now := time.Now()
	user := principal.User("a@b.com")
	membership := principal.JitGroupMembership("env.sys.grp", now.Add(time.Hour))
	subj := principal.NewSubject(user, principal.Set{user, membership})

	group := fakeGroup{allowed: true}
	result, err := New(group, subj, policy.PermissionJoin, "env.sys.grp", nil, now).Execute()
	require.NoError(t, err)
	require.NotNil(t, result.ActiveMembership)
	assert.Equal(t, "env.sys.grp", result.ActiveMembership.JitGroupID())
}

func TestAnalysisInvalidUserSuppliedInputIsError(t *testing.T) {
	c := constraint.NewExpiryConstraint("ranged", constraint.ClassJoin, time.Hour, 8*time.Hour)
	group := fakeGroup{allowed: true, constraints: map[constraint.Class][]constraint.Constraint{
		constraint.ClassJoin: {c},
	}}

	_, err := New(group, subject(), policy.PermissionJoin, "env.sys.grp", nil, time.Now()).
		ApplyConstraints(constraint.ClassJoin).
		WithInput("expiry", "not-a-number").
		Execute()
	assert.Error(t, err)
}
