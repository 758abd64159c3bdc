// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package constraint

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jitaccess/jitaccess/internal/jiterrors"
)

func TestFixedExpiryConstraintAlwaysSatisfied(t *testing.T) {
	c := NewExpiryConstraint("fixed", ClassJoin, time.Hour, time.Hour)
	check := c.NewCheck(nil)

	ok, err := check.Execute()
	require.NoError(t, err)
	assert.True(t, ok)

	d, satisfied := c.Duration(check)
	assert.True(t, satisfied)
	assert.Equal(t, time.Hour, d)
}

func TestRangedExpiryConstraintRequiresInput(t *testing.T) {
	c := NewExpiryConstraint("ranged", ClassJoin, time.Hour, 8*time.Hour)
	check := c.NewCheck(nil)

	ok, err := check.Execute()
	require.NoError(t, err)
	assert.False(t, ok, "unsatisfied without an expiry input")

	require.NoError(t, check.Set("expiry", "7200"))
	ok, err = check.Execute()
	require.NoError(t, err)
	assert.True(t, ok)

	d, satisfied := c.Duration(check)
	assert.True(t, satisfied)
	assert.Equal(t, 2*time.Hour, d)
}

func TestRangedExpiryConstraintRejectsOutOfRange(t *testing.T) {
	c := NewExpiryConstraint("ranged", ClassJoin, time.Hour, 2*time.Hour)
	check := c.NewCheck(nil)

	err := check.Set("expiry", "36000")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, jiterrors.ErrInvalidInput))
}

func TestCheckSetRejectsUndeclaredProperty(t *testing.T) {
	c := NewExpiryConstraint("fixed", ClassJoin, time.Hour, time.Hour)
	check := c.NewCheck(nil)

	err := check.Set("nope", "1")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, jiterrors.ErrInvalidInput))
}

func TestExpressionConstraintEvaluatesAgainstInputAndSubject(t *testing.T) {
	c := NewExpressionConstraint("business-hours", ClassJoin,
		`input.reason == "incident" && subject.department == "sre"`,
		[]Property{{Name: "reason", Type: TypeString, Required: true}})

	check := c.NewCheck(SubjectAttrs{"department": "sre"})
	require.NoError(t, check.Set("reason", "incident"))

	ok, err := check.Execute()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpressionConstraintUnsatisfied(t *testing.T) {
	c := NewExpressionConstraint("deny-weekends", ClassJoin, `input.reason == "incident"`,
		[]Property{{Name: "reason", Type: TypeString}})

	check := c.NewCheck(nil)
	require.NoError(t, check.Set("reason", "routine"))

	ok, err := check.Execute()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpressionConstraintCompileFailureIsConstraintFailed(t *testing.T) {
	c := NewExpressionConstraint("broken", ClassJoin, `this is not valid CEL +++`, nil)
	check := c.NewCheck(nil)

	_, err := check.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, jiterrors.ErrConstraintFailed))
}

func TestExpressionConstraintNonBoolResultIsConstraintFailed(t *testing.T) {
	c := NewExpressionConstraint("not-bool", ClassJoin, `"a string"`, nil)
	check := c.NewCheck(nil)

	_, err := check.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, jiterrors.ErrConstraintFailed))
}

func TestPropertySetEnforcesType(t *testing.T) {
	p := Property{Name: "flag", Type: TypeBool}
	require.NoError(t, p.Set("true"))
	assert.True(t, p.BoolValue())

	p2 := Property{Name: "flag", Type: TypeBool}
	assert.Error(t, p2.Set("not-a-bool"))
}

func TestPropertyCloneResetsValue(t *testing.T) {
	p := Property{Name: "n", Type: TypeString}
	require.NoError(t, p.Set("x"))
	cloned := p.Clone()
	assert.False(t, cloned.HasValue())
	assert.True(t, p.HasValue())
}
