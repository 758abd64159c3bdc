// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package policydoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jitaccess/jitaccess/internal/policy"
	"github.com/jitaccess/jitaccess/internal/principal"
)

const validDoc = `
name: prod
description: production environment
metadata:
  region: us-central1
acl:
  - effect: allow
    principal: "class:AuthenticatedUsers"
    permissions: ["VIEW"]
systems:
  - name: billing
    groups:
      - name: admins
        acl:
          - effect: allow
            principal: "user:a@b.com"
            permissions: ["JOIN", "APPROVE_SELF"]
          - effect: deny
            principal: "group:contractors@example.com"
            permissions: ["JOIN"]
        constraints:
          - name: fixed-expiry
            class: JOIN
            kind: expiry
            minSeconds: 3600
            maxSeconds: 3600
          - name: reason-required
            class: JOIN
            kind: expression
            expression: "input.reason != ''"
            properties:
              - name: reason
                type: string
                required: true
        privileges:
          - resourceType: project
            resourceId: proj-1
            role: roles/viewer
`

func TestFromStringBuildsCompleteTree(t *testing.T) {
	env, issues, err := FromString(validDoc, map[string]string{"source": "memory"})
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.NotNil(t, env)

	assert.Equal(t, "prod", env.Name())
	assert.Equal(t, "memory", env.Metadata()["source"])
	assert.Equal(t, "us-central1", env.Metadata()["region"])

	sys, ok := env.System("billing")
	require.True(t, ok)

	grp, ok := sys.Group("admins")
	require.True(t, ok)
	assert.Equal(t, policy.JitGroupId{Environment: "prod", System: "billing", Name: "admins"}, grp.ID())
	assert.Len(t, grp.Privileges(), 1)
}

func TestFromStringRejectsMalformedYAML(t *testing.T) {
	_, _, err := FromString("name: [unterminated", nil)
	assert.Error(t, err)
}

func TestFromStringCollectsIssuesForBadACLButStillBuildsTree(t *testing.T) {
	doc := `
name: prod
systems:
  - name: billing
    groups:
      - name: admins
        acl:
          - effect: maybe
            principal: "user:a@b.com"
            permissions: ["JOIN"]
`
	env, issues, err := FromString(doc, nil)
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Message, "acl:")
	require.NotNil(t, env)

	sys, ok := env.System("billing")
	require.True(t, ok)
	_, ok = sys.Group("admins")
	assert.True(t, ok, "group is still built with an empty ACL")
}

func TestFromStringRejectsUnknownPermission(t *testing.T) {
	doc := `
name: prod
acl:
  - effect: allow
    principal: "user:a@b.com"
    permissions: ["FLY"]
`
	_, issues, err := FromString(doc, nil)
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Message, "unknown permission")
}

func TestFromStringRejectsBadExpiryBounds(t *testing.T) {
	doc := `
name: prod
systems:
  - name: billing
    groups:
      - name: admins
        constraints:
          - name: bad
            class: JOIN
            kind: expiry
            minSeconds: 7200
            maxSeconds: 3600
`
	_, issues, err := FromString(doc, nil)
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Message, "constraints:")
}

func TestFromStringRejectsIncompletePrivilege(t *testing.T) {
	doc := `
name: prod
systems:
  - name: billing
    groups:
      - name: admins
        privileges:
          - resourceType: project
            role: roles/viewer
`
	_, issues, err := FromString(doc, nil)
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Message, "privileges:")
}

func TestFromStringOmittedACLAllowsAll(t *testing.T) {
	doc := `
name: prod
systems:
  - name: billing
    groups:
      - name: admins
        acl:
          - effect: allow
            principal: "user:a@b.com"
            permissions: ["JOIN"]
`
	env, issues, err := FromString(doc, nil)
	require.NoError(t, err)
	assert.Empty(t, issues)

	sys, ok := env.System("billing")
	require.True(t, ok)

	stranger := principal.User("stranger@example.com")
	subject := principal.NewSubject(stranger, principal.Set{stranger})
	assert.True(t, sys.IsAllowedByAcl(subject, policy.PermissionView),
		"a system with no acl: key must default to allow-all, not deny-all")
	assert.True(t, env.IsAllowedByAcl(subject, policy.PermissionView))
}

func TestMergeMetadataDeclaredWinsOverExtra(t *testing.T) {
	merged := mergeMetadata(map[string]string{"source": "document"}, map[string]string{"source": "loader", "extra": "x"})
	assert.Equal(t, "document", merged["source"])
	assert.Equal(t, "x", merged["extra"])
}

func TestParsePrincipalVariants(t *testing.T) {
	_, err := parsePrincipal("bogus")
	assert.Error(t, err)

	_, err = parsePrincipal("class:Nope")
	assert.Error(t, err)

	p, err := parsePrincipal("group:ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", p.Email())
}
