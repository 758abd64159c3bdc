// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jitaccess/jitaccess/internal/environment"
	"github.com/jitaccess/jitaccess/internal/groupmapping"
	"github.com/jitaccess/jitaccess/internal/idp"
	"github.com/jitaccess/jitaccess/internal/jiterrors"
	"github.com/jitaccess/jitaccess/internal/policy"
	"github.com/jitaccess/jitaccess/internal/principal"
	"github.com/jitaccess/jitaccess/internal/provisioner"
)

const catalogDoc = `
name: prod
description: production environment
acl:
  - effect: allow
    principal: "user:viewer@example.com"
    permissions: ["VIEW"]
systems:
  - name: billing
    acl:
      - effect: allow
        principal: "user:viewer@example.com"
        permissions: ["VIEW"]
    groups:
      - name: visible
        acl:
          - effect: allow
            principal: "user:viewer@example.com"
            permissions: ["VIEW"]
      - name: hidden
        acl:
          - effect: allow
            principal: "user:someone-else@example.com"
            permissions: ["VIEW"]
`

type memorySource struct{ text string }

func (s memorySource) Load(context.Context, string) (string, string, time.Time, error) {
	return s.text, "memory", time.Unix(0, 0), nil
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	loader := environment.New(memorySource{text: catalogDoc}, time.Minute, nil)
	mapping := groupmapping.New("example.com")
	prov := provisioner.New(nil, nil, mapping, nil, nil)
	return New(
		[]EnvironmentSummary{{Name: "prod", Description: "production environment"}},
		loader, prov,
		func(context.Context) ([]idp.Group, error) { return nil, nil },
	)
}

func viewerSubject() principal.Subject {
	u := principal.User("viewer@example.com")
	return principal.NewSubject(u, principal.Set{u})
}

func TestEnvironmentsIsStaticAndSorted(t *testing.T) {
	cat := New(
		[]EnvironmentSummary{{Name: "staging"}, {Name: "prod"}},
		nil, nil, nil,
	)
	envs := cat.Environments()
	require.Len(t, envs, 2)
	assert.Equal(t, "prod", envs[0].Name)
	assert.Equal(t, "staging", envs[1].Name)
}

func TestEnvironmentDeniesSubjectWithoutView(t *testing.T) {
	cat := newTestCatalog(t)
	stranger := principal.User("stranger@example.com")
	subject := principal.NewSubject(stranger, principal.Set{stranger})

	_, err := cat.Environment(context.Background(), subject, "prod")
	assert.Error(t, err)
	assert.True(t, jiterrors.IsCollapsible(err))
}

func TestEnvironmentAllowsViewerAndFiltersSystems(t *testing.T) {
	cat := newTestCatalog(t)
	view, err := cat.Environment(context.Background(), viewerSubject(), "prod")
	require.NoError(t, err)
	assert.Equal(t, "prod", view.Name())

	systems := view.Systems()
	require.Len(t, systems, 1)
	assert.Equal(t, "billing", systems[0].Name())
}

func TestSystemGroupsFiltersByViewPermission(t *testing.T) {
	cat := newTestCatalog(t)
	envView, err := cat.Environment(context.Background(), viewerSubject(), "prod")
	require.NoError(t, err)

	sysView, ok := envView.System("billing")
	require.True(t, ok)

	groups := sysView.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "visible", groups[0].Policy().Name())

	_, ok = sysView.Group("hidden")
	assert.False(t, ok, "hidden group is not visible to this subject")
}

func TestGroupResolvesByFullID(t *testing.T) {
	cat := newTestCatalog(t)
	view, err := cat.Group(context.Background(), viewerSubject(), policy.JitGroupId{
		Environment: "prod", System: "billing", Name: "visible",
	})
	require.NoError(t, err)
	assert.Equal(t, "prod.billing.visible", view.ID().String())
}

func TestGroupNotFoundForHiddenGroup(t *testing.T) {
	cat := newTestCatalog(t)
	_, err := cat.Group(context.Background(), viewerSubject(), policy.JitGroupId{
		Environment: "prod", System: "billing", Name: "hidden",
	})
	assert.Error(t, err)
}

func TestExportRequiresExportPermission(t *testing.T) {
	cat := newTestCatalog(t)
	view, err := cat.Environment(context.Background(), viewerSubject(), "prod")
	require.NoError(t, err)

	assert.False(t, view.CanExport())
	_, _, _, err = view.Export()
	assert.Error(t, err)
}
