// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog exposes subject-scoped read views over the
// environment → system → group policy tree, filtering every listing
// by the subject's VIEW permission (spec §4.8).
package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/jitaccess/jitaccess/internal/environment"
	"github.com/jitaccess/jitaccess/internal/idp"
	"github.com/jitaccess/jitaccess/internal/jiterrors"
	"github.com/jitaccess/jitaccess/internal/policy"
	"github.com/jitaccess/jitaccess/internal/principal"
	"github.com/jitaccess/jitaccess/internal/provisioner"
)

// EnvironmentSummary is the bare (name, description) pair
// `environments()` returns without loading any environment's full
// policy, to avoid fanning out loads for a plain listing (spec §4.8).
type EnvironmentSummary struct {
	Name        string
	Description string
}

// Catalog is the top-level entry point a request's Subject views the
// policy tree through.
type Catalog struct {
	environments []EnvironmentSummary
	loader       *environment.Loader
	provisioner  *provisioner.Provisioner
	listGroups   func(context.Context) ([]idp.Group, error)
}

// New builds a Catalog. environments is the statically configured
// list of known environment names/descriptions (spec §6
// RESOURCE_ENVIRONMENT_<name>); listGroups enumerates every group the
// IdP holds, used only by Reconcile to detect orphans.
func New(environments []EnvironmentSummary, loader *environment.Loader, prov *provisioner.Provisioner, listGroups func(context.Context) ([]idp.Group, error)) *Catalog {
	sorted := append([]EnvironmentSummary(nil), environments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &Catalog{environments: sorted, loader: loader, provisioner: prov, listGroups: listGroups}
}

// Environments returns the bare environment listing, sorted by name.
func (c *Catalog) Environments() []EnvironmentSummary {
	return append([]EnvironmentSummary(nil), c.environments...)
}

// Environment loads and returns a subject-scoped view of the named
// environment, denying access if the subject lacks VIEW on the
// environment node or the environment does not exist (both collapse
// to ErrAccessDenied-or-ErrResourceNotFound at the API boundary,
// spec §6 "Error responses").
func (c *Catalog) Environment(ctx context.Context, subject principal.Subject, name string) (*EnvironmentView, error) {
	env, err := c.loader.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !env.Policy.IsAllowedByAcl(subject, policy.PermissionView) {
		return nil, jiterrors.AccessDenied()
	}
	return &EnvironmentView{env: env, subject: subject, catalog: c}, nil
}

// Group resolves a single group by its full JitGroupId, independent of
// environment/system navigation, applying the same VIEW check at
// every ancestor (spec §4.8 "group(id)").
func (c *Catalog) Group(ctx context.Context, subject principal.Subject, id policy.JitGroupId) (*JitGroupView, error) {
	envView, err := c.Environment(ctx, subject, id.Environment)
	if err != nil {
		return nil, err
	}
	sysView, ok := envView.System(id.System)
	if !ok {
		return nil, jiterrors.NotFound("system", id.System)
	}
	grpView, ok := sysView.Group(id.Name)
	if !ok {
		return nil, jiterrors.NotFound("group", id.Name)
	}
	return grpView, nil
}

// EnvironmentView is a subject-scoped view of one loaded environment.
type EnvironmentView struct {
	env     environment.Environment
	subject principal.Subject
	catalog *Catalog
}

func (v *EnvironmentView) Name() string        { return v.env.Policy.Name() }
func (v *EnvironmentView) Description() string  { return v.env.Policy.Description() }

// Systems returns every direct child system the subject can VIEW,
// sorted by name (spec §4.8 "All listings sort by stable identifier").
func (v *EnvironmentView) Systems() []*SystemView {
	systems := v.env.Policy.Systems()
	views := make([]*SystemView, 0, len(systems))
	for _, sys := range systems {
		if sys.IsAllowedByAcl(v.subject, policy.PermissionView) {
			views = append(views, &SystemView{policy: sys, subject: v.subject, catalog: v.catalog})
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name() < views[j].Name() })
	return views
}

// System looks up a direct child system by name, VIEW-filtered.
func (v *EnvironmentView) System(name string) (*SystemView, bool) {
	sys, ok := v.env.Policy.System(name)
	if !ok || !sys.IsAllowedByAcl(v.subject, policy.PermissionView) {
		return nil, false
	}
	return &SystemView{policy: sys, subject: v.subject, catalog: v.catalog}, true
}

// CanExport reports whether the subject holds EXPORT on this
// environment.
func (v *EnvironmentView) CanExport() bool {
	return v.env.Policy.IsAllowedByAcl(v.subject, policy.PermissionExport)
}

// Export returns the canonical policy document text plus its source
// locator and last-modified time (spec §6 "GET .../policy").
func (v *EnvironmentView) Export() (text, source string, lastModified time.Time, err error) {
	if !v.CanExport() {
		return "", "", time.Time{}, jiterrors.AccessDenied()
	}
	return v.env.RawText, v.env.Locator, v.env.LastModified, nil
}

// CanReconcile reports whether the subject holds RECONCILE on this
// environment.
func (v *EnvironmentView) CanReconcile() bool {
	return v.env.Policy.IsAllowedByAcl(v.subject, policy.PermissionReconcile)
}

// Reconcile runs the Provisioner against every declared group in this
// environment and returns the resulting compliance report
// (spec §6 "GET .../status").
func (v *EnvironmentView) Reconcile(ctx context.Context) (provisioner.ComplianceReport, error) {
	if !v.CanReconcile() {
		return provisioner.ComplianceReport{}, jiterrors.AccessDenied()
	}
	return v.catalog.provisioner.ComplianceReport(ctx, v.env.Policy, v.catalog.listGroups)
}

// SystemView is a subject-scoped view of one system within an
// environment.
type SystemView struct {
	policy  *policy.SystemPolicy
	subject principal.Subject
	catalog *Catalog
}

func (v *SystemView) Name() string       { return v.policy.Name() }
func (v *SystemView) Description() string { return v.policy.Description() }

// Groups returns every direct child group the subject can VIEW,
// sorted by name.
func (v *SystemView) Groups() []*JitGroupView {
	groups := v.policy.Groups()
	views := make([]*JitGroupView, 0, len(groups))
	for _, grp := range groups {
		if grp.IsAllowedByAcl(v.subject, policy.PermissionView) {
			views = append(views, &JitGroupView{policy: grp, subject: v.subject, provisioner: v.catalog.provisioner})
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].policy.Name() < views[j].policy.Name() })
	return views
}

// Group looks up a direct child group by name, VIEW-filtered.
func (v *SystemView) Group(name string) (*JitGroupView, bool) {
	grp, ok := v.policy.Group(name)
	if !ok || !grp.IsAllowedByAcl(v.subject, policy.PermissionView) {
		return nil, false
	}
	return &JitGroupView{policy: grp, subject: v.subject, provisioner: v.catalog.provisioner}, true
}

// JitGroupView is the unit the Join Operation (C7) operates over: a
// VIEW-checked group policy node bound to the subject requesting it
// and the Provisioner that will materialize access (spec §4.8
// "group(id)").
type JitGroupView struct {
	policy      *policy.JitGroupPolicy
	subject     principal.Subject
	provisioner *provisioner.Provisioner
}

// ID returns the canonical JitGroupId.
func (v *JitGroupView) ID() policy.JitGroupId { return v.policy.ID() }

// Policy returns the underlying policy node.
func (v *JitGroupView) Policy() *policy.JitGroupPolicy { return v.policy }

// Subject returns the subject this view is scoped to.
func (v *JitGroupView) Subject() principal.Subject { return v.subject }

// Provisioner returns the Provisioner bound to this view.
func (v *JitGroupView) Provisioner() *provisioner.Provisioner { return v.provisioner }
