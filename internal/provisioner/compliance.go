// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package provisioner

import (
	"context"

	"github.com/jitaccess/jitaccess/internal/idp"
	"github.com/jitaccess/jitaccess/internal/policy"
)

// NonCompliantGroup is a declared group whose reconciliation attempt
// failed, carrying the structured error rather than collapsing it to
// a string (spec §4.6, Open Question #3).
type NonCompliantGroup struct {
	GroupId policy.JitGroupId
	Err     error
}

// ComplianceReport is the result of reconciling every group declared
// in an environment's policy tree (spec §4.6 "lets the environment
// produce compliance reports").
type ComplianceReport struct {
	// Orphaned lists provisioned groups this Provisioner is
	// authoritative for that no longer correspond to a declared policy
	// group.
	Orphaned []policy.JitGroupId
	// NonCompliant lists declared groups whose reconciliation failed.
	NonCompliant []NonCompliantGroup
}

// ComplianceReport runs Provisioner.Reconcile against every group in env,
// and cross-references ProvisionedGroups to find orphans.
func (p *Provisioner) ComplianceReport(ctx context.Context, env *policy.EnvironmentPolicy, listAll func(context.Context) ([]idp.Group, error)) (ComplianceReport, error) {
	declared := make(map[string]bool)
	var report ComplianceReport

	for _, sys := range env.Systems() {
		for _, grp := range sys.Groups() {
			id := grp.ID()
			declared[id.String()] = true
			if err := p.Reconcile(ctx, grp); err != nil {
				report.NonCompliant = append(report.NonCompliant, NonCompliantGroup{GroupId: id, Err: err})
			}
		}
	}

	provisioned, err := p.ProvisionedGroups(ctx, listAll)
	if err != nil {
		return report, err
	}
	for _, id := range provisioned {
		if !declared[id.String()] {
			report.Orphaned = append(report.Orphaned, id)
		}
	}

	return report, nil
}
