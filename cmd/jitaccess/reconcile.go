// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newReconcileCmd() *cobra.Command {
	var environmentName string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Converge IAM bindings for every declared JIT group and report compliance",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			names := []string{environmentName}
			if environmentName == "" {
				names = names[:0]
				for _, summary := range a.catalog.Environments() {
					names = append(names, summary.Name)
				}
			}
			if len(names) == 0 {
				return fmt.Errorf("no environments configured")
			}

			var failed int
			for _, name := range names {
				if err := reconcileOne(ctx, a, name); err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: reconciled\n", name)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d environment(s) failed to reconcile", failed, len(names))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&environmentName, "environment", "", "reconcile only this environment (default: all configured environments)")
	return cmd
}

func reconcileOne(ctx context.Context, a *app, name string) error {
	env, err := a.loader.Get(ctx, name)
	if err != nil {
		return err
	}
	report, err := a.prov.ComplianceReport(ctx, env.Policy, a.backend.listGroups)
	if err != nil {
		return err
	}
	if len(report.Orphaned) > 0 {
		fmt.Printf("%s: %d orphaned group(s)\n", name, len(report.Orphaned))
	}
	if len(report.NonCompliant) > 0 {
		for _, nc := range report.NonCompliant {
			fmt.Printf("%s: group %s non-compliant: %v\n", name, nc.GroupId, nc.Err)
		}
		return fmt.Errorf("%d group(s) non-compliant", len(report.NonCompliant))
	}
	return nil
}
