// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jitaccess/jitaccess/internal/policydoc"
)

func newValidatePolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-policy <file>",
		Short: "Parse and validate a policy document, reporting every issue found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			_, issues, err := policydoc.FromString(string(data), map[string]string{"source": args[0]})
			if err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			if len(issues) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
				return nil
			}

			for _, issue := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], issue.String())
			}
			return fmt.Errorf("%d validation issue(s) found", len(issues))
		},
	}
	return cmd
}
