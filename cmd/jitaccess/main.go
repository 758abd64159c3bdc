// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "jitaccess",
		Short: "JIT group-access service",
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newValidatePolicyCmd())
	root.AddCommand(newReconcileCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
