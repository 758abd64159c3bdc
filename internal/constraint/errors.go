// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package constraint

import "github.com/jitaccess/jitaccess/internal/jiterrors"

func errUndeclaredProperty(name string) error {
	return jiterrors.InvalidInput(name, "not declared by this constraint")
}
