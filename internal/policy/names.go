// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"regexp"
)

var (
	environmentNamePattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,16}$`)
	nodeNamePattern        = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)
)

// ValidateEnvironmentName enforces the environment name restriction:
// at most 16 characters from [A-Za-z0-9-].
func ValidateEnvironmentName(name string) error {
	if !environmentNamePattern.MatchString(name) {
		return fmt.Errorf("invalid environment name %q: must be 1-16 chars of [A-Za-z0-9-]", name)
	}
	return nil
}

// ValidateNodeName enforces the system/group name restriction: at
// most 32 characters from [A-Za-z0-9_-].
func ValidateNodeName(name string) error {
	if !nodeNamePattern.MatchString(name) {
		return fmt.Errorf("invalid name %q: must be 1-32 chars of [A-Za-z0-9_-]", name)
	}
	return nil
}
