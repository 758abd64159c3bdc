// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"strings"
)

// JitGroupId identifies a group by its (environment, system, name)
// triple. Equality is case-insensitive; the canonical string form is
// "env.system.name" (spec §3, §8 invariant 9).
type JitGroupId struct {
	Environment string
	System      string
	Name        string
}

// String renders the canonical "env.system.name" form, lowercased.
func (id JitGroupId) String() string {
	return strings.ToLower(fmt.Sprintf("%s.%s.%s", id.Environment, id.System, id.Name))
}

// Equal compares two ids case-insensitively.
func (id JitGroupId) Equal(other JitGroupId) bool {
	return id.String() == other.String()
}

// ParseJitGroupId parses the canonical "env.system.name" string. It
// round-trips with String for any valid id, case-insensitively.
func ParseJitGroupId(s string) (JitGroupId, error) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return JitGroupId{}, fmt.Errorf("invalid jit group id %q: expected env.system.name", s)
	}
	return JitGroupId{Environment: parts[0], System: parts[1], Name: parts[2]}, nil
}
