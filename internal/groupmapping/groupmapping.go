// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package groupmapping implements the deterministic name scheme that
// maps a JitGroupId to an external IdP group identity, and back
// (spec §4.5 step 2, §4.6).
package groupmapping

import (
	"fmt"
	"strings"

	"github.com/jitaccess/jitaccess/internal/idp"
	"github.com/jitaccess/jitaccess/internal/policy"
)

// jitPrefix marks a group email as belonging to the JIT naming
// scheme, distinguishing JIT group memberships from ordinary group
// memberships during subject resolution (spec §4.5 step 2).
const jitPrefix = "jit-"

// Mapping computes the external group identity for a JitGroupId under
// a configured domain, and recognizes JIT-scheme group emails.
type Mapping struct {
	domain string
}

// New builds a Mapping for the given email domain (RESOURCE_DOMAIN).
func New(domain string) Mapping {
	return Mapping{domain: strings.ToLower(domain)}
}

// GroupKey returns the deterministic external GroupKey for id.
func (m Mapping) GroupKey(id policy.JitGroupId) idp.GroupKey {
	return idp.GroupKey{Email: m.email(id)}
}

func (m Mapping) email(id policy.JitGroupId) string {
	local := fmt.Sprintf("%s%s-%s-%s", jitPrefix, id.Environment, id.System, id.Name)
	return strings.ToLower(local) + "@" + m.domain
}

// Parse attempts to recover the JitGroupId encoded in a group email
// under this mapping's naming scheme. ok is false for groups that are
// not JIT groups under this domain (plain organizational groups, or
// JIT groups from a different domain).
func (m Mapping) Parse(groupEmail string) (id policy.JitGroupId, ok bool) {
	email := strings.ToLower(groupEmail)
	suffix := "@" + m.domain
	if !strings.HasSuffix(email, suffix) {
		return policy.JitGroupId{}, false
	}
	local := strings.TrimSuffix(email, suffix)
	if !strings.HasPrefix(local, jitPrefix) {
		return policy.JitGroupId{}, false
	}
	parts := strings.SplitN(strings.TrimPrefix(local, jitPrefix), "-", 3)
	if len(parts) != 3 {
		return policy.JitGroupId{}, false
	}
	return policy.JitGroupId{Environment: parts[0], System: parts[1], Name: parts[2]}, true
}

// Description renders the env/system/name breadcrumb description the
// Provisioner writes when creating a group (spec §4.6).
func (m Mapping) Description(id policy.JitGroupId) string {
	return fmt.Sprintf("JIT group for %s/%s/%s", id.Environment, id.System, id.Name)
}
