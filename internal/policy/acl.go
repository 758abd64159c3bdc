// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import "github.com/jitaccess/jitaccess/internal/principal"

// entryEffect tags whether an ACL entry allows or denies.
type entryEffect int

const (
	effectAllow entryEffect = iota
	effectDeny
)

// Entry is one ordered Allow/Deny rule in an ACL.
type Entry struct {
	effect    entryEffect
	principal principal.Principal
	mask      Permission
}

// Allow constructs an Allow(principal, mask) entry.
func Allow(p principal.Principal, mask Permission) Entry {
	return Entry{effect: effectAllow, principal: p, mask: mask}
}

// Deny constructs a Deny(principal, mask) entry.
func Deny(p principal.Principal, mask Permission) Entry {
	return Entry{effect: effectDeny, principal: p, mask: mask}
}

// ACL is the ordered sequence of Allow/Deny entries on one policy
// node. A nil ACL means allow-all; a non-nil, empty ACL means
// deny-all (spec §3).
type ACL struct {
	entries []Entry
	present bool
}

// NewACL builds an ACL from entries, evaluated in the given order.
// Pass no entries (but call NewACL, not the zero value) to express
// "present but empty" (deny-all).
func NewACL(entries ...Entry) *ACL {
	return &ACL{entries: entries, present: true}
}

// allows reports whether subject is granted every bit of mask by this
// node's own ACL (not considering ancestors). A nil ACL always
// allows. Entries are walked in declared order: the first matching
// Deny whose mask intersects the request wins over any Allow; absent
// a matching Deny, the union of matching Allow masks must cover mask
// (spec §3, invariant 3).
func (a *ACL) allows(subject principal.Subject, mask Permission) bool {
	if a == nil {
		return true
	}

	var granted Permission
	for _, entry := range a.entries {
		if !subjectMatches(subject, entry.principal) {
			continue
		}
		switch entry.effect {
		case effectDeny:
			if entry.mask.Intersects(mask) {
				return false
			}
		case effectAllow:
			granted |= entry.mask
		}
	}
	return granted.Has(mask)
}

func subjectMatches(subject principal.Subject, entryPrincipal principal.Principal) bool {
	return subject.Principals().Contains(entryPrincipal)
}
