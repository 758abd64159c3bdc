// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jitaccess/jitaccess/internal/idp"
	"github.com/jitaccess/jitaccess/internal/jiterrors"
	"github.com/jitaccess/jitaccess/internal/policy"
)

// unconfiguredBackend stands in for the external IdP and resource
// manager clients the service depends on (spec §6): a concrete Google
// Workspace/IAM backend is deployment-specific and out of scope here.
// Every method fails with ErrUnsupported, so the binary still starts
// and lists environments without one configured; every route that
// resolves the caller's subject fails, because ListMembershipsByUser
// does.
type unconfiguredBackend struct{}

var _ idp.Client = unconfiguredBackend{}
var _ idp.ResourceManagerClient = unconfiguredBackend{}

func (unconfiguredBackend) unsupported(op string) error {
	return fmt.Errorf("%s: %w: no identity provider backend configured", op, jiterrors.ErrUnsupported)
}

func (b unconfiguredBackend) ListMembershipsByUser(context.Context, string) ([]idp.MembershipRef, error) {
	return nil, b.unsupported("list memberships")
}

func (b unconfiguredBackend) GetMembership(context.Context, string) (idp.MembershipDetails, error) {
	return idp.MembershipDetails{}, b.unsupported("get membership")
}

func (b unconfiguredBackend) CreateGroup(context.Context, idp.GroupKey, idp.GroupType, string, string) error {
	return b.unsupported("create group")
}

func (b unconfiguredBackend) AddMembership(context.Context, idp.GroupKey, string, time.Time) error {
	return b.unsupported("add membership")
}

func (b unconfiguredBackend) GetGroup(context.Context, idp.GroupKey) (idp.Group, error) {
	return idp.Group{}, b.unsupported("get group")
}

func (b unconfiguredBackend) PatchGroup(context.Context, idp.GroupKey, string) error {
	return b.unsupported("patch group")
}

func (b unconfiguredBackend) ModifyIamPolicy(context.Context, policy.Resource, idp.Mutator, string) error {
	return b.unsupported("modify IAM policy")
}

// listGroups is the catalog's group-enumeration collaborator (used
// only by Reconcile to detect orphaned groups); the unconfigured
// backend has none to enumerate.
func (b unconfiguredBackend) listGroups(context.Context) ([]idp.Group, error) {
	return nil, b.unsupported("list groups")
}
