// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package subject resolves the authenticated user's full principal set
// by fanning out to the identity provider for their group memberships
// and partitioning JIT-scheme groups from ordinary ones (spec §4.5).
package subject

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jitaccess/jitaccess/internal/groupmapping"
	"github.com/jitaccess/jitaccess/internal/idp"
	"github.com/jitaccess/jitaccess/internal/jiterrors"
	"github.com/jitaccess/jitaccess/internal/policy"
	"github.com/jitaccess/jitaccess/internal/principal"
	"github.com/jitaccess/jitaccess/internal/workerpool"
)

// Resolver resolves an authenticated user's Subject.
type Resolver struct {
	client  idp.Client
	mapping groupmapping.Mapping
	pool    *workerpool.Pool
	logger  *slog.Logger
}

// New builds a Resolver. concurrency bounds the in-flight
// GetMembership calls fanned out per resolution (spec §5).
func New(client idp.Client, mapping groupmapping.Mapping, concurrency int, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client:  client,
		mapping: mapping,
		pool:    workerpool.New(concurrency),
		logger:  logger,
	}
}

// Resolve builds the Subject for userEmail: AuthenticatedUsers, the
// user itself, every non-JIT group they belong to, and a
// JitGroupMembership principal for every group whose membership
// carries a role expiry (spec §4.5).
//
// Individual membership-detail failures are tolerated: a membership
// that no longer exists (ErrResourceNotFound) is dropped silently, and
// one that fails to fetch for any other reason is dropped with a
// logged warning, rather than failing the whole resolution, so one
// stale or flaky membership never blocks a user's access to everything
// else.
func (r *Resolver) Resolve(ctx context.Context, userEmail string) (principal.Subject, error) {
	user := principal.User(userEmail)

	refs, err := r.client.ListMembershipsByUser(ctx, userEmail)
	if err != nil {
		return principal.Subject{}, jiterrors.Transport("list memberships", err)
	}

	principals := principal.Set{principal.AuthenticatedUsers(), user}

	// Partition before fanning out: only JIT-scheme groups need a
	// GetMembership call to learn their role expiry, so an ordinary
	// group never ties up a worker-pool slot or IdP capacity meant for
	// JIT lookups (spec §4.5).
	var jitRefs []idp.MembershipRef
	var jitGroupIDs []policy.JitGroupId
	for _, ref := range refs {
		jitGroupID, ok := r.mapping.Parse(ref.GroupKey.Email)
		if !ok {
			principals = append(principals, principal.Group(ref.GroupKey.Email))
			continue
		}
		jitRefs = append(jitRefs, ref)
		jitGroupIDs = append(jitGroupIDs, jitGroupID)
	}

	details, errs := workerpool.Run(ctx, r.pool, jitRefs, r.fetchDetails)

	for i, ref := range jitRefs {
		if errs[i] != nil {
			if !errors.Is(errs[i], jiterrors.ErrResourceNotFound) {
				r.logger.WarnContext(ctx, "dropping jit group membership after lookup failure",
					"user", userEmail, "group", ref.GroupKey.Email, "error", errs[i])
			}
			continue
		}
		expiry, ok := details[i].EarliestExpiry()
		if !ok {
			r.logger.WarnContext(ctx, "jit-scheme group membership has no role expiry, dropping",
				"user", userEmail, "group", ref.GroupKey.Email)
			continue
		}
		principals = append(principals, principal.JitGroupMembership(jitGroupIDs[i].String(), expiry))
	}

	return principal.NewSubject(user, principals), nil
}

func (r *Resolver) fetchDetails(ctx context.Context, ref idp.MembershipRef) (idp.MembershipDetails, error) {
	details, err := r.client.GetMembership(ctx, ref.ID)
	if err != nil {
		return idp.MembershipDetails{}, jiterrors.Transport("get membership", err)
	}
	return details, nil
}
