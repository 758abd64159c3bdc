// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package provisioner materializes policy decisions against the
// external IdP and resource manager: creating/joining groups and
// converging a group's IAM bindings via a checksum fast path
// (spec §4.6).
package provisioner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jitaccess/jitaccess/internal/groupmapping"
	"github.com/jitaccess/jitaccess/internal/idp"
	"github.com/jitaccess/jitaccess/internal/jiterrors"
	"github.com/jitaccess/jitaccess/internal/policy"
)

// checksumTag matches the trailing checksum annotation a group
// description carries, e.g. "... #a1b2c3d4" (spec §4.6).
var checksumTag = regexp.MustCompile(`#([0-9a-f]{2,8})$`)

// Metrics are the Prometheus series the Provisioner exposes for
// reconciliation outcomes.
type Metrics struct {
	reconciliations *prometheus.CounterVec
}

// NewMetrics registers the Provisioner's metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		reconciliations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "jitaccess",
			Subsystem: "provisioner",
			Name:      "reconciliations_total",
			Help:      "Count of IAM-binding reconciliation attempts by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) record(outcome string) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(outcome).Inc()
}

// Provisioner provisions JIT group membership and converges a group's
// IAM bindings against the external IdP and resource manager.
type Provisioner struct {
	idpClient idp.Client
	rmClient  idp.ResourceManagerClient
	mapping   groupmapping.Mapping
	metrics   *Metrics
	logger    *slog.Logger

	maxConflictRetries int
}

// New builds a Provisioner. metrics may be nil to disable metrics.
func New(idpClient idp.Client, rmClient idp.ResourceManagerClient, mapping groupmapping.Mapping, metrics *Metrics, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		idpClient:          idpClient,
		rmClient:           rmClient,
		mapping:            mapping,
		metrics:            metrics,
		logger:             logger,
		maxConflictRetries: 5,
	}
}

// Provision idempotently creates the group backing id if missing and
// adds/refreshes user's membership with the given expiry (spec §4.6
// "Group provisioner").
func (p *Provisioner) Provision(ctx context.Context, id policy.JitGroupId, userEmail string, expiry time.Time) error {
	key := p.mapping.GroupKey(id)

	if err := p.idpClient.CreateGroup(ctx, key, idp.GroupTypeSecurity, id.Name, p.mapping.Description(id)); err != nil {
		return jiterrors.Transport("create group", err)
	}
	if err := p.idpClient.AddMembership(ctx, key, userEmail, expiry); err != nil {
		return jiterrors.Transport("add membership", err)
	}
	return nil
}

// ProvisionAccess converges the group's IAM bindings to match
// bindings, via the checksum fast path (spec §4.6 "IAM provisioner").
func (p *Provisioner) ProvisionAccess(ctx context.Context, id policy.JitGroupId, bindings []policy.Privilege) error {
	key := p.mapping.GroupKey(id)

	group, err := p.idpClient.GetGroup(ctx, key)
	if err != nil {
		p.metrics.record("error")
		return jiterrors.Transport("get group", err)
	}

	expected := policy.ChecksumSet(bindings)
	if actual, ok := parseChecksum(group.Description); ok && actual == expected {
		p.metrics.record("up_to_date")
		return nil
	}

	principalRef := "group:" + key.Email
	for _, resource := range policy.SortedByResource(bindings) {
		resourceBindings := bindingsForResource(bindings, resource)
		mutator := replaceMutator(principalRef, resourceBindings)
		if err := p.retryOnConflict(ctx, func() error {
			return p.rmClient.ModifyIamPolicy(ctx, resource, mutator, "jit access reconciliation for "+id.String())
		}); err != nil {
			p.metrics.record("error")
			return err
		}
	}

	newDescription := rewriteChecksum(group.Description, expected)
	if err := p.idpClient.PatchGroup(ctx, key, newDescription); err != nil {
		p.metrics.record("error")
		return jiterrors.Transport("patch group description", err)
	}

	p.metrics.record("converged")
	return nil
}

// Reconcile re-runs ProvisionAccess independent of any requesting
// user, for admin-triggered or scheduled convergence (spec §4.6
// "Reconciliation").
func (p *Provisioner) Reconcile(ctx context.Context, group *policy.JitGroupPolicy) error {
	var bindings []policy.Privilege
	for _, priv := range group.Privileges() {
		bindings = append(bindings, priv)
	}
	return p.ProvisionAccess(ctx, group.ID(), bindings)
}

// ProvisionedGroups lists every group this Provisioner is
// authoritative for, recognized by the group-mapping naming scheme
// (spec §4.6). listAll enumerates every group the IdP exposes whose
// email parses under the mapping's scheme.
func (p *Provisioner) ProvisionedGroups(ctx context.Context, listAll func(context.Context) ([]idp.Group, error)) ([]policy.JitGroupId, error) {
	groups, err := listAll(ctx)
	if err != nil {
		return nil, jiterrors.Transport("list groups", err)
	}
	var ids []policy.JitGroupId
	for _, g := range groups {
		if id, ok := p.mapping.Parse(g.Key.Email); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// retryOnConflict retries fn with jittered backoff on
// jiterrors.ErrConflict, up to maxConflictRetries times, the way
// optimistic-concurrency resource manager writes are expected to
// recover from a concurrent writer (spec §5).
func (p *Provisioner) retryOnConflict(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= p.maxConflictRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, jiterrors.ErrConflict) {
			return err
		}
		lastErr = err
		if attempt == p.maxConflictRetries {
			break
		}
		backoff := time.Duration(attempt+1) * 50 * time.Millisecond
		backoff += time.Duration(rand.IntN(50)) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("exhausted %d retries: %w", p.maxConflictRetries, lastErr)
}

func bindingsForResource(bindings []policy.Privilege, resource policy.Resource) []policy.Privilege {
	var out []policy.Privilege
	for _, b := range bindings {
		if iam, ok := b.IamRoleBinding(); ok && iam.Resource == resource {
			out = append(out, b)
		}
	}
	return out
}

// replaceMutator builds the Mutator that atomically replaces
// principalRef's bindings on one resource: drop every existing
// binding for this principal, purge bindings that become empty, add
// the new set (spec §4.6 step "for each resource replace the
// principal's bindings atomically").
func replaceMutator(principalRef string, bindings []policy.Privilege) idp.Mutator {
	return func(current idp.Policy) (idp.Policy, error) {
		kept := make([]idp.Binding, 0, len(current.Bindings))
		for _, b := range current.Bindings {
			if b.Principal != principalRef {
				kept = append(kept, b)
			}
		}
		for _, priv := range bindings {
			iam, ok := priv.IamRoleBinding()
			if !ok {
				continue
			}
			kept = append(kept, idp.Binding{
				Principal: principalRef,
				Role:      iam.Role,
				Condition: iam.Condition,
			})
		}
		return idp.Policy{Bindings: kept}, nil
	}
}

func parseChecksum(description string) (uint32, bool) {
	m := checksumTag.FindStringSubmatch(description)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func rewriteChecksum(description string, checksum uint32) string {
	tag := fmt.Sprintf("#%02x", checksum)
	base := checksumTag.ReplaceAllString(description, "")
	base = trimTrailingSpace(base)
	if base == "" {
		return tag
	}
	return base + " " + tag
}

func trimTrailingSpace(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}
