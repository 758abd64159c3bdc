// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package subject

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jitaccess/jitaccess/internal/groupmapping"
	"github.com/jitaccess/jitaccess/internal/idp"
	"github.com/jitaccess/jitaccess/internal/jiterrors"
	"github.com/jitaccess/jitaccess/internal/policy"
	"github.com/jitaccess/jitaccess/internal/principal"
)

type fakeClient struct {
	memberships []idp.MembershipRef
	details     map[string]idp.MembershipDetails
	detailErr   map[string]error
	fetched     []string
}

func (f *fakeClient) ListMembershipsByUser(ctx context.Context, userEmail string) ([]idp.MembershipRef, error) {
	return f.memberships, nil
}

func (f *fakeClient) GetMembership(ctx context.Context, id string) (idp.MembershipDetails, error) {
	f.fetched = append(f.fetched, id)
	if err, ok := f.detailErr[id]; ok {
		return idp.MembershipDetails{}, err
	}
	return f.details[id], nil
}

func (f *fakeClient) CreateGroup(ctx context.Context, key idp.GroupKey, groupType idp.GroupType, displayName, description string) error {
	return nil
}
func (f *fakeClient) AddMembership(ctx context.Context, key idp.GroupKey, userEmail string, expiry time.Time) error {
	return nil
}
func (f *fakeClient) GetGroup(ctx context.Context, key idp.GroupKey) (idp.Group, error) {
	return idp.Group{}, nil
}
func (f *fakeClient) PatchGroup(ctx context.Context, key idp.GroupKey, description string) error {
	return nil
}

func TestResolve(t *testing.T) {
	mapping := groupmapping.New("example.com")
	future := time.Now().Add(time.Hour)

	client := &fakeClient{
		memberships: []idp.MembershipRef{
			{ID: "m1", GroupKey: idp.GroupKey{Email: "engineers@example.com"}},
			{ID: "m2", GroupKey: mapping.GroupKey(mustParse(t, "prod.payments.admin"))},
			{ID: "m3", GroupKey: mapping.GroupKey(mustParse(t, "prod.payments.viewer"))},
			{ID: "m4", GroupKey: mapping.GroupKey(mustParse(t, "prod.payments.stale"))},
		},
		details: map[string]idp.MembershipDetails{
			"m2": {RoleExpiries: []time.Time{future}},
			"m3": {},
		},
		detailErr: map[string]error{
			"m4": jiterrors.NotFound("membership", "m4"),
		},
	}

	r := New(client, mapping, 4, nil)
	subj, err := r.Resolve(context.Background(), "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, principal.User("alice@example.com"), subj.User())
	principals := subj.Principals()

	assert.True(t, principals.Contains(principal.AuthenticatedUsers()))
	assert.True(t, principals.Contains(principal.User("alice@example.com")))
	assert.True(t, principals.Contains(principal.Group("engineers@example.com")))
	assert.True(t, principals.Contains(principal.JitGroupMembership("prod.payments.admin", future)))

	for _, p := range principals {
		if p.Kind() == principal.KindJitGroupMembership {
			assert.NotEqual(t, "prod.payments.viewer", p.JitGroupID(), "membership with no expiry must be dropped")
			assert.NotEqual(t, "prod.payments.stale", p.JitGroupID(), "jit membership that failed lookup must be dropped")
		}
	}
}

func TestResolveOnlyFetchesDetailsForJitSchemeGroups(t *testing.T) {
	mapping := groupmapping.New("example.com")

	client := &fakeClient{
		memberships: []idp.MembershipRef{
			{ID: "m1", GroupKey: idp.GroupKey{Email: "engineers@example.com"}},
			{ID: "m2", GroupKey: idp.GroupKey{Email: "contractors@example.com"}},
			{ID: "m3", GroupKey: mapping.GroupKey(mustParse(t, "prod.payments.admin"))},
		},
		details: map[string]idp.MembershipDetails{
			"m3": {RoleExpiries: []time.Time{time.Now().Add(time.Hour)}},
		},
	}

	r := New(client, mapping, 4, nil)
	_, err := r.Resolve(context.Background(), "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, []string{"m3"}, client.fetched,
		"only jit-scheme group memberships should be fetched via GetMembership")
}

func mustParse(t *testing.T, s string) policy.JitGroupId {
	t.Helper()
	id, err := policy.ParseJitGroupId(s)
	require.NoError(t, err)
	return id
}
