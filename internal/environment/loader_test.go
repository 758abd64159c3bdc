// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jitaccess/jitaccess/internal/jiterrors"
)

const minimalDoc = `
name: prod
acl:
  - effect: allow
    principal: "class:AuthenticatedUsers"
    permissions: ["VIEW"]
`

type countingSource struct {
	mu    sync.Mutex
	calls int32
	text  string
	err   error
	delay time.Duration
}

func (s *countingSource) Load(ctx context.Context, name string) (string, string, time.Time, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return "", "", time.Time{}, s.err
	}
	return s.text, "memory://" + name, time.Unix(0, 0), nil
}

func TestGetLoadsAndCaches(t *testing.T) {
	source := &countingSource{text: minimalDoc}
	loader := New(source, time.Minute, nil)

	env, err := loader.Get(context.Background(), "prod")
	require.NoError(t, err)
	assert.Equal(t, "prod", env.Policy.Name())

	_, err = loader.Get(context.Background(), "prod")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.calls), "second Get should be served from cache")
}

func TestGetReloadsAfterTTLExpiry(t *testing.T) {
	source := &countingSource{text: minimalDoc}
	loader := New(source, time.Millisecond, nil)

	_, err := loader.Get(context.Background(), "prod")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = loader.Get(context.Background(), "prod")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.calls))
}

func TestGetSourceFailureIsNotFoundAndNotCached(t *testing.T) {
	source := &countingSource{err: errors.New("boom")}
	loader := New(source, time.Minute, nil)

	_, err := loader.Get(context.Background(), "prod")
	require.Error(t, err)
	assert.True(t, errors.Is(err, jiterrors.ErrResourceNotFound))

	_, err = loader.Get(context.Background(), "prod")
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.calls), "failed loads are never cached")
}

func TestGetCoalescesConcurrentMisses(t *testing.T) {
	source := &countingSource{text: minimalDoc, delay: 20 * time.Millisecond}
	loader := New(source, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := loader.Get(context.Background(), "prod")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&source.calls), "concurrent misses for the same key share one load")
}

func TestInvalidateForcesReload(t *testing.T) {
	source := &countingSource{text: minimalDoc}
	loader := New(source, time.Minute, nil)

	_, err := loader.Get(context.Background(), "prod")
	require.NoError(t, err)

	loader.Invalidate("prod")

	_, err = loader.Get(context.Background(), "prod")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.calls))
}

func TestGetSurfacesPolicyValidationIssuesWithoutFailing(t *testing.T) {
	const docWithIssue = `
name: prod
systems:
  - name: billing
    groups:
      - name: admins
        acl:
          - effect: unknown
            principal: "user:a@b.com"
            permissions: ["JOIN"]
`
	source := &countingSource{text: docWithIssue}
	loader := New(source, time.Minute, nil)

	env, err := loader.Get(context.Background(), "prod")
	require.NoError(t, err)
	assert.NotEmpty(t, env.Issues)
}
