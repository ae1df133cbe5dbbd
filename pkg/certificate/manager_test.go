// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package certificate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/stack-orchestrator/pkg/config"
	apperrors "github.com/NVIDIA/stack-orchestrator/pkg/errors"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeAuthority scripts challenge outcomes and counts calls.
type fakeAuthority struct {
	mu         sync.Mutex
	submitErr  error
	pollErr    error
	result     ChallengeResult
	submits    int
	polls      int
	lastIssuer string
}

func (a *fakeAuthority) SubmitChallenge(_ context.Context, _, issuerClass string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submits++
	a.lastIssuer = issuerClass
	if a.submitErr != nil {
		return "", a.submitErr
	}
	return fmt.Sprintf("tok-%d", a.submits), nil
}

func (a *fakeAuthority) PollChallenge(_ context.Context, _ string) (ChallengeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.polls++
	if a.pollErr != nil {
		return ChallengeResult{}, a.pollErr
	}
	return a.result, nil
}

func (a *fakeAuthority) set(fn func(*fakeAuthority)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a)
}

func (a *fakeAuthority) submitCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submits
}

func newTestManager(clock *fakeClock, authority *fakeAuthority, opts ...Option) *Manager {
	base := []Option{WithAuthority(authority), WithClock(clock.Now)}
	return NewManager(append(base, opts...)...)
}

func TestEnsureIdempotentSameIssuer(t *testing.T) {
	m := newTestManager(newFakeClock(), &fakeAuthority{})

	first, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, first.Status)

	again, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Len(t, m.Statuses(), 1)
}

func TestEnsureRequiresDomainAndIssuer(t *testing.T) {
	m := newTestManager(newFakeClock(), &fakeAuthority{})

	_, err := m.Ensure("", "prod")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))

	_, err = m.Ensure("shop.example.com", "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))
}

func TestIssueHappyPath(t *testing.T) {
	clock := newFakeClock()
	authority := &fakeAuthority{result: ChallengeResult{State: ChallengeProcessing}}
	m := newTestManager(clock, authority)
	ctx := t.Context()

	_, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)

	require.NoError(t, m.Tick(ctx))
	status, err := m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusValidating, status.Status)
	assert.NotEmpty(t, status.ChallengeToken)

	// authority still processing, no transition
	require.NoError(t, m.Tick(ctx))
	status, err = m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusValidating, status.Status)

	notAfter := clock.Now().Add(90 * 24 * time.Hour)
	authority.set(func(a *fakeAuthority) {
		a.result = ChallengeResult{State: ChallengeValid, NotAfter: notAfter}
	})

	require.NoError(t, m.Tick(ctx))
	status, err = m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusIssued, status.Status)
	assert.Equal(t, notAfter, status.ExpiresAt)
	assert.Empty(t, status.ChallengeToken)
	assert.Zero(t, status.RetryCount)
}

func TestTickIdempotentOnIssued(t *testing.T) {
	clock := newFakeClock()
	authority := &fakeAuthority{result: ChallengeResult{
		State:    ChallengeValid,
		NotAfter: clock.Now().Add(90 * 24 * time.Hour),
	}}
	m := newTestManager(clock, authority)
	ctx := t.Context()

	_, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)
	require.NoError(t, m.Tick(ctx)) // submit
	require.NoError(t, m.Tick(ctx)) // poll -> Issued

	before, err := m.Status("shop.example.com")
	require.NoError(t, err)
	require.Equal(t, StatusIssued, before.Status)
	calls := authority.submitCount()

	// outside the renewal window: repeated ticks are no-ops
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Tick(ctx))
	}
	after, err := m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, calls, authority.submitCount())
}

func TestIssuerSwitchInvalidatesInFlight(t *testing.T) {
	clock := newFakeClock()
	authority := &fakeAuthority{result: ChallengeResult{State: ChallengeProcessing}}
	m := newTestManager(clock, authority)
	ctx := t.Context()

	_, err := m.Ensure("shop.example.com", "staging")
	require.NoError(t, err)
	require.NoError(t, m.Tick(ctx))

	status, err := m.Status("shop.example.com")
	require.NoError(t, err)
	require.Equal(t, StatusValidating, status.Status)

	// switch staging -> prod: in-flight request is discarded
	fresh, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, fresh.Status)
	assert.Equal(t, "prod", fresh.IssuerClass)
	assert.Empty(t, fresh.ChallengeToken)
	assert.Zero(t, fresh.RetryCount)

	require.NoError(t, m.Tick(ctx))
	authority.mu.Lock()
	issuer := authority.lastIssuer
	authority.mu.Unlock()
	assert.Equal(t, "prod", issuer, "new challenge goes to the new issuer")
}

func TestRetryDelaysDoubleUpToCap(t *testing.T) {
	clock := newFakeClock()
	authority := &fakeAuthority{submitErr: fmt.Errorf("connection refused")}
	m := newTestManager(clock, authority,
		WithBackoff(Backoff{Initial: 5 * time.Second, Max: 3 * time.Minute}),
		WithRateLimit(time.Hour, 100))
	ctx := t.Context()

	_, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)

	var delays []time.Duration
	for attempt := 1; attempt <= 7; attempt++ {
		require.NoError(t, m.Tick(ctx)) // Failed -> Pending when due
		require.NoError(t, m.Tick(ctx)) // submit attempt
		status, err := m.Status("shop.example.com")
		require.NoError(t, err)
		require.Equal(t, StatusFailed, status.Status)
		require.Equal(t, attempt, status.RetryCount)
		assert.Contains(t, status.Cause, "challenge submission failed")

		delay := status.NextRetryAt.Sub(clock.Now())
		delays = append(delays, delay)
		clock.Advance(delay)
	}

	assert.Equal(t, 5*time.Second, delays[0])
	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1], "delay %d", i)
		assert.LessOrEqual(t, delays[i], 3*time.Minute, "delay %d", i)
	}
	assert.Equal(t, 3*time.Minute, delays[len(delays)-1], "delays reach the cap")
}

func TestExhaustedRequestStopsAuthorityTraffic(t *testing.T) {
	clock := newFakeClock()
	authority := &fakeAuthority{submitErr: fmt.Errorf("boom")}
	m := newTestManager(clock, authority,
		WithMaxAttempts(2),
		WithBackoff(Backoff{Initial: time.Second, Max: time.Second}),
		WithRateLimit(time.Hour, 100))
	ctx := t.Context()

	_, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, m.Tick(ctx))
		clock.Advance(2 * time.Second)
	}

	status, err := m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status.Status)
	assert.Equal(t, 2, status.RetryCount)
	require.Equal(t, 2, authority.submitCount())

	// exhausted: no further authority calls however long we tick
	for i := 0; i < 10; i++ {
		require.NoError(t, m.Tick(ctx))
		clock.Advance(time.Minute)
	}
	assert.Equal(t, 2, authority.submitCount())
}

func TestRateLimitRefusedBeforeAuthority(t *testing.T) {
	clock := newFakeClock()
	authority := &fakeAuthority{result: ChallengeResult{State: ChallengeInvalid}}
	m := newTestManager(clock, authority,
		WithRateLimit(time.Hour, 1),
		WithBackoff(Backoff{Initial: time.Second, Max: time.Second}))
	ctx := t.Context()

	_, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)

	require.NoError(t, m.Tick(ctx)) // submit, consumes the only token
	require.NoError(t, m.Tick(ctx)) // poll -> rejected -> Failed
	status, err := m.Status("shop.example.com")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, status.Status)
	assert.Contains(t, status.Cause, "rejected")

	clock.Advance(2 * time.Second)
	require.NoError(t, m.Tick(ctx)) // Failed -> Pending
	require.NoError(t, m.Tick(ctx)) // submit refused by limiter

	status, err = m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status.Status)
	assert.Contains(t, status.Cause, "budget exhausted")
	assert.Equal(t, 1, authority.submitCount(), "authority not contacted for the refused attempt")
}

func TestRenewalInsideWindow(t *testing.T) {
	clock := newFakeClock()
	authority := &fakeAuthority{result: ChallengeResult{
		State:    ChallengeValid,
		NotAfter: clock.Now().Add(90 * 24 * time.Hour),
	}}
	m := newTestManager(clock, authority)
	ctx := t.Context()

	_, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)
	require.NoError(t, m.Tick(ctx)) // submit
	require.NoError(t, m.Tick(ctx)) // Issued

	// move inside the 30-day renewal window
	clock.Advance(61 * 24 * time.Hour)
	renewedNotAfter := clock.Now().Add(90 * 24 * time.Hour)
	authority.set(func(a *fakeAuthority) {
		a.result = ChallengeResult{State: ChallengeValid, NotAfter: renewedNotAfter}
	})

	require.NoError(t, m.Tick(ctx)) // Issued -> Renewing
	status, err := m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusRenewing, status.Status)

	require.NoError(t, m.Tick(ctx)) // submit renewal challenge
	status, err = m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusRenewing, status.Status, "still Renewing while the challenge is out")
	assert.NotEmpty(t, status.ChallengeToken)

	require.NoError(t, m.Tick(ctx)) // poll -> new certificate
	status, err = m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusIssued, status.Status)
	assert.Equal(t, renewedNotAfter, status.ExpiresAt)
}

func TestReachabilityGatesSubmission(t *testing.T) {
	clock := newFakeClock()
	authority := &fakeAuthority{result: ChallengeResult{State: ChallengeProcessing}}
	var routable bool
	var mu sync.Mutex
	m := newTestManager(clock, authority,
		WithReachability(func(_ context.Context, _ string) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			return routable, nil
		}))
	ctx := t.Context()

	_, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)

	require.NoError(t, m.Tick(ctx))
	status, err := m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status.Status, "waits for the challenge path")
	assert.Zero(t, authority.submitCount())

	mu.Lock()
	routable = true
	mu.Unlock()

	require.NoError(t, m.Tick(ctx))
	status, err = m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusValidating, status.Status)
}

func TestForceRetryResetsExhaustedRequest(t *testing.T) {
	clock := newFakeClock()
	authority := &fakeAuthority{submitErr: fmt.Errorf("boom")}
	m := newTestManager(clock, authority,
		WithMaxAttempts(1),
		WithBackoff(Backoff{Initial: time.Second, Max: time.Second}))
	ctx := t.Context()

	_, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)
	require.NoError(t, m.Tick(ctx))

	status, err := m.Status("shop.example.com")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, status.Status)
	require.Equal(t, 1, status.RetryCount)

	// operator fixed the network
	authority.set(func(a *fakeAuthority) {
		a.submitErr = nil
		a.result = ChallengeResult{State: ChallengeProcessing}
	})

	require.NoError(t, m.ForceRetry("shop.example.com"))
	status, err = m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status.Status)
	assert.Zero(t, status.RetryCount)

	require.NoError(t, m.Tick(ctx))
	status, err = m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusValidating, status.Status)
}

func TestForceRetryRequiresFailed(t *testing.T) {
	m := newTestManager(newFakeClock(), &fakeAuthority{})

	_, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)

	err = m.ForceRetry("shop.example.com")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))

	err = m.ForceRetry("ghost.example.com")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestCancelDropsRequest(t *testing.T) {
	m := newTestManager(newFakeClock(), &fakeAuthority{})

	_, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)

	require.NoError(t, m.Cancel("shop.example.com"))
	_, err = m.Status("shop.example.com")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))

	err = m.Cancel("shop.example.com")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestSetDesiredPrunesAbsentDomains(t *testing.T) {
	m := newTestManager(newFakeClock(), &fakeAuthority{})

	require.NoError(t, m.SetDesired([]config.CertificateSpec{
		{Domain: "shop.example.com", IssuerClass: "prod"},
		{Domain: "api.example.com", IssuerClass: "prod"},
	}))
	require.Len(t, m.Statuses(), 2)

	require.NoError(t, m.SetDesired([]config.CertificateSpec{
		{Domain: "api.example.com", IssuerClass: "prod"},
	}))

	statuses := m.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "api.example.com", statuses[0].Domain)
}

func TestRateLimitRefusalConsumesNoRetryBudget(t *testing.T) {
	clock := newFakeClock()
	authority := &fakeAuthority{result: ChallengeResult{State: ChallengeProcessing}}
	m := newTestManager(clock, authority,
		WithRateLimit(time.Hour, 1),
		WithBackoff(Backoff{Initial: time.Second, Max: time.Second}),
		WithMaxAttempts(2))
	ctx := t.Context()

	_, err := m.Ensure("shop.example.com", "prod")
	require.NoError(t, err)
	require.NoError(t, m.Tick(ctx)) // submit, consumes the only token

	authority.set(func(a *fakeAuthority) { a.pollErr = fmt.Errorf("connection reset") })
	require.NoError(t, m.Tick(ctx)) // poll fails -> Failed, one attempt used

	status, err := m.Status("shop.example.com")
	require.NoError(t, err)
	require.Equal(t, 1, status.RetryCount)

	clock.Advance(2 * time.Second)
	require.NoError(t, m.Tick(ctx)) // Failed -> Pending when the backoff is due
	require.NoError(t, m.Tick(ctx)) // submit refused by the limiter

	status, err = m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status.Status)
	assert.Equal(t, 1, status.RetryCount, "refusal consumes no retry budget")
	assert.Contains(t, status.Cause, "budget exhausted")
	assert.Equal(t, 1, authority.submitCount())

	// eligibility follows the rate-limit window, not the backoff floor
	wait := status.NextRetryAt.Sub(clock.Now())
	assert.Greater(t, wait, 30*time.Minute)

	authority.set(func(a *fakeAuthority) { a.pollErr = nil })
	clock.Advance(wait + time.Second)
	require.NoError(t, m.Tick(ctx)) // Failed -> Pending
	require.NoError(t, m.Tick(ctx)) // window refilled, submit goes through

	status, err = m.Status("shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusValidating, status.Status)
	assert.Equal(t, 2, authority.submitCount())
}
