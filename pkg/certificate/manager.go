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
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/NVIDIA/stack-orchestrator/pkg/config"
	"github.com/NVIDIA/stack-orchestrator/pkg/defaults"
	"github.com/NVIDIA/stack-orchestrator/pkg/errors"
)

// Option configures a Manager.
type Option func(*Manager)

// WithAuthority sets the external authority client. Required for Tick to
// make progress.
func WithAuthority(c AuthorityClient) Option {
	return func(m *Manager) { m.authority = c }
}

// WithReachability sets the ingress prerequisite probe. When set, Pending
// requests wait until the domain's challenge path is routable.
func WithReachability(f ReachabilityCheck) Option {
	return func(m *Manager) { m.reachable = f }
}

// WithBackoff overrides the retry delay policy.
func WithBackoff(b Backoff) Option {
	return func(m *Manager) { m.backoff = b }
}

// WithRateLimit overrides the per-domain authority request budget.
func WithRateLimit(window time.Duration, burst int) Option {
	return func(m *Manager) { m.limiter = newDomainLimiter(window, burst) }
}

// WithMaxAttempts overrides the retry budget per request.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithRenewalWindow overrides how long before expiry renewal begins.
func WithRenewalWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.renewalWindow = d
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// Manager owns certificate request state and drives each request through
// its lifecycle on Tick. All exported methods are safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	requests map[string]*Request

	authority     AuthorityClient
	reachable     ReachabilityCheck
	backoff       Backoff
	limiter       *domainLimiter
	maxAttempts   int
	renewalWindow time.Duration
	now           func() time.Time
	log           *slog.Logger
}

// NewManager creates a Manager with default policy, modified by opts.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		requests:      make(map[string]*Request),
		backoff:       DefaultBackoff(),
		limiter:       newDomainLimiter(defaults.CertRateLimitWindow, defaults.CertRateLimitBurst),
		maxAttempts:   defaults.CertMaxAttempts,
		renewalWindow: defaults.CertRenewalWindow,
		now:           time.Now,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ensure records the desired certificate for a domain and returns a copy of
// the tracked request. Calling Ensure again with the same issuer class is
// idempotent; a different issuer class invalidates any in-flight request and
// starts a fresh cycle against the new issuer.
func (m *Manager) Ensure(domain, issuerClass string) (*Request, error) {
	if domain == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "certificate domain is required")
	}
	if issuerClass == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "certificate issuer class is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	req, ok := m.requests[domain]
	if ok && req.IssuerClass == issuerClass {
		out := *req
		return &out, nil
	}

	if ok {
		m.log.Info("issuer class changed, invalidating certificate request",
			"domain", domain, "from", req.IssuerClass, "to", issuerClass)
		m.limiter.forget(limitKey(domain, req.IssuerClass))
	}

	req = &Request{
		Domain:      domain,
		IssuerClass: issuerClass,
		Status:      StatusPending,
		UpdatedAt:   now,
	}
	m.requests[domain] = req

	out := *req
	return &out, nil
}

// SetDesired reconciles tracked requests against the desired certificate
// set: new domains are ensured, absent domains are dropped.
func (m *Manager) SetDesired(specs []config.CertificateSpec) error {
	desired := make(map[string]bool, len(specs))
	for _, spec := range specs {
		desired[spec.Domain] = true
		if _, err := m.Ensure(spec.Domain, spec.IssuerClass); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for domain, req := range m.requests {
		if !desired[domain] {
			m.limiter.forget(limitKey(domain, req.IssuerClass))
			delete(m.requests, domain)
		}
	}
	return nil
}

// Restore seeds tracked requests from persisted state, typically on daemon
// restart before the first tick. Existing in-memory requests are replaced.
func (m *Manager) Restore(reqs []*Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, req := range reqs {
		if req.Domain == "" {
			continue
		}
		cp := *req
		m.requests[req.Domain] = &cp
	}
}

// Status returns a copy of the tracked request for the domain.
func (m *Manager) Status(domain string) (*Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[domain]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, fmt.Sprintf("no certificate request for domain %q", domain))
	}
	out := *req
	return &out, nil
}

// Statuses returns copies of all tracked requests, sorted by domain.
func (m *Manager) Statuses() []*Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Request, 0, len(m.requests))
	for _, req := range m.requests {
		cp := *req
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

// Cancel drops the tracked request for a domain.
func (m *Manager) Cancel(domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[domain]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, fmt.Sprintf("no certificate request for domain %q", domain))
	}
	m.limiter.forget(limitKey(domain, req.IssuerClass))
	delete(m.requests, domain)
	return nil
}

// ForceRetry resets a Failed request's retry budget and schedules an
// immediate attempt. Operator override for exhausted requests.
func (m *Manager) ForceRetry(domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[domain]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, fmt.Sprintf("no certificate request for domain %q", domain))
	}
	if req.Status != StatusFailed {
		return errors.New(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("certificate request for %q is %s, only Failed requests can be force-retried", domain, req.Status))
	}
	req.Status = StatusPending
	req.RetryCount = 0
	req.NextRetryAt = time.Time{}
	req.Cause = ""
	req.ChallengeToken = ""
	req.UpdatedAt = m.now()
	return nil
}

// Tick advances every tracked request one step. It never blocks on the
// authority beyond the per-request timeout, and a request whose retries are
// exhausted generates no authority traffic at all. Tick is idempotent:
// re-running it against unchanged external state causes no spurious
// transitions.
func (m *Manager) Tick(ctx context.Context) error {
	m.mu.Lock()
	domains := make([]string, 0, len(m.requests))
	for domain := range m.requests {
		domains = append(domains, domain)
	}
	m.mu.Unlock()
	sort.Strings(domains)

	for _, domain := range domains {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.tickOne(ctx, domain)
	}
	return nil
}

func (m *Manager) tickOne(ctx context.Context, domain string) {
	m.mu.Lock()
	req, ok := m.requests[domain]
	if !ok {
		m.mu.Unlock()
		return
	}
	// snapshot for the unlocked authority call
	snapshot := *req
	m.mu.Unlock()

	now := m.now()

	switch snapshot.Status {
	case StatusPending:
		m.submit(ctx, domain, snapshot, now)
	case StatusValidating, StatusRenewing:
		m.poll(ctx, domain, snapshot, now)
	case StatusIssued:
		if now.After(snapshot.ExpiresAt.Add(-m.renewalWindow)) {
			m.beginRenewal(domain, snapshot, now)
		}
	case StatusFailed:
		if snapshot.RetryCount >= m.maxAttempts {
			return
		}
		if now.Before(snapshot.NextRetryAt) {
			return
		}
		m.transition(domain, snapshot.UpdatedAt, func(r *Request) {
			r.Status = StatusPending
			r.UpdatedAt = now
		})
	}
}

func (m *Manager) submit(ctx context.Context, domain string, snapshot Request, now time.Time) {
	if now.Before(snapshot.NextRetryAt) {
		return
	}

	if m.reachable != nil {
		callCtx, cancel := context.WithTimeout(ctx, defaults.ProbeTimeout)
		ok, err := m.reachable(callCtx, domain)
		cancel()
		if err != nil || !ok {
			// routing prerequisite not met yet, wait for a later tick
			m.log.Debug("challenge path not yet routable", "domain", domain, "error", err)
			return
		}
	}

	if !m.limiter.allow(limitKey(domain, snapshot.IssuerClass), now) {
		m.refuse(domain, snapshot, now)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, defaults.AuthorityRequestTimeout)
	token, err := m.authority.SubmitChallenge(callCtx, domain, snapshot.IssuerClass)
	cancel()
	if err != nil {
		m.fail(domain, snapshot, now, errors.Wrap(errors.ErrCodeAuthorityUnreachable,
			fmt.Sprintf("challenge submission failed for domain %q", domain), err))
		return
	}

	m.log.Info("challenge submitted", "domain", domain, "issuerClass", snapshot.IssuerClass)
	m.transition(domain, snapshot.UpdatedAt, func(r *Request) {
		// a renewal keeps its Renewing status while the challenge is out;
		// the previous certificate remains valid until the swap
		if r.Status != StatusRenewing {
			r.Status = StatusValidating
		}
		r.ChallengeToken = token
		r.UpdatedAt = now
	})
}

func (m *Manager) poll(ctx context.Context, domain string, snapshot Request, now time.Time) {
	if snapshot.ChallengeToken == "" {
		// Renewing without an outstanding challenge: submit a fresh one.
		m.submit(ctx, domain, snapshot, now)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, defaults.AuthorityRequestTimeout)
	result, err := m.authority.PollChallenge(callCtx, snapshot.ChallengeToken)
	cancel()
	if err != nil {
		m.fail(domain, snapshot, now, errors.Wrap(errors.ErrCodeAuthorityUnreachable,
			fmt.Sprintf("challenge poll failed for domain %q", domain), err))
		return
	}

	switch result.State {
	case ChallengeProcessing:
		// authority has not decided, poll again next tick
	case ChallengeValid:
		m.log.Info("certificate issued", "domain", domain, "expiresAt", result.NotAfter)
		m.transition(domain, snapshot.UpdatedAt, func(r *Request) {
			r.Status = StatusIssued
			r.ChallengeToken = ""
			r.IssuedAt = now
			r.ExpiresAt = result.NotAfter
			r.RetryCount = 0
			r.NextRetryAt = time.Time{}
			r.Cause = ""
			r.UpdatedAt = now
		})
	case ChallengeInvalid:
		m.fail(domain, snapshot, now, errors.New(errors.ErrCodeChallengeFailed,
			fmt.Sprintf("authority rejected challenge for domain %q", domain)))
	}
}

func (m *Manager) beginRenewal(domain string, snapshot Request, now time.Time) {
	m.log.Info("certificate entering renewal window", "domain", domain, "expiresAt", snapshot.ExpiresAt)
	m.transition(domain, snapshot.UpdatedAt, func(r *Request) {
		r.Status = StatusRenewing
		r.ChallengeToken = ""
		r.UpdatedAt = now
	})
}

// refuse marks a request Failed when the issuer budget is exhausted, without
// contacting the authority. Unlike fail, a refusal consumes no retry budget:
// the request becomes eligible again when the window frees a token, not on
// the backoff schedule.
func (m *Manager) refuse(domain string, snapshot Request, now time.Time) {
	next := m.limiter.nextAllowed(limitKey(domain, snapshot.IssuerClass), now)
	cause := errors.New(errors.ErrCodeRateLimitExceeded,
		fmt.Sprintf("issuer request budget exhausted for domain %q", domain))

	m.log.Warn("authority request refused by rate limit", "domain", domain,
		"nextEligible", next)

	m.transition(domain, snapshot.UpdatedAt, func(r *Request) {
		r.Status = StatusFailed
		r.ChallengeToken = ""
		r.NextRetryAt = next
		r.Cause = cause.Error()
		r.UpdatedAt = now
	})
}

func (m *Manager) fail(domain string, snapshot Request, now time.Time, cause error) {
	attempt := snapshot.RetryCount + 1
	delay := m.backoff.Delay(attempt)
	exhausted := attempt >= m.maxAttempts

	if exhausted {
		m.log.Error("certificate request exhausted retries", "domain", domain,
			"attempts", attempt, "error", cause)
	} else {
		m.log.Warn("certificate attempt failed", "domain", domain,
			"attempt", attempt, "retryIn", delay, "error", cause)
	}

	m.transition(domain, snapshot.UpdatedAt, func(r *Request) {
		r.Status = StatusFailed
		r.ChallengeToken = ""
		r.RetryCount = attempt
		r.NextRetryAt = now.Add(delay)
		r.Cause = cause.Error()
		r.UpdatedAt = now
	})
}

// transition applies mutate to the tracked request only if it has not been
// concurrently replaced or updated since the snapshot was taken.
func (m *Manager) transition(domain string, seen time.Time, mutate func(*Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[domain]
	if !ok || !req.UpdatedAt.Equal(seen) {
		return
	}
	mutate(req)
}

func limitKey(domain, issuerClass string) string {
	return domain + "/" + issuerClass
}
