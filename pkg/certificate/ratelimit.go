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
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/stack-orchestrator/pkg/defaults"
)

// domainLimiter enforces the per-domain authority request budget: at most
// burst requests per window, with tokens refilling evenly across the window.
// A request that would exceed the budget is refused immediately rather than
// queued, so doomed submissions fail fast without contacting the authority.
type domainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newDomainLimiter(window time.Duration, burst int) *domainLimiter {
	if window <= 0 {
		window = defaults.CertRateLimitWindow
	}
	if burst <= 0 {
		burst = defaults.CertRateLimitBurst
	}
	return &domainLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(window / time.Duration(burst)),
		burst:    burst,
	}
}

// allow consumes one token for the domain at the given instant, reporting
// whether the request is within budget.
func (d *domainLimiter) allow(domain string, now time.Time) bool {
	d.mu.Lock()
	l, ok := d.limiters[domain]
	if !ok {
		l = rate.NewLimiter(d.limit, d.burst)
		d.limiters[domain] = l
	}
	d.mu.Unlock()
	return l.AllowN(now, 1)
}

// nextAllowed reports when the domain's next request will fit the budget.
// The reservation made to compute the answer is cancelled, so no token is
// consumed.
func (d *domainLimiter) nextAllowed(domain string, now time.Time) time.Time {
	d.mu.Lock()
	l, ok := d.limiters[domain]
	d.mu.Unlock()
	if !ok {
		return now
	}
	r := l.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return now.Add(delay)
}

// forget drops the limiter state for a domain no longer under management.
func (d *domainLimiter) forget(domain string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.limiters, domain)
}
