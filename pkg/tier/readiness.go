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

package tier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/NVIDIA/stack-orchestrator/pkg/config"
	"github.com/NVIDIA/stack-orchestrator/pkg/defaults"
	apperrors "github.com/NVIDIA/stack-orchestrator/pkg/errors"
)

// Probe is the injected readiness predicate for a tier. Implementations must
// respect the context deadline; the sequencer treats a timeout as failure.
type Probe interface {
	Check(ctx context.Context, t *Tier) (bool, error)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context, t *Tier) (bool, error)

// Check implements Probe.
func (f ProbeFunc) Check(ctx context.Context, t *Tier) (bool, error) {
	return f(ctx, t)
}

// WithTimeout wraps a probe with a per-call timeout. A probe that exceeds the
// timeout is reported as a ReadinessTimeoutError, never left pending.
func WithTimeout(probe Probe, timeout time.Duration) Probe {
	return ProbeFunc(func(ctx context.Context, t *Tier) (bool, error) {
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		ready, err := probe.Check(probeCtx, t)
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return false, apperrors.WrapWithContext(
				apperrors.ErrCodeReadinessTimeout,
				fmt.Sprintf("readiness probe for tier %s timed out after %v", t.Name, timeout),
				err,
				map[string]any{"tier": t.Name},
			)
		}
		return ready, err
	})
}

// Consecutive wraps a probe so a tier only reports ready after k consecutive
// successes; a tier's readiness threshold, when set, overrides k. A single
// failure resets the streak. Safe for concurrent use: tiers in the same wave
// are probed in parallel.
func Consecutive(probe Probe, k int) Probe {
	if k < 1 {
		k = 1
	}

	var mu sync.Mutex
	streaks := make(map[string]int)
	return ProbeFunc(func(ctx context.Context, t *Tier) (bool, error) {
		ready, err := probe.Check(ctx, t)

		mu.Lock()
		defer mu.Unlock()
		if err != nil || !ready {
			delete(streaks, t.Name)
			return false, err
		}

		need := t.Readiness.Threshold
		if need < 1 {
			need = k
		}
		streaks[t.Name]++
		return streaks[t.Name] >= need, nil
	})
}

// HTTPProbe reports a tier ready when a GET of its readiness target returns
// 200 OK. Connection errors and other status codes count as not ready rather
// than failed: during a rollout the endpoint is expected to be unreachable
// for a while, and the tier's retry policy decides when to give up.
func HTTPProbe(client *http.Client) Probe {
	if client == nil {
		client = &http.Client{Timeout: defaults.ProbeTimeout}
	}
	return ProbeFunc(func(ctx context.Context, t *Tier) (bool, error) {
		if t.Readiness.Target == "" {
			return false, apperrors.New(apperrors.ErrCodeConfigInvalid,
				fmt.Sprintf("tier %s: readiness type http requires a target", t.Name))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.Readiness.Target, http.NoBody)
		if err != nil {
			return false, apperrors.Wrap(apperrors.ErrCodeConfigInvalid,
				fmt.Sprintf("tier %s: invalid readiness target", t.Name), err)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, nil
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK, nil
	})
}

// Dispatch routes each tier to the probe registered for its declared
// readiness type. Tiers with no registered probe fall back to fallback.
func Dispatch(byType map[config.ReadinessType]Probe, fallback Probe) Probe {
	return ProbeFunc(func(ctx context.Context, t *Tier) (bool, error) {
		if p, ok := byType[t.Readiness.Type]; ok && p != nil {
			return p.Check(ctx, t)
		}
		return fallback.Check(ctx, t)
	})
}
