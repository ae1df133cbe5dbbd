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

package sequencer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/NVIDIA/stack-orchestrator/pkg/errors"
	"github.com/NVIDIA/stack-orchestrator/pkg/tier"
)

// scriptedProbe reports readiness per tier name and records probed tiers.
type scriptedProbe struct {
	mu     sync.Mutex
	ready  map[string]bool
	err    map[string]error
	probed []string
}

func (p *scriptedProbe) Check(_ context.Context, t *tier.Tier) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, t.Name)
	if err := p.err[t.Name]; err != nil {
		return false, err
	}
	return p.ready[t.Name], nil
}

func threeTierSequencer(probe tier.Probe) *Sequencer {
	return New([]*tier.Tier{
		{Name: "ingress", MaxAttempts: 3},
		{Name: "certs", DependsOn: []string{"ingress"}, MaxAttempts: 3},
		{Name: "app", DependsOn: []string{"ingress", "certs"}, MaxAttempts: 3},
	}, probe)
}

func stateOf(t *testing.T, s *Sequencer, name string) tier.ReadinessState {
	t.Helper()
	status, err := s.Status(name)
	require.NoError(t, err)
	return status.State
}

func TestAdvanceGatesOnDependencies(t *testing.T) {
	s := threeTierSequencer(&scriptedProbe{})
	ctx := t.Context()

	// app cannot deploy while its dependencies are Pending
	require.NoError(t, s.Advance(ctx, "app", tier.StateDeploying))
	assert.Equal(t, tier.StatePending, stateOf(t, s, "app"))

	require.NoError(t, s.Advance(ctx, "ingress", tier.StateDeploying))
	require.NoError(t, s.Advance(ctx, "ingress", tier.StateReady))

	// certs depends only on ingress, now unblocked
	require.NoError(t, s.Advance(ctx, "certs", tier.StateDeploying))
	assert.Equal(t, tier.StateDeploying, stateOf(t, s, "certs"))

	// app still blocked: certs is not Ready
	require.NoError(t, s.Advance(ctx, "app", tier.StateDeploying))
	assert.Equal(t, tier.StatePending, stateOf(t, s, "app"))

	require.NoError(t, s.Advance(ctx, "certs", tier.StateReady))
	require.NoError(t, s.Advance(ctx, "app", tier.StateDeploying))
	assert.Equal(t, tier.StateDeploying, stateOf(t, s, "app"))
}

func TestFailedDependencyBlocksDependents(t *testing.T) {
	probe := &scriptedProbe{
		ready: map[string]bool{"ingress": true},
		err:   map[string]error{"certs": apperrors.New(apperrors.ErrCodeChallengeFailed, "challenge rejected")},
	}
	s := threeTierSequencer(probe)
	ctx := t.Context()

	// drive until certs exhausts its retry budget
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Step(ctx))
	}

	assert.Equal(t, tier.StateReady, stateOf(t, s, "ingress"))
	assert.Equal(t, tier.StateFailed, stateOf(t, s, "certs"))
	// app remains Pending indefinitely while certs is Failed
	assert.Equal(t, tier.StatePending, stateOf(t, s, "app"))

	status, err := s.Status("certs")
	require.NoError(t, err)
	assert.Contains(t, status.Cause, "challenge rejected")
	assert.Equal(t, 3, status.Attempts)
}

func TestStepConvergesThreeTiers(t *testing.T) {
	probe := &scriptedProbe{ready: map[string]bool{"ingress": true, "certs": true, "app": true}}
	s := threeTierSequencer(probe)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Step(t.Context()))
	}

	assert.True(t, s.AllReady())
}

func TestAdvanceIdempotent(t *testing.T) {
	probe := &scriptedProbe{ready: map[string]bool{"ingress": true}}
	s := New([]*tier.Tier{{Name: "ingress", MaxAttempts: 3}}, probe)
	ctx := t.Context()

	require.NoError(t, s.Step(ctx))
	require.Equal(t, tier.StateReady, stateOf(t, s, "ingress"))
	before, err := s.Status("ingress")
	require.NoError(t, err)

	// re-reporting Ready is a no-op: no state change, no probe call
	probeCalls := len(probe.probed)
	require.NoError(t, s.Advance(ctx, "ingress", tier.StateReady))
	after, err := s.Status("ingress")
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Equal(t, probeCalls, len(probe.probed))
}

func TestAdvanceIllegalTransition(t *testing.T) {
	s := threeTierSequencer(&scriptedProbe{})

	err := s.Advance(t.Context(), "ingress", tier.StateReady)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))
}

func TestAdvanceUnknownTier(t *testing.T) {
	s := threeTierSequencer(&scriptedProbe{})

	err := s.Advance(t.Context(), "ghost", tier.StateDeploying)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestForceRetryResetsAttempts(t *testing.T) {
	probe := &scriptedProbe{
		err: map[string]error{"ingress": apperrors.New(apperrors.ErrCodeReadinessTimeout, "probe timeout")},
	}
	s := New([]*tier.Tier{{Name: "ingress", MaxAttempts: 2}}, probe)
	ctx := t.Context()

	for i := 0; i < 6; i++ {
		require.NoError(t, s.Step(ctx))
	}
	status, err := s.Status("ingress")
	require.NoError(t, err)
	require.Equal(t, tier.StateFailed, status.State)
	require.Equal(t, 2, status.Attempts)

	// operator override: probe now succeeds
	probe.mu.Lock()
	probe.err = nil
	probe.ready = map[string]bool{"ingress": true}
	probe.mu.Unlock()

	require.NoError(t, s.ForceRetry("ingress"))
	status, err = s.Status("ingress")
	require.NoError(t, err)
	assert.Equal(t, tier.StateDeploying, status.State)
	assert.Equal(t, 0, status.Attempts)

	require.NoError(t, s.Step(ctx))
	assert.Equal(t, tier.StateReady, stateOf(t, s, "ingress"))
}

func TestForceRetryRequiresFailed(t *testing.T) {
	s := threeTierSequencer(&scriptedProbe{})

	err := s.ForceRetry("ingress")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))
}

func TestCancelRemovesState(t *testing.T) {
	s := threeTierSequencer(&scriptedProbe{})

	require.NoError(t, s.Cancel("app"))
	_, err := s.Status("app")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))

	assert.Len(t, s.Statuses(), 2)
}

func TestMarkDrift(t *testing.T) {
	probe := &scriptedProbe{ready: map[string]bool{"ingress": true}}
	s := New([]*tier.Tier{{Name: "ingress", MaxAttempts: 3}}, probe)
	ctx := t.Context()

	require.NoError(t, s.Step(ctx))
	require.Equal(t, tier.StateReady, stateOf(t, s, "ingress"))

	require.NoError(t, s.MarkDrift("ingress"))
	assert.Equal(t, tier.StateDeploying, stateOf(t, s, "ingress"))

	// MarkDrift on a non-Ready tier is a no-op
	require.NoError(t, s.MarkDrift("ingress"))
	assert.Equal(t, tier.StateDeploying, stateOf(t, s, "ingress"))
}

func TestSetTiersAddsAndRemoves(t *testing.T) {
	s := threeTierSequencer(&scriptedProbe{})

	s.SetTiers([]*tier.Tier{
		{Name: "ingress", MaxAttempts: 3},
		{Name: "metrics", DependsOn: []string{"ingress"}, MaxAttempts: 3},
	})

	_, err := s.Status("app")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound), "removed tier state torn down")

	status, err := s.Status("metrics")
	require.NoError(t, err)
	assert.Equal(t, tier.StatePending, status.State)
}

func TestDeployingNeverSkipsDependencies(t *testing.T) {
	// Drive a randomized-ish sequence of steps and verify the invariant:
	// no tier is Deploying while one of its dependencies is not Ready.
	probe := &scriptedProbe{ready: map[string]bool{"ingress": true}}
	s := threeTierSequencer(probe)
	ctx := t.Context()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Step(ctx))

		for _, status := range s.Statuses() {
			if status.State != tier.StateDeploying {
				continue
			}
			switch status.Name {
			case "certs":
				assert.Equal(t, tier.StateReady, stateOf(t, s, "ingress"))
			case "app":
				assert.Equal(t, tier.StateReady, stateOf(t, s, "ingress"))
				assert.Equal(t, tier.StateReady, stateOf(t, s, "certs"))
			}
		}

		// flip readiness progressively
		probe.mu.Lock()
		if i == 1 {
			probe.ready["certs"] = true
		}
		if i == 3 {
			probe.ready["app"] = true
		}
		probe.mu.Unlock()
	}

	assert.True(t, s.AllReady())
}
