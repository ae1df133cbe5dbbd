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
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/NVIDIA/stack-orchestrator/pkg/errors"
	"github.com/NVIDIA/stack-orchestrator/pkg/tier"
)

// Sequencer gates tier rollouts on dependency readiness. All state mutation
// goes through the sequencer; callers read status snapshots.
type Sequencer struct {
	mu       sync.RWMutex
	tiers    map[string]*tier.Tier
	order    []string // declaration order
	statuses map[string]*tier.Status
	probe    tier.Probe
}

// New creates a sequencer for the given tiers. Every tier starts Pending.
// The probe is the injected readiness predicate shared by all tiers.
func New(tiers []*tier.Tier, probe tier.Probe) *Sequencer {
	s := &Sequencer{
		tiers:    make(map[string]*tier.Tier, len(tiers)),
		statuses: make(map[string]*tier.Status, len(tiers)),
		probe:    probe,
	}
	for _, t := range tiers {
		s.tiers[t.Name] = t
		s.order = append(s.order, t.Name)
		s.statuses[t.Name] = &tier.Status{
			Name:      t.Name,
			State:     tier.StatePending,
			UpdatedAt: time.Now().UTC(),
		}
	}
	return s
}

// Plan returns the wave plan for the sequencer's tiers.
func (s *Sequencer) Plan() ([][]*tier.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tiers := make([]*tier.Tier, 0, len(s.order))
	for _, name := range s.order {
		tiers = append(tiers, s.tiers[name])
	}
	return Plan(tiers)
}

// Advance applies an observed readiness transition to a tier.
//
// Idempotent: reporting the state a tier is already in is a no-op. A move to
// Deploying is refused (tier stays put) while any dependency is not Ready.
// Illegal transitions (e.g., Pending -> Ready) are rejected so state can
// never skip the Deploying phase.
func (s *Sequencer) Advance(_ context.Context, name string, observed tier.ReadinessState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked(name, observed, "")
}

func (s *Sequencer) advanceLocked(name string, observed tier.ReadinessState, cause string) error {
	t, ok := s.tiers[name]
	if !ok {
		return apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("unknown tier %s", name))
	}
	status := s.statuses[name]

	// re-invoking with the current state is a no-op
	if status.State == observed {
		return nil
	}

	if !status.State.CanTransition(observed) {
		return apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("illegal transition %s -> %s for tier %s", status.State, observed, name))
	}

	if observed == tier.StateDeploying {
		if blocked := s.blockedOnLocked(t); blocked != "" {
			slog.Debug("tier blocked on dependency",
				"tier", name,
				"dependency", blocked,
			)
			return nil
		}
		if status.State == tier.StateFailed {
			if status.Attempts >= t.MaxAttempts {
				// exhausted: surfaced via status, only ForceRetry unblocks
				return nil
			}
			status.Attempts++
		}
	}

	status.State = observed
	status.UpdatedAt = time.Now().UTC()
	if observed == tier.StateFailed {
		status.Cause = cause
	} else {
		status.Cause = ""
	}

	slog.Info("tier state changed",
		"tier", name,
		"state", observed,
		"attempts", status.Attempts,
	)
	return nil
}

// blockedOnLocked returns the name of a dependency that is not Ready, or "".
func (s *Sequencer) blockedOnLocked(t *tier.Tier) string {
	for _, dep := range t.DependsOn {
		depStatus, ok := s.statuses[dep]
		if !ok || depStatus.State != tier.StateReady {
			return dep
		}
	}
	return ""
}

// Step drives one rollout pass: Pending tiers whose dependencies are Ready
// move to Deploying, and Deploying tiers are probed for readiness. Tiers in
// the same wave are probed concurrently. Safe to invoke repeatedly; tiers in
// terminal states are untouched.
func (s *Sequencer) Step(ctx context.Context) error {
	waves, err := s.Plan()
	if err != nil {
		return err
	}

	for _, wave := range waves {
		g, gctx := errgroup.WithContext(ctx)
		for _, t := range wave {
			s.mu.Lock()
			status := s.statuses[t.Name]

			switch status.State {
			case tier.StatePending, tier.StateFailed:
				// Failed auto-retries until attempts are exhausted
				_ = s.advanceLocked(t.Name, tier.StateDeploying, "")
			}

			deploying := status.State == tier.StateDeploying
			s.mu.Unlock()

			if !deploying {
				continue
			}

			g.Go(func() error {
				s.probeTier(gctx, t)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// probeTier checks readiness for one Deploying tier and records the outcome.
func (s *Sequencer) probeTier(ctx context.Context, t *tier.Tier) {
	ready, err := s.probe.Check(ctx, t)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case err != nil:
		_ = s.advanceLocked(t.Name, tier.StateFailed, err.Error())
	case ready:
		_ = s.advanceLocked(t.Name, tier.StateReady, "")
	default:
		// still rolling out; stays Deploying until probe or timeout decides
	}
}

// MarkDrift moves a Ready tier back to Deploying so the next Step re-drives
// convergence. No-op for tiers in any other state.
func (s *Sequencer) MarkDrift(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[name]
	if !ok {
		return apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("unknown tier %s", name))
	}
	if status.State != tier.StateReady {
		return nil
	}
	return s.advanceLocked(name, tier.StateDeploying, "")
}

// ForceRetry resets a Failed tier's attempt budget and re-queues it for
// deployment. The operator override for exhausted tiers.
func (s *Sequencer) ForceRetry(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[name]
	if !ok {
		return apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("unknown tier %s", name))
	}
	if status.State != tier.StateFailed {
		return apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("tier %s is %s, only Failed tiers can be retried", name, status.State))
	}

	status.Attempts = 0
	if err := s.advanceLocked(name, tier.StateDeploying, ""); err != nil {
		return err
	}
	// the Failed -> Deploying path above counts one attempt; a forced retry
	// starts with a clean budget
	status.Attempts = 0
	return nil
}

// Cancel removes a tier's rollout state. Used when a tier disappears from
// the effective config; associated state is torn down rather than leaked.
func (s *Sequencer) Cancel(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tiers[name]; !ok {
		return apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("unknown tier %s", name))
	}

	delete(s.tiers, name)
	delete(s.statuses, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	slog.Info("tier cancelled", "tier", name)
	return nil
}

// SetTiers reconciles the tier set against a new effective config: new tiers
// start Pending, removed tiers are cancelled, existing tiers keep their
// rollout state but pick up new dependency and readiness settings.
func (s *Sequencer) SetTiers(tiers []*tier.Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incoming := make(map[string]bool, len(tiers))
	order := make([]string, 0, len(tiers))
	for _, t := range tiers {
		incoming[t.Name] = true
		order = append(order, t.Name)

		s.tiers[t.Name] = t
		if _, ok := s.statuses[t.Name]; !ok {
			s.statuses[t.Name] = &tier.Status{
				Name:      t.Name,
				State:     tier.StatePending,
				UpdatedAt: time.Now().UTC(),
			}
		}
	}

	for name := range s.tiers {
		if !incoming[name] {
			delete(s.tiers, name)
			delete(s.statuses, name)
			slog.Info("tier removed from config, state torn down", "tier", name)
		}
	}
	s.order = order
}

// Restore seeds rollout state from persisted statuses, typically on daemon
// restart before the first cycle. Statuses for tiers the sequencer does not
// track are ignored. Deploying is restored as-is; the next Step re-probes it.
func (s *Sequencer) Restore(statuses []*tier.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, status := range statuses {
		if _, ok := s.tiers[status.Name]; !ok {
			continue
		}
		cp := *status
		s.statuses[status.Name] = &cp
	}
}

// Status returns a snapshot of one tier's rollout state.
func (s *Sequencer) Status(name string) (tier.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.statuses[name]
	if !ok {
		return tier.Status{}, apperrors.New(apperrors.ErrCodeNotFound,
			fmt.Sprintf("unknown tier %s", name))
	}
	return *status, nil
}

// Statuses returns snapshots for all tiers, sorted by name.
func (s *Sequencer) Statuses() []tier.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]tier.Status, 0, len(s.statuses))
	for _, status := range s.statuses {
		out = append(out, *status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AllReady reports whether every tier is Ready.
func (s *Sequencer) AllReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, status := range s.statuses {
		if status.State != tier.StateReady {
			return false
		}
	}
	return true
}
