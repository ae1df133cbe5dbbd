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
	"time"

	"github.com/NVIDIA/stack-orchestrator/pkg/config"
	"github.com/NVIDIA/stack-orchestrator/pkg/defaults"
)

// ReadinessState is the per-tier rollout state.
type ReadinessState string

const (
	// StatePending means the tier is waiting on its dependencies.
	StatePending ReadinessState = "Pending"
	// StateDeploying means the tier's workloads are rolling out.
	StateDeploying ReadinessState = "Deploying"
	// StateReady means the tier passed its readiness predicate.
	// Not terminal: drift can move a Ready tier back to Deploying.
	StateReady ReadinessState = "Ready"
	// StateFailed means the rollout or readiness probe failed.
	StateFailed ReadinessState = "Failed"
)

// CanTransition reports whether moving from s to target is a legal transition.
// Legal moves: Pending->Deploying, Deploying->{Ready,Failed},
// Failed->Deploying (retry), Ready->Deploying (drift).
func (s ReadinessState) CanTransition(target ReadinessState) bool {
	switch s {
	case StatePending:
		return target == StateDeploying
	case StateDeploying:
		return target == StateReady || target == StateFailed
	case StateFailed:
		return target == StateDeploying
	case StateReady:
		return target == StateDeploying
	default:
		return false
	}
}

// Terminal reports whether the state ends a rollout attempt.
func (s ReadinessState) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// Tier is the runtime view of one workload tier.
type Tier struct {
	Name      string
	Workloads []string
	DependsOn []string

	// Managed tiers have manually introduced drift reverted.
	Managed bool

	// Prune enables deletion of live resources absent from config.
	Prune bool

	// IgnoreFields are excluded from drift comparison.
	IgnoreFields []string

	// MaxAttempts bounds Failed -> Deploying retries.
	MaxAttempts int

	Readiness config.ReadinessSpec
}

// FromSpec converts a config tier spec into its runtime form, applying
// orchestrator defaults for unset bounds.
func FromSpec(spec config.TierSpec) *Tier {
	t := &Tier{
		Name:         spec.Name,
		Workloads:    append([]string(nil), spec.Workloads...),
		DependsOn:    append([]string(nil), spec.DependsOn...),
		Managed:      spec.Managed,
		Prune:        spec.Prune,
		IgnoreFields: append([]string(nil), spec.IgnoreFields...),
		MaxAttempts:  spec.MaxAttempts,
		Readiness:    spec.Readiness,
	}
	if t.MaxAttempts == 0 {
		t.MaxAttempts = defaults.TierMaxAttempts
	}
	if t.Readiness.Type == "" {
		t.Readiness.Type = config.ReadinessReplicas
	}
	return t
}

// FromSpecs converts all tier specs, preserving declaration order.
func FromSpecs(specs []config.TierSpec) []*Tier {
	tiers := make([]*Tier, 0, len(specs))
	for _, spec := range specs {
		tiers = append(tiers, FromSpec(spec))
	}
	return tiers
}

// IgnoresField reports whether the named field is excluded from drift
// comparison for this tier.
func (t *Tier) IgnoresField(field string) bool {
	for _, f := range t.IgnoreFields {
		if f == field {
			return true
		}
	}
	return false
}

// Status is the observable rollout state of a tier. The reconciliation loop
// is the only writer; everyone else reads snapshots.
type Status struct {
	Name     string         `yaml:"name" json:"name"`
	State    ReadinessState `yaml:"state" json:"state"`
	Attempts int            `yaml:"attempts,omitempty" json:"attempts,omitempty"`

	// Cause is the human-readable failure reason, set only in Failed.
	Cause string `yaml:"cause,omitempty" json:"cause,omitempty"`

	UpdatedAt time.Time `yaml:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Exhausted reports whether the tier has used its retry budget.
func (s *Status) Exhausted(maxAttempts int) bool {
	return s.State == StateFailed && s.Attempts >= maxAttempts
}
