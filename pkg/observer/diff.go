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

package observer

import (
	"reflect"
	"sort"

	"github.com/NVIDIA/stack-orchestrator/pkg/config"
)

// DriftKind classifies a single drift finding.
type DriftKind string

const (
	// DriftModified means a live field differs from the desired value.
	DriftModified DriftKind = "modified"
	// DriftMissing means a desired workload has no live counterpart.
	DriftMissing DriftKind = "missing"
	// DriftOrphaned means a live workload is absent from the desired config.
	DriftOrphaned DriftKind = "orphaned"
)

// Comparable field names, matching the ignoreFields vocabulary in TierSpec.
const (
	FieldImage    = "image"
	FieldReplicas = "replicas"
	FieldEnv      = "env"
)

// Drift is one finding from comparing desired against observed state.
type Drift struct {
	Kind     DriftKind `yaml:"kind" json:"kind"`
	Tier     string    `yaml:"tier" json:"tier"`
	Workload string    `yaml:"workload" json:"workload"`

	// Field is set only for DriftModified.
	Field    string `yaml:"field,omitempty" json:"field,omitempty"`
	Desired  any    `yaml:"desired,omitempty" json:"desired,omitempty"`
	Observed any    `yaml:"observed,omitempty" json:"observed,omitempty"`
}

// Compare diffs the effective configuration against an observed snapshot.
// Desired tiers and their workloads are walked in declaration order, so the
// result is deterministic for identical inputs. Fields listed in a tier's
// IgnoreFields are skipped. Live workloads that no desired tier references
// are reported as orphaned, sorted by name.
func Compare(cfg *config.EffectiveConfig, state *State) []Drift {
	var drifts []Drift

	desired := make(map[string]bool)
	for _, tierSpec := range cfg.Tiers {
		ignored := make(map[string]bool, len(tierSpec.IgnoreFields))
		for _, f := range tierSpec.IgnoreFields {
			ignored[f] = true
		}

		for _, name := range tierSpec.Workloads {
			desired[name] = true

			spec, ok := cfg.Workloads[name]
			if !ok {
				continue
			}

			live, ok := state.Workloads[name]
			if !ok {
				drifts = append(drifts, Drift{
					Kind:     DriftMissing,
					Tier:     tierSpec.Name,
					Workload: name,
				})
				continue
			}

			drifts = append(drifts, compareWorkload(tierSpec.Name, name, spec, live, ignored)...)
		}
	}

	orphans := make([]string, 0)
	for name := range state.Workloads {
		if !desired[name] {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		live := state.Workloads[name]
		drifts = append(drifts, Drift{
			Kind:     DriftOrphaned,
			Tier:     live.Tier,
			Workload: name,
		})
	}

	return drifts
}

func compareWorkload(tierName, name string, spec config.WorkloadSpec, live Workload, ignored map[string]bool) []Drift {
	var drifts []Drift

	if !ignored[FieldImage] && spec.Image != live.Image {
		drifts = append(drifts, Drift{
			Kind: DriftModified, Tier: tierName, Workload: name,
			Field: FieldImage, Desired: spec.Image, Observed: live.Image,
		})
	}

	// nil desired replicas means the count is not managed
	if !ignored[FieldReplicas] && spec.Replicas != nil && *spec.Replicas != live.Replicas {
		drifts = append(drifts, Drift{
			Kind: DriftModified, Tier: tierName, Workload: name,
			Field: FieldReplicas, Desired: *spec.Replicas, Observed: live.Replicas,
		})
	}

	if !ignored[FieldEnv] {
		want := desiredEnv(spec.Env)
		got := live.Env
		if len(got) == 0 {
			got = nil
		}
		if len(want) == 0 {
			want = nil
		}
		if !reflect.DeepEqual(want, got) {
			drifts = append(drifts, Drift{
				Kind: DriftModified, Tier: tierName, Workload: name,
				Field: FieldEnv, Desired: want, Observed: got,
			})
		}
	}

	return drifts
}

// desiredEnv flattens env bindings into the comparison form: plain values
// verbatim, secret bindings by reference name.
func desiredEnv(env []config.EnvVar) map[string]string {
	if len(env) == 0 {
		return nil
	}
	out := make(map[string]string, len(env))
	for _, v := range env {
		if v.SecretRef != "" {
			out[v.Name] = "secretRef:" + v.SecretRef
			continue
		}
		out[v.Name] = v.Value
	}
	return out
}
