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
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/NVIDIA/stack-orchestrator/pkg/errors"
	"github.com/NVIDIA/stack-orchestrator/pkg/tier"
)

// Plan computes the deployment order as waves of equal dependency depth.
// Wave N contains the tiers whose longest dependency chain has length N;
// tiers within a wave are ordered by declaration. On a cycle, Plan returns
// a CYCLIC_DEPENDENCY error naming the tiers involved and no partial plan.
func Plan(tiers []*tier.Tier) ([][]*tier.Tier, error) {
	byName := make(map[string]*tier.Tier, len(tiers))
	declIndex := make(map[string]int, len(tiers))
	for i, t := range tiers {
		byName[t.Name] = t
		declIndex[t.Name] = i
	}

	// indegree over the dependency edges dep -> dependent
	indegree := make(map[string]int, len(tiers))
	dependents := make(map[string][]string, len(tiers))
	for _, t := range tiers {
		indegree[t.Name] = len(t.DependsOn)
		for _, dep := range t.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, apperrors.New(apperrors.ErrCodeConfigInvalid,
					fmt.Sprintf("tier %s depends on unknown tier %s", t.Name, dep))
			}
			dependents[dep] = append(dependents[dep], t.Name)
		}
	}

	var waves [][]*tier.Tier
	placed := 0

	current := zeroIndegree(indegree, nil, declIndex)
	for len(current) > 0 {
		wave := make([]*tier.Tier, 0, len(current))
		for _, name := range current {
			wave = append(wave, byName[name])
			placed++
		}
		waves = append(waves, wave)

		released := make(map[string]bool)
		for _, name := range current {
			delete(indegree, name)
			for _, dependent := range dependents[name] {
				indegree[dependent]--
				if indegree[dependent] == 0 {
					released[dependent] = true
				}
			}
		}
		current = zeroIndegree(indegree, released, declIndex)
	}

	if placed != len(tiers) {
		// every remaining tier is on or behind a cycle
		remaining := make([]string, 0, len(indegree))
		for name := range indegree {
			remaining = append(remaining, name)
		}
		sort.Slice(remaining, func(i, j int) bool {
			return declIndex[remaining[i]] < declIndex[remaining[j]]
		})
		return nil, apperrors.New(apperrors.ErrCodeCyclicDependency,
			fmt.Sprintf("dependency cycle involving tiers: %s", strings.Join(remaining, ", ")))
	}

	return waves, nil
}

// zeroIndegree returns the names with zero remaining dependencies, in
// declaration order. When only is non-nil, the result is restricted to that
// set (the tiers released by the previous wave).
func zeroIndegree(indegree map[string]int, only map[string]bool, declIndex map[string]int) []string {
	var names []string
	for name, n := range indegree {
		if n != 0 {
			continue
		}
		if only != nil && !only[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return declIndex[names[i]] < declIndex[names[j]]
	})
	return names
}
