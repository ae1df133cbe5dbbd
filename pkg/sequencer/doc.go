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

// Package sequencer orders and gates the rollout of interdependent tiers.
//
// Plan computes a topological order over the tier dependency graph, grouped
// into waves of equal dependency depth. Tiers within a wave may deploy
// concurrently; ties are broken by declaration order so the plan is
// deterministic. A cycle fails the whole plan with CYCLIC_DEPENDENCY and no
// partial order is produced.
//
// Advance applies observed readiness transitions. A tier only enters
// Deploying once every dependency reports Ready; a Failed dependency blocks
// its dependents in Pending until the failure is resolved or an operator
// forces a retry.
package sequencer
