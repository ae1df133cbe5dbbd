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

// Package reconciler drives the continuous convergence loop: resolve the
// effective config, observe live state, diff, advance tier rollouts and
// certificate requests, and record an append-only SyncReport per cycle.
//
// The loop is the single writer of tier rollout state and certificate
// requests; every other surface (CLI, HTTP API) reads snapshots or submits
// operator overrides through the loop. Drift in managed tiers is reverted on
// the next cycle; orphaned live workloads are deleted only in tiers with
// pruning enabled. Tiers and domains removed from the config have their
// state torn down, in memory and in the store.
//
// Cycles run on a fixed interval or an external trigger. State survives
// restarts through the injected store; Recover reloads it before the first
// cycle.
package reconciler
