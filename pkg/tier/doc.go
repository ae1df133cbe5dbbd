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

// Package tier models workload tiers and their readiness state machine.
//
// A tier is a named group of workloads with declared dependencies on other
// tiers. Readiness moves Pending -> Deploying -> Ready | Failed, with
// Failed -> Deploying on retry and Ready -> Deploying when drift is detected.
// Readiness determination is pluggable: the sequencer calls an injected probe
// rather than hardcoding probe semantics.
package tier
