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

// Package observer snapshots live deployment state and compares it against
// the effective configuration.
//
// An Observer is an injected capability that returns a point-in-time State.
// Compare walks the desired tiers and reports per-field drift: modified
// fields, workloads missing from the live state, and live workloads orphaned
// by the configuration. Fields listed in a tier's ignoreFields (commonly
// "replicas" to tolerate manual scaling) are excluded from comparison.
package observer
