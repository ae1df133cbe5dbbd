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

// Package defaults provides centralized configuration constants for the orchestrator.
//
// This package defines timeout values, retry parameters, and other configuration
// defaults used across the codebase. Centralizing these values ensures consistency
// and makes tuning easier.
//
// # Categories
//
// Constants are organized by component:
//
//   - Reconciler intervals: Convergence loop cadence and cycle bounds
//   - Probe timeouts: Readiness gating for tier rollouts
//   - Certificate timing: Retry backoff, renewal window, rate limits
//   - Server timeouts: HTTP server configuration
//   - Store/observer timeouts: Durable state and live-state access
//
// # Usage
//
// Import and use constants directly:
//
//	import "github.com/NVIDIA/stack-orchestrator/pkg/defaults"
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.ProbeTimeout)
//	defer cancel()
//
// # Guidelines
//
// When choosing timeout values:
//
//   - Probes: 10s default, always shorter than the reconcile cycle bound
//   - Certificate retries: 5s initial, 3m cap, bounded attempts
//   - Server shutdown: 30s for graceful shutdown
package defaults
