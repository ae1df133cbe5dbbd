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

// Package server exposes the orchestrator over HTTP.
//
// The server wraps a running reconciliation loop and serves its state:
// the rollout plan, tier and certificate status, and persisted sync
// reports. Mutating endpoints queue retries, cancellations, and
// out-of-band reconcile cycles on the loop; the loop itself remains the
// single writer.
//
// # Endpoints
//
//   - GET  /v1/plan        rollout waves in dependency order
//   - GET  /v1/status      tier and certificate status (?tier=, ?domain=)
//   - GET  /v1/reports     persisted sync reports, newest first (?limit=)
//   - POST /v1/reconcile   queue an immediate reconcile cycle
//   - POST /v1/retry       re-arm a failed tier or certificate
//   - POST /v1/cancel      cancel a tier rollout or certificate request
//   - GET  /healthz        liveness
//   - GET  /readyz         readiness
//   - GET  /metrics        Prometheus metrics
//
// API requests pass through middleware for metrics, request IDs, panic
// recovery, rate limiting, and logging. System endpoints are exempt from
// rate limiting so probes cannot be starved by API traffic.
package server
