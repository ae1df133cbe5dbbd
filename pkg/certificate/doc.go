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

// Package certificate drives TLS certificate acquisition and renewal against
// an external ACME-like authority.
//
// Requests are keyed by domain and move NotRequested -> Pending -> Validating
// -> Issued | Failed. Issued certificates enter Renewing inside the renewal
// window before expiry. Failed requests retry with capped exponential backoff
// up to a bounded attempt count; exhausted requests stay Failed and are
// surfaced, never silently retried. A per-domain sliding-window rate limit
// refuses doomed submissions with RATE_LIMIT_EXCEEDED before the authority is
// contacted. Switching issuer class for a domain invalidates the in-flight
// request and starts a fresh cycle.
//
// The authority client and the ingress reachability prerequisite are injected
// capabilities; the manager never validates challenges itself.
package certificate
