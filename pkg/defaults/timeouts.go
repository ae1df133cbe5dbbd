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

package defaults

import "time"

// Reconciler intervals for the convergence loop.
const (
	// ReconcileInterval is the default period between reconciliation cycles.
	ReconcileInterval = 30 * time.Second

	// ReconcileCycleTimeout bounds a single reconciliation cycle.
	// Must exceed ProbeTimeout so a slow probe fails before the cycle does.
	ReconcileCycleTimeout = 5 * time.Minute
)

// Readiness probe timeouts for tier gating.
const (
	// ProbeTimeout is the default timeout for a single readiness probe.
	// Probes that exceed it are treated as failed, never left pending.
	ProbeTimeout = 10 * time.Second

	// ProbeInterval is the default delay between consecutive probe attempts.
	ProbeInterval = 5 * time.Second

	// TierMaxAttempts is the default bound on Failed -> Deploying retries per tier.
	TierMaxAttempts = 5
)

// Certificate lifecycle timing.
const (
	// CertRetryInitialDelay is the first retry delay after a failed
	// certificate request.
	CertRetryInitialDelay = 5 * time.Second

	// CertRetryMaxDelay caps the exponential backoff between retries.
	CertRetryMaxDelay = 3 * time.Minute

	// CertMaxAttempts bounds retries before a request is left Failed.
	CertMaxAttempts = 8

	// CertRenewalWindow is how long before expiry an Issued certificate
	// transitions to Renewing.
	CertRenewalWindow = 30 * 24 * time.Hour

	// CertRateLimitWindow is the sliding window for per-domain request counting.
	CertRateLimitWindow = 1 * time.Hour

	// CertRateLimitBurst is the number of authority requests allowed per
	// domain within the rate-limit window.
	CertRateLimitBurst = 5

	// AuthorityRequestTimeout bounds a single call to the external authority.
	AuthorityRequestTimeout = 30 * time.Second
)

// Server timeouts for HTTP server configuration.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// Store timeouts for durable state operations.
const (
	// StoreWriteTimeout bounds a single state persistence call.
	StoreWriteTimeout = 10 * time.Second

	// StoreLoadTimeout bounds the startup state recovery pass.
	StoreLoadTimeout = 30 * time.Second
)

// Observer timeouts for live-state snapshots.
const (
	// ObserverSnapshotTimeout bounds a single live-state listing.
	// K8s-backed observers may issue several API calls per snapshot.
	ObserverSnapshotTimeout = 30 * time.Second
)

// CLI timeouts for command-line operations.
const (
	// CLIPlanTimeout is the default timeout for plan rendering.
	CLIPlanTimeout = 30 * time.Second

	// CLIReconcileOnceTimeout is the default timeout for a single
	// operator-invoked reconcile pass.
	CLIReconcileOnceTimeout = 5 * time.Minute
)
