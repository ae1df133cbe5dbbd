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

package certificate

import "time"

// Status is the lifecycle state of a certificate request.
type Status string

const (
	// StatusNotRequested means no request has been recorded for the domain.
	StatusNotRequested Status = "NotRequested"
	// StatusPending means the request is recorded and waiting for submission.
	StatusPending Status = "Pending"
	// StatusValidating means an authority challenge is outstanding.
	StatusValidating Status = "Validating"
	// StatusIssued means a valid certificate is held for the domain.
	StatusIssued Status = "Issued"
	// StatusFailed means the last attempt failed; retried per backoff policy
	// until attempts are exhausted.
	StatusFailed Status = "Failed"
	// StatusRenewing means an issued certificate is inside the renewal window
	// and a fresh request cycle is in flight.
	StatusRenewing Status = "Renewing"
)

// Request tracks one certificate for one (domain, issuer-class) pair.
// Owned exclusively by the Manager; callers receive copies.
type Request struct {
	Domain      string `yaml:"domain" json:"domain"`
	IssuerClass string `yaml:"issuerClass" json:"issuerClass"`
	Status      Status `yaml:"status" json:"status"`

	// ChallengeToken is the opaque token for the outstanding challenge,
	// set only while Validating or Renewing with a challenge in flight.
	ChallengeToken string `yaml:"challengeToken,omitempty" json:"challengeToken,omitempty"`

	IssuedAt  time.Time `yaml:"issuedAt,omitempty" json:"issuedAt,omitempty"`
	ExpiresAt time.Time `yaml:"expiresAt,omitempty" json:"expiresAt,omitempty"`

	RetryCount  int       `yaml:"retryCount,omitempty" json:"retryCount,omitempty"`
	NextRetryAt time.Time `yaml:"nextRetryAt,omitempty" json:"nextRetryAt,omitempty"`

	// Cause is the human-readable failure reason, set only in Failed.
	Cause string `yaml:"cause,omitempty" json:"cause,omitempty"`

	UpdatedAt time.Time `yaml:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Terminal reports whether the request needs no further authority calls:
// Failed with exhausted retries, or Issued outside its renewal window.
func (r *Request) Terminal(maxAttempts int, renewalWindow time.Duration, now time.Time) bool {
	switch r.Status {
	case StatusFailed:
		return r.RetryCount >= maxAttempts
	case StatusIssued:
		return now.Before(r.ExpiresAt.Add(-renewalWindow))
	default:
		return false
	}
}
