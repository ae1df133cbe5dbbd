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

import (
	"context"
	"time"
)

// ChallengeState is the authority's verdict on an outstanding challenge.
type ChallengeState string

const (
	// ChallengeProcessing means the authority has not decided yet.
	ChallengeProcessing ChallengeState = "processing"
	// ChallengeValid means proof of control succeeded and a certificate
	// was issued.
	ChallengeValid ChallengeState = "valid"
	// ChallengeInvalid means the authority rejected the challenge.
	ChallengeInvalid ChallengeState = "invalid"
)

// ChallengeResult carries the poll outcome. NotAfter is the certificate
// expiry, populated only when State is ChallengeValid.
type ChallengeResult struct {
	State    ChallengeState
	NotAfter time.Time
}

// AuthorityClient is the injected capability for the external certificate
// authority. It is an opaque remote service with its own rate limits and
// latency; implementations must respect context deadlines.
type AuthorityClient interface {
	// SubmitChallenge asks the authority for a proof-of-control challenge
	// for the domain under the given issuer class. Returns an opaque token.
	SubmitChallenge(ctx context.Context, domain, issuerClass string) (string, error)

	// PollChallenge reports the current state of an outstanding challenge.
	PollChallenge(ctx context.Context, token string) (ChallengeResult, error)
}

// ReachabilityCheck is the injected prerequisite probe: the routing layer
// must serve the challenge path for the domain before a challenge can
// succeed. Polled before submission to avoid wasted authority requests.
type ReachabilityCheck func(ctx context.Context, domain string) (bool, error)
