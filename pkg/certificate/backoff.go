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
	"time"

	"github.com/NVIDIA/stack-orchestrator/pkg/defaults"
)

// Backoff computes retry delays that double per attempt up to a cap.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff returns the standard retry policy for authority failures.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial: defaults.CertRetryInitialDelay,
		Max:     defaults.CertRetryMaxDelay,
	}
}

// Delay returns the wait before retry number attempt (1-based). Delays are
// non-decreasing and never exceed Max.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.Max {
			return b.Max
		}
	}
	if d > b.Max {
		return b.Max
	}
	return d
}
