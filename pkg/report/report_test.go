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

package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReport(t *testing.T) {
	r := New("abc123")
	require.NotEmpty(t, r.ID)
	assert.Equal(t, "abc123", r.ConfigChecksum)
	assert.False(t, r.StartedAt.IsZero())
	assert.True(t, r.CompletedAt.IsZero())

	other := New("abc123")
	assert.NotEqual(t, r.ID, other.ID)
}

func TestReportRecordAndComplete(t *testing.T) {
	r := New("abc123")
	r.Record(Action{Kind: ActionHeal, Tier: "app", Workload: "web"})
	r.Record(Action{Kind: ActionPrune, Tier: "app", Detail: "deployment/old"})
	r.Complete()

	require.Len(t, r.Actions, 2)
	assert.Equal(t, ActionHeal, r.Actions[0].Kind)
	assert.Equal(t, ActionPrune, r.Actions[1].Kind)
	assert.False(t, r.CompletedAt.IsZero())
	assert.True(t, !r.CompletedAt.Before(r.StartedAt))
}
