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

// Package report defines the append-only record of one reconciliation cycle.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/NVIDIA/stack-orchestrator/pkg/certificate"
	"github.com/NVIDIA/stack-orchestrator/pkg/observer"
	"github.com/NVIDIA/stack-orchestrator/pkg/tier"
)

// ActionKind classifies a corrective action taken during a cycle.
type ActionKind string

const (
	// ActionDeploy means a tier rollout was advanced.
	ActionDeploy ActionKind = "deploy"
	// ActionHeal means drift in a managed tier was scheduled for revert.
	ActionHeal ActionKind = "heal"
	// ActionPrune means an orphaned live resource was deleted.
	ActionPrune ActionKind = "prune"
	// ActionSkipPrune means an orphan was reported but left untouched
	// because its tier does not have pruning enabled.
	ActionSkipPrune ActionKind = "skip-prune"
	// ActionCertificate means a certificate request was advanced.
	ActionCertificate ActionKind = "certificate"
	// ActionTeardown means state for a removed tier or domain was dropped.
	ActionTeardown ActionKind = "teardown"
)

// Action is one corrective step recorded in a sync report.
type Action struct {
	Kind     ActionKind `yaml:"kind" json:"kind"`
	Tier     string     `yaml:"tier,omitempty" json:"tier,omitempty"`
	Workload string     `yaml:"workload,omitempty" json:"workload,omitempty"`
	Domain   string     `yaml:"domain,omitempty" json:"domain,omitempty"`
	Detail   string     `yaml:"detail,omitempty" json:"detail,omitempty"`
}

// SyncReport captures what one reconciliation cycle observed and did.
// Reports are append-only: once completed they are never mutated.
type SyncReport struct {
	ID             string    `yaml:"id" json:"id"`
	StartedAt      time.Time `yaml:"startedAt" json:"startedAt"`
	CompletedAt    time.Time `yaml:"completedAt,omitempty" json:"completedAt,omitempty"`
	ConfigChecksum string    `yaml:"configChecksum,omitempty" json:"configChecksum,omitempty"`

	Drifts  []observer.Drift `yaml:"drifts,omitempty" json:"drifts,omitempty"`
	Actions []Action         `yaml:"actions,omitempty" json:"actions,omitempty"`

	Tiers        []*tier.Status         `yaml:"tiers,omitempty" json:"tiers,omitempty"`
	Certificates []*certificate.Request `yaml:"certificates,omitempty" json:"certificates,omitempty"`

	// Error is set when the cycle aborted before completing.
	Error string `yaml:"error,omitempty" json:"error,omitempty"`
}

// New starts a report for a cycle over the config with the given checksum.
func New(configChecksum string) *SyncReport {
	return &SyncReport{
		ID:             uuid.NewString(),
		StartedAt:      time.Now().UTC(),
		ConfigChecksum: configChecksum,
	}
}

// Record appends an action.
func (r *SyncReport) Record(a Action) {
	r.Actions = append(r.Actions, a)
}

// Complete stamps the end of the cycle.
func (r *SyncReport) Complete() {
	r.CompletedAt = time.Now().UTC()
}
