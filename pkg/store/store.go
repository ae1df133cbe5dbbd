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

// Package store persists orchestrator state across restarts: the last
// resolved effective config, per-tier rollout status, per-domain certificate
// requests, and the append-only sync report history.
//
// Two drivers ship: an in-memory store for tests and single-run invocations,
// and a relational store (sqlite) for the daemon. Both return structured
// NOT_FOUND errors for absent keys.
package store

import (
	"context"

	"github.com/NVIDIA/stack-orchestrator/pkg/certificate"
	"github.com/NVIDIA/stack-orchestrator/pkg/config"
	"github.com/NVIDIA/stack-orchestrator/pkg/report"
	"github.com/NVIDIA/stack-orchestrator/pkg/tier"
)

// Store is the persistence boundary for the reconciliation loop. The loop is
// the only writer; implementations must be safe for concurrent reads.
type Store interface {
	// SaveConfig replaces the persisted effective config.
	SaveConfig(ctx context.Context, cfg *config.EffectiveConfig) error
	// LoadConfig returns the persisted config, NOT_FOUND if none was saved.
	LoadConfig(ctx context.Context) (*config.EffectiveConfig, error)

	// SaveTierStatus upserts one tier's rollout status, keyed by tier name.
	SaveTierStatus(ctx context.Context, status *tier.Status) error
	// ListTierStatuses returns all persisted tier statuses sorted by name.
	ListTierStatuses(ctx context.Context) ([]*tier.Status, error)
	// DeleteTierStatus removes a tier's status. NOT_FOUND if absent.
	DeleteTierStatus(ctx context.Context, name string) error

	// SaveCertificate upserts one certificate request, keyed by domain.
	SaveCertificate(ctx context.Context, req *certificate.Request) error
	// ListCertificates returns all persisted requests sorted by domain.
	ListCertificates(ctx context.Context) ([]*certificate.Request, error)
	// DeleteCertificate removes a domain's request. NOT_FOUND if absent.
	DeleteCertificate(ctx context.Context, domain string) error

	// AppendReport records a completed sync report. Reports are immutable
	// once appended.
	AppendReport(ctx context.Context, r *report.SyncReport) error
	// ListReports returns the most recent reports, newest first, up to
	// limit (0 means all).
	ListReports(ctx context.Context, limit int) ([]*report.SyncReport, error)

	// Close releases driver resources.
	Close() error
}
