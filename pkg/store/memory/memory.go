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

// Package memory is the in-memory store driver. State lives for the process
// lifetime; used by tests and one-shot CLI invocations.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/NVIDIA/stack-orchestrator/pkg/certificate"
	"github.com/NVIDIA/stack-orchestrator/pkg/config"
	"github.com/NVIDIA/stack-orchestrator/pkg/errors"
	"github.com/NVIDIA/stack-orchestrator/pkg/report"
	"github.com/NVIDIA/stack-orchestrator/pkg/store"
	"github.com/NVIDIA/stack-orchestrator/pkg/tier"
)

// Store keeps all orchestrator state in process memory.
type Store struct {
	mu      sync.RWMutex
	cfg     *config.EffectiveConfig
	tiers   map[string]tier.Status
	certs   map[string]certificate.Request
	reports []*report.SyncReport
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		tiers: make(map[string]tier.Status),
		certs: make(map[string]certificate.Request),
	}
}

// SaveConfig implements store.Store.
func (s *Store) SaveConfig(_ context.Context, cfg *config.EffectiveConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

// LoadConfig implements store.Store.
func (s *Store) LoadConfig(_ context.Context) (*config.EffectiveConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no effective config persisted")
	}
	return s.cfg, nil
}

// SaveTierStatus implements store.Store.
func (s *Store) SaveTierStatus(_ context.Context, status *tier.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[status.Name] = *status
	return nil
}

// ListTierStatuses implements store.Store.
func (s *Store) ListTierStatuses(_ context.Context) ([]*tier.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*tier.Status, 0, len(s.tiers))
	for _, status := range s.tiers {
		cp := status
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteTierStatus implements store.Store.
func (s *Store) DeleteTierStatus(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tiers[name]; !ok {
		return errors.New(errors.ErrCodeNotFound, fmt.Sprintf("no status for tier %q", name))
	}
	delete(s.tiers, name)
	return nil
}

// SaveCertificate implements store.Store.
func (s *Store) SaveCertificate(_ context.Context, req *certificate.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs[req.Domain] = *req
	return nil
}

// ListCertificates implements store.Store.
func (s *Store) ListCertificates(_ context.Context) ([]*certificate.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*certificate.Request, 0, len(s.certs))
	for _, req := range s.certs {
		cp := req
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

// DeleteCertificate implements store.Store.
func (s *Store) DeleteCertificate(_ context.Context, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certs[domain]; !ok {
		return errors.New(errors.ErrCodeNotFound, fmt.Sprintf("no certificate request for domain %q", domain))
	}
	delete(s.certs, domain)
	return nil
}

// AppendReport implements store.Store.
func (s *Store) AppendReport(_ context.Context, r *report.SyncReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

// ListReports implements store.Store.
func (s *Store) ListReports(_ context.Context, limit int) ([]*report.SyncReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*report.SyncReport, len(s.reports))
	copy(out, s.reports)
	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

var _ store.Store = (*Store)(nil)
