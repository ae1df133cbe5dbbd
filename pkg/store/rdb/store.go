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

package rdb

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NVIDIA/stack-orchestrator/pkg/certificate"
	"github.com/NVIDIA/stack-orchestrator/pkg/config"
	"github.com/NVIDIA/stack-orchestrator/pkg/errors"
	"github.com/NVIDIA/stack-orchestrator/pkg/report"
	"github.com/NVIDIA/stack-orchestrator/pkg/store"
	"github.com/NVIDIA/stack-orchestrator/pkg/tier"
)

// the effective config table holds a single row
const configKey = "current"

// Store is the relational store driver.
type Store struct {
	db *gorm.DB
}

// New creates a Store over an opened and migrated DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open is the convenience constructor: open the db-url, migrate, wrap.
func Open(dbURL string) (*Store, error) {
	db, err := OpenFromURL(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", dbURL, err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate store schema: %w", err)
	}
	return New(db), nil
}

// SaveConfig implements store.Store.
func (s *Store) SaveConfig(ctx context.Context, cfg *config.EffectiveConfig) error {
	payload, err := cfg.Encode()
	if err != nil {
		return err
	}
	checksum, err := cfg.Checksum()
	if err != nil {
		return err
	}
	rec := &ConfigRecord{
		ID:        configKey,
		Checksum:  checksum,
		Payload:   string(payload),
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec).Error
}

// LoadConfig implements store.Store.
func (s *Store) LoadConfig(ctx context.Context) (*config.EffectiveConfig, error) {
	var rec ConfigRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", configKey).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrCodeNotFound, "no effective config persisted")
		}
		return nil, err
	}
	var cfg config.EffectiveConfig
	if err := yaml.Unmarshal([]byte(rec.Payload), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode persisted config: %w", err)
	}
	return &cfg, nil
}

// SaveTierStatus implements store.Store.
func (s *Store) SaveTierStatus(ctx context.Context, status *tier.Status) error {
	rec := &TierStatusRecord{
		Name:      status.Name,
		State:     string(status.State),
		Attempts:  status.Attempts,
		Cause:     status.Cause,
		UpdatedAt: status.UpdatedAt,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec).Error
}

// ListTierStatuses implements store.Store.
func (s *Store) ListTierStatuses(ctx context.Context) ([]*tier.Status, error) {
	var recs []TierStatusRecord
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*tier.Status, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		out = append(out, &tier.Status{
			Name:      rec.Name,
			State:     tier.ReadinessState(rec.State),
			Attempts:  rec.Attempts,
			Cause:     rec.Cause,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return out, nil
}

// DeleteTierStatus implements store.Store.
func (s *Store) DeleteTierStatus(ctx context.Context, name string) error {
	res := s.db.WithContext(ctx).Delete(&TierStatusRecord{}, "name = ?", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, fmt.Sprintf("no status for tier %q", name))
	}
	return nil
}

// SaveCertificate implements store.Store.
func (s *Store) SaveCertificate(ctx context.Context, req *certificate.Request) error {
	rec := &CertificateRecord{
		Domain:      req.Domain,
		IssuerClass: req.IssuerClass,
		Status:      string(req.Status),
		Token:       req.ChallengeToken,
		IssuedAt:    req.IssuedAt,
		ExpiresAt:   req.ExpiresAt,
		RetryCount:  req.RetryCount,
		NextRetryAt: req.NextRetryAt,
		Cause:       req.Cause,
		UpdatedAt:   req.UpdatedAt,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec).Error
}

// ListCertificates implements store.Store.
func (s *Store) ListCertificates(ctx context.Context) ([]*certificate.Request, error) {
	var recs []CertificateRecord
	if err := s.db.WithContext(ctx).Order("domain ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*certificate.Request, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		out = append(out, &certificate.Request{
			Domain:         rec.Domain,
			IssuerClass:    rec.IssuerClass,
			Status:         certificate.Status(rec.Status),
			ChallengeToken: rec.Token,
			IssuedAt:       rec.IssuedAt,
			ExpiresAt:      rec.ExpiresAt,
			RetryCount:     rec.RetryCount,
			NextRetryAt:    rec.NextRetryAt,
			Cause:          rec.Cause,
			UpdatedAt:      rec.UpdatedAt,
		})
	}
	return out, nil
}

// DeleteCertificate implements store.Store.
func (s *Store) DeleteCertificate(ctx context.Context, domain string) error {
	res := s.db.WithContext(ctx).Delete(&CertificateRecord{}, "domain = ?", domain)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, fmt.Sprintf("no certificate request for domain %q", domain))
	}
	return nil
}

// AppendReport implements store.Store.
func (s *Store) AppendReport(ctx context.Context, r *report.SyncReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode sync report %s: %w", r.ID, err)
	}
	rec := &ReportRecord{
		ID:        r.ID,
		Checksum:  r.ConfigChecksum,
		StartedAt: r.StartedAt,
		Payload:   string(payload),
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

// ListReports implements store.Store.
func (s *Store) ListReports(ctx context.Context, limit int) ([]*report.SyncReport, error) {
	q := s.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []ReportRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*report.SyncReport, 0, len(recs))
	for i := range recs {
		var r report.SyncReport
		if err := json.Unmarshal([]byte(recs[i].Payload), &r); err != nil {
			return nil, fmt.Errorf("failed to decode sync report %s: %w", recs[i].ID, err)
		}
		out = append(out, &r)
	}
	return out, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ store.Store = (*Store)(nil)
