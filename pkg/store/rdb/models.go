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

import "time"

// ConfigRecord holds the single persisted effective config.
// Table name: effective_configs
type ConfigRecord struct {
	ID        string    `gorm:"primaryKey;type:text;not null"`
	Checksum  string    `gorm:"type:text;not null"`
	Payload   string    `gorm:"type:text;not null"` // YAML encoded EffectiveConfig
	UpdatedAt time.Time `gorm:"not null"`
}

func (ConfigRecord) TableName() string { return "effective_configs" }

// TierStatusRecord persists one tier's rollout status.
// Table name: tier_statuses
type TierStatusRecord struct {
	Name      string    `gorm:"primaryKey;type:text;not null"`
	State     string    `gorm:"type:text;not null"`
	Attempts  int       `gorm:"not null"`
	Cause     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (TierStatusRecord) TableName() string { return "tier_statuses" }

// CertificateRecord persists one certificate request keyed by domain.
// Table name: certificate_requests
type CertificateRecord struct {
	Domain      string    `gorm:"primaryKey;type:text;not null"`
	IssuerClass string    `gorm:"type:text;not null"`
	Status      string    `gorm:"type:text;not null"`
	Token       string    `gorm:"type:text"`
	IssuedAt    time.Time `gorm:""`
	ExpiresAt   time.Time `gorm:""`
	RetryCount  int       `gorm:"not null"`
	NextRetryAt time.Time `gorm:""`
	Cause       string    `gorm:"type:text"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (CertificateRecord) TableName() string { return "certificate_requests" }

// ReportRecord persists one sync report. Rows are insert-only.
// Table name: sync_reports
type ReportRecord struct {
	ID        string    `gorm:"primaryKey;type:text;not null"`
	Checksum  string    `gorm:"type:text"`
	StartedAt time.Time `gorm:"not null;index"`
	Payload   string    `gorm:"type:text;not null"` // JSON encoded SyncReport
}

func (ReportRecord) TableName() string { return "sync_reports" }
