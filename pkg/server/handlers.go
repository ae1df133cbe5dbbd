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

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/NVIDIA/stack-orchestrator/pkg/certificate"
	apperrors "github.com/NVIDIA/stack-orchestrator/pkg/errors"
	"github.com/NVIDIA/stack-orchestrator/pkg/report"
	"github.com/NVIDIA/stack-orchestrator/pkg/serializer"
	"github.com/NVIDIA/stack-orchestrator/pkg/tier"
)

// Orchestrator is the loop surface the server exposes over HTTP.
type Orchestrator interface {
	Plan() ([][]*tier.Tier, error)
	TierStatuses() []tier.Status
	TierStatus(name string) (tier.Status, error)
	CertificateStatuses() []*certificate.Request
	CertificateStatus(domain string) (*certificate.Request, error)
	LastReport() *report.SyncReport
	RetryTier(name string) error
	RetryCertificate(domain string) error
	CancelTier(name string) error
	CancelCertificate(domain string) error
	Trigger()
}

// ReportLister provides read access to persisted sync reports.
type ReportLister interface {
	ListReports(ctx context.Context, limit int) ([]*report.SyncReport, error)
}

// PlanResponse is the rollout plan as dependency-ordered waves.
type PlanResponse struct {
	Waves     [][]string `json:"waves"`
	Timestamp time.Time  `json:"timestamp"`
}

// StatusResponse is the combined orchestrator status.
type StatusResponse struct {
	Tiers        []tier.Status          `json:"tiers"`
	Certificates []*certificate.Request `json:"certificates"`
	LastReportID string                 `json:"lastReportId,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

// targetRequest names the tier or certificate domain a mutation applies to.
// Exactly one of the fields must be set.
type targetRequest struct {
	Tier   string `json:"tier,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// handlePlan handles GET /v1/plan
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, apperrors.ErrCodeMethodNotAllowed,
			"Method not allowed", false, nil)
		return
	}

	waves, err := s.orch.Plan()
	if err != nil {
		s.writeStructuredError(w, r, err)
		return
	}

	resp := PlanResponse{
		Waves:     make([][]string, 0, len(waves)),
		Timestamp: time.Now().UTC(),
	}
	for _, wave := range waves {
		names := make([]string, 0, len(wave))
		for _, t := range wave {
			names = append(names, t.Name)
		}
		resp.Waves = append(resp.Waves, names)
	}

	serializer.RespondJSON(w, http.StatusOK, resp)
}

// handleStatus handles GET /v1/status with optional ?tier= or ?domain=
// selectors for a single resource.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, apperrors.ErrCodeMethodNotAllowed,
			"Method not allowed", false, nil)
		return
	}

	if name := r.URL.Query().Get("tier"); name != "" {
		status, err := s.orch.TierStatus(name)
		if err != nil {
			s.writeStructuredError(w, r, err)
			return
		}
		serializer.RespondJSON(w, http.StatusOK, status)
		return
	}

	if domain := r.URL.Query().Get("domain"); domain != "" {
		status, err := s.orch.CertificateStatus(domain)
		if err != nil {
			s.writeStructuredError(w, r, err)
			return
		}
		serializer.RespondJSON(w, http.StatusOK, status)
		return
	}

	resp := StatusResponse{
		Tiers:        s.orch.TierStatuses(),
		Certificates: s.orch.CertificateStatuses(),
		Timestamp:    time.Now().UTC(),
	}
	if last := s.orch.LastReport(); last != nil {
		resp.LastReportID = last.ID
	}

	serializer.RespondJSON(w, http.StatusOK, resp)
}

// handleReports handles GET /v1/reports with optional ?limit=.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, apperrors.ErrCodeMethodNotAllowed,
			"Method not allowed", false, nil)
		return
	}

	if s.reports == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, apperrors.ErrCodeUnavailable,
			"Report history is not configured", false, nil)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			s.writeError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest,
				"limit must be a non-negative integer", false, nil)
			return
		}
		limit = parsed
	}

	reports, err := s.reports.ListReports(r.Context(), limit)
	if err != nil {
		s.writeStructuredError(w, r, err)
		return
	}

	serializer.RespondJSON(w, http.StatusOK, reports)
}

// handleReconcile handles POST /v1/reconcile by queueing an immediate
// cycle on the loop. The request returns before the cycle runs.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, r, http.StatusMethodNotAllowed, apperrors.ErrCodeMethodNotAllowed,
			"Method not allowed", false, nil)
		return
	}

	s.orch.Trigger()
	serializer.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// handleRetry handles POST /v1/retry for failed tiers and certificates.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.handleTargetMutation(w, r, s.orch.RetryTier, s.orch.RetryCertificate)
}

// handleCancel handles POST /v1/cancel for tiers and certificates.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.handleTargetMutation(w, r, s.orch.CancelTier, s.orch.CancelCertificate)
}

func (s *Server) handleTargetMutation(w http.ResponseWriter, r *http.Request,
	tierOp, domainOp func(string) error) {

	if r.Method != http.MethodPost {
		s.writeError(w, r, http.StatusMethodNotAllowed, apperrors.ErrCodeMethodNotAllowed,
			"Method not allowed", false, nil)
		return
	}

	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest,
			"Request body must be JSON with a tier or domain field", false, nil)
		return
	}
	if (req.Tier == "") == (req.Domain == "") {
		s.writeError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest,
			"Exactly one of tier or domain is required", false, nil)
		return
	}

	var err error
	target := req.Tier
	if req.Tier != "" {
		err = tierOp(req.Tier)
	} else {
		target = req.Domain
		err = domainOp(req.Domain)
	}
	if err != nil {
		s.writeStructuredError(w, r, err)
		return
	}

	serializer.RespondJSON(w, http.StatusOK, map[string]string{
		"status": "accepted",
		"target": target,
	})
}
