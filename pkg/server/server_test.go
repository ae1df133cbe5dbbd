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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/stack-orchestrator/pkg/certificate"
	apperrors "github.com/NVIDIA/stack-orchestrator/pkg/errors"
	"github.com/NVIDIA/stack-orchestrator/pkg/report"
	"github.com/NVIDIA/stack-orchestrator/pkg/tier"
)

type fakeOrchestrator struct {
	waves      [][]*tier.Tier
	planErr    error
	tiers      []tier.Status
	certs      []*certificate.Request
	lastReport *report.SyncReport

	retriedTiers   []string
	retriedDomains []string
	triggered      int
}

func (f *fakeOrchestrator) Plan() ([][]*tier.Tier, error) { return f.waves, f.planErr }
func (f *fakeOrchestrator) TierStatuses() []tier.Status   { return f.tiers }

func (f *fakeOrchestrator) TierStatus(name string) (tier.Status, error) {
	for _, ts := range f.tiers {
		if ts.Name == name {
			return ts, nil
		}
	}
	return tier.Status{}, apperrors.New(apperrors.ErrCodeNotFound, "unknown tier "+name)
}

func (f *fakeOrchestrator) CertificateStatuses() []*certificate.Request { return f.certs }

func (f *fakeOrchestrator) CertificateStatus(domain string) (*certificate.Request, error) {
	for _, c := range f.certs {
		if c.Domain == domain {
			return c, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrCodeNotFound, "unknown domain "+domain)
}

func (f *fakeOrchestrator) LastReport() *report.SyncReport { return f.lastReport }

func (f *fakeOrchestrator) RetryTier(name string) error {
	f.retriedTiers = append(f.retriedTiers, name)
	return nil
}

func (f *fakeOrchestrator) RetryCertificate(domain string) error {
	f.retriedDomains = append(f.retriedDomains, domain)
	return nil
}

func (f *fakeOrchestrator) CancelTier(string) error        { return nil }
func (f *fakeOrchestrator) CancelCertificate(string) error { return nil }
func (f *fakeOrchestrator) Trigger()                       { f.triggered++ }

type fakeReportLister struct {
	reports []*report.SyncReport
	limit   int
}

func (f *fakeReportLister) ListReports(_ context.Context, limit int) ([]*report.SyncReport, error) {
	f.limit = limit
	return f.reports, nil
}

func newTestServer(t *testing.T, orch Orchestrator, opts ...ServerOption) *Server {
	t.Helper()
	cfg := NewConfig()
	cfg.Name = "taxisd-test"
	cfg.Version = "test"
	return NewServer(cfg, orch, opts...)
}

func TestHandlePlan(t *testing.T) {
	orch := &fakeOrchestrator{
		waves: [][]*tier.Tier{
			{{Name: "data"}},
			{{Name: "app"}, {Name: "cache"}},
		},
	}
	s := newTestServer(t, orch)

	rec := httptest.NewRecorder()
	s.handlePlan(rec, httptest.NewRequest(http.MethodGet, "/v1/plan", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, [][]string{{"data"}, {"app", "cache"}}, resp.Waves)
}

func TestHandlePlanCycleError(t *testing.T) {
	orch := &fakeOrchestrator{
		planErr: apperrors.New(apperrors.ErrCodeCyclicDependency, "dependency cycle detected"),
	}
	s := newTestServer(t, orch)

	rec := httptest.NewRecorder()
	s.handlePlan(rec, httptest.NewRequest(http.MethodGet, "/v1/plan", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(apperrors.ErrCodeCyclicDependency), resp.Code)
	assert.False(t, resp.Retryable)
}

func TestHandleStatusCombined(t *testing.T) {
	last := report.New("abc123")
	orch := &fakeOrchestrator{
		tiers: []tier.Status{
			{Name: "data", State: tier.StateReady},
			{Name: "app", State: tier.StateDeploying},
		},
		certs:      []*certificate.Request{{Domain: "shop.example.com", Status: certificate.StatusIssued}},
		lastReport: last,
	}
	s := newTestServer(t, orch)

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Tiers, 2)
	assert.Len(t, resp.Certificates, 1)
	assert.Equal(t, last.ID, resp.LastReportID)
}

func TestHandleStatusSingleTier(t *testing.T) {
	orch := &fakeOrchestrator{
		tiers: []tier.Status{{Name: "app", State: tier.StateFailed, Attempts: 3}},
	}
	s := newTestServer(t, orch)

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/status?tier=app", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tier.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "app", resp.Name)
	assert.Equal(t, tier.StateFailed, resp.State)
}

func TestHandleStatusUnknownTier(t *testing.T) {
	s := newTestServer(t, &fakeOrchestrator{})

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/status?tier=nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStatusSingleDomain(t *testing.T) {
	orch := &fakeOrchestrator{
		certs: []*certificate.Request{{Domain: "shop.example.com", Status: certificate.StatusValidating}},
	}
	s := newTestServer(t, orch)

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/status?domain=shop.example.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp certificate.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, certificate.StatusValidating, resp.Status)
}

func TestHandleReports(t *testing.T) {
	lister := &fakeReportLister{reports: []*report.SyncReport{report.New("a"), report.New("b")}}
	s := newTestServer(t, &fakeOrchestrator{}, WithReportLister(lister))

	rec := httptest.NewRecorder()
	s.handleReports(rec, httptest.NewRequest(http.MethodGet, "/v1/reports?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, lister.limit)

	var resp []*report.SyncReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestHandleReportsWithoutStore(t *testing.T) {
	s := newTestServer(t, &fakeOrchestrator{})

	rec := httptest.NewRecorder()
	s.handleReports(rec, httptest.NewRequest(http.MethodGet, "/v1/reports", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleReportsInvalidLimit(t *testing.T) {
	s := newTestServer(t, &fakeOrchestrator{}, WithReportLister(&fakeReportLister{}))

	rec := httptest.NewRecorder()
	s.handleReports(rec, httptest.NewRequest(http.MethodGet, "/v1/reports?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleReconcileQueuesCycle(t *testing.T) {
	orch := &fakeOrchestrator{}
	s := newTestServer(t, orch)

	rec := httptest.NewRecorder()
	s.handleReconcile(rec, httptest.NewRequest(http.MethodPost, "/v1/reconcile", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, orch.triggered)
}

func TestHandleRetryTier(t *testing.T) {
	orch := &fakeOrchestrator{}
	s := newTestServer(t, orch)

	body := bytes.NewBufferString(`{"tier":"app"}`)
	rec := httptest.NewRecorder()
	s.handleRetry(rec, httptest.NewRequest(http.MethodPost, "/v1/retry", body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"app"}, orch.retriedTiers)
}

func TestHandleRetryDomain(t *testing.T) {
	orch := &fakeOrchestrator{}
	s := newTestServer(t, orch)

	body := bytes.NewBufferString(`{"domain":"shop.example.com"}`)
	rec := httptest.NewRecorder()
	s.handleRetry(rec, httptest.NewRequest(http.MethodPost, "/v1/retry", body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"shop.example.com"}, orch.retriedDomains)
}

func TestHandleRetryRejectsAmbiguousTarget(t *testing.T) {
	s := newTestServer(t, &fakeOrchestrator{})

	for _, body := range []string{`{}`, `{"tier":"app","domain":"shop.example.com"}`} {
		rec := httptest.NewRecorder()
		s.handleRetry(rec, httptest.NewRequest(http.MethodPost, "/v1/retry", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestHandleRetryRejectsGet(t *testing.T) {
	s := newTestServer(t, &fakeOrchestrator{})

	rec := httptest.NewRecorder()
	s.handleRetry(rec, httptest.NewRequest(http.MethodGet, "/v1/retry", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouterServesSystemEndpoints(t *testing.T) {
	s := newTestServer(t, &fakeOrchestrator{})
	handler := s.setupRoutes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Not ready until Start is called.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.SetReady(true)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDefaultRouteListsEndpoints(t *testing.T) {
	s := newTestServer(t, &fakeOrchestrator{})

	rec := httptest.NewRecorder()
	s.handleDefault(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/v1/plan")
	assert.Contains(t, rec.Body.String(), "taxisd-test")
}
