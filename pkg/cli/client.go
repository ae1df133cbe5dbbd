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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/stack-orchestrator/pkg/certificate"
	"github.com/NVIDIA/stack-orchestrator/pkg/report"
	"github.com/NVIDIA/stack-orchestrator/pkg/server"
	"github.com/NVIDIA/stack-orchestrator/pkg/tier"
)

// Client talks to a running daemon's HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the daemon at base.
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// clientFromCmd builds a Client from the --server flag.
func clientFromCmd(cmd *cli.Command) *Client {
	return NewClient(cmd.String("server"))
}

// ServerInfo is the daemon's identity as reported by its root route.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Ready   bool   `json:"ready"`
}

// Plan fetches the rollout plan.
func (c *Client) Plan(ctx context.Context) (*server.PlanResponse, error) {
	var resp server.PlanResponse
	if err := c.get(ctx, "/v1/plan", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches the combined tier and certificate status.
func (c *Client) Status(ctx context.Context) (*server.StatusResponse, error) {
	var resp server.StatusResponse
	if err := c.get(ctx, "/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TierStatus fetches a single tier's status.
func (c *Client) TierStatus(ctx context.Context, name string) (*tier.Status, error) {
	var resp tier.Status
	if err := c.get(ctx, "/v1/status?tier="+url.QueryEscape(name), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CertificateStatus fetches a single certificate request's status.
func (c *Client) CertificateStatus(ctx context.Context, domain string) (*certificate.Request, error) {
	var resp certificate.Request
	if err := c.get(ctx, "/v1/status?domain="+url.QueryEscape(domain), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reports fetches persisted sync reports, newest first.
func (c *Client) Reports(ctx context.Context, limit int) ([]*report.SyncReport, error) {
	path := "/v1/reports"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp []*report.SyncReport
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Reconcile queues an immediate reconcile cycle.
func (c *Client) Reconcile(ctx context.Context) error {
	return c.post(ctx, "/v1/reconcile", nil, nil)
}

// RetryTier re-arms a failed tier.
func (c *Client) RetryTier(ctx context.Context, name string) error {
	return c.post(ctx, "/v1/retry", map[string]string{"tier": name}, nil)
}

// RetryCertificate re-arms a failed certificate request.
func (c *Client) RetryCertificate(ctx context.Context, domain string) error {
	return c.post(ctx, "/v1/retry", map[string]string{"domain": domain}, nil)
}

// CancelTier cancels a tier rollout.
func (c *Client) CancelTier(ctx context.Context, name string) error {
	return c.post(ctx, "/v1/cancel", map[string]string{"tier": name}, nil)
}

// CancelCertificate cancels a certificate request.
func (c *Client) CancelCertificate(ctx context.Context, domain string) error {
	return c.post(ctx, "/v1/cancel", map[string]string{"domain": domain}, nil)
}

// Info fetches the daemon's identity.
func (c *Client) Info(ctx context.Context) (*ServerInfo, error) {
	var resp ServerInfo
	if err := c.get(ctx, "/", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp server.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Message != "" {
			return fmt.Errorf("%s: %s", errResp.Code, errResp.Message)
		}
		return fmt.Errorf("server returned status %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode server response: %w", err)
	}
	return nil
}
