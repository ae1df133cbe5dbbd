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
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/NVIDIA/stack-orchestrator/pkg/defaults"
)

const httpAuthorityUserAgent = "taxis-certificate/1.0"

// HTTPAuthorityOption configures an HTTPAuthority.
type HTTPAuthorityOption func(*HTTPAuthority)

// WithHTTPClient replaces the default tuned client.
func WithHTTPClient(client *http.Client) HTTPAuthorityOption {
	return func(a *HTTPAuthority) {
		if client != nil {
			a.client = client
		}
	}
}

// WithUserAgent overrides the request user agent.
func WithUserAgent(ua string) HTTPAuthorityOption {
	return func(a *HTTPAuthority) {
		if ua != "" {
			a.userAgent = ua
		}
	}
}

// HTTPAuthority is an AuthorityClient speaking the authority's REST API:
// POST /v1/challenges to submit, GET /v1/challenges/{token} to poll.
type HTTPAuthority struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewHTTPAuthority creates a client for the authority at baseURL.
func NewHTTPAuthority(baseURL string, opts ...HTTPAuthorityOption) *HTTPAuthority {
	a := &HTTPAuthority{
		baseURL:   baseURL,
		userAgent: httpAuthorityUserAgent,
		client: &http.Client{
			Timeout: defaults.AuthorityRequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: defaults.AuthorityRequestTimeout,
				ExpectContinueTimeout: 1 * time.Second,
				MaxIdleConns:          10,
				MaxIdleConnsPerHost:   5,
				IdleConnTimeout:       90 * time.Second,
				ForceAttemptHTTP2:     true,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type challengeSubmission struct {
	Domain      string `json:"domain"`
	IssuerClass string `json:"issuerClass"`
}

type challengeResponse struct {
	Token    string    `json:"token,omitempty"`
	Status   string    `json:"status"`
	NotAfter time.Time `json:"notAfter,omitempty"`
}

// SubmitChallenge implements AuthorityClient.
func (a *HTTPAuthority) SubmitChallenge(ctx context.Context, domain, issuerClass string) (string, error) {
	body, err := json.Marshal(challengeSubmission{Domain: domain, IssuerClass: issuerClass})
	if err != nil {
		return "", fmt.Errorf("failed to encode challenge submission: %w", err)
	}

	var resp challengeResponse
	if err := a.do(ctx, http.MethodPost, a.baseURL+"/v1/challenges", body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("authority returned no challenge token for %s", domain)
	}
	return resp.Token, nil
}

// PollChallenge implements AuthorityClient.
func (a *HTTPAuthority) PollChallenge(ctx context.Context, token string) (ChallengeResult, error) {
	var resp challengeResponse
	endpoint := a.baseURL + "/v1/challenges/" + url.PathEscape(token)
	if err := a.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return ChallengeResult{}, err
	}

	switch ChallengeState(resp.Status) {
	case ChallengeProcessing, ChallengeValid, ChallengeInvalid:
		return ChallengeResult{State: ChallengeState(resp.Status), NotAfter: resp.NotAfter}, nil
	default:
		return ChallengeResult{}, fmt.Errorf("authority returned unknown challenge status %q", resp.Status)
	}
}

func (a *HTTPAuthority) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create authority request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("authority request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("authority returned status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode authority response: %w", err)
	}
	return nil
}

var _ AuthorityClient = (*HTTPAuthority)(nil)
