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

package tier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/NVIDIA/stack-orchestrator/pkg/config"
	apperrors "github.com/NVIDIA/stack-orchestrator/pkg/errors"
)

func httpTier(target string) *Tier {
	return &Tier{
		Name:      "web",
		Readiness: config.ReadinessSpec{Type: config.ReadinessHTTP, Target: target},
	}
}

func TestHTTPProbeReadyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ready, err := HTTPProbe(nil).Check(t.Context(), httpTier(srv.URL))
	if err != nil || !ready {
		t.Errorf("200 endpoint: ready=%v err=%v, want ready", ready, err)
	}
}

func TestHTTPProbeNotReadyOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ready, err := HTTPProbe(nil).Check(t.Context(), httpTier(srv.URL))
	if err != nil {
		t.Fatalf("non-200 must not be a probe error: %v", err)
	}
	if ready {
		t.Error("503 endpoint reported ready")
	}
}

func TestHTTPProbeNotReadyWhileUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	target := srv.URL
	srv.Close()

	ready, err := HTTPProbe(nil).Check(t.Context(), httpTier(target))
	if err != nil {
		t.Fatalf("connection refused must not be a probe error: %v", err)
	}
	if ready {
		t.Error("unreachable endpoint reported ready")
	}
}

func TestHTTPProbeRequiresTarget(t *testing.T) {
	_, err := HTTPProbe(nil).Check(t.Context(), httpTier(""))
	if !apperrors.HasCode(err, apperrors.ErrCodeConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}

func TestConsecutiveTierThresholdOverridesDefault(t *testing.T) {
	always := ProbeFunc(func(context.Context, *Tier) (bool, error) { return true, nil })
	probe := Consecutive(always, 1)

	tr := &Tier{
		Name:      "db",
		Readiness: config.ReadinessSpec{Type: config.ReadinessProbes, Threshold: 3},
	}
	for i, want := range []bool{false, false, true} {
		ready, err := probe.Check(t.Context(), tr)
		if err != nil {
			t.Fatalf("probe error: %v", err)
		}
		if ready != want {
			t.Errorf("success %d: ready=%v, want %v", i+1, ready, want)
		}
	}
}

func TestConsecutiveConcurrentTiers(t *testing.T) {
	always := ProbeFunc(func(context.Context, *Tier) (bool, error) { return true, nil })
	probe := Consecutive(always, 3)

	// tiers in the same wave are probed in parallel; streaks stay per-tier
	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr := &Tier{Name: name}
			var ready bool
			for i := 0; i < 3; i++ {
				ready, _ = probe.Check(context.Background(), tr)
			}
			if !ready {
				t.Errorf("tier %s not ready after 3 successes", name)
			}
		}()
	}
	wg.Wait()
}

func TestDispatchRoutesByReadinessType(t *testing.T) {
	mark := func(v string, hit *string) Probe {
		return ProbeFunc(func(context.Context, *Tier) (bool, error) {
			*hit = v
			return true, nil
		})
	}

	var hit string
	probe := Dispatch(map[config.ReadinessType]Probe{
		config.ReadinessReplicas: mark("replicas", &hit),
		config.ReadinessHTTP:     mark("http", &hit),
	}, mark("fallback", &hit))

	tests := []struct {
		typ  config.ReadinessType
		want string
	}{
		{config.ReadinessReplicas, "replicas"},
		{config.ReadinessHTTP, "http"},
		{config.ReadinessProbes, "fallback"},
	}
	for _, tc := range tests {
		if _, err := probe.Check(t.Context(), &Tier{Name: "x", Readiness: config.ReadinessSpec{Type: tc.typ}}); err != nil {
			t.Fatalf("probe error: %v", err)
		}
		if hit != tc.want {
			t.Errorf("type %q routed to %q, want %q", tc.typ, hit, tc.want)
		}
	}
}
