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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryCmdRequiresExactlyOneTarget(t *testing.T) {
	for _, args := range [][]string{
		{"taxis", "retry"},
		{"taxis", "retry", "--tier", "app", "--domain", "shop.example.com"},
	} {
		err := Root().Run(t.Context(), args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one of --tier or --domain")
	}
}

func TestRetryCmdHitsServer(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	}))
	defer srv.Close()

	err := Root().Run(t.Context(), []string{"taxis", "retry", "--server", srv.URL, "--tier", "app"})
	require.NoError(t, err)
	assert.Equal(t, "/v1/retry", gotPath)
	assert.Equal(t, map[string]string{"tier": "app"}, gotBody)
}

func TestStatusCmdRejectsBothSelectors(t *testing.T) {
	err := Root().Run(t.Context(), []string{
		"taxis", "status", "--tier", "app", "--domain", "shop.example.com",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestValidateCmdResolvesLayers(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.yaml")
	require.NoError(t, os.WriteFile(base, []byte(`
workloads:
  app:
    image: ghcr.io/acme/app:1.0.0
    replicas: 1
tiers:
  - name: app
    workloads: [app]
`), 0o644))

	overlay := filepath.Join(dir, "prod.yaml")
	require.NoError(t, os.WriteFile(overlay, []byte(`
workloads:
  app:
    replicas: 3
`), 0o644))

	out := filepath.Join(dir, "effective.json")
	err := Root().Run(t.Context(), []string{
		"taxis", "validate", "--file", base, "--file", overlay, "--output", out,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"replicas": 3`)
}

func TestValidateCmdRequiresFiles(t *testing.T) {
	err := Root().Run(t.Context(), []string{"taxis", "validate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--file")
}

func TestValidateCmdRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
tiers:
  - name: app
    dependsOn: [missing]
`), 0o644))

	err := Root().Run(t.Context(), []string{"taxis", "validate", "--file", bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestDetectSkew(t *testing.T) {
	tests := []struct {
		client string
		server string
		want   bool
	}{
		{"1.2.0", "1.2.5", false},
		{"1.2.0", "1.3.0", true},
		{"1.2.0", "2.0.0", true},
		{"dev", "1.2.0", false},
		{"1.2.0", "unknown", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, detectSkew(tt.client, tt.server), "%s vs %s", tt.client, tt.server)
	}
}
