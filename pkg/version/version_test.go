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

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
	}{
		{"1", Version{Major: 1}},
		{"v2", Version{Major: 2}},
		{"1.2", Version{Major: 1, Minor: 2}},
		{"1.2.3", Version{Major: 1, Minor: 2, Patch: 3}},
		{"v1.2.3", Version{Major: 1, Minor: 2, Patch: 3}},
		{"1.2.3-rc.1", Version{Major: 1, Minor: 2, Patch: 3, Extras: "-rc.1"}},
		{"1.33.4+k3s1", Version{Major: 1, Minor: 33, Patch: 4, Extras: "+k3s1"}},
		{"  1.2.3 ", Version{Major: 1, Minor: 2, Patch: 3}},
	}

	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseVersionRejectsNonReleases(t *testing.T) {
	for _, in := range []string{"", "v", "dev", "unknown", "1.2.3.4", "1..2", "1.x"} {
		_, err := ParseVersion(in)
		assert.Error(t, err, in)
	}
}

func TestSkewsFrom(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"1.2.0", "1.2.9", false},
		{"1.2.0", "1.2.0-rc.1", false},
		{"1.2.0", "1.3.0", true},
		{"1.2.0", "2.2.0", true},
	}

	for _, tt := range tests {
		av, err := ParseVersion(tt.a)
		require.NoError(t, err)
		bv, err := ParseVersion(tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, av.SkewsFrom(bv), "%s vs %s", tt.a, tt.b)
	}
}

func TestVersionString(t *testing.T) {
	v, err := ParseVersion("v1.2.3-rc.1")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3-rc.1", v.String())
}
