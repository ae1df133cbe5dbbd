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

// Package version parses release build versions and classifies the skew
// between two builds, e.g. a client and the daemon it talks to.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a released build version. Extras preserves any suffix beyond
// the numeric components ("-rc.1", "+build.5"); it never affects skew.
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Extras string
}

// ParseVersion parses "[v]MAJOR[.MINOR[.PATCH]][suffix]". Missing components
// are zero. Non-release strings like "dev" or "unknown" are an error, which
// callers treat as "skew undecidable".
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "v")
	if raw == "" {
		return Version{}, fmt.Errorf("empty version string")
	}

	numeric, extras := raw, ""
	for i, r := range raw {
		if r != '.' && (r < '0' || r > '9') {
			numeric, extras = raw[:i], raw[i:]
			break
		}
	}
	if numeric == "" {
		return Version{}, fmt.Errorf("version %q has no numeric components", s)
	}

	parts := strings.Split(numeric, ".")
	if len(parts) > 3 {
		return Version{}, fmt.Errorf("version %q has more than 3 components", s)
	}

	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("version %q: component %d is not numeric", s, i+1)
		}
		n[i] = v
	}

	return Version{Major: n[0], Minor: n[1], Patch: n[2], Extras: extras}, nil
}

// String renders the canonical three-component form with the suffix.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d%s", v.Major, v.Minor, v.Patch, v.Extras)
}

// SkewsFrom reports whether two builds differ enough to warn about: a major
// or minor mismatch. Patch and suffix differences are compatible.
func (v Version) SkewsFrom(o Version) bool {
	return v.Major != o.Major || v.Minor != o.Minor
}
