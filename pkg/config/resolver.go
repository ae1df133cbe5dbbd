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

package config

import (
	"bytes"

	"gopkg.in/yaml.v3"

	apperrors "github.com/NVIDIA/stack-orchestrator/pkg/errors"
)

// Resolve merges layers in strictly increasing precedence order and returns
// the validated effective config. It is a pure function: no side effects,
// deterministic output for identical input.
//
// Merge semantics: last-writer-wins per leaf key. Mappings are descended so
// sibling keys from lower layers survive, but any non-mapping value — scalars,
// lists, explicit nulls — replaces the lower layer's value wholesale.
func Resolve(layers ...*Layer) (*EffectiveConfig, error) {
	merged := map[string]any{}
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		mergeValues(merged, layer.Values)
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeValues overlays src onto dst. Only dst is mutated: nested mappings
// from src are copied before insertion, so a later layer can never write
// through the accumulator into an earlier layer's Values.
func mergeValues(dst, src map[string]any) {
	for key, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)

		if srcIsMap && dstIsMap {
			mergeValues(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			dst[key] = copyValues(srcMap)
			continue
		}

		// Non-mapping values replace wholesale. This covers lists (never
		// concatenated) and explicit nulls (a defined value that overrides).
		dst[key] = srcVal
	}
}

// copyValues deep-copies a layer mapping. Leaf values are shared; the merge
// never mutates leaves, only mappings.
func copyValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for key, val := range src {
		if m, ok := val.(map[string]any); ok {
			out[key] = copyValues(m)
			continue
		}
		out[key] = val
	}
	return out
}

// decode converts the merged mapping into the typed schema. Unknown keys are
// rejected so typos in layers surface as ConfigError instead of being dropped.
func decode(merged map[string]any) (*EffectiveConfig, error) {
	data, err := yaml.Marshal(merged)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfigInvalid,
			"failed to encode merged config", err)
	}

	var cfg EffectiveConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfigInvalid,
			"merged config does not match schema", err)
	}

	return &cfg, nil
}
