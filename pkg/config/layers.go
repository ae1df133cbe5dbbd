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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/NVIDIA/stack-orchestrator/pkg/errors"
)

// Layer is one partial configuration source. Values holds the raw decoded
// YAML mapping; a key present in Values is defined by this layer, including
// keys with explicit null values.
type Layer struct {
	// Name identifies the layer in error messages ("base", "env:prod", ...).
	Name string

	// Values is the raw decoded mapping for this layer.
	Values map[string]any
}

// NewLayer creates a layer from an already decoded mapping.
func NewLayer(name string, values map[string]any) *Layer {
	return &Layer{Name: name, Values: values}
}

// ParseLayer decodes a YAML document into a layer.
// An empty document yields an empty layer, which defines no keys.
func ParseLayer(name string, data []byte) (*Layer, error) {
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, apperrors.WrapWithContext(
			apperrors.ErrCodeConfigInvalid,
			"failed to parse config layer",
			err,
			map[string]any{"layer": name},
		)
	}
	return &Layer{Name: name, Values: values}, nil
}

// LoadLayerFile reads and decodes a YAML layer from disk.
// The file name is used as the layer name.
func LoadLayerFile(path string) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfigInvalid,
			fmt.Sprintf("failed to read config layer %s", path), err)
	}
	return ParseLayer(path, data)
}

// LoadLayerFiles reads layers from paths in strictly increasing precedence
// order (first path is the base, last wins).
func LoadLayerFiles(paths ...string) ([]*Layer, error) {
	layers := make([]*Layer, 0, len(paths))
	for _, path := range paths {
		layer, err := LoadLayerFile(path)
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
	}
	return layers, nil
}
