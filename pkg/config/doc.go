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

// Package config resolves layered configuration into one effective deployment spec.
//
// Layers are supplied in strictly increasing precedence order (base defaults,
// environment overlay, orchestrator overrides, caller overrides). For each
// leaf key the value from the highest-precedence layer that defines it wins.
// Lists are replaced wholesale, never concatenated. A layer that omits a key
// does not define it; an explicit null in a layer is a defined value and
// overrides lower layers.
//
// Resolve is a pure function: identical layer input produces byte-identical
// EffectiveConfig output, which enables deterministic replay in tests and a
// stable checksum for drift comparison.
package config
