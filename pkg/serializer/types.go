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

// Package serializer renders orchestrator output in operator-facing formats.
//
// Three formats are supported:
//   - JSON: machine-readable, indented
//   - YAML: human-readable configuration form
//   - Table: flattened key/value rows for terminal use
//
// Usage:
//
//	w := serializer.NewWriter(serializer.FormatTable, os.Stdout)
//	defer w.Close()
//	if err := w.Serialize(ctx, statuses); err != nil { ... }
package serializer

import "context"

// Serializer renders one value to the configured destination.
type Serializer interface {
	Serialize(ctx context.Context, v any) error
}

// Closer is implemented by serializers holding releasable resources,
// e.g. file handles.
type Closer interface {
	Close() error
}
