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

// Package cli implements the taxis command line interface.
//
// Most commands are thin clients of a running daemon's HTTP API
// (--server, TAXIS_SERVER): plan, status, reports, reconcile, retry, and
// cancel read and mutate the orchestrator remotely. The validate command
// runs locally, resolving layered configuration files without a daemon.
//
// Output defaults to JSON and supports YAML and table rendering via
// --format, written to stdout or --output.
package cli
