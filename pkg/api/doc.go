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

// Package api assembles and runs the orchestrator daemon.
//
// Serve wires the full stack from Options: the layered configuration
// resolver, the cluster observer and readiness probe, the state store
// (SQLite or in-memory), the certificate manager, the reconciliation
// loop, and the HTTP server that exposes it. The loop and the server run
// concurrently under one errgroup; SIGINT/SIGTERM shut both down
// gracefully, and systemd is notified when the daemon is ready.
//
// The HTTP surface itself lives in pkg/server; the reconciliation
// semantics live in pkg/reconciler. This package only binds them.
package api
