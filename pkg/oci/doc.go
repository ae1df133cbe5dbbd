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

// Package oci archives completed reconciliation cycles as OCI artifacts.
//
// Each archived cycle bundles the effective configuration and the sync
// report that applied it, so any past state of the stack can be audited or
// replayed from a registry. Targets are either OCI references
// ("oci://ghcr.io/org/repo:tag") pushed with ORAS, or plain directory paths
// written locally.
//
// Artifacts carry the media type "application/vnd.nvidia.taxis.cycle" to
// distinguish them from runnable container images. Registry authentication
// uses the standard Docker credential helpers (~/.docker/config.json).
package oci
