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

// Package k8s observes live deployment state from a Kubernetes cluster.
//
// Managed workloads are Deployments carrying the taxis labels; the observer
// lists them per namespace and converts spec and status into the neutral
// snapshot form consumed by drift comparison. ReplicasProbe provides the
// replica-count readiness predicate for the rollout sequencer.
package k8s
