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

package observer

import (
	"context"
	"time"
)

// Workload is the observed state of one deployed workload.
type Workload struct {
	// Tier is the tier the workload is labeled with.
	Tier string `yaml:"tier" json:"tier"`
	Name string `yaml:"name" json:"name"`

	Image string `yaml:"image" json:"image"`

	// Replicas is the configured replica count of the live object.
	Replicas int `yaml:"replicas" json:"replicas"`

	// ReadyReplicas is how many replicas are currently available.
	ReadyReplicas int `yaml:"readyReplicas" json:"readyReplicas"`

	// Env holds plain-value environment bindings. Secret-sourced values
	// are represented by their reference name, never the material.
	Env map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
}

// State is a point-in-time snapshot of the live deployment.
type State struct {
	Workloads  map[string]Workload `yaml:"workloads" json:"workloads"`
	ObservedAt time.Time           `yaml:"observedAt" json:"observedAt"`
}

// Observer captures live state. Implementations must respect ctx.
type Observer interface {
	Observe(ctx context.Context) (*State, error)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context) (*State, error)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context) (*State, error) {
	return f(ctx)
}
