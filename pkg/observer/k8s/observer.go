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

package k8s

import (
	"context"
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/utils/ptr"

	"github.com/NVIDIA/stack-orchestrator/pkg/config"
	"github.com/NVIDIA/stack-orchestrator/pkg/observer"
	"github.com/NVIDIA/stack-orchestrator/pkg/tier"
)

// Labels stamped on every managed Deployment.
const (
	ManagedByLabel = "app.kubernetes.io/managed-by"
	ManagedByValue = "taxis"
	TierLabel      = "taxis.nvidia.com/tier"
)

// Interface is an alias for kubernetes.Interface to allow easier mocking in
// tests via fake.NewSimpleClientset().
type Interface = kubernetes.Interface

// Observer snapshots managed Deployments in one namespace.
type Observer struct {
	client    Interface
	namespace string
}

// New creates an Observer over the given client and namespace.
func New(client Interface, namespace string) *Observer {
	return &Observer{client: client, namespace: namespace}
}

// Observe lists managed Deployments and converts them to the neutral
// snapshot form.
func (o *Observer) Observe(ctx context.Context) (*observer.State, error) {
	list, err := o.client.AppsV1().Deployments(o.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s", ManagedByLabel, ManagedByValue),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments in %s: %w", o.namespace, err)
	}

	state := &observer.State{
		Workloads:  make(map[string]observer.Workload, len(list.Items)),
		ObservedAt: time.Now().UTC(),
	}

	for i := range list.Items {
		d := &list.Items[i]

		w := observer.Workload{
			Tier:          d.Labels[TierLabel],
			Name:          d.Name,
			Replicas:      int(ptr.Deref(d.Spec.Replicas, 1)),
			ReadyReplicas: int(d.Status.AvailableReplicas),
		}

		if containers := d.Spec.Template.Spec.Containers; len(containers) > 0 {
			w.Image = containers[0].Image
			for _, env := range containers[0].Env {
				if w.Env == nil {
					w.Env = make(map[string]string)
				}
				switch {
				case env.ValueFrom != nil && env.ValueFrom.SecretKeyRef != nil:
					w.Env[env.Name] = "secretRef:" + env.ValueFrom.SecretKeyRef.Name
				case env.ValueFrom != nil:
					// non-secret projections are not drift-compared
				default:
					w.Env[env.Name] = env.Value
				}
			}
		}

		state.Workloads[d.Name] = w
	}

	return state, nil
}

// Prune deletes a managed Deployment by name. Used for live workloads
// orphaned by the effective config in tiers with pruning enabled.
func (o *Observer) Prune(ctx context.Context, name string) error {
	if err := o.client.AppsV1().Deployments(o.namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil {
		return fmt.Errorf("failed to delete deployment %s: %w", name, err)
	}
	return nil
}

// ReplicasProbe returns a readiness probe gating on available replicas: every
// Deployment labeled with the tier must have at least the tier's readiness
// threshold available, or its own desired count when no threshold applies.
// The threshold only means a replica floor for readiness type replicas; for
// type probes it is the consecutive-success count and ignored here.
func ReplicasProbe(client Interface, namespace string) tier.Probe {
	return tier.ProbeFunc(func(ctx context.Context, t *tier.Tier) (bool, error) {
		list, err := client.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{
			LabelSelector: fmt.Sprintf("%s=%s,%s=%s", ManagedByLabel, ManagedByValue, TierLabel, t.Name),
		})
		if err != nil {
			return false, fmt.Errorf("failed to list deployments for tier %s: %w", t.Name, err)
		}
		if len(list.Items) == 0 {
			return false, nil
		}

		for i := range list.Items {
			d := &list.Items[i]
			var want int32
			if t.Readiness.Type == config.ReadinessReplicas {
				want = int32(t.Readiness.Threshold)
			}
			if want <= 0 {
				want = ptr.Deref(d.Spec.Replicas, 1)
			}
			if d.Status.AvailableReplicas < want {
				return false, nil
			}
		}
		return true, nil
	})
}

// TierProbe dispatches each tier to the readiness predicate its config
// declares: available replicas, an HTTP 200 check of the target URL, or
// the tier's threshold of consecutive replica-probe successes.
func TierProbe(client Interface, namespace string) tier.Probe {
	replicas := ReplicasProbe(client, namespace)
	return tier.Dispatch(map[config.ReadinessType]tier.Probe{
		config.ReadinessReplicas: replicas,
		config.ReadinessHTTP:     tier.HTTPProbe(nil),
		config.ReadinessProbes:   tier.Consecutive(replicas, 1),
	}, replicas)
}
