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
	"sort"
	"strings"

	"github.com/distribution/reference"
	"k8s.io/apimachinery/pkg/api/resource"

	apperrors "github.com/NVIDIA/stack-orchestrator/pkg/errors"
)

// validate checks the merged config for required keys and type/range errors.
// All failures are collected into a single ConfigError instead of stopping at
// the first one.
func (c *EffectiveConfig) validate() error {
	var problems []string

	problems = append(problems, c.validateWorkloads()...)
	problems = append(problems, c.validateTiers()...)
	problems = append(problems, c.validateIngress()...)
	problems = append(problems, c.validateCertificates()...)

	if len(problems) > 0 {
		return apperrors.New(apperrors.ErrCodeConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func (c *EffectiveConfig) validateWorkloads() []string {
	var problems []string

	secretNames := make(map[string]bool, len(c.Secrets))
	for _, s := range c.Secrets {
		if s.Name == "" {
			problems = append(problems, "secret with empty name")
			continue
		}
		secretNames[s.Name] = true
	}

	// Map iteration order is randomized; sort names so repeated validation of
	// the same config reports problems in the same order.
	names := make([]string, 0, len(c.Workloads))
	for name := range c.Workloads {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		w := c.Workloads[name]

		if w.Image == "" {
			problems = append(problems, fmt.Sprintf("workload %s: image is required", name))
		} else if _, err := reference.ParseNormalizedNamed(w.Image); err != nil {
			problems = append(problems, fmt.Sprintf("workload %s: invalid image %q: %v", name, w.Image, err))
		}

		if w.Replicas != nil && *w.Replicas < 0 {
			problems = append(problems, fmt.Sprintf("workload %s: replicas must be >= 0, got %d", name, *w.Replicas))
		}

		if w.Storage != "" {
			q, err := resource.ParseQuantity(w.Storage)
			if err != nil {
				problems = append(problems, fmt.Sprintf("workload %s: invalid storage quantity %q: %v", name, w.Storage, err))
			} else if q.Sign() <= 0 {
				problems = append(problems, fmt.Sprintf("workload %s: storage must be a positive quantity, got %q", name, w.Storage))
			}
		}

		problems = append(problems, validateQuantities(name, "requests", w.Resources.Requests)...)
		problems = append(problems, validateQuantities(name, "limits", w.Resources.Limits)...)

		for _, env := range w.Env {
			if env.Name == "" {
				problems = append(problems, fmt.Sprintf("workload %s: env binding with empty name", name))
				continue
			}
			if env.Value != "" && env.SecretRef != "" {
				problems = append(problems, fmt.Sprintf("workload %s: env %s: value and secretRef are mutually exclusive", name, env.Name))
			}
			if env.SecretRef != "" && !secretNames[env.SecretRef] {
				problems = append(problems, fmt.Sprintf("workload %s: env %s: undeclared secret %q", name, env.Name, env.SecretRef))
			}
		}
	}

	return problems
}

func validateQuantities(workload, kind string, quantities map[string]string) []string {
	var problems []string

	keys := make([]string, 0, len(quantities))
	for k := range quantities {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := resource.ParseQuantity(quantities[k]); err != nil {
			problems = append(problems,
				fmt.Sprintf("workload %s: %s.%s: invalid quantity %q: %v", workload, kind, k, quantities[k], err))
		}
	}
	return problems
}

func (c *EffectiveConfig) validateTiers() []string {
	var problems []string

	seen := make(map[string]bool, len(c.Tiers))
	for _, t := range c.Tiers {
		if t.Name == "" {
			problems = append(problems, "tier with empty name")
			continue
		}
		if seen[t.Name] {
			problems = append(problems, fmt.Sprintf("duplicate tier %s", t.Name))
		}
		seen[t.Name] = true
	}

	for _, t := range c.Tiers {
		for _, dep := range t.DependsOn {
			if dep == t.Name {
				problems = append(problems, fmt.Sprintf("tier %s depends on itself", t.Name))
			} else if !seen[dep] {
				problems = append(problems, fmt.Sprintf("tier %s depends on undeclared tier %s", t.Name, dep))
			}
		}

		for _, w := range t.Workloads {
			if _, ok := c.Workloads[w]; !ok {
				problems = append(problems, fmt.Sprintf("tier %s references undeclared workload %s", t.Name, w))
			}
		}

		switch t.Readiness.Type {
		case "", ReadinessReplicas, ReadinessHTTP, ReadinessProbes:
		default:
			problems = append(problems, fmt.Sprintf("tier %s: unknown readiness type %q", t.Name, t.Readiness.Type))
		}

		if t.Readiness.Threshold < 0 {
			problems = append(problems, fmt.Sprintf("tier %s: readiness threshold must be >= 0", t.Name))
		}
		if t.MaxAttempts < 0 {
			problems = append(problems, fmt.Sprintf("tier %s: maxAttempts must be >= 0", t.Name))
		}
	}

	return problems
}

func (c *EffectiveConfig) validateIngress() []string {
	var problems []string

	for _, p := range c.Ingress.Paths {
		if p.Path == "" {
			problems = append(problems, "ingress path rule with empty path")
		}
		if _, ok := c.Workloads[p.Workload]; !ok {
			problems = append(problems, fmt.Sprintf("ingress path %s references undeclared workload %s", p.Path, p.Workload))
		}
		if p.Port <= 0 {
			problems = append(problems, fmt.Sprintf("ingress path %s: port must be positive, got %d", p.Path, p.Port))
		}
	}

	if c.Ingress.TLS != nil {
		if c.Ingress.Host == "" {
			problems = append(problems, "ingress TLS requires a host")
		}
		if c.Ingress.TLS.IssuerClass == "" {
			problems = append(problems, "ingress TLS requires an issuerClass")
		}
	}

	return problems
}

func (c *EffectiveConfig) validateCertificates() []string {
	var problems []string

	domains := make(map[string]bool, len(c.Certificates))
	for _, cert := range c.Certificates {
		if cert.Domain == "" {
			problems = append(problems, "certificate with empty domain")
			continue
		}
		if cert.IssuerClass == "" {
			problems = append(problems, fmt.Sprintf("certificate %s: issuerClass is required", cert.Domain))
		}
		if domains[cert.Domain] {
			problems = append(problems, fmt.Sprintf("duplicate certificate domain %s", cert.Domain))
		}
		domains[cert.Domain] = true
	}

	return problems
}
