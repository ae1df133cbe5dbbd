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
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ReadinessType identifies the readiness determination policy for a tier.
type ReadinessType string

const (
	// ReadinessReplicas gates on N replicas available.
	ReadinessReplicas ReadinessType = "replicas"
	// ReadinessHTTP gates on an endpoint responding 200.
	ReadinessHTTP ReadinessType = "http"
	// ReadinessProbes gates on K consecutive probe successes.
	ReadinessProbes ReadinessType = "probes"
)

// EnvVar is a single environment binding for a workload. Exactly one of
// Value or SecretRef should be set; secret values are never embedded.
type EnvVar struct {
	Name      string `yaml:"name" json:"name"`
	Value     string `yaml:"value,omitempty" json:"value,omitempty"`
	SecretRef string `yaml:"secretRef,omitempty" json:"secretRef,omitempty"`
}

// Resources holds per-workload resource requests and limits as
// Kubernetes-style quantity strings (e.g., "100m", "512Mi").
type Resources struct {
	Requests map[string]string `yaml:"requests,omitempty" json:"requests,omitempty"`
	Limits   map[string]string `yaml:"limits,omitempty" json:"limits,omitempty"`
}

// WorkloadSpec describes one deployable workload.
type WorkloadSpec struct {
	// Image is the container image reference. Required.
	Image string `yaml:"image" json:"image"`

	// Replicas is the desired replica count. Nil means undefined; an
	// explicit zero is a valid value.
	Replicas *int `yaml:"replicas,omitempty" json:"replicas,omitempty"`

	// Resources are optional requests/limits for the workload.
	Resources Resources `yaml:"resources,omitempty" json:"resources,omitempty"`

	// Storage is an optional persistent volume size ("10Gi").
	Storage string `yaml:"storage,omitempty" json:"storage,omitempty"`

	// Env holds environment bindings, secret values by reference only.
	Env []EnvVar `yaml:"env,omitempty" json:"env,omitempty"`
}

// ReadinessSpec selects and parameterizes the readiness predicate for a tier.
type ReadinessSpec struct {
	Type ReadinessType `yaml:"type,omitempty" json:"type,omitempty"`

	// Threshold is predicate-specific: minimum available replicas for
	// ReadinessReplicas, consecutive successes for ReadinessProbes.
	Threshold int `yaml:"threshold,omitempty" json:"threshold,omitempty"`

	// Target is the probe target for ReadinessHTTP (URL) and
	// ReadinessProbes (opaque, passed to the injected probe).
	Target string `yaml:"target,omitempty" json:"target,omitempty"`
}

// TierSpec is a named group of workloads with declared dependencies.
// Declaration order in the layer is preserved and used as the deterministic
// tie-breaker within a dependency depth.
type TierSpec struct {
	Name      string   `yaml:"name" json:"name"`
	Workloads []string `yaml:"workloads,omitempty" json:"workloads,omitempty"`
	DependsOn []string `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`

	// Managed tiers have drift reverted on the next reconcile cycle.
	Managed bool `yaml:"managed,omitempty" json:"managed,omitempty"`

	// Prune enables deletion of live resources absent from the effective
	// config for this tier.
	Prune bool `yaml:"prune,omitempty" json:"prune,omitempty"`

	// IgnoreFields excludes named fields (e.g., "replicas") from drift
	// comparison, to tolerate manual scaling.
	IgnoreFields []string `yaml:"ignoreFields,omitempty" json:"ignoreFields,omitempty"`

	// MaxAttempts bounds Failed -> Deploying retries. Zero means the
	// orchestrator default.
	MaxAttempts int `yaml:"maxAttempts,omitempty" json:"maxAttempts,omitempty"`

	Readiness ReadinessSpec `yaml:"readiness,omitempty" json:"readiness,omitempty"`
}

// PathRule routes one ingress path to a workload port.
type PathRule struct {
	Path     string `yaml:"path" json:"path"`
	Workload string `yaml:"workload" json:"workload"`
	Port     int    `yaml:"port" json:"port"`
}

// IngressTLS references the certificate issuer class for the ingress host.
type IngressTLS struct {
	IssuerClass string `yaml:"issuerClass" json:"issuerClass"`
}

// IngressSpec describes the routing layer for the deployment.
type IngressSpec struct {
	Host  string      `yaml:"host,omitempty" json:"host,omitempty"`
	Paths []PathRule  `yaml:"paths,omitempty" json:"paths,omitempty"`
	TLS   *IngressTLS `yaml:"tls,omitempty" json:"tls,omitempty"`
}

// SecretRef names an opaque secret. Values are never embedded in config.
type SecretRef struct {
	Name string `yaml:"name" json:"name"`
}

// CertificateSpec requests a certificate for a domain from an issuer class.
type CertificateSpec struct {
	Domain      string `yaml:"domain" json:"domain"`
	IssuerClass string `yaml:"issuerClass" json:"issuerClass"`
}

// EffectiveConfig is the fully merged, validated configuration for one
// reconciliation cycle. It is immutable once produced by Resolve.
type EffectiveConfig struct {
	Workloads    map[string]WorkloadSpec `yaml:"workloads,omitempty" json:"workloads,omitempty"`
	Tiers        []TierSpec              `yaml:"tiers,omitempty" json:"tiers,omitempty"`
	Ingress      IngressSpec             `yaml:"ingress,omitempty" json:"ingress,omitempty"`
	Secrets      []SecretRef             `yaml:"secrets,omitempty" json:"secrets,omitempty"`
	Certificates []CertificateSpec       `yaml:"certificates,omitempty" json:"certificates,omitempty"`
}

// Encode returns the canonical YAML encoding of the config. Struct field
// order is fixed, so identical configs encode byte-identically.
func (c *EffectiveConfig) Encode() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode effective config: %w", err)
	}
	return data, nil
}

// Checksum returns the SHA256 hex digest of the canonical encoding.
// Used for drift comparison and sync report identity.
func (c *EffectiveConfig) Checksum() (string, error) {
	data, err := c.Encode()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Tier returns the named tier spec, or nil if not present.
func (c *EffectiveConfig) Tier(name string) *TierSpec {
	for i := range c.Tiers {
		if c.Tiers[i].Name == name {
			return &c.Tiers[i]
		}
	}
	return nil
}

// Certificate returns the certificate spec for a domain, or nil.
func (c *EffectiveConfig) Certificate(domain string) *CertificateSpec {
	for i := range c.Certificates {
		if c.Certificates[i].Domain == domain {
			return &c.Certificates[i]
		}
	}
	return nil
}
