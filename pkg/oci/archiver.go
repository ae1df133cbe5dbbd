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

package oci

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/NVIDIA/stack-orchestrator/pkg/config"
	apperrors "github.com/NVIDIA/stack-orchestrator/pkg/errors"
	"github.com/NVIDIA/stack-orchestrator/pkg/report"
)

// ArtifactType is the media type for archived reconciliation cycles.
const ArtifactType = "application/vnd.nvidia.taxis.cycle"

// File names inside an archived cycle.
const (
	ConfigFileName = "effective-config.yaml"
	ReportFileName = "sync-report.json"
)

// Manifest annotation keys attached to each archived cycle.
const (
	AnnotationReportID       = "com.nvidia.taxis.report-id"
	AnnotationConfigChecksum = "com.nvidia.taxis.config-checksum"
)

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithPlainHTTP uses HTTP instead of HTTPS for the registry connection.
func WithPlainHTTP(plain bool) ArchiverOption {
	return func(a *Archiver) { a.plainHTTP = plain }
}

// WithInsecureTLS skips TLS certificate verification on registry pushes.
func WithInsecureTLS(insecure bool) ArchiverOption {
	return func(a *Archiver) { a.insecureTLS = insecure }
}

// WithArchiverLogger sets the logger used for archive operations.
func WithArchiverLogger(log *slog.Logger) ArchiverOption {
	return func(a *Archiver) {
		if log != nil {
			a.log = log
		}
	}
}

// Archiver publishes completed reconciliation cycles to an OCI registry or
// a local directory. It satisfies the reconciler's archiver contract.
type Archiver struct {
	ref         *Reference
	plainHTTP   bool
	insecureTLS bool
	log         *slog.Logger
}

// NewArchiver creates an archiver for the given target. Targets with the
// oci:// scheme push to a registry; plain paths write directories.
func NewArchiver(target string, opts ...ArchiverOption) (*Archiver, error) {
	ref, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	if !ref.IsOCI && ref.LocalPath == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "archive target is required")
	}

	a := &Archiver{
		ref: ref,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Archive records one completed cycle: the effective configuration and the
// sync report that applied it.
func (a *Archiver) Archive(ctx context.Context, cfg *config.EffectiveConfig, rep *report.SyncReport) error {
	if cfg == nil || rep == nil {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "config and report are required to archive a cycle")
	}

	if !a.ref.IsOCI {
		return a.archiveLocal(cfg, rep)
	}
	return a.push(ctx, cfg, rep)
}

// archiveLocal writes the cycle under <target>/<report-id>/.
func (a *Archiver) archiveLocal(cfg *config.EffectiveConfig, rep *report.SyncReport) error {
	dir := filepath.Join(a.ref.LocalPath, rep.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create archive directory", err)
	}
	if err := writeCycle(dir, cfg, rep); err != nil {
		return err
	}

	a.log.Info("cycle archived locally", "report", rep.ID, "path", dir)
	return nil
}

// push packages the cycle as an OCI artifact and pushes it with ORAS.
func (a *Archiver) push(ctx context.Context, cfg *config.EffectiveConfig, rep *report.SyncReport) error {
	stageDir, err := os.MkdirTemp("", "taxis-archive-*")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create staging directory", err)
	}
	defer func() { _ = os.RemoveAll(stageDir) }()

	if err := writeCycle(stageDir, cfg, rep); err != nil {
		return err
	}

	// Untagged targets get one artifact per cycle, tagged by report ID.
	tag := a.ref.Tag
	if tag == "" {
		tag = rep.ID
	}

	fs, err := file.New(stageDir)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create file store", err)
	}
	defer func() { _ = fs.Close() }()
	fs.TarReproducible = true

	layerDesc, err := fs.Add(ctx, ".", ociv1.MediaTypeImageLayerGzip, stageDir)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to stage cycle in file store", err)
	}

	manifestDesc, err := oras.PackManifest(ctx, fs, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers: []ociv1.Descriptor{layerDesc},
		ManifestAnnotations: map[string]string{
			ociv1.AnnotationCreated:  rep.CompletedAt.UTC().Format(time.RFC3339),
			AnnotationReportID:       rep.ID,
			AnnotationConfigChecksum: rep.ConfigChecksum,
		},
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to pack cycle manifest", err)
	}

	if err := fs.Tag(ctx, manifestDesc, tag); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to tag cycle manifest", err)
	}

	repo, err := remote.NewRepository(fmt.Sprintf("%s/%s", a.ref.Registry, a.ref.Repository))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to initialize remote repository", err)
	}
	repo.PlainHTTP = a.plainHTTP
	repo.Client = newAuthClient(a.plainHTTP, a.insecureTLS)

	desc, err := oras.Copy(ctx, fs, tag, repo, tag, oras.DefaultCopyOptions)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeUnavailable, "failed to push cycle to registry", err)
	}

	a.log.Info("cycle archived to registry",
		"report", rep.ID,
		"reference", a.ref.WithTag(tag).ImageReference(),
		"digest", desc.Digest.String(),
	)
	return nil
}

// writeCycle renders the config and report files into dir.
func writeCycle(dir string, cfg *config.EffectiveConfig, rep *report.SyncReport) error {
	cfgBytes, err := cfg.Encode()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to encode configuration", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), cfgBytes, 0o644); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to write configuration file", err)
	}

	repBytes, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to encode sync report", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ReportFileName), repBytes, 0o644); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to write sync report file", err)
	}
	return nil
}

// newAuthClient builds the registry client, wiring Docker credential
// helpers and the requested TLS posture.
func newAuthClient(plainHTTP, insecureTLS bool) *auth.Client {
	credStore, _ := credentials.NewStoreFromDocker(credentials.StoreOptions{})

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !plainHTTP && insecureTLS {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
		}
	}

	return &auth.Client{
		Client:     &http.Client{Transport: transport},
		Cache:      auth.NewCache(),
		Credential: credentials.Credential(credStore),
	}
}
