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

package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/stack-orchestrator/pkg/certificate"
	"github.com/NVIDIA/stack-orchestrator/pkg/config"
	"github.com/NVIDIA/stack-orchestrator/pkg/logging"
	"github.com/NVIDIA/stack-orchestrator/pkg/observer/k8s"
	"github.com/NVIDIA/stack-orchestrator/pkg/oci"
	"github.com/NVIDIA/stack-orchestrator/pkg/reconciler"
	"github.com/NVIDIA/stack-orchestrator/pkg/server"
	"github.com/NVIDIA/stack-orchestrator/pkg/store"
	"github.com/NVIDIA/stack-orchestrator/pkg/store/memory"
	"github.com/NVIDIA/stack-orchestrator/pkg/store/rdb"
)

const (
	name           = "taxisd"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/NVIDIA/stack-orchestrator/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Options configures the daemon.
type Options struct {
	// ConfigFiles are the layered configuration sources, lowest precedence
	// first. At least one is required.
	ConfigFiles []string

	// Namespace is the cluster namespace the orchestrator manages.
	Namespace string

	// Kubeconfig overrides automatic cluster configuration discovery.
	Kubeconfig string

	// DatabaseURL selects the state store ("sqlite:/var/lib/taxis/state.db").
	// Empty uses a non-persistent in-memory store.
	DatabaseURL string

	// AuthorityURL is the certificate authority endpoint. Empty disables
	// challenge submission; certificate requests stay Pending.
	AuthorityURL string

	// ArchiveTarget receives completed cycles: an oci:// reference or a
	// local directory. Empty disables archival.
	ArchiveTarget string

	// Interval between reconcile cycles; zero uses the default.
	Interval time.Duration

	// Port for the HTTP API; zero uses the server default.
	Port int

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Serve runs the daemon and blocks until shutdown. It builds the full
// stack from the options, recovers persisted state, and runs the
// reconciliation loop and HTTP server until SIGINT/SIGTERM.
func Serve(opts Options) error {
	logging.SetDefaultStructuredLoggerWithLevel(name, version, opts.LogLevel)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	if len(opts.ConfigFiles) == 0 {
		return fmt.Errorf("at least one configuration file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(opts.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Warn("failed to close state store", "error", closeErr)
		}
	}()

	var client k8s.Interface
	if opts.Kubeconfig != "" {
		client, _, err = k8s.BuildClient(opts.Kubeconfig)
	} else {
		client, _, err = k8s.GetClient()
	}
	if err != nil {
		return fmt.Errorf("failed to create cluster client: %w", err)
	}
	obs := k8s.New(client, opts.Namespace)
	probe := k8s.TierProbe(client, opts.Namespace)

	// The reachability check closes over the loop, which is built below with
	// the manager it gates; the check only runs once the loop is cycling.
	var loop *reconciler.Loop
	certOpts := []certificate.Option{
		certificate.WithReachability(func(ctx context.Context, domain string) (bool, error) {
			return loop.IngressReachable(ctx, domain)
		}),
	}
	if opts.AuthorityURL != "" {
		certOpts = append(certOpts, certificate.WithAuthority(certificate.NewHTTPAuthority(opts.AuthorityURL)))
	}
	certs := certificate.NewManager(certOpts...)

	loopOpts := []reconciler.Option{
		reconciler.WithCertificates(certs),
		reconciler.WithObserver(obs),
		reconciler.WithStore(st),
		reconciler.WithPruner(obs),
	}
	if opts.Interval > 0 {
		loopOpts = append(loopOpts, reconciler.WithInterval(opts.Interval))
	}
	if opts.ArchiveTarget != "" {
		arch, archErr := oci.NewArchiver(opts.ArchiveTarget)
		if archErr != nil {
			return fmt.Errorf("invalid archive target: %w", archErr)
		}
		loopOpts = append(loopOpts, reconciler.WithArchiver(arch))
	}

	resolver := func(context.Context) (*config.EffectiveConfig, error) {
		layers, layerErr := config.LoadLayerFiles(opts.ConfigFiles...)
		if layerErr != nil {
			return nil, layerErr
		}
		return config.Resolve(layers...)
	}

	loop = reconciler.New(resolver, probe, loopOpts...)

	// Resume from persisted state so a restart does not replay completed
	// work or re-contact the authority for issued certificates.
	if err := loop.Recover(ctx); err != nil {
		slog.Warn("state recovery incomplete, starting fresh", "error", err)
	}

	srvCfg := server.NewConfig()
	srvCfg.Name = name
	srvCfg.Version = version
	if opts.Port > 0 {
		srvCfg.Port = opts.Port
	}
	srv := server.NewServer(srvCfg, loop, server.WithReportLister(st))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return srv.Start(gctx) })

	if _, err := sd.SdNotify(false, sd.SdNotifyReady); err != nil {
		slog.Debug("systemd notify skipped", "error", err)
	}

	err = g.Wait()

	if _, notifyErr := sd.SdNotify(false, sd.SdNotifyStopping); notifyErr != nil {
		slog.Debug("systemd notify skipped", "error", notifyErr)
	}

	if err != nil {
		slog.Error("daemon exited with error", "error", err)
		return err
	}

	slog.Info("daemon stopped gracefully")
	return nil
}

// openStore selects the store backend from the database URL.
func openStore(dbURL string) (store.Store, error) {
	if dbURL == "" {
		slog.Warn("no database configured, state will not survive restarts")
		return memory.New(), nil
	}
	return rdb.Open(dbURL)
}
