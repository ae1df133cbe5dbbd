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

package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/NVIDIA/stack-orchestrator/pkg/certificate"
	"github.com/NVIDIA/stack-orchestrator/pkg/config"
	"github.com/NVIDIA/stack-orchestrator/pkg/defaults"
	"github.com/NVIDIA/stack-orchestrator/pkg/observer"
	"github.com/NVIDIA/stack-orchestrator/pkg/report"
	"github.com/NVIDIA/stack-orchestrator/pkg/sequencer"
	"github.com/NVIDIA/stack-orchestrator/pkg/store"
	"github.com/NVIDIA/stack-orchestrator/pkg/tier"
)

// Resolver produces the effective config for a cycle, typically by loading
// and merging the configured layer files.
type Resolver func(ctx context.Context) (*config.EffectiveConfig, error)

// Pruner deletes one orphaned live workload.
type Pruner interface {
	Prune(ctx context.Context, workload string) error
}

// PrunerFunc adapts a function to the Pruner interface.
type PrunerFunc func(ctx context.Context, workload string) error

// Prune implements Pruner.
func (f PrunerFunc) Prune(ctx context.Context, workload string) error {
	return f(ctx, workload)
}

// Archiver publishes a completed cycle for audit, e.g. as an OCI artifact.
type Archiver interface {
	Archive(ctx context.Context, cfg *config.EffectiveConfig, rep *report.SyncReport) error
}

// Option configures a Loop.
type Option func(*Loop)

// WithCertificates sets the certificate lifecycle manager ticked each cycle.
func WithCertificates(m *certificate.Manager) Option {
	return func(l *Loop) { l.certs = m }
}

// WithObserver sets the live-state snapshot capability. Without it the loop
// deploys but cannot detect drift or orphans.
func WithObserver(o observer.Observer) Option {
	return func(l *Loop) { l.obs = o }
}

// WithStore sets the persistence backend.
func WithStore(s store.Store) Option {
	return func(l *Loop) { l.store = s }
}

// WithPruner sets the orphan deletion capability.
func WithPruner(p Pruner) Option {
	return func(l *Loop) { l.pruner = p }
}

// WithArchiver sets the post-cycle audit publisher.
func WithArchiver(a Archiver) Option {
	return func(l *Loop) { l.archiver = a }
}

// WithInterval overrides the cycle interval for Run.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}

// Loop is the reconciliation loop. It owns the rollout sequencer and is the
// only writer of tier and certificate state.
type Loop struct {
	resolver Resolver
	seq      *sequencer.Sequencer
	certs    *certificate.Manager
	obs      observer.Observer
	store    store.Store
	pruner   Pruner
	archiver Archiver

	interval time.Duration
	trigger  chan struct{}
	log      *slog.Logger

	mu      sync.RWMutex
	last    *report.SyncReport
	lastCfg *config.EffectiveConfig
}

// New creates a Loop. The resolver supplies config per cycle; the probe is
// the shared tier readiness predicate.
func New(resolver Resolver, probe tier.Probe, opts ...Option) *Loop {
	l := &Loop{
		resolver: resolver,
		seq:      sequencer.New(nil, probe),
		interval: defaults.ReconcileInterval,
		trigger:  make(chan struct{}, 1),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Recover reloads persisted state into the sequencer and certificate manager.
// Call once on startup, before the first cycle. A missing store is a no-op.
func (l *Loop) Recover(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	cfg, err := l.store.LoadConfig(ctx)
	if err == nil {
		l.seq.SetTiers(tier.FromSpecs(cfg.Tiers))
		l.mu.Lock()
		l.lastCfg = cfg
		l.mu.Unlock()
	}

	statuses, err := l.store.ListTierStatuses(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover tier statuses: %w", err)
	}
	l.seq.Restore(statuses)

	if l.certs != nil {
		reqs, err := l.store.ListCertificates(ctx)
		if err != nil {
			return fmt.Errorf("failed to recover certificate requests: %w", err)
		}
		l.certs.Restore(reqs)
	}

	l.log.Info("recovered persisted state", "tiers", len(statuses))
	return nil
}

// Run cycles until ctx is cancelled, on the configured interval or when
// triggered. Cycle errors are logged and counted, never fatal to the loop.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.log.Info("reconciliation loop started", "interval", l.interval)

	// first cycle immediately, then on schedule
	l.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			l.log.Info("reconciliation loop stopped")
			return ctx.Err()
		case <-ticker.C:
			l.runCycle(ctx)
		case <-l.trigger:
			l.runCycle(ctx)
		}
	}
}

// Trigger requests an immediate cycle. Non-blocking; coalesces with a cycle
// already pending.
func (l *Loop) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

func (l *Loop) runCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, defaults.ReconcileCycleTimeout)
	defer cancel()

	if _, err := l.Reconcile(cycleCtx); err != nil {
		l.log.Error("reconcile cycle failed", "error", err)
	}
}

// Reconcile runs one cycle: resolve, observe, diff, converge, record.
// The returned report is complete and already persisted when a store is
// configured.
func (l *Loop) Reconcile(ctx context.Context) (*report.SyncReport, error) {
	start := time.Now()

	cfg, err := l.resolver(ctx)
	if err != nil {
		cyclesTotal.WithLabelValues("config_error").Inc()
		rep := report.New("")
		rep.Error = err.Error()
		rep.Complete()
		l.finish(ctx, nil, rep)
		return rep, err
	}

	checksum, err := cfg.Checksum()
	if err != nil {
		return nil, err
	}
	rep := report.New(checksum)

	// desired set changes: new tiers/domains picked up, removed ones torn down
	l.applyDesired(cfg, rep)

	if l.obs != nil {
		state, obsErr := l.obs.Observe(ctx)
		if obsErr != nil {
			l.log.Error("live state observation failed", "error", obsErr)
			rep.Error = obsErr.Error()
		} else {
			rep.Drifts = observer.Compare(cfg, state)
			l.correct(ctx, cfg, rep)
		}
	}

	if err := l.seq.Step(ctx); err != nil {
		l.log.Error("rollout step failed", "error", err)
		rep.Error = err.Error()
	} else {
		rep.Record(report.Action{Kind: report.ActionDeploy, Detail: "rollout step"})
	}

	if l.certs != nil {
		if err := l.certs.Tick(ctx); err != nil {
			l.log.Error("certificate tick failed", "error", err)
			rep.Error = err.Error()
		} else {
			rep.Record(report.Action{Kind: report.ActionCertificate, Detail: "lifecycle tick"})
		}
	}

	statuses := l.seq.Statuses()
	rep.Tiers = make([]*tier.Status, 0, len(statuses))
	for i := range statuses {
		rep.Tiers = append(rep.Tiers, &statuses[i])
	}
	if l.certs != nil {
		rep.Certificates = l.certs.Statuses()
	}

	rep.Complete()
	l.finish(ctx, cfg, rep)

	cycleDuration.Observe(time.Since(start).Seconds())
	if rep.Error == "" {
		cyclesTotal.WithLabelValues("ok").Inc()
	} else {
		cyclesTotal.WithLabelValues("error").Inc()
	}

	l.log.Info("reconcile cycle completed",
		"report", rep.ID,
		"drifts", len(rep.Drifts),
		"duration", time.Since(start),
	)
	return rep, nil
}

// applyDesired pushes the resolved config into the sequencer and certificate
// manager, recording teardown of anything no longer desired.
func (l *Loop) applyDesired(cfg *config.EffectiveConfig, rep *report.SyncReport) {
	before := make(map[string]bool)
	for _, status := range l.seq.Statuses() {
		before[status.Name] = true
	}
	l.seq.SetTiers(tier.FromSpecs(cfg.Tiers))
	for name := range before {
		if cfg.Tier(name) == nil {
			rep.Record(report.Action{Kind: report.ActionTeardown, Tier: name})
		}
	}

	if l.certs != nil {
		beforeCerts := make(map[string]bool)
		for _, req := range l.certs.Statuses() {
			beforeCerts[req.Domain] = true
		}
		if err := l.certs.SetDesired(cfg.Certificates); err != nil {
			l.log.Error("failed to apply desired certificates", "error", err)
			rep.Error = err.Error()
			return
		}
		for domain := range beforeCerts {
			if cfg.Certificate(domain) == nil {
				rep.Record(report.Action{Kind: report.ActionTeardown, Domain: domain})
			}
		}
	}
}

// correct reacts to drift findings: managed tiers are re-queued for
// convergence, orphans are pruned where the tier allows it.
func (l *Loop) correct(ctx context.Context, cfg *config.EffectiveConfig, rep *report.SyncReport) {
	for _, d := range rep.Drifts {
		driftsDetected.WithLabelValues(string(d.Kind)).Inc()

		switch d.Kind {
		case observer.DriftModified:
			spec := cfg.Tier(d.Tier)
			if spec == nil || !spec.Managed {
				continue
			}
			if err := l.seq.MarkDrift(d.Tier); err != nil {
				l.log.Warn("failed to mark drift", "tier", d.Tier, "error", err)
				continue
			}
			rep.Record(report.Action{
				Kind: report.ActionHeal, Tier: d.Tier, Workload: d.Workload,
				Detail: fmt.Sprintf("revert %s drift", d.Field),
			})

		case observer.DriftMissing:
			// the rollout step redeploys missing workloads; nothing extra here

		case observer.DriftOrphaned:
			spec := cfg.Tier(d.Tier)
			if spec == nil || !spec.Prune || l.pruner == nil {
				rep.Record(report.Action{Kind: report.ActionSkipPrune, Tier: d.Tier, Workload: d.Workload})
				continue
			}
			if err := l.pruner.Prune(ctx, d.Workload); err != nil {
				l.log.Error("failed to prune orphan", "workload", d.Workload, "error", err)
				continue
			}
			prunesTotal.Inc()
			rep.Record(report.Action{Kind: report.ActionPrune, Tier: d.Tier, Workload: d.Workload})
		}
	}
}

// finish persists cycle results and publishes the report.
func (l *Loop) finish(ctx context.Context, cfg *config.EffectiveConfig, rep *report.SyncReport) {
	l.mu.Lock()
	l.last = rep
	if cfg != nil {
		l.lastCfg = cfg
	}
	l.mu.Unlock()

	if l.store != nil {
		if cfg != nil {
			if err := l.store.SaveConfig(ctx, cfg); err != nil {
				l.log.Error("failed to persist config", "error", err)
			}
		}
		l.persistStatuses(ctx, rep)
		if err := l.store.AppendReport(ctx, rep); err != nil {
			l.log.Error("failed to persist sync report", "report", rep.ID, "error", err)
		}
	}

	if l.archiver != nil && cfg != nil {
		if err := l.archiver.Archive(ctx, cfg, rep); err != nil {
			l.log.Error("failed to archive cycle", "report", rep.ID, "error", err)
		}
	}
}

// persistStatuses upserts current tier and certificate state and deletes
// store rows for anything torn down this cycle.
func (l *Loop) persistStatuses(ctx context.Context, rep *report.SyncReport) {
	current := make(map[string]bool, len(rep.Tiers))
	for _, status := range rep.Tiers {
		current[status.Name] = true
		if err := l.store.SaveTierStatus(ctx, status); err != nil {
			l.log.Error("failed to persist tier status", "tier", status.Name, "error", err)
		}
	}
	if persisted, err := l.store.ListTierStatuses(ctx); err == nil {
		for _, status := range persisted {
			if !current[status.Name] {
				_ = l.store.DeleteTierStatus(ctx, status.Name)
			}
		}
	}

	currentCerts := make(map[string]bool, len(rep.Certificates))
	for _, req := range rep.Certificates {
		currentCerts[req.Domain] = true
		if err := l.store.SaveCertificate(ctx, req); err != nil {
			l.log.Error("failed to persist certificate request", "domain", req.Domain, "error", err)
		}
	}
	if persisted, err := l.store.ListCertificates(ctx); err == nil {
		for _, req := range persisted {
			if !currentCerts[req.Domain] {
				_ = l.store.DeleteCertificate(ctx, req.Domain)
			}
		}
	}
}

// IngressReachable reports whether the routing prerequisite for a domain's
// certificate challenge is satisfied: every tier serving the ingress path
// rules for that host is Ready. Before the first resolved config nothing is
// routable. A domain the ingress does not route has no routing prerequisite
// and reports reachable.
func (l *Loop) IngressReachable(_ context.Context, domain string) (bool, error) {
	l.mu.RLock()
	cfg := l.lastCfg
	l.mu.RUnlock()

	if cfg == nil {
		return false, nil
	}
	if cfg.Ingress.Host != domain {
		return true, nil
	}

	for _, rule := range cfg.Ingress.Paths {
		for _, spec := range cfg.Tiers {
			if !serves(spec, rule.Workload) {
				continue
			}
			status, err := l.seq.Status(spec.Name)
			if err != nil || status.State != tier.StateReady {
				return false, nil
			}
		}
	}
	return true, nil
}

func serves(spec config.TierSpec, workload string) bool {
	for _, w := range spec.Workloads {
		if w == workload {
			return true
		}
	}
	return false
}

// LastReport returns the most recent cycle report, or nil before any cycle.
func (l *Loop) LastReport() *report.SyncReport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

// Plan returns the current wave plan.
func (l *Loop) Plan() ([][]*tier.Tier, error) {
	return l.seq.Plan()
}

// TierStatuses returns rollout state snapshots for all tiers.
func (l *Loop) TierStatuses() []tier.Status {
	return l.seq.Statuses()
}

// TierStatus returns one tier's rollout state.
func (l *Loop) TierStatus(name string) (tier.Status, error) {
	return l.seq.Status(name)
}

// CertificateStatuses returns snapshots of all certificate requests.
func (l *Loop) CertificateStatuses() []*certificate.Request {
	if l.certs == nil {
		return nil
	}
	return l.certs.Statuses()
}

// CertificateStatus returns one domain's certificate request.
func (l *Loop) CertificateStatus(domain string) (*certificate.Request, error) {
	if l.certs == nil {
		return nil, fmt.Errorf("certificate management is not enabled")
	}
	return l.certs.Status(domain)
}

// RetryTier is the operator override for an exhausted Failed tier.
func (l *Loop) RetryTier(name string) error {
	if err := l.seq.ForceRetry(name); err != nil {
		return err
	}
	l.Trigger()
	return nil
}

// RetryCertificate is the operator override for an exhausted Failed request.
func (l *Loop) RetryCertificate(domain string) error {
	if l.certs == nil {
		return fmt.Errorf("certificate management is not enabled")
	}
	if err := l.certs.ForceRetry(domain); err != nil {
		return err
	}
	l.Trigger()
	return nil
}

// CancelTier abandons a tier's in-flight rollout state.
func (l *Loop) CancelTier(name string) error {
	return l.seq.Cancel(name)
}

// CancelCertificate abandons a domain's in-flight request.
func (l *Loop) CancelCertificate(domain string) error {
	if l.certs == nil {
		return fmt.Errorf("certificate management is not enabled")
	}
	return l.certs.Cancel(domain)
}
