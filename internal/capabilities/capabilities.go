// Package capabilities probes, once at startup, which optional behaviors
// the connected Neo4j deployment supports: whether it is Enterprise
// edition and whether server-side routing (SSR) lets the database pick
// read/write targets on its own.
package capabilities

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

// Snapshot is the process-wide, immutable result of the capabilities
// probe. It satisfies evaluator.Capabilities.
type Snapshot struct {
	SSR        bool
	Enterprise bool
}

// SSRAvailable implements evaluator.Capabilities.
func (s Snapshot) SSRAvailable() bool { return s.SSR }

// EnterpriseEdition implements orchestrator.Capabilities. Impersonation is an
// Enterprise-only Neo4j feature; Community Edition rejects a session config
// carrying ImpersonatedUser outright.
func (s Snapshot) EnterpriseEdition() bool { return s.Enterprise }

// Runner is the subset of the Bolt driver the probe needs: a single
// auto-commit query against the default database.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
}

// Config controls probe behavior and startup fallbacks.
type Config struct {
	// RoutingScheme reports whether the configured driver URI used the
	// routing scheme (neo4j://, as opposed to bolt://). SSR is impossible
	// without it regardless of what the database reports.
	RoutingScheme bool

	// ProfileSSR, when true and RoutingScheme is also true, forces
	// ssrAvailable=true and skips the dbms.listConfig probe entirely
	// (spec.md §4.3 "a configured profile explicitly demands SSR"). Without
	// the routing scheme SSR stays false regardless.
	ProfileSSR bool

	// DefaultToSSR is the fallback ssrAvailable value used when the probe
	// cannot reach the database at startup.
	DefaultToSSR bool

	// RetryMaxElapsedTime bounds how long the startup probe retries
	// transient connection failures before falling back to defaults.
	RetryMaxElapsedTime time.Duration
}

// DefaultConfig returns probe defaults: routing scheme assumed, SSR not
// forced, falls back to SSR disabled and community edition after 10s of
// retries.
func DefaultConfig() Config {
	return Config{
		RoutingScheme:       true,
		DefaultToSSR:        false,
		RetryMaxElapsedTime: 10 * time.Second,
	}
}

// Probe computes and publishes the Snapshot exactly once.
type Probe struct {
	cfg     Config
	runner  Runner
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// New constructs a Probe. Call Ensure before reading Current.
func New(cfg Config, runner Runner) *Probe {
	return &Probe{cfg: cfg, runner: runner}
}

// Current returns the published Snapshot, or nil if Ensure has not run
// yet. Safe for concurrent use; readers after Ensure returns always
// observe a fully constructed Snapshot (double-checked atomic-pointer
// publish, the same discipline the teacher uses for other process-wide
// state).
func (p *Probe) Current() *Snapshot {
	return p.current.Load()
}

// Ensure runs the probe if it has not already published a Snapshot,
// retrying transient connection failures up to cfg.RetryMaxElapsedTime
// before falling back to the configured defaults. It is safe to call from
// multiple goroutines; only the first caller actually probes.
func (p *Probe) Ensure(ctx context.Context) *Snapshot {
	if existing := p.current.Load(); existing != nil {
		return existing
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing := p.current.Load(); existing != nil {
		return existing
	}

	snap := p.probeWithRetry(ctx)
	p.current.Store(&snap)
	return &snap
}

func (p *Probe) probeWithRetry(ctx context.Context) Snapshot {
	var snap Snapshot
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = p.cfg.RetryMaxElapsedTime

	op := func() error {
		s, err := p.probeOnce(ctx)
		if err != nil {
			return err
		}
		snap = s
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return Snapshot{SSR: p.cfg.DefaultToSSR, Enterprise: false}
	}
	return snap
}

func (p *Probe) probeOnce(ctx context.Context) (Snapshot, error) {
	enterprise, err := p.probeEnterprise(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	if !p.cfg.RoutingScheme {
		return Snapshot{SSR: false, Enterprise: enterprise}, nil
	}
	if p.cfg.ProfileSSR {
		return Snapshot{SSR: true, Enterprise: enterprise}, nil
	}

	ssr, err := p.probeSSR(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{SSR: ssr, Enterprise: enterprise}, nil
}

func (p *Probe) probeEnterprise(ctx context.Context) (bool, error) {
	records, err := p.runner.Run(ctx, "CALL dbms.components() YIELD edition RETURN edition", nil)
	if err != nil {
		return false, sserr.Wrap(err, sserr.CodeUnavailableDependency, "capabilities: dbms.components probe failed")
	}
	for _, rec := range records {
		v, ok := rec.Get("edition")
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && strings.EqualFold(s, "enterprise") {
			return true, nil
		}
	}
	return false, nil
}

func (p *Probe) probeSSR(ctx context.Context) (bool, error) {
	records, err := p.runner.Run(ctx,
		"CALL dbms.listConfig() YIELD name, value WHERE name = 'dbms.routing.enabled' RETURN value", nil)
	if err != nil {
		return false, sserr.Wrap(err, sserr.CodeUnavailableDependency, "capabilities: dbms.listConfig probe failed")
	}
	for _, rec := range records {
		v, ok := rec.Get("value")
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			return strings.EqualFold(s, "true"), nil
		}
	}
	return false, nil
}
