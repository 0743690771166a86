package capabilities

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	byQuery map[string][]*neo4j.Record
	err     error
	calls   int
}

func (f *fakeRunner) Run(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byQuery[cypher], nil
}

func recordWith(keys []string, values []any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func TestProbe_EnterpriseAndSSRDetected(t *testing.T) {
	runner := &fakeRunner{byQuery: map[string][]*neo4j.Record{
		"CALL dbms.components() YIELD edition RETURN edition": {
			recordWith([]string{"edition"}, []any{"enterprise"}),
		},
		"CALL dbms.listConfig() YIELD name, value WHERE name = 'dbms.routing.enabled' RETURN value": {
			recordWith([]string{"value"}, []any{"true"}),
		},
	}}
	cfg := DefaultConfig()
	cfg.RoutingScheme = true
	p := New(cfg, runner)

	snap := p.Ensure(context.Background())
	require.NotNil(t, snap)
	assert.True(t, snap.Enterprise)
	assert.True(t, snap.SSRAvailable())
}

func TestProbe_NonRoutingSchemeForcesSSRFalse(t *testing.T) {
	runner := &fakeRunner{byQuery: map[string][]*neo4j.Record{
		"CALL dbms.components() YIELD edition RETURN edition": {
			recordWith([]string{"edition"}, []any{"community"}),
		},
	}}
	cfg := DefaultConfig()
	cfg.RoutingScheme = false
	p := New(cfg, runner)

	snap := p.Ensure(context.Background())
	assert.False(t, snap.SSRAvailable())
	assert.False(t, snap.Enterprise)
}

func TestProbe_ProfileSSRSkipsListConfig(t *testing.T) {
	runner := &fakeRunner{byQuery: map[string][]*neo4j.Record{
		"CALL dbms.components() YIELD edition RETURN edition": {
			recordWith([]string{"edition"}, []any{"enterprise"}),
		},
	}}
	cfg := DefaultConfig()
	cfg.RoutingScheme = true
	cfg.ProfileSSR = true
	p := New(cfg, runner)

	snap := p.Ensure(context.Background())
	assert.True(t, snap.SSRAvailable())
}

func TestProbe_FallsBackToDefaultsOnConnectionFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("connection refused")}
	cfg := DefaultConfig()
	cfg.DefaultToSSR = true
	cfg.RetryMaxElapsedTime = 50 * time.Millisecond
	p := New(cfg, runner)

	snap := p.Ensure(context.Background())
	require.NotNil(t, snap)
	assert.True(t, snap.SSRAvailable())
	assert.False(t, snap.Enterprise)
}

func TestProbe_EnsureOnlyProbesOnce(t *testing.T) {
	runner := &fakeRunner{byQuery: map[string][]*neo4j.Record{
		"CALL dbms.components() YIELD edition RETURN edition": {
			recordWith([]string{"edition"}, []any{"community"}),
		},
		"CALL dbms.listConfig() YIELD name, value WHERE name = 'dbms.routing.enabled' RETURN value": {
			recordWith([]string{"value"}, []any{"false"}),
		},
	}}
	p := New(DefaultConfig(), runner)

	first := p.Ensure(context.Background())
	second := p.Ensure(context.Background())
	assert.Same(t, first, second)
	assert.Equal(t, 2, runner.calls, "exactly one probe round (components + listConfig)")
}
