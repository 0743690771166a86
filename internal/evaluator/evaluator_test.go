package evaluator

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

func TestClassifyTransactionMode(t *testing.T) {
	cases := []struct {
		name string
		text string
		want TransactionMode
	}{
		{"plain read", "MATCH (n) RETURN n", ModeManaged},
		{"call in transactions", "LOAD CSV FROM 'x' AS row CALL { WITH row CREATE (:N) } IN TRANSACTIONS", ModeImplicit},
		{"periodic commit", "USING PERIODIC COMMIT LOAD CSV FROM 'x' AS row CREATE (:N)", ModeImplicit},
		{"backtick-quoted lookalike", "MATCH (`using periodic commit`) RETURN 1", ModeManaged},
		{"string literal lookalike", "RETURN 'using periodic commit' AS x", ModeManaged},
		{"call block not iterating transactions", "CALL { MATCH (n) RETURN n }", ModeManaged},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyTransactionMode(tc.text))
		})
	}
}

// fakePlan is a minimal neo4j.Plan for operator-classification tests.
type fakePlan struct {
	operator string
	children []neo4j.Plan
}

func (p *fakePlan) Operator() string          { return p.operator }
func (p *fakePlan) Arguments() map[string]any { return nil }
func (p *fakePlan) Identifiers() []string     { return nil }
func (p *fakePlan) Children() []neo4j.Plan    { return p.children }

func TestClassifyTarget_ReadOnlyPlan(t *testing.T) {
	plan := &fakePlan{operator: "ProduceResults", children: []neo4j.Plan{
		(&fakePlan{operator: "NodeByLabelScan@neo4j"}).asPlan(),
	}}
	assert.Equal(t, TargetReaders, classifyTarget(plan))
}

func TestClassifyTarget_UpdatingOperator(t *testing.T) {
	plan := &fakePlan{operator: "ProduceResults", children: []neo4j.Plan{
		(&fakePlan{operator: "Create(0)"}).asPlan(),
	}}
	assert.Equal(t, TargetWriters, classifyTarget(plan))
}

func TestClassifyTarget_UnknownOperatorIsTreatedAsWriters(t *testing.T) {
	plan := (&fakePlan{operator: "SomeFutureOperatorNobodyHasHeardOf"}).asPlan()
	assert.Equal(t, TargetWriters, classifyTarget(plan))
}

func TestClassifyTarget_ExpandShapedPlanIsReadOnly(t *testing.T) {
	cases := []string{"Expand(All)", "Expand(Into)", "VarLengthExpand(All)", "OptionalExpand(All)"}
	for _, op := range cases {
		t.Run(op, func(t *testing.T) {
			plan := &fakePlan{operator: "ProduceResults", children: []neo4j.Plan{
				(&fakePlan{operator: op, children: []neo4j.Plan{
					(&fakePlan{operator: "NodeByLabelScan"}).asPlan(),
				}}).asPlan(),
			}}
			assert.Equal(t, TargetReaders, classifyTarget(plan), "%s must classify as a read, not fall through to __UNKNOWN__", op)
		})
	}
}

func (p *fakePlan) asPlan() neo4j.Plan { return p }

type fakeCapabilities struct{ ssr bool }

func (f fakeCapabilities) SSRAvailable() bool { return f.ssr }

type fakeRunner struct {
	calls int
	plan  neo4j.Plan
	err   error
}

func (r *fakeRunner) Explain(ctx context.Context, database, cypher string) (neo4j.Plan, error) {
	r.calls++
	return r.plan, r.err
}

func TestEvaluator_Classify_SSRAvailableSkipsExplain(t *testing.T) {
	runner := &fakeRunner{}
	ev := New(fakeCapabilities{ssr: true}, runner, nil)

	req, err := ev.Classify(context.Background(), "neo4j", "MATCH (n) RETURN n")
	require.NoError(t, err)
	assert.Equal(t, TargetAuto, req.Target)
	assert.Equal(t, 0, runner.calls)
}

func TestEvaluator_Classify_CachesByQueryText(t *testing.T) {
	runner := &fakeRunner{plan: (&fakePlan{operator: "AllNodesScan"}).asPlan()}
	ev := New(fakeCapabilities{ssr: false}, runner, nil)

	req1, err := ev.Classify(context.Background(), "neo4j", "MATCH (n) RETURN n")
	require.NoError(t, err)
	assert.Equal(t, TargetReaders, req1.Target)

	req2, err := ev.Classify(context.Background(), "neo4j", "MATCH (n) RETURN n")
	require.NoError(t, err)
	assert.Equal(t, TargetReaders, req2.Target)
	assert.Equal(t, 1, runner.calls, "second classification should hit the cache, not EXPLAIN again")
}

func TestEvaluator_Classify_ExplainSyntaxErrorSurfacesAsInvalidQuery(t *testing.T) {
	runner := &fakeRunner{err: sserr.New(sserr.CodeInvalidQuery, "MATCH n RETURN n")}
	ev := New(fakeCapabilities{ssr: false}, runner, nil)

	_, err := ev.Classify(context.Background(), "neo4j", "MATCH n RETURN n")
	require.Error(t, err)
	assert.True(t, sserr.HasCode(err, sserr.CodeInvalidQuery))
}

func TestEvaluator_Classify_OtherExplainFailureSurfacesAsDatabaseError(t *testing.T) {
	runner := &fakeRunner{err: assert.AnError}
	ev := New(fakeCapabilities{ssr: false}, runner, nil)

	_, err := ev.Classify(context.Background(), "neo4j", "MATCH (n) RETURN n")
	require.Error(t, err)
	assert.True(t, sserr.HasCode(err, sserr.CodeDatabaseError))
}

// fakeRequirementsCache is a minimal in-memory RequirementsCache for
// exercising the external-cache path without internal/evalcache.
type fakeRequirementsCache struct {
	entries map[string]Requirements
	gets    int
	sets    int
}

func (c *fakeRequirementsCache) Get(ctx context.Context, key string) (Requirements, bool) {
	c.gets++
	req, ok := c.entries[key]
	return req, ok
}

func (c *fakeRequirementsCache) Set(ctx context.Context, key string, req Requirements) {
	c.sets++
	if c.entries == nil {
		c.entries = map[string]Requirements{}
	}
	c.entries[key] = req
}

func TestEvaluator_Classify_PopulatesExternalCacheOnMiss(t *testing.T) {
	runner := &fakeRunner{plan: (&fakePlan{operator: "AllNodesScan"}).asPlan()}
	external := &fakeRequirementsCache{}
	ev := New(fakeCapabilities{ssr: false}, runner, external)

	req, err := ev.Classify(context.Background(), "neo4j", "MATCH (n) RETURN n")
	require.NoError(t, err)
	assert.Equal(t, TargetReaders, req.Target)
	assert.Equal(t, 1, external.sets)
}

func TestEvaluator_Classify_ExternalCacheHitSkipsExplain(t *testing.T) {
	runner := &fakeRunner{}
	external := &fakeRequirementsCache{entries: map[string]Requirements{
		"MATCH (n) RETURN n": {Target: TargetWriters, TransactionMode: ModeManaged},
	}}
	ev := New(fakeCapabilities{ssr: false}, runner, external)

	req, err := ev.Classify(context.Background(), "neo4j", "MATCH (n) RETURN n")
	require.NoError(t, err)
	assert.Equal(t, TargetWriters, req.Target)
	assert.Equal(t, 0, runner.calls, "external cache hit must skip EXPLAIN")
}

func TestEvaluator_Classify_LocalCacheShadowsExternalAfterFirstHit(t *testing.T) {
	runner := &fakeRunner{plan: (&fakePlan{operator: "AllNodesScan"}).asPlan()}
	external := &fakeRequirementsCache{}
	ev := New(fakeCapabilities{ssr: false}, runner, external)

	_, err := ev.Classify(context.Background(), "neo4j", "MATCH (n) RETURN n")
	require.NoError(t, err)
	_, err = ev.Classify(context.Background(), "neo4j", "MATCH (n) RETURN n")
	require.NoError(t, err)

	assert.Equal(t, 0, external.gets, "local sync.Map hit on the second call must never consult the external cache")
}
