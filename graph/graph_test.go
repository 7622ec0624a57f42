package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/forge/forgeerr"
	"github.com/blueberrycongee/forge/graph"
)

func incHandler(_ context.Context, state graph.State) (graph.State, error) {
	s := state.(map[string]int)
	out := map[string]int{"count": s["count"] + 1}
	return out, nil
}

func TestCompileSimpleLinearGraph(t *testing.T) {
	g, err := graph.NewBuilder().
		AddNode("inc", incHandler).
		SetEntryPoint("inc").
		SetFinishPoint("inc").
		Compile()
	require.NoError(t, err)
	assert.Equal(t, "inc", g.EntryNode())

	out, err := g.InvokePlain(context.Background(), "inc", map[string]int{"count": 0})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"count": 1}, out)

	next, err := g.Next(context.Background(), "inc", out, "")
	require.NoError(t, err)
	assert.Equal(t, graph.End, next)
}

func TestCompileFailsWithoutEntryPoint(t *testing.T) {
	_, err := graph.NewBuilder().AddNode("inc", incHandler).Compile()
	require.Error(t, err)
	var fe *forgeerr.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, forgeerr.KindNoEntryPoint, fe.Kind)
}

func TestCompileFailsOnDuplicateNodeName(t *testing.T) {
	_, err := graph.NewBuilder().
		AddNode("inc", incHandler).
		AddNode("inc", incHandler).
		Compile()
	require.Error(t, err)
	var fe *forgeerr.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, forgeerr.KindNodeAlreadyExists, fe.Kind)
}

func TestCompileFailsOnSentinelNodeName(t *testing.T) {
	_, err := graph.NewBuilder().AddNode(graph.Start, incHandler).Compile()
	require.Error(t, err)
	var fe *forgeerr.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, forgeerr.KindInvalidNodeName, fe.Kind)
}

func TestCompileFailsOnDunderPrefixedNonSentinelName(t *testing.T) {
	_, err := graph.NewBuilder().AddNode("__foo__", incHandler).Compile()
	require.Error(t, err)
	var fe *forgeerr.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, forgeerr.KindInvalidNodeName, fe.Kind)
}

func TestCompileFailsOnEdgeToUndefinedNode(t *testing.T) {
	_, err := graph.NewBuilder().
		AddNode("inc", incHandler).
		SetEntryPoint("inc").
		AddEdge("inc", "missing").
		Compile()
	require.Error(t, err)
	var fe *forgeerr.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, forgeerr.KindInvalidEdge, fe.Kind)
}

func TestCompileFailsOnNoPathToEnd(t *testing.T) {
	_, err := graph.NewBuilder().
		AddNode("inc", incHandler).
		AddNode("dead_end", incHandler).
		SetEntryPoint("inc").
		AddEdge("inc", "dead_end").
		Compile()
	require.Error(t, err)
	var fe *forgeerr.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, forgeerr.KindNoEntryPoint, fe.Kind)
}

func TestCompileFailsOnOverlappingStaticAndConditionalEdges(t *testing.T) {
	router := func(context.Context, graph.State) (string, error) { return graph.End, nil }
	_, err := graph.NewBuilder().
		AddNode("branch", incHandler).
		SetEntryPoint("branch").
		AddConditionalEdges("branch", router, nil).
		AddEdge("branch", graph.End).
		Compile()
	require.Error(t, err)
	var fe *forgeerr.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, forgeerr.KindValidationError, fe.Kind)
}

func TestConditionalRoutingWithPathMap(t *testing.T) {
	router := func(_ context.Context, state graph.State) (string, error) {
		s := state.(map[string]int)
		if s["count"] > 0 {
			return "positive", nil
		}
		return "zero", nil
	}
	g, err := graph.NewBuilder().
		AddNode("branch", incHandler).
		SetEntryPoint("branch").
		AddConditionalEdges("branch", router, map[string]string{"positive": graph.End, "zero": graph.End}).
		Compile()
	require.NoError(t, err)

	next, err := g.Next(context.Background(), "branch", map[string]int{"count": 1}, "")
	require.NoError(t, err)
	assert.Equal(t, graph.End, next)
}

func TestExplicitOverrideWinsOverRouting(t *testing.T) {
	g, err := graph.NewBuilder().
		AddNode("inc", incHandler).
		AddNode("other", incHandler).
		SetEntryPoint("inc").
		SetFinishPoint("inc").
		SetFinishPoint("other").
		Compile()
	require.NoError(t, err)

	next, err := g.Next(context.Background(), "inc", map[string]int{}, "other")
	require.NoError(t, err)
	assert.Equal(t, "other", next)
}
