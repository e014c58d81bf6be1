// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package age

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairn-dev/cairn/internal/store"
)

// fakeHops serves neighbors from an adjacency map and records each query.
func fakeHops(edges map[string][]string, calls *[]string) hopFunc {
	return func(_ context.Context, id string) ([]hop, error) {
		if calls != nil {
			*calls = append(*calls, id)
		}
		var out []hop
		for _, to := range edges[id] {
			out = append(out, hop{
				ID:        to,
				Label:     store.LabelMemory,
				Name:      "name " + to,
				Relation:  store.RelRelatesTo,
				Direction: store.DirectionOutgoing,
			})
		}
		return out, nil
	}
}

func ids(nodes []*store.RelatedNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestTraverse_DepthTwoChain(t *testing.T) {
	edges := map[string][]string{
		"m1": {"m2"},
		"m2": {"m3"},
		"m3": {"m4"},
	}

	got, err := traverse(context.Background(), "m1", 2, fakeHops(edges, nil))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "m2", got[0].ID)
	assert.Equal(t, 1, got[0].Depth)
	assert.Equal(t, "name m2", got[0].Name)
	assert.Equal(t, store.RelRelatesTo, got[0].Relation)
	assert.Equal(t, "m3", got[1].ID)
	assert.Equal(t, 2, got[1].Depth)
}

func TestTraverse_FirstSeenDepthWins(t *testing.T) {
	// m1 reaches m3 directly and through m2.
	edges := map[string][]string{
		"m1": {"m2", "m3"},
		"m2": {"m3", "m1"},
		"m3": {"m1"},
	}

	got, err := traverse(context.Background(), "m1", 3, fakeHops(edges, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m3"}, ids(got))
	for _, n := range got {
		assert.Equal(t, 1, n.Depth, n.ID)
	}
}

func TestTraverse_ExpandsEachNodeOnce(t *testing.T) {
	edges := map[string][]string{
		"a": {"b", "c"},
		"b": {"c", "a"},
		"c": {"a", "b"},
	}
	var calls []string

	got, err := traverse(context.Background(), "a", 5, fakeHops(edges, &calls))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, ids(got))
	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestTraverse_ClampsDepth(t *testing.T) {
	edges := map[string][]string{}
	chain := []string{"n0", "n1", "n2", "n3", "n4", "n5", "n6", "n7"}
	for i := 0; i < len(chain)-1; i++ {
		edges[chain[i]] = []string{chain[i+1]}
	}

	deep, err := traverse(context.Background(), "n0", 10, fakeHops(edges, nil))
	require.NoError(t, err)
	assert.Len(t, deep, store.MaxTraversalDepth)

	shallow, err := traverse(context.Background(), "n0", 0, fakeHops(edges, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, ids(shallow))
}

func TestClampDepth(t *testing.T) {
	assert.Equal(t, 1, clampDepth(-3))
	assert.Equal(t, 1, clampDepth(0))
	assert.Equal(t, 3, clampDepth(3))
	assert.Equal(t, store.MaxTraversalDepth, clampDepth(99))
}

func TestTraverse_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := func(context.Context, string) ([]hop, error) { return nil, boom }

	_, err := traverse(context.Background(), "m1", 2, failing)
	assert.ErrorIs(t, err, boom)
}

func TestTraverse_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := traverse(ctx, "m1", 2, fakeHops(map[string][]string{"m1": {"m2"}}, nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTraverse_NoNeighbors(t *testing.T) {
	got, err := traverse(context.Background(), "lonely", 3, fakeHops(nil, nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDirectRelated_KeepsEveryEdgeToSameNode(t *testing.T) {
	hops := []hop{
		{ID: "b", Label: store.LabelMemory, Relation: store.RelRelatesTo, Direction: store.DirectionOutgoing},
		{ID: "b", Label: store.LabelMemory, Relation: store.RelReferences, Direction: store.DirectionIncoming},
		{ID: "b", Label: store.LabelMemory, Relation: store.RelRelatesTo, Direction: store.DirectionOutgoing},
		{ID: "c", Label: store.LabelTask, Relation: store.RelRelatesTo, Direction: store.DirectionIncoming},
	}

	got := directRelated(hops)
	require.Len(t, got, 3)

	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, store.RelRelatesTo, got[0].Relation)
	assert.Equal(t, store.DirectionOutgoing, got[0].Direction)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, store.RelReferences, got[1].Relation)
	assert.Equal(t, store.DirectionIncoming, got[1].Direction)
	assert.Equal(t, "c", got[2].ID)
	for _, n := range got {
		assert.Equal(t, 1, n.Depth)
	}

	// traverse reports nodes, so the same hops collapse to two entries.
	nodes, err := traverse(context.Background(), "a", 1, func(context.Context, string) ([]hop, error) {
		return hops, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(nodes))
}

func TestDirectRelated_Empty(t *testing.T) {
	assert.Empty(t, directRelated(nil))
	assert.NotNil(t, directRelated(nil))
}
