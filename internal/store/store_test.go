package store_test

import (
	"sort"
	"testing"

	"github.com/dominikbraun/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-pathcopy/internal/store"
)

func newGraph(t *testing.T, s *store.MemoryStore[int, int], vertices ...int) graph.Graph[int, int] {
	t.Helper()

	g := graph.NewWithStore(graph.IntHash, graph.Store[int, int](s), graph.Directed(), graph.PreventCycles())
	for _, v := range vertices {
		require.NoError(t, g.AddVertex(v))
	}

	return g
}

func TestMemoryStore_PreventCycles(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		edges     [][2]int
		newEdge   [2]int
		wantCycle bool
	}{
		"self reference": {
			newEdge:   [2]int{1, 1},
			wantCycle: true,
		},
		"direct cycle": {
			edges:     [][2]int{{1, 2}},
			newEdge:   [2]int{2, 1},
			wantCycle: true,
		},
		"indirect cycle": {
			edges:     [][2]int{{1, 2}, {2, 3}, {3, 4}},
			newEdge:   [2]int{4, 1},
			wantCycle: true,
		},
		"diamond": {
			edges:   [][2]int{{1, 2}, {1, 3}, {2, 4}},
			newEdge: [2]int{3, 4},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			g := newGraph(t, store.NewMemoryStore[int, int](), 1, 2, 3, 4)
			for _, edge := range tc.edges {
				require.NoError(t, g.AddEdge(edge[0], edge[1]))
			}

			err := g.AddEdge(tc.newEdge[0], tc.newEdge[1])
			if tc.wantCycle {
				require.ErrorIs(t, err, graph.ErrEdgeCreatesCycle)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestMemoryStore_Clone(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore[int, int]()
	g := newGraph(t, s, 1, 2, 3)
	require.NoError(t, g.AddEdge(1, 2))

	clone := s.Clone()

	require.NoError(t, g.AddEdge(2, 3))
	s.RemoveOutEdges(1)

	_, err := clone.Edge(1, 2)
	require.NoError(t, err)

	_, err = clone.Edge(2, 3)
	require.ErrorIs(t, err, graph.ErrEdgeNotFound)

	_, err = s.Edge(1, 2)
	require.ErrorIs(t, err, graph.ErrEdgeNotFound)
	assert.Empty(t, s.Predecessors(2))
	assert.Equal(t, []int{2}, s.Predecessors(3))
}

func TestMemoryStore_Vertices(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore[int, int]()
	g := newGraph(t, s, 1, 2)
	require.NoError(t, g.AddEdge(1, 2))

	require.ErrorIs(t, g.AddVertex(1), graph.ErrVertexAlreadyExists)
	require.ErrorIs(t, s.RemoveVertex(2), graph.ErrVertexHasEdges)
	require.ErrorIs(t, s.RemoveVertex(3), graph.ErrVertexNotFound)

	s.SetVertex(3, 30)

	value, _, err := s.Vertex(3)
	require.NoError(t, err)
	assert.Equal(t, 30, value)

	require.NoError(t, g.RemoveEdge(1, 2))
	require.NoError(t, s.RemoveVertex(2))

	hashes, err := s.ListVertices()
	require.NoError(t, err)
	sort.Ints(hashes)
	assert.Equal(t, []int{1, 3}, hashes)

	count, err := s.VertexCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
