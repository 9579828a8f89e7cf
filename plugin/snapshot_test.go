package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leeforge/hookforge/errors"
)

type globalState struct {
	Stories int `json:"stories"`
}

func snapshotContainer(t *testing.T) *Container {
	t.Helper()
	live, err := Forge(Compose(
		CreatePlugin(Plugin{Name: "counter@1", State: &counterState{N: 1, Names: []string{"a"}}}),
		CreatePlugin(Plugin{Name: "global@1", State: &globalState{}}),
		CreatePlugin(Plugin{Name: "plain@1", State: 5}),
	), quietConfig())
	require.NoError(t, err)
	return live
}

func TestSnapshot_RestoreInPlace(t *testing.T) {
	live := snapshotContainer(t)

	snap, err := live.Snapshot()
	require.NoError(t, err)
	assert.False(t, snap.IsZero())
	assert.Equal(t, []string{"counter@1", "global@1", "plain@1"}, snap.Names())

	held := MustStateOf[*counterState](live, "counter@1")
	held.N = 50
	held.Names = append(held.Names, "b")
	live.Plugins[2].State = 6

	require.NoError(t, live.Restore(snap))

	assert.Equal(t, 1, held.N, "pointer states are restored in place")
	assert.Equal(t, []string{"a"}, held.Names)
	assert.Same(t, held, live.Plugins[0].State)
	assert.Equal(t, 5, live.Plugins[2].State)
}

func TestSnapshot_Reusable(t *testing.T) {
	live := snapshotContainer(t)
	snap, err := live.Snapshot()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		MustStateOf[*counterState](live, "counter@1").N += 10
		require.NoError(t, live.Restore(snap))
		assert.Equal(t, 1, MustStateOf[*counterState](live, "counter@1").N)
	}
}

func TestSnapshot_RestoreExcept(t *testing.T) {
	live := snapshotContainer(t)
	snap, err := live.Snapshot()
	require.NoError(t, err)

	MustStateOf[*counterState](live, "counter@1").N = 2
	MustStateOf[*globalState](live, "global@1").Stories = 3

	require.NoError(t, live.RestoreExcept(snap, "global@1"))

	assert.Equal(t, 1, MustStateOf[*counterState](live, "counter@1").N)
	assert.Equal(t, 3, MustStateOf[*globalState](live, "global@1").Stories)
}

func TestSnapshotOf(t *testing.T) {
	live := snapshotContainer(t)

	snap, err := live.SnapshotOf("global@1")
	require.NoError(t, err)
	assert.Equal(t, []string{"global@1"}, snap.Names())

	_, err = live.SnapshotOf("nope")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestRestore_UnknownPlugin(t *testing.T) {
	live := snapshotContainer(t)
	snap, err := live.Snapshot()
	require.NoError(t, err)

	live.Plugins = live.Plugins[:1]

	err = live.Restore(snap)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestSnapshot_DistinctIDs(t *testing.T) {
	live := snapshotContainer(t)
	a, err := live.Snapshot()
	require.NoError(t, err)
	b, err := live.Snapshot()
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, Snapshot{}.IsZero())
}
