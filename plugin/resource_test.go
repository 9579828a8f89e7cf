package plugin

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leeforge/hookforge/errors"
)

type counter struct{ n int }

func TestResource_CreatedOncePerContainer(t *testing.T) {
	composer := Compose(CreatePlugin(Plugin{Name: "clock@1.0.0"}))
	first, err := Forge(composer, quietConfig())
	require.NoError(t, err)
	second, err := Forge(composer, quietConfig())
	require.NoError(t, err)

	created := 0
	create := func() *counter {
		created++
		return &counter{}
	}

	a, err := Resource(first, "clock", create)
	require.NoError(t, err)
	again, err := Resource(first, "clock", create)
	require.NoError(t, err)
	assert.Same(t, a, again)

	b, err := Resource(second, "clock", create)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, created)
}

func TestResource_ConcurrentCreate(t *testing.T) {
	c, err := Forge(Compose(), quietConfig())
	require.NoError(t, err)

	var wg sync.WaitGroup
	got := make([]*counter, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = Resource(c, "shared", func() *counter { return &counter{} })
		}(i)
	}
	wg.Wait()

	for _, v := range got {
		assert.Same(t, got[0], v)
	}
}

func TestResource_TypeMismatch(t *testing.T) {
	c, err := Forge(Compose(), quietConfig())
	require.NoError(t, err)

	_, err = Resource(c, "clock", func() *counter { return &counter{} })
	require.NoError(t, err)

	_, err = Resource(c, "clock", func() string { return "x" })
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, "clock", apperrors.FromError(err).Details["resource"])
}

func TestResource_LookupAndRelease(t *testing.T) {
	c, err := Forge(Compose(), quietConfig())
	require.NoError(t, err)

	_, ok := LookupResource[*counter](c, "clock")
	assert.False(t, ok, "lookup never creates")

	created, err := Resource(c, "clock", func() *counter { return &counter{n: 1} })
	require.NoError(t, err)
	found, ok := LookupResource[*counter](c, "clock")
	require.True(t, ok)
	assert.Same(t, created, found)

	released, ok := ReleaseResource[*counter](c, "clock")
	require.True(t, ok)
	assert.Same(t, created, released)
	_, ok = LookupResource[*counter](c, "clock")
	assert.False(t, ok)

	_, ok = ReleaseResource[*counter](c, "clock")
	assert.False(t, ok)
}

func TestResource_SurvivesSnapshotRestore(t *testing.T) {
	c, err := Forge(Compose(CreatePlugin(Plugin{Name: "clock@1.0.0", State: &counter{}})), quietConfig())
	require.NoError(t, err)

	live, err := Resource(c, "clock", func() *counter { return &counter{n: 5} })
	require.NoError(t, err)

	snap, err := c.Snapshot()
	require.NoError(t, err)
	live.n = 9
	require.NoError(t, c.Restore(snap))

	found, ok := LookupResource[*counter](c, "clock")
	require.True(t, ok)
	assert.Same(t, live, found)
	assert.Equal(t, 9, found.n)
}
