package utils

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	chi "github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCamelCase(t *testing.T) {
	assert.Equal(t, "CreatedById", UpperCamelCase("created_by_id"))
	assert.Equal(t, "createdById", LowerCamelCase("created_by_id"))
	assert.Equal(t, "", LowerCamelCase(""))
}

func TestActionName(t *testing.T) {
	assert.Equal(t, "mockserverGetExecutions", ActionName("mockserver", "get_executions"))
	assert.Equal(t, "redisstoreSeed", ActionName("redisstore", "seed"))
}

func TestRoutes(t *testing.T) {
	r := chi.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	r.Post("/api2/other", noop)
	r.Get("/google/main-page", noop)

	routes, err := Routes(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /google/main-page", "POST /api2/other"}, routes)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "hookforge.yaml")
	require.NoError(t, os.WriteFile(file, []byte("debug: true\n"), 0o600))

	isDir, ok, err := Exists(dir)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, isDir)

	isDir, ok, err = Exists(file)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, isDir)

	_, ok, err = Exists(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
	assert.Empty(t, SortedKeys(map[string]int(nil)))
}
