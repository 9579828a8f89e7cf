package redisstore

import (
	"context"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"

	redis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/logging"
	"github.com/leeforge/hookforge/plugin"
	"github.com/leeforge/hookforge/storyteller"
)

func TestRedisConfigLogFields_RedactsPassword(t *testing.T) {
	config := Config{Host: "127.0.0.1", Port: "6379", Password: "super-secret", DB: 2}

	logFields := redisConfigLogFields(config)
	assert.NotContains(t, logFields, config.Password)
	assert.Contains(t, logFields, "password=[REDACTED]")
}

func TestRedisConfigLogFields_EmptyPassword(t *testing.T) {
	logFields := redisConfigLogFields(Config{Host: "127.0.0.1", Port: "6379"})
	assert.Contains(t, logFields, "password=<empty>")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Port: "not-a-port"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestNewClient_UnreachablePort(t *testing.T) {
	_, err := NewClient(context.Background(), Config{Host: "127.0.0.1", Port: "1", DialTimeout: 1}, logging.Nop())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func TestActions_NotConnected(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	c, err := plugin.Forge(plugin.Compose(
		plugin.CreatePlugin(storyteller.New(storyteller.Config{})),
		plugin.CreatePlugin(p),
	), plugin.ForgeConfig{Logger: logging.Nop()})
	require.NoError(t, err)

	_, err = c.Actions.Call(context.Background(), ActionGet, "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin-redisstore.redisstoreGet > redis store is not connected")
}

func TestPlugin_EachContainerOwnsItsClient(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	composer := plugin.Compose(
		plugin.CreatePlugin(storyteller.New(storyteller.Config{})),
		plugin.CreatePlugin(p),
	)
	first, err := plugin.Forge(composer, plugin.ForgeConfig{Logger: logging.Nop()})
	require.NoError(t, err)
	second, err := plugin.Forge(composer, plugin.ForgeConfig{Logger: logging.Nop()})
	require.NoError(t, err)

	// go-redis dials lazily, so this client never touches the network.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	_, err = plugin.Resource(first, Name, func() *redis.Client { return rdb })
	require.NoError(t, err)

	got, err := plugin.Call[*redis.Client](context.Background(), first, ActionClient, nil)
	require.NoError(t, err)
	assert.Same(t, rdb, got)

	_, err = second.Actions.Call(context.Background(), ActionClient, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis store is not connected")

	require.NoError(t, first.RunHooks(context.Background(), storyteller.StorytellerFinished, nil))
	_, ok := plugin.LookupResource[*redis.Client](first, Name)
	assert.False(t, ok, "released when the storyteller finished")
}

func integrationRedisConfig(t *testing.T) Config {
	t.Helper()

	addr := strings.TrimSpace(os.Getenv("REDIS_TEST_ADDR"))
	if addr == "" {
		t.Skip("set REDIS_TEST_ADDR to run redis integration tests")
	}

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err, "invalid REDIS_TEST_ADDR %q", addr)

	db := 0
	if dbRaw := strings.TrimSpace(os.Getenv("REDIS_TEST_DB")); dbRaw != "" {
		db, err = strconv.Atoi(dbRaw)
		require.NoError(t, err, "invalid REDIS_TEST_DB %q", dbRaw)
	}

	return Config{
		Host:      host,
		Port:      port,
		Password:  os.Getenv("REDIS_TEST_PASSWORD"),
		DB:        db,
		KeyPrefix: "hookforge-test:",
	}
}

func TestPlugin_StoryLifecycle(t *testing.T) {
	cfg := integrationRedisConfig(t)
	p, err := New(cfg)
	require.NoError(t, err)

	c, err := plugin.Forge(plugin.Compose(
		plugin.CreatePlugin(storyteller.New(storyteller.Config{NameGetter: &storyteller.NameGetter{
			Runner:    "testing",
			StoryName: func(context.Context) (string, bool) { return t.Name(), true },
		}})),
		plugin.CreatePlugin(p),
	), plugin.ForgeConfig{Logger: logging.Nop()})
	require.NoError(t, err)

	ctx := context.Background()
	teller, err := storyteller.Start(ctx, c)
	require.NoError(t, err)

	rdb, err := plugin.Call[*redis.Client](ctx, c, ActionClient, nil)
	require.NoError(t, err)
	require.NoError(t, rdb.Set(ctx, cfg.key("stale"), "x", 0).Err())

	run, err := teller.CreateStory(ctx, storyteller.Story{
		Arrange: func(ctx context.Context, actions plugin.Actions) error {
			_, err := actions.Call(ctx, ActionSeed, SeedRequest{Values: map[string]string{"user": "ada"}})
			return err
		},
		Assert: func(ctx context.Context, actions plugin.Actions) error {
			val, err := plugin.Call[string](ctx, c, ActionGet, "user")
			require.NoError(t, err)
			assert.Equal(t, "ada", val)

			_, err = actions.Call(ctx, ActionGet, "stale")
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound), "flushed on arrange")

			assert.Equal(t, []string{"user"}, plugin.MustStateOf[*State](c, Name).Seeded)
			return nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, run(ctx))

	_, err = c.Actions.Call(ctx, ActionGet, "user")
	require.Error(t, err, "connection closed once the storyteller finished")
}
