package plugin

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/logging"
)

func TestErrorDecorator_ProvenanceTrail(t *testing.T) {
	c := Compose(
		CreatePlugin(Plugin{Name: "b@1", Actions: map[string]ActionFactory{
			"bLoad": func(*Container) Action {
				return func(context.Context, any) (any, error) {
					return nil, apperrors.PluginError("request errored", map[string]any{"status": 500})
				}
			},
		}}),
		CreatePlugin(Plugin{Name: "a@1", Actions: map[string]ActionFactory{
			"aRun": func(c *Container) Action {
				return func(ctx context.Context, _ any) (any, error) {
					return c.Actions.Call(ctx, "bLoad", nil)
				}
			},
		}}),
	)
	live, err := Forge(c, quietConfig())
	require.NoError(t, err)

	_, err = live.Actions.Call(context.Background(), "aRun", nil)

	require.Error(t, err)
	assert.Equal(t, `plugin-a.aRun > plugin-b.bLoad > request errored: {"status":500}`, err.Error())
	assert.True(t, errors.Is(err, apperrors.ErrPlugin))
}

func TestErrorDecorator_SharedErrorStaysClean(t *testing.T) {
	live, err := Forge(NewComposer(Plugin{Name: "a@1", Actions: map[string]ActionFactory{
		"aFind": func(*Container) Action {
			return func(context.Context, any) (any, error) {
				return nil, fmt.Errorf("lookup: %w", apperrors.ErrNotFound)
			}
		},
	}}), quietConfig())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = live.Actions.Call(context.Background(), "aFind", nil)
		require.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Equal(t, "plugin-a.aFind > lookup: not_found", err.Error())
	}
	assert.Equal(t, "not_found", apperrors.ErrNotFound.Error())
}

func TestLoggerDecorator_LogsFailure(t *testing.T) {
	logger, rec := logging.NewRecorded(zapcore.DebugLevel)
	fail := errors.New("nope")
	action := decorate(CallInfo{Dependency: "plugin-x", Field: "xRun"},
		func(context.Context, any) (any, error) { return nil, fail },
		ErrorDecorator(), LoggerDecorator(logger))

	_, err := action(logging.SetStory(context.Background(), "login"), []int{1})

	require.ErrorIs(t, err, fail)
	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "plugin-x.xRun([1]) => failed", entries[0].Message)
	assert.Equal(t, "plugin-x.xRun > nope", entries[0].Fields["error"])
	assert.Equal(t, "login", entries[0].Fields["story"])
	assert.Equal(t, "plugin-x", entries[0].Fields["dependency"])
}

func TestLoggerDecorator_SkipsWhenDisabled(t *testing.T) {
	logger, rec := logging.NewRecorded(zapcore.InfoLevel)
	calls := 0
	action := LoggerDecorator(logger)(CallInfo{Dependency: "d", Field: "f"}, func(context.Context, any) (any, error) {
		calls++
		return 1, nil
	})

	out, err := action(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, out)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.Entries())
}

func TestForge_CustomDecoratorsRunOutermost(t *testing.T) {
	var seen []string
	custom := func(meta CallInfo, next Action) Action {
		return func(ctx context.Context, args any) (any, error) {
			out, err := next(ctx, args)
			seen = append(seen, meta.String()+" "+apperrors.DecorationOf(err))
			return out, err
		}
	}
	c := NewComposer(Plugin{Name: "a@1", Actions: map[string]ActionFactory{
		"aFail": func(*Container) Action {
			return func(context.Context, any) (any, error) { return nil, errors.New("x") }
		},
	}})
	live, err := Forge(c, ForgeConfig{Logger: logging.Nop(), Decorators: []Decorator{custom}})
	require.NoError(t, err)

	_, _ = live.Actions.Call(context.Background(), "aFail", nil)
	_, _ = live.GetPlugin("a@1")

	assert.Equal(t, []string{"plugin-a.aFail plugin-a.aFail > ", "valueObject.getPlugin "}, seen)
}

func TestActions_CallMissing(t *testing.T) {
	_, err := Actions{}.Call(context.Background(), "ghost", nil)

	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Contains(t, err.Error(), apperrors.MsgMissingAction)
}

func TestActions_Names(t *testing.T) {
	a := Actions{"b": nil, "a": nil}
	assert.Equal(t, []string{"a", "b"}, a.Names())
}
