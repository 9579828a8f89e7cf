package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/creasty/defaults"
	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/logging"
	"github.com/leeforge/hookforge/plugin"
	"github.com/leeforge/hookforge/storyteller"
	"github.com/leeforge/hookforge/utils"
)

// Name is the plugin name.
const (
	Name      = "redisstore@1.0.0"
	ShortName = "redisstore"
)

// Actions exposed by the plugin.
var (
	ActionSeed   = utils.ActionName(ShortName, "seed")
	ActionGet    = utils.ActionName(ShortName, "get")
	ActionClient = utils.ActionName(ShortName, "client")
)

// SeedRequest is the payload of the seed action.
type SeedRequest struct {
	Values map[string]string `json:"values"`
	// TTL applies to every seeded key; zero means no expiry.
	TTL time.Duration `json:"ttl"`
}

// State records the keys seeded during the current story.
type State struct {
	Seeded []string `json:"seeded"`
}

// New returns the redis data source plugin. It connects once the storyteller
// is created, flushes the database when a story's arrange section starts and
// disconnects when the storyteller finishes.
func New(cfg Config) (plugin.Plugin, error) {
	if err := defaults.Set(&cfg); err != nil {
		return plugin.Plugin{}, apperrors.Wrap(err, apperrors.ErrorTypeValidation, "invalid redis config")
	}
	if err := plugin.Validate("invalid redis config", cfg); err != nil {
		return plugin.Plugin{}, err
	}

	connected := func(c *plugin.Container) (*redis.Client, error) {
		client, ok := plugin.LookupResource[*redis.Client](c, Name)
		if !ok {
			return nil, apperrors.PluginError("redis store is not connected", map[string]any{"addr": cfg.Addr()})
		}
		return client, nil
	}

	return plugin.Plugin{
		Name:            Name,
		State:           &State{},
		RequiredPlugins: []string{storyteller.Name},
		Actions: map[string]plugin.ActionFactory{
			ActionSeed: plugin.Act(func(c *plugin.Container) func(context.Context, SeedRequest) (int, error) {
				return func(ctx context.Context, req SeedRequest) (int, error) {
					rdb, err := connected(c)
					if err != nil {
						return 0, err
					}
					state, err := plugin.StateOf[*State](c, Name)
					if err != nil {
						return 0, err
					}
					keys := utils.SortedKeys(req.Values)
					pipe := rdb.TxPipeline()
					for _, k := range keys {
						pipe.Set(ctx, cfg.key(k), req.Values[k], req.TTL)
					}
					if _, err := pipe.Exec(ctx); err != nil {
						return 0, apperrors.Wrap(err, apperrors.ErrorTypeExternal, "redis seed failed").
							WithDetail("keys", keys)
					}
					state.Seeded = append(state.Seeded, keys...)
					return len(keys), nil
				}
			}),
			ActionGet: plugin.Act(func(c *plugin.Container) func(context.Context, string) (string, error) {
				return func(ctx context.Context, key string) (string, error) {
					rdb, err := connected(c)
					if err != nil {
						return "", err
					}
					val, err := rdb.Get(ctx, cfg.key(key)).Result()
					if errors.Is(err, redis.Nil) {
						return "", apperrors.New(apperrors.ErrorTypeNotFound, "redis key not found").WithDetail("key", key)
					}
					if err != nil {
						return "", apperrors.Wrap(err, apperrors.ErrorTypeExternal, "redis get failed").WithDetail("key", key)
					}
					return val, nil
				}
			}),
			ActionClient: plugin.Act(func(c *plugin.Container) func(context.Context, any) (*redis.Client, error) {
				return func(context.Context, any) (*redis.Client, error) {
					return connected(c)
				}
			}),
		},
		Hooks: []plugin.Hook{
			plugin.On(storyteller.StorytellerCreated, func(c *plugin.Container) func(context.Context, any) error {
				return func(ctx context.Context, _ any) error {
					if _, ok := plugin.LookupResource[*redis.Client](c, Name); ok {
						return nil
					}
					rdb, err := NewClient(ctx, cfg, logger(c, ctx))
					if err != nil {
						return err
					}
					if _, err := plugin.Resource(c, Name, func() *redis.Client { return rdb }); err != nil {
						_ = rdb.Close()
						return err
					}
					return nil
				}
			}),
			plugin.On(storyteller.ArrangeStarted, func(c *plugin.Container) func(context.Context, any) error {
				return func(ctx context.Context, _ any) error {
					rdb, err := connected(c)
					if err != nil {
						return err
					}
					if err := flush(ctx, rdb, cfg.KeyPrefix); err != nil {
						return apperrors.Wrap(err, apperrors.ErrorTypeExternal, "redis flush failed").
							WithDetail("db", cfg.DB)
					}
					logger(c, ctx).Debug("redis database flushed", zap.Int("db", cfg.DB), zap.String("prefix", cfg.KeyPrefix))
					return nil
				}
			}),
			plugin.On(storyteller.StorytellerFinished, func(c *plugin.Container) func(context.Context, any) error {
				return func(ctx context.Context, _ any) error {
					client, ok := plugin.ReleaseResource[*redis.Client](c, Name)
					if !ok {
						return nil
					}
					err := client.Close()
					logger(c, ctx).Info("redis connection closed")
					return err
				}
			}),
		},
	}, nil
}

// flush empties the database, or only the keys under prefix when one is set.
func flush(ctx context.Context, rdb *redis.Client, prefix string) error {
	if prefix == "" {
		return rdb.FlushDB(ctx).Err()
	}
	iter := rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err()
}

func logger(c *plugin.Container, ctx context.Context) logging.Logger {
	return logging.WithContext(c.Logger().Named(ShortName), ctx)
}
