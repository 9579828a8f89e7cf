package plugin

import (
	"context"

	"go.uber.org/zap/zapcore"

	"github.com/leeforge/hookforge/logging"
)

type counterState struct {
	N     int      `json:"n"`
	Names []string `json:"names"`
}

// recorder collects hook invocations in call order.
type recorder struct {
	calls []string
}

func (r *recorder) hook(name HookName, tag string) Hook {
	return Hook{
		Name: name,
		Handler: func(*Container) HookFunc {
			return func(context.Context, any) error {
				r.calls = append(r.calls, tag)
				return nil
			}
		},
	}
}

func quietConfig() ForgeConfig {
	return ForgeConfig{Logger: logging.Nop()}
}

func recordedConfig(debug bool) (ForgeConfig, *logging.Recorder) {
	logger, rec := logging.NewRecorded(zapcore.DebugLevel)
	return ForgeConfig{Debug: debug, Logger: logger}, rec
}
