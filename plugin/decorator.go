package plugin

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/json"
	"github.com/leeforge/hookforge/logging"
)

// Dependency names the container's own operations are decorated under.
const (
	ValueObjectDependency = "valueObject"
	runHooksField         = "runHooks"
	getPluginField        = "getPlugin"
)

// CallInfo names a decorated call: the dependency that exposes it
// ("plugin-<short>" or "valueObject") and the field being called.
type CallInfo struct {
	Dependency string
	Field      string
}

func (m CallInfo) String() string {
	return m.Dependency + "." + m.Field
}

// Decorator wraps an action. Decorators are applied once, at forge time.
type Decorator func(meta CallInfo, next Action) Action

// ErrorDecorator records "<dependency>.<field> > " on every error passing
// through, outermost call first. The returned error wraps the original one,
// which is left unchanged.
func ErrorDecorator() Decorator {
	return func(meta CallInfo, next Action) Action {
		segment := meta.String() + " > "
		return func(ctx context.Context, args any) (any, error) {
			out, err := next(ctx, args)
			if err != nil {
				return out, apperrors.Decorate(err, segment)
			}
			return out, nil
		}
	}
}

// LoggerDecorator logs every call at debug level with its secure-stringified
// arguments and outcome. Story and step names found in ctx are attached.
func LoggerDecorator(logger logging.Logger) Decorator {
	return func(meta CallInfo, next Action) Action {
		return func(ctx context.Context, args any) (any, error) {
			if !logger.Enabled(zapcore.DebugLevel) {
				return next(ctx, args)
			}

			out, err := next(ctx, args)

			rendered := json.SecureStringify(args)
			l := logging.WithContext(logger, ctx).With(
				zap.String("dependency", meta.Dependency),
				zap.String("field", meta.Field),
			)
			if err != nil {
				l.Debug(fmt.Sprintf("%s(%s) => failed", meta, rendered), zap.String("error", err.Error()))
				return out, err
			}
			l.Debug(fmt.Sprintf("%s(%s) => succeeded", meta, rendered), zap.String("result", json.SecureStringify(out)))
			return out, nil
		}
	}
}

// decorate applies decorators in order; the last one is outermost.
func decorate(meta CallInfo, fn Action, decorators ...Decorator) Action {
	for _, d := range decorators {
		fn = d(meta, fn)
	}
	return fn
}
