package plugin

import (
	"os"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/json"
	"github.com/leeforge/hookforge/logging"
	"github.com/leeforge/hookforge/utils"
)

// ForgeConfig configures Forge.
type ForgeConfig struct {
	// Debug lets the decorators' debug call logs through. Without it the
	// container logs at info level and above.
	Debug bool `mapstructure:"debug" json:"debug" yaml:"debug"`

	// Logger is the logger the container and its plugins log with. Nil means a
	// console logger on stdout.
	Logger logging.Logger `json:"-" validate:"-"`

	// Decorators run after the error and logger decorators, outermost last.
	Decorators []Decorator `json:"-" validate:"dive,required"`
}

// Forge validates the composed plugins and turns them into a live Container.
//
// Every plugin's state is deep-copied, its actions are instantiated against
// the live container and wrapped with ErrorDecorator, LoggerDecorator and
// cfg.Decorators, in that order. RunHooks and GetPlugin get the same
// wrapping under the "valueObject" dependency. Any validation failure aborts
// forging; no partial container is returned.
func Forge(composer Composer, cfg ForgeConfig) (*Container, error) {
	if err := validator.Struct(cfg); err != nil {
		return nil, validationError(apperrors.MsgInvalidConfig, err, nil)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = defaultLogger()
	}
	logger = logger.AtLeast(logging.VerbosityLevel(cfg.Debug))

	if err := validateComposer(composer); err != nil {
		return nil, err
	}

	c := &Container{
		Plugins: make([]*Plugin, len(composer.plugins)),
		Actions: make(Actions),
		logger:  logger,
	}

	for i, p := range composer.plugins {
		if missing := missingPlugins(composer, p); len(missing) > 0 {
			return nil, apperrors.MissingRequiredPlugins(p.Name, missing)
		}
		if wrong := p.wrongActionNames(); len(wrong) > 0 {
			return nil, apperrors.InvalidActionName(p.Name, wrong)
		}

		live := p.copyDescriptor()
		live.State = json.Clone(p.State)
		c.Plugins[i] = live
	}

	for _, p := range c.Plugins {
		decorators := append([]Decorator{ErrorDecorator(), LoggerDecorator(c.PluginLogger(p))}, cfg.Decorators...)
		for _, name := range utils.SortedKeys(p.Actions) {
			if _, exists := c.Actions[name]; exists {
				return nil, apperrors.New(apperrors.ErrorTypeConflict, apperrors.MsgDuplicateAction).
					WithDetail("name", name).
					WithDetail("plugin", p.Name)
			}
			fn := p.Actions[name](c)
			if fn == nil {
				return nil, apperrors.New(apperrors.ErrorTypeValidation, apperrors.MsgInvalidPlugin).
					WithDetail("name", p.Name).
					WithDetail("action", name)
			}
			c.Actions[name] = decorate(CallInfo{Dependency: p.dependency(), Field: name}, fn, decorators...)
		}
	}

	self := append([]Decorator{ErrorDecorator(), LoggerDecorator(logger.Named(ValueObjectDependency))}, cfg.Decorators...)
	c.runHooks = decorate(CallInfo{Dependency: ValueObjectDependency, Field: runHooksField}, c.dispatch, self...)
	c.getPlugin = decorate(CallInfo{Dependency: ValueObjectDependency, Field: getPluginField}, c.lookup, self...)

	logger.Named(ValueObjectDependency).Debugf("forged %d plugins with %d actions", len(c.Plugins), len(c.Actions))
	return c, nil
}

// MustForge is like Forge but panics on error.
func MustForge(composer Composer, cfg ForgeConfig) *Container {
	c, err := Forge(composer, cfg)
	if err != nil {
		panic(err)
	}
	return c
}

func validateComposer(composer Composer) error {
	seen := make(map[string]struct{}, len(composer.plugins))
	for _, p := range composer.plugins {
		if err := validator.Struct(p); err != nil {
			return validationError(apperrors.MsgInvalidPlugin, err, map[string]any{"name": p.Name})
		}
		if _, dup := seen[p.Name]; dup {
			return apperrors.DuplicatePlugin(p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

func missingPlugins(composer Composer, p Plugin) []string {
	var missing []string
	for _, required := range p.RequiredPlugins {
		if !composer.has(required) {
			missing = append(missing, required)
		}
	}
	return missing
}

func defaultLogger() logging.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = "debug"
	return logging.NewLoggerTo(cfg, os.Stdout)
}
