package config

import (
	"github.com/leeforge/hookforge/httpclient"
	"github.com/leeforge/hookforge/logging"
	"github.com/leeforge/hookforge/metrics"
	"github.com/leeforge/hookforge/mockserver"
	"github.com/leeforge/hookforge/plugin"
	"github.com/leeforge/hookforge/redisstore"
	"github.com/leeforge/hookforge/storyteller"
	"github.com/leeforge/hookforge/telemetry"
)

// Plugin names accepted in Settings.Plugins.
const (
	PluginTelemetry  = "telemetry"
	PluginMockServer = "mockserver"
	PluginRedis      = "redis"
	PluginHTTPClient = "httpclient"
)

// Settings is the hookforge.yaml document.
type Settings struct {
	// Debug enables the decorators' call logs.
	Debug bool `mapstructure:"debug" json:"debug" yaml:"debug"`
	// Metrics collects call and request metrics.
	Metrics bool `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
	// Plugins lists the plugins composed after the storyteller, in order.
	Plugins []string `mapstructure:"plugins" json:"plugins" yaml:"plugins" validate:"dive,oneof=telemetry mockserver redis httpclient"`

	Log         logging.Config     `mapstructure:"log" json:"log" yaml:"log"`
	Storyteller storyteller.Config `mapstructure:"storyteller" json:"storyteller" yaml:"storyteller"`
	Telemetry   telemetry.Config   `mapstructure:"telemetry" json:"telemetry" yaml:"telemetry"`
	MockServer  mockserver.Config  `mapstructure:"mockserver" json:"mockserver" yaml:"mockserver"`
	Redis       redisstore.Config  `mapstructure:"redis" json:"redis" yaml:"redis"`
	HTTPClient  httpclient.Config  `mapstructure:"httpclient" json:"httpclient" yaml:"httpclient"`
}

// Load binds Settings from the files and environment described by opts, then
// validates them.
func Load(opts ...Options) (*Settings, *Loader, error) {
	loader, err := NewLoader(opts...)
	if err != nil {
		return nil, nil, err
	}
	s := &Settings{}
	if err := loader.BindWithDefaults(s); err != nil {
		return nil, nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	return s, loader, nil
}

// Validate checks every section against its validate tags.
func (s *Settings) Validate() error {
	return plugin.Validate("invalid hookforge settings", s)
}

// Logger builds the logger described by the log section.
func (s *Settings) Logger() logging.Logger {
	return logging.NewLogger(s.Log)
}

// ForgeConfig converts the settings to a forge configuration logging with
// logger.
func (s *Settings) ForgeConfig(logger logging.Logger, decorators ...plugin.Decorator) plugin.ForgeConfig {
	return plugin.ForgeConfig{
		Debug:      s.Debug,
		Logger:     logger,
		Decorators: decorators,
	}
}

// Composer composes the storyteller followed by the plugins listed in
// Plugins. Extra steps are appended last.
func (s *Settings) Composer(extra ...plugin.Step) (plugin.Composer, error) {
	return s.composer(s.MockServer, extra...)
}

func (s *Settings) composer(mock mockserver.Config, extra ...plugin.Step) (plugin.Composer, error) {
	steps := []plugin.Step{plugin.CreatePlugin(storyteller.New(s.Storyteller))}
	for _, name := range s.Plugins {
		var (
			p   plugin.Plugin
			err error
		)
		switch name {
		case PluginTelemetry:
			p = telemetry.New(s.Telemetry)
		case PluginMockServer:
			p, err = mockserver.New(mock)
		case PluginRedis:
			p, err = redisstore.New(s.Redis)
		case PluginHTTPClient:
			p, err = httpclient.New(s.HTTPClient)
		}
		if err != nil {
			return plugin.Composer{}, err
		}
		steps = append(steps, plugin.CreatePlugin(p))
	}
	return plugin.Compose(append(steps, extra...)...), nil
}

// Forge composes and forges a container from the settings. With Metrics on,
// the returned collector records every call and mock server request;
// otherwise it is nil. The settings are left untouched, so each call gets its
// own collector.
func (s *Settings) Forge(logger logging.Logger, extra ...plugin.Step) (*plugin.Container, *metrics.Collector, error) {
	var (
		collector  *metrics.Collector
		decorators []plugin.Decorator
	)
	mock := s.MockServer
	if s.Metrics {
		collector = metrics.NewCollector()
		decorators = append(decorators, metrics.Decorator(collector))
		mock.Metrics = collector
	}

	composer, err := s.composer(mock, extra...)
	if err != nil {
		return nil, nil, err
	}
	c, err := plugin.Forge(composer, s.ForgeConfig(logger, decorators...))
	if err != nil {
		return nil, nil, err
	}
	return c, collector, nil
}
