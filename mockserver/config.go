package mockserver

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/metrics"
	"github.com/leeforge/hookforge/plugin"
)

// Config configures the mock server plugin.
type Config struct {
	// Host is the interface the server binds.
	Host string `mapstructure:"host" json:"host" yaml:"host" default:"127.0.0.1"`
	// Port is the listening port; 0 picks a free one.
	Port int `mapstructure:"port" json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	// ShutdownTimeout bounds the graceful shutdown, in seconds.
	ShutdownTimeout int `mapstructure:"shutdown-timeout" json:"shutdownTimeout" yaml:"shutdown-timeout" default:"5" validate:"gte=1"`
	// Definitions lists the endpoints that can be mocked.
	Definitions []Definition `mapstructure:"definitions" json:"definitions" yaml:"definitions" validate:"dive"`
	// MetricsPath serves Metrics when both are set.
	MetricsPath string `mapstructure:"metrics-path" json:"metricsPath" yaml:"metrics-path" default:"/_hookforge/metrics"`
	// Metrics records every request the server answers.
	Metrics *metrics.Collector `mapstructure:"-" json:"-" yaml:"-" validate:"-"`
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Definition describes an endpoint of an external API.
type Definition struct {
	APIName      string `mapstructure:"api-name" json:"apiName" yaml:"api-name" validate:"required"`
	EndpointName string `mapstructure:"endpoint-name" json:"endpointName" yaml:"endpoint-name" validate:"required"`
	Method       string `mapstructure:"method" json:"method" yaml:"method" validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	URL          string `mapstructure:"url" json:"url" yaml:"url" validate:"required,url"`
}

// Path is the route the mock server serves the endpoint on: the API name
// followed by the path of the definition's URL.
func (d Definition) Path() (string, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorTypeValidation, "invalid mock definition url").
			WithDetail("endpointName", d.EndpointName)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return "/" + d.APIName + path, nil
}

func (c Config) validate() error {
	if err := plugin.Validate("invalid mock server config", c); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Definitions))
	var duplicates []string
	for _, d := range c.Definitions {
		if _, dup := seen[d.EndpointName]; dup {
			duplicates = append(duplicates, d.EndpointName)
			continue
		}
		seen[d.EndpointName] = struct{}{}
	}
	if len(duplicates) > 0 {
		return apperrors.New(apperrors.ErrorTypeConflict, "mock definitions endpoint name must be unique in each definition").
			WithDetail("endpointNames", duplicates)
	}
	return nil
}

func (c Config) definition(endpoint string) (Definition, bool) {
	for _, d := range c.Definitions {
		if d.EndpointName == endpoint {
			return d, true
		}
	}
	return Definition{}, false
}

func describe(d Definition, baseURL string) string {
	return fmt.Sprintf("%s %s%s [%s/%s]", d.Method, baseURL, mustPath(d), d.APIName, d.EndpointName)
}

func mustPath(d Definition) string {
	p, err := d.Path()
	if err != nil {
		return d.URL
	}
	return p
}
