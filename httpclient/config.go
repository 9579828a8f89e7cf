package httpclient

import (
	"fmt"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/plugin"
)

// Config configures the HTTP client plugin.
type Config struct {
	// Timeout bounds one request, in seconds.
	Timeout int `mapstructure:"timeout" json:"timeout" yaml:"timeout" default:"10" validate:"gte=1"`
	// Spacing is the pause after each request, in milliseconds, so records
	// written by consecutive requests get distinct timestamps.
	Spacing int `mapstructure:"spacing" json:"spacing" yaml:"spacing" default:"10" validate:"gte=0"`
	// Definitions lists the endpoints that can be requested.
	Definitions []Definition `mapstructure:"definitions" json:"definitions" yaml:"definitions" validate:"dive"`
}

// Definition describes an endpoint of the system under test.
type Definition struct {
	APIName      string `mapstructure:"api-name" json:"apiName" yaml:"api-name" validate:"required"`
	EndpointName string `mapstructure:"endpoint-name" json:"endpointName" yaml:"endpoint-name" validate:"required"`
	Method       string `mapstructure:"method" json:"method" yaml:"method" validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	URL          string `mapstructure:"url" json:"url" yaml:"url" validate:"required,url"`
}

func (c Config) validate() error {
	if err := plugin.Validate("invalid http client config", c); err != nil {
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
		return apperrors.New(apperrors.ErrorTypeConflict, "api definitions endpoint name must be unique in each definition").
			WithDetail("endpointNames", duplicates)
	}
	return nil
}

func (c Config) definition(endpointName string) (Definition, bool) {
	for _, d := range c.Definitions {
		if d.EndpointName == endpointName {
			return d, true
		}
	}
	return Definition{}, false
}

func (c Config) endpointNames() []string {
	out := make([]string, 0, len(c.Definitions))
	for _, d := range c.Definitions {
		out = append(out, d.EndpointName)
	}
	return out
}

func describe(d Definition) string {
	return fmt.Sprintf("%s %s [%s/%s]", d.Method, d.URL, d.APIName, d.EndpointName)
}
