package redisstore

import "net"

// Config configures the redis connection.
type Config struct {
	Host     string `mapstructure:"host" json:"host" yaml:"host" default:"127.0.0.1" validate:"required"`
	Port     string `mapstructure:"port" json:"port" yaml:"port" default:"6379" validate:"required,numeric"`
	Password string `mapstructure:"password" json:"password" yaml:"password"`
	DB       int    `mapstructure:"db" json:"db" yaml:"db" validate:"gte=0"`
	// KeyPrefix is prepended to every key the plugin reads or writes.
	KeyPrefix string `mapstructure:"key-prefix" json:"keyPrefix" yaml:"key-prefix"`
	// DialTimeout bounds connecting and the initial ping, in seconds.
	DialTimeout int `mapstructure:"dial-timeout" json:"dialTimeout" yaml:"dial-timeout" default:"5" validate:"gte=1"`
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) key(k string) string {
	return c.KeyPrefix + k
}
