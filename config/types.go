package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Loader reads configuration files and environment variables through viper.
type Loader struct {
	instance   *viper.Viper
	opts       Options
	files      []string
	watchOnce  sync.Once
	watchMutex sync.RWMutex
}

// Options configures a Loader.
type Options struct {
	// BasePath is the directory searched for config files.
	BasePath string
	// FileName is the base name of the config files, without suffixes.
	FileName string
	// FileType is the viper config type and file extension.
	FileType string
	// EnvPrefix prefixes the environment variables that override file values.
	EnvPrefix string
	// Watch re-binds on file changes.
	Watch bool
	// OnChange runs after a watched change was bound.
	OnChange func(e fsnotify.Event)
	// Optional allows starting without any config file.
	Optional bool
}
