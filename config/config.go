package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/leeforge/hookforge/env_mode"
	"github.com/leeforge/hookforge/utils"
)

// DefaultOptions reads hookforge.yaml from HOOKFORGE_CONFIG_PATH (or the
// working directory) with HOOKFORGE_ environment overrides.
func DefaultOptions() Options {
	basePath := os.Getenv("HOOKFORGE_CONFIG_PATH")
	if basePath == "" {
		basePath = "."
	}

	return Options{
		BasePath:  basePath,
		FileName:  "hookforge",
		FileType:  "yaml",
		EnvPrefix: "HOOKFORGE",
		Optional:  true,
	}
}

// DevOptions is DefaultOptions with file watching.
func DevOptions() Options {
	opts := DefaultOptions()
	opts.Watch = true
	return opts
}

func NewLoader(optsArr ...Options) (*Loader, error) {
	var opts Options
	if len(optsArr) == 0 {
		opts = DefaultOptions()
	} else {
		opts = optsArr[0]
	}

	instance, files, err := createViper(opts)
	if err != nil {
		return nil, err
	}

	return &Loader{
		instance: instance,
		opts:     opts,
		files:    files,
	}, nil
}

// Files lists the config files that were merged, lowest priority first.
func (c *Loader) Files() []string {
	return append([]string(nil), c.files...)
}

// Bind unmarshals the configuration into instance, a struct pointer. With
// Options.Watch, instance is re-bound on every file change.
func (c *Loader) Bind(instance any) error {
	if c == nil || c.instance == nil {
		return fmt.Errorf("❌ Config instance is nil")
	}

	if instance == nil {
		return fmt.Errorf("❌ Target instance is nil")
	}

	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	bindEnvKeys(c.instance, reflect.TypeOf(instance), "")
	if err := c.instance.Unmarshal(instance); err != nil {
		return fmt.Errorf("❌ Failed to unmarshal config (path: %s, file: %s.%s): %w",
			c.opts.BasePath, c.opts.FileName, c.opts.FileType, err)
	}

	if c.opts.Watch && len(c.files) > 0 {
		c.watchOnce.Do(func() {
			c.instance.OnConfigChange(func(e fsnotify.Event) {
				c.watchMutex.Lock()
				defer c.watchMutex.Unlock()

				// viper re-reads only the first file.
				if err := mergeFiles(c.instance, c.files[1:]); err != nil {
					fmt.Printf("❌ Config watch error: %v\n", err)
					return
				}
				if err := c.instance.Unmarshal(instance); err != nil {
					fmt.Printf("❌ Config watch error: %v\n", err)
					return
				}

				if c.opts.OnChange != nil {
					c.opts.OnChange(e)
				}
			})
			c.instance.WatchConfig()
		})
	}

	return nil
}

// BindWithDefaults applies default tags, binds, then fills what is still
// empty from the default tags again.
func (c *Loader) BindWithDefaults(instance any) error {
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("❌ Failed to set defaults: %w", err)
	}

	if err := c.Bind(instance); err != nil {
		return err
	}

	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("❌ Failed to set defaults after unmarshal: %w", err)
	}

	return nil
}

func (c *Loader) Get(key string) any {
	c.watchMutex.RLock()
	defer c.watchMutex.RUnlock()

	return c.instance.Get(key)
}

func (c *Loader) Set(key string, value any) {
	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	c.instance.Set(key, value)
}

func createViper(opts Options) (*viper.Viper, []string, error) {
	configPaths := getConfigFilePaths(opts)
	if len(configPaths) == 0 && !opts.Optional {
		return nil, nil, fmt.Errorf("❌ No valid configuration files found in path: %s", opts.BasePath)
	}

	v := viper.New()
	v.SetConfigType(opts.FileType)

	if len(configPaths) > 0 {
		v.SetConfigFile(configPaths[0])
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("❌ Error reading config file %s: %w", configPaths[0], err)
		}
		if err := mergeFiles(v, configPaths[1:]); err != nil {
			return nil, nil, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()

	return v, configPaths, nil
}

func mergeFiles(v *viper.Viper, paths []string) error {
	for _, configPath := range paths {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("❌ Error reading config file %s: %w", configPath, err)
		}
		err = v.MergeConfig(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("❌ Error merging config file %s: %w", configPath, err)
		}
	}
	return nil
}

// bindEnvKeys registers every mapstructure key of t with viper so that
// environment variables are seen by Unmarshal even when no file sets the key.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := strings.Split(field.Tag.Get("mapstructure"), ",")[0]
		if tag == "-" {
			continue
		}
		if tag == "" {
			tag = strings.ToLower(field.Name)
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		ft := field.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			bindEnvKeys(v, ft, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

func getConfigFilePaths(opts Options) (configFiles []string) {
	for _, suffix := range env_mode.FileSuffixes(env_mode.Mode()) {
		file := filepath.Join(opts.BasePath, fmt.Sprintf("%s%s.%s", opts.FileName, suffix, opts.FileType))
		if isDir, exists, _ := utils.Exists(file); exists && !isDir {
			configFiles = append(configFiles, file)
		}
	}

	return configFiles
}
