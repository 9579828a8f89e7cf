package env_mode

import (
	"os"
	"strings"
)

// ENV_MODE_KEY selects the mode; GO_ENV_MODE is read when it is unset.
const (
	ENV_MODE_KEY        = "HOOKFORGE_ENV"
	LEGACY_ENV_MODE_KEY = "GO_ENV_MODE"
)

type ENV_MODE string

const (
	DevMode  ENV_MODE = "development"
	ProMode  ENV_MODE = "production"
	TestMode ENV_MODE = "test"
)

func ParseEnv(env string) ENV_MODE {
	normalizedEnv := strings.ToLower(strings.TrimSpace(env))
	switch normalizedEnv {
	case "development", "dev", "":
		return DevMode
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// Mode reads the current mode from the environment.
func Mode() ENV_MODE {
	if env, ok := os.LookupEnv(ENV_MODE_KEY); ok {
		return ParseEnv(env)
	}
	return ParseEnv(os.Getenv(LEGACY_ENV_MODE_KEY))
}

func SetMode(mode ENV_MODE) {
	os.Setenv(ENV_MODE_KEY, string(mode))
}

// FileSuffixes lists the config file suffixes read in mode, lowest priority
// first. "local" files are meant to stay out of version control.
func FileSuffixes(mode ENV_MODE) []string {
	suffixes := []string{"", ".local"}
	var aliases []string
	switch mode {
	case DevMode:
		aliases = []string{"dev", "development"}
	case ProMode:
		aliases = []string{"pro", "prod", "production"}
	case TestMode:
		aliases = []string{"test"}
	}
	for _, alias := range aliases {
		suffixes = append(suffixes, "."+alias, "."+alias+".local")
	}
	return suffixes
}
