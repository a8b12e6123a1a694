package config

import (
	"bytes"
	"io"
	"os"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	SessionConfig
	SecurityConfig
	IdentityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsDev() bool
	GetBaseURL() string
	GetLogLevel() string
}

// mainConfig is also the YAML schema. Environment variables override file
// values.
type mainConfig struct {
	EnvVars  `yaml:",inline"`
	Session  `yaml:"session"`
	Security `yaml:"security"`
	Identity `yaml:"identity"`
}

func defaults() mainConfig {
	return mainConfig{
		EnvVars:  defaultEnvVars(),
		Session:  defaultSession(),
		Security: defaultSecurity(),
		Identity: defaultIdentity(),
	}
}

// Load reads the optional YAML file at path, overlays the environment and
// validates the result. Every problem is reported at once in a
// *ValidationError.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config file")
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return nil, err
		}
	}

	v := &ValidationError{}
	cfg.EnvVars.overlay(v)
	cfg.Session.overlay(v)
	cfg.Security.overlay(v)
	cfg.Identity.overlay(v)

	cfg.EnvVars.validate(v)
	cfg.Session.validate(v)
	cfg.Security.validate(v)
	cfg.Identity.validate(v, cfg.EnvVars)
	if v.HasErrors() {
		return nil, v
	}

	if err := cfg.Identity.deriveKeys(cfg.EnvVars); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *mainConfig) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return errors.Wrapf(err, "yaml")
	}
	return nil
}
