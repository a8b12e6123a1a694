package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	baseURLVar     = "BASE_URL"
	logLevelEnvVar = "LOG_LEVEL"
)

type EnvVars struct {
	Port     string `yaml:"port"`
	AppName  string `yaml:"app_name"`
	Env      string `yaml:"env"`
	BaseURL  string `yaml:"base_url"`
	LogLevel string `yaml:"log_level"`
}

var _ EnvConfig = EnvVars{}

func defaultEnvVars() EnvVars {
	return EnvVars{
		Port:     "8080",
		AppName:  "Dead Horse",
		Env:      "DEV",
		BaseURL:  "http://localhost:8080",
		LogLevel: "info",
	}
}

func (e *EnvVars) overlay(*ValidationError) {
	overlayString(portEnvVar, &e.Port)
	overlayString(appNameVar, &e.AppName)
	overlayString(envVar, &e.Env)
	overlayString(baseURLVar, &e.BaseURL)
	overlayString(logLevelEnvVar, &e.LogLevel)
}

func (e EnvVars) validate(v *ValidationError) {
	port, err := strconv.Atoi(strings.TrimPrefix(e.Port, ":"))
	if err != nil || port < 1 || port > 65535 {
		v.add("port", "must be a TCP port number, got %q", e.Port)
	}
	if strings.TrimSpace(e.AppName) == "" {
		v.add("app_name", "is required")
	}
	if strings.TrimSpace(e.Env) == "" {
		v.add("env", "is required")
	}
	if msg := checkHTTPURL(e.BaseURL); msg != "" {
		v.add("base_url", "%s", msg)
	}
	if _, err := zerolog.ParseLevel(e.LogLevel); err != nil {
		v.add("log_level", "unknown level %q", e.LogLevel)
	}
}

func (e EnvVars) GetPort() string {
	return fmt.Sprintf(":%s", strings.TrimPrefix(e.Port, ":"))
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

func (e EnvVars) IsDev() bool {
	return strings.EqualFold(e.Env, "DEV")
}

// GetBaseURL returns the public URL of the storefront (e.g., "https://shop.example").
// Email links and OIDC redirects are built from it.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimRight(e.BaseURL, "/")
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
