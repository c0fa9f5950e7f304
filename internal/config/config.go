// Package config loads the Host runtime's configuration, following the
// YAML-or-JSON file loading pattern of trellis's
// pkg/adapters/process.LoadTools, generalized with mapstructure for the
// looser "config as a map" entry point functional options need.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/chronicals/sdk/internal/logging"
)

// OnErrorFunc is the onError hook of spec.md §6. It receives the handler
// error and the route slug only; the action definition, params,
// environment, user and organization are not passed to it.
type OnErrorFunc func(err error, route string)

// Config holds every configuration key spec.md §6 names, plus the
// ambient logLevel/onError hook a real deployment needs.
type Config struct {
	APIKey          string        `yaml:"apiKey" mapstructure:"apiKey"`
	Endpoint        string        `yaml:"endpoint" mapstructure:"endpoint"`
	LogLevel        logging.Level `yaml:"logLevel" mapstructure:"logLevel"`
	RoutesDirectory string        `yaml:"routesDirectory" mapstructure:"routesDirectory"`

	RetryIntervalMs                    int `yaml:"retryIntervalMs" mapstructure:"retryIntervalMs"`
	PingIntervalMs                     int `yaml:"pingIntervalMs" mapstructure:"pingIntervalMs"`
	PingTimeoutMs                      int `yaml:"pingTimeoutMs" mapstructure:"pingTimeoutMs"`
	ConnectTimeoutMs                   int `yaml:"connectTimeoutMs" mapstructure:"connectTimeoutMs"`
	SendTimeoutMs                      int `yaml:"sendTimeoutMs" mapstructure:"sendTimeoutMs"`
	CloseUnresponsiveConnectionTimeoutMs int `yaml:"closeUnresponsiveConnectionTimeoutMs" mapstructure:"closeUnresponsiveConnectionTimeoutMs"`
	ReinitializeBatchTimeoutMs          int `yaml:"reinitializeBatchTimeoutMs" mapstructure:"reinitializeBatchTimeoutMs"`
	CompleteHTTPRequestDelayMs          int `yaml:"completeHttpRequestDelayMs" mapstructure:"completeHttpRequestDelayMs"`
	CompleteShutdownDelayMs             int `yaml:"completeShutdownDelayMs" mapstructure:"completeShutdownDelayMs"`
	MaxResendAttempts                   int `yaml:"maxResendAttempts" mapstructure:"maxResendAttempts"`

	VerboseMessageLogs bool `yaml:"verboseMessageLogs" mapstructure:"verboseMessageLogs"`

	OnError OnErrorFunc `yaml:"-" mapstructure:"-"`
}

// Defaults returns a Config with every timing key set to the values named
// or implied by spec.md (e.g. §4.6's "default 180s" for the unresponsive
// connection timeout).
func Defaults() Config {
	return Config{
		Endpoint:                            "wss://api.example.com/websocket",
		LogLevel:                            logging.LevelInfo,
		RetryIntervalMs:                     1000,
		PingIntervalMs:                      30000,
		PingTimeoutMs:                       5000,
		ConnectTimeoutMs:                    10000,
		SendTimeoutMs:                       10000,
		CloseUnresponsiveConnectionTimeoutMs: 180000,
		ReinitializeBatchTimeoutMs:          200,
		CompleteHTTPRequestDelayMs:          200,
		CompleteShutdownDelayMs:             500,
		MaxResendAttempts:                   5,
	}
}

// Load reads a YAML or JSON config file and merges it over Defaults(),
// mirroring trellis's LoadTools extension-sniffing pattern.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var raw map[string]any
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := mapstructure.Decode(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) RetryInterval() time.Duration { return time.Duration(c.RetryIntervalMs) * time.Millisecond }
func (c Config) PingInterval() time.Duration  { return time.Duration(c.PingIntervalMs) * time.Millisecond }
func (c Config) PingTimeout() time.Duration   { return time.Duration(c.PingTimeoutMs) * time.Millisecond }
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}
func (c Config) SendTimeout() time.Duration { return time.Duration(c.SendTimeoutMs) * time.Millisecond }
func (c Config) CloseUnresponsiveConnectionTimeout() time.Duration {
	return time.Duration(c.CloseUnresponsiveConnectionTimeoutMs) * time.Millisecond
}
func (c Config) ReinitializeBatchTimeout() time.Duration {
	return time.Duration(c.ReinitializeBatchTimeoutMs) * time.Millisecond
}
func (c Config) CompleteHTTPRequestDelay() time.Duration {
	return time.Duration(c.CompleteHTTPRequestDelayMs) * time.Millisecond
}
func (c Config) CompleteShutdownDelay() time.Duration {
	return time.Duration(c.CompleteShutdownDelayMs) * time.Millisecond
}
