package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

const (
	defaultHost               = "0.0.0.0"
	defaultPort               = 2222
	defaultHostKeyPath        = ".data/host_ed25519"
	defaultIdleTimeout        = 15 * time.Minute
	defaultMaxSessions        = 32
	defaultRateLimitPerMinute = 30
	defaultRateLimitBurst     = 10
	defaultExportDir          = ".data/exports"
	defaultLogLevel           = "info"
	defaultGatewayAddr        = "127.0.0.1:8080"
	defaultGatewayEditorPath  = "vibe"
	maximumConfiguredSessions = 1024

	envConfigFile = "VIBE_CONFIG_FILE"
)

// Config captures startup settings for the server and local entrypoints.
type Config struct {
	Host               string
	Port               int
	HostKeyPath        string
	IdleTimeout        time.Duration
	MaxSessions        int
	RateLimitPerMinute int
	RateLimitBurst     int
	ExportDir          string
	LogLevel           log.Level

	// GatewayAddr is the HTTP listen address of the browser gateway.
	GatewayAddr string
	// GatewayEditorPath is the local editor binary the gateway runs per
	// browser session.
	GatewayEditorPath string
}

// Address returns host:port for the SSH listener.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// fileConfig is the optional YAML overlay. Zero values mean "not set".
type fileConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	HostKeyPath string `yaml:"host_key_path"`
	IdleTimeout string `yaml:"idle_timeout"`
	MaxSessions int    `yaml:"max_sessions"`
	RateLimit   struct {
		PerMinute int `yaml:"per_minute"`
		Burst     int `yaml:"burst"`
	} `yaml:"rate_limit"`
	ExportDir string `yaml:"export_dir"`
	LogLevel  string `yaml:"log_level"`
	Gateway   struct {
		Addr       string `yaml:"addr"`
		EditorPath string `yaml:"editor_path"`
	} `yaml:"gateway"`
}

// defaults is the table of fallbacks, as strings so file values and built-in
// defaults go through the same parsing as environment values.
type defaults map[string]string

// LoadFromEnv loads runtime configuration. Values come from built-in
// defaults, then the YAML file named by VIBE_CONFIG_FILE, then environment
// variables. All validation failures are reported together.
func LoadFromEnv() (Config, error) {
	fallback := defaults{
		"VIBE_SSH_HOST":                  defaultHost,
		"VIBE_SSH_PORT":                  strconv.Itoa(defaultPort),
		"VIBE_SSH_HOST_KEY_PATH":         defaultHostKeyPath,
		"VIBE_SSH_IDLE_TIMEOUT":          defaultIdleTimeout.String(),
		"VIBE_SSH_MAX_SESSIONS":          strconv.Itoa(defaultMaxSessions),
		"VIBE_SSH_RATE_LIMIT_PER_MINUTE": strconv.Itoa(defaultRateLimitPerMinute),
		"VIBE_SSH_RATE_LIMIT_BURST":      strconv.Itoa(defaultRateLimitBurst),
		"VIBE_EXPORT_DIR":                defaultExportDir,
		"VIBE_LOG_LEVEL":                 defaultLogLevel,
		"VIBE_GATEWAY_ADDR":              defaultGatewayAddr,
		"VIBE_GATEWAY_EDITOR_PATH":       defaultGatewayEditorPath,
	}

	if path, ok := os.LookupEnv(envConfigFile); ok && strings.TrimSpace(path) != "" {
		if err := fallback.overlayFile(strings.TrimSpace(path)); err != nil {
			return Config{}, err
		}
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	host, err := readRequiredOrDefault("VIBE_SSH_HOST", fallback)
	collect(err)

	port, err := readInt("VIBE_SSH_PORT", fallback, 1, 65535)
	collect(err)

	hostKeyPath, err := readRequiredOrDefault("VIBE_SSH_HOST_KEY_PATH", fallback)
	collect(err)
	cleanHostKeyPath := filepath.Clean(hostKeyPath)
	if err == nil && cleanHostKeyPath == "." {
		collect(fmt.Errorf("VIBE_SSH_HOST_KEY_PATH must not resolve to current directory"))
	}

	idleTimeout, err := readDuration("VIBE_SSH_IDLE_TIMEOUT", fallback)
	collect(err)

	maxSessions, err := readInt("VIBE_SSH_MAX_SESSIONS", fallback, 1, maximumConfiguredSessions)
	collect(err)

	perMinute, err := readInt("VIBE_SSH_RATE_LIMIT_PER_MINUTE", fallback, 1, 100000)
	collect(err)

	burst, err := readInt("VIBE_SSH_RATE_LIMIT_BURST", fallback, 1, 10000)
	collect(err)

	exportDir, err := readRequiredOrDefault("VIBE_EXPORT_DIR", fallback)
	collect(err)

	rawLevel, err := readRequiredOrDefault("VIBE_LOG_LEVEL", fallback)
	collect(err)
	level, levelErr := log.ParseLevel(strings.ToLower(rawLevel))
	if err == nil && levelErr != nil {
		collect(fmt.Errorf("VIBE_LOG_LEVEL must be one of debug, info, warn, error, fatal: %w", levelErr))
	}

	gatewayAddr, err := readRequiredOrDefault("VIBE_GATEWAY_ADDR", fallback)
	collect(err)

	editorPath, err := readRequiredOrDefault("VIBE_GATEWAY_EDITOR_PATH", fallback)
	collect(err)

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return Config{
		Host:               host,
		Port:               port,
		HostKeyPath:        cleanHostKeyPath,
		IdleTimeout:        idleTimeout,
		MaxSessions:        maxSessions,
		RateLimitPerMinute: perMinute,
		RateLimitBurst:     burst,
		ExportDir:          filepath.Clean(exportDir),
		LogLevel:           level,
		GatewayAddr:        gatewayAddr,
		GatewayEditorPath:  editorPath,
	}, nil
}

func (d defaults) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: read %s: %w", envConfigFile, path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("%s: parse %s: %w", envConfigFile, path, err)
	}

	setString := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			d[key] = value
		}
	}
	setInt := func(key string, value int) {
		if value != 0 {
			d[key] = strconv.Itoa(value)
		}
	}
	setString("VIBE_SSH_HOST", fc.Host)
	setInt("VIBE_SSH_PORT", fc.Port)
	setString("VIBE_SSH_HOST_KEY_PATH", fc.HostKeyPath)
	setString("VIBE_SSH_IDLE_TIMEOUT", fc.IdleTimeout)
	setInt("VIBE_SSH_MAX_SESSIONS", fc.MaxSessions)
	setInt("VIBE_SSH_RATE_LIMIT_PER_MINUTE", fc.RateLimit.PerMinute)
	setInt("VIBE_SSH_RATE_LIMIT_BURST", fc.RateLimit.Burst)
	setString("VIBE_EXPORT_DIR", fc.ExportDir)
	setString("VIBE_LOG_LEVEL", fc.LogLevel)
	setString("VIBE_GATEWAY_ADDR", fc.Gateway.Addr)
	setString("VIBE_GATEWAY_EDITOR_PATH", fc.Gateway.EditorPath)
	return nil
}

func lookup(key string, fallback defaults) string {
	if raw, ok := os.LookupEnv(key); ok {
		return raw
	}
	return fallback[key]
}

func readRequiredOrDefault(key string, fallback defaults) (string, error) {
	raw := strings.TrimSpace(lookup(key, fallback))
	if raw == "" {
		return "", fmt.Errorf("%s must not be empty", key)
	}

	return raw, nil
}

func readInt(key string, fallback defaults, min, max int) (int, error) {
	raw := strings.TrimSpace(lookup(key, fallback))

	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if parsed < min || parsed > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}

	return parsed, nil
}

func readDuration(key string, fallback defaults) (time.Duration, error) {
	raw := strings.TrimSpace(lookup(key, fallback))

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}
