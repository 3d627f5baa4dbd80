// ABOUTME: Configuration loading and parsing for foundry-relay
// ABOUTME: Supports YAML files with environment variable expansion plus env-only operation

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// APIVersion is the api-version query parameter sent on every call to the
// agent service. The relay speaks exactly one version of the contract.
const APIVersion = "v1"

// Config represents the complete foundry-relay configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Agent    AgentConfig    `yaml:"agent"`
	Identity IdentityConfig `yaml:"identity"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Debug    bool           `yaml:"debug"`
}

// ServerConfig holds the listen address for the HTTP front end
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// AgentConfig holds the remote agent service settings
type AgentConfig struct {
	// Endpoint is the project endpoint URL, e.g.
	// https://<resource>.services.ai.azure.com/api/projects/<project>
	Endpoint string `yaml:"endpoint"`

	// ID names the remote agent (assistant) definition executed per run
	ID string `yaml:"id"`

	// APIKey is an optional static key; when empty the identity
	// token mechanism is used instead
	APIKey string `yaml:"api_key"`
}

// IdentityConfig holds OAuth2 client-credentials inputs for the
// token-based credential fallback
type IdentityConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded. Environment
// overrides are applied after parsing, so a partial file plus env vars works.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// FromEnv builds a Config entirely from environment variables, for
// deployments without a config file (app-service style hosting).
func FromEnv() (*Config, error) {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// applyEnv overlays recognized environment variables onto the config.
// Env always wins over file values so operators can override a baked-in file.
func (c *Config) applyEnv() {
	if v := os.Getenv("AZURE_AI_PROJECT_ENDPOINT"); v != "" {
		c.Agent.Endpoint = v
	}
	if v := os.Getenv("AZURE_AI_AGENT_ID"); v != "" {
		c.Agent.ID = v
	}
	if v := os.Getenv("AZURE_AI_API_KEY"); v != "" {
		c.Agent.APIKey = v
	}
	if v := os.Getenv("AZURE_TENANT_ID"); v != "" {
		c.Identity.TenantID = v
	}
	if v := os.Getenv("AZURE_CLIENT_ID"); v != "" {
		c.Identity.ClientID = v
	}
	if v := os.Getenv("AZURE_CLIENT_SECRET"); v != "" {
		c.Identity.ClientSecret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.HTTPAddr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		c.Debug = true
	}
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":5000"
	}
	if c.Logging.Level == "" {
		if c.Debug {
			c.Logging.Level = "debug"
		} else {
			c.Logging.Level = "info"
		}
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	// A trailing slash breaks URL joining against the threads routes
	c.Agent.Endpoint = strings.TrimRight(c.Agent.Endpoint, "/")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Agent.Endpoint == "" {
		return fmt.Errorf("agent.endpoint is required (or set AZURE_AI_PROJECT_ENDPOINT)")
	}
	u, err := url.Parse(c.Agent.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("agent.endpoint %q is not a valid URL", c.Agent.Endpoint)
	}
	if c.Agent.ID == "" {
		return fmt.Errorf("agent.id is required (or set AZURE_AI_AGENT_ID)")
	}
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	return nil
}

// HasAPIKey reports whether a static API key is configured.
func (c *Config) HasAPIKey() bool {
	return c.Agent.APIKey != ""
}

// HasIdentity reports whether the OAuth2 client-credentials inputs are complete.
func (c *Config) HasIdentity() bool {
	return c.Identity.TenantID != "" && c.Identity.ClientID != "" && c.Identity.ClientSecret != ""
}

// EndpointHost returns the hostname of the configured endpoint, used by the
// diagnostics DNS check.
func (c *Config) EndpointHost() (string, error) {
	u, err := url.Parse(c.Agent.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	return u.Hostname(), nil
}
