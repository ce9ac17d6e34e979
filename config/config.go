package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goalmesh/goalmesh/core"
)

// Config models goalmesh.yml.
type Config struct {
	Model struct {
		Provider  string `yaml:"provider"`
		Name      string `yaml:"name"`
		MaxTokens int    `yaml:"max_tokens"`
	} `yaml:"model"`
	Engine struct {
		MaxConcurrentTasks int     `yaml:"max_concurrent_tasks"`
		MaxRetries         int     `yaml:"max_retries"`
		PassThreshold      float64 `yaml:"pass_threshold"`
		CostPerToken       float64 `yaml:"cost_per_token"`
		CallTimeout        string  `yaml:"call_timeout"`
		BlockOnFailedDeps  bool    `yaml:"block_on_failed_deps"`
	} `yaml:"engine"`
	Limits struct {
		GoalsPerHour      int      `yaml:"goals_per_hour"`
		DispatchesPerHour int      `yaml:"dispatches_per_hour"`
		MaxSpendPerHour   float64  `yaml:"max_spend_per_hour"`
		BlockedChannels   []string `yaml:"blocked_channels"`
	} `yaml:"limits"`
	Business map[string]string `yaml:"business"`
	Agents   map[string]struct {
		Guidance   string `yaml:"guidance"`
		MaxRetries *int   `yaml:"max_retries"`
	} `yaml:"agents"`
	Storage struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"storage"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "", "anthropic", "openai", "mock":
	default:
		return fmt.Errorf("config.model.provider must be anthropic, openai or mock")
	}
	if c.Engine.MaxConcurrentTasks < 0 {
		return fmt.Errorf("config.engine.max_concurrent_tasks must not be negative")
	}
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("config.engine.max_retries must not be negative")
	}
	if c.Engine.PassThreshold < 0 || c.Engine.PassThreshold > 100 {
		return fmt.Errorf("config.engine.pass_threshold must be within 0..100")
	}
	if c.Engine.CallTimeout != "" {
		if _, err := time.ParseDuration(c.Engine.CallTimeout); err != nil {
			return fmt.Errorf("config.engine.call_timeout: %w", err)
		}
	}
	if c.Limits.GoalsPerHour < 0 || c.Limits.DispatchesPerHour < 0 || c.Limits.MaxSpendPerHour < 0 {
		return fmt.Errorf("config.limits rates must not be negative")
	}
	for name, a := range c.Agents {
		if _, err := core.ParseAgentID(name); err != nil {
			return fmt.Errorf("config.agents: %w", err)
		}
		if a.MaxRetries != nil && *a.MaxRetries < 0 {
			return fmt.Errorf("config.agents.%s.max_retries must not be negative", name)
		}
	}
	switch c.Storage.Driver {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("config.storage.driver must be memory or sqlite")
	}
	return nil
}

// CallTimeout returns the parsed call timeout, or zero when unset.
func (c *Config) CallTimeout() time.Duration {
	if c.Engine.CallTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Engine.CallTimeout)
	if err != nil {
		return 0
	}
	return d
}

// AgentGuidance returns the per-agent extra guidance map keyed by AgentID.
// Unknown agent names were rejected by Validate, so the conversion is safe.
func (c *Config) AgentGuidance() map[core.AgentID]string {
	if len(c.Agents) == 0 {
		return nil
	}
	out := make(map[core.AgentID]string, len(c.Agents))
	for name, a := range c.Agents {
		id, err := core.ParseAgentID(name)
		if err != nil {
			continue
		}
		out[id] = a.Guidance
	}
	return out
}

// AgentRetries returns per-agent retry budget overrides keyed by AgentID.
// Agents without an explicit max_retries are absent from the map.
func (c *Config) AgentRetries() map[core.AgentID]int {
	out := make(map[core.AgentID]int)
	for name, a := range c.Agents {
		if a.MaxRetries == nil {
			continue
		}
		id, err := core.ParseAgentID(name)
		if err != nil {
			continue
		}
		out[id] = *a.MaxRetries
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "goalmesh.yml")
}

// Default returns the default Config.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		panic(err)
	}
	return cfg
}

const defaultTemplate = `model:
  provider: anthropic
  name: claude-sonnet-4-20250514
  max_tokens: 4096

engine:
  max_concurrent_tasks: 3
  max_retries: 2
  pass_threshold: 70
  cost_per_token: 0.000003
  call_timeout: 90s
  block_on_failed_deps: false

limits:
  goals_per_hour: 20
  dispatches_per_hour: 100
  max_spend_per_hour: 0
  blocked_channels: []

business:
  name: "Acme Studio"
  industry: "creative services"
  tone: "warm, direct, no jargon"

agents:
  copywriter:
    guidance: "Prefer short sentences. Avoid exclamation marks."

storage:
  driver: memory
`
