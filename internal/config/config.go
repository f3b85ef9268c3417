package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Pebble    PebbleConfig    `yaml:"pebble"`
	Node      NodeConfig      `yaml:"node"`
	Mining    MiningConfig    `yaml:"mining"`
	Consensus ConsensusConfig `yaml:"consensus"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// PebbleConfig represents the block index database configuration
type PebbleConfig struct {
	Path string `yaml:"path"` // empty keeps the index in memory
}

// NodeConfig identifies this node and its seed peers
type NodeConfig struct {
	ID    string   `yaml:"id"`
	Peers []string `yaml:"peers"`
}

// MiningConfig represents the miner configuration
type MiningConfig struct {
	Reward  float64 `yaml:"reward"`
	Timeout int     `yaml:"timeout"` // seconds, 0 disables the deadline
}

// ConsensusConfig represents the conflict resolution configuration
type ConsensusConfig struct {
	FetchTimeout    int  `yaml:"fetch_timeout"`    // per-peer timeout in seconds
	MaxConcurrent   int  `yaml:"max_concurrent"`   // peers fetched in parallel
	ResolveInterval int  `yaml:"resolve_interval"` // seconds between background resolutions, 0 disables
	StrictIndex     bool `yaml:"strict_index"`     // also reject chains with non-contiguous indexes
}

// LogConfig represents the logger configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Load loads configuration from a YAML file and environment variables
func Load(path string) (*Config, error) {
	cfg := Default()

	// Load from YAML file if it exists
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	cfg.loadEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the configuration used when no file or environment is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 5000,
			Host: "0.0.0.0",
		},
		Mining: MiningConfig{
			Reward: 1,
		},
		Consensus: ConsensusConfig{
			FetchTimeout:  5,
			MaxConcurrent: 8,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Consensus.MaxConcurrent <= 0 {
		return fmt.Errorf("consensus.max_concurrent must be positive, got %d", c.Consensus.MaxConcurrent)
	}
	if c.Consensus.FetchTimeout <= 0 {
		return fmt.Errorf("consensus.fetch_timeout must be positive, got %d", c.Consensus.FetchTimeout)
	}
	if math.IsNaN(c.Mining.Reward) || math.IsInf(c.Mining.Reward, 0) {
		return fmt.Errorf("mining.reward must be a finite number, got %v", c.Mining.Reward)
	}
	if c.Mining.Timeout < 0 || c.Consensus.ResolveInterval < 0 {
		return fmt.Errorf("timeouts and intervals must not be negative")
	}
	return nil
}

// FetchTimeoutDuration returns the per-peer fetch timeout
func (c ConsensusConfig) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}

// ResolveIntervalDuration returns the background resolution period
func (c ConsensusConfig) ResolveIntervalDuration() time.Duration {
	return time.Duration(c.ResolveInterval) * time.Second
}

// TimeoutDuration returns the mining deadline, zero when disabled
func (c MiningConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *Config) loadEnv() {
	// Server config
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}

	// Pebble config
	if path := os.Getenv("PEBBLE_PATH"); path != "" {
		c.Pebble.Path = path
	}

	// Node config
	if id := os.Getenv("NODE_ID"); id != "" {
		c.Node.ID = id
	}
	if peers := os.Getenv("NODE_PEERS"); peers != "" {
		c.Node.Peers = splitList(peers)
	}

	// Mining config
	if reward := os.Getenv("MINING_REWARD"); reward != "" {
		if r, err := strconv.ParseFloat(reward, 64); err == nil {
			c.Mining.Reward = r
		}
	}
	if timeout := os.Getenv("MINING_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			c.Mining.Timeout = t
		}
	}

	// Consensus config
	if timeout := os.Getenv("CONSENSUS_FETCH_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			c.Consensus.FetchTimeout = t
		}
	}
	if maxConcurrent := os.Getenv("CONSENSUS_MAX_CONCURRENT"); maxConcurrent != "" {
		if m, err := strconv.Atoi(maxConcurrent); err == nil {
			c.Consensus.MaxConcurrent = m
		}
	}
	if interval := os.Getenv("CONSENSUS_RESOLVE_INTERVAL"); interval != "" {
		if i, err := strconv.Atoi(interval); err == nil {
			c.Consensus.ResolveInterval = i
		}
	}
	if strict := os.Getenv("CONSENSUS_STRICT_INDEX"); strict != "" {
		c.Consensus.StrictIndex = strict == "true" || strict == "1"
	}

	// Log config
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
