package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/grtinfo/grtinfo/constants"
)

const (
	KeyNetworkSubgraphURL   = "network_subgraph_url"
	KeyMyIndexerID          = "my_indexer_id"
	KeyENSSubgraphURL       = "ens_subgraph_url"
	KeyRPCURL               = "rpc_url"
	KeyAnalyticsSubgraphURL = "analytics_subgraph_url"
)

var ErrMissingNetworkURL = errors.New("network subgraph URL not configured")

type Config struct {
	NetworkSubgraphURL   string `mapstructure:"network_subgraph_url"`
	MyIndexerID          string `mapstructure:"my_indexer_id"`
	ENSSubgraphURL       string `mapstructure:"ens_subgraph_url"`
	RPCURL               string `mapstructure:"rpc_url"`
	AnalyticsSubgraphURL string `mapstructure:"analytics_subgraph_url"`
}

// DefaultPath is ~/.grtinfo/config.json, or empty when there is no home
// directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".grtinfo", "config.json")
}

// NewViper returns a viper instance with the environment bindings in place.
// Flags are bound by the caller.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")

	_ = v.BindEnv(KeyNetworkSubgraphURL, "THEGRAPH_NETWORK_SUBGRAPH_URL")
	_ = v.BindEnv(KeyMyIndexerID, "MY_INDEXER_ID")
	_ = v.BindEnv(KeyENSSubgraphURL, "ENS_SUBGRAPH_URL")
	_ = v.BindEnv(KeyRPCURL, "RPC_URL", "ARBITRUM_RPC_URL")
	_ = v.BindEnv(KeyAnalyticsSubgraphURL, "THEGRAPH_ANALYTICS_SUBGRAPH_URL")

	return v
}

// ReadFile merges a JSON config file into v. A missing file is only an error
// when the path was given explicitly.
func ReadFile(v *viper.Viper, path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("config file %s: %w", path, err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.NetworkSubgraphURL = strings.TrimSpace(c.NetworkSubgraphURL)
	c.MyIndexerID = strings.ToLower(strings.TrimSpace(c.MyIndexerID))
	c.ENSSubgraphURL = strings.TrimSpace(c.ENSSubgraphURL)
	c.RPCURL = strings.TrimSpace(c.RPCURL)
	c.AnalyticsSubgraphURL = strings.TrimSpace(c.AnalyticsSubgraphURL)
}

// RequireNetworkURL explains how to configure the network subgraph when it
// is missing.
func (c *Config) RequireNetworkURL() error {
	if c.NetworkSubgraphURL != "" {
		return nil
	}
	return fmt.Errorf("%w: set THEGRAPH_NETWORK_SUBGRAPH_URL, add %q to %s or pass --url",
		ErrMissingNetworkURL, KeyNetworkSubgraphURL, DefaultPath())
}

func (c *Config) RPCURLOrDefault() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	return constants.DefaultRPCURL
}
