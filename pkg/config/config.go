package config

// Package config provides a reusable loader for the sandbox engine's
// configuration files and environment variables.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"indexer-runtime/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for cmd/runtime.
type Config struct {
	Engine struct {
		HandlerTimeoutMS int `mapstructure:"handler_timeout_ms" json:"handler_timeout_ms"`

		// ApiVersion is the Version Registry requirement (">=" this
		// value) used to resolve the engine's feature set.
		ApiVersion string `mapstructure:"api_version" json:"api_version"`

		// AbiVersion is the caller-supplied ABI version (spec §6)
		// forwarded to the sandbox as ExecutionContext.AbiVersion,
		// selecting record layouts and host-call behavior directly -
		// never resolved through the Version Registry.
		AbiVersion string `mapstructure:"abi_version" json:"abi_version"`
	} `mapstructure:"engine" json:"engine"`

	Collaborators struct {
		IpfsEndpoint        string `mapstructure:"ipfs_endpoint" json:"ipfs_endpoint"`
		EthereumRPCEndpoint string `mapstructure:"ethereum_rpc_endpoint" json:"ethereum_rpc_endpoint"`
	} `mapstructure:"collaborators" json:"collaborators"`

	Metrics struct {
		Namespace  string `mapstructure:"namespace" json:"namespace"`
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"metrics" json:"metrics"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	// Best effort: a missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up from .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the RUNTIME_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("RUNTIME_ENV", ""))
}
