package device

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds configuration for device handling and the file system tools
type Config struct {
	MountsFile         string `mapstructure:"mounts_file"`
	FallbackMountsFile string `mapstructure:"fallback_mounts_file"`
	SyncPasses         int    `mapstructure:"sync_passes"`
	CheckChunkBlocks   int    `mapstructure:"check_chunk_blocks"`
	MaxDepth           int    `mapstructure:"max_depth"`
	DefaultFsVersion   int    `mapstructure:"default_fs_version"`
	DefaultNameLength  int    `mapstructure:"default_name_length"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		MountsFile:         "/proc/self/mounts",
		FallbackMountsFile: "/etc/mtab",
		SyncPasses:         3,
		CheckChunkBlocks:   16,
		MaxDepth:           50,
		DefaultFsVersion:   1,
		DefaultNameLength:  30,
	}
}

// LoadConfig loads configuration using Viper. An explicit configFile is read
// as is; otherwise minixfs-config.yaml is searched for in the usual places.
// A missing file is not an error.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("minixfs-config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.minixfs")
		v.AddConfigPath("/etc/minixfs")
	}

	defaults := DefaultConfig()
	v.SetDefault("mounts_file", defaults.MountsFile)
	v.SetDefault("fallback_mounts_file", defaults.FallbackMountsFile)
	v.SetDefault("sync_passes", defaults.SyncPasses)
	v.SetDefault("check_chunk_blocks", defaults.CheckChunkBlocks)
	v.SetDefault("max_depth", defaults.MaxDepth)
	v.SetDefault("default_fs_version", defaults.DefaultFsVersion)
	v.SetDefault("default_name_length", defaults.DefaultNameLength)

	// Allow environment variables
	v.SetEnvPrefix("MINIXFS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects values the tools cannot work with
func (c *Config) Validate() error {
	if c.CheckChunkBlocks <= 0 {
		return fmt.Errorf("check_chunk_blocks must be positive, got %d", c.CheckChunkBlocks)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.SyncPasses < 0 {
		return fmt.Errorf("sync_passes must not be negative, got %d", c.SyncPasses)
	}
	switch c.DefaultFsVersion {
	case 1, 2, 3:
	default:
		return fmt.Errorf("default_fs_version must be 1, 2 or 3, got %d", c.DefaultFsVersion)
	}
	switch c.DefaultNameLength {
	case 14, 30, 60:
	default:
		return fmt.Errorf("default_name_length must be 14, 30 or 60, got %d", c.DefaultNameLength)
	}
	return nil
}
