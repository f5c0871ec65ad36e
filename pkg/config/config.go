/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/gfxlog/pkg/codec"
	"github.com/ssargent/gfxlog/pkg/dump"
	"github.com/ssargent/gfxlog/pkg/interp"
	"github.com/ssargent/gfxlog/pkg/report"
)

// Config represents the gfxlog configuration
type Config struct {
	Decode  Decode  `yaml:"decode"`
	Report  Report  `yaml:"report"`
	Archive Archive `yaml:"archive"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Decode controls how dumps are scanned
type Decode struct {
	MaxDataSize uint32 `yaml:"max_data_size"`
	Workers     int    `yaml:"workers"`
	ChunkSize   int    `yaml:"chunk_size"`
}

// Report controls how decoded streams are rendered
type Report struct {
	Format          string            `yaml:"format"`
	SortByTimestamp bool              `yaml:"sort_by_timestamp"`
	MaxPayloadBytes int               `yaml:"max_payload_bytes"`
	Opcodes         map[uint32]string `yaml:"opcodes,omitempty"`
	SubdecodeOpcode string            `yaml:"subdecode_opcode"`
}

// Archive contains storage configuration
type Archive struct {
	DataDir string `yaml:"data_dir"`
}

// Server contains REST API configuration
type Server struct {
	Bind   string `yaml:"bind"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Decode: Decode{
			MaxDataSize: codec.MaxDataSize,
			Workers:     dump.DefaultWorkers,
			ChunkSize:   dump.DefaultChunkSize,
		},
		Report: Report{
			Format:          report.FormatText,
			SortByTimestamp: true,
			MaxPayloadBytes: 256,
			SubdecodeOpcode: interp.QueueFlushCommands,
		},
		Archive: Archive{
			DataDir: "./data",
		},
		Server: Server{
			Bind:   "127.0.0.1",
			Port:   8080,
			APIKey: "auto",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path. Sections missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports every setting that cannot be used
func (c *Config) Validate() error {
	var errs []error

	if c.Decode.MaxDataSize == 0 {
		errs = append(errs, errors.New("decode.max_data_size must be positive"))
	}
	if c.Decode.Workers < 1 {
		errs = append(errs, fmt.Errorf("decode.workers must be at least 1, got %d", c.Decode.Workers))
	}
	if c.Decode.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("decode.chunk_size must not be negative, got %d", c.Decode.ChunkSize))
	}

	switch c.Report.Format {
	case report.FormatText, report.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("report.format must be %q or %q, got %q", report.FormatText, report.FormatJSON, c.Report.Format))
	}
	if c.Report.MaxPayloadBytes < 0 {
		errs = append(errs, fmt.Errorf("report.max_payload_bytes must not be negative, got %d", c.Report.MaxPayloadBytes))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// OpcodeNames returns the opcode table for the report, defaults plus any
// configured names
func (c *Config) OpcodeNames() interp.OpcodeNames {
	names := interp.DefaultOpcodeNames()
	for op, name := range c.Report.Opcodes {
		names[op] = name
	}
	return names
}

// ScannerConfig returns the scanner settings from the decode section
func (c *Config) ScannerConfig() dump.ScannerConfig {
	return dump.ScannerConfig{
		Workers:     c.Decode.Workers,
		ChunkSize:   c.Decode.ChunkSize,
		MaxDataSize: c.Decode.MaxDataSize,
	}
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.Archive.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./gfxlog.yaml"
	}

	// For Linux/macOS, use ~/.config/gfxlog/config.yaml
	configDir := filepath.Join(homeDir, ".config", "gfxlog")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
