package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ChannelServer holds all configuration for the channel server
// (ServerCtx's composition root, spec.md §9 "avoid static globals").
type ChannelServer struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// ClientVersion is the exact version string PACKET_LOGIN must carry
	// (spec.md §8 scenario 1); a mismatch is rejected with
	// chanerr.ErrWrongClientVersion before any account lookup runs.
	ClientVersion string `yaml:"client_version"`

	// World server connection (internal/worldlink.Dial)
	WorldHost string `yaml:"world_host"`
	WorldPort int    `yaml:"world_port"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// Content
	DefinitionsDir string `yaml:"definitions_dir"` // internal/definitions.LoadDir
	ContentDir     string `yaml:"content_dir"`     // internal/content.LoadDir (event graph, quests, group actions)
	ScriptsDir     string `yaml:"scripts_dir"`     // internal/scripthost.NewLuaHost, "" = scripthost.NoOp

	// Sessions
	SessionTimeout time.Duration `yaml:"session_timeout"` // idle disconnect (default: 5m)

	// Write queue / timeouts
	WriteTimeout  time.Duration `yaml:"write_timeout"`   // per-write deadline (default: 5s)
	SendQueueSize int           `yaml:"send_queue_size"` // per-client outbox capacity (default: 256)

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error (default: info)
}

// DefaultChannelServer returns ChannelServer config with sensible defaults.
func DefaultChannelServer() ChannelServer {
	return ChannelServer{
		BindAddress:    "0.0.0.0",
		Port:           9014,
		ClientVersion:  "1.002",
		WorldHost:      "127.0.0.1",
		WorldPort:      9015,
		DefinitionsDir: "data/definitions/",
		ContentDir:     "data/content/",
		ScriptsDir:     "",
		SessionTimeout: 5 * time.Minute,
		WriteTimeout:   5 * time.Second,
		SendQueueSize:  256,
		LogLevel:       "info",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "la2go",
			Password: "la2go",
			DBName:   "la2go",
			SSLMode:  "disable",
		},
	}
}

// LoadChannelServer loads channel server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadChannelServer(path string) (ChannelServer, error) {
	cfg := DefaultChannelServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
