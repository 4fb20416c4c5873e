package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent mnemo configuration stored as config.toml
// in the .mnemo/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Search      SearchConfig      `toml:"search"`
	Eventstream EventstreamConfig `toml:"eventstream"`
	Migration   MigrationConfig   `toml:"migration"`
	Worker      WorkerConfig      `toml:"worker"`
}

// StorageConfig holds record store settings.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// VectorStoreConfig holds vector index settings. For the sqlitevec
// provider Target is a database path; for chroma it is a server URL.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// SearchConfig holds hybrid retrieval fusion weights.
type SearchConfig struct {
	LexicalWeight float64 `toml:"lexical_weight,omitempty"`
	VectorWeight  float64 `toml:"vector_weight,omitempty"`
}

// EventstreamConfig holds record event publishing settings.
type EventstreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// MigrationConfig holds migration manager settings, including the
// fallback model identifiers the verify step applies instead of baking
// them into transformation logic.
type MigrationConfig struct {
	BackupDir          string `toml:"backup_dir,omitempty"`
	DefaultChatModel   string `toml:"default_chat_model,omitempty"`
	DefaultMemoryModel string `toml:"default_memory_model,omitempty"`
}

// WorkerConfig holds reconciliation pool settings.
type WorkerConfig struct {
	NumWorkers      uint `toml:"num_workers,omitempty"`
	QueueSize       uint `toml:"queue_size,omitempty"`
	BatchSize       int  `toml:"batch_size,omitempty"`
	IntervalSeconds int  `toml:"interval_seconds,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"search.lexical_weight": {
		get: func(c *Config) string { return formatWeight(c.Search.LexicalWeight) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for search.lexical_weight: %w", err)
			}
			c.Search.LexicalWeight = f
			return nil
		},
	},
	"search.vector_weight": {
		get: func(c *Config) string { return formatWeight(c.Search.VectorWeight) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for search.vector_weight: %w", err)
			}
			c.Search.VectorWeight = f
			return nil
		},
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.Eventstream.Provider },
		set: func(c *Config, v string) error { c.Eventstream.Provider = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.Eventstream.Topic },
		set: func(c *Config, v string) error { c.Eventstream.Topic = v; return nil },
	},
	"migration.backup_dir": {
		get: func(c *Config) string { return c.Migration.BackupDir },
		set: func(c *Config, v string) error { c.Migration.BackupDir = v; return nil },
	},
	"migration.default_chat_model": {
		get: func(c *Config) string { return c.Migration.DefaultChatModel },
		set: func(c *Config, v string) error { c.Migration.DefaultChatModel = v; return nil },
	},
	"migration.default_memory_model": {
		get: func(c *Config) string { return c.Migration.DefaultMemoryModel },
		set: func(c *Config, v string) error { c.Migration.DefaultMemoryModel = v; return nil },
	},
	"worker.num_workers": {
		get: func(c *Config) string {
			if c.Worker.NumWorkers == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Worker.NumWorkers), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for worker.num_workers: %w", err)
			}
			c.Worker.NumWorkers = uint(n)
			return nil
		},
	},
}

func formatWeight(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
