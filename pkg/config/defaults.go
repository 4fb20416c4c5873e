package config

const (
	defaultSQLitePath = "mnemo.db"

	defaultVectorProvider = "sqlitevec"
	defaultVectorTarget   = "mnemo-vec.db"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultLexicalWeight = 0.5
	defaultVectorWeight  = 0.5

	defaultEventstreamProvider = "nop"
	defaultEventstreamTopic    = "mnemo.records"

	defaultBackupDir = "backups"

	defaultWorkerCount     = 3
	defaultWorkerQueue     = 256
	defaultWorkerBatch     = 100
	defaultWorkerIntervalS = 60
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			SQLitePath: defaultSQLitePath,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
			Target:   defaultVectorTarget,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Search: SearchConfig{
			LexicalWeight: defaultLexicalWeight,
			VectorWeight:  defaultVectorWeight,
		},
		Eventstream: EventstreamConfig{
			Provider: defaultEventstreamProvider,
			Topic:    defaultEventstreamTopic,
		},
		Migration: MigrationConfig{
			BackupDir: defaultBackupDir,
		},
		Worker: WorkerConfig{
			NumWorkers:      defaultWorkerCount,
			QueueSize:       defaultWorkerQueue,
			BatchSize:       defaultWorkerBatch,
			IntervalSeconds: defaultWorkerIntervalS,
		},
	}
}
