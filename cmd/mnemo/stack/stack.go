// Package stack assembles the storage, vector, embedding and eventstream
// layers for CLI commands from the resolved configuration. Commands that
// operate on local data share this wiring instead of repeating it.
package stack

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/cmd/mnemo/sqlitepath"
	"github.com/mnemohq/mnemo/pkg/config"
	"github.com/mnemohq/mnemo/pkg/embeddings"
	embeddingutils "github.com/mnemohq/mnemo/pkg/embeddings/utils"
	"github.com/mnemohq/mnemo/pkg/eventstream"
	eventkafka "github.com/mnemohq/mnemo/pkg/eventstream/kafka"
	eventnop "github.com/mnemohq/mnemo/pkg/eventstream/nop"
	"github.com/mnemohq/mnemo/pkg/memory"
	"github.com/mnemohq/mnemo/pkg/search"
	"github.com/mnemohq/mnemo/pkg/store/sqlite"
	"github.com/mnemohq/mnemo/pkg/vector"
	vectorutils "github.com/mnemohq/mnemo/pkg/vector/utils"
)

// Options adjust what gets wired.
type Options struct {
	// SQLitePath overrides the configured database path.
	SQLitePath string

	// Lexical skips the vector driver and embedder entirely. Searches
	// degrade to the full-text set only.
	Lexical bool
}

// Stack holds every opened layer. Close releases them in reverse
// dependency order through the memory service.
type Stack struct {
	Store    *sqlite.Driver
	Vectors  vector.Driver
	Embedder embeddings.Embedder
	Events   eventstream.Publisher
	Service  *memory.Service
	Engine   *search.Engine

	logger *zap.Logger
}

// Open builds the full stack from the config. The vector driver and
// embedder are optional: when they cannot be wired the stack degrades to
// lexical-only operation with a warning rather than failing.
func Open(cfg *config.Config, opts Options, logger *zap.Logger) (*Stack, error) {
	dbPath := opts.SQLitePath
	if strings.TrimSpace(dbPath) == "" {
		resolved, err := sqlitepath.ResolveSQLitePath(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		dbPath = resolved
	}

	st, err := sqlite.NewDriver(sqlite.Config{DBPath: dbPath}, logger)
	if err != nil {
		return nil, fmt.Errorf("opening record store: %w", err)
	}

	s := &Stack{Store: st, logger: logger}

	if !opts.Lexical {
		vectors, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
			ProviderType: cfg.VectorStore.Provider,
			TargetURL:    cfg.VectorStore.Target,
			DBPath:       cfg.VectorStore.Target,
			Dimensions:   cfg.Embedding.Dimensions,
			Logger:       logger,
		})
		if err != nil {
			logger.Warn("vector store unavailable, continuing lexical-only", zap.Error(err))
		} else {
			s.Vectors = vectors
		}

		embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: cfg.Embedding.Provider,
			TargetURL:    cfg.Embedding.Target,
			Model:        cfg.Embedding.Model,
			Dimensions:   int(cfg.Embedding.Dimensions),
		})
		if err != nil {
			logger.Warn("embedder unavailable, records persist without embeddings", zap.Error(err))
		} else {
			s.Embedder = embedder
		}
	}

	s.Events, err = newPublisher(cfg, logger)
	if err != nil {
		if cerr := st.Close(); cerr != nil {
			logger.Warn("closing record store", zap.Error(cerr))
		}
		return nil, err
	}

	s.Service = memory.NewService(st, s.Vectors, s.Embedder, s.Events, logger)
	s.Engine = search.NewEngine(st, s.Vectors, s.Embedder, search.Config{
		LexicalWeight: cfg.Search.LexicalWeight,
		VectorWeight:  cfg.Search.VectorWeight,
	}, logger)

	return s, nil
}

// Close releases every opened layer.
func (s *Stack) Close() error {
	return s.Service.Close()
}

func newPublisher(cfg *config.Config, logger *zap.Logger) (eventstream.Publisher, error) {
	switch cfg.Eventstream.Provider {
	case "", "nop":
		return eventnop.NewPublisher(), nil
	case "kafka":
		return eventkafka.NewPublisher(eventkafka.Config{
			Brokers: cfg.Eventstream.Brokers,
			Topic:   cfg.Eventstream.Topic,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", cfg.Eventstream.Provider)
	}
}
