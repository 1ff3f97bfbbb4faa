package postprocessors

import (
	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/postprocessors/chunker"
	"github.com/custodia-labs/leasequery/internal/postprocessors/orphans"
	"github.com/custodia-labs/leasequery/internal/postprocessors/sections"
)

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("orphans", buildOrphans)
	r.Register("sections", func(map[string]any) (driven.PostProcessor, error) {
		return sections.New(), nil
	})
}

// DefaultPipeline builds the standard chunker, orphans and sections
// pipeline for the given chunking settings.
func DefaultPipeline(c domain.ChunkingSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.BuildPipeline(domain.PipelineConfigFor(c))
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Target bytes per chunk (default: 800)
//   - overlap (int): Overlapping bytes between chunks (default: 100)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	return chunker.New(opts...), nil
}

// buildOrphans creates an orphan merger. Supported config keys:
//   - min_size (int): Minimum trailing chunk bytes (default: 100)
func buildOrphans(cfg map[string]any) (driven.PostProcessor, error) {
	minSize, _ := getIntFromConfig(cfg, "min_size")
	return orphans.New(minSize), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
