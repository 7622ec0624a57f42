// Package engineconfig loads the executor's static configuration from a YAML
// document: iteration guard, compaction and prune policies, and their
// ordering, mirroring how the teacher's integration test framework loads
// scenario documents via gopkg.in/yaml.v3.
package engineconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/blueberrycongee/forge/compaction"
)

// ExecutionConfig is the on-disk shape of an Executor's tunables.
type ExecutionConfig struct {
	// MaxIterations bounds a run's dispatch loop. Zero falls back to
	// executor.DefaultMaxIterations at construction time.
	MaxIterations uint32 `yaml:"max_iterations"`
	// PruneBeforeCompaction selects whether prune runs before compaction
	// between node executions. Defaults to true.
	PruneBeforeCompaction bool `yaml:"prune_before_compaction"`
	// Compaction controls size-bounded history summarization.
	Compaction compaction.Policy `yaml:"compaction"`
	// Prune controls tool-event retention.
	Prune compaction.PrunePolicy `yaml:"prune"`
}

// Default returns the configuration an Executor uses when none is loaded:
// compaction and prune both disabled, prune-before-compaction true.
func Default() ExecutionConfig {
	return ExecutionConfig{
		PruneBeforeCompaction: true,
	}
}

// LoadExecutionConfig reads and parses an ExecutionConfig from a YAML file at
// path. Keys the document omits keep their Default values.
func LoadExecutionConfig(path string) (ExecutionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ExecutionConfig{}, fmt.Errorf("engineconfig: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ExecutionConfig{}, fmt.Errorf("engineconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}
