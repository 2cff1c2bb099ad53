package spatial

import (
	"fmt"

	"github.com/magiconair/properties"
	"github.com/mitchellh/mapstructure"
)

// BuildMode selects the R-tree bulk loading strategy
type BuildMode string

const (
	// BuildFast sorts records once and slices them into leaves in a single pass
	BuildFast BuildMode = "fast"
	// BuildAccurate recursively partitions records at every level of the tree
	BuildAccurate BuildMode = "accurate"
)

const (
	// DefaultRTreeDegree is the default fan-out of packed R-trees
	DefaultRTreeDegree = 11
	// DefaultReplicationOverhead is the default fraction of records expected to be replicated across cells
	DefaultReplicationOverhead = 0.001
	// DefaultEstimatorTolerance is the default relative convergence threshold of sample estimates
	DefaultEstimatorTolerance = 0.01
	// DefaultMaxConcurrentFlushes is the default number of cells which may be flushed at once
	DefaultMaxConcurrentFlushes = 1
	// DefaultSpillCodec is the default compression used for buffers spilled to local disk
	DefaultSpillCodec = "lz4"
)

// Config carries the build parameters of a partitioning job. It is usually
// handed to each worker by the job framework as a key/value map.
type Config struct {
	RTreeDegree          int       `mapstructure:"rtreeDegree"`          // fan-out of packed R-trees. Defaults to 11.
	BuildMode            BuildMode `mapstructure:"buildMode"`            // fast or accurate. Defaults to fast.
	TargetBlockSize      int64     `mapstructure:"targetBlockSize"`      // cell alignment in bytes. 0 means the storage block size.
	ReplicationOverhead  float64   `mapstructure:"replicationOverhead"`  // safety margin added when estimating partition counts. Defaults to 0.001.
	EstimatorTolerance   float64   `mapstructure:"estimatorTolerance"`   // relative convergence threshold for sampling. Defaults to 0.01.
	MaxConcurrentFlushes int64     `mapstructure:"maxConcurrentFlushes"` // number of cells which may flush at once. Defaults to 1.
	Flat                 bool      `mapstructure:"flat"`                 // iff true, cells are written without an R-tree index
	SpillDir             string    `mapstructure:"spillDir"`             // directory for raw cell buffers. Empty keeps buffers in memory.
	SpillCodec           string    `mapstructure:"spillCodec"`           // lz4, zstd or none. Defaults to lz4.
}

// DefaultConfig returns a Config with every option set to its default value
func DefaultConfig() *Config {
	conf := &Config{}
	conf.EnsureDefaults()
	return conf
}

// EnsureDefaults replaces unset options with their default values
func (c *Config) EnsureDefaults() {
	if c.RTreeDegree == 0 {
		c.RTreeDegree = DefaultRTreeDegree
	}
	if len(c.BuildMode) == 0 {
		c.BuildMode = BuildFast
	}
	if c.ReplicationOverhead == 0 {
		c.ReplicationOverhead = DefaultReplicationOverhead
	}
	if c.EstimatorTolerance == 0 {
		c.EstimatorTolerance = DefaultEstimatorTolerance
	}
	if c.MaxConcurrentFlushes == 0 {
		c.MaxConcurrentFlushes = DefaultMaxConcurrentFlushes
	}
	if len(c.SpillCodec) == 0 {
		c.SpillCodec = DefaultSpillCodec
	}
}

// Validate checks that this Config describes a buildable layout
func (c *Config) Validate() error {
	if c.RTreeDegree < 2 {
		return fmt.Errorf("rtreeDegree must be at least 2, was %d", c.RTreeDegree)
	}
	if c.BuildMode != BuildFast && c.BuildMode != BuildAccurate {
		return fmt.Errorf("unknown buildMode %q", c.BuildMode)
	}
	if c.TargetBlockSize < 0 {
		return fmt.Errorf("targetBlockSize cannot be negative, was %d", c.TargetBlockSize)
	}
	if c.ReplicationOverhead < 0 {
		return fmt.Errorf("replicationOverhead cannot be negative, was %f", c.ReplicationOverhead)
	}
	if c.EstimatorTolerance <= 0 {
		return fmt.Errorf("estimatorTolerance must be positive, was %f", c.EstimatorTolerance)
	}
	if c.MaxConcurrentFlushes < 1 {
		return fmt.Errorf("maxConcurrentFlushes must be at least 1, was %d", c.MaxConcurrentFlushes)
	}
	switch c.SpillCodec {
	case "lz4", "zstd", "none":
	default:
		return fmt.Errorf("unknown spillCodec %q", c.SpillCodec)
	}
	return nil
}

// ConfigFromMap decodes a Config from a job framework's key/value configuration.
// Values may be strings, which are converted to the type of the target option.
// Unknown keys are ignored, as the same map usually configures other components.
func ConfigFromMap(values map[string]interface{}) (*Config, error) {
	conf := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           conf,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(values); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}
	conf.EnsureDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// LoadConfigFile reads a Config from a properties file of key=value lines
func LoadConfigFile(path string) (*Config, error) {
	props, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, err
	}
	values := make(map[string]interface{}, props.Len())
	for k, v := range props.Map() {
		values[k] = v
	}
	return ConfigFromMap(values)
}
