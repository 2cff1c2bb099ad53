package writer

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/internal/metrics"
	"github.com/go-sif/spatial/internal/spill"
	"github.com/go-sif/spatial/internal/stats"
	"github.com/go-sif/spatial/logging"
	"github.com/go-sif/spatial/shape"
	"github.com/go-sif/spatial/storage"
	"golang.org/x/sync/semaphore"
)

// Options configures a CellWriter
type Options struct {
	FS                   storage.FileSystem     // [REQUIRED] where cell files are written
	Dir                  string                 // [REQUIRED] directory which receives cell files
	Parser               shape.Parser           // parses buffered records when building indexes. Defaults to rectangles.
	Prefix               string                 // cell file name prefix, which keeps the files of parallel writers apart. Defaults to "part".
	Degree               int                    // fan-out of packed R-trees
	Mode                 spatial.BuildMode      // R-tree bulk loading strategy
	Flat                 bool                   // iff true, cells are written without an index
	BlockSize            int64                  // cell alignment. 0 means the block size of FS at Dir.
	MaxConcurrentFlushes int64                  // number of cells which may flush at once
	FlushLimit           *semaphore.Weighted    // shared between writers to limit their flushes together. Defaults to a limit of MaxConcurrentFlushes.
	Spill                spill.Store            // holds raw cell buffers. Defaults to memory.
	Logger               log.Logger             // defaults to a no-op logger
	Metrics              *metrics.Metrics       // defaults to unregistered metrics
	Stats                *stats.BuildStatistics // defaults to fresh statistics
}

// OptionsFromConfig derives writer Options from a job Config
func OptionsFromConfig(conf *spatial.Config, fs storage.FileSystem, dir string) (*Options, error) {
	conf.EnsureDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	store, err := spill.NewStore(conf.SpillDir, spill.Codec(conf.SpillCodec))
	if err != nil {
		return nil, err
	}
	return &Options{
		FS:                   fs,
		Dir:                  dir,
		Degree:               conf.RTreeDegree,
		Mode:                 conf.BuildMode,
		Flat:                 conf.Flat,
		BlockSize:            conf.TargetBlockSize,
		MaxConcurrentFlushes: conf.MaxConcurrentFlushes,
		Spill:                store,
	}, nil
}

func ensureDefaultOptionsValues(opts *Options) error {
	// crash if certain required options are not supplied
	if opts.FS == nil {
		return fmt.Errorf("Options.FS must be supplied")
	}
	if len(opts.Dir) == 0 {
		return fmt.Errorf("Options.Dir must name the output directory")
	}
	// default certain options if not supplied
	if opts.Parser == nil {
		opts.Parser = shape.ParseRectangle
	}
	if len(opts.Prefix) == 0 {
		opts.Prefix = "part"
	}
	if opts.Degree == 0 {
		opts.Degree = spatial.DefaultRTreeDegree
	}
	if len(opts.Mode) == 0 {
		opts.Mode = spatial.BuildFast
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = opts.FS.BlockSize(opts.Dir)
	}
	if opts.MaxConcurrentFlushes == 0 {
		opts.MaxConcurrentFlushes = spatial.DefaultMaxConcurrentFlushes
	}
	if opts.Spill == nil {
		opts.Spill = spill.NewMemoryStore()
	}
	opts.Logger = logging.OrNop(opts.Logger)
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetrics(nil)
	}
	if opts.Stats == nil {
		opts.Stats = &stats.BuildStatistics{}
	}
	if opts.Degree < 2 {
		return fmt.Errorf("Options.Degree must be at least 2, was %d", opts.Degree)
	}
	if opts.BlockSize <= 0 {
		return fmt.Errorf("Options.BlockSize must be positive, was %d", opts.BlockSize)
	}
	if opts.MaxConcurrentFlushes < 1 {
		return fmt.Errorf("Options.MaxConcurrentFlushes must be at least 1, was %d", opts.MaxConcurrentFlushes)
	}
	if opts.FlushLimit == nil {
		opts.FlushLimit = semaphore.NewWeighted(opts.MaxConcurrentFlushes)
	}
	return nil
}
