package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"copyverify/internal/app"
	appErrors "copyverify/internal/errors"

	"github.com/spf13/pflag"
)

const (
	ParallelAuto = "auto"
	ParallelOn   = "on"
	ParallelOff  = "off"
)

const envPrefix = "COPYVERIFY_"

type Config struct {
	Source      string
	Sources     []string
	Destination string

	MaxRetries    int
	Workers       int
	Parallel      string
	Algorithm     string
	HashChunkSize int
	Verify        bool

	TUI     bool
	Verbose bool
	Trace   bool

	CacheDB    string
	CacheTTL   time.Duration
	ReportPath string
}

// DefaultWorkers leaves one CPU for the caller and stays within [2, 8].
func DefaultWorkers() int {
	return min(max(runtime.NumCPU()-1, 2), 8)
}

func Defaults() Config {
	return Config{
		MaxRetries:    app.DefaultMaxRetries,
		Workers:       DefaultWorkers(),
		Parallel:      ParallelAuto,
		Algorithm:     app.DefaultAlgorithm,
		HashChunkSize: app.DefaultHashChunkSize,
		CacheTTL:      5 * time.Minute,
	}
}

// BindFlags registers every option on fs, using the current values as defaults.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Source, "source", "s", c.Source, "Source file or directory")
	fs.StringSliceVarP(&c.Sources, "files", "f", c.Sources, "Explicit list of files copied flat into the destination")
	fs.StringVarP(&c.Destination, "destination", "d", c.Destination, "Destination file or directory")
	fs.IntVarP(&c.MaxRetries, "retries", "r", c.MaxRetries, "Attempts per file before it is recorded as failed")
	fs.IntVarP(&c.Workers, "workers", "w", c.Workers, "Worker count for parallel copies")
	fs.StringVar(&c.Parallel, "parallel", c.Parallel, "Parallel mode: auto, on or off")
	fs.StringVarP(&c.Algorithm, "algorithm", "a", c.Algorithm, "Hash algorithm: sha256 or md5")
	fs.IntVar(&c.HashChunkSize, "hash-chunk-size", c.HashChunkSize, "Bytes read per hash update")
	fs.BoolVar(&c.Verify, "verify", c.Verify, "Verify copies after the copy finishes")
	fs.BoolVar(&c.TUI, "tui", c.TUI, "Show the interactive progress view")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "Verbose output")
	fs.BoolVar(&c.Trace, "trace", c.Trace, "Print trace spans to stderr")
	fs.StringVar(&c.CacheDB, "cache", c.CacheDB, "SQLite file caching scan results")
	fs.DurationVar(&c.CacheTTL, "cache-ttl", c.CacheTTL, "How long cached scans stay valid")
	fs.StringVar(&c.ReportPath, "report", c.ReportPath, "Write an XLSX report to this path")
}

// ApplyEnv fills options that were not set on the command line from
// COPYVERIFY_* environment variables.
func (c *Config) ApplyEnv(fs *pflag.FlagSet) error {
	changed := func(name string) bool {
		return fs != nil && fs.Lookup(name) != nil && fs.Changed(name)
	}

	if !changed("source") && c.Source == "" {
		c.Source = envOrEmpty(envPrefix + "SOURCE")
	}
	if !changed("destination") && c.Destination == "" {
		c.Destination = envOrEmpty(envPrefix + "DESTINATION")
	}
	if !changed("algorithm") {
		if val := envOrEmpty(envPrefix + "ALGORITHM"); val != "" {
			c.Algorithm = val
		}
	}
	if !changed("parallel") {
		if val := envOrEmpty(envPrefix + "PARALLEL"); val != "" {
			c.Parallel = val
		}
	}
	if !changed("cache") && c.CacheDB == "" {
		c.CacheDB = envOrEmpty(envPrefix + "CACHE_DB")
	}
	if !changed("report") && c.ReportPath == "" {
		c.ReportPath = envOrEmpty(envPrefix + "REPORT")
	}
	if !changed("verbose") && !c.Verbose {
		c.Verbose = envTruthy(envPrefix + "VERBOSE")
	}
	if !changed("verify") && !c.Verify {
		c.Verify = envTruthy(envPrefix + "VERIFY")
	}
	if !changed("trace") && !c.Trace {
		c.Trace = envTruthy(envPrefix + "TRACE")
	}

	if !changed("workers") {
		if err := envInt(envPrefix+"WORKERS", &c.Workers); err != nil {
			return err
		}
	}
	if !changed("retries") {
		if err := envInt(envPrefix+"MAX_RETRIES", &c.MaxRetries); err != nil {
			return err
		}
	}
	return nil
}

// ApplyArgs takes sources and the destination from positional arguments:
// the last argument is the destination when withDestination is set.
func (c *Config) ApplyArgs(args []string, withDestination bool) {
	if len(args) == 0 {
		return
	}
	if withDestination && len(args) >= 2 {
		c.Destination = args[len(args)-1]
		args = args[:len(args)-1]
	}
	if len(args) == 1 {
		c.Source = args[0]
		return
	}
	c.Sources = append(c.Sources, args...)
}

// MultiSelection reports whether the job copies an explicit file list.
func (c Config) MultiSelection() bool {
	return len(c.Sources) > 0
}

func (c Config) Validate(needDestination bool) error {
	var problems []string
	if c.Source == "" && len(c.Sources) == 0 {
		problems = append(problems, "a source is required")
	}
	if c.Source != "" && len(c.Sources) > 0 {
		problems = append(problems, "use either a source or a file list, not both")
	}
	if needDestination && c.Destination == "" {
		problems = append(problems, "a destination is required")
	}
	if c.MaxRetries < 1 {
		problems = append(problems, "retries must be at least 1")
	}
	if c.Workers < 1 {
		problems = append(problems, "workers must be at least 1")
	}
	if c.HashChunkSize < 1 {
		problems = append(problems, "hash chunk size must be positive")
	}
	switch c.Parallel {
	case ParallelAuto, ParallelOn, ParallelOff:
	default:
		problems = append(problems, fmt.Sprintf("unknown parallel mode %q", c.Parallel))
	}
	if len(problems) > 0 {
		return appErrors.Wrap(appErrors.InvalidConfig, "config", "", errors.New(strings.Join(problems, "; ")))
	}

	if err := app.ValidateAlgorithm(c.Algorithm); err != nil {
		return err
	}
	return nil
}

func envOrEmpty(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envTruthy(key string) bool {
	val := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	return val == "1" || val == "true" || val == "yes" || val == "y"
}

func envInt(key string, target *int) error {
	val := envOrEmpty(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return appErrors.Wrap(appErrors.InvalidConfig, "config", "", fmt.Errorf("%s: %w", key, err))
	}
	*target = n
	return nil
}
