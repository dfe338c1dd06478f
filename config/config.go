// Package config loads the settings of a simulation run from a YAML file,
// an optional .env file and DEVSKIT_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/devskit/sim/kernel"
	"github.com/sarchlab/devskit/sim/snapshot"
	"github.com/sarchlab/devskit/sim/snapshot/redisstore"
	"github.com/sarchlab/devskit/sim/snapshot/sqlitestore"
)

// EnvPrefix starts the names of the environment variables that override
// the file.
const EnvPrefix = "DEVSKIT_"

// Store kinds.
const (
	StoreDir    = "dir"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// ErrInvalidConfig is returned when a setting has a value out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// KernelConfig sets up the kernel.
type KernelConfig struct {
	Name             string  `yaml:"name"`
	TimeResolution   float64 `yaml:"time_resolution"`
	Mode             string  `yaml:"mode"`
	DuePolicy        string  `yaml:"due_policy"`
	MaxEventsPerStep int     `yaml:"max_events_per_step"`
}

// LogConfig sets up logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig selects where snapshots are kept.
type StoreConfig struct {
	Kind        string        `yaml:"kind"`
	Path        string        `yaml:"path"`
	RedisAddr   string        `yaml:"redis_addr"`
	RedisDB     int           `yaml:"redis_db"`
	RedisPrefix string        `yaml:"redis_prefix"`
	TTL         time.Duration `yaml:"ttl"`
}

// MonitorConfig sets up the HTTP monitor.
type MonitorConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
	Browser bool `yaml:"browser"`
}

// TraceConfig sets up message tracing.
type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the full configuration file.
type Config struct {
	Kernel   KernelConfig  `yaml:"kernel"`
	Log      LogConfig     `yaml:"log"`
	Snapshot StoreConfig   `yaml:"snapshot"`
	Monitor  MonitorConfig `yaml:"monitor"`
	Trace    TraceConfig   `yaml:"trace"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Kernel: KernelConfig{
			Name:           "kernel",
			TimeResolution: 1,
			Mode:           "virtual",
			DuePolicy:      "exact",
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Snapshot: StoreConfig{
			Kind:        StoreDir,
			Path:        "snapshots",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "devskit:snapshot:",
		},
	}
}

// Load reads the file at path on top of the defaults, then applies the
// environment. An empty path skips the file. envFiles are loaded into the
// environment first; missing ones are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		err = cfg.decode(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	for _, f := range envFiles {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	err := cfg.applyEnv(os.LookupEnv)
	if err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) decode(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	err := decoder.Decode(c)
	if errors.Is(err, io.EOF) {
		return nil
	}

	return err
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"KERNEL_NAME":  &c.Kernel.Name,
		"MODE":         &c.Kernel.Mode,
		"DUE_POLICY":   &c.Kernel.DuePolicy,
		"LOG_LEVEL":    &c.Log.Level,
		"LOG_FORMAT":   &c.Log.Format,
		"STORE_KIND":   &c.Snapshot.Kind,
		"STORE_PATH":   &c.Snapshot.Path,
		"REDIS_ADDR":   &c.Snapshot.RedisAddr,
		"REDIS_PREFIX": &c.Snapshot.RedisPrefix,
		"TRACE_PATH":   &c.Trace.Path,
	}

	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_EVENTS_PER_STEP": &c.Kernel.MaxEventsPerStep,
		"REDIS_DB":            &c.Snapshot.RedisDB,
		"MONITOR_PORT":        &c.Monitor.Port,
	}

	for key, dst := range ints {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %v", ErrInvalidConfig, EnvPrefix, key, err)
			}

			*dst = n
		}
	}

	bools := map[string]*bool{
		"MONITOR":         &c.Monitor.Enabled,
		"MONITOR_BROWSER": &c.Monitor.Browser,
		"TRACE":           &c.Trace.Enabled,
	}

	for key, dst := range bools {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %v", ErrInvalidConfig, EnvPrefix, key, err)
			}

			*dst = b
		}
	}

	if v, ok := lookup(EnvPrefix + "TIME_RESOLUTION"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %sTIME_RESOLUTION: %v", ErrInvalidConfig, EnvPrefix, err)
		}

		c.Kernel.TimeResolution = f
	}

	if v, ok := lookup(EnvPrefix + "STORE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sSTORE_TTL: %v", ErrInvalidConfig, EnvPrefix, err)
		}

		c.Snapshot.TTL = d
	}

	return nil
}

// Validate checks that every setting is in range.
func (c *Config) Validate() error {
	if c.Kernel.TimeResolution <= 0 {
		return fmt.Errorf("%w: time resolution must be positive, got %v",
			ErrInvalidConfig, c.Kernel.TimeResolution)
	}

	if _, err := c.mode(); err != nil {
		return err
	}

	if _, err := c.duePolicy(); err != nil {
		return err
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}

	switch c.Snapshot.Kind {
	case StoreDir, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("%w: unknown snapshot store %q",
			ErrInvalidConfig, c.Snapshot.Kind)
	}

	if c.Kernel.MaxEventsPerStep < 0 {
		return fmt.Errorf("%w: max events per step must not be negative",
			ErrInvalidConfig)
	}

	return nil
}

func (c *Config) mode() (kernel.Mode, error) {
	switch c.Kernel.Mode {
	case "virtual", "":
		return kernel.VirtualTime, nil
	case "real":
		return kernel.RealTime, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Kernel.Mode)
	}
}

func (c *Config) duePolicy() (kernel.DuePolicy, error) {
	switch c.Kernel.DuePolicy {
	case "exact", "":
		return kernel.DueExact, nil
	case "catch_up":
		return kernel.DueCatchUp, nil
	default:
		return 0, fmt.Errorf("%w: unknown due policy %q",
			ErrInvalidConfig, c.Kernel.DuePolicy)
	}
}

// Logger creates a logger at the configured level and format.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.Log.Level)
	if err == nil {
		logger.SetLevel(level)
	}

	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}

// KernelBuilder returns a kernel builder with the configured settings.
// A nil registerer leaves metrics off.
func (c *Config) KernelBuilder(
	logger logrus.FieldLogger,
	reg prometheus.Registerer,
) kernel.Builder {
	mode, _ := c.mode()
	due, _ := c.duePolicy()

	b := kernel.MakeBuilder().
		WithName(c.Kernel.Name).
		WithTimeResolution(c.Kernel.TimeResolution).
		WithMode(mode).
		WithDuePolicy(due).
		WithMaxEventsPerStep(c.Kernel.MaxEventsPerStep).
		WithLogger(logger)

	if reg != nil {
		b = b.WithMetrics(reg)
	}

	return b
}

// OpenStore opens the configured snapshot store. Stores holding a
// connection also implement io.Closer.
func (c *Config) OpenStore() (snapshot.Store, error) {
	switch c.Snapshot.Kind {
	case StoreDir:
		return snapshot.NewDirStore(c.Snapshot.Path)
	case StoreSQLite:
		return sqlitestore.Open(c.Snapshot.Path)
	case StoreRedis:
		opts := []redisstore.Option{redisstore.WithPrefix(c.Snapshot.RedisPrefix)}
		if c.Snapshot.TTL > 0 {
			opts = append(opts, redisstore.WithTTL(c.Snapshot.TTL))
		}

		password, _ := os.LookupEnv(EnvPrefix + "REDIS_PASSWORD")

		return redisstore.New(c.Snapshot.RedisAddr, password,
			c.Snapshot.RedisDB, opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown snapshot store %q",
			ErrInvalidConfig, c.Snapshot.Kind)
	}
}
