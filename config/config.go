// Package config loads pool settings from YAML files.
//
// Values of the form ${NAME} are replaced with the environment variable NAME
// before parsing; durations use Go syntax ("250ms", "5m").
//
//	storage:
//	  exclusive_use: true
//	  strategy: favor_most_recently_used
//	  max_count_per_key: 8
//	eviction:
//	  sweep_interval: 30s
//	  max_idle: ${POOL_MAX_IDLE}
//	decorators:
//	  single_use: true
//	  reset: true
//	controller:
//	  release_will_happen: true
//	direction:
//	  attempts: 3
//	  interval: 100ms
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/IvanBrykalov/keyedpool/pool"
)

// Config mirrors the pool settings surfaces.
type Config struct {
	Storage    Storage    `yaml:"storage"`
	Eviction   Eviction   `yaml:"eviction"`
	Decorators Decorators `yaml:"decorators"`
	Controller Controller `yaml:"controller"`
	Direction  Direction  `yaml:"direction"`
	Log        Log        `yaml:"log"`
}

type Storage struct {
	ExclusiveUse   bool   `yaml:"exclusive_use"`
	Strategy       string `yaml:"strategy"` // distribute_among_all | favor_most_recently_used
	MaxCountPerKey int    `yaml:"max_count_per_key"`
	ThrowOnLimit   bool   `yaml:"throw_on_limit"`
}

type Eviction struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxLifetime   time.Duration `yaml:"max_lifetime"`
	MaxIdle       time.Duration `yaml:"max_idle"`
}

// Enabled reports whether any eviction setting is present.
func (e Eviction) Enabled() bool {
	return e.SweepInterval > 0 || e.MaxLifetime > 0 || e.MaxIdle > 0
}

type Decorators struct {
	SingleUse bool `yaml:"single_use"`
	Reset     bool `yaml:"reset"`
}

type Controller struct {
	ReleaseWillHappen bool `yaml:"release_will_happen"`
}

// Direction is the default obtain direction for callers that do not build
// their own.
type Direction struct {
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	Encoding    string `yaml:"encoding"` // json or console
}

// Default returns an exclusive, single-use pool without limits that retries
// once.
func Default() *Config {
	return &Config{
		Storage:    Storage{ExclusiveUse: true, Strategy: pool.DistributeAmongAll.String()},
		Decorators: Decorators{SingleUse: true},
		Controller: Controller{ReleaseWillHappen: true},
		Direction:  Direction{Attempts: 1},
		Log:        Log{Level: "info", Encoding: "json"},
	}
}

// Load reads path, substitutes environment variables and parses it over
// Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	st, err := c.strategy()
	if err != nil {
		errs = append(errs, err)
	}
	s := c.storageSettings(st)
	errs = append(errs, s.Validate(), c.EvictionSettings().Validate())
	if c.Decorators.SingleUse && !c.Storage.ExclusiveUse {
		errs = append(errs, errors.New("config: decorators.single_use requires storage.exclusive_use"))
	}
	d := c.Direction
	if d.Attempts < 1 || d.Interval < 0 {
		errs = append(errs, fmt.Errorf("config: direction needs attempts >= 1 and interval >= 0, got %d/%s", d.Attempts, d.Interval))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: invalid log level: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Config) strategy() (pool.LoadBalancingStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Strategy)) {
	case "", "fifo", pool.DistributeAmongAll.String():
		return pool.DistributeAmongAll, nil
	case "lifo", pool.FavorMostRecentlyUsed.String():
		return pool.FavorMostRecentlyUsed, nil
	default:
		return 0, fmt.Errorf("config: unknown storage.strategy %q", c.Storage.Strategy)
	}
}

func (c *Config) storageSettings(st pool.LoadBalancingStrategy) pool.StorageSettings {
	return pool.StorageSettings{
		ExclusiveUse:   c.Storage.ExclusiveUse,
		Strategy:       st,
		MaxCountPerKey: c.Storage.MaxCountPerKey,
		ThrowOnLimit:   c.Storage.ThrowOnLimit,
	}
}

// StorageSettings maps the storage section. Call Validate first; an unknown
// strategy maps to DistributeAmongAll.
func (c *Config) StorageSettings() pool.StorageSettings {
	st, _ := c.strategy()
	return c.storageSettings(st)
}

func (c *Config) EvictionSettings() pool.EvictionSettings {
	return pool.EvictionSettings{
		SweepInterval: c.Eviction.SweepInterval,
		MaxLifetime:   c.Eviction.MaxLifetime,
		MaxIdle:       c.Eviction.MaxIdle,
	}
}

func (c *Config) ControllerSettings() pool.ControllerSettings {
	return pool.ControllerSettings{ReleaseWillHappen: c.Controller.ReleaseWillHappen}
}

// Logger builds the zap logger described by the log section.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if c.Log.Encoding != "" {
		zc.Encoding = c.Log.Encoding
	}
	zc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l, nil
}

// Apply adds the configured decorators to b in the usual order: eviction
// innermost, then single-use, then reset.
func Apply[K comparable, V comparable](c *Config, b *pool.Builder[K, V]) *pool.Builder[K, V] {
	if c.Eviction.Enabled() {
		b = b.WithEviction(c.EvictionSettings())
	}
	if c.Decorators.SingleUse {
		b = b.WithSingleUse()
	}
	if c.Decorators.Reset {
		b = b.WithReset()
	}
	return b
}

// NewDirection builds the configured direction around create.
func NewDirection[K comparable, V comparable](c *Config, create pool.CreateFunc[K, V]) *pool.Direction[K, V] {
	return &pool.Direction[K, V]{
		Attempts: c.Direction.Attempts,
		Interval: c.Direction.Interval,
		Create:   create,
	}
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
// A bare $ is left alone.
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start
		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
