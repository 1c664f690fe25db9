// Package config loads the YAML configuration of the pathcopy engine and command.
package config

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-pathcopy/pkg/launcher"
	"github.com/askiada/go-pathcopy/pkg/pipeline"
	"github.com/askiada/go-pathcopy/pkg/pipeline/model"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	// Registry is the path of the plugin registry file.
	Registry    string `yaml:"registry"`
	HostVersion string `yaml:"hostVersion,omitempty"`
	MaxDepth    int    `yaml:"maxDepth"`
	Concurrency int    `yaml:"concurrency"`
	// TempDir is where file lists are written. Empty means the system default.
	TempDir     string            `yaml:"tempDir,omitempty"`
	Process     Process           `yaml:"process"`
	Environment Environment       `yaml:"environment"`
	Volumes     map[string]string `yaml:"volumes,omitempty"`
	Log         Log               `yaml:"log"`
}

type Process struct {
	Timeout     time.Duration `yaml:"timeout"`
	OutputLimit int           `yaml:"outputLimit"`
}

type Environment struct {
	// Variables are the names UnexpandEnvironmentStrings looks for.
	Variables []string `yaml:"variables,omitempty"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Registry:    "pathcopy-registry.yaml",
		MaxDepth:    pipeline.DefaultMaxDepth,
		Concurrency: 1,
		Process: Process{
			OutputLimit: launcher.DefaultOutputLimit,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Decode reads a YAML document over the defaults. Unknown fields are rejected.
func Decode(rd io.Reader) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)

	err := dec.Decode(cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "unable to decode configuration")
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads the configuration file at path.
func Load(fs billy.Filesystem, path string) (*Config, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}

	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load %s", path)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MaxDepth < 1 {
		return errors.Wrapf(ErrInvalidConfig, "maxDepth must be at least 1, got %d", c.MaxDepth)
	}

	if c.Concurrency < 1 {
		return errors.Wrapf(ErrInvalidConfig, "concurrency must be at least 1, got %d", c.Concurrency)
	}

	if c.Process.Timeout < 0 {
		return errors.Wrapf(ErrInvalidConfig, "process timeout %s is negative", c.Process.Timeout)
	}

	if c.Process.OutputLimit < 1 {
		return errors.Wrapf(ErrInvalidConfig, "process outputLimit must be at least 1, got %d", c.Process.OutputLimit)
	}

	if c.HostVersion != "" {
		_, err := model.ParseVersion(c.HostVersion)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "hostVersion: %v", err)
		}
	}

	_, err := c.Log.level()
	if err != nil {
		return err
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.Wrapf(ErrInvalidConfig, "log format %q is neither text nor json", c.Log.Format)
	}

	return nil
}

func (l Log) level() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(l.Level))
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidConfig, "log level %q", l.Level)
	}

	return level, nil
}

// Logger creates the logger described by the configuration, writing to wrt.
func (c *Config) Logger(wrt io.Writer) (*slog.Logger, error) {
	level, err := c.Log.level()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(wrt, opts)), nil
	}

	return slog.New(slog.NewTextHandler(wrt, opts)), nil
}

// Launcher creates the process launcher used by executable elements.
func (c *Config) Launcher() *launcher.ProcessLauncher {
	return launcher.NewProcessLauncher(
		launcher.WithOutputLimit(c.Process.OutputLimit),
		launcher.WithTimeout(c.Process.Timeout),
	)
}

// EngineOptions returns the engine options described by the configuration. The resolver
// and pipeline options are the caller's.
func (c *Config) EngineOptions(logger *slog.Logger) ([]pipeline.EngineOption, error) {
	opts := []pipeline.EngineOption{
		pipeline.WithLogger(logger),
		pipeline.WithMaxDepth(c.MaxDepth),
		pipeline.WithConcurrency(c.Concurrency),
		pipeline.WithLauncher(c.Launcher()),
	}

	if c.HostVersion != "" {
		host, err := model.ParseVersion(c.HostVersion)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "hostVersion: %v", err)
		}

		opts = append(opts, pipeline.WithHostVersion(host))
	}

	if c.TempDir != "" {
		opts = append(opts, pipeline.WithTempDir(c.TempDir))
	}

	if len(c.Environment.Variables) > 0 {
		opts = append(opts, pipeline.WithEnvironment(nil, c.Environment.Variables...))
	}

	if len(c.Volumes) > 0 {
		opts = append(opts, pipeline.WithVolumeLabeler(pipeline.StaticVolumeLabels(c.Volumes)))
	}

	return opts, nil
}
