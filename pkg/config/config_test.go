package config_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-pathcopy/pkg/config"
	"github.com/askiada/go-pathcopy/pkg/launcher"
	"github.com/askiada/go-pathcopy/pkg/pipeline"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	doc := `registry: /etc/pathcopy/registry.yaml
hostVersion: "18.0"
maxDepth: 8
concurrency: 4
process:
  timeout: 30s
  outputLimit: 1024
environment:
  variables: [USERPROFILE, TEMP]
volumes:
  "C:": System
log:
  level: debug
  format: json
`

	cfg, err := config.Decode(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "/etc/pathcopy/registry.yaml", cfg.Registry)
	assert.Equal(t, "18.0", cfg.HostVersion)
	assert.Equal(t, 8, cfg.MaxDepth)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Process.Timeout)
	assert.Equal(t, 1024, cfg.Process.OutputLimit)
	assert.Equal(t, []string{"USERPROFILE", "TEMP"}, cfg.Environment.Variables)
	assert.Equal(t, map[string]string{"C:": "System"}, cfg.Volumes)
	assert.Equal(t, config.Log{Level: "debug", Format: "json"}, cfg.Log)
}

func TestDecodeDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, pipeline.DefaultMaxDepth, cfg.MaxDepth)
	assert.Equal(t, launcher.DefaultOutputLimit, cfg.Process.OutputLimit)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		doc string
	}{
		"unknown field":      {doc: "unknown: 1\n"},
		"zero depth":         {doc: "maxDepth: 0\n"},
		"zero concurrency":   {doc: "concurrency: 0\n"},
		"negative timeout":   {doc: "process:\n  timeout: -1s\n"},
		"invalid version":    {doc: "hostVersion: a.b\n"},
		"invalid log level":  {doc: "log:\n  level: loud\n"},
		"invalid log format": {doc: "log:\n  format: xml\n"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Decode(strings.NewReader(tc.doc))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/pathcopy.yaml", []byte("concurrency: 2\n"), 0o644))

	cfg, err := config.Load(fs, "/pathcopy.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Concurrency)

	_, err = config.Load(fs, "/missing.yaml")
	require.Error(t, err)
}

func TestLogger(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Log = config.Log{Level: "warn", Format: "json"}

	var buf bytes.Buffer

	logger, err := cfg.Logger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "path", `C:\file`)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestEngineOptions(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.HostVersion = "15.0"
	cfg.Volumes = map[string]string{"D": "Data"}

	opts, err := cfg.EngineOptions(nil)
	require.NoError(t, err)

	eng, err := pipeline.NewEngine(opts...)
	require.NoError(t, err)

	got, err := eng.Apply(context.Background(), pipeline.New(pipeline.InjectDriveLabel{}), `D:\photos`)
	require.NoError(t, err)
	assert.Equal(t, `Data (D:)\photos`, got)

	_, err = eng.Apply(context.Background(), pipeline.New(pipeline.PushToStack{}), `D:\photos`)
	require.ErrorIs(t, err, pipeline.ErrVersionTooRecent)
}
