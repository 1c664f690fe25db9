package registry

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/askiada/go-pathcopy/pkg/pipeline"
)

// Ids of the plugins every registry created with NewWithBuiltins knows.
var (
	FullPathID     = uuid.MustParse("d1f4c7e2-3b5a-4c8e-9f21-6a0b7c3d5e01")
	NameID         = uuid.MustParse("d1f4c7e2-3b5a-4c8e-9f21-6a0b7c3d5e02")
	ParentFolderID = uuid.MustParse("d1f4c7e2-3b5a-4c8e-9f21-6a0b7c3d5e03")
)

// Builtins returns the plugins that compute a path without a pipeline.
func Builtins() []pipeline.PathPlugin {
	return []pipeline.PathPlugin{
		&pipeline.FuncPlugin{
			ID:          FullPathID,
			Description: "Full path",
			Fn: func(_ context.Context, path string) (string, error) {
				return path, nil
			},
		},
		&pipeline.FuncPlugin{
			ID:          NameID,
			Description: "Name",
			Fn: func(_ context.Context, path string) (string, error) {
				trimmed := strings.TrimRight(path, `\/`)

				return trimmed[strings.LastIndexAny(trimmed, `\/`)+1:], nil
			},
		},
		&pipeline.FuncPlugin{
			ID:          ParentFolderID,
			Description: "Parent folder path",
			Fn: func(_ context.Context, path string) (string, error) {
				trimmed := strings.TrimRight(path, `\/`)

				idx := strings.LastIndexAny(trimmed, `\/`)
				if idx < 0 {
					return "", nil
				}

				if idx == 0 || (idx == 2 && trimmed[1] == ':') {
					return trimmed[:idx+1], nil
				}

				return trimmed[:idx], nil
			},
		},
	}
}

// NewWithBuiltins creates a registry holding the builtin plugins.
func NewWithBuiltins(opts ...Option) *Registry {
	r := New(opts...)

	for _, plugin := range Builtins() {
		// builtin ids are valid and reference nothing
		_ = r.AddPlugin(plugin)
	}

	return r
}
