package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-pathcopy/pkg/pipeline/model"
)

// Plugin is something ApplyPlugin elements can reference.
type Plugin interface {
	PluginID() uuid.UUID
	PluginDescription() string
}

// PathPlugin is a plugin computing a path by itself rather than through a pipeline.
type PathPlugin interface {
	Plugin
	ApplyPath(ctx context.Context, path string) (string, error)
}

// Resolver finds plugins by id.
type Resolver interface {
	Resolve(id uuid.UUID) (Plugin, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(id uuid.UUID) (Plugin, error)

func (f ResolverFunc) Resolve(id uuid.UUID) (Plugin, error) {
	return f(id)
}

// FuncPlugin is a PathPlugin backed by a function.
type FuncPlugin struct {
	ID          uuid.UUID
	Description string
	Fn          func(ctx context.Context, path string) (string, error)
}

func (p *FuncPlugin) PluginID() uuid.UUID       { return p.ID }
func (p *FuncPlugin) PluginDescription() string { return p.Description }

func (p *FuncPlugin) ApplyPath(ctx context.Context, path string) (string, error) {
	return p.Fn(ctx, path)
}

// PluginInfo is the persisted form of a pipeline plugin.
type PluginInfo struct {
	ID              uuid.UUID
	Description     string
	EncodedElements string
	RequiredVersion model.Version
	EditMode        model.EditMode
	Global          bool
}

// NewPluginInfo encodes p into a plugin. A nil id gets a new random one.
func NewPluginInfo(id uuid.UUID, description string, p *Pipeline, mode model.EditMode, global bool) (*PluginInfo, error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	err := p.Validate(mode)
	if err != nil {
		return nil, errors.Wrap(err, "unable to validate pipeline")
	}

	if id == uuid.Nil {
		id = uuid.New()
	}

	return &PluginInfo{
		ID:              id,
		Description:     description,
		EncodedElements: Encode(p),
		RequiredVersion: p.RequiredVersion(),
		EditMode:        mode,
		Global:          global,
	}, nil
}

func (info *PluginInfo) PluginID() uuid.UUID       { return info.ID }
func (info *PluginInfo) PluginDescription() string { return info.Description }

// Pipeline decodes the elements of the plugin.
func (info *PluginInfo) Pipeline() (*Pipeline, error) {
	p, err := Decode(info.EncodedElements)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to decode plugin %s", info.ID)
	}

	return p, nil
}

// Validate checks that the plugin decodes and that its required version covers its elements.
func (info *PluginInfo) Validate() error {
	if info.ID == uuid.Nil {
		return errors.Wrap(ErrInvalidParameter, "plugin id is not set")
	}

	p, err := info.Pipeline()
	if err != nil {
		return err
	}

	required := p.RequiredVersion()
	if info.RequiredVersion.Less(required) {
		return errors.Wrapf(ErrInvalidParameter, "plugin %s declares version %s but requires %s", info.ID, info.RequiredVersion, required)
	}

	return nil
}

// CompatibleWith reports whether a host of the given version can run the plugin.
func (info *PluginInfo) CompatibleWith(host model.Version) bool {
	return !host.Less(info.RequiredVersion)
}
