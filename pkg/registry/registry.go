package registry

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-pathcopy/internal/store"
	"github.com/askiada/go-pathcopy/pkg/pipeline"
)

var ErrInvalidPlugin = errors.New("invalid plugin")

// Registry stores plugins by id. It is safe for concurrent use.
//
// Plugins referenced before being registered are kept as placeholders: they have edges but
// cannot be resolved.
type Registry struct {
	mu     sync.RWMutex
	store  *store.MemoryStore[uuid.UUID, pipeline.Plugin]
	graph  graph.Graph[uuid.UUID, pipeline.Plugin]
	logger *slog.Logger
}

type Option func(r *Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}

	r.reset(store.NewMemoryStore[uuid.UUID, pipeline.Plugin]())

	return r
}

func pluginHash(p pipeline.Plugin) uuid.UUID {
	return p.PluginID()
}

func (r *Registry) reset(s *store.MemoryStore[uuid.UUID, pipeline.Plugin]) {
	r.store = s
	r.graph = graph.NewWithStore(pluginHash, graph.Store[uuid.UUID, pipeline.Plugin](s), graph.Directed(), graph.PreventCycles())
}

// AddPipeline registers or replaces a pipeline plugin. A plugin closing a reference loop is
// rejected with pipeline.ErrPluginCycle and leaves the registry unchanged.
func (r *Registry) AddPipeline(info *pipeline.PluginInfo) error {
	pipe, err := checkPipeline(info)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.addPipeline(info, pipe)
}

func checkPipeline(info *pipeline.PluginInfo) (*pipeline.Pipeline, error) {
	if info == nil {
		return nil, pipeline.ErrPluginMustBeSet
	}

	err := info.Validate()
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPlugin, "%s: %v", info.ID, err)
	}

	return info.Pipeline()
}

// addPipeline must be called with r.mu held.
func (r *Registry) addPipeline(info *pipeline.PluginInfo, pipe *pipeline.Pipeline) error {
	var err error

	snapshot := r.store.Clone()
	previous := r.targets(info.ID)

	r.store.SetVertex(info.ID, info)
	r.store.RemoveOutEdges(info.ID)

	for _, ref := range pipe.References() {
		err = r.store.AddVertex(ref, nil, graph.VertexProperties{Attributes: make(map[string]string)})
		if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			r.reset(snapshot)

			return errors.Wrapf(err, "unable to add plugin %s", ref)
		}

		err = r.graph.AddEdge(info.ID, ref)
		if err != nil {
			r.reset(snapshot)

			if errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return errors.Wrapf(pipeline.ErrPluginCycle, "%s references %s", info.ID, ref)
			}

			return errors.Wrapf(err, "unable to link %s to %s", info.ID, ref)
		}
	}

	r.prune(previous)
	r.logger.Debug("pipeline plugin registered", "id", info.ID, "description", info.Description)

	return nil
}

// AddPlugin registers or replaces a plugin that does not reference other plugins.
func (r *Registry) AddPlugin(plugin pipeline.PathPlugin) error {
	if plugin == nil {
		return pipeline.ErrPluginMustBeSet
	}

	if plugin.PluginID() == uuid.Nil {
		return errors.Wrap(ErrInvalidPlugin, "plugin id is not set")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.targets(plugin.PluginID())

	r.store.SetVertex(plugin.PluginID(), plugin)
	r.store.RemoveOutEdges(plugin.PluginID())
	r.prune(previous)

	return nil
}

// Remove unregisters a plugin. Plugins referencing it keep a placeholder and fail when applied.
func (r *Registry) Remove(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	plugin, _, err := r.store.Vertex(id)
	if err != nil || plugin == nil {
		return errors.Wrapf(pipeline.ErrPluginNotFound, "%s", id)
	}

	previous := r.targets(id)
	r.store.RemoveOutEdges(id)

	if len(r.store.Predecessors(id)) > 0 {
		r.store.SetVertex(id, nil)
	} else {
		err = r.store.RemoveVertex(id)
		if err != nil {
			return errors.Wrapf(err, "unable to remove %s", id)
		}
	}

	r.prune(previous)

	return nil
}

// Resolve returns the plugin registered under id.
func (r *Registry) Resolve(id uuid.UUID) (pipeline.Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, _, err := r.store.Vertex(id)
	if err != nil || plugin == nil {
		return nil, errors.Wrapf(pipeline.ErrPluginNotFound, "%s", id)
	}

	return plugin, nil
}

// Pipeline returns the pipeline plugin registered under id.
func (r *Registry) Pipeline(id uuid.UUID) (*pipeline.PluginInfo, error) {
	plugin, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}

	info, ok := plugin.(*pipeline.PluginInfo)
	if !ok {
		return nil, errors.Wrapf(pipeline.ErrNotPipeline, "%s", id)
	}

	return info, nil
}

// Plugins returns the registered plugins sorted by description.
func (r *Registry) Plugins() []pipeline.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, _ := r.store.ListVertices()
	res := make([]pipeline.Plugin, 0, len(ids))

	for _, id := range ids {
		plugin, _, err := r.store.Vertex(id)
		if err == nil && plugin != nil {
			res = append(res, plugin)
		}
	}

	slices.SortFunc(res, func(a, b pipeline.Plugin) int {
		if c := strings.Compare(a.PluginDescription(), b.PluginDescription()); c != 0 {
			return c
		}

		return strings.Compare(a.PluginID().String(), b.PluginID().String())
	})

	return res
}

// Dependents returns the ids of the plugins referencing id.
func (r *Registry) Dependents(id uuid.UUID) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := r.store.Predecessors(id)
	sortIDs(res)

	return res
}

// Missing returns the ids referenced by registered plugins but not registered themselves.
func (r *Registry) Missing() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, _ := r.store.ListVertices()

	var res []uuid.UUID

	for _, id := range ids {
		plugin, _, err := r.store.Vertex(id)
		if err == nil && plugin == nil {
			res = append(res, id)
		}
	}

	sortIDs(res)

	return res
}

func (r *Registry) targets(id uuid.UUID) []uuid.UUID {
	adjacency, err := r.graph.AdjacencyMap()
	if err != nil {
		return nil
	}

	res := make([]uuid.UUID, 0, len(adjacency[id]))
	for target := range adjacency[id] {
		res = append(res, target)
	}

	return res
}

// prune removes the placeholders nothing references anymore.
func (r *Registry) prune(ids []uuid.UUID) {
	for _, id := range ids {
		plugin, _, err := r.store.Vertex(id)
		if err != nil || plugin != nil || len(r.store.Predecessors(id)) > 0 {
			continue
		}

		_ = r.store.RemoveVertex(id)
	}
}

func sortIDs(ids []uuid.UUID) {
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})
}

var _ pipeline.Resolver = (*Registry)(nil)
