package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-pathcopy/pkg/launcher"
	"github.com/askiada/go-pathcopy/pkg/pipeline/model"
)

// DefaultMaxDepth is the default limit of nested plugin applications.
const DefaultMaxDepth = 32

// Engine applies pipelines to paths. An Engine is safe for concurrent use: every
// application owns its own path and stack.
type Engine struct {
	resolver    Resolver
	fs          billy.Filesystem
	labeler     VolumeLabeler
	lookupEnv   func(string) (string, bool)
	envNames    []string
	logger      *slog.Logger
	launcher    launcher.Launcher
	hostVersion *model.Version
	tempDir     string
	maxDepth    int
	concurrency int
	opts        []model.PipelineOption
}

type EngineOption func(e *Engine)

// WithResolver sets the resolver used by ApplyPlugin and ApplyPipelinePlugin elements.
func WithResolver(resolver Resolver) EngineOption {
	return func(e *Engine) {
		e.resolver = resolver
	}
}

// WithFilesystem sets the filesystem used to follow symbolic links and write file lists.
func WithFilesystem(fs billy.Filesystem) EngineOption {
	return func(e *Engine) {
		e.fs = fs
	}
}

func WithVolumeLabeler(labeler VolumeLabeler) EngineOption {
	return func(e *Engine) {
		e.labeler = labeler
	}
}

// WithEnvironment sets how environment variables are looked up, and which ones are
// candidates for UnexpandEnvironmentStrings. A nil lookup keeps os.LookupEnv.
func WithEnvironment(lookup func(string) (string, bool), names ...string) EngineOption {
	return func(e *Engine) {
		if lookup != nil {
			e.lookupEnv = lookup
		}

		if len(names) > 0 {
			e.envNames = names
		}
	}
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithLauncher(l launcher.Launcher) EngineOption {
	return func(e *Engine) {
		e.launcher = l
	}
}

// WithHostVersion rejects pipelines requiring a version greater than host.
func WithHostVersion(host model.Version) EngineOption {
	return func(e *Engine) {
		e.hostVersion = &host
	}
}

// WithTempDir sets the directory where file lists are written.
func WithTempDir(dir string) EngineOption {
	return func(e *Engine) {
		e.tempDir = dir
	}
}

func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithConcurrency sets how many paths Run processes at once.
func WithConcurrency(concurrent int) EngineOption {
	return func(e *Engine) {
		e.concurrency = concurrent
	}
}

// WithOptions hooks pipeline options, such as measure or drawer, into every application.
func WithOptions(opts ...model.PipelineOption) EngineOption {
	return func(e *Engine) {
		e.opts = append(e.opts, opts...)
	}
}

func newEngine(opts ...EngineOption) *Engine {
	eng := &Engine{
		fs:          osfs.New("/"),
		lookupEnv:   os.LookupEnv,
		envNames:    DefaultEnvironmentVariables,
		logger:      slog.New(slog.DiscardHandler),
		launcher:    launcher.NewProcessLauncher(),
		tempDir:     os.TempDir(),
		maxDepth:    DefaultMaxDepth,
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.maxDepth <= 0 {
		eng.maxDepth = DefaultMaxDepth
	}

	if eng.concurrency <= 0 {
		eng.concurrency = 1
	}

	return eng
}

// NewEngine creates an engine.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	eng := newEngine(opts...)

	for _, opt := range eng.opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return eng, nil
}

var defaultEngine = sync.OnceValue(func() *Engine { return newEngine() })

// Finish runs the Finish hook of every pipeline option.
func (e *Engine) Finish() error {
	for _, opt := range e.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}

// Apply applies p to path.
func (e *Engine) Apply(ctx context.Context, p *Pipeline, path string) (string, error) {
	res, _, err := e.applyOne(ctx, p, path, nil)

	return res, err
}

// ApplyPlugin applies the pipeline of plugin to path. The plugin is the root of the
// ancestor chain, so a pipeline referencing its own plugin is rejected.
func (e *Engine) ApplyPlugin(ctx context.Context, plugin *PluginInfo, path string) (string, error) {
	if plugin == nil {
		return "", ErrPluginMustBeSet
	}

	pipe, err := plugin.Pipeline()
	if err != nil {
		return "", err
	}

	res, _, err := e.applyOne(ctx, pipe, path, []uuid.UUID{plugin.ID})

	return res, err
}

func (e *Engine) checkVersion(p *Pipeline) error {
	if e.hostVersion == nil {
		return nil
	}

	required := p.RequiredVersion()
	if e.hostVersion.Less(required) {
		return errors.Wrapf(ErrVersionTooRecent, "requires %s, host is %s", required, e.hostVersion)
	}

	return nil
}

func (e *Engine) applyOne(ctx context.Context, p *Pipeline, path string, chain []uuid.UUID) (string, []string, error) {
	if p == nil {
		return "", nil, ErrPipelineMustBeSet
	}

	err := e.checkVersion(p)
	if err != nil {
		return "", nil, err
	}

	run := &execution{
		engine:   e,
		path:     path,
		chain:    chain,
		warnings: &[]string{},
	}

	err = e.execute(ctx, p, run)
	if err != nil {
		return "", *run.warnings, err
	}

	return run.path, *run.warnings, nil
}

func (e *Engine) execute(ctx context.Context, p *Pipeline, run *execution) error {
	hooked := !run.nested && len(e.opts) > 0
	parent := model.StartStep

	for i, elem := range p.Elements {
		if elem == nil {
			return &ApplyError{Index: i, Err: errors.Wrap(ErrInvalidParameter, "nil element")}
		}

		err := ctx.Err()
		if err != nil {
			return &ApplyError{Index: i, Kind: elem.Kind(), Err: err}
		}

		step := &model.StepInfo{
			Index: i,
			Kind:  elem.Kind().Code(),
			Name:  fmt.Sprintf("%d. %s", i+1, elem.Kind()),
		}

		if hooked {
			for _, opt := range e.opts {
				err = opt.PrepareStep(parent, step)
				if err != nil {
					return errors.Wrap(err, "unable to run prepare step function")
				}
			}
		}

		start := time.Now()

		err = elem.apply(ctx, run)
		if err != nil {
			return &ApplyError{Index: i, Kind: elem.Kind(), Err: err}
		}

		if hooked {
			elapsed := time.Since(start)
			for _, opt := range e.opts {
				err = opt.OnStepOutput(step, elapsed)
				if err != nil {
					return errors.Wrap(err, "unable to run step output function")
				}
			}
		}

		parent = step
	}

	if hooked {
		for _, opt := range e.opts {
			err := opt.PrepareStep(parent, model.EndStep)
			if err != nil {
				return errors.Wrap(err, "unable to run prepare step function")
			}
		}
	}

	return nil
}

// execution is the state of one application of a pipeline to one path.
type execution struct {
	engine *Engine
	path   string
	stack  []string
	// chain holds the ids of the plugins being applied, outermost first.
	chain    []uuid.UUID
	warnings *[]string
	nested   bool
}

func (run *execution) pop() (string, error) {
	if len(run.stack) == 0 {
		return "", ErrStackUnderflow
	}

	last := len(run.stack) - 1
	top := run.stack[last]
	run.stack = run.stack[:last]

	return top, nil
}

func (run *execution) warn(ctx context.Context, kind Kind, msg string, err error) {
	attrs := []any{"element", kind.String(), "path", run.path}
	text := kind.String() + ": " + msg

	if err != nil {
		attrs = append(attrs, "error", err)
		text += ": " + err.Error()
	}

	*run.warnings = append(*run.warnings, text)
	run.engine.logger.WarnContext(ctx, msg, attrs...)
}

func (run *execution) applyPlugin(ctx context.Context, id uuid.UUID, pipelineOnly bool) error {
	for _, ancestor := range run.chain {
		if ancestor == id {
			return errors.Wrapf(ErrPluginCycle, "plugin %s is already applied (%s)", id, formatChain(run.chain))
		}
	}

	if len(run.chain) >= run.engine.maxDepth {
		return errors.Wrapf(ErrMaxDepth, "%d nested plugins", len(run.chain))
	}

	if run.engine.resolver == nil {
		return ErrNoResolver
	}

	plugin, err := run.engine.resolver.Resolve(id)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve plugin %s", id)
	}

	if plugin == nil {
		return errors.Wrapf(ErrPluginNotFound, "%s", id)
	}

	switch plg := plugin.(type) {
	case *PluginInfo:
		pipe, err := plg.Pipeline()
		if err != nil {
			return errors.Wrapf(err, "unable to decode plugin %s", id)
		}

		err = run.engine.checkVersion(pipe)
		if err != nil {
			return errors.Wrapf(err, "plugin %s", id)
		}

		chain := make([]uuid.UUID, len(run.chain), len(run.chain)+1)
		copy(chain, run.chain)

		nested := &execution{
			engine:   run.engine,
			path:     run.path,
			chain:    append(chain, id),
			warnings: run.warnings,
			nested:   true,
		}

		err = run.engine.execute(ctx, pipe, nested)
		if err != nil {
			return errors.Wrapf(err, "plugin %s", id)
		}

		run.path = nested.path
	case PathPlugin:
		if pipelineOnly {
			return errors.Wrapf(ErrNotPipeline, "%s", id)
		}

		path, err := plg.ApplyPath(ctx, run.path)
		if err != nil {
			return errors.Wrapf(err, "plugin %s", id)
		}

		run.path = path
	default:
		return errors.Wrapf(ErrNotPipeline, "%s cannot be applied", id)
	}

	return nil
}

func formatChain(chain []uuid.UUID) string {
	ids := make([]string, len(chain))
	for i, id := range chain {
		ids[i] = id.String()
	}

	return strings.Join(ids, " -> ")
}

// PathFailure reports a path that could not be processed by Run.
type PathFailure struct {
	Path string
	Err  error
}

// Result is the outcome of Run.
type Result struct {
	// Text holds the processed paths, joined with the pipeline separator.
	Text      string
	Paths     []string
	Failures  []PathFailure
	Warnings  []string
	Recursive bool
	// Process is set when the pipeline launched an executable instead of producing text.
	Process *launcher.Result
}

// Run applies p to every path. A path that fails is reported in Result.Failures and
// skipped; an error is returned only if no path could be processed or the action of the
// pipeline failed.
func (e *Engine) Run(ctx context.Context, p *Pipeline, paths []string) (*Result, error) {
	return e.run(ctx, p, paths, nil)
}

// RunPlugin is like Run for the pipeline of plugin.
func (e *Engine) RunPlugin(ctx context.Context, plugin *PluginInfo, paths []string) (*Result, error) {
	if plugin == nil {
		return nil, ErrPluginMustBeSet
	}

	pipe, err := plugin.Pipeline()
	if err != nil {
		return nil, err
	}

	return e.run(ctx, pipe, paths, []uuid.UUID{plugin.ID})
}

func (e *Engine) run(ctx context.Context, p *Pipeline, paths []string, chain []uuid.UUID) (*Result, error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	if len(paths) == 0 {
		return nil, ErrNoPaths
	}

	err := e.checkVersion(p)
	if err != nil {
		return nil, err
	}

	outputs := make([]string, len(paths))
	warnings := make([][]string, len(paths))
	failures := make([]error, len(paths))

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(e.concurrency)

	for i, path := range paths {
		errGrp.Go(func() error {
			outputs[i], warnings[i], failures[i] = e.applyOne(dCtx, p, path, chain)

			// a failing path is skipped, only cancellation stops the others
			return ctx.Err()
		})
	}

	err = errGrp.Wait()
	if err != nil {
		return nil, errors.Wrap(err, "unable to process paths")
	}

	res := &Result{Recursive: p.RecursiveCopy()}

	for i, path := range paths {
		res.Warnings = append(res.Warnings, warnings[i]...)

		if failures[i] != nil {
			res.Failures = append(res.Failures, PathFailure{Path: path, Err: failures[i]})

			continue
		}

		res.Paths = append(res.Paths, outputs[i])
	}

	if len(res.Paths) == 0 {
		return res, errors.Wrapf(res.Failures[0].Err, "unable to process %s", res.Failures[0].Path)
	}

	res.Text = strings.Join(res.Paths, p.Separator())

	idx, action := p.Action()
	if action == nil {
		return res, nil
	}

	res.Process, err = e.launch(ctx, action, res.Paths)
	if err != nil {
		return res, &ApplyError{Index: idx, Kind: action.Kind(), Err: err}
	}

	return res, nil
}
