package pipeline_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-pathcopy/pkg/launcher"
	"github.com/askiada/go-pathcopy/pkg/pipeline"
	"github.com/askiada/go-pathcopy/pkg/pipeline/measure"
	"github.com/askiada/go-pathcopy/pkg/pipeline/model"
)

func pluginOf(t *testing.T, id uuid.UUID, elements ...pipeline.Element) *pipeline.PluginInfo {
	t.Helper()

	info, err := pipeline.NewPluginInfo(id, id.String(), pipeline.New(elements...), model.EditModeExpert, false)
	require.NoError(t, err)

	return info
}

type mapResolver map[uuid.UUID]pipeline.Plugin

func (m mapResolver) Resolve(id uuid.UUID) (pipeline.Plugin, error) {
	plugin, ok := m[id]
	if !ok {
		return nil, pipeline.ErrPluginNotFound
	}

	return plugin, nil
}

func TestEnginePlugins(t *testing.T) {
	t.Parallel()

	var (
		quoteID = uuid.New()
		nameID  = uuid.New()
		stackID = uuid.New()
		selfID  = uuid.New()
		loopA   = uuid.New()
		loopB   = uuid.New()
		missing = uuid.New()
	)

	resolver := mapResolver{
		quoteID: pluginOf(t, quoteID, pipeline.Quotes{}),
		nameID: &pipeline.FuncPlugin{ID: nameID, Description: "name", Fn: func(_ context.Context, path string) (string, error) {
			return path[len(path)-1:], nil
		}},
		stackID: pluginOf(t, stackID, pipeline.PopFromStack{}),
		selfID:  pluginOf(t, selfID, pipeline.Quotes{}, pipeline.ApplyPlugin{ID: selfID}),
		loopA:   pluginOf(t, loopA, pipeline.ApplyPipelinePlugin{ID: loopB}),
		loopB:   pluginOf(t, loopB, pipeline.ApplyPipelinePlugin{ID: loopA}),
	}

	eng, err := pipeline.NewEngine(pipeline.WithResolver(resolver))
	require.NoError(t, err)

	tcs := map[string]struct {
		elements []pipeline.Element
		want     string
		wantErr  error
	}{
		"pipeline plugin": {
			elements: []pipeline.Element{pipeline.RemoveExt{}, pipeline.ApplyPipelinePlugin{ID: quoteID}},
			want:     `"a/b"`,
		},
		"path plugin": {
			elements: []pipeline.Element{pipeline.ApplyPlugin{ID: nameID}},
			want:     "t",
		},
		"path plugin is not a pipeline": {
			elements: []pipeline.Element{pipeline.ApplyPipelinePlugin{ID: nameID}},
			wantErr:  pipeline.ErrNotPipeline,
		},
		"nested plugins have their own stack": {
			elements: []pipeline.Element{pipeline.PushToStack{}, pipeline.ApplyPlugin{ID: stackID}},
			wantErr:  pipeline.ErrStackUnderflow,
		},
		"stack survives a nested plugin": {
			elements: []pipeline.Element{pipeline.PushToStack{}, pipeline.ApplyPlugin{ID: quoteID}, pipeline.PopFromStack{Location: pipeline.PopAppend}},
			want:     `"a/b.txt"a/b.txt`,
		},
		"self reference": {
			elements: []pipeline.Element{pipeline.ApplyPlugin{ID: selfID}},
			wantErr:  pipeline.ErrPluginCycle,
		},
		"mutual reference": {
			elements: []pipeline.Element{pipeline.ApplyPipelinePlugin{ID: loopA}},
			wantErr:  pipeline.ErrPluginCycle,
		},
		"missing plugin": {
			elements: []pipeline.Element{pipeline.ApplyPlugin{ID: missing}},
			wantErr:  pipeline.ErrPluginNotFound,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := eng.Apply(context.Background(), pipeline.New(tc.elements...), "a/b.txt")
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				var applyErr *pipeline.ApplyError
				require.ErrorAs(t, err, &applyErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEngineApplyPluginRootCycle(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	info := pluginOf(t, id, pipeline.ApplyPlugin{ID: id})

	eng, err := pipeline.NewEngine(pipeline.WithResolver(mapResolver{id: info}))
	require.NoError(t, err)

	_, err = eng.ApplyPlugin(context.Background(), info, "a")
	require.ErrorIs(t, err, pipeline.ErrPluginCycle)
}

func TestEngineMaxDepth(t *testing.T) {
	t.Parallel()

	const chain = 5

	ids := make([]uuid.UUID, chain)
	for i := range ids {
		ids[i] = uuid.New()
	}

	resolver := mapResolver{}

	for i, id := range ids {
		if i == chain-1 {
			resolver[id] = pluginOf(t, id, pipeline.Quotes{})

			continue
		}

		resolver[id] = pluginOf(t, id, pipeline.ApplyPipelinePlugin{ID: ids[i+1]})
	}

	p := pipeline.New(pipeline.ApplyPipelinePlugin{ID: ids[0]})

	eng, err := pipeline.NewEngine(pipeline.WithResolver(resolver), pipeline.WithMaxDepth(chain))
	require.NoError(t, err)

	got, err := eng.Apply(context.Background(), p, "a")
	require.NoError(t, err)
	assert.Equal(t, `"a"`, got)

	eng, err = pipeline.NewEngine(pipeline.WithResolver(resolver), pipeline.WithMaxDepth(chain-1))
	require.NoError(t, err)

	_, err = eng.Apply(context.Background(), p, "a")
	require.ErrorIs(t, err, pipeline.ErrMaxDepth)
}

func TestEngineErrors(t *testing.T) {
	t.Parallel()

	eng, err := pipeline.NewEngine()
	require.NoError(t, err)

	_, err = eng.Apply(context.Background(), nil, "a")
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)

	_, err = eng.Apply(context.Background(), pipeline.New(pipeline.ApplyPlugin{ID: uuid.New()}), "a")
	require.ErrorIs(t, err, pipeline.ErrNoResolver)

	_, err = eng.ApplyPlugin(context.Background(), nil, "a")
	require.ErrorIs(t, err, pipeline.ErrPluginMustBeSet)

	_, err = eng.Run(context.Background(), pipeline.New(), nil)
	require.ErrorIs(t, err, pipeline.ErrNoPaths)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = eng.Apply(ctx, pipeline.New(pipeline.Quotes{}), "a")
	require.ErrorIs(t, err, context.Canceled)
}

func TestEngineHostVersion(t *testing.T) {
	t.Parallel()

	eng, err := pipeline.NewEngine(pipeline.WithHostVersion(model.NewVersion(16)))
	require.NoError(t, err)

	got, err := eng.Apply(context.Background(), pipeline.New(pipeline.OptionalQuotes{}), "a b")
	require.NoError(t, err)
	assert.Equal(t, `"a b"`, got)

	_, err = eng.Apply(context.Background(), pipeline.New(pipeline.ConvertCase{}), "a")
	require.ErrorIs(t, err, pipeline.ErrVersionTooRecent)

	_, err = eng.Run(context.Background(), pipeline.New(pipeline.PushToStack{}), []string{"a"})
	require.ErrorIs(t, err, pipeline.ErrVersionTooRecent)
}

func TestEngineHostVersionNestedPlugin(t *testing.T) {
	t.Parallel()

	stackID, quoteID := uuid.New(), uuid.New()
	resolver := mapResolver{
		stackID: pluginOf(t, stackID, pipeline.PushToStack{}, pipeline.RemoveExt{}, pipeline.PopFromStack{}),
		quoteID: pluginOf(t, quoteID, pipeline.OptionalQuotes{}),
	}

	eng, err := pipeline.NewEngine(pipeline.WithResolver(resolver), pipeline.WithHostVersion(model.NewVersion(16)))
	require.NoError(t, err)

	tcs := map[string]struct {
		elements []pipeline.Element
		want     string
		wantErr  error
	}{
		"plugin within the host version": {
			elements: []pipeline.Element{pipeline.ApplyPlugin{ID: quoteID}},
			want:     `"a\b c.txt"`,
		},
		"plugin": {
			elements: []pipeline.Element{pipeline.ApplyPlugin{ID: stackID}},
			wantErr:  pipeline.ErrVersionTooRecent,
		},
		"pipeline plugin": {
			elements: []pipeline.Element{pipeline.ApplyPipelinePlugin{ID: stackID}},
			wantErr:  pipeline.ErrVersionTooRecent,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := eng.Apply(context.Background(), pipeline.New(tc.elements...), `a\b c.txt`)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEngineFollowSymlink(t *testing.T) {
	t.Parallel()

	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/data/target.txt", []byte("x"), 0o644))
	require.NoError(t, fs.Symlink("/data/target.txt", "/data/link"))
	require.NoError(t, fs.Symlink("link", "/data/relative"))
	require.NoError(t, fs.Symlink("/data/loop-b", "/data/loop-a"))
	require.NoError(t, fs.Symlink("/data/loop-a", "/data/loop-b"))

	eng, err := pipeline.NewEngine(pipeline.WithFilesystem(fs))
	require.NoError(t, err)

	tcs := map[string]struct {
		path         string
		want         string
		wantWarnings int
	}{
		"regular file": {
			path: "/data/target.txt",
			want: "/data/target.txt",
		},
		"absolute link": {
			path: "/data/link",
			want: "/data/target.txt",
		},
		"relative link to link": {
			path: "/data/relative",
			want: "/data/target.txt",
		},
		"missing file": {
			path:         "/data/missing",
			want:         "/data/missing",
			wantWarnings: 1,
		},
		"loop": {
			path:         "/data/loop-a",
			want:         "/data/loop-a",
			wantWarnings: 1,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res, err := eng.Run(context.Background(), pipeline.New(pipeline.FollowSymlink{}), []string{tc.path})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Text)
			assert.Len(t, res.Warnings, tc.wantWarnings)
		})
	}
}

type fakeLauncher struct {
	mu       sync.Mutex
	commands []launcher.Command
	files    map[string]string
	fs       billy.Filesystem
	err      error
}

func (l *fakeLauncher) Launch(_ context.Context, cmd launcher.Command) (*launcher.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.commands = append(l.commands, cmd)

	if l.fs != nil {
		for _, arg := range cmd.Args {
			content, err := util.ReadFile(l.fs, arg)
			if err == nil {
				l.files[arg] = string(content)
			}
		}
	}

	if l.err != nil {
		return &launcher.Result{ExitCode: 1}, l.err
	}

	return &launcher.Result{Stdout: "done"}, nil
}

func TestEngineRun(t *testing.T) {
	t.Parallel()

	eng, err := pipeline.NewEngine(pipeline.WithConcurrency(3))
	require.NoError(t, err)

	paths := []string{"a.txt", "b.txt", "c.txt", "d.txt"}

	res, err := eng.Run(context.Background(), pipeline.New(pipeline.RemoveExt{}, pipeline.PathsSeparator{Separator: ";", NewLine: true}), paths)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, res.Paths)
	assert.Equal(t, "a;\nb;\nc;\nd", res.Text)
	assert.Empty(t, res.Failures)
	assert.False(t, res.Recursive)
	assert.Nil(t, res.Process)

	res, err = eng.Run(context.Background(), pipeline.New(pipeline.RecursiveCopy{}), []string{"single"})
	require.NoError(t, err)
	assert.Equal(t, "single", res.Text)
	assert.True(t, res.Recursive)
}

func TestEngineRunFailures(t *testing.T) {
	t.Parallel()

	failing := &pipeline.FuncPlugin{ID: uuid.New(), Fn: func(_ context.Context, path string) (string, error) {
		if path == "bad" {
			return "", assert.AnError
		}

		return path + "!", nil
	}}

	eng, err := pipeline.NewEngine(pipeline.WithResolver(mapResolver{failing.ID: failing}))
	require.NoError(t, err)

	p := pipeline.New(pipeline.ApplyPlugin{ID: failing.ID})

	res, err := eng.Run(context.Background(), p, []string{"good", "bad", "fine"})
	require.NoError(t, err)
	assert.Equal(t, "good!\nfine!", res.Text)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "bad", res.Failures[0].Path)
	require.ErrorIs(t, res.Failures[0].Err, assert.AnError)

	res, err = eng.Run(context.Background(), p, []string{"bad"})
	require.ErrorIs(t, err, assert.AnError)
	require.Len(t, res.Failures, 1)
}

func TestEngineRunActions(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		action   pipeline.Element
		wantPath string
		wantArgs func(list string) []string
		wantList string
	}{
		"executable": {
			action:   pipeline.Executable{Path: "/usr/bin/app"},
			wantPath: "/usr/bin/app",
			wantArgs: func(string) []string { return []string{`"a"`, `"b"`} },
		},
		"executable with file list": {
			action:   pipeline.ExecutableWithFilelist{Path: "/usr/bin/app"},
			wantPath: "/usr/bin/app",
			wantArgs: func(list string) []string { return []string{list} },
			wantList: "\"a\"\n\"b\"\n",
		},
		"command line": {
			action:   pipeline.CommandLine{Path: "/usr/bin/app", Arguments: `-v "--files=%FILES%" %FILES% end`},
			wantPath: "/usr/bin/app",
			wantArgs: func(string) []string { return []string{"-v", `--files="a" "b"`, `"a"`, `"b"`, "end"} },
		},
		"command line without placeholder": {
			action:   pipeline.CommandLine{Path: "/usr/bin/app", Arguments: "-v"},
			wantPath: "/usr/bin/app",
			wantArgs: func(string) []string { return []string{"-v", `"a"`, `"b"`} },
		},
		"command line with file list": {
			action:   pipeline.CommandLine{Path: "/usr/bin/app", Arguments: "-l %FILES%", UseFilelist: true},
			wantPath: "/usr/bin/app",
			wantArgs: func(list string) []string { return []string{"-l", list} },
			wantList: "\"a\"\n\"b\"\n",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			fs := memfs.New()
			fake := &fakeLauncher{files: make(map[string]string), fs: fs}

			eng, err := pipeline.NewEngine(pipeline.WithFilesystem(fs), pipeline.WithLauncher(fake), pipeline.WithTempDir("/tmp"))
			require.NoError(t, err)

			res, err := eng.Run(context.Background(), pipeline.New(pipeline.Quotes{}, tc.action), []string{"a", "b"})
			require.NoError(t, err)
			require.NotNil(t, res.Process)
			assert.Equal(t, "done", res.Process.Stdout)

			require.Len(t, fake.commands, 1)
			cmd := fake.commands[0]
			assert.Equal(t, tc.wantPath, cmd.Path)

			var list string

			if tc.wantList != "" {
				for file, content := range fake.files {
					list = file
					assert.Equal(t, tc.wantList, content)
				}

				require.NotEmpty(t, list)

				_, err = fs.Stat(list)
				require.Error(t, err, "file list is removed once the process exited")
			}

			assert.Equal(t, tc.wantArgs(list), cmd.Args)
		})
	}
}

func TestEngineRunActionFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeLauncher{err: errors.Wrap(launcher.ErrExitStatus, "exit code 1")}

	eng, err := pipeline.NewEngine(pipeline.WithLauncher(fake))
	require.NoError(t, err)

	res, err := eng.Run(context.Background(), pipeline.New(pipeline.Executable{Path: "/bin/false"}, pipeline.Quotes{}), []string{"a"})
	require.ErrorIs(t, err, launcher.ErrExitStatus)

	var applyErr *pipeline.ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, 0, applyErr.Index)
	assert.Equal(t, pipeline.KindExecutable, applyErr.Kind)
	assert.Equal(t, `"a"`, res.Text)
}

func TestEngineOptions(t *testing.T) {
	t.Parallel()

	m := measure.NewDefaultMeasure()

	id := uuid.New()
	resolver := mapResolver{id: pluginOf(t, id, pipeline.RemoveExt{}, pipeline.Quotes{})}

	eng, err := pipeline.NewEngine(pipeline.WithResolver(resolver), pipeline.WithOptions(measure.PipelineMeasure(m)), pipeline.WithConcurrency(2))
	require.NoError(t, err)

	res, err := eng.Run(context.Background(), pipeline.New(pipeline.ApplyPlugin{ID: id}, pipeline.Quotes{}), []string{"a.b", "c.d", "e.f"})
	require.NoError(t, err)
	assert.Equal(t, "\"\"a\"\"\n\"\"c\"\"\n\"\"e\"\"", res.Text)
	require.NoError(t, eng.Finish())

	metrics := m.AllMetrics()
	// nested plugin elements are measured as part of the element applying them
	require.Len(t, metrics, 4)
	assert.Equal(t, int64(3), metrics["1. Apply plugin"].Count())
	assert.Equal(t, int64(3), metrics["2. Quotes"].Count())
	assert.Equal(t, map[string]int64{"1. Apply plugin": 3}, metrics["2. Quotes"].AllTransitions())
	assert.Equal(t, map[string]int64{"2. Quotes": 3}, metrics["end"].AllTransitions())
	assert.Greater(t, metrics["end"].GetTotalDuration(), time.Duration(0))
}
