package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-pathcopy/pkg/config"
	"github.com/askiada/go-pathcopy/pkg/pipeline"
	"github.com/askiada/go-pathcopy/pkg/pipeline/drawer"
	"github.com/askiada/go-pathcopy/pkg/pipeline/measure"
	"github.com/askiada/go-pathcopy/pkg/pipeline/model"
	"github.com/askiada/go-pathcopy/pkg/registry"
)

// hostVersion is the version of the elements this command knows.
var hostVersion = model.NewVersion(19)

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}

func printUsage(wrt io.Writer) {
	fmt.Fprint(wrt, `pathcopy - apply path transformation pipelines

Usage: pathcopy [-config file] <command> [options]

Commands:
  apply    Apply a pipeline to paths (-plugin id | -elements encoded) path...
  check    Decode a pipeline and print its canonical form (-elements encoded)
  list     List the registered plugins
  kinds    List the element kinds
  draw     Apply a pipeline and draw its elements (-plugin id | -elements encoded) -out file.dot [-rankdir LR] path...
  version  Show the pathcopy version
  help     Show this help message
`)
}

// app holds what commands share once the configuration is loaded.
type app struct {
	cfg      *config.Config
	fs       billy.Filesystem
	registry *registry.Registry
	stdout   io.Writer
	stderr   io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("pathcopy", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { printUsage(stderr) }
	configPath := flags.String("config", "", "Configuration file path")

	err := flags.Parse(args)
	if err != nil {
		return 2
	}

	if flags.NArg() < 1 {
		printUsage(stderr)

		return 2
	}

	command, cmdArgs := flags.Arg(0), flags.Args()[1:]

	switch command {
	case "help":
		printUsage(stdout)

		return 0
	case "version":
		fmt.Fprintf(stdout, "pathcopy version %s\n", hostVersion)

		return 0
	}

	a, err := newApp(*configPath, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)

		return 1
	}

	switch command {
	case "apply":
		err = a.handleApply(ctx, cmdArgs)
	case "check":
		err = a.handleCheck(cmdArgs)
	case "list":
		err = a.handleList()
	case "kinds":
		err = a.handleKinds()
	case "draw":
		err = a.handleDraw(ctx, cmdArgs)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)

		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)

		if errors.Is(err, errUsage) {
			return 2
		}

		return 1
	}

	return 0
}

func newApp(configPath string, stdout, stderr io.Writer) (*app, error) {
	fs := osfs.New("/")
	cfg := config.Default()

	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to locate %s", configPath)
		}

		cfg, err = config.Load(fs, abs)
		if err != nil {
			return nil, err
		}

		if cfg.Registry != "" && !filepath.IsAbs(cfg.Registry) {
			cfg.Registry = filepath.Join(filepath.Dir(abs), cfg.Registry)
		}
	}

	logger, err := cfg.Logger(stderr)
	if err != nil {
		return nil, err
	}

	reg := registry.NewWithBuiltins(registry.WithLogger(logger))

	if cfg.Registry != "" {
		path, err := filepath.Abs(cfg.Registry)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to locate %s", cfg.Registry)
		}

		err = reg.LoadFile(fs, path)
		if err != nil {
			return nil, err
		}
	}

	return &app{cfg: cfg, fs: fs, registry: reg, stdout: stdout, stderr: stderr}, nil
}

func (a *app) engine(opts ...model.PipelineOption) (*pipeline.Engine, error) {
	logger, err := a.cfg.Logger(a.stderr)
	if err != nil {
		return nil, err
	}

	engineOpts, err := a.cfg.EngineOptions(logger)
	if err != nil {
		return nil, err
	}

	host, err := a.hostVersion()
	if err != nil {
		return nil, err
	}

	engineOpts = append(engineOpts,
		pipeline.WithResolver(a.registry),
		pipeline.WithFilesystem(a.fs),
		pipeline.WithHostVersion(host),
		pipeline.WithOptions(opts...),
	)

	return pipeline.NewEngine(engineOpts...)
}

// hostVersion is the configured host version, capped to the elements this command knows.
func (a *app) hostVersion() (model.Version, error) {
	if a.cfg.HostVersion == "" {
		return hostVersion, nil
	}

	configured, err := model.ParseVersion(a.cfg.HostVersion)
	if err != nil {
		return model.Version{}, errors.Wrapf(config.ErrInvalidConfig, "hostVersion: %v", err)
	}

	if hostVersion.Less(configured) {
		return hostVersion, nil
	}

	return configured, nil
}

// selection is the pipeline picked by the -plugin or -elements flag.
type selection struct {
	plugin   *string
	elements *string
}

func addSelectionFlags(flags *flag.FlagSet) selection {
	return selection{
		plugin:   flags.String("plugin", "", "Id of a registered pipeline plugin"),
		elements: flags.String("elements", "", "Encoded pipeline elements"),
	}
}

func (s selection) pipeline(reg *registry.Registry) (*pipeline.Pipeline, *pipeline.PluginInfo, error) {
	switch {
	case *s.plugin != "" && *s.elements != "":
		return nil, nil, errors.Wrap(errUsage, "-plugin and -elements are mutually exclusive")
	case *s.plugin != "":
		id, err := uuid.Parse(*s.plugin)
		if err != nil {
			return nil, nil, errors.Wrapf(errUsage, "invalid plugin id %q", *s.plugin)
		}

		info, err := reg.Pipeline(id)
		if err != nil {
			return nil, nil, err
		}

		pipe, err := info.Pipeline()
		if err != nil {
			return nil, nil, err
		}

		return pipe, info, nil
	default:
		pipe, err := pipeline.Decode(*s.elements)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to decode elements")
		}

		return pipe, nil, nil
	}
}

func (a *app) handleApply(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("apply", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	sel := addSelectionFlags(flags)

	err := flags.Parse(args)
	if err != nil {
		return errors.Wrap(errUsage, err.Error())
	}

	pipe, info, err := sel.pipeline(a.registry)
	if err != nil {
		return err
	}

	eng, err := a.engine()
	if err != nil {
		return err
	}

	return a.runAndPrint(ctx, eng, pipe, info, flags.Args())
}

func (a *app) runAndPrint(ctx context.Context, eng *pipeline.Engine, pipe *pipeline.Pipeline, info *pipeline.PluginInfo, paths []string) error {
	if len(paths) == 0 {
		return errors.Wrap(errUsage, "no path given")
	}

	var (
		res *pipeline.Result
		err error
	)

	if info != nil {
		res, err = eng.RunPlugin(ctx, info, paths)
	} else {
		res, err = eng.Run(ctx, pipe, paths)
	}

	if res != nil {
		for _, failure := range res.Failures {
			fmt.Fprintf(a.stderr, "Skipped %s: %v\n", failure.Path, failure.Err)
		}

		for _, warning := range res.Warnings {
			fmt.Fprintf(a.stderr, "Warning: %s\n", warning)
		}

		if res.Process != nil {
			fmt.Fprint(a.stdout, res.Process.Stdout)
			fmt.Fprint(a.stderr, res.Process.Stderr)
		}
	}

	if err != nil {
		return err
	}

	if res.Process == nil {
		fmt.Fprintln(a.stdout, res.Text)
	}

	return nil
}

func (a *app) handleCheck(args []string) error {
	flags := flag.NewFlagSet("check", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	elements := flags.String("elements", "", "Encoded pipeline elements")

	err := flags.Parse(args)
	if err != nil {
		return errors.Wrap(errUsage, err.Error())
	}

	pipe, err := pipeline.Decode(*elements)
	if err != nil {
		var decodeErr *pipeline.DecodeError
		if errors.As(err, &decodeErr) && decodeErr.IsVersionError() {
			return errors.Wrapf(err, "written by a version more recent than %s", hostVersion)
		}

		return errors.Wrap(err, "corrupted elements")
	}

	err = pipe.Validate(model.EditModeExpert)
	if err != nil {
		return err
	}

	mode := model.EditModeExpert
	if pipe.Validate(model.EditModeSimple) == nil {
		mode = model.EditModeSimple
	}

	fmt.Fprintf(a.stdout, "elements: %s\nrequired version: %s\nedit mode: %s\n", pipeline.Encode(pipe), pipe.RequiredVersion(), mode)

	for i, elem := range pipe.Elements {
		fmt.Fprintf(a.stdout, "%d. %s\n", i+1, elem.Kind())
	}

	return nil
}

func (a *app) handleList() error {
	wrt := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(wrt, "ID\tVERSION\tDESCRIPTION")

	for _, plugin := range a.registry.Plugins() {
		version := "-"
		if info, ok := plugin.(*pipeline.PluginInfo); ok {
			version = info.RequiredVersion.String()
		}

		fmt.Fprintf(wrt, "%s\t%s\t%s\n", plugin.PluginID(), version, plugin.PluginDescription())
	}

	for _, id := range a.registry.Missing() {
		fmt.Fprintf(wrt, "%s\t-\t(missing)\n", id)
	}

	return errors.Wrap(wrt.Flush(), "unable to write plugins")
}

func (a *app) handleKinds() error {
	wrt := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(wrt, "CODE\tVERSION\tNAME\tHELP")

	for _, kind := range pipeline.Kinds() {
		fmt.Fprintf(wrt, "%s\t%s\t%s\t%s\n", kind.Code(), kind.MinimumVersion(), kind, strings.ReplaceAll(kind.HelpText(), "\t", " "))
	}

	return errors.Wrap(wrt.Flush(), "unable to write kinds")
}

func (a *app) handleDraw(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("draw", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	sel := addSelectionFlags(flags)
	out := flags.String("out", "pipeline.dot", "DOT file to write")
	rankdir := flags.String("rankdir", "", "Graph direction: TB, LR, BT or RL")

	err := flags.Parse(args)
	if err != nil {
		return errors.Wrap(errUsage, err.Error())
	}

	pipe, info, err := sel.pipeline(a.registry)
	if err != nil {
		return err
	}

	var graphOpts []drawer.GraphOption
	if *rankdir != "" {
		graphOpts = append(graphOpts, drawer.GraphAttribute("rankdir", *rankdir))
	}

	m := measure.NewDefaultMeasure()

	eng, err := a.engine(measure.PipelineMeasure(m), drawer.PipelineDrawer(drawer.NewDOTDrawer(*out, graphOpts...), m))
	if err != nil {
		return err
	}

	err = a.runAndPrint(ctx, eng, pipe, info, flags.Args())
	if err != nil {
		return err
	}

	return errors.Wrapf(eng.Finish(), "unable to draw %s", *out)
}
