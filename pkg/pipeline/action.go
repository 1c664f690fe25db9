package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-pathcopy/pkg/launcher"
)

const (
	filesPlaceholder = "%FILES%"
	filelistPrefix   = "pathcopy-"
)

func (e *Engine) launch(ctx context.Context, action Element, paths []string) (*launcher.Result, error) {
	if e.launcher == nil {
		return nil, ErrNoLauncher
	}

	cmd, cleanup, err := e.command(action, paths)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	e.logger.DebugContext(ctx, "launching executable", "path", cmd.Path, "args", len(cmd.Args))

	res, err := e.launcher.Launch(ctx, cmd)
	if err != nil {
		return res, errors.Wrapf(err, "unable to launch %s", cmd.Path)
	}

	return res, nil
}

// command builds the command line of an action element. cleanup must be called once the
// command has completed.
func (e *Engine) command(action Element, paths []string) (launcher.Command, func(), error) {
	noop := func() {}

	switch act := action.(type) {
	case Executable:
		return launcher.Command{Path: act.Path, Args: append([]string(nil), paths...)}, noop, nil
	case ExecutableWithFilelist:
		list, cleanup, err := e.writeFilelist(paths)
		if err != nil {
			return launcher.Command{}, noop, err
		}

		return launcher.Command{Path: act.Path, Args: []string{list}}, cleanup, nil
	case CommandLine:
		args, err := launcher.SplitArguments(act.Arguments)
		if err != nil {
			return launcher.Command{}, noop, errors.Wrap(err, "invalid arguments")
		}

		files := paths
		cleanup := noop

		if act.UseFilelist {
			list, listCleanup, err := e.writeFilelist(paths)
			if err != nil {
				return launcher.Command{}, noop, err
			}

			files, cleanup = []string{list}, listCleanup
		}

		return launcher.Command{Path: act.Path, Args: expandFiles(args, files)}, cleanup, nil
	default:
		return launcher.Command{}, noop, errors.Wrapf(ErrInvalidParameter, "%s is not an executable element", action.Kind())
	}
}

// expandFiles replaces %FILES% in args. An argument made only of the placeholder expands to
// one argument per file, otherwise files are joined with spaces. Files are appended when no
// argument has the placeholder.
func expandFiles(args, files []string) []string {
	res := make([]string, 0, len(args)+len(files))
	found := false

	for _, arg := range args {
		switch {
		case arg == filesPlaceholder:
			res = append(res, files...)
			found = true
		case strings.Contains(arg, filesPlaceholder):
			res = append(res, strings.ReplaceAll(arg, filesPlaceholder, strings.Join(files, " ")))
			found = true
		default:
			res = append(res, arg)
		}
	}

	if !found {
		res = append(res, files...)
	}

	return res
}

func (e *Engine) writeFilelist(paths []string) (string, func(), error) {
	file, err := e.fs.TempFile(e.tempDir, filelistPrefix)
	if err != nil {
		return "", nil, errors.Wrap(err, "unable to create file list")
	}

	name := file.Name()
	cleanup := func() {
		_ = e.fs.Remove(name)
	}

	_, err = file.Write([]byte(strings.Join(paths, "\n") + "\n"))
	if err != nil {
		_ = file.Close()
		cleanup()

		return "", nil, errors.Wrapf(err, "unable to write file list %s", name)
	}

	err = file.Close()
	if err != nil {
		cleanup()

		return "", nil, errors.Wrapf(err, "unable to close file list %s", name)
	}

	osPath := name
	if !filepath.IsAbs(osPath) {
		osPath = filepath.Join(e.fs.Root(), osPath)
	}

	return osPath, cleanup, nil
}
