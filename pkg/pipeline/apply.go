package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

const maxSymlinkHops = 40

var uriWhitespace = strings.NewReplacer(" ", "%20", "\t", "%09", "\r", "%0D", "\n", "%0A")

func (Quotes) apply(_ context.Context, run *execution) error {
	run.path = `"` + run.path + `"`

	return nil
}

func (OptionalQuotes) apply(_ context.Context, run *execution) error {
	if strings.IndexFunc(run.path, unicode.IsSpace) >= 0 {
		run.path = `"` + run.path + `"`
	}

	return nil
}

func (EmailLinks) apply(_ context.Context, run *execution) error {
	link := run.path

	switch {
	case hasURIScheme(link):
	case strings.HasPrefix(link, `\\`):
		link = "file:" + link
	default:
		link = "file:///" + link
	}

	run.path = "<" + link + ">"

	return nil
}

func (EncodeURIWhitespace) apply(_ context.Context, run *execution) error {
	run.path = uriWhitespace.Replace(run.path)

	return nil
}

func (EncodeURIChars) apply(_ context.Context, run *execution) error {
	const hex = "0123456789ABCDEF"

	var sb strings.Builder

	sb.Grow(len(run.path))

	for i := 0; i < len(run.path); i++ {
		c := run.path[i]
		if keepInURI(c) {
			sb.WriteByte(c)

			continue
		}

		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0F])
	}

	run.path = sb.String()

	return nil
}

func keepInURI(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '/', c == '\\', c == ':', c == '.', c == '-', c == '_', c == '~':
		return true
	default:
		return false
	}
}

func (BackToForwardSlashes) apply(_ context.Context, run *execution) error {
	run.path = strings.ReplaceAll(run.path, `\`, `/`)

	return nil
}

func (ForwardToBackslashes) apply(_ context.Context, run *execution) error {
	run.path = strings.ReplaceAll(run.path, `/`, `\`)

	return nil
}

func (RemoveExt) apply(_ context.Context, run *execution) error {
	run.path = removeExtension(run.path)

	return nil
}

func (e FindReplace) apply(_ context.Context, run *execution) error {
	if e.Old == "" {
		return nil
	}

	if !e.IgnoreCase {
		count := 1
		if e.All {
			count = -1
		}

		run.path = strings.Replace(run.path, e.Old, e.New, count)

		return nil
	}

	re, err := regexpFold(e.Old)
	if err != nil {
		return err
	}

	if e.All {
		run.path = re.ReplaceAllLiteralString(run.path, e.New)

		return nil
	}

	loc := re.FindStringIndex(run.path)
	if loc != nil {
		run.path = run.path[:loc[0]] + e.New + run.path[loc[1]:]
	}

	return nil
}

func (e *Regex) apply(_ context.Context, run *execution) error {
	re, err := e.regexp()
	if err != nil {
		return err
	}

	run.path = re.ReplaceAllString(run.path, e.Replacement)

	return nil
}

func (e ConvertCase) apply(_ context.Context, run *execution) error {
	if e.Mode == CaseUpper {
		run.path = strings.ToUpper(run.path)
	} else {
		run.path = strings.ToLower(run.path)
	}

	return nil
}

func (UnexpandEnvironmentStrings) apply(_ context.Context, run *execution) error {
	var (
		bestName  string
		bestValue string
	)

	for _, name := range run.engine.envNames {
		value, ok := run.engine.lookupEnv(name)
		if !ok {
			continue
		}

		value = strings.TrimRight(value, pathSeparators)
		if value == "" || len(value) <= len(bestValue) {
			continue
		}

		if hasPrefixFold(run.path, value) {
			bestName, bestValue = name, value
		}
	}

	if bestName != "" {
		run.path = "%" + bestName + "%" + run.path[len(bestValue):]
	}

	return nil
}

func (InjectDriveLabel) apply(ctx context.Context, run *execution) error {
	drive := driveLetter(run.path)
	if drive == "" {
		return nil
	}

	if run.engine.labeler == nil {
		run.warn(ctx, KindInjectDriveLabel, "no volume labeler configured", nil)

		return nil
	}

	label, err := run.engine.labeler.VolumeLabel(drive)
	if err != nil {
		run.warn(ctx, KindInjectDriveLabel, "unable to get volume label", err)

		return nil
	}

	if label != "" {
		run.path = label + " (" + drive + ")" + run.path[len(drive):]
	}

	return nil
}

func (e CopyNPathParts) apply(_ context.Context, run *execution) error {
	if e.N < 1 {
		return errors.Wrapf(ErrInvalidParameter, "cannot copy %d path parts", e.N)
	}

	parts := segments(run.path)
	if e.N >= len(parts) {
		return nil
	}

	if e.First {
		run.path = run.path[:parts[e.N-1].end]
	} else {
		run.path = run.path[parts[len(parts)-e.N].start:]
	}

	return nil
}

func (FollowSymlink) apply(ctx context.Context, run *execution) error {
	target := run.path

	for range maxSymlinkHops {
		info, err := run.engine.fs.Lstat(target)
		if err != nil {
			run.warn(ctx, KindFollowSymlink, "unable to stat path", err)

			return nil
		}

		if info.Mode()&os.ModeSymlink == 0 {
			run.path = target

			return nil
		}

		link, err := run.engine.fs.Readlink(target)
		if err != nil {
			run.warn(ctx, KindFollowSymlink, "unable to read symbolic link", err)

			return nil
		}

		if !filepath.IsAbs(link) && !strings.HasPrefix(link, "/") {
			link = run.engine.fs.Join(filepath.Dir(target), link)
		}

		target = link
	}

	run.warn(ctx, KindFollowSymlink, "too many levels of symbolic links", nil)

	return nil
}

func (PushToStack) apply(_ context.Context, run *execution) error {
	run.stack = append(run.stack, run.path)

	return nil
}

func (e PopFromStack) apply(_ context.Context, run *execution) error {
	top, err := run.pop()
	if err != nil {
		return err
	}

	switch e.Location {
	case PopPrepend:
		run.path = top + run.path
	case PopAppend:
		run.path += top
	default:
		run.path = top
	}

	return nil
}

func (SwapStackValues) apply(_ context.Context, run *execution) error {
	if len(run.stack) == 0 {
		return ErrStackUnderflow
	}

	last := len(run.stack) - 1
	run.path, run.stack[last] = run.stack[last], run.path

	return nil
}

func (DuplicateStackValue) apply(_ context.Context, run *execution) error {
	if len(run.stack) == 0 {
		return ErrStackUnderflow
	}

	run.stack = append(run.stack, run.stack[len(run.stack)-1])

	return nil
}

// The following elements are consumed by the layer invoking the pipeline, not applied to a path.

func (PathsSeparator) apply(context.Context, *execution) error         { return nil }
func (RecursiveCopy) apply(context.Context, *execution) error          { return nil }
func (DisplayForSelection) apply(context.Context, *execution) error    { return nil }
func (Executable) apply(context.Context, *execution) error             { return nil }
func (ExecutableWithFilelist) apply(context.Context, *execution) error { return nil }
func (CommandLine) apply(context.Context, *execution) error            { return nil }

func (e ApplyPipelinePlugin) apply(ctx context.Context, run *execution) error {
	return run.applyPlugin(ctx, e.ID, true)
}

func (e ApplyPlugin) apply(ctx context.Context, run *execution) error {
	return run.applyPlugin(ctx, e.ID, false)
}

func regexpFold(literal string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(literal))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidParameter, "unable to match %q: %v", literal, err)
	}

	return re, nil
}
