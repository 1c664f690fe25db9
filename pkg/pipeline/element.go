package pipeline

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Element is one step of a pipeline. The set of elements is closed: every implementation
// lives in this package and is listed in Kinds.
type Element interface {
	Kind() Kind
	// params returns the canonical parameters, in encoded order.
	params() []string
	apply(ctx context.Context, run *execution) error
}

type (
	Quotes                     struct{}
	OptionalQuotes             struct{}
	EmailLinks                 struct{}
	EncodeURIWhitespace        struct{}
	EncodeURIChars             struct{}
	BackToForwardSlashes       struct{}
	ForwardToBackslashes       struct{}
	RemoveExt                  struct{}
	UnexpandEnvironmentStrings struct{}
	InjectDriveLabel           struct{}
	FollowSymlink              struct{}
	PushToStack                struct{}
	SwapStackValues            struct{}
	DuplicateStackValue        struct{}
	RecursiveCopy              struct{}
	DisplayForSelection        struct{}
)

func (Quotes) Kind() Kind                     { return KindQuotes }
func (OptionalQuotes) Kind() Kind             { return KindOptionalQuotes }
func (EmailLinks) Kind() Kind                 { return KindEmailLinks }
func (EncodeURIWhitespace) Kind() Kind        { return KindEncodeURIWhitespace }
func (EncodeURIChars) Kind() Kind             { return KindEncodeURIChars }
func (BackToForwardSlashes) Kind() Kind       { return KindBackToForwardSlashes }
func (ForwardToBackslashes) Kind() Kind       { return KindForwardToBackslashes }
func (RemoveExt) Kind() Kind                  { return KindRemoveExt }
func (UnexpandEnvironmentStrings) Kind() Kind { return KindUnexpandEnvironmentStrings }
func (InjectDriveLabel) Kind() Kind           { return KindInjectDriveLabel }
func (FollowSymlink) Kind() Kind              { return KindFollowSymlink }
func (PushToStack) Kind() Kind                { return KindPushToStack }
func (SwapStackValues) Kind() Kind            { return KindSwapStackValues }
func (DuplicateStackValue) Kind() Kind        { return KindDuplicateStackValue }
func (RecursiveCopy) Kind() Kind              { return KindRecursiveCopy }
func (DisplayForSelection) Kind() Kind        { return KindDisplayForSelection }

func (Quotes) params() []string                     { return nil }
func (OptionalQuotes) params() []string             { return nil }
func (EmailLinks) params() []string                 { return nil }
func (EncodeURIWhitespace) params() []string        { return nil }
func (EncodeURIChars) params() []string             { return nil }
func (BackToForwardSlashes) params() []string       { return nil }
func (ForwardToBackslashes) params() []string       { return nil }
func (RemoveExt) params() []string                  { return nil }
func (UnexpandEnvironmentStrings) params() []string { return nil }
func (InjectDriveLabel) params() []string           { return nil }
func (FollowSymlink) params() []string              { return nil }
func (PushToStack) params() []string                { return nil }
func (SwapStackValues) params() []string            { return nil }
func (DuplicateStackValue) params() []string        { return nil }
func (RecursiveCopy) params() []string              { return nil }
func (DisplayForSelection) params() []string        { return nil }

// FindReplace replaces a literal text.
type FindReplace struct {
	Old        string
	New        string
	All        bool
	IgnoreCase bool
}

func NewFindReplace(old, replacement string, all, ignoreCase bool) (FindReplace, error) {
	if old == "" {
		return FindReplace{}, invalidParam(KindFindReplace, "old", errors.Wrap(ErrInvalidParameter, "text to find is empty"))
	}

	return FindReplace{Old: old, New: replacement, All: all, IgnoreCase: ignoreCase}, nil
}

func (FindReplace) Kind() Kind { return KindFindReplace }

func (e FindReplace) params() []string {
	return []string{e.Old, e.New, formatBool(e.All), formatBool(e.IgnoreCase)}
}

// Regex replaces every match of a regular expression.
type Regex struct {
	Pattern     string
	Replacement string
	IgnoreCase  bool

	once     sync.Once
	compiled *regexp.Regexp
	err      error
}

// NewRegex compiles pattern, so an invalid pattern is reported before the element is used.
func NewRegex(pattern, replacement string, ignoreCase bool) (*Regex, error) {
	elem := &Regex{Pattern: pattern, Replacement: replacement, IgnoreCase: ignoreCase}

	_, err := elem.regexp()
	if err != nil {
		return nil, invalidParam(KindRegex, "pattern", err)
	}

	return elem, nil
}

func (*Regex) Kind() Kind { return KindRegex }

func (e *Regex) params() []string {
	return []string{e.Pattern, e.Replacement, formatBool(e.IgnoreCase)}
}

func (e *Regex) regexp() (*regexp.Regexp, error) {
	e.once.Do(func() {
		pattern := e.Pattern
		if e.IgnoreCase {
			pattern = "(?i)" + pattern
		}

		e.compiled, e.err = regexp.Compile(pattern)
		if e.err != nil {
			e.err = errors.Wrapf(ErrInvalidParameter, "invalid regular expression %q: %v", e.Pattern, e.err)
		}
	})

	return e.compiled, e.err
}

// CaseMode is the target case of a ConvertCase element.
type CaseMode int

const (
	CaseLower CaseMode = iota
	CaseUpper
)

func (m CaseMode) String() string {
	if m == CaseUpper {
		return "upper"
	}

	return "lower"
}

type ConvertCase struct {
	Mode CaseMode
}

func (ConvertCase) Kind() Kind { return KindConvertCase }

func (e ConvertCase) params() []string {
	return []string{e.Mode.String()}
}

// CopyNPathParts keeps the last N parts of the path, or the first N if First is set.
type CopyNPathParts struct {
	N     int
	First bool
}

func NewCopyNPathParts(n int, first bool) (CopyNPathParts, error) {
	if n < 1 {
		return CopyNPathParts{}, invalidParam(KindCopyNPathParts, "n", errors.Wrapf(ErrInvalidParameter, "%d is lower than 1", n))
	}

	return CopyNPathParts{N: n, First: first}, nil
}

func (CopyNPathParts) Kind() Kind { return KindCopyNPathParts }

func (e CopyNPathParts) params() []string {
	from := "last"
	if e.First {
		from = "first"
	}

	return []string{strconv.Itoa(e.N), from}
}

// PopLocation tells what PopFromStack does with the popped value.
type PopLocation int

const (
	PopReplace PopLocation = iota
	PopPrepend
	PopAppend
)

func (l PopLocation) String() string {
	switch l {
	case PopPrepend:
		return "prepend"
	case PopAppend:
		return "append"
	default:
		return "replace"
	}
}

type PopFromStack struct {
	Location PopLocation
}

func (PopFromStack) Kind() Kind { return KindPopFromStack }

func (e PopFromStack) params() []string {
	return []string{e.Location.String()}
}

// PathsSeparator replaces the separator put between paths when several are copied.
type PathsSeparator struct {
	Separator string
	NewLine   bool
}

func (PathsSeparator) Kind() Kind { return KindPathsSeparator }

func (e PathsSeparator) params() []string {
	return []string{e.Separator, formatBool(e.NewLine)}
}

func (e PathsSeparator) value() string {
	if e.NewLine {
		return e.Separator + "\n"
	}

	return e.Separator
}

type Executable struct {
	Path string
}

func NewExecutable(path string) (Executable, error) {
	if strings.TrimSpace(path) == "" {
		return Executable{}, invalidParam(KindExecutable, "executable", errors.Wrap(ErrInvalidParameter, "empty executable"))
	}

	return Executable{Path: path}, nil
}

func (Executable) Kind() Kind { return KindExecutable }

func (e Executable) params() []string { return []string{e.Path} }

type ExecutableWithFilelist struct {
	Path string
}

func NewExecutableWithFilelist(path string) (ExecutableWithFilelist, error) {
	if strings.TrimSpace(path) == "" {
		return ExecutableWithFilelist{}, invalidParam(KindExecutableWithFilelist, "executable", errors.Wrap(ErrInvalidParameter, "empty executable"))
	}

	return ExecutableWithFilelist{Path: path}, nil
}

func (ExecutableWithFilelist) Kind() Kind { return KindExecutableWithFilelist }

func (e ExecutableWithFilelist) params() []string { return []string{e.Path} }

// CommandLine launches Path with Arguments, where %FILES% is replaced by the paths,
// or by the path of a file listing them when UseFilelist is set.
type CommandLine struct {
	Path        string
	Arguments   string
	UseFilelist bool
}

func NewCommandLine(path, arguments string, useFilelist bool) (CommandLine, error) {
	if strings.TrimSpace(path) == "" {
		return CommandLine{}, invalidParam(KindCommandLine, "executable", errors.Wrap(ErrInvalidParameter, "empty executable"))
	}

	return CommandLine{Path: path, Arguments: arguments, UseFilelist: useFilelist}, nil
}

func (CommandLine) Kind() Kind { return KindCommandLine }

func (e CommandLine) params() []string {
	return []string{e.Path, e.Arguments, formatBool(e.UseFilelist)}
}

// ApplyPipelinePlugin applies the pipeline plugin identified by ID.
type ApplyPipelinePlugin struct {
	ID uuid.UUID
}

func (ApplyPipelinePlugin) Kind() Kind { return KindApplyPipelinePlugin }

func (e ApplyPipelinePlugin) params() []string { return []string{e.ID.String()} }

// ApplyPlugin applies any plugin identified by ID.
type ApplyPlugin struct {
	ID uuid.UUID
}

func (ApplyPlugin) Kind() Kind { return KindApplyPlugin }

func (e ApplyPlugin) params() []string { return []string{e.ID.String()} }

// NewElement creates an element of the given kind from its encoded parameters.
// Missing optional parameters take their default value.
func NewElement(kind Kind, params ...string) (Element, error) {
	info, ok := kinds[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "kind %d", int(kind))
	}

	if len(params) < info.minParams || len(params) > info.maxParams {
		return nil, errors.Wrapf(ErrMalformedToken, "%s expects %d to %d parameters, got %d", info.name, info.minParams, info.maxParams, len(params))
	}

	arg := func(i int) string {
		if i < len(params) {
			return params[i]
		}

		return ""
	}

	switch kind {
	case KindQuotes:
		return Quotes{}, nil
	case KindOptionalQuotes:
		return OptionalQuotes{}, nil
	case KindEmailLinks:
		return EmailLinks{}, nil
	case KindEncodeURIWhitespace:
		return EncodeURIWhitespace{}, nil
	case KindEncodeURIChars:
		return EncodeURIChars{}, nil
	case KindBackToForwardSlashes:
		return BackToForwardSlashes{}, nil
	case KindForwardToBackslashes:
		return ForwardToBackslashes{}, nil
	case KindRemoveExt:
		return RemoveExt{}, nil
	case KindUnexpandEnvironmentStrings:
		return UnexpandEnvironmentStrings{}, nil
	case KindInjectDriveLabel:
		return InjectDriveLabel{}, nil
	case KindFollowSymlink:
		return FollowSymlink{}, nil
	case KindPushToStack:
		return PushToStack{}, nil
	case KindSwapStackValues:
		return SwapStackValues{}, nil
	case KindDuplicateStackValue:
		return DuplicateStackValue{}, nil
	case KindRecursiveCopy:
		return RecursiveCopy{}, nil
	case KindDisplayForSelection:
		return DisplayForSelection{}, nil
	case KindFindReplace:
		all, err := parseBool(kind, "all", arg(2))
		if err != nil {
			return nil, err
		}

		ignoreCase, err := parseBool(kind, "ignoreCase", arg(3))
		if err != nil {
			return nil, err
		}

		return NewFindReplace(arg(0), arg(1), all, ignoreCase)
	case KindRegex:
		ignoreCase, err := parseBool(kind, "ignoreCase", arg(2))
		if err != nil {
			return nil, err
		}

		elem, err := NewRegex(arg(0), arg(1), ignoreCase)
		if err != nil {
			return nil, err
		}

		return elem, nil
	case KindConvertCase:
		switch arg(0) {
		case "lower":
			return ConvertCase{Mode: CaseLower}, nil
		case "upper":
			return ConvertCase{Mode: CaseUpper}, nil
		default:
			return nil, invalidParam(kind, "mode", errors.Wrapf(ErrInvalidParameter, "%q", arg(0)))
		}
	case KindCopyNPathParts:
		n, err := strconv.Atoi(arg(0))
		if err != nil {
			return nil, invalidParam(kind, "n", errors.Wrapf(ErrInvalidParameter, "%q is not a number", arg(0)))
		}

		switch arg(1) {
		case "", "last":
			return NewCopyNPathParts(n, false)
		case "first":
			return NewCopyNPathParts(n, true)
		default:
			return nil, invalidParam(kind, "from", errors.Wrapf(ErrInvalidParameter, "%q", arg(1)))
		}
	case KindPopFromStack:
		switch arg(0) {
		case "", "replace":
			return PopFromStack{Location: PopReplace}, nil
		case "prepend":
			return PopFromStack{Location: PopPrepend}, nil
		case "append":
			return PopFromStack{Location: PopAppend}, nil
		default:
			return nil, invalidParam(kind, "location", errors.Wrapf(ErrInvalidParameter, "%q", arg(0)))
		}
	case KindPathsSeparator:
		newLine, err := parseBool(kind, "newLine", arg(1))
		if err != nil {
			return nil, err
		}

		return PathsSeparator{Separator: arg(0), NewLine: newLine}, nil
	case KindExecutable:
		return NewExecutable(arg(0))
	case KindExecutableWithFilelist:
		return NewExecutableWithFilelist(arg(0))
	case KindCommandLine:
		useFilelist, err := parseBool(kind, "useFilelist", arg(2))
		if err != nil {
			return nil, err
		}

		return NewCommandLine(arg(0), arg(1), useFilelist)
	case KindApplyPipelinePlugin:
		id, err := parseID(kind, arg(0))
		if err != nil {
			return nil, err
		}

		return ApplyPipelinePlugin{ID: id}, nil
	case KindApplyPlugin:
		id, err := parseID(kind, arg(0))
		if err != nil {
			return nil, err
		}

		return ApplyPlugin{ID: id}, nil
	}

	return nil, errors.Wrapf(ErrUnknownKind, "kind %d", int(kind))
}

func formatBool(b bool) string {
	if b {
		return "1"
	}

	return "0"
}

func parseBool(kind Kind, name, value string) (bool, error) {
	switch strings.ToLower(value) {
	case "", "0", "false":
		return false, nil
	case "1", "true":
		return true, nil
	default:
		return false, invalidParam(kind, name, errors.Wrapf(ErrInvalidParameter, "%q is not a boolean", value))
	}
}

func parseID(kind Kind, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, invalidParam(kind, "id", errors.Wrapf(ErrInvalidParameter, "%q: %v", value, err))
	}

	return id, nil
}
