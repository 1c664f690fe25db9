package pipeline

import (
	"sort"

	"github.com/askiada/go-pathcopy/pkg/pipeline/model"
)

// Kind identifies the type of a pipeline element.
type Kind int

const (
	KindQuotes Kind = iota + 1
	KindOptionalQuotes
	KindEmailLinks
	KindEncodeURIWhitespace
	KindEncodeURIChars
	KindBackToForwardSlashes
	KindForwardToBackslashes
	KindRemoveExt
	KindFindReplace
	KindRegex
	KindConvertCase
	KindUnexpandEnvironmentStrings
	KindInjectDriveLabel
	KindCopyNPathParts
	KindFollowSymlink
	KindPushToStack
	KindPopFromStack
	KindSwapStackValues
	KindDuplicateStackValue
	KindPathsSeparator
	KindRecursiveCopy
	KindExecutable
	KindExecutableWithFilelist
	KindCommandLine
	KindApplyPipelinePlugin
	KindApplyPlugin
	KindDisplayForSelection
)

// BaselineVersion is the version required by an empty pipeline.
var BaselineVersion = model.NewVersion(9)

type kindInfo struct {
	code    string
	name    string
	version model.Version
	// minParams are required when decoding, the others fall back to their default.
	minParams int
	maxParams int
	help      string
}

var kinds = map[Kind]kindInfo{
	KindQuotes: {
		code: "q", name: "Quotes", version: model.NewVersion(9),
		help: "Surrounds the path with double quotes.",
	},
	KindOptionalQuotes: {
		code: "oq", name: "Optional quotes", version: model.NewVersion(16),
		help: "Surrounds the path with double quotes if it contains whitespace.",
	},
	KindEmailLinks: {
		code: "el", name: "Email links", version: model.NewVersion(9),
		help: "Turns the path into a link suitable for pasting in an email, like <file:///C:\\dir\\file.txt>.",
	},
	KindEncodeURIWhitespace: {
		code: "ew", name: "Encode URI whitespace", version: model.NewVersion(9),
		help: "Replaces whitespace characters with their URI escape sequence, like %20.",
	},
	KindEncodeURIChars: {
		code: "ec", name: "Encode URI characters", version: model.NewVersion(9),
		help: "Replaces characters that are not valid in an URI with their escape sequence.",
	},
	KindBackToForwardSlashes: {
		code: "bf", name: "Backslashes to forward slashes", version: model.NewVersion(9),
		help: `Replaces all backslashes (\) with forward slashes (/).`,
	},
	KindForwardToBackslashes: {
		code: "fb", name: "Forward slashes to backslashes", version: model.NewVersion(16),
		help: `Replaces all forward slashes (/) with backslashes (\).`,
	},
	KindRemoveExt: {
		code: "rx", name: "Remove extension", version: model.NewVersion(10),
		help: "Removes the file extension, if any.",
	},
	KindFindReplace: {
		code: "fr", name: "Find & replace", version: model.NewVersion(9),
		minParams: 2, maxParams: 4,
		help: "Replaces the first or every occurrence of a text in the path.",
	},
	KindRegex: {
		code: "re", name: "Regular expression", version: model.NewVersion(9),
		minParams: 2, maxParams: 3,
		help: "Replaces every match of a regular expression. Use $1, $2... to refer to capture groups.",
	},
	KindConvertCase: {
		code: "cc", name: "Convert case", version: model.NewVersion(19),
		minParams: 1, maxParams: 1,
		help: "Converts the path to lowercase or uppercase.",
	},
	KindUnexpandEnvironmentStrings: {
		code: "ue", name: "Unexpand environment strings", version: model.NewVersion(11),
		help: `Replaces known folders with environment variables, like %USERPROFILE%\file.txt.`,
	},
	KindInjectDriveLabel: {
		code: "dl", name: "Inject drive label", version: model.NewVersion(15),
		help: `Inserts the label of the drive in the path, like Data (D:)\file.txt.`,
	},
	KindCopyNPathParts: {
		code: "np", name: "Copy N path parts", version: model.NewVersion(14),
		minParams: 1, maxParams: 2,
		help: "Keeps only the last (or first) N parts of the path.",
	},
	KindFollowSymlink: {
		code: "sl", name: "Follow symbolic link", version: model.NewVersion(17),
		help: "Replaces a symbolic link with the path of its target.",
	},
	KindPushToStack: {
		code: "pu", name: "Push to stack", version: model.NewVersion(18),
		help: "Saves the current path on the stack.",
	},
	KindPopFromStack: {
		code: "po", name: "Pop from stack", version: model.NewVersion(18),
		maxParams: 1,
		help: "Removes the top of the stack and uses it to replace, prefix or suffix the current path.",
	},
	KindSwapStackValues: {
		code: "sw", name: "Swap stack values", version: model.NewVersion(18),
		help: "Exchanges the current path with the top of the stack.",
	},
	KindDuplicateStackValue: {
		code: "du", name: "Duplicate stack value", version: model.NewVersion(18),
		help: "Pushes a copy of the top of the stack.",
	},
	KindPathsSeparator: {
		code: "ps", name: "Paths separator", version: model.NewVersion(12),
		minParams: 1, maxParams: 2,
		help: "Uses a custom separator between paths when copying multiple paths.",
	},
	KindRecursiveCopy: {
		code: "rc", name: "Recursive copy", version: model.NewVersion(18),
		help: "Copies the paths of every file in selected folders, recursively.",
	},
	KindExecutable: {
		code: "ex", name: "Launch executable", version: model.NewVersion(10),
		minParams: 1, maxParams: 1,
		help: "Launches an executable with the paths as arguments instead of copying them.",
	},
	KindExecutableWithFilelist: {
		code: "ef", name: "Launch executable with file list", version: model.NewVersion(10),
		minParams: 1, maxParams: 1,
		help: "Launches an executable with the path of a file listing the paths.",
	},
	KindCommandLine: {
		code: "cl", name: "Command line", version: model.NewVersion(13),
		minParams: 2, maxParams: 3,
		help: "Launches an executable with custom arguments. %FILES% is replaced with the paths.",
	},
	KindApplyPipelinePlugin: {
		code: "ap", name: "Apply pipeline plugin", version: model.NewVersion(10),
		minParams: 1, maxParams: 1,
		help: "Applies another pipeline plugin to the path.",
	},
	KindApplyPlugin: {
		code: "ax", name: "Apply plugin", version: model.NewVersion(9),
		minParams: 1, maxParams: 1,
		help: "Applies another plugin to the path.",
	},
	KindDisplayForSelection: {
		code: "ds", name: "Display for selection", version: model.NewVersion(19),
		help: "Shows this plugin only when the selection matches.",
	},
}

var kindsByCode = func() map[string]Kind {
	res := make(map[string]Kind, len(kinds))
	for kind, info := range kinds {
		res[info.code] = kind
	}

	return res
}()

// Kinds returns every known kind, ordered.
func Kinds() []Kind {
	res := make([]Kind, 0, len(kinds))
	for kind := range kinds {
		res = append(res, kind)
	}

	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })

	return res
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kinds[k]

	return ok
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}

	return "unknown"
}

// Code returns the discriminant used in the encoded form.
func (k Kind) Code() string {
	return kinds[k].code
}

// MinimumVersion returns the first host version that knows about k.
func (k Kind) MinimumVersion() model.Version {
	if info, ok := kinds[k]; ok {
		return info.version
	}

	return BaselineVersion
}

func (k Kind) HelpText() string {
	return kinds[k].help
}
