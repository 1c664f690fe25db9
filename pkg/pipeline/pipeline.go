package pipeline

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-pathcopy/pkg/pipeline/model"
)

// DefaultSeparator is put between paths when the pipeline has no PathsSeparator element.
const DefaultSeparator = "\n"

// Pipeline is an ordered list of elements applied to a path.
type Pipeline struct {
	Elements []Element
}

// New creates a pipeline. An empty pipeline leaves paths unchanged.
func New(elements ...Element) *Pipeline {
	return &Pipeline{Elements: elements}
}

// Apply applies the pipeline to path with a default engine, which cannot resolve plugins.
func (p *Pipeline) Apply(ctx context.Context, path string) (string, error) {
	return defaultEngine().Apply(ctx, p, path)
}

// RequiredVersion is the minimum host version able to run the pipeline.
func (p *Pipeline) RequiredVersion() model.Version {
	res := BaselineVersion
	for _, elem := range p.Elements {
		if elem == nil {
			continue
		}

		res = model.MaxVersion(res, elem.Kind().MinimumVersion())
	}

	return res
}

// RecursiveCopy reports whether folders should be expanded recursively by the caller.
func (p *Pipeline) RecursiveCopy() bool {
	return p.has(KindRecursiveCopy)
}

// DisplayForSelection reports whether the pipeline has a DisplayForSelection element.
func (p *Pipeline) DisplayForSelection() bool {
	return p.has(KindDisplayForSelection)
}

func (p *Pipeline) has(kind Kind) bool {
	return slices.ContainsFunc(p.Elements, func(elem Element) bool {
		return elem != nil && elem.Kind() == kind
	})
}

// Separator returns the text put between paths. The last PathsSeparator element wins.
func (p *Pipeline) Separator() string {
	for i := len(p.Elements) - 1; i >= 0; i-- {
		if sep, ok := p.Elements[i].(PathsSeparator); ok {
			return sep.value()
		}
	}

	return DefaultSeparator
}

// Action returns the last element launching an executable, and its index, or nil when the
// pipeline produces text.
func (p *Pipeline) Action() (int, Element) {
	for i := len(p.Elements) - 1; i >= 0; i-- {
		switch p.Elements[i].(type) {
		case Executable, ExecutableWithFilelist, CommandLine:
			return i, p.Elements[i]
		}
	}

	return -1, nil
}

// References returns the ids of the plugins applied by the pipeline, without duplicates.
func (p *Pipeline) References() []uuid.UUID {
	var res []uuid.UUID

	for _, elem := range p.Elements {
		var id uuid.UUID

		switch ref := elem.(type) {
		case ApplyPipelinePlugin:
			id = ref.ID
		case ApplyPlugin:
			id = ref.ID
		default:
			continue
		}

		if !slices.Contains(res, id) {
			res = append(res, id)
		}
	}

	return res
}

// Validate checks that every element is set and that the pipeline can be edited in mode.
// The simple editor knows neither the stack, command lines, pipeline references nor symbolic
// links, and shows each kind at most once.
func (p *Pipeline) Validate(mode model.EditMode) error {
	seen := make(map[Kind]bool, len(p.Elements))

	for i, elem := range p.Elements {
		if elem == nil || !elem.Kind().Valid() {
			return errors.Wrapf(ErrInvalidParameter, "element %d is not set", i)
		}

		if mode != model.EditModeSimple {
			continue
		}

		kind := elem.Kind()
		if !simpleKind(kind) {
			return errors.Wrapf(ErrInvalidParameter, "element %d: %s requires the expert mode", i, kind)
		}

		if seen[kind] {
			return errors.Wrapf(ErrInvalidParameter, "element %d: %s is repeated, which requires the expert mode", i, kind)
		}

		seen[kind] = true
	}

	return nil
}

func simpleKind(kind Kind) bool {
	switch kind {
	case KindPushToStack, KindPopFromStack, KindSwapStackValues, KindDuplicateStackValue,
		KindCommandLine, KindApplyPipelinePlugin, KindFollowSymlink:
		return false
	default:
		return true
	}
}

// Equal reports whether a and b have the same kinds with the same parameters, in order.
func Equal(a, b *Pipeline) bool {
	if a == nil || b == nil {
		return a == b
	}

	return slices.EqualFunc(a.Elements, b.Elements, func(x, y Element) bool {
		if x == nil || y == nil {
			return x == y
		}

		return x.Kind() == y.Kind() && slices.Equal(x.params(), y.params())
	})
}
