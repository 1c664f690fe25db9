package model

import (
	"strings"

	"github.com/pkg/errors"
)

// EditMode is the editor a plugin was last saved with.
type EditMode int

const (
	EditModeSimple EditMode = iota
	EditModeExpert
)

var ErrInvalidEditMode = errors.New("invalid edit mode")

func (m EditMode) String() string {
	switch m {
	case EditModeSimple:
		return "simple"
	case EditModeExpert:
		return "expert"
	default:
		return "unknown"
	}
}

// ParseEditMode parses the output of EditMode.String. An empty string is the simple mode.
func ParseEditMode(s string) (EditMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simple":
		return EditModeSimple, nil
	case "expert":
		return EditModeExpert, nil
	default:
		return 0, errors.Wrapf(ErrInvalidEditMode, "%q", s)
	}
}
