package launcher

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrUnterminatedQuote = errors.New("unterminated quote")

// SplitArguments splits a command line into arguments. Arguments are separated by
// whitespace; double quotes group words and are removed.
func SplitArguments(s string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inQuote bool
		started bool
	)

	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			if started {
				args = append(args, current.String())
				current.Reset()

				started = false
			}
		default:
			current.WriteRune(r)

			started = true
		}
	}

	if inQuote {
		return nil, errors.Wrapf(ErrUnterminatedQuote, "%q", s)
	}

	if started {
		args = append(args, current.String())
	}

	return args, nil
}
