package pipeline

import (
	"strings"

	"github.com/pkg/errors"
)

// Encoded form:
//
//	pipeline := "" | token ("|" token)*
//	token    := code (";" param)*
//
// Parameters escape '%', '|' and ';' as %25, %7C and %3B.
const (
	elementSeparator = "|"
	paramSeparator   = ";"
)

var paramEscaper = strings.NewReplacer("%", "%25", elementSeparator, "%7C", paramSeparator, "%3B")

// Encode returns the encoded form of p. Parameters are written in canonical form, so two
// equal pipelines always have the same encoding.
func Encode(p *Pipeline) string {
	if p == nil {
		return ""
	}

	tokens := make([]string, 0, len(p.Elements))
	for _, elem := range p.Elements {
		if elem == nil {
			continue
		}

		tokens = append(tokens, EncodeElement(elem))
	}

	return strings.Join(tokens, elementSeparator)
}

// EncodeElement returns the token of a single element.
func EncodeElement(elem Element) string {
	var sb strings.Builder

	sb.WriteString(elem.Kind().Code())

	for _, param := range elem.params() {
		sb.WriteString(paramSeparator)
		sb.WriteString(paramEscaper.Replace(param))
	}

	return sb.String()
}

// Decode parses the encoded form of a pipeline. Errors are *DecodeError.
func Decode(encoded string) (*Pipeline, error) {
	p := &Pipeline{}
	if encoded == "" {
		return p, nil
	}

	offset := 0

	for i, token := range strings.Split(encoded, elementSeparator) {
		elem, err := DecodeElement(token)
		if err != nil {
			return nil, &DecodeError{Index: i, Offset: offset, Token: token, Err: err}
		}

		p.Elements = append(p.Elements, elem)
		offset += len(token) + len(elementSeparator)
	}

	return p, nil
}

// DecodeElement parses a single token.
func DecodeElement(token string) (Element, error) {
	if token == "" {
		return nil, errors.Wrap(ErrMalformedToken, "empty token")
	}

	fields := strings.Split(token, paramSeparator)

	code := fields[0]
	if !validCode(code) {
		return nil, errors.Wrapf(ErrMalformedToken, "invalid kind %q", code)
	}

	kind, ok := kindsByCode[code]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "%q", code)
	}

	params := make([]string, len(fields)-1)

	for i, field := range fields[1:] {
		param, err := unescapeParam(field)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %d", i+1)
		}

		params[i] = param
	}

	return NewElement(kind, params...)
}

func validCode(code string) bool {
	if code == "" {
		return false
	}

	for i := 0; i < len(code); i++ {
		if code[i] < 'a' || code[i] > 'z' {
			return false
		}
	}

	return true
}

func unescapeParam(param string) (string, error) {
	if !strings.Contains(param, "%") {
		return param, nil
	}

	var sb strings.Builder

	sb.Grow(len(param))

	for i := 0; i < len(param); i++ {
		if param[i] != '%' {
			sb.WriteByte(param[i])

			continue
		}

		if i+2 >= len(param) {
			return "", errors.Wrapf(ErrMalformedToken, "truncated escape sequence at %d", i)
		}

		hi, okHi := unhex(param[i+1])
		lo, okLo := unhex(param[i+2])

		if !okHi || !okLo {
			return "", errors.Wrapf(ErrMalformedToken, "invalid escape sequence %q", param[i:i+3])
		}

		sb.WriteByte(hi<<4 | lo)
		i += 2
	}

	return sb.String(), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
