package pipeline

import "strings"

const pathSeparators = `\/`

func isPathSeparator(c byte) bool {
	return c == '\\' || c == '/'
}

type segment struct {
	start, end int
}

// segments returns the byte ranges of the non-empty parts of path.
func segments(path string) []segment {
	var res []segment

	start := -1

	for i := 0; i < len(path); i++ {
		if isPathSeparator(path[i]) {
			if start >= 0 {
				res = append(res, segment{start: start, end: i})
				start = -1
			}

			continue
		}

		if start < 0 {
			start = i
		}
	}

	if start >= 0 {
		res = append(res, segment{start: start, end: len(path)})
	}

	return res
}

// removeExtension strips everything from the last dot of the last part of path.
func removeExtension(path string) string {
	lastSep := strings.LastIndexAny(path, pathSeparators)

	dot := strings.LastIndexByte(path, '.')
	if dot <= lastSep {
		return path
	}

	return path[:dot]
}

// driveLetter returns the drive of a path such as C:\dir, or "" when path has none.
func driveLetter(path string) string {
	if len(path) < 2 || path[1] != ':' {
		return ""
	}

	c := path[0]
	if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
		return ""
	}

	if len(path) > 2 && !isPathSeparator(path[2]) {
		return ""
	}

	return path[:2]
}

// hasPrefixFold reports whether path starts with prefix, ignoring ASCII case, and whether the
// prefix ends on a part boundary.
func hasPrefixFold(path, prefix string) bool {
	if prefix == "" || len(path) < len(prefix) || !strings.EqualFold(path[:len(prefix)], prefix) {
		return false
	}

	return len(path) == len(prefix) || isPathSeparator(path[len(prefix)]) || isPathSeparator(prefix[len(prefix)-1])
}

func hasURIScheme(path string) bool {
	if strings.HasPrefix(strings.ToLower(path), "mailto:") {
		return true
	}

	idx := strings.Index(path, "://")
	if idx <= 0 {
		return false
	}

	for i := 0; i < idx; i++ {
		c := path[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '+' && c != '-' && c != '.' {
			return false
		}
	}

	return true
}
