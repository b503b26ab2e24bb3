package expr

import "strings"

// segment is one dot-separated element of a document path. index holds any
// list subscripts verbatim, e.g. "[0][2]".
type segment struct {
	name  string
	index string
}

// parsePath splits "a.b[2].c" into segments. Each segment name gets its own
// name alias, so sibling paths share aliases for their common prefix.
func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, newError(KindAttributeMissing, "", "empty attribute path")
	}
	parts := strings.Split(path, ".")
	segs := make([]segment, 0, len(parts))
	for _, part := range parts {
		name := part
		index := ""
		if i := strings.IndexByte(part, '['); i >= 0 {
			name, index = part[:i], part[i:]
			if !validIndex(index) {
				return nil, newError(KindInvalidPath, path, "malformed list index %q", index)
			}
		}
		if name == "" {
			return nil, newError(KindInvalidPath, path, "empty path segment")
		}
		segs = append(segs, segment{name: name, index: index})
	}
	return segs, nil
}

// validIndex accepts one or more "[digits]" groups.
func validIndex(s string) bool {
	for len(s) > 0 {
		if s[0] != '[' {
			return false
		}
		end := strings.IndexByte(s, ']')
		if end < 2 {
			return false
		}
		for _, c := range s[1:end] {
			if c < '0' || c > '9' {
				return false
			}
		}
		s = s[end+1:]
	}
	return true
}
