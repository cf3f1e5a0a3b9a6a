package binding

import (
	"strings"

	"github.com/c360/uistream/errors"
)

// Path is an immutable location in the shared data model. Dot notation
// ("user.items[2].name") and slash notation ("/user/items/2/name") parse to
// equal paths; bracket indices become plain segments.
type Path struct {
	segments []string
	absolute bool
}

// ParseDot parses dot/bracket notation. Dot paths are rooted at the model
// root, so the result is always absolute.
func ParseDot(s string) (Path, error) {
	if s == "" {
		return Path{}, errors.NewMessageParseError("empty binding path", nil)
	}

	var segments []string
	for _, part := range strings.Split(s, ".") {
		segs, err := splitBrackets(part)
		if err != nil {
			return Path{}, err
		}
		segments = append(segments, segs...)
	}
	return Path{segments: segments, absolute: true}, nil
}

// ParseSlash parses slash notation. A leading slash makes the path absolute.
func ParseSlash(s string) (Path, error) {
	if s == "" || s == "/" {
		return Path{}, errors.NewMessageParseError("empty binding path", nil)
	}

	absolute := strings.HasPrefix(s, "/")
	trimmed := strings.Trim(s, "/")
	if trimmed == "" {
		return Path{}, errors.NewMessageParseError("empty binding path", nil)
	}

	segments := strings.Split(trimmed, "/")
	for _, seg := range segments {
		if seg == "" {
			return Path{}, errors.NewMessageParseError("binding path has empty segment: "+s, nil)
		}
	}
	return Path{segments: segments, absolute: absolute}, nil
}

// Parse accepts either notation, choosing by the leading slash
func Parse(s string) (Path, error) {
	if strings.HasPrefix(s, "/") {
		return ParseSlash(s)
	}
	return ParseDot(s)
}

func splitBrackets(part string) ([]string, error) {
	open := strings.IndexByte(part, '[')
	if open < 0 {
		if part == "" {
			return nil, errors.NewMessageParseError("binding path has empty segment", nil)
		}
		if strings.ContainsAny(part, "]") {
			return nil, errors.NewMessageParseError("unmatched bracket in path segment: "+part, nil)
		}
		return []string{part}, nil
	}

	head := part[:open]
	if head == "" {
		return nil, errors.NewMessageParseError("bracket without preceding segment: "+part, nil)
	}
	segments := []string{head}

	rest := part[open:]
	for rest != "" {
		if rest[0] != '[' {
			return nil, errors.NewMessageParseError("malformed bracket expression: "+part, nil)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, errors.NewMessageParseError("unterminated bracket in path segment: "+part, nil)
		}
		inner := rest[1:end]
		if inner == "" {
			return nil, errors.NewMessageParseError("empty bracket index in path segment: "+part, nil)
		}
		segments = append(segments, inner)
		rest = rest[end+1:]
	}
	return segments, nil
}

// Len returns the number of segments
func (p Path) Len() int { return len(p.segments) }

// Absolute reports whether the path is rooted at the model root
func (p Path) Absolute() bool { return p.absolute }

// Segments returns a copy of the segment list
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Leaf returns the last segment, or "" for an empty path
func (p Path) Leaf() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Parent returns the all-but-last path. The second return is false for
// paths of fewer than two segments, which have no parent.
func (p Path) Parent() (Path, bool) {
	if len(p.segments) < 2 {
		return Path{}, false
	}
	parent := make([]string, len(p.segments)-1)
	copy(parent, p.segments)
	return Path{segments: parent, absolute: p.absolute}, true
}

// Join appends other's segments to p
func (p Path) Join(other Path) Path {
	joined := make([]string, 0, len(p.segments)+len(other.segments))
	joined = append(joined, p.segments...)
	joined = append(joined, other.segments...)
	return Path{segments: joined, absolute: p.absolute}
}

// Child appends one segment
func (p Path) Child(segment string) Path {
	joined := make([]string, 0, len(p.segments)+1)
	joined = append(joined, p.segments...)
	joined = append(joined, segment)
	return Path{segments: joined, absolute: p.absolute}
}

// HasPrefix reports whether p starts with prefix's segments
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix.segments) > len(p.segments) {
		return false
	}
	for i, seg := range prefix.segments {
		if p.segments[i] != seg {
			return false
		}
	}
	return true
}

// Equal compares segments and the absolute flag
func (p Path) Equal(other Path) bool {
	if p.absolute != other.absolute || len(p.segments) != len(other.segments) {
		return false
	}
	for i, seg := range p.segments {
		if other.segments[i] != seg {
			return false
		}
	}
	return true
}

// String renders dot notation, with numeric segments in bracket form
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p.segments {
		if isIndex(seg) && i > 0 {
			b.WriteByte('[')
			b.WriteString(seg)
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
