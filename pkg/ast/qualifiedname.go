package ast

import "strings"

// QualifiedName identifies a relation or type as an ordered sequence of name
// segments, rendered as "a.b.c". Qualified names are value types; comparing
// them compares the segment sequences lexicographically.
type QualifiedName struct {
	segments []string
}

// NewQualifiedName builds a qualified name from its segments.
func NewQualifiedName(segments ...string) QualifiedName {
	segs := make([]string, len(segments))
	copy(segs, segments)
	return QualifiedName{segments: segs}
}

// ParseQualifiedName splits a dotted name "a.b.c" into a qualified name.
func ParseQualifiedName(name string) QualifiedName {
	if name == "" {
		return QualifiedName{}
	}
	return QualifiedName{segments: strings.Split(name, ".")}
}

// Segments returns a copy of the name's segments.
func (q QualifiedName) Segments() []string {
	out := make([]string, len(q.segments))
	copy(out, q.segments)
	return out
}

// Prepend returns a new name with the given segment in front.
func (q QualifiedName) Prepend(segment string) QualifiedName {
	segs := make([]string, 0, len(q.segments)+1)
	segs = append(segs, segment)
	segs = append(segs, q.segments...)
	return QualifiedName{segments: segs}
}

// WithPrefixedHead returns a new name whose first segment is prefix+head.
// It is used to derive synthetic relation names such as "+?exists_r".
func (q QualifiedName) WithPrefixedHead(prefix string) QualifiedName {
	return ParseQualifiedName(prefix + q.String())
}

// IsEmpty reports whether the name has no segments.
func (q QualifiedName) IsEmpty() bool {
	return len(q.segments) == 0
}

// String renders the name as its dot-joined segments.
func (q QualifiedName) String() string {
	return strings.Join(q.segments, ".")
}

// EqualName reports segment-wise equality.
func (q QualifiedName) EqualName(other QualifiedName) bool {
	if len(q.segments) != len(other.segments) {
		return false
	}
	for i := range q.segments {
		if q.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// Compare orders names lexicographically by their segments. It returns a
// negative value if q sorts before other, zero if equal, positive otherwise.
func (q QualifiedName) Compare(other QualifiedName) int {
	n := len(q.segments)
	if len(other.segments) < n {
		n = len(other.segments)
	}
	for i := 0; i < n; i++ {
		if c := strings.Compare(q.segments[i], other.segments[i]); c != 0 {
			return c
		}
	}
	return len(q.segments) - len(other.segments)
}
