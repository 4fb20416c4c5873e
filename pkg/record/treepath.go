package record

import (
	"fmt"
	"strings"
)

// TreePath places a record in the hierarchical browsing namespace: an
// ordered sequence of category labels, orthogonal to foreign-key
// ownership. It is advisory metadata for browsing UIs and rollups and is
// never a uniqueness or ownership key. Re-parenting a record is a
// metadata update that leaves identity and history untouched.
type TreePath []string

// PathSeparator joins tree-path segments in the string form.
const PathSeparator = "/"

// ParseTreePath parses the "a/b/c" string form. Empty input yields a nil
// path; empty segments are rejected.
func ParseTreePath(s string) (TreePath, error) {
	s = strings.Trim(s, PathSeparator)
	if s == "" {
		return nil, nil
	}

	segments := strings.Split(s, PathSeparator)
	path := make(TreePath, 0, len(segments))
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return nil, fmt.Errorf("tree path %q contains an empty segment", s)
		}
		path = append(path, seg)
	}

	return path, nil
}

// String renders the "a/b/c" form.
func (p TreePath) String() string {
	return strings.Join(p, PathSeparator)
}

// HasPrefix reports whether p sits at or below the given prefix.
// Every path has the empty prefix.
func (p TreePath) HasPrefix(prefix TreePath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i, seg := range prefix {
		if p[i] != seg {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (p TreePath) Clone() TreePath {
	if p == nil {
		return nil
	}
	out := make(TreePath, len(p))
	copy(out, p)
	return out
}

// AssignPath computes the tree path for a new record. A non-empty caller
// hint wins as-is; otherwise the record is filed under its variant's
// default top-level category.
func AssignPath(variant Variant, hint TreePath) TreePath {
	if len(hint) > 0 {
		return hint.Clone()
	}
	return TreePath{string(variant)}
}
