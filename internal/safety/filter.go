// Package safety provides resource filtering, confirmation and audit logging
// for the SpringboardVR session tools.
package safety

import (
	"fmt"
	"path/filepath"
)

// Filter controls which venue resources (location or station ids) the tools
// may act on, using an allowlist and a denylist of glob patterns as
// understood by filepath.Match.
//
// Rules:
//   - A nil Filter, or one with both lists empty, allows every id.
//   - Denylist always takes priority over the allowlist.
//   - With a non-empty allowlist an id must match at least one allowlist
//     pattern.
type Filter struct {
	kind      string
	allowlist []string
	denylist  []string
}

// NewFilter constructs a Filter for the named resource kind (used in error
// messages) from the provided pattern slices. Either list may be nil.
func NewFilter(kind string, allowlist, denylist []string) *Filter {
	return &Filter{
		kind:      kind,
		allowlist: allowlist,
		denylist:  denylist,
	}
}

// IsAllowed reports whether id is permitted by this filter.
func (f *Filter) IsAllowed(id string) bool {
	if f == nil {
		return true
	}

	for _, pattern := range f.denylist {
		if matchGlob(pattern, id) {
			return false
		}
	}

	if len(f.allowlist) == 0 {
		return true
	}

	for _, pattern := range f.allowlist {
		if matchGlob(pattern, id) {
			return true
		}
	}

	return false
}

// Check returns an error naming the resource kind when id is not allowed.
func (f *Filter) Check(id string) error {
	if f.IsAllowed(id) {
		return nil
	}
	return fmt.Errorf("%s %q is not permitted by the safety filter", f.kind, id)
}

// matchGlob returns true when name matches the given glob pattern.
// Malformed patterns are treated as non-matching.
func matchGlob(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	if err != nil {
		return false
	}
	return matched
}
