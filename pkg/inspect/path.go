// Package inspect provides tree inspection and formatting utilities for the
// command-line tools.
//
// The inspect package offers:
//   - Normalizing and matching path arguments (e.g., "mboards/0/rx_dsps/*/freq")
//   - Parsing typed values and access flags typed by a user
//   - Building a nested view of a local or remote tree
//   - Formatting values and trees for display
package inspect

import (
	"errors"
	"strings"

	"github.com/radiotree/radiotree-go/pkg/tree"
)

// Path errors.
var (
	ErrEmptyPath   = errors.New("empty path")
	ErrInvalidPath = errors.New("invalid path format")
)

// NormalizePath turns a user-typed path into an absolute tree path.
// A missing leading slash is added and a trailing slash dropped, so
// "mboards/0/" becomes "/mboards/0". "/" stays the root.
func NormalizePath(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyPath
	}
	if !strings.HasPrefix(input, "/") {
		input = "/" + input
	}
	if len(input) > 1 {
		input = strings.TrimSuffix(input, "/")
	}
	p, err := tree.ParsePath(input)
	if err != nil {
		return "", errors.Join(ErrInvalidPath, err)
	}
	return p.String(), nil
}

// IsPattern reports whether path contains wildcards.
func IsPattern(path string) bool {
	return strings.Contains(path, "*")
}

// Match reports whether path matches pattern. "*" matches exactly one
// segment; a final "**" matches any number of trailing segments, including
// none.
func Match(pattern, path string) bool {
	ps := splitSegments(pattern)
	ss := splitSegments(path)
	for i, seg := range ps {
		if seg == "**" && i == len(ps)-1 {
			return true
		}
		if i >= len(ss) {
			return false
		}
		if seg != "*" && seg != ss[i] {
			return false
		}
	}
	return len(ps) == len(ss)
}

// Filter returns the paths that match pattern, in input order.
func Filter(pattern string, paths []string) []string {
	var out []string
	for _, p := range paths {
		if Match(pattern, p) {
			out = append(out, p)
		}
	}
	return out
}

// PatternRoot returns the longest wildcard-free prefix of pattern. It is
// the subtree a client must fetch to expand the pattern.
func PatternRoot(pattern string) string {
	var fixed []string
	for _, seg := range splitSegments(pattern) {
		if strings.Contains(seg, "*") {
			break
		}
		fixed = append(fixed, seg)
	}
	return "/" + strings.Join(fixed, "/")
}

// Relative returns path relative to root, or path unchanged when it is not
// below root.
func Relative(root, path string) string {
	if root == "/" {
		return strings.TrimPrefix(path, "/")
	}
	if rel, ok := strings.CutPrefix(path, root+"/"); ok {
		return rel
	}
	if path == root {
		return ""
	}
	return path
}

func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
