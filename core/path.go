package core

import "strings"

// SplitPath breaks a "/"-separated path into non-empty components
// relative to the overlay root. "" and "." denote the root and split to
// an empty slice. "." segments are skipped; paths with empty segments
// (e.g. "a//b") or ".." segments are rejected.
func SplitPath(p string) ([]string, error) {
	if p == "" || p == "." {
		return nil, nil
	}

	raw := strings.Split(p, "/")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		switch part {
		case "":
			return nil, ErrNoSuchFileOrDirectory(p)
		case ".":
			continue
		case "..":
			return nil, ErrNoSuchFileOrDirectory(p)
		default:
			parts = append(parts, part)
		}
	}
	return parts, nil
}

// JoinPath re-assembles path components into a "/"-separated path; an
// empty slice yields "".
func JoinPath(parts []string) string {
	return strings.Join(parts, "/")
}
