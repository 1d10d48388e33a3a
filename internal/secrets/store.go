package secrets

import (
	"slices"
	"strings"
)

// Store is the capability every backend in this package provides. It is
// satisfied by the secret overlay's store contract.
type Store interface {
	Read(path string) (any, bool, error)
	List(prefix string) ([]string, error)
}

func normalizePath(p string) (string, error) {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	return p, nil
}

// childEntries returns the direct children of prefix among paths, with
// deeper entries collapsed to "name/".
func childEntries(paths []string, prefix string) []string {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range paths {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok || rest == "" {
			continue
		}
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[:i+1]
		}
		if _, dup := seen[rest]; dup {
			continue
		}
		seen[rest] = struct{}{}
		out = append(out, rest)
	}
	slices.Sort(out)
	return out
}
