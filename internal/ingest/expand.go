package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand turns CLI arguments into ingestable sources. Glob patterns such as
// docs/**/*.md are expanded to matching files, literal paths must exist and
// URLs pass through untouched. Paths matching any exclude pattern (by full
// path or base name) are dropped. The result keeps argument order and holds
// no duplicates.
func Expand(patterns, excludes []string) ([]string, error) {
	seen := make(map[string]struct{})
	var sources []string
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		sources = append(sources, s)
	}

	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if isURL(pattern) {
			add(pattern)
			continue
		}
		if !hasMeta(pattern) {
			info, err := os.Stat(pattern)
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", pattern, err)
			}
			if info.IsDir() {
				return nil, fmt.Errorf("%s is a directory, use a pattern like %s", pattern, filepath.Join(pattern, "**", "*.md"))
			}
			if !excluded(pattern, excludes) {
				add(pattern)
			}
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !excluded(m, excludes) {
				add(m)
			}
		}
	}
	return sources, nil
}

func excluded(path string, excludes []string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range excludes {
		if matched, _ := doublestar.Match(pattern, slashed); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "file://")
}
