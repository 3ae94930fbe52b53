// Package input collects the C# sources an analysis run works on.
package input

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"
)

// Kind records how an artifact was selected.
type Kind int

const (
	KindFile Kind = iota
	KindDiff
)

func (k Kind) String() string {
	if k == KindDiff {
		return "diff"
	}
	return "file"
}

// Artifact is one source file to analyze.
type Artifact struct {
	Path    string
	Content string
	Kind    Kind
}

// SourceExt is the extension of the files directory walks collect.
const SourceExt = ".cs"

// Handler reads artifacts, skipping paths matched by its exclude globs.
type Handler struct {
	excludes []glob.Glob
}

// NewHandler compiles the exclude patterns. Patterns use "/" as separator,
// so "**" crosses directories and "*" does not.
func NewHandler(excludes ...string) (*Handler, error) {
	h := &Handler{}
	for _, pattern := range excludes {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling exclude pattern %q: %w", pattern, err)
		}
		h.excludes = append(h.excludes, g)
	}
	return h, nil
}

// Excluded reports whether path matches an exclude pattern.
func (h *Handler) Excluded(path string) bool {
	p := filepath.ToSlash(path)
	for _, g := range h.excludes {
		if g.Match(p) || g.Match(strings.TrimPrefix(p, "./")) {
			return true
		}
	}
	return false
}

// ReadFiles reads the named files. Explicitly named files are read
// whatever their extension.
func (h *Handler) ReadFiles(paths []string) ([]Artifact, error) {
	var artifacts []Artifact
	for _, p := range paths {
		if h.Excluded(p) {
			slog.Debug("skipping excluded file", "path", p)
			continue
		}
		a, ok, err := readArtifact(p, KindFile)
		if err != nil {
			return nil, err
		}
		if ok {
			artifacts = append(artifacts, a)
		}
	}
	return artifacts, nil
}

// ReadDiff reads the current contents of the C# files a unified diff
// touches, relative to root. Deleted files are skipped.
func (h *Handler) ReadDiff(diff, root string) ([]Artifact, error) {
	var artifacts []Artifact
	seen := make(map[string]bool)
	for _, path := range ChangedFiles(diff) {
		if seen[path] || !strings.EqualFold(filepath.Ext(path), SourceExt) {
			continue
		}
		seen[path] = true
		full := filepath.Join(root, path)
		if h.Excluded(path) {
			continue
		}
		if _, err := os.Stat(full); os.IsNotExist(err) {
			slog.Debug("skipping file deleted by diff", "path", path)
			continue
		}
		a, ok, err := readArtifact(full, KindDiff)
		if err != nil {
			return nil, err
		}
		if ok {
			artifacts = append(artifacts, a)
		}
	}
	return artifacts, nil
}

// ChangedFiles lists the post-image paths of a unified diff in order.
func ChangedFiles(diff string) []string {
	var paths []string
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git"):
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				paths = append(paths, strings.TrimPrefix(parts[len(parts)-1], "b/"))
			}
		case strings.HasPrefix(line, "+++ /dev/null"):
			// deletion: drop the path recorded by the header
			if len(paths) > 0 {
				paths = paths[:len(paths)-1]
			}
		}
	}
	return paths
}

// ReadDirectory walks dir for C# sources, skipping hidden directories,
// bin/obj build output and excluded paths. Results are sorted by path.
func (h *Handler) ReadDirectory(dir string) ([]Artifact, error) {
	var artifacts []Artifact
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		if info.IsDir() {
			if path == dir {
				return nil
			}
			name := info.Name()
			if strings.HasPrefix(name, ".") || name == "bin" || name == "obj" || h.Excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), SourceExt) || h.Excluded(rel) {
			return nil
		}
		a, ok, err := readArtifact(path, KindFile)
		if err != nil {
			return err
		}
		if ok {
			artifacts = append(artifacts, a)
		}
		return nil
	})
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Path < artifacts[j].Path })
	return artifacts, err
}

func readArtifact(path string, kind Kind) (Artifact, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, false, err
	}
	if !utf8.Valid(data) {
		slog.Warn("skipping file with invalid UTF-8", "path", path)
		return Artifact{}, false, nil
	}
	// a UTF-8 byte order mark is common in C# projects
	content := strings.TrimPrefix(string(data), "\uFEFF")
	return Artifact{Path: path, Content: content, Kind: kind}, true, nil
}
