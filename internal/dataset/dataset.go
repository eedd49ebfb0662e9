// Package dataset knows how recordings and their derived outputs are laid
// out on disk.
//
// A recording counts as processed for a stage exactly when its derived
// output path exists at the moment the batch is built. The derived path is
// the input path with its final extension replaced; there is no content
// hashing and no staleness check.
package dataset

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/radarize/internal/fsutil"
)

// Recordings lists the recordings with the given extension directly inside
// dir, sorted.
func Recordings(dir, ext string) ([]string, error) {
	paths, err := fsutil.ListFilesByExtension(dir, ext)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s recordings in %s: %w", ext, dir, err)
	}
	return paths, nil
}

// DerivedPath returns path with its final extension replaced by ext.
// A path without an extension gets ext appended.
func DerivedPath(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// Partition splits inputs into those whose derived output already exists
// and those still pending. Both keep the input order.
type Partition struct {
	Skipped []string
	Pending []string
}

// PartitionByOutput computes the Partition of paths for derived extension
// ext. exists is consulted once per path; nil means fsutil.Exists.
func PartitionByOutput(paths []string, ext string, exists func(string) bool) Partition {
	if exists == nil {
		exists = fsutil.Exists
	}
	var p Partition
	for _, path := range paths {
		if exists(DerivedPath(path, ext)) {
			p.Skipped = append(p.Skipped, path)
		} else {
			p.Pending = append(p.Pending, path)
		}
	}
	return p
}

// SplitPaths turns split entries from the experiment configuration into
// sorted, distinct dataset paths: root/basename(name)+ext. Entries that
// resolve to a path already produced by an earlier entry are returned in
// collapsed, in configuration order, and scheduled only once.
func SplitPaths(root string, names []string, ext string) (paths, collapsed []string) {
	seen := make(map[string]bool, len(names))
	paths = make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(root, filepath.Base(name)+ext)
		if seen[p] {
			collapsed = append(collapsed, name)
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, collapsed
}
