// Package presenter runs whole imports and exports: it finds the input
// files, drives the pipeline for each one and reports what happened.
package presenter

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// mftNames are the file names picked up when a directory is given.
var mftNames = map[string]bool{"mft": true, "MFT": true, "$MFT": true}

// Discover expands paths into the list of MFT files to process. Files are
// taken as given; directories are walked recursively for files named mft,
// MFT or $MFT. The result keeps argument order and has no duplicates.
func Discover(paths []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		key := filepath.Clean(p)
		if !seen[key] {
			seen[key] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && mftNames[d.Name()] {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}
	return out, nil
}
