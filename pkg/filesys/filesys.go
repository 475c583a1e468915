// Package filesys provides the small set of directory and
// advisory-locking helpers pkg/graph needs before it touches the
// slot file itself, trimmed from the teacher's broader filesys
// utility belt down to what a single-file store actually uses.
package filesys

import (
	"errors"
	"os"
)

// ErrIsNotDir is returned when a path that was expected to be a
// directory turns out to be a regular file.
var ErrIsNotDir = errors.New("filesys: path isn't a directory")

// CreateDir creates dirPath (and any missing parents) with permission,
// succeeding silently if it already exists as a directory.
func CreateDir(dirPath string, permission os.FileMode) error {
	stat, err := os.Stat(dirPath)
	if err == nil {
		if !stat.IsDir() {
			return ErrIsNotDir
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dirPath, permission)
}

// Exists reports whether a file or directory exists at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
