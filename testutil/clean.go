package testutil

import (
	"os"
	"path/filepath"
)

// CleanDir removes everything in the directory named by dirname except for
// any directory entries specified by keeps. A missing directory is created.
func CleanDir(dirname string, keeps []string) error {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(dirname, 0755)
		}
		return err
	}

	m := map[string]struct{}{}
	for _, k := range keeps {
		m[k] = struct{}{}
	}

	for _, de := range entries {
		n := de.Name()
		if _, found := m[n]; found {
			continue
		}
		err = os.RemoveAll(filepath.Join(dirname, n))
		if err != nil {
			return err
		}
	}
	return nil
}
