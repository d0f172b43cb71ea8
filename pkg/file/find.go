package file

import (
	"os"
	"path/filepath"
	"time"
)

// FindOlderThan lists the regular files directly under dir whose name
// matches pattern and whose modification time is before cutoff.
func FindOlderThan(dir, pattern string, cutoff time.Time) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}

	var stale []string
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if info.Mode().IsRegular() && info.ModTime().Before(cutoff) {
			stale = append(stale, path)
		}
	}
	return stale, nil
}
