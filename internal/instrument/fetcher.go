package instrument

import (
	"os"
	"path/filepath"
)

// DirFetcher reads instrument resources from a directory on disk.
type DirFetcher struct {
	Dir string
}

func (f DirFetcher) Fetch(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(f.Dir, filepath.Base(name)))
}
