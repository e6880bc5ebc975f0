package archive

import (
	"fmt"
	"os"
)

// ScratchProvider hands out a private working directory per conversion.
// The release func removes it.
type ScratchProvider interface {
	Acquire() (dir string, release func() error, err error)
}

// DirScratch creates scratch directories under Root, or under the system
// temp directory when Root is empty.
type DirScratch struct {
	Root string
}

func (s DirScratch) Acquire() (string, func() error, error) {
	dir, err := os.MkdirTemp(s.Root, "shp-*")
	if err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, func() error { return os.RemoveAll(dir) }, nil
}
