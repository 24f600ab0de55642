//go:build !unix

package loader

import (
	"fmt"
	"os"
)

// Load reads path into memory and decodes it into a key slice. Platforms
// without mmap support fall back to a plain read.
func Load(path string) ([]uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	return decode(data)
}
