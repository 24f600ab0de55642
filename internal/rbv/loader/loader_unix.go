//go:build unix

package loader

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Load mmaps path read-only and decodes it into a key slice without a
// user-space copy of the whole file.
func Load(path string) ([]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("loader: stat %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		return []uint64{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("loader: mmap %s: %w", path, err)
	}
	defer unix.Munmap(data)

	return decode(data)
}
