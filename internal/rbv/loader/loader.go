// Package loader reads a flat file of big-endian uint64 keys used to
// pre-populate both replicas' trees before a workload run.
package loader

import (
	"encoding/binary"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// keySize is the on-disk width of one key: a big-endian uint64.
const keySize = 8

// decode splits raw into GOMAXPROCS-sized chunks and decodes each chunk's
// big-endian uint64s concurrently, matching the shape of a parallel
// memcpy/decode pass over a large mmap'd or read buffer.
func decode(raw []byte) ([]uint64, error) {
	if len(raw)%keySize != 0 {
		return nil, fmt.Errorf("loader: file length %d is not a multiple of %d bytes", len(raw), keySize)
	}
	n := len(raw) / keySize
	keys := make([]uint64, n)
	if n == 0 {
		return keys, nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				keys[i] = binary.BigEndian.Uint64(raw[i*keySize : i*keySize+keySize])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return keys, nil
}
