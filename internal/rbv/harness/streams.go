package harness

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// WriteStreams persists one serialized digest stream per line, in lane
// order, so a later process can Verify against them without re-running
// the primary phase. The write is atomic: a reader never observes a
// partially written streams file.
func WriteStreams(path string, streams []string) error {
	var buf bytes.Buffer
	for _, s := range streams {
		fmt.Fprintln(&buf, s)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("harness: WriteStreams: %w", err)
	}
	return nil
}

// ReadStreams loads a digest-stream file written by WriteStreams.
func ReadStreams(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("harness: ReadStreams: %w", err)
	}
	defer f.Close()

	var streams []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			streams = append(streams, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("harness: ReadStreams: %w", err)
	}
	return streams, nil
}
