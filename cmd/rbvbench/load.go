// load.go implements the 'rbvbench load' command.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kolkov/rbv/internal/rbv/loader"
	"github.com/kolkov/rbv/internal/rbv/rbvlog"
)

// loadCommand reads a binary key population file and reports its size and
// range, exercising the mmap-backed loader directly without running a
// workload against it.
func loadCommand(args []string) {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "rbvbench load: usage: rbvbench load <keys-file>")
		os.Exit(1)
	}

	log := rbvlog.Default()
	keys, err := loader.Load(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "rbvbench load: %v\n", err)
		os.Exit(1)
	}
	if len(keys) == 0 {
		log.Infof("loaded 0 keys")
		return
	}

	min, max := keys[0], keys[0]
	for _, k := range keys {
		if k < min {
			min = k
		}
		if k > max {
			max = k
		}
	}
	log.Infof("loaded %d keys, range [%d, %d]", len(keys), min, max)
}
