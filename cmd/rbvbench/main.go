// Package main implements the rbvbench CLI tool: a workload harness that
// drives a paired primary/validator index.Store pair (or, for the bench
// subcommand, a single store) and reports hash-chain agreement and
// throughput/latency.
//
// Usage:
//
//	rbvbench run --config workload.json --keys keys.bin --digest streams.txt
//	rbvbench verify --config workload.json --keys keys.bin --digest streams.txt
//	rbvbench bench --config workload.json --keys keys.bin --retry
//	rbvbench load keys.bin
package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

const version = "0.1.0"

func main() {
	maxprocs.Set() // no-op outside a cgroup-limited container; tracks thread defaults to the quota when inside one

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		runCommand(args)
	case "verify":
		verifyCommand(args)
	case "bench":
		benchCommand(args)
	case "load":
		loadCommand(args)
	case "version", "--version", "-v":
		fmt.Printf("rbvbench version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`rbvbench - replay-by-validation workload harness

USAGE:
    rbvbench <command> [arguments]

COMMANDS:
    run        Run a paired primary/validator workload, persisting the digest stream
    verify     Re-check a persisted digest stream against a fresh validator replay
    bench      Run a throughput-only, unpaired workload with optional fault injection
    load       Load a binary key population file and report its size/range
    version    Show version information
    help       Show this help message

EXAMPLES:
    rbvbench run --config workload.json --keys keys.bin --digest streams.txt
    rbvbench verify --config workload.json --keys keys.bin --digest streams.txt
    rbvbench bench --config workload.json --keys keys.bin --retry
    rbvbench load keys.bin
`)
}
