// Command pointfeatures computes neighborhood features over point clouds.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/pointfeatures/internal/monitoring"
	"github.com/banshee-data/pointfeatures/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "compute":
		err = runCompute(rest, stdout, stderr)
	case "select":
		err = runSelect(rest, stdout, stderr)
	case "list":
		err = runList(rest, stdout, stderr)
	case "runs":
		err = runRuns(rest, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "pointfeatures version %s (built %s)\n", version.String(), version.BuildTime)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 1
	}
	if err != nil {
		monitoring.Opsf("%s failed: %v", command, err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `pointfeatures - neighborhood feature extraction for point clouds

Usage: pointfeatures <command> [options]

Commands:
  compute    Compute features for target points from their neighborhoods
  select     Keep the points whose attribute passes a threshold
  list       List the registered feature names
  runs       List or inspect extraction runs stored in a database
  version    Show version
  help       Show this help message

Run 'pointfeatures <command> -h' for command flags.`)
}

// setupLogging routes the ops stream to stderr and optionally the diag
// and trace streams.
func setupLogging(stderr io.Writer, diag, trace bool) {
	w := monitoring.LogWriters{Ops: stderr}
	if diag {
		w.Diag = stderr
	}
	if trace {
		w.Trace = stderr
	}
	monitoring.SetLogWriters(w)
}
