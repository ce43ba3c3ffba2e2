package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ochairo/jarfetch/internal/config"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintf(stderr, "Error: destination directory is required\n\n")
		printUsage(stderr)
		return exitUsage
	}

	// Dispatch to subcommand; anything else is a provisioning run
	switch args[0] {
	case "list":
		return runList(ctx, args[1:], stdout, stderr)
	case "verify":
		return runVerify(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		return runProvision(ctx, args, stdout, stderr)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `jarfetch - Provision engine JAR dependencies from a Maven repository

Usage:
  jarfetch [options] <destination>
  jarfetch <command> [options]

Commands:
  list      Show the manifest and the URLs artifacts are fetched from
  verify    Check artifacts in a destination without downloading
  help      Show this help

Every artifact already present in <destination> is left untouched;
missing ones are downloaded. Individual download failures are reported
but do not change the exit status.

Exit status:
  0  run completed (including individual artifact failures)
  1  destination unavailable or invalid configuration
  2  usage error

Options:`)
	fs := newProvisionFlagSet(config.DefaultConfig())
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w, `
Options can also be set through JARFETCH_*, S3_* and AWS_* environment variables.
Use "jarfetch <command> --help" for command options.

Examples:
  jarfetch ./jars
  jarfetch --concurrency 4 --verify-checksum /opt/flink/lib
  jarfetch --mirror-bucket warehouse --mirror-endpoint http://minio:9000 --mirror-path-style ./jars
  jarfetch list --manifest jars.yml`)
}

// parseFlags parses args and reports whether the command should continue.
// -h prints usage to stdout; any other flag error is a usage error.
func parseFlags(fs *flag.FlagSet, args []string, usage func(io.Writer), stdout, stderr io.Writer) (bool, int) {
	fs.SetOutput(io.Discard)
	err := fs.Parse(args)
	switch {
	case err == nil:
		return true, exitOK
	case errors.Is(err, flag.ErrHelp):
		usage(stdout)
		return false, exitOK
	default:
		fmt.Fprintf(stderr, "Error parsing flags: %v\n\n", err)
		usage(stderr)
		return false, exitUsage
	}
}
