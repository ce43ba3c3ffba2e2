package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/ochairo/jarfetch/internal/external-adapters/yaml"
)

func runList(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := loadConfig()
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	addManifestFlags(fs, cfg)

	usage := func(w io.Writer) {
		fmt.Fprintf(w, `Usage: jarfetch list [options]

Show the artifacts of the manifest, their destination file names and
the URLs they are fetched from. Nothing is downloaded.

Options:
`)
		fs.SetOutput(w)
		fs.PrintDefaults()
		fmt.Fprintf(w, `
Examples:
  jarfetch list
  jarfetch list --manifest jars.yml
  jarfetch list --repository https://maven.example.com/releases
`)
	}

	if ok, code := parseFlags(fs, args, usage, stdout, stderr); !ok {
		return code
	}

	manifest, err := yaml.NewManifestRepository(cfg.Manifest.Path, cfg.Manifest.Repository).GetManifest(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading manifest: %v\n", err)
		return exitError
	}

	fmt.Fprintf(stdout, "Artifacts in %s (%d total):\n\n", manifest.Name, len(manifest.Entries))
	for i, entry := range manifest.Entries {
		fmt.Fprintf(stdout, "  %d. %s\n", i+1, entry.Coordinate)
		fmt.Fprintf(stdout, "     file: %s\n", entry.Filename())
		fmt.Fprintf(stdout, "     url:  %s\n", entry.URL())
		if entry.SHA256 != "" {
			fmt.Fprintf(stdout, "     🔒 sha256: %s\n", entry.SHA256)
		}
		fmt.Fprintln(stdout)
	}

	return exitOK
}
