package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"specsync/internal/config"
	"specsync/internal/fetch"
	"specsync/internal/spec"
	"specsync/internal/store"
)

var (
	fetchSpecName   string
	fetchNoDiscover bool
	fetchOutputDir  string
	fetchFormat     string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch registered upstream specs and store snapshots",
	Long: `Fetch every spec registered in specs.json (or a single one with
--spec), save the latest body to the output directory, and record a
snapshot in the store. Unless --no-discover is given, discovery URL
patterns are probed for specs that are not registered yet.

Examples:
  specsync fetch --config-dir config/
  specsync fetch --config-dir config/ --spec gemini
  specsync fetch --config-dir config/ --no-discover`,
	Run: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchSpecName, "spec", "s", "", "Fetch only this spec (default: all)")
	fetchCmd.Flags().BoolVar(&fetchNoDiscover, "no-discover", false, "Skip discovery probing for new specs")
	fetchCmd.Flags().StringVarP(&fetchOutputDir, "output", "o", "", "Output directory (overrides config)")
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "human", "Log format (json, human)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(fetchFormat)
	ctx := newContext()

	cfg, err := config.LoadSpecs(configDirFlag)
	if err != nil {
		exitOnError(err)
	}

	outputDir := cfg.OutputDir
	if fetchOutputDir != "" {
		outputDir = fetchOutputDir
	}

	names := cfg.SpecNames()
	if fetchSpecName != "" {
		if _, ok := cfg.Specs[fetchSpecName]; !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown spec %q (available: %v)\n", fetchSpecName, names)
			os.Exit(exitConfig)
		}
		names = []string{fetchSpecName}
	}

	apiKey := fetch.ResolveAPIKey(cfg)
	if fetchSpecName != "" && cfg.Specs[fetchSpecName].RequiresAuth && apiKey == "" {
		fmt.Fprintf(os.Stderr, "Error: spec %q requires an API key; set one of %v\n",
			fetchSpecName, authVars(cfg, fetchSpecName))
		os.Exit(exitConfig)
	}

	snapshots, err := store.Open(configDirFlag, logger)
	if err != nil {
		exitOnError(err)
	}
	defer snapshots.Close()

	fetcher := fetch.NewFetcher(logger, apiKey)

	fmt.Printf("specsync fetch\nConfig: %s\nOutput: %s\n", configDirFlag, outputDir)

	fetched, failed := 0, 0
	for _, name := range names {
		sc := cfg.Specs[name]
		fmt.Printf("\n[%s] %s\n", name, displayName(sc, name))
		if sc.Experimental {
			fmt.Println("  (experimental)")
		}

		body, sum, err := fetcher.Fetch(ctx, name, sc)
		if err != nil {
			if errors.Is(err, fetch.ErrSkipped) {
				fmt.Printf("  SKIPPED: %v\n", err)
			} else {
				fmt.Printf("  FAILED: %v\n", err)
			}
			failed++
			continue
		}

		path, err := fetch.SaveLatest(outputDir, name, body)
		if err != nil {
			fmt.Printf("  FAILED: %v\n", err)
			failed++
			continue
		}

		printSummary(path, sum)
		recordSnapshot(snapshots, name, sum, body)
		fetched++
	}

	if !fetchNoDiscover && fetchSpecName == "" {
		fmt.Println("\n--- Discovery ---")
		hits := fetcher.Discover(ctx, cfg)
		if len(hits) == 0 {
			fmt.Println("No new specs found.")
		} else {
			fmt.Println("NEW SPECS DISCOVERED:")
			for _, hit := range hits {
				fmt.Printf("  - %s: %s\n", hit.Name, hit.URL)
			}
			fmt.Printf("To register them, update %s/specs.json\n", configDirFlag)
		}
	}

	fmt.Printf("\n--- Summary ---\nFetched: %d of %d spec(s) in %s\n",
		fetched, len(names), time.Since(start).Round(time.Millisecond))

	if failed > 0 {
		os.Exit(1)
	}
}

func displayName(sc config.SpecConfig, fallback string) string {
	if sc.Name != "" {
		return sc.Name
	}
	return fallback
}

func authVars(cfg *config.Specs, name string) []string {
	if vars := cfg.Specs[name].AuthEnvVars; len(vars) > 0 {
		return vars
	}
	return cfg.AuthEnvVars
}

func printSummary(path string, sum *fetch.Summary) {
	fmt.Printf("  Saved to: %s\n", path)
	if sum.Title != "" {
		fmt.Printf("  Title: %s\n", sum.Title)
	}
	if sum.Version != "" {
		fmt.Printf("  Version: %s\n", sum.Version)
	}
	switch sum.Flavor {
	case spec.FlavorREST:
		fmt.Printf("  Endpoints: %d\n  Schemas: %d\n  Enums: %d\n",
			sum.Endpoints, sum.Schemas, sum.Enums)
	case spec.FlavorWebSocket:
		fmt.Printf("  Client messages: %d\n  Server messages: %d\n  Config types: %d\n  Enums: %d\n",
			sum.ClientMessages, sum.ServerMessages, sum.ConfigTypes, sum.Enums)
	}
}

func recordSnapshot(snapshots *store.Store, name string, sum *fetch.Summary, body []byte) {
	count := sum.Endpoints + sum.Schemas + sum.ClientMessages + sum.ServerMessages +
		sum.ConfigTypes + sum.Enums
	_, err := snapshots.Record(name, string(sum.Flavor), count, body)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		fmt.Println("  Snapshot unchanged since last fetch.")
	case err != nil:
		fmt.Printf("  WARNING: snapshot not recorded: %v\n", err)
	}
}
