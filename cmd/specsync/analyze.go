package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"specsync/internal/config"
	"specsync/internal/diff"
	"specsync/internal/logging"
	"specsync/internal/render"
	"specsync/internal/spec"
	"specsync/internal/store"
)

var (
	analyzeOldPath   string
	analyzeNewPath   string
	analyzeSpecName  string
	analyzeFormat    string
	analyzeOutputDir string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Diff two spec snapshots into a classified change plan",
	Long: `Compare an old and a new spec document and emit the detected
changes, classified by category and prioritized P0 (breaking removal)
through P4 (non-breaking modification). Inputs are either two files
(--old/--new, JSON or YAML) or the two most recent stored snapshots of
a registered spec (--spec).

The comparison itself always exits 0, with or without changes; only
missing, unreadable, or structurally invalid inputs fail.

Examples:
  specsync analyze --old specs/v1.json --new specs/v2.json
  specsync analyze --spec gemini --format plan
  specsync analyze --old old.yaml --new new.yaml --format all --output-dir out/`,
	Run: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOldPath, "old", "", "Path to the old spec document")
	analyzeCmd.Flags().StringVar(&analyzeNewPath, "new", "", "Path to the new spec document")
	analyzeCmd.Flags().StringVarP(&analyzeSpecName, "spec", "s", "", "Diff the two latest snapshots of this registered spec")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "all", "Output format (changelog, plan, json, all)")
	analyzeCmd.Flags().StringVar(&analyzeOutputDir, "output-dir", "", "Write rendered files here instead of stdout")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger("human")

	format, err := render.ParseFormat(analyzeFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitConfig)
	}

	oldDoc, newDoc := loadAnalyzeInputs(logger)

	cls, err := config.LoadClassification(configDirFlag)
	if err != nil {
		exitOnError(err)
	}
	rules, err := diff.NewRules(cls)
	if err != nil {
		exitOnError(err)
	}

	plan, err := diff.NewEngine(rules).Compare(oldDoc, newDoc)
	if err != nil {
		exitOnError(err)
	}

	files, err := render.Files(plan, format)
	if err != nil {
		exitOnError(err)
	}

	if analyzeOutputDir != "" {
		if err := os.MkdirAll(analyzeOutputDir, 0755); err != nil {
			exitOnError(err)
		}
		for _, file := range files {
			path := filepath.Join(analyzeOutputDir, file.Name)
			if err := os.WriteFile(path, []byte(file.Content), 0644); err != nil {
				exitOnError(err)
			}
			fmt.Printf("Wrote %s\n", path)
		}
	} else {
		for i, file := range files {
			if len(files) > 1 {
				if i > 0 {
					fmt.Println()
				}
				fmt.Printf("--- %s ---\n", file.Name)
			}
			fmt.Print(file.Content)
		}
	}

	logger.Debug("Analysis completed", map[string]interface{}{
		"records":  len(plan.Records),
		"duration": time.Since(start).Milliseconds(),
	})
}

// loadAnalyzeInputs resolves the old and new documents from either the
// file flags or the snapshot store.
func loadAnalyzeInputs(logger *logging.Logger) (oldDoc, newDoc spec.Document) {
	switch {
	case analyzeSpecName != "" && (analyzeOldPath != "" || analyzeNewPath != ""):
		fmt.Fprintln(os.Stderr, "Error: --spec cannot be combined with --old/--new")
		os.Exit(exitConfig)
	case analyzeSpecName != "":
		return loadSnapshotPair(logger)
	case analyzeOldPath == "" || analyzeNewPath == "":
		fmt.Fprintln(os.Stderr, "Error: need --old and --new, or --spec")
		os.Exit(exitConfig)
	}

	var err error
	oldDoc, err = spec.Load(analyzeOldPath)
	if err != nil {
		exitOnError(err)
	}
	newDoc, err = spec.Load(analyzeNewPath)
	if err != nil {
		exitOnError(err)
	}
	return oldDoc, newDoc
}

// loadSnapshotPair parses the two latest stored snapshots of a
// registered spec, older as the baseline.
func loadSnapshotPair(logger *logging.Logger) (oldDoc, newDoc spec.Document) {
	snapshots, err := store.Open(configDirFlag, logger)
	if err != nil {
		exitOnError(err)
	}
	defer snapshots.Close()

	newer, older, err := snapshots.LatestTwo(analyzeSpecName)
	if err != nil {
		exitOnError(err)
	}

	oldDoc = parseSnapshot(snapshots, older)
	newDoc = parseSnapshot(snapshots, newer)

	logger.Info("Comparing stored snapshots", map[string]interface{}{
		"spec": analyzeSpecName,
		"old":  older.FetchedAt.Format(time.RFC3339),
		"new":  newer.FetchedAt.Format(time.RFC3339),
	})
	return oldDoc, newDoc
}

func parseSnapshot(snapshots *store.Store, snap *store.Snapshot) spec.Document {
	body, err := snapshots.Body(snap.ID)
	if err != nil {
		exitOnError(err)
	}
	doc, err := spec.Parse(body, "snapshot "+snap.ID)
	if err != nil {
		exitOnError(err)
	}
	return doc
}
