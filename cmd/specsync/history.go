package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"specsync/internal/store"
)

var (
	historySpecName string
	historyFormat   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored spec snapshots",
	Long: `List the snapshots recorded by previous fetches, newest first.
Without --spec, every registered spec with at least one snapshot is
listed.

Examples:
  specsync history --config-dir config/
  specsync history --config-dir config/ --spec gemini
  specsync history --config-dir config/ --format json`,
	Run: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historySpecName, "spec", "s", "", "List snapshots for this spec only")
	historyCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (json, human)")

	rootCmd.AddCommand(historyCmd)
}

// snapshotCLI is the JSON shape for one history entry.
type snapshotCLI struct {
	ID           string `json:"id"`
	Spec         string `json:"spec"`
	FetchedAt    string `json:"fetchedAt"`
	SHA256       string `json:"sha256"`
	Flavor       string `json:"flavor"`
	SubjectCount int    `json:"subjectCount"`
}

func runHistory(cmd *cobra.Command, args []string) {
	logger := newLogger(historyFormat)

	snapshots, err := store.Open(configDirFlag, logger)
	if err != nil {
		exitOnError(err)
	}
	defer snapshots.Close()

	names := []string{historySpecName}
	if historySpecName == "" {
		names, err = snapshots.SpecNames()
		if err != nil {
			exitOnError(err)
		}
	}

	var entries []snapshotCLI
	for _, name := range names {
		snaps, err := snapshots.List(name)
		if err != nil {
			exitOnError(err)
		}
		for _, snap := range snaps {
			entries = append(entries, snapshotCLI{
				ID:           snap.ID,
				Spec:         snap.SpecName,
				FetchedAt:    snap.FetchedAt.Format(time.RFC3339),
				SHA256:       snap.SHA256,
				Flavor:       snap.Flavor,
				SubjectCount: snap.SubjectCount,
			})
		}
	}

	if historyFormat == "json" {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			exitOnError(err)
		}
		fmt.Println(string(data))
		return
	}

	if len(entries) == 0 {
		fmt.Println("No snapshots stored.")
		return
	}
	for _, entry := range entries {
		fmt.Printf("%s  %-12s %-10s %4d subjects  %s  %s\n",
			entry.FetchedAt, entry.Spec, entry.Flavor, entry.SubjectCount,
			entry.SHA256[:12], entry.ID)
	}
}
